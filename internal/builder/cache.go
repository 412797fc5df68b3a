package builder

import (
	"context"
	"strings"

	"github.com/newhook/ecuci/internal/build"
	"github.com/newhook/ecuci/internal/com"
	"github.com/newhook/ecuci/internal/toolclient"
)

// CacheConfig describes one file to insert into an ecu.test cache.
type CacheConfig struct {
	Type     com.CacheType `toml:"type" yaml:"type"`
	FilePath string        `toml:"file_path" yaml:"filePath"`
	// DBChannel selects the bus channel for BUS and SERVICE caches.
	DBChannel string `toml:"db_channel" yaml:"dbChannel"`
	Clear     bool   `toml:"clear" yaml:"clear"`
}

// Expand resolves build variables in the paths.
func (c CacheConfig) Expand(env build.EnvVars) CacheConfig {
	c.FilePath = strings.TrimSpace(env.Expand(c.FilePath))
	c.DBChannel = strings.TrimSpace(env.Expand(c.DBChannel))
	return c
}

// RemoveEmptyCaches drops configs without a file path.
func RemoveEmptyCaches(caches []CacheConfig) []CacheConfig {
	var out []CacheConfig
	for _, c := range caches {
		if strings.TrimSpace(c.FilePath) != "" {
			out = append(out, c)
		}
	}
	return out
}

// Cache fills the caches of the running ecu.test instance.
type Cache struct {
	Caches []CacheConfig `yaml:"caches"`

	Host *toolclient.Host `yaml:"-"`
}

// NewCache creates a cache step, dropping configs without a file path.
func NewCache(caches []CacheConfig) *Cache {
	return &Cache{Caches: RemoveEmptyCaches(caches)}
}

// Perform implements Step. An incompatible instance fails the build without
// aborting it.
func (b *Cache) Perform(ctx context.Context, step *build.Step) error {
	return perform(step, func() error {
		if err := build.CheckOS(step.Launcher); err != nil {
			return err
		}
		host := hostFor(b.Host, step)
		prop := property(step.Run)
		ok, err := toolclient.IsCacheCompatible(ctx, prop, host)
		if err != nil {
			return err
		}
		if !ok {
			step.Run.SetResult(build.Failure)
			return nil
		}
		for _, c := range RemoveEmptyCaches(b.Caches) {
			c = c.Expand(step.Run.Env)
			client := toolclient.NewCacheClient(c.Type, step.Abs(c.FilePath), c.DBChannel, c.Clear, prop, host)
			if err := client.GenerateCache(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

// property returns the COM property of the latest ecu.test instance started
// by the build, or the default one.
func property(run *build.Run) com.Property {
	envs := build.Actions[*build.ToolEnvAction](run)
	if len(envs) == 0 {
		return com.DefaultProperty()
	}
	return com.Property{ProgID: envs[len(envs)-1].ProgID}.WithDefaults()
}
