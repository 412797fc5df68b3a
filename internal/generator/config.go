// Package generator drives the report generators of ecu.test.
package generator

import (
	"slices"
	"strings"

	"github.com/newhook/ecuci/internal/build"
	"github.com/newhook/ecuci/internal/com"
)

// Names lists the report generators shipped with ecu.test.
var Names = []string{"ATX", "EXCEL", "HTML", "JSON", "OMR", "TestSpec", "TRF-SPLIT", "TXT", "UNIT"}

// Setting is one generator parameter.
type Setting struct {
	Name  string `toml:"name" yaml:"name"`
	Value string `toml:"value" yaml:"value"`
}

// Config selects a generator template and its parameters.
type Config struct {
	Name     string    `toml:"name" yaml:"name"`
	Settings []Setting `toml:"settings" yaml:"settings"`
	// UsePersistedSettings renders with the <template>.xml stored beside each
	// report database instead of Settings.
	UsePersistedSettings bool `toml:"use_persisted_settings" yaml:"usePersistedSettings"`
}

// NewConfig trims name and settings and drops settings without a name.
func NewConfig(name string, settings []Setting, usePersisted bool) Config {
	c := Config{Name: strings.TrimSpace(name), UsePersistedSettings: usePersisted}
	for _, s := range settings {
		s.Name = strings.TrimSpace(s.Name)
		s.Value = strings.TrimSpace(s.Value)
		if s.Name != "" {
			c.Settings = append(c.Settings, s)
		}
	}
	return c
}

// Normalize applies the NewConfig rules to c.
func (c Config) Normalize() Config {
	return NewConfig(c.Name, c.Settings, c.UsePersistedSettings)
}

// Expand resolves environment references in the name and all settings.
func (c Config) Expand(env build.EnvVars) Config {
	settings := make([]Setting, 0, len(c.Settings))
	for _, s := range c.Settings {
		settings = append(settings, Setting{Name: env.Expand(s.Name), Value: env.Expand(s.Value)})
	}
	return NewConfig(env.Expand(c.Name), settings, c.UsePersistedSettings)
}

// IsStandard reports whether c names a generator shipped with ecu.test.
func (c Config) IsStandard() bool {
	return slices.Contains(Names, c.Name)
}

// Params converts the settings into automation parameters, keeping the last
// value of repeated names at the position of their first occurrence.
func (c Config) Params() []com.Param {
	var params []com.Param
	index := map[string]int{}
	for _, s := range c.Settings {
		if i, ok := index[s.Name]; ok {
			params[i].Value = s.Value
			continue
		}
		index[s.Name] = len(params)
		params = append(params, com.Param{Name: s.Name, Value: s.Value})
	}
	return params
}

// RemoveEmpty drops configs without a name, normalizing the rest.
func RemoveEmpty(configs []Config) []Config {
	var out []Config
	for _, c := range configs {
		if c = c.Normalize(); c.Name != "" {
			out = append(out, c)
		}
	}
	return out
}
