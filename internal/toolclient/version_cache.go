package toolclient

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/newhook/ecuci/internal/build"
	"github.com/newhook/ecuci/internal/com"
)

// versionTTL bounds how long a probed COM version is reused. Starting or
// stopping a tool invalidates the entry for its prog id.
const versionTTL = 30 * time.Second

// VersionCache remembers the version reported by a COM server per prog id.
// A nil *VersionCache caches nothing.
type VersionCache struct {
	c *gocache.Cache
}

func NewVersionCache() *VersionCache {
	return &VersionCache{c: gocache.New(versionTTL, 2*versionTTL)}
}

func (v *VersionCache) get(prop com.Property) (string, bool) {
	if v == nil {
		return "", false
	}
	s, ok := v.c.Get(prop.WithDefaults().ProgID)
	if !ok {
		return "", false
	}
	return s.(string), true
}

func (v *VersionCache) remember(prop com.Property, version string) {
	if v != nil && version != "" {
		v.c.SetDefault(prop.WithDefaults().ProgID, version)
	}
}

func (v *VersionCache) forget(prop com.Property) {
	if v != nil {
		v.c.Delete(prop.WithDefaults().ProgID)
	}
}

// probeVersion asks the running instance for its version, reusing a recent
// answer of host.Versions for the same prog id.
func probeVersion(ctx context.Context, host Host, prop com.Property) (string, error) {
	prop = prop.WithDefaults()
	if v, ok := host.Versions.get(prop); ok {
		return v, nil
	}
	version, err := build.Call(ctx, host.Channel, func(ctx context.Context) (string, error) {
		client, err := host.Dialer.Dial(ctx, prop, com.DefaultConnectionTimeout)
		if err != nil {
			return "", err
		}
		defer client.Close()
		return client.GetVersion()
	})
	if err != nil {
		return "", err
	}
	host.Versions.remember(prop, version)
	return version, nil
}
