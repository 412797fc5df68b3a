package toolclient

import (
	"context"
	"fmt"

	"github.com/newhook/ecuci/internal/build"
	"github.com/newhook/ecuci/internal/com"
	"github.com/newhook/ecuci/internal/process"
	"github.com/newhook/ecuci/internal/toolversion"
)

// CacheMinVersion is the first ecu.test release exposing the cache API.
var CacheMinVersion = toolversion.New(2021, 1, 0)

// CacheClient fills one typed cache of a running ecu.test instance.
type CacheClient struct {
	Type      com.CacheType
	FilePath  string
	DBChannel string
	Clear     bool

	host Host
	prop com.Property
}

// NewCacheClient creates a cache client for the instance behind prop.
func NewCacheClient(t com.CacheType, filePath, dbChannel string, clear bool, prop com.Property, host Host) *CacheClient {
	return &CacheClient{
		Type:      t,
		FilePath:  filePath,
		DBChannel: dbChannel,
		Clear:     clear,
		host:      host,
		prop:      prop.WithDefaults(),
	}
}

// IsCacheCompatible requires a running instance, a loadable COM library and a
// version with the cache module.
func IsCacheCompatible(ctx context.Context, prop com.Property, host Host) (bool, error) {
	log := host.Console
	found, err := build.Call(ctx, host.Channel, func(ctx context.Context) ([]string, error) {
		found, err := host.Processes.Check(ctx, process.ETProcesses, false)
		if err != nil {
			log.Warn("-> Process check failed: %v", err)
		}
		return found, nil
	})
	if err != nil {
		return false, err
	}
	if len(found) == 0 {
		log.Error("No running ECU-TEST instance found, please configure one at first!")
		return false, nil
	}
	if err := host.Dialer.Available(); err != nil {
		log.Error("Could not load COM library!")
		return false, nil
	}

	return build.Call(ctx, host.Channel, func(ctx context.Context) (bool, error) {
		version, err := probeVersion(ctx, Host{Channel: build.LocalChannel{}, Dialer: host.Dialer, Versions: host.Versions}, prop)
		if err == nil {
			var parsed toolversion.Version
			if parsed, err = toolversion.Parse(version); err == nil && parsed.Compare(CacheMinVersion) < 0 {
				log.Error("The configured ECU-TEST version %s does not support the cache module. "+
					"Please use at least ECU-TEST %s!", version, CacheMinVersion.MicroString())
				return false, nil
			}
		}
		if err == nil {
			err = withClient(ctx, host.Dialer, prop, func(client com.Client) error {
				_, err := client.Caches()
				return err
			})
		}
		if err != nil {
			log.Error("The cache module is not available in running ECU-TEST instance! "+
				"Please use at least ECU-TEST %s!", CacheMinVersion.MicroString())
			log.ComException(err)
			return false, nil
		}
		return true, nil
	})
}

// GenerateCache clears the cache if requested, inserts the file and logs the
// resulting cache content. Any automation error fails the whole operation.
func (c *CacheClient) GenerateCache(ctx context.Context) error {
	log := c.host.Console
	log.Info("Generating %s cache...", c.Type)

	ok, err := build.Call(ctx, c.host.Channel, func(ctx context.Context) (bool, error) {
		err := withClient(ctx, c.host.Dialer, c.prop, func(client com.Client) error {
			caches, err := client.Caches()
			if err != nil {
				return err
			}
			cache, err := caches.Cache(c.Type)
			if err != nil {
				return err
			}
			if c.Clear {
				log.Info("- Removing all %s cache files...", c.Type)
				if err := cache.Clear(true); err != nil {
					return err
				}
			}
			log.Info("- Inserting %s to %s cache...", c.FilePath, c.Type)
			if err := cache.Insert(c.FilePath, c.DBChannel); err != nil {
				return err
			}
			files, err := cache.Files()
			if err != nil {
				return err
			}
			log.Info("-> Available %s cache files: %v", c.Type, files)
			return nil
		})
		if err != nil {
			log.ComException(err)
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return err
	}
	if !ok {
		return build.NewPluginError("Generating %s cache failed!", c.Type)
	}
	log.Info("%s cache generated successfully.", c.Type)
	return nil
}

func withClient(ctx context.Context, dialer com.Dialer, prop com.Property, fn func(com.Client) error) error {
	client, err := dialer.Dial(ctx, prop, 0)
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

// String describes the cache request for logs.
func (c *CacheClient) String() string {
	return fmt.Sprintf("%s cache %s", c.Type, c.FilePath)
}
