package toolclient

import (
	"context"
	"strings"

	"github.com/newhook/ecuci/internal/build"
	"github.com/newhook/ecuci/internal/com"
	"github.com/newhook/ecuci/internal/logging"
	"github.com/newhook/ecuci/internal/process"
	"github.com/newhook/ecuci/internal/toolversion"
)

// Versions gating optional features.
var (
	configReadVersion   = toolversion.New(7, 0, 0)
	configStatusVersion = toolversion.New(8, 0, 0)
)

// ETConfig describes an ecu.test instance to control.
type ETConfig struct {
	ToolName     string
	InstallPath  string
	WorkspaceDir string
	SettingsDir  string
	Timeout      int
	Debug        bool
	Property     com.Property
}

// ETClient controls ecu.test.
type ETClient struct {
	base
	workspaceDir string
	settingsDir  string
	debug        bool
	prop         com.Property
	host64       bool

	version string
	lastTbc string
	lastTcf string
}

// NewETClient creates a client for cfg.
func NewETClient(cfg ETConfig, host Host) *ETClient {
	return &ETClient{
		base: base{
			toolName:    strings.TrimSpace(cfg.ToolName),
			installPath: cfg.InstallPath,
			timeout:     cfg.Timeout,
			host:        host,
		},
		workspaceDir: cfg.WorkspaceDir,
		settingsDir:  cfg.SettingsDir,
		debug:        cfg.Debug,
		prop:         cfg.Property.WithDefaults(),
		host64:       is64BitHost(),
	}
}

// Version returns the version negotiated by Start.
func (c *ETClient) Version() string { return c.version }

// LastTbc returns the test bench configuration loaded when the tool started.
func (c *ETClient) LastTbc() string { return c.lastTbc }

// LastTcf returns the test configuration loaded when the tool started.
func (c *ETClient) LastTcf() string { return c.lastTcf }

// WorkspaceDir returns the workspace directory passed to the tool.
func (c *ETClient) WorkspaceDir() string { return c.workspaceDir }

// SettingsDir returns the settings directory passed to the tool.
func (c *ETClient) SettingsDir() string { return c.settingsDir }

// Property returns the COM property used by this client.
func (c *ETClient) Property() com.Property { return c.prop }

// CmdLine builds the ecu.test command line.
func (c *ETClient) CmdLine() []string {
	args := []string{c.installPath}
	if c.workspaceDir != "" {
		args = append(args, "--workspaceDir", c.workspaceDir)
	}
	if c.settingsDir != "" {
		args = append(args, "-s", c.settingsDir)
	}
	if c.debug {
		args = append(args, "-d")
	}
	// Create the full workspace structure automatically.
	return append(args, "--startupAutomated=CreateDirs")
}

// CheckProcesses reports running ecu.test processes, killing them if requested.
func (c *ETClient) CheckProcesses(ctx context.Context, kill bool) ([]string, error) {
	return c.checkProcesses(ctx, process.ETProcesses, kill)
}

// Start launches ecu.test, connects to it and checks the version.
func (c *ETClient) Start(ctx context.Context, checkProcesses bool) (bool, error) {
	log := c.host.Console
	log.Info("Starting %s...", c.toolName)
	c.state = Starting
	ok, err := c.start(ctx, checkProcesses)
	if !ok || err != nil {
		if c.state == Starting {
			c.state = Idle
		}
		return false, err
	}
	c.state = Running
	log.Info("%s started successfully.", c.toolName)
	return true, nil
}

func (c *ETClient) start(ctx context.Context, checkProcesses bool) (bool, error) {
	log := c.host.Console

	if checkProcesses {
		found, err := c.CheckProcesses(ctx, true)
		if err != nil {
			return false, err
		}
		if len(found) > 0 {
			log.Info("Terminated running processes: %v", found)
		}
	}

	if c.installPath == "" {
		log.Error("ECU-TEST executable could not be found!")
		return false, nil
	}
	if !checkArchitecture(c.installPath, c.host64) {
		log.Error("The configured ECU-TEST executable is not compatible with this 32-bit agent! " +
			"Please use a 64-bit agent which supports 64-bit ECU-TEST installation!")
		return false, nil
	}
	if ok, err := c.launchProcess(ctx, c.CmdLine()); !ok || err != nil {
		return false, err
	}

	if err := c.host.Dialer.Available(); err != nil {
		log.Error("Could not load COM library!")
		logging.Warn("COM library unavailable", "error", err)
		return false, nil
	}
	c.host.Versions.forget(c.prop)
	version, err := build.Call(ctx, c.host.Channel, func(ctx context.Context) (string, error) {
		client, err := c.host.Dialer.Dial(ctx, c.prop, c.timeout)
		if err != nil {
			log.ComException(err)
			return "", nil
		}
		defer client.Close()
		running, err := client.IsApplicationRunning()
		if err != nil {
			log.ComException(err)
			return "", nil
		}
		if !running {
			return "", nil
		}
		v, err := client.GetVersion()
		if err != nil {
			log.ComException(err)
			return "", nil
		}
		return v, nil
	})
	if err != nil {
		return false, err
	}
	if version == "" {
		log.Error("Could not determine ECU-TEST version!")
		return false, nil
	}
	c.version = version
	c.host.Versions.remember(c.prop, version)
	log.Debug("COM ProgID: %s", c.prop.ProgID)
	log.Debug("COM version: %s", version)

	parsed, err := toolversion.Parse(version)
	if err != nil {
		log.Error("Could not parse ECU-TEST version %s: %v", version, err)
		return false, nil
	}
	if parsed.CompareWithoutMicro(ETMaxVersion) > 0 {
		log.Warn("The configured ECU-TEST version %s might be incompatible with this plugin. "+
			"Currently supported versions: %s up to %s", version, ETMinVersion.MinorString(), ETMaxVersion.MinorString())
	} else if parsed.Compare(ETMinVersion) < 0 {
		log.Error("The configured ECU-TEST version %s is not compatible with this plugin. "+
			"Please use at least ECU-TEST %s!", version, ETMinVersion.MicroString())
		if _, err := c.Stop(ctx, checkProcesses); err != nil {
			return false, err
		}
		return false, nil
	}

	if parsed.CompareWithoutMicro(configReadVersion) >= 0 {
		if c.lastTbc, err = c.readConfiguration(ctx, com.Client.CurrentTestBenchConfigurationFile); err != nil {
			return false, err
		}
		if c.lastTcf, err = c.readConfiguration(ctx, com.Client.CurrentTestConfigurationFile); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (c *ETClient) readConfiguration(ctx context.Context, get func(com.Client) (string, error)) (string, error) {
	return build.Call(ctx, c.host.Channel, func(ctx context.Context) (string, error) {
		client, err := c.host.Dialer.Dial(ctx, c.prop, 0)
		if err != nil {
			c.host.Console.Error("-> Caught COM exception: %v", err)
			return "", nil
		}
		defer client.Close()
		path, err := get(client)
		if err != nil {
			c.host.Console.Error("-> Caught COM exception: %v", err)
			return "", nil
		}
		return strings.TrimSpace(path), nil
	})
}

// Stop closes ecu.test through COM. With checkProcesses it succeeds
// immediately when no instance runs and kills leftovers afterwards.
func (c *ETClient) Stop(ctx context.Context, checkProcesses bool) (bool, error) {
	log := c.host.Console
	log.Info("Stopping %s...", c.toolName)
	c.state = Stopping
	defer func() { c.state = Idle }()

	if checkProcesses {
		found, err := c.CheckProcesses(ctx, false)
		if err != nil {
			return false, err
		}
		if len(found) == 0 {
			log.Warn("No running ECU-TEST instance found!")
			return true, nil
		}
	}

	if err := c.host.Dialer.Available(); err != nil {
		log.Error("Could not load COM library!")
		return false, nil
	}
	c.host.Versions.forget(c.prop)
	terminated, err := build.Call(ctx, c.host.Channel, func(ctx context.Context) (bool, error) {
		defer func() {
			if !checkProcesses {
				return
			}
			found, err := c.host.Processes.Check(ctx, process.ETProcesses, true)
			if err != nil {
				log.Warn("-> Process check failed: %v", err)
			}
			if len(found) > 0 {
				log.Info("Terminated running processes: %v", found)
			}
		}()
		return c.quit(ctx), nil
	})
	if err != nil {
		return false, err
	}
	if terminated {
		log.Info("%s stopped successfully.", c.toolName)
	}
	return terminated, nil
}

// quit asks the application to quit, falling back to exit.
func (c *ETClient) quit(ctx context.Context) bool {
	log := c.host.Console
	client, err := c.host.Dialer.Dial(ctx, c.prop, c.timeout)
	if err != nil {
		log.ComException(err)
		return false
	}
	defer client.Close()

	running, err := client.IsApplicationRunning()
	if err != nil {
		log.ComException(err)
		return false
	}
	if !running {
		log.Error("ECU-TEST COM instance is not ready to use!")
		return false
	}
	ok, err := client.Quit()
	if err != nil {
		log.ComException(err)
		return false
	}
	if ok {
		return true
	}
	ok, err = client.Exit()
	if err != nil {
		log.ComException(err)
		return false
	}
	return ok
}

// Restart stops and starts ecu.test. Start is skipped when Stop fails.
func (c *ETClient) Restart(ctx context.Context, checkProcesses bool) (bool, error) {
	ok, err := c.Stop(ctx, checkProcesses)
	if !ok || err != nil {
		return false, err
	}
	return c.Start(ctx, checkProcesses)
}

// UpdateUserLibs reloads all user libraries of the running instance.
func (c *ETClient) UpdateUserLibs(ctx context.Context) (bool, error) {
	c.host.Console.Info("Updating user libraries...")
	return build.Call(ctx, c.host.Channel, func(ctx context.Context) (bool, error) {
		client, err := c.host.Dialer.Dial(ctx, c.prop, 0)
		if err != nil {
			c.host.Console.Error("-> Caught COM exception: %v", err)
			return false, nil
		}
		defer client.Close()
		ok, err := client.UpdateUserLibraries()
		if err != nil {
			c.host.Console.Error("-> Caught COM exception: %v", err)
			return false, nil
		}
		return ok, nil
	})
}

// CheckConfigStatus reports whether the loaded configurations are started.
// Requires ecu.test 8.0 or newer.
func (c *ETClient) CheckConfigStatus(ctx context.Context) (bool, error) {
	version, err := probeVersion(ctx, c.host, c.prop)
	if err != nil {
		if ctx.Err() != nil {
			return false, err
		}
		c.host.Console.Error("-> Caught COM exception: %v", err)
		return false, nil
	}
	parsed, err := toolversion.Parse(version)
	if err != nil || parsed.CompareWithoutMicro(configStatusVersion) < 0 {
		c.host.Console.Warn("-> Checking configuration status is not supported. Please use at least ECU-TEST 8.0!")
		return false, nil
	}
	return build.Call(ctx, c.host.Channel, func(ctx context.Context) (bool, error) {
		client, err := c.host.Dialer.Dial(ctx, c.prop, 0)
		if err != nil {
			c.host.Console.Error("-> Caught COM exception: %v", err)
			return false, nil
		}
		defer client.Close()
		started, err := client.IsStarted()
		if err != nil {
			c.host.Console.Error("-> Caught COM exception: %v", err)
			return false, nil
		}
		return started, nil
	})
}
