package toolclient

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/newhook/ecuci/internal/build"
	"github.com/newhook/ecuci/internal/process"
	cosignal "github.com/newhook/ecuci/internal/signal"
)

// DefaultTCPPort is the Tool-Server port used when none is configured.
const DefaultTCPPort = 5017

// TSConfig describes a Tool-Server instance to control.
type TSConfig struct {
	ToolName        string
	InstallPath     string
	Timeout         int
	ToolLibsIniPath string
	TCPPort         int
}

// TSClient controls the Tool-Server.
type TSClient struct {
	base
	toolLibsIni string
	tcpPort     int
}

// NewTSClient creates a client for cfg.
func NewTSClient(cfg TSConfig, host Host) *TSClient {
	port := cfg.TCPPort
	if port <= 0 {
		port = DefaultTCPPort
	}
	return &TSClient{
		base: base{
			toolName:    strings.TrimSpace(cfg.ToolName),
			installPath: cfg.InstallPath,
			timeout:     cfg.Timeout,
			host:        host,
		},
		toolLibsIni: cfg.ToolLibsIniPath,
		tcpPort:     port,
	}
}

// TCPPort returns the port the Tool-Server listens on.
func (c *TSClient) TCPPort() int { return c.tcpPort }

// ToolLibsIniPath returns the ToolLibs.ini override, empty if unset.
func (c *TSClient) ToolLibsIniPath() string { return c.toolLibsIni }

// CmdLine builds the Tool-Server command line.
func (c *TSClient) CmdLine() []string {
	args := []string{c.installPath, "--port", strconv.Itoa(c.tcpPort)}
	if c.toolLibsIni != "" {
		args = append(args, "--toollibsini", c.toolLibsIni)
	}
	return args
}

// CheckProcesses reports running Tool-Server processes, killing them if requested.
func (c *TSClient) CheckProcesses(ctx context.Context, kill bool) ([]string, error) {
	return c.checkProcesses(ctx, process.TSProcesses, kill)
}

// Start launches the Tool-Server and waits until it is alive.
func (c *TSClient) Start(ctx context.Context, checkProcesses bool) (bool, error) {
	log := c.host.Console
	log.Info("Starting Tool-Server...")
	c.state = Starting

	if checkProcesses {
		found, err := c.CheckProcesses(ctx, true)
		if err != nil {
			c.state = Idle
			return false, err
		}
		if len(found) > 0 {
			log.Info("Terminated running processes: %v", found)
		}
	}

	if c.installPath == "" {
		log.Error("Tool-Server executable could not be found!")
		c.state = Idle
		return false, nil
	}
	ok, err := c.launchProcess(ctx, c.CmdLine())
	if !ok || err != nil {
		c.state = Idle
		return false, err
	}
	c.state = Running
	log.Info("Tool-Server started successfully.")
	return true, nil
}

// Stop kills the Tool-Server and waits until no process is left.
// It succeeds immediately when no instance runs.
func (c *TSClient) Stop(ctx context.Context, checkProcesses bool) (bool, error) {
	log := c.host.Console
	log.Info("Stopping Tool-Server...")
	c.state = Stopping
	defer func() { c.state = Idle }()

	terminated, err := build.Call(ctx, c.host.Channel, func(ctx context.Context) (bool, error) {
		found, err := c.host.Processes.Check(ctx, process.TSProcesses, false)
		if err != nil {
			log.Warn("-> Process check failed: %v", err)
		}
		if len(found) == 0 {
			log.Warn("No running Tool-Server instance found!")
			return true, nil
		}

		deadline := time.Now().Add(time.Duration(c.timeout) * time.Second)
		for c.timeout <= 0 || time.Now().Before(deadline) {
			found, err := c.host.Processes.Check(ctx, process.TSProcesses, true)
			if err != nil {
				log.Warn("-> Process check failed: %v", err)
			}
			if len(found) == 0 {
				return true, nil
			}
			if err := cosignal.Sleep(ctx, pollInterval); err != nil {
				return false, err
			}
		}
		log.Error("-> Timeout of %d seconds reached!", c.timeout)
		return false, nil
	})
	if err != nil {
		return false, err
	}
	if terminated {
		log.Info("Tool-Server stopped successfully.")
	}
	return terminated, nil
}

// Restart stops and starts the Tool-Server. Start is skipped when Stop fails.
func (c *TSClient) Restart(ctx context.Context, checkProcesses bool) (bool, error) {
	ok, err := c.Stop(ctx, checkProcesses)
	if !ok || err != nil {
		return false, err
	}
	return c.Start(ctx, checkProcesses)
}
