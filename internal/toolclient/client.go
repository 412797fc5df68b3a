// Package toolclient starts, stops and talks to ecu.test and the Tool-Server
// on the build agent.
//
// A client is created per build step invocation. Start, Stop and Restart
// return false for failures that were already reported on the build console
// and an error only when the step was interrupted or the host channel failed.
package toolclient

import (
	"context"
	"fmt"
	"time"

	"github.com/newhook/ecuci/internal/build"
	"github.com/newhook/ecuci/internal/com"
	"github.com/newhook/ecuci/internal/console"
	"github.com/newhook/ecuci/internal/logging"
	"github.com/newhook/ecuci/internal/process"
	cosignal "github.com/newhook/ecuci/internal/signal"
	"github.com/newhook/ecuci/internal/toolversion"
)

// State is the lifecycle state of a client.
type State int

const (
	Idle State = iota
	Starting
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Starting:
		return "STARTING"
	case Running:
		return "RUNNING"
	case Stopping:
		return "STOPPING"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Supported ecu.test versions. Newer minor releases only produce a warning.
var (
	ETMinVersion = toolversion.New(6, 3, 0)
	ETMaxVersion = toolversion.New(2024, 4, 0)
)

// pollInterval is the liveness polling granularity.
var pollInterval = time.Second

// Host is what a client needs from the build agent.
type Host struct {
	Launcher  build.Launcher
	Channel   build.Channel
	Dialer    com.Dialer
	Processes *process.Checker
	Console   *console.Logger
	// Versions is shared by the clients built from this Host.
	Versions  *VersionCache
}

// NewHost builds a Host from a build step using the system process checker
// and the platform COM dialer.
func NewHost(step *build.Step) Host {
	return Host{
		Launcher:  step.Launcher,
		Channel:   step.Channel,
		Dialer:    com.NewDialer(),
		Processes: process.NewChecker(),
		Console:   step.Console,
		Versions:  NewVersionCache(),
	}
}

// base holds what ecu.test and Tool-Server clients share.
type base struct {
	toolName    string
	installPath string
	timeout     int
	host        Host
	state       State
}

// ToolName returns the configured installation name.
func (b *base) ToolName() string { return b.toolName }

// InstallPath returns the executable path.
func (b *base) InstallPath() string { return b.installPath }

// Timeout returns the start/stop timeout in seconds; 0 means unbounded.
func (b *base) Timeout() int { return b.timeout }

// State returns the lifecycle state.
func (b *base) State() State { return b.state }

// checkProcesses looks for running instances of names and kills them if requested.
func (b *base) checkProcesses(ctx context.Context, names []string, kill bool) ([]string, error) {
	return build.Call(ctx, b.host.Channel, func(ctx context.Context) ([]string, error) {
		found, err := b.host.Processes.Check(ctx, names, kill)
		if err != nil {
			// Killing is best effort; matches are still reported.
			logging.Warn("process check failed", "tool", b.toolName, "error", err)
			b.host.Console.Warn("-> Process check failed: %v", err)
		}
		return found, nil
	})
}

// launchProcess starts args and waits until the process reports alive.
// The deadline is computed once; a timeout of 0 waits forever.
func (b *base) launchProcess(ctx context.Context, args []string) (bool, error) {
	b.host.Console.Info("%s", build.FormatArgs(args))

	proc, err := b.host.Launcher.Launch(ctx, args)
	if err != nil {
		b.host.Console.Error("-> Command line execution failed: %v", err)
		return false, nil
	}

	deadline := time.Now().Add(time.Duration(b.timeout) * time.Second)
	for b.timeout <= 0 || time.Now().Before(deadline) {
		if proc.IsAlive() {
			logging.Debug("tool process alive", "tool", b.toolName, "pid", proc.Pid())
			return true, nil
		}
		if err := cosignal.Sleep(ctx, pollInterval); err != nil {
			return false, err
		}
	}
	b.host.Console.Error("-> Timeout of %d seconds reached!", b.timeout)
	return false, nil
}
