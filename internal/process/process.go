// Package process provides cross-platform process detection and termination
// for the tool executables controlled by build steps.
package process

//go:generate moq -stub -out ../testutil/process_mock.go -pkg testutil . ProcessLister ProcessKiller

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Executable names of ecu.test, including the COM server and the 8.3 short name.
var ETProcesses = []string{"ECU-TEST.exe", "ecu.test.exe", "ECU-TEST_COM.exe", "ECU-TE~1.EXE"}

// Executable names of the Tool-Server.
var TSProcesses = []string{"Tool-Server.exe"}

// Process is a running process as seen by the lister.
type Process struct {
	PID         int
	PPID        int
	CommandLine string
}

// ProcessLister provides an interface for listing processes.
type ProcessLister interface {
	GetProcessList(ctx context.Context) ([]Process, error)
}

// ProcessKiller provides an interface for killing processes.
type ProcessKiller interface {
	// Kill force-terminates a single process.
	Kill(ctx context.Context, pid int) error
}

// defaultLister is the default implementation using system commands.
var defaultLister ProcessLister = &systemProcessLister{}

// defaultKiller is the default implementation using system commands.
var defaultKiller ProcessKiller = &systemProcessKiller{}

// Checker finds and optionally terminates processes by executable name.
type Checker struct {
	Lister ProcessLister
	Killer ProcessKiller
}

// NewChecker returns a Checker backed by the operating system.
func NewChecker() *Checker {
	return &Checker{Lister: defaultLister, Killer: defaultKiller}
}

// Check looks for processes whose command line contains one of names, ignoring
// case. It returns the matched names, once per matching process. When kill is
// set every match is terminated together with its child processes.
func (c *Checker) Check(ctx context.Context, names []string, kill bool) ([]string, error) {
	procs, err := c.Lister.GetProcessList(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get process list: %w", err)
	}

	var found []string
	var errs []error
	for _, p := range procs {
		cmdLine := strings.ToLower(p.CommandLine)
		for _, name := range names {
			if name == "" || !strings.Contains(cmdLine, strings.ToLower(name)) {
				continue
			}
			found = append(found, name)
			if kill {
				if err := c.killTree(ctx, procs, p.PID); err != nil {
					errs = append(errs, err)
				}
			}
		}
	}
	return found, errors.Join(errs...)
}

// IsRunning reports whether any process matches one of names.
func (c *Checker) IsRunning(ctx context.Context, names []string) (bool, error) {
	found, err := c.Check(ctx, names, false)
	return len(found) > 0, err
}

// killTree kills the descendants of pid before pid itself.
func (c *Checker) killTree(ctx context.Context, procs []Process, pid int) error {
	var errs []error
	for _, child := range procs {
		if child.PPID == pid && child.PID != pid {
			if err := c.killTree(ctx, procs, child.PID); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if err := c.Killer.Kill(ctx, pid); err != nil {
		errs = append(errs, fmt.Errorf("failed to kill process %d: %w", pid, err))
	}
	return errors.Join(errs...)
}
