//go:build !windows

package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
)

type systemProcessLister struct{}

// GetProcessList uses ps to list all processes with pid, parent pid and full command line.
func (systemProcessLister) GetProcessList(ctx context.Context) ([]Process, error) {
	output, err := exec.CommandContext(ctx, "ps", "-eww", "-o", "pid=,ppid=,args=").Output()
	if err != nil {
		// Some ps implementations do not support -ww.
		output, err = exec.CommandContext(ctx, "ps", "-e", "-o", "pid=,ppid=,args=").Output()
		if err != nil {
			return nil, fmt.Errorf("failed to execute ps command: %w", err)
		}
	}
	return parsePSOutput(string(output)), nil
}

// parsePSOutput parses "pid ppid args..." lines. Malformed lines are skipped.
func parsePSOutput(output string) []Process {
	var procs []Process
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		pid, err1 := strconv.Atoi(fields[0])
		ppid, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil {
			continue
		}
		procs = append(procs, Process{PID: pid, PPID: ppid, CommandLine: strings.Join(fields[2:], " ")})
	}
	return procs
}

type systemProcessKiller struct{}

// Kill sends SIGKILL. A process that already exited is not an error.
func (systemProcessKiller) Kill(_ context.Context, pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := p.Signal(syscall.SIGKILL); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
