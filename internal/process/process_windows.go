//go:build windows

package process

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// psListScript prints one "pid<TAB>ppid<TAB>commandline" line per process.
const psListScript = "Get-CimInstance Win32_Process | ForEach-Object { \"$($_.ProcessId)`t$($_.ParentProcessId)`t$($_.CommandLine)\" }"

type systemProcessLister struct{}

// GetProcessList queries Win32_Process through PowerShell.
func (systemProcessLister) GetProcessList(ctx context.Context) ([]Process, error) {
	cmd := exec.CommandContext(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", psListScript)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to execute process list command: %w", err)
	}
	return parseCIMOutput(string(output)), nil
}

func parseCIMOutput(output string) []Process {
	var procs []Process
	for _, line := range strings.Split(output, "\n") {
		parts := strings.SplitN(strings.TrimRight(line, "\r"), "\t", 3)
		if len(parts) != 3 {
			continue
		}
		pid, err1 := strconv.Atoi(parts[0])
		ppid, err2 := strconv.Atoi(parts[1])
		// System pseudo-processes have no readable command line.
		if err1 != nil || err2 != nil || parts[2] == "" {
			continue
		}
		procs = append(procs, Process{PID: pid, PPID: ppid, CommandLine: parts[2]})
	}
	return procs
}

type systemProcessKiller struct{}

// Kill force-terminates pid with taskkill.
func (systemProcessKiller) Kill(ctx context.Context, pid int) error {
	cmd := exec.CommandContext(ctx, "taskkill", "/F", "/PID", strconv.Itoa(pid))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		// Exit code 128: the process is already gone.
		if cmd.ProcessState != nil && cmd.ProcessState.ExitCode() == 128 {
			return nil
		}
		return fmt.Errorf("taskkill failed: %w, stderr: %s", err, stderr.String())
	}
	return nil
}
