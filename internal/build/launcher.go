package build

//go:generate moq -stub -out ../testutil/launcher_mock.go -pkg testutil . Launcher Proc

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/newhook/ecuci/internal/logging"
)

// Launcher starts processes on the build agent.
type Launcher interface {
	// Launch starts the command described by args and returns without waiting for it.
	Launch(ctx context.Context, args []string) (Proc, error)
	// IsUnix reports whether the agent runs a Unix-like operating system.
	IsUnix() bool
}

// Proc is a handle to a launched process.
type Proc interface {
	IsAlive() bool
	Pid() int
}

// ExecLauncher launches processes on the local machine.
type ExecLauncher struct {
	// Dir is the working directory of launched processes.
	Dir string
}

// Launch starts args[0] with the remaining arguments. The process is detached
// from ctx so the tool keeps running after the build step returns.
func (l *ExecLauncher) Launch(_ context.Context, args []string) (Proc, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("empty command line")
	}
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = l.Dir
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", args[0], err)
	}

	p := &execProc{pid: cmd.Process.Pid}
	go func() {
		err := cmd.Wait()
		p.exited.Store(true)
		logging.Debug("launched process exited", "pid", p.pid, "cmd", args[0], "error", err)
	}()
	return p, nil
}

// IsUnix reports whether the local machine is not Windows.
func (l *ExecLauncher) IsUnix() bool {
	return runtime.GOOS != "windows"
}

type execProc struct {
	pid    int
	exited atomic.Bool
}

func (p *execProc) IsAlive() bool { return !p.exited.Load() }
func (p *execProc) Pid() int      { return p.pid }

// FormatArgs renders a command line the way it is shown in the console log.
func FormatArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		if a == "" || strings.ContainsAny(a, " \t\"") {
			quoted[i] = fmt.Sprintf("%q", a)
		} else {
			quoted[i] = a
		}
	}
	return strings.Join(quoted, " ")
}
