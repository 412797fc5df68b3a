package publisher

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/newhook/ecuci/internal/build"
	"github.com/newhook/ecuci/internal/console"
	"github.com/newhook/ecuci/internal/process"
	"github.com/newhook/ecuci/internal/testutil"
	"github.com/newhook/ecuci/internal/toolclient"
)

const (
	warnLog  = "2023-01-01 10:00:00 1 MainThread WARNING:\n    careful\n"
	errorLog = "2023-01-01 10:00:00 1 MainThread ERROR:\n    broken\n2023-01-01 10:00:01 1 MainThread ERROR:\n    again\n"
	cleanLog = "2023-01-01 10:00:00 1 MainThread INFO:\n    fine\n"
)

type fixture struct {
	step     *build.Step
	out      *bytes.Buffer
	com      *testutil.FakeCOM
	launcher *testutil.LauncherMock
	host     toolclient.Host

	mu    sync.Mutex
	procs []process.Process
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	workspace := filepath.Join(root, "workspace")
	require.NoError(t, os.MkdirAll(workspace, 0o755))

	f := &fixture{
		out: &bytes.Buffer{},
		com: &testutil.FakeCOM{Version: "2024.1.0", QuitResult: true},
	}
	f.launcher = &testutil.LauncherMock{
		IsUnixFunc: func() bool { return false },
		LaunchFunc: func(ctx context.Context, args []string) (build.Proc, error) {
			f.setRunning(true)
			return &testutil.ProcMock{IsAliveFunc: func() bool { return true }, PidFunc: func() int { return 100 }}, nil
		},
	}
	log := console.New(f.out, console.WithDebug(false))
	f.step = &build.Step{
		Run:       build.NewRun(filepath.Join(root, "project"), 1, workspace, build.EnvVars{"TOOL": "ET2024"}),
		Workspace: workspace,
		Launcher:  f.launcher,
		Channel:   build.LocalChannel{},
		Console:   log,
	}
	lister := &testutil.ProcessListerMock{
		GetProcessListFunc: func(ctx context.Context) ([]process.Process, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			return append([]process.Process(nil), f.procs...), nil
		},
	}
	killer := &testutil.ProcessKillerMock{
		KillFunc: func(ctx context.Context, pid int) error {
			f.setRunning(false)
			return nil
		},
	}
	f.host = toolclient.Host{
		Launcher:  f.launcher,
		Channel:   build.LocalChannel{},
		Dialer:    f.com,
		Processes: &process.Checker{Lister: lister, Killer: killer},
		Console:   log,
	}
	return f
}

func (f *fixture) setRunning(running bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.procs = nil
	if running {
		f.procs = []process.Process{{PID: 100, PPID: 1, CommandLine: `C:\ECU-TEST\ECU-TEST.exe`}}
	}
}

// addTestRun records a test run whose report directory holds files.
func (f *fixture) addTestRun(t *testing.T, name string, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(f.step.Workspace, "TestReports", name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for rel, content := range files {
		writeFile(t, filepath.Join(dir, rel), content)
	}
	f.step.Run.AddAction(&build.TestEnvAction{TestName: name + ".pkg", TestFile: name + ".pkg", TestReportDir: dir})
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

type historyStub struct {
	calls [][2]string
}

func (h *historyStub) RemoveProjectReports(ctx context.Context, kind, keep string) error {
	h.calls = append(h.calls, [2]string{kind, keep})
	return nil
}
