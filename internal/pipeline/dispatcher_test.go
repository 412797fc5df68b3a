package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newhook/ecuci/internal/build"
	"github.com/newhook/ecuci/internal/console"
	"github.com/newhook/ecuci/internal/process"
	"github.com/newhook/ecuci/internal/testutil"
	"github.com/newhook/ecuci/internal/toolclient"
)

type fixture struct {
	d        *Dispatcher
	step     *build.Step
	out      *bytes.Buffer
	com      *testutil.FakeCOM
	launcher *testutil.LauncherMock
	home     string
	progID   string

	mu    sync.Mutex
	procs []process.Process
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	workspace := filepath.Join(root, "workspace")
	require.NoError(t, os.MkdirAll(workspace, 0o755))
	home := filepath.Join(root, "ECU-TEST")
	require.NoError(t, os.MkdirAll(home, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, toolclient.TSExecutable), nil, 0o755))

	f := &fixture{
		out:    &bytes.Buffer{},
		com:    &testutil.FakeCOM{Version: "2024.1.0", QuitResult: true, Started: true},
		home:   home,
		progID: "ECU-TEST.Application." + t.Name(),
	}
	f.launcher = &testutil.LauncherMock{
		IsUnixFunc: func() bool { return false },
		LaunchFunc: func(ctx context.Context, args []string) (build.Proc, error) {
			f.start(args[0])
			return &testutil.ProcMock{IsAliveFunc: func() bool { return true }, PidFunc: func() int { return 100 }}, nil
		},
	}
	log := console.New(f.out, console.WithDebug(false))
	f.step = &build.Step{
		Run:       build.NewRun(filepath.Join(root, "project"), 1, workspace, build.EnvVars{}),
		Workspace: workspace,
		Launcher:  f.launcher,
		Channel:   build.LocalChannel{},
		Console:   log,
	}
	f.d = NewDispatcher(toolclient.InstallationList{{Name: "ET2024", Home: home, ProgID: f.progID}}, nil)
	f.d.Host = &toolclient.Host{
		Launcher: f.launcher,
		Channel:  build.LocalChannel{},
		Dialer:   f.com,
		Processes: &process.Checker{
			Lister: &testutil.ProcessListerMock{
				GetProcessListFunc: func(ctx context.Context) ([]process.Process, error) {
					f.mu.Lock()
					defer f.mu.Unlock()
					return append([]process.Process(nil), f.procs...), nil
				},
			},
			Killer: &testutil.ProcessKillerMock{
				KillFunc: func(ctx context.Context, pid int) error {
					f.mu.Lock()
					defer f.mu.Unlock()
					kept := f.procs[:0]
					for _, p := range f.procs {
						if p.PID != pid {
							kept = append(kept, p)
						}
					}
					f.procs = kept
					return nil
				},
			},
		},
		Console: log,
	}
	return f
}

func (f *fixture) start(cmd string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.procs = append(f.procs, process.Process{PID: 100 + len(f.procs), PPID: 1, CommandLine: cmd})
}

func (f *fixture) running() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.procs)
}

func TestSteps(t *testing.T) {
	assert.Equal(t, []string{
		"checkETConfigStarted", "generateCache", "publishETLogs", "publishGenerators",
		"restartET", "startET", "startTS", "stopET", "stopTS",
	}, Steps())
}

func TestCallUnknownStep(t *testing.T) {
	f := newFixture(t)
	_, err := f.d.Call(context.Background(), f.step, "startFoo", nil)
	assert.EqualError(t, err, "unknown pipeline step: startFoo")
}

func TestCallRejectsInvalidArgs(t *testing.T) {
	tests := []struct {
		name string
		step string
		args map[string]any
	}{
		{"unknown argument", StepStartET, map[string]any{"toolName": "ET2024", "bogus": 1}},
		{"wrong type", StepStartET, map[string]any{"toolName": "ET2024", "debug": "sometimes"}},
		{"nested wrong type", StepGenerateCache, map[string]any{"caches": "ecu.a2l"}},
		{"unknown cache type", StepGenerateCache, map[string]any{"caches": []map[string]any{{"type": "XYZ", "filePath": "a"}}}},
		{"unknown publisher flag", StepPublishETLogs, map[string]any{"keepEverything": true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.d.Call(context.Background(), f.step, tt.step, tt.args)
			assert.ErrorContains(t, err, "invalid arguments for "+tt.step)
			assert.Empty(t, f.launcher.LaunchCalls())
			assert.Equal(t, build.Success, f.step.Run.Result())
		})
	}
}

func TestCallStartAndStopET(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.d.Call(ctx, f.step, StepStartET, map[string]any{"toolName": "ET2024", "timeout": 60})
	require.NoError(t, err)
	require.Len(t, f.launcher.LaunchCalls(), 1)
	action, ok := build.Action[*build.ToolEnvAction](f.step.Run)
	require.True(t, ok)
	assert.Equal(t, 60, action.Timeout)
	assert.Equal(t, f.progID, action.ProgID)

	_, err = f.d.Call(ctx, f.step, StepStopET, map[string]any{"toolName": "ET2024"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.com.QuitCalls)
	assert.Equal(t, build.Success, f.step.Run.Result())
}

func TestCallRestartET(t *testing.T) {
	f := newFixture(t)
	f.start(filepath.Join(f.home, "ECU-TEST.exe"))

	_, err := f.d.Call(context.Background(), f.step, StepRestartET, map[string]any{"toolName": "ET2024", "stopTimeout": "10"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.com.QuitCalls)
	assert.Contains(t, f.com.ConnectWaits, 10)
	assert.Len(t, f.launcher.LaunchCalls(), 1)
	assert.Equal(t, 1, f.running())
}

func TestCallUnknownInstallation(t *testing.T) {
	f := newFixture(t)
	_, err := f.d.Call(context.Background(), f.step, StepStartTS, map[string]any{"toolName": "ET1999"})
	require.ErrorIs(t, err, build.ErrPlugin)
	assert.Contains(t, f.out.String(), "The selected ECU-TEST installation is not configured for this node!")
	assert.Equal(t, build.Failure, f.step.Run.Result())
}

func TestCallTS(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.d.Call(ctx, f.step, StepStartTS, map[string]any{"toolName": "ET2024", "tcpPort": 5020})
	require.NoError(t, err)
	calls := f.launcher.LaunchCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{filepath.Join(f.home, toolclient.TSExecutable), "--port", "5020"}, calls[0].Args)

	_, err = f.d.Call(ctx, f.step, StepStopTS, nil)
	require.NoError(t, err)
	assert.Zero(t, f.running())
}

func TestCallCheckETConfigStarted(t *testing.T) {
	f := newFixture(t)
	f.start(filepath.Join(f.home, "ECU-TEST.exe"))

	v, err := f.d.Call(context.Background(), f.step, StepCheckETConfigStarted, map[string]any{"toolName": "ET2024"})
	require.NoError(t, err)
	assert.Equal(t, true, v)
	for _, p := range f.com.Props {
		assert.Equal(t, f.progID, p.ProgID)
	}
}

func TestCallPublishETLogsMissing(t *testing.T) {
	f := newFixture(t)

	_, err := f.d.Call(context.Background(), f.step, StepPublishETLogs, map[string]any{"allowMissing": true})
	require.NoError(t, err)
	assert.Equal(t, build.Success, f.step.Run.Result())
}
