package toolclient

import (
	"context"
	"errors"
	"testing"

	"github.com/newhook/ecuci/internal/com"
	"github.com/newhook/ecuci/internal/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestETCmdLine(t *testing.T) {
	tests := []struct {
		name string
		cfg  ETConfig
		want []string
	}{
		{
			name: "minimal",
			cfg:  ETConfig{InstallPath: `C:\ET\ECU-TEST.exe`},
			want: []string{`C:\ET\ECU-TEST.exe`, "--startupAutomated=CreateDirs"},
		},
		{
			name: "all options",
			cfg:  ETConfig{InstallPath: "et.exe", WorkspaceDir: "ws", SettingsDir: "settings", Debug: true},
			want: []string{"et.exe", "--workspaceDir", "ws", "-s", "settings", "-d", "--startupAutomated=CreateDirs"},
		},
		{
			name: "settings only",
			cfg:  ETConfig{InstallPath: "et.exe", SettingsDir: "settings"},
			want: []string{"et.exe", "-s", "settings", "--startupAutomated=CreateDirs"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewETClient(tt.cfg, Host{})
			assert.Equal(t, tt.want, c.CmdLine())
		})
	}
}

func TestETStart(t *testing.T) {
	f := newFixture(t)
	f.com.TBC = ` C:\cfg\bench.tbc `
	f.com.TCF = `C:\cfg\test.tcf`
	c := NewETClient(ETConfig{ToolName: "ECU-TEST 2024", InstallPath: "ECU-TEST.exe", Timeout: 5}, f.host)

	ok, err := c.Start(context.Background(), false)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, Running, c.State())
	assert.Equal(t, "2024.1.0", c.Version())
	assert.Equal(t, `C:\cfg\bench.tbc`, c.LastTbc())
	assert.Equal(t, `C:\cfg\test.tcf`, c.LastTcf())
	assert.Equal(t, com.DefaultProgID, f.com.Props[0].ProgID)
	assert.Equal(t, 5, f.com.ConnectWaits[0])
	assert.Contains(t, f.out.String(), "[TT] INFO: Starting ECU-TEST 2024...")
	assert.Contains(t, f.out.String(), "[TT] DEBUG: COM version: 2024.1.0")
	assert.Contains(t, f.out.String(), "[TT] INFO: ECU-TEST 2024 started successfully.")
	assert.Equal(t, f.com.Closed, f.com.Calls(), "every session is closed")
}

func TestETStartKillsRunningInstances(t *testing.T) {
	f := newFixture(t, etProcess)
	c := NewETClient(ETConfig{ToolName: "ET", InstallPath: "ECU-TEST.exe"}, f.host)

	ok, err := c.Start(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, f.system.killer.KillCalls(), 1)
	assert.Equal(t, 100, f.system.killer.KillCalls()[0].Pid)
	assert.Contains(t, f.out.String(), "Terminated running processes: [ECU-TEST.exe]")
}

func TestETStartFailures(t *testing.T) {
	tests := []struct {
		name       string
		install    string
		setup      func(f *fixture)
		wantLog    string
		wantLaunch int
	}{
		{
			name:    "missing executable",
			install: "",
			wantLog: "[TT] ERROR: ECU-TEST executable could not be found!",
		},
		{
			name:    "com library unavailable",
			install: "ECU-TEST.exe",
			setup: func(f *fixture) {
				f.com.Unavailable = com.ErrUnsupported
			},
			wantLog:    "[TT] ERROR: Could not load COM library!",
			wantLaunch: 1,
		},
		{
			name:    "application not running",
			install: "ECU-TEST.exe",
			setup: func(f *fixture) {
				f.com.NotRunning = true
			},
			wantLog:    "[TT] ERROR: Could not determine ECU-TEST version!",
			wantLaunch: 1,
		},
		{
			name:    "version error",
			install: "ECU-TEST.exe",
			setup: func(f *fixture) {
				f.com.VersionErr = errors.New("RPC server unavailable")
			},
			wantLog:    "Caught ComException: GetVersion: RPC server unavailable",
			wantLaunch: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}
			c := NewETClient(ETConfig{ToolName: "ET", InstallPath: tt.install}, f.host)

			ok, err := c.Start(context.Background(), false)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Equal(t, Idle, c.State())
			assert.Contains(t, f.out.String(), tt.wantLog)
			assert.Len(t, f.launcher.LaunchCalls(), tt.wantLaunch)
		})
	}
}

func TestETStartVersionTooOldStops(t *testing.T) {
	f := newFixture(t)
	f.com.Version = "6.0.0"
	c := NewETClient(ETConfig{ToolName: "ET", InstallPath: "ECU-TEST.exe"}, f.host)

	ok, err := c.Start(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, f.com.QuitCalls, "incompatible instance is closed again")
	assert.Contains(t, f.out.String(), "is not compatible with this plugin. Please use at least ECU-TEST 6.3.0!")
	assert.Equal(t, Idle, c.State())
}

func TestETStartVersionTooNewWarns(t *testing.T) {
	f := newFixture(t)
	f.com.Version = "2099.1.0"
	c := NewETClient(ETConfig{ToolName: "ET", InstallPath: "ECU-TEST.exe"}, f.host)

	ok, err := c.Start(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, f.out.String(), "[TT] WARN: The configured ECU-TEST version 2099.1.0 might be incompatible")
}

func TestETStartSkipsConfigurationReadBefore7(t *testing.T) {
	f := newFixture(t)
	f.com.Version = "6.6.0"
	f.com.TBC = "bench.tbc"
	c := NewETClient(ETConfig{ToolName: "ET", InstallPath: "ECU-TEST.exe"}, f.host)

	ok, err := c.Start(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, c.LastTbc())
	assert.Equal(t, 1, f.com.Calls())
}

func TestETStopWithoutInstanceIsNoop(t *testing.T) {
	f := newFixture(t)
	c := NewETClient(ETConfig{ToolName: "ET"}, f.host)

	ok, err := c.Stop(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, f.com.Calls(), "no automation call")
	assert.Empty(t, f.system.killer.KillCalls(), "no kill")
	assert.Contains(t, f.out.String(), "[TT] WARN: No running ECU-TEST instance found!")
}

func TestETStopQuitThenKillSweep(t *testing.T) {
	f := newFixture(t, etProcess, process.Process{PID: 101, PPID: 100, CommandLine: "ECU-TEST_COM.exe"})
	c := NewETClient(ETConfig{ToolName: "ET"}, f.host)

	ok, err := c.Stop(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, f.com.QuitCalls)
	assert.Zero(t, f.com.ExitCalls)
	assert.NotEmpty(t, f.system.killer.KillCalls())
	assert.Contains(t, f.out.String(), "[TT] INFO: ET stopped successfully.")
	assert.Equal(t, Idle, c.State())
}

func TestETStopFallsBackToExit(t *testing.T) {
	tests := []struct {
		name       string
		exitResult bool
	}{
		{"exit succeeds", true},
		{"exit fails", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.com.QuitResult = false
			f.com.ExitResult = tt.exitResult
			c := NewETClient(ETConfig{ToolName: "ET"}, f.host)

			ok, err := c.Stop(context.Background(), false)
			require.NoError(t, err)
			assert.Equal(t, tt.exitResult, ok)
			assert.Equal(t, 1, f.com.ExitCalls)
		})
	}
}

func TestETStopQuitErrorStillKills(t *testing.T) {
	f := newFixture(t, etProcess)
	f.com.QuitErr = errors.New("busy")
	c := NewETClient(ETConfig{ToolName: "ET"}, f.host)

	ok, err := c.Stop(context.Background(), true)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, f.com.ExitCalls)
	assert.Len(t, f.system.killer.KillCalls(), 1)
	assert.Contains(t, f.out.String(), "Caught ComException: Quit: busy")
}

func TestETRestartFailsFast(t *testing.T) {
	f := newFixture(t, etProcess)
	f.com.DialErr = errors.New("no server")
	c := NewETClient(ETConfig{ToolName: "ET", InstallPath: "ECU-TEST.exe"}, f.host)

	ok, err := c.Restart(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, f.launcher.LaunchCalls(), "start is not attempted")
}

func TestETRestart(t *testing.T) {
	f := newFixture(t)
	c := NewETClient(ETConfig{ToolName: "ET", InstallPath: "ECU-TEST.exe"}, f.host)

	ok, err := c.Restart(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, f.launcher.LaunchCalls(), 1)
	assert.Equal(t, 1, f.com.QuitCalls)
}

func TestETCheckConfigStatus(t *testing.T) {
	tests := []struct {
		name    string
		version string
		started bool
		want    bool
		wantLog string
	}{
		{"started", "8.1.0", true, true, ""},
		{"not started", "2024.2.0", false, false, ""},
		{"unsupported", "7.2.0", true, false, "Checking configuration status is not supported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.com.Version = tt.version
			f.com.Started = tt.started
			c := NewETClient(ETConfig{ToolName: "ET"}, f.host)

			got, err := c.CheckConfigStatus(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, f.out.String(), tt.wantLog)
		})
	}
}

func TestETVersionProbeIsCached(t *testing.T) {
	f := newFixture(t)
	f.com.Version = "2024.1.0"
	c := NewETClient(ETConfig{ToolName: "ET"}, f.host)

	_, err := c.CheckConfigStatus(context.Background())
	require.NoError(t, err)
	_, err = c.CheckConfigStatus(context.Background())
	require.NoError(t, err)
	// One version probe plus one IsStarted session per call.
	assert.Equal(t, 3, f.com.Calls())
}

func TestETUpdateUserLibs(t *testing.T) {
	f := newFixture(t)
	f.com.UserLibsOK = true
	c := NewETClient(ETConfig{ToolName: "ET"}, f.host)

	ok, err := c.UpdateUserLibs(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, f.com.UserLibsCalls)
	assert.Contains(t, f.out.String(), "Updating user libraries...")
}

func TestETCustomProgID(t *testing.T) {
	f := newFixture(t)
	c := NewETClient(ETConfig{ToolName: "ET", InstallPath: "ECU-TEST.exe", Property: com.Property{ProgID: "ecu.test.Application.2024.1", Timeout: 30}}, f.host)

	ok, err := c.Start(context.Background(), false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, com.Property{ProgID: "ecu.test.Application.2024.1", Timeout: 30}, f.com.Props[0])
}

func TestVersionCacheScopedToHost(t *testing.T) {
	tests := []struct {
		name      string
		versions  func(first *VersionCache) *VersionCache
		wantCalls int
	}{
		{
			name:      "shared cache",
			versions:  func(first *VersionCache) *VersionCache { return first },
			wantCalls: 1,
		},
		{
			name:      "separate hosts",
			versions:  func(*VersionCache) *VersionCache { return NewVersionCache() },
			wantCalls: 2,
		},
		{
			name:      "no cache",
			versions:  func(*VersionCache) *VersionCache { return nil },
			wantCalls: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			prop := com.DefaultProperty()

			v, err := probeVersion(ctx, f.host, prop)
			require.NoError(t, err)
			assert.Equal(t, "2024.1.0", v)

			other := f.host
			other.Versions = tt.versions(f.host.Versions)
			v, err = probeVersion(ctx, other, prop)
			require.NoError(t, err)
			assert.Equal(t, "2024.1.0", v)
			assert.Equal(t, tt.wantCalls, f.com.Calls())
		})
	}
}

func TestVersionCacheRememberForget(t *testing.T) {
	vc := NewVersionCache()
	prop := com.DefaultProperty()

	vc.remember(prop, "2024.1.0")
	got, ok := vc.get(prop)
	require.True(t, ok)
	assert.Equal(t, "2024.1.0", got)

	vc.forget(prop)
	_, ok = vc.get(prop)
	assert.False(t, ok)

	vc.remember(prop, "")
	_, ok = vc.get(prop)
	assert.False(t, ok)
}
