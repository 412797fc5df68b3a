package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newhook/ecuci/internal/build"
	"github.com/newhook/ecuci/internal/publisher"
	"github.com/newhook/ecuci/internal/toolclient"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry(toolclient.InstallationList{{Name: "a", Home: "/a"}})
	r.Add(toolclient.Installation{Name: "b", Home: "/b"})
	r.Add(toolclient.Installation{Name: "a", Home: "/a2"})

	a, ok := r.Installation("a")
	require.True(t, ok)
	assert.Equal(t, "/a2", a.Home)
	_, ok = r.Installation("b")
	assert.True(t, ok)

	var nilRegistry *Registry
	_, ok = nilRegistry.Installation("a")
	assert.False(t, ok)
}

func TestNewInstallationStartStop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	home := filepath.Join(t.TempDir(), "ET2025")
	require.NoError(t, os.MkdirAll(home, 0o755))

	et := NewET(f.d, f.step)
	inst := et.NewInstallation("ET2025", home, f.progID, 5)
	assert.Equal(t, "ET2025", inst.Name())

	require.NoError(t, inst.Start(ctx, StartOptions{Timeout: 30, KeepInstance: true}))
	calls := f.launcher.LaunchCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, filepath.Join(home, "ECU-TEST.exe"), calls[0].Args[0])
	action, ok := build.Action[*build.ToolEnvAction](f.step.Run)
	require.True(t, ok)
	assert.Equal(t, "ET2025", action.ToolName)
	assert.Equal(t, 30, action.Timeout)

	started, err := inst.IsConfigStarted(ctx)
	require.NoError(t, err)
	assert.True(t, started)

	require.NoError(t, inst.Stop(ctx, 0))
	assert.Zero(t, f.running())
	assert.Equal(t, build.Success, f.step.Run.Result())
}

func TestInstallationLookup(t *testing.T) {
	f := newFixture(t)
	et := NewET(f.d, f.step)

	inst, err := et.Installation("ET2024")
	require.NoError(t, err)
	assert.Equal(t, "ET2024", inst.Name())

	_, err = et.Installation("ET1999")
	assert.ErrorIs(t, err, build.ErrPlugin)
}

func TestInstanceToolServer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ini := filepath.Join(f.step.Workspace, "ToolLibs.ini")
	require.NoError(t, os.WriteFile(ini, nil, 0o600))

	inst, err := NewET(f.d, f.step).Installation("ET2024")
	require.NoError(t, err)
	require.NoError(t, inst.StartTS(ctx, TSOptions{ToolLibsIni: "ToolLibs.ini", TCPPort: 5020}))

	calls := f.launcher.LaunchCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{
		filepath.Join(f.home, toolclient.TSExecutable), "--port", "5020", "--toollibsini", ini,
	}, calls[0].Args)

	require.NoError(t, inst.StopTS(ctx, 5))
	assert.Zero(t, f.running())
}

func TestInstancePublishGeneratorsSkipsFailedBuild(t *testing.T) {
	f := newFixture(t)
	f.step.Run.SetResult(build.Failure)

	inst, err := NewET(f.d, f.step).Installation("ET2024")
	require.NoError(t, err)
	require.NoError(t, inst.PublishGenerators(context.Background(), nil, nil, publisher.DefaultFlags()))
	assert.Contains(t, f.out.String(), "Skipping publisher since build result is FAILURE")
	assert.Empty(t, f.launcher.LaunchCalls())
}
