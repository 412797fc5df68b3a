package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newhook/ecuci/internal/build"
)

func TestParseScript(t *testing.T) {
	script, err := ParseScript([]byte(`
- step: startET
  args:
    toolName: ET2024
    timeout: 60
- step: " stopET "
`))
	require.NoError(t, err)
	assert.Empty(t, script.Installations)
	steps := script.Steps
	require.Len(t, steps, 2)
	assert.Equal(t, "startET", steps[0].Step)
	assert.Equal(t, map[string]any{"toolName": "ET2024", "timeout": 60}, steps[0].Args)
	assert.Equal(t, "stopET", steps[1].Step)
	assert.Nil(t, steps[1].Args)
}

func TestParseScriptDocument(t *testing.T) {
	script, err := ParseScript([]byte(`
installations:
  - name: " ET2025 "
    home: C:\Program Files\ECU-TEST 2025.1
    progId: ECU-TEST.Application.2025.1
    comTimeout: 30
steps:
  - step: startET
    args: {toolName: ET2025}
`))
	require.NoError(t, err)
	assert.Equal(t, []ScriptInstallation{{
		Name:       "ET2025",
		Home:       `C:\Program Files\ECU-TEST 2025.1`,
		ProgID:     "ECU-TEST.Application.2025.1",
		COMTimeout: 30,
	}}, script.Installations)
	require.Len(t, script.Steps, 1)
	assert.Equal(t, "startET", script.Steps[0].Step)
}

func TestParseScriptEmpty(t *testing.T) {
	script, err := ParseScript(nil)
	require.NoError(t, err)
	assert.Empty(t, script.Steps)
}

func TestParseScriptErrors(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   string
	}{
		{"malformed", "- step: [", "failed to parse pipeline script"},
		{"unknown key", "step: startET", `unknown key "step"`},
		{"scalar", "startET", "expected a list of steps or a mapping"},
		{"installation without home", "installations:\n  - name: ET2025\nsteps: []\n", "installation 1: name and home are required"},
		{"unknown step in document", "steps:\n  - step: launchRocket\n", `step 1: unknown pipeline step: "launchRocket"`},
		{"unknown step", "- step: startET\n- step: launchRocket\n", `step 2: unknown pipeline step: "launchRocket"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScript([]byte(tt.script))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestRunScript(t *testing.T) {
	f := newFixture(t)
	script := `
- step: startET
  args: {toolName: ET2024}
- step: checkETConfigStarted
  args: {toolName: ET2024}
- step: stopET
  args: {toolName: ET2024, timeout: 10}
`
	n, err := RunScript(context.Background(), f.d, f.step, []byte(script))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Contains(t, f.out.String(), "[TT] INFO: checkETConfigStarted: true")
	assert.Zero(t, f.running())
	assert.Equal(t, build.Success, f.step.Run.Result())
}

func TestRunScriptRegistersInstallations(t *testing.T) {
	f := newFixture(t)
	home := filepath.Join(t.TempDir(), "ET2025")
	require.NoError(t, os.MkdirAll(home, 0o755))
	f.step.Run.Env["ET_HOME"] = home
	script := `
installations:
  - name: ET2025
    home: $ET_HOME
    progId: ` + f.progID + `
steps:
  - step: startET
    args: {toolName: ET2025, keepInstance: true}
  - step: stopET
    args: {toolName: ET2025}
`
	n, err := RunScript(context.Background(), f.d, f.step, []byte(script))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	calls := f.launcher.LaunchCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, filepath.Join(home, "ECU-TEST.exe"), calls[0].Args[0])
	inst, ok := f.d.Installations.Installation("ET2025")
	require.True(t, ok)
	assert.Equal(t, home, inst.Home)
}

func TestRunScriptStopsAtError(t *testing.T) {
	f := newFixture(t)
	script := `
- step: startTS
  args: {toolName: ET2024, bogus: true}
- step: startET
  args: {toolName: ET2024}
`
	n, err := RunScript(context.Background(), f.d, f.step, []byte(script))
	assert.ErrorContains(t, err, "step 1 (startTS): invalid arguments for startTS")
	assert.Equal(t, 1, n)
	assert.Empty(t, f.launcher.LaunchCalls())
}

func TestRunScriptStopsAtFailedBuild(t *testing.T) {
	f := newFixture(t)
	script := `
- step: publishETLogs
- step: startET
  args: {toolName: ET2024}
`
	n, err := RunScript(context.Background(), f.d, f.step, []byte(script))
	assert.ErrorContains(t, err, "step 1 (publishETLogs) finished with result FAILURE")
	assert.Equal(t, 1, n)
	assert.Empty(t, f.launcher.LaunchCalls())
}
