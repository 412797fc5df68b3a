package build

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetResultOnlyWorsens(t *testing.T) {
	tests := []struct {
		name  string
		steps []Result
		want  Result
	}{
		{"default", nil, Success},
		{"unstable", []Result{Unstable}, Unstable},
		{"failure wins", []Result{Unstable, Failure, Unstable}, Failure},
		{"cannot improve", []Result{Failure, Success}, Failure},
		{"aborted", []Result{Failure, Aborted}, Aborted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRun(t.TempDir(), 1, "", nil)
			for _, s := range tt.steps {
				r.SetResult(s)
			}
			assert.Equal(t, tt.want, r.Result())
		})
	}
}

func TestParseResult(t *testing.T) {
	for _, r := range []Result{Success, Unstable, Failure, NotBuilt, Aborted} {
		got, err := ParseResult(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
	_, err := ParseResult("GREEN")
	assert.Error(t, err)
}

func TestActions(t *testing.T) {
	r := NewRun(t.TempDir(), 3, "", nil)
	r.AddAction(&ToolEnvAction{ToolName: "ecu.test"})
	r.AddAction(&TestEnvAction{TestName: "a"})
	r.AddAction(&TestEnvAction{TestName: "b"})

	tests := Actions[*TestEnvAction](r)
	require.Len(t, tests, 2)
	assert.Equal(t, "a", tests[0].TestName)

	tool, ok := Action[*ToolEnvAction](r)
	require.True(t, ok)
	assert.Equal(t, "ecu.test", tool.ToolName)

	RemoveActions[*TestEnvAction](r)
	assert.Empty(t, Actions[*TestEnvAction](r))
	assert.Len(t, r.AllActions(), 1)
}

func TestNewRunLayout(t *testing.T) {
	dir := t.TempDir()
	r := NewRun(dir, 1, "/ws", nil)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, filepath.Join(dir, "builds", r.ID), r.RootDir)
	assert.NotNil(t, r.Env)
}

func TestEnvExpand(t *testing.T) {
	env := EnvVars{"WORKSPACE": `C:\ws`, "NAME": "ET"}
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"$WORKSPACE/a2l", `C:\ws/a2l`},
		{"${NAME}-2024", "ET-2024"},
		{"${UNKNOWN}/x", "${UNKNOWN}/x"},
		{"$UNKNOWN/x", "$UNKNOWN/x"},
		{`C:\share$1\x`, `C:\share$1\x`},
		{"pa$$word", "pa$$word"},
		{"${HOME", "${HOME"},
		{"${NAME", "${NAME"},
		{"${}", "${}"},
		{"${NA ME}", "${NA ME}"},
		{"trailing$", "trailing$"},
		{"$NAME$NAME", "ETET"},
		{"$$NAME", "$ET"},
		{"${WORKSPACE}_$NAME_x", `C:\ws_$NAME_x`},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, env.Expand(tt.in))
		})
	}
}

func TestEnvWithCopies(t *testing.T) {
	env := EnvVars{"A": "1"}
	other := env.With("B", "2")
	assert.NotContains(t, env, "B")
	assert.Equal(t, "2", other["B"])
}

func TestPluginError(t *testing.T) {
	err := fmt.Errorf("step: %w", NewPluginError("Generating %s cache failed!", "A2L"))
	assert.True(t, errors.Is(err, ErrPlugin))

	var pe *PluginError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "Generating A2L cache failed!", pe.Msg)
}

type fakeLauncher struct{ unix bool }

func (f fakeLauncher) Launch(context.Context, []string) (Proc, error) { return nil, nil }
func (f fakeLauncher) IsUnix() bool                                   { return f.unix }

func TestCheckOS(t *testing.T) {
	assert.ErrorIs(t, CheckOS(fakeLauncher{unix: true}), ErrPlugin)
	assert.NoError(t, CheckOS(fakeLauncher{unix: false}))
}

func TestCallTyped(t *testing.T) {
	ctx := context.Background()
	v, err := Call(ctx, LocalChannel{}, func(context.Context) (string, error) { return "2024.1.0", nil })
	require.NoError(t, err)
	assert.Equal(t, "2024.1.0", v)

	_, err = Call(ctx, LocalChannel{}, func(context.Context) (int, error) { panic("boom") })
	assert.ErrorContains(t, err, "boom")
}

func TestLocalChannelCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := LocalChannel{}.Call(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestFormatArgs(t *testing.T) {
	got := FormatArgs([]string{`C:\ET\ECU-TEST.exe`, "--workspaceDir", `C:\my ws`, "-d"})
	assert.Equal(t, `C:\ET\ECU-TEST.exe --workspaceDir "C:\\my ws" -d`, got)
}

func TestStepAbs(t *testing.T) {
	s := &Step{Workspace: filepath.FromSlash("/ws"), Run: NewRun(t.TempDir(), 1, "", EnvVars{"X": "y"})}
	assert.Equal(t, filepath.Join("/ws", "a"), s.Abs("a"))
	assert.Equal(t, "", s.Abs(""))
	assert.Equal(t, "y", s.Expand("$X"))
}
