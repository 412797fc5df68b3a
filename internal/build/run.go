package build

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Run is the record of a single build.
// Results only ever get worse and actions are append-only.
type Run struct {
	ID         string
	Number     int
	ProjectDir string // per-project archive root, shared by all builds
	RootDir    string // per-build archive root
	Workspace  string
	Env        EnvVars
	StartedAt  time.Time

	mu      sync.Mutex
	result  Result
	actions []any
}

// NewRun creates a build record for build number n of the project rooted at projectDir.
func NewRun(projectDir string, number int, workspace string, env EnvVars) *Run {
	id := uuid.New().String()
	if env == nil {
		env = EnvVars{}
	}
	return &Run{
		ID:         id,
		Number:     number,
		ProjectDir: projectDir,
		RootDir:    filepath.Join(projectDir, "builds", id),
		Workspace:  workspace,
		Env:        env,
		StartedAt:  time.Now(),
	}
}

// Result returns the current build result.
func (r *Run) Result() Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

// SetResult updates the result if res is worse than the current one.
func (r *Run) SetResult(res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res.IsWorseThan(r.result) {
		r.result = res
	}
}

// AddAction attaches an action to the build.
func (r *Run) AddAction(a any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, a)
}

// AllActions returns a snapshot of every attached action.
func (r *Run) AllActions() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]any, len(r.actions))
	copy(out, r.actions)
	return out
}

// Actions returns the attached actions of type T in insertion order.
func Actions[T any](r *Run) []T {
	var out []T
	for _, a := range r.AllActions() {
		if v, ok := a.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// Action returns the first attached action of type T.
func Action[T any](r *Run) (T, bool) {
	for _, a := range r.AllActions() {
		if v, ok := a.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// RemoveActions detaches every action of type T.
func RemoveActions[T any](r *Run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.actions[:0]
	for _, a := range r.actions {
		if _, ok := a.(T); !ok {
			kept = append(kept, a)
		}
	}
	r.actions = kept
}

// ToolEnvAction records a tool instance started by a build step. Later steps
// use it to find the settings directory and the loaded configurations.
type ToolEnvAction struct {
	ToolName     string
	InstallPath  string
	WorkspaceDir string
	SettingsDir  string
	Timeout      int
	ProgID       string
	Version      string
	LastTbc      string
	LastTcf      string
}

// TestEnvAction records a test run and the directory its report was written to.
type TestEnvAction struct {
	TestName      string
	TestFile      string
	TestReportDir string
}
