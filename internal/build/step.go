package build

import (
	"path/filepath"

	"github.com/newhook/ecuci/internal/console"
)

// Step bundles what the host hands to a build step or publisher.
type Step struct {
	Run       *Run
	Workspace string
	Launcher  Launcher
	Channel   Channel
	Console   *console.Logger
}

// Expand expands s against the build environment.
func (s *Step) Expand(v string) string {
	return s.Run.Env.Expand(v)
}

// Abs resolves a workspace relative path.
func (s *Step) Abs(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.Workspace, p)
}
