// Package builder implements the build steps that start and stop ecu.test
// and the Tool-Server and fill the ecu.test caches.
//
// Every step reports configuration problems as build.PluginError: the error
// is written to the build console, the build is marked as failed and the
// error is returned to abort the build.
package builder

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/newhook/ecuci/internal/build"
	cosignal "github.com/newhook/ecuci/internal/signal"
	"github.com/newhook/ecuci/internal/toolclient"
)

// Default timeouts in seconds.
const (
	DefaultStartTimeout = 120
	DefaultStopTimeout  = 30
)

// Step is a build step.
type Step interface {
	Perform(ctx context.Context, step *build.Step) error
}

// perform runs fn and reports its error the way every step does.
func perform(step *build.Step, fn func() error) error {
	err := fn()
	var pe *build.PluginError
	switch {
	case errors.As(err, &pe):
		step.Console.Error("%s", pe.Error())
		step.Run.SetResult(build.Failure)
	case cosignal.IsInterrupted(err):
		step.Run.SetResult(build.Aborted)
	case err != nil:
		step.Run.SetResult(build.Failure)
	}
	return err
}

// hostFor returns override or the collaborators of step.
func hostFor(override *toolclient.Host, step *build.Step) toolclient.Host {
	if override != nil {
		return *override
	}
	return toolclient.NewHost(step)
}

// expandDefault expands value and falls back to def when the result is blank.
func expandDefault(value string, env build.EnvVars, def string) string {
	if v := strings.TrimSpace(env.Expand(value)); v != "" {
		return v
	}
	return def
}

// expandInt expands value as an integer, falling back to def when blank.
func expandInt(name, value string, env build.EnvVars, def int) (int, error) {
	v := expandDefault(value, env, strconv.Itoa(def))
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, build.NewPluginError("Invalid %s: %s", name, v)
	}
	return n, nil
}
