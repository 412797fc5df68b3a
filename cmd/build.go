package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/x/term"

	"github.com/newhook/ecuci/internal/build"
	"github.com/newhook/ecuci/internal/console"
	"github.com/newhook/ecuci/internal/logging"
	"github.com/newhook/ecuci/internal/pipeline"
	"github.com/newhook/ecuci/internal/project"
)

// openProject finds the project from --project or the current directory.
func openProject(ctx context.Context) (*project.Project, error) {
	proj, err := project.Find(ctx, flagProject)
	if err != nil {
		return nil, fmt.Errorf("not in a project directory: %w", err)
	}
	return proj, nil
}

// newConsole returns the build console on stdout.
func newConsole() *console.Logger {
	return console.New(os.Stdout,
		console.WithDebug(logging.IsDebug()),
		console.WithColor(term.IsTerminal(os.Stdout.Fd())))
}

// errBuildFailed is returned when a build finished worse than UNSTABLE so
// the process exits non-zero.
var errBuildFailed = errors.New("build failed")

// runBuild records a new build, runs fn with its step and stores the result
// and the reports attached by fn.
func runBuild(ctx context.Context, proj *project.Project, fn func(ctx context.Context, step *build.Step) error) error {
	run, err := proj.NewRun(ctx)
	if err != nil {
		return err
	}
	log := newConsole()
	step := &build.Step{
		Run:       run,
		Workspace: run.Workspace,
		Launcher:  &build.ExecLauncher{Dir: run.Workspace},
		Channel:   build.LocalChannel{},
		Console:   log,
	}
	logger := logging.ForBuild(run.ID, run.Number)
	logger.Info("build started", "project", proj.Name(), "workspace", run.Workspace)

	stepErr := fn(ctx, step)
	if stepErr != nil {
		logging.Error("build step failed", "build", run.ID, "error", stepErr)
		run.SetResult(build.Failure)
	}
	// Storing the build must outlive an interrupted step.
	if err := proj.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		return errors.Join(stepErr, err)
	}
	logger.Info("build finished", "result", run.Result().String(), "error", stepErr)
	log.Log("Build #%d finished: %s", run.Number, run.Result())

	var pe *build.PluginError
	switch {
	case errors.As(stepErr, &pe):
		// Already written to the console.
		return errBuildFailed
	case stepErr != nil:
		return stepErr
	case build.Failure.IsWorseThan(run.Result()):
		return nil
	default:
		return errBuildFailed
	}
}

// withInstance runs fn against the installation selected with --tool as a
// build of the current project.
func withInstance(fn func(ctx context.Context, proj *project.Project, inst *pipeline.Instance) error) error {
	ctx := GetContext()
	proj, err := openProject(ctx)
	if err != nil {
		return err
	}
	defer proj.Close()

	name, err := toolName(proj)
	if err != nil {
		return err
	}
	d := pipeline.NewDispatcher(proj.Config.InstallationList(), proj.DB)
	return runBuild(ctx, proj, func(ctx context.Context, step *build.Step) error {
		inst, err := pipeline.NewET(d, step).Installation(name)
		if err != nil {
			step.Console.Error("%s", err.Error())
			return err
		}
		return fn(ctx, proj, inst)
	})
}
