// Package publisher archives and indexes the reports of a finished build.
//
// A Publisher carries the flags shared by all publishers and delegates the
// tool specific work to a Strategy. Strategies report partial data problems
// on the console and through the build result; configuration problems are
// returned as build.PluginError and fail the build.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/newhook/ecuci/internal/build"
	"github.com/newhook/ecuci/internal/logging"
	"github.com/newhook/ecuci/internal/report"
	cosignal "github.com/newhook/ecuci/internal/signal"
)

// Report database selection below a test report directory.
const (
	TRFIncludes = "**/*.trf"
	TRFExcludes = "*/**/Job_*.trf"
)

// Flags are the capabilities shared by every publisher.
type Flags struct {
	// AllowMissing turns missing or empty results into a silent skip.
	AllowMissing bool `toml:"allow_missing" yaml:"allowMissing"`
	// RunOnFailed publishes even when the build already failed.
	RunOnFailed bool `toml:"run_on_failed" yaml:"runOnFailed"`
	// Archiving copies results into the archive.
	Archiving bool `toml:"archiving" yaml:"archiving"`
	// KeepAll archives per build; otherwise one archive is shared by the
	// project and replaced on every publish.
	KeepAll bool `toml:"keep_all" yaml:"keepAll"`
	// Downstream collects results from Workspace/TestReports below the build
	// workspace instead of the test runs recorded by this build.
	Downstream bool   `toml:"downstream" yaml:"downstream"`
	Workspace  string `toml:"workspace" yaml:"workspace"`
}

// DefaultFlags archives every build separately.
func DefaultFlags() Flags {
	return Flags{Archiving: true, KeepAll: true}
}

// History gives access to the reports recorded by earlier builds.
type History interface {
	// RemoveProjectReports detaches project level reports of kind from every
	// build except the one with id keep.
	RemoveProjectReports(ctx context.Context, kind, keep string) error
}

// Strategy performs the tool specific part of a publisher.
type Strategy interface {
	// Kind names the report trees the strategy records.
	Kind() string
	// ArchiveDir names the archive directory below the build or project root.
	ArchiveDir() string
	Publish(ctx context.Context, p *Publisher, step *build.Step) error
}

// Publisher runs a Strategy with a set of shared flags.
type Publisher struct {
	Flags
	Strategy Strategy
	History  History
}

// New creates a publisher for s.
func New(flags Flags, s Strategy, history History) *Publisher {
	return &Publisher{Flags: flags, Strategy: s, History: history}
}

// Perform publishes the reports of step's build. A plugin error is logged,
// fails the build and is returned; an interruption aborts the build.
func (p *Publisher) Perform(ctx context.Context, step *build.Step) error {
	err := p.Strategy.Publish(ctx, p, step)
	var pe *build.PluginError
	switch {
	case errors.As(err, &pe):
		step.Console.Error("%s", pe.Error())
		step.Run.SetResult(build.Failure)
	case cosignal.IsInterrupted(err):
		step.Run.SetResult(build.Aborted)
	}
	if err != nil {
		logging.Warn("publisher failed", "kind", p.Strategy.Kind(), "build", step.Run.ID, "error", err)
	}
	return err
}

// CanContinue reports whether a build with result can still be published.
func (p *Publisher) CanContinue(result build.Result) bool {
	if p.RunOnFailed {
		return build.Aborted.IsWorseThan(result)
	}
	return build.Failure.IsWorseThan(result)
}

// IsSkipped checks the agent platform if requested and whether the build
// result still allows publishing.
func (p *Publisher) IsSkipped(step *build.Step, checkOS bool) (bool, error) {
	if checkOS {
		if err := build.CheckOS(step.Launcher); err != nil {
			return true, err
		}
	}
	if result := step.Run.Result(); !p.CanContinue(result) {
		step.Console.Info("Skipping publisher since build result is %s", result)
		return true, nil
	}
	return false, nil
}

// ArchiveTarget is the archive directory of the strategy, per build with
// KeepAll and per project otherwise.
func (p *Publisher) ArchiveTarget(run *build.Run) string {
	if p.KeepAll {
		return filepath.Join(run.RootDir, p.Strategy.ArchiveDir())
	}
	return filepath.Join(run.ProjectDir, p.Strategy.ArchiveDir())
}

// ResetProjectArchive removes the shared project archive and detaches the
// project level reports of previous builds. It does nothing with KeepAll.
func (p *Publisher) ResetProjectArchive(ctx context.Context, run *build.Run) error {
	if p.KeepAll {
		return nil
	}
	cosignal.BlockSignals()
	defer cosignal.UnblockSignals()

	if err := os.RemoveAll(p.ArchiveTarget(run)); err != nil {
		return fmt.Errorf("failed to remove project archive: %w", err)
	}
	if p.History == nil {
		return nil
	}
	if err := p.History.RemoveProjectReports(ctx, p.Strategy.Kind(), run.ID); err != nil {
		return fmt.Errorf("failed to remove previous reports: %w", err)
	}
	return nil
}

// ReportDirs lists the existing test report directories of the build.
func (p *Publisher) ReportDirs(step *build.Step) ([]string, error) {
	if p.Downstream {
		reportDir := filepath.Join(step.Abs(step.Expand(p.Workspace)), "TestReports")
		if !report.IsDir(reportDir) {
			return nil, nil
		}
		return report.SubDirs(reportDir)
	}
	var dirs []string
	for _, a := range build.Actions[*build.TestEnvAction](step.Run) {
		if report.IsDir(a.TestReportDir) {
			dirs = append(dirs, a.TestReportDir)
		}
	}
	return dirs, nil
}

// ReportFiles lists the report databases of all test report directories,
// newest test run first.
func (p *Publisher) ReportFiles(step *build.Step) ([]string, error) {
	dirs, err := p.ReportDirs(step)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, dir := range dirs {
		found, err := report.ListMatching(dir, TRFIncludes, TRFExcludes)
		if err != nil {
			return nil, fmt.Errorf("failed to list report files in %s: %w", dir, err)
		}
		files = append(files, found...)
	}
	slices.Reverse(files)
	return files, nil
}
