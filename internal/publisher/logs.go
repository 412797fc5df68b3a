package publisher

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/newhook/ecuci/internal/build"
	"github.com/newhook/ecuci/internal/report"
)

// LogPublisher archives the ecu.test logs and rates the build by the
// warnings and errors found in them.
type LogPublisher struct {
	UnstableOnWarning bool `toml:"unstable_on_warning" yaml:"unstableOnWarning"`
	FailedOnError     bool `toml:"failed_on_error" yaml:"failedOnError"`
	// TestSpecific archives the logs of every test report directory instead
	// of the logs of the tool settings directory.
	TestSpecific   bool `toml:"test_specific" yaml:"testSpecific"`
	MaxAnnotations int  `toml:"max_annotations" yaml:"maxAnnotations"`

	// IDs numbers the report nodes; a fresh generator is used when nil.
	IDs *report.IDGenerator `toml:"-" yaml:"-"`
}

var _ Strategy = &LogPublisher{}

// Kind implements Strategy.
func (l *LogPublisher) Kind() string { return report.KindLogs }

// ArchiveDir implements Strategy.
func (l *LogPublisher) ArchiveDir() string { return report.LogArchiveDir }

// Publish implements Strategy.
func (l *LogPublisher) Publish(ctx context.Context, p *Publisher, step *build.Step) error {
	log := step.Console
	log.Info("Publishing ECU-TEST logs...")

	if skipped, err := p.IsSkipped(step, false); skipped || err != nil {
		return err
	}

	if !p.Archiving {
		log.Info("Archiving ECU-TEST logs is disabled.")
		log.Info("ECU-TEST logs published successfully.")
		return nil
	}

	archiveTarget := p.ArchiveTarget(step.Run)
	if err := p.ResetProjectArchive(ctx, step.Run); err != nil {
		return err
	}

	tree := l.treeBuilder()
	var reports []*report.LogReport
	var ok bool
	var err error
	if l.TestSpecific {
		reports, ok, err = l.archiveTestReports(p, step, tree, archiveTarget)
	} else {
		reports, ok, err = l.archiveLogFiles(p, step, tree, archiveTarget)
	}
	if err != nil || !ok {
		return err
	}

	if len(reports) == 0 {
		log.Info("No log results found.")
		if !p.AllowMissing {
			log.Error("Empty log results are not allowed, setting build status to FAILURE!")
			step.Run.SetResult(build.Failure)
			return nil
		}
	} else {
		l.addAction(p, step.Run, reports)
		l.setBuildResult(step, reports)
	}

	log.Info("ECU-TEST logs published successfully.")
	return nil
}

func (l *LogPublisher) treeBuilder() *report.LogTreeBuilder {
	ids := l.IDs
	if ids == nil {
		ids = &report.IDGenerator{}
	}
	tree := report.NewLogTreeBuilder(ids, l.TestSpecific)
	if l.MaxAnnotations > 0 {
		tree.MaxAnnotations = l.MaxAnnotations
	}
	return tree
}

// archiveTestReports copies the logs of every test report directory and
// builds one tree per directory. ok is false when archiving failed and the
// build was marked as failed.
func (l *LogPublisher) archiveTestReports(p *Publisher, step *build.Step, tree *report.LogTreeBuilder, archiveTarget string) ([]*report.LogReport, bool, error) {
	log := step.Console
	dirs, err := p.ReportDirs(step)
	if err != nil {
		return nil, false, err
	}
	includes := fmt.Sprintf("**/%s,**/%s", report.ErrorLogName, report.InfoLogName)

	var reports []*report.LogReport
	for _, dir := range dirs {
		targetDir := filepath.Join(archiveTarget, filepath.Base(dir))
		log.Info("- Archiving log files: %s", dir)
		copied, err := report.CopyMatching(dir, includes, targetDir)
		if err != nil {
			l.failArchiving(step, err)
			return nil, false, nil
		}
		if copied == 0 {
			continue
		}
		if copied > 2 {
			log.Info("-> Archived %d sub-report(s).", copied/2-1)
		}
		root, err := tree.Traverse(targetDir)
		if err != nil {
			l.failArchiving(step, err)
			return nil, false, nil
		}
		reports = append(reports, root)
	}
	return reports, true, nil
}

// archiveLogFiles copies the logs of the tool settings directory, or of the
// workspace when no tool was started by this build.
func (l *LogPublisher) archiveLogFiles(p *Publisher, step *build.Step, tree *report.LogTreeBuilder, archiveTarget string) ([]*report.LogReport, bool, error) {
	log := step.Console
	var reports []*report.LogReport
	for _, logFile := range l.logFiles(p, step) {
		target := filepath.Join(archiveTarget, filepath.Base(logFile))
		log.Info("- Archiving log file: %s", logFile)
		if err := report.CopyFile(logFile, target); err != nil {
			l.failArchiving(step, err)
			return nil, false, nil
		}
		r, err := tree.ParseLogFile(target, archiveTarget)
		if err != nil {
			l.failArchiving(step, err)
			return nil, false, nil
		}
		reports = append(reports, r)
	}
	return reports, true, nil
}

func (l *LogPublisher) logFiles(p *Publisher, step *build.Step) []string {
	dir := step.Workspace
	if p.Downstream {
		dir = step.Abs(step.Expand(p.Workspace))
	} else if env, ok := build.Action[*build.ToolEnvAction](step.Run); ok && env.SettingsDir != "" {
		dir = env.SettingsDir
	}
	var files []string
	for _, name := range []string{report.InfoLogName, report.ErrorLogName} {
		if f := filepath.Join(dir, name); report.Exists(f) {
			files = append(files, f)
		}
	}
	return files
}

func (l *LogPublisher) failArchiving(step *build.Step, err error) {
	step.Console.Error("Failed publishing ECU-TEST logs.")
	step.Console.Debug("%v", err)
	step.Run.SetResult(build.Failure)
}

func (l *LogPublisher) addAction(p *Publisher, run *build.Run, reports []*report.LogReport) {
	action, ok := build.Action[*report.LogAction](run)
	if !ok {
		action = &report.LogAction{ProjectLevel: !p.KeepAll}
		run.AddAction(action)
	}
	action.Add(reports...)
}

func (l *LogPublisher) setBuildResult(step *build.Step, reports []*report.LogReport) {
	log := step.Console
	warnings, errs := 0, 0
	for _, r := range reports {
		warnings += r.TotalWarningCount()
		errs += r.TotalErrorCount()
	}
	log.Info("- Parsing log files...")
	switch {
	case errs > 0 && l.FailedOnError:
		log.Info("-> %d error(s) found in the ECU-TEST logs, setting build status to FAILURE!", errs)
		step.Run.SetResult(build.Failure)
	case warnings > 0 && l.UnstableOnWarning:
		log.Info("-> %d warning(s) found in the ECU-TEST logs, setting build status to UNSTABLE!", warnings)
		step.Run.SetResult(build.Unstable)
	default:
		log.Info("-> %d warning(s) and %d error(s) found in the ECU-TEST logs.", warnings, errs)
	}
}
