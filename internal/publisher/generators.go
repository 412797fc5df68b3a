package publisher

import (
	"context"
	"path/filepath"

	"github.com/newhook/ecuci/internal/build"
	"github.com/newhook/ecuci/internal/com"
	"github.com/newhook/ecuci/internal/generator"
	"github.com/newhook/ecuci/internal/report"
	"github.com/newhook/ecuci/internal/toolclient"
)

// generatorStartTimeout bounds starting ecu.test for report generation.
const generatorStartTimeout = 120

// GeneratorPublisher renders the report databases of a build with the
// configured generators and archives their output. ecu.test is started for
// the duration of the publish when no instance is running.
type GeneratorPublisher struct {
	ToolName         string             `toml:"tool_name" yaml:"toolName"`
	Generators       []generator.Config `toml:"generator" yaml:"generators"`
	CustomGenerators []generator.Config `toml:"custom_generator" yaml:"customGenerators"`

	Installations toolclient.Installations `toml:"-" yaml:"-"`
	// Host overrides the agent collaborators; tests inject fakes here.
	Host *toolclient.Host `toml:"-" yaml:"-"`
	// IDs numbers the report nodes; a fresh generator is used when nil.
	IDs *report.IDGenerator `toml:"-" yaml:"-"`
}

var _ Strategy = &GeneratorPublisher{}

// Kind implements Strategy.
func (g *GeneratorPublisher) Kind() string { return report.KindGenerators }

// ArchiveDir implements Strategy.
func (g *GeneratorPublisher) ArchiveDir() string { return report.GeneratorArchiveDir }

func (g *GeneratorPublisher) host(step *build.Step) toolclient.Host {
	if g.Host != nil {
		return *g.Host
	}
	return toolclient.NewHost(step)
}

// Publish implements Strategy.
func (g *GeneratorPublisher) Publish(ctx context.Context, p *Publisher, step *build.Step) error {
	log := step.Console
	log.Info("Publishing generator reports...")

	if skipped, err := p.IsSkipped(step, true); skipped || err != nil {
		return err
	}

	reportFiles, err := p.ReportFiles(step)
	if err != nil {
		return err
	}
	if len(reportFiles) == 0 && !p.AllowMissing {
		return build.NewPluginError("Empty test results are not allowed, setting build status to FAILURE!")
	}

	host := g.host(step)
	prop := com.DefaultProperty()
	inst, resolveErr := toolclient.ResolveInstallation(g.Installations, g.ToolName, step.Run.Env)
	if resolveErr == nil {
		prop = inst.Property()
	}

	running, err := toolclient.NewETClient(toolclient.ETConfig{ToolName: g.ToolName}, host).CheckProcesses(ctx, false)
	if err != nil {
		return err
	}

	var reports []*report.GeneratorReport
	if len(running) > 0 {
		if reports, err = g.generateReports(ctx, p, step, host, prop, reportFiles); err != nil {
			return err
		}
	} else {
		if resolveErr != nil {
			return resolveErr
		}
		cfg := toolclient.ETConfig{
			ToolName:    inst.Name,
			InstallPath: inst.ETExecutablePath(),
			Timeout:     generatorStartTimeout,
			Property:    prop,
		}
		if env, ok := build.Action[*build.ToolEnvAction](step.Run); ok {
			cfg.WorkspaceDir = env.WorkspaceDir
			cfg.SettingsDir = env.SettingsDir
		}
		client := toolclient.NewETClient(cfg, host)
		started, err := client.Start(ctx, false)
		if err != nil {
			return err
		}
		if started {
			if reports, err = g.generateReports(ctx, p, step, host, prop, reportFiles); err != nil {
				return err
			}
		} else {
			log.Error("Starting %s failed.", client.ToolName())
			step.Run.SetResult(build.Failure)
		}
		stopped, err := client.Stop(ctx, true)
		if err != nil {
			return err
		}
		if !stopped {
			log.Error("Stopping %s failed.", client.ToolName())
			step.Run.SetResult(build.Failure)
		}
	}

	if p.Archiving {
		g.addAction(p, step.Run, reports)
	} else {
		log.Info("Archiving generator reports is disabled.")
	}
	log.Info("Generator reports published successfully.")
	return nil
}

// generateReports runs the standard generators followed by the custom ones
// and archives what they produced.
func (g *GeneratorPublisher) generateReports(ctx context.Context, p *Publisher, step *build.Step, host toolclient.Host, prop com.Property, reportFiles []string) ([]*report.GeneratorReport, error) {
	log := step.Console
	archiveTarget := p.ArchiveTarget(step.Run)
	if len(reportFiles) > 0 {
		if err := p.ResetProjectArchive(ctx, step.Run); err != nil {
			return nil, err
		}
	}

	ids := g.IDs
	if ids == nil {
		ids = &report.IDGenerator{}
	}

	configs := append(generator.RemoveEmpty(g.Generators), generator.RemoveEmpty(g.CustomGenerators)...)
	var reports []*report.GeneratorReport
	for _, cfg := range configs {
		gen := &generator.Generator{
			Config:  cfg.Expand(step.Run.Env),
			Channel: host.Channel,
			Dialer:  host.Dialer,
			Prop:    prop,
			Console: log,
		}
		generated, err := gen.Generate(ctx, reportFiles)
		if err != nil {
			return nil, err
		}
		if !p.Archiving || !generated || len(reportFiles) == 0 {
			continue
		}

		template := gen.Config.Name
		log.Info("- Archiving generated reports...")
		if !g.archive(p, step, template, archiveTarget) {
			continue
		}
		r, err := report.BuildGeneratorReport(ids, archiveTarget, template)
		if err != nil {
			log.Error("Failed archiving generated reports.")
			log.Debug("%v", err)
			continue
		}
		if r != nil {
			reports = append(reports, r)
		}
	}
	return reports, nil
}

// archive copies the output of template from every test report directory.
// Copy failures are reported and the remaining directories still copied.
func (g *GeneratorPublisher) archive(p *Publisher, step *build.Step, template, archiveTarget string) bool {
	log := step.Console
	dirs, err := p.ReportDirs(step)
	if err != nil {
		log.Error("Failed archiving generated reports.")
		log.Debug("%v", err)
		return false
	}
	for _, dir := range dirs {
		target := filepath.Join(archiveTarget, template, filepath.Base(dir))
		copied, err := report.CopyMatching(dir, report.GeneratorPattern(template), target)
		if err != nil {
			log.Error("Failed archiving generated reports.")
			log.Debug("%v", err)
			continue
		}
		log.Info("-> Archived %d report file(s) for %s.", copied, testName(step.Run, dir))
	}
	return true
}

// testName names the test run that wrote dir, falling back to the directory.
func testName(run *build.Run, dir string) string {
	for _, a := range build.Actions[*build.TestEnvAction](run) {
		if filepath.Clean(a.TestReportDir) == filepath.Clean(dir) && a.TestName != "" {
			return a.TestName
		}
	}
	return filepath.Base(dir)
}

func (g *GeneratorPublisher) addAction(p *Publisher, run *build.Run, reports []*report.GeneratorReport) {
	if len(reports) == 0 {
		return
	}
	action, ok := build.Action[*report.GeneratorAction](run)
	if !ok {
		action = &report.GeneratorAction{ProjectLevel: !p.KeepAll}
		run.AddAction(action)
	}
	action.Add(reports...)
}
