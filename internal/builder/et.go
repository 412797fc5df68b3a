package builder

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/newhook/ecuci/internal/build"
	"github.com/newhook/ecuci/internal/report"
	"github.com/newhook/ecuci/internal/toolclient"
)

// StartET starts an ecu.test installation and records it on the build.
type StartET struct {
	ToolName     string `yaml:"toolName"`
	WorkspaceDir string `yaml:"workspaceDir"`
	SettingsDir  string `yaml:"settingsDir"`
	// Timeout in seconds, may reference build variables. Defaults to 120.
	Timeout        string `yaml:"timeout"`
	Debug          bool   `yaml:"debug"`
	KeepInstance   bool   `yaml:"keepInstance"`
	UpdateUserLibs bool   `yaml:"updateUserLibs"`
	// ClearLogs removes the logs of a previous run from the settings
	// directory so a later log publisher only sees this run.
	ClearLogs bool `yaml:"clearLogs"`

	Installations toolclient.Installations `yaml:"-"`
	Host          *toolclient.Host         `yaml:"-"`
}

// Perform implements Step.
func (b *StartET) Perform(ctx context.Context, step *build.Step) error {
	return perform(step, func() error {
		if err := build.CheckOS(step.Launcher); err != nil {
			return err
		}
		return b.start(ctx, step)
	})
}

func (b *StartET) start(ctx context.Context, step *build.Step) error {
	log := step.Console
	host := hostFor(b.Host, step)
	env := step.Run.Env

	found, err := toolclient.NewETClient(toolclient.ETConfig{ToolName: b.ToolName}, host).CheckProcesses(ctx, false)
	if err != nil {
		return err
	}
	if b.KeepInstance && len(found) > 0 {
		log.Info("Re-using already running ECU-TEST instance...")
		return nil
	}

	timeout, err := expandInt("timeout", b.Timeout, env, DefaultStartTimeout)
	if err != nil {
		return err
	}
	workspaceDir := step.Abs(expandDefault(b.WorkspaceDir, env, step.Workspace))
	settingsDir := step.Abs(expandDefault(b.SettingsDir, env, step.Workspace))
	if !report.IsDir(workspaceDir) {
		return build.NewPluginError("ECU-TEST workspace at %s does not exist!", workspaceDir)
	}
	if !report.IsDir(settingsDir) {
		return build.NewPluginError("ECU-TEST settings directory at %s does not exist!", settingsDir)
	}
	if b.ClearLogs {
		clearLogs(step, settingsDir)
	}

	inst, err := toolclient.ResolveInstallation(b.Installations, b.ToolName, env)
	if err != nil {
		return err
	}
	client := toolclient.NewETClient(toolclient.ETConfig{
		ToolName:     inst.Name,
		InstallPath:  inst.ETExecutablePath(),
		WorkspaceDir: workspaceDir,
		SettingsDir:  settingsDir,
		Timeout:      timeout,
		Debug:        b.Debug,
		Property:     inst.Property(),
	}, host)
	ok, err := client.Start(ctx, true)
	if err != nil {
		return err
	}
	if !ok {
		return build.NewPluginError("Starting %s failed!", inst.Name)
	}
	if b.UpdateUserLibs {
		ok, err := client.UpdateUserLibs(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return build.NewPluginError("Updating user libraries of %s failed!", inst.Name)
		}
	}

	step.Run.AddAction(&build.ToolEnvAction{
		ToolName:     client.ToolName(),
		InstallPath:  client.InstallPath(),
		WorkspaceDir: client.WorkspaceDir(),
		SettingsDir:  client.SettingsDir(),
		Timeout:      client.Timeout(),
		ProgID:       client.Property().ProgID,
		Version:      client.Version(),
		LastTbc:      client.LastTbc(),
		LastTcf:      client.LastTcf(),
	})
	return nil
}

// clearLogs deletes the ecu.test logs in dir. Failures only warn.
func clearLogs(step *build.Step, dir string) {
	var errs []error
	for _, name := range []string{report.InfoLogName, report.ErrorLogName} {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		step.Console.Warn("Failed deleting ECU-TEST log files: %v", err)
	}
}

// StopET stops a running ecu.test installation.
type StopET struct {
	ToolName string `yaml:"toolName"`
	// Timeout in seconds, may reference build variables. Defaults to 30.
	Timeout string `yaml:"timeout"`

	Installations toolclient.Installations `yaml:"-"`
	Host          *toolclient.Host         `yaml:"-"`
}

// Perform implements Step.
func (b *StopET) Perform(ctx context.Context, step *build.Step) error {
	return perform(step, func() error {
		if err := build.CheckOS(step.Launcher); err != nil {
			return err
		}
		inst, err := toolclient.ResolveInstallation(b.Installations, b.ToolName, step.Run.Env)
		if err != nil {
			return err
		}
		timeout, err := expandInt("timeout", b.Timeout, step.Run.Env, DefaultStopTimeout)
		if err != nil {
			return err
		}
		client := toolclient.NewETClient(toolclient.ETConfig{
			ToolName: inst.Name,
			Timeout:  timeout,
			Property: inst.Property(),
		}, hostFor(b.Host, step))
		ok, err := client.Stop(ctx, true)
		if err != nil {
			return err
		}
		if !ok {
			return build.NewPluginError("Stopping %s failed.", inst.Name)
		}
		return nil
	})
}
