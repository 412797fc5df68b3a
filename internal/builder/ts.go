package builder

import (
	"context"

	"github.com/newhook/ecuci/internal/build"
	"github.com/newhook/ecuci/internal/report"
	"github.com/newhook/ecuci/internal/toolclient"
)

// StartTS starts the Tool-Server of an ecu.test installation.
type StartTS struct {
	ToolName string `yaml:"toolName"`
	// Timeout in seconds, may reference build variables. Defaults to 120.
	Timeout      string `yaml:"timeout"`
	ToolLibsIni  string `yaml:"toolLibsIni"`
	TCPPort      string `yaml:"tcpPort"`
	KeepInstance bool   `yaml:"keepInstance"`

	Installations toolclient.Installations `yaml:"-"`
	Host          *toolclient.Host         `yaml:"-"`
}

// Perform implements Step.
func (b *StartTS) Perform(ctx context.Context, step *build.Step) error {
	return perform(step, func() error {
		if err := build.CheckOS(step.Launcher); err != nil {
			return err
		}
		return b.start(ctx, step)
	})
}

func (b *StartTS) start(ctx context.Context, step *build.Step) error {
	host := hostFor(b.Host, step)
	env := step.Run.Env

	found, err := toolclient.NewTSClient(toolclient.TSConfig{ToolName: b.ToolName}, host).CheckProcesses(ctx, false)
	if err != nil {
		return err
	}
	if b.KeepInstance && len(found) > 0 {
		step.Console.Info("Re-using already running Tool-Server instance...")
		return nil
	}

	timeout, err := expandInt("timeout", b.Timeout, env, DefaultStartTimeout)
	if err != nil {
		return err
	}
	port, err := expandInt("TCP port", b.TCPPort, env, toolclient.DefaultTCPPort)
	if err != nil {
		return err
	}
	toolLibs := env.Expand(b.ToolLibsIni)
	if toolLibs != "" {
		toolLibs = step.Abs(toolLibs)
		if !report.Exists(toolLibs) {
			return build.NewPluginError("ToolLibs.ini path at %s does not exist!", toolLibs)
		}
	}

	inst, err := toolclient.ResolveInstallation(b.Installations, b.ToolName, env)
	if err != nil {
		return err
	}
	client := toolclient.NewTSClient(toolclient.TSConfig{
		ToolName:        inst.Name,
		InstallPath:     inst.TSExecutablePath(),
		Timeout:         timeout,
		ToolLibsIniPath: toolLibs,
		TCPPort:         port,
	}, host)
	ok, err := client.Start(ctx, true)
	if err != nil {
		return err
	}
	if !ok {
		return build.NewPluginError("Starting Tool-Server failed!")
	}
	return nil
}

// StopTS stops the Tool-Server.
type StopTS struct {
	ToolName string `yaml:"toolName"`
	// Timeout in seconds, may reference build variables. Defaults to 30.
	Timeout string `yaml:"timeout"`

	Host *toolclient.Host `yaml:"-"`
}

// Perform implements Step.
func (b *StopTS) Perform(ctx context.Context, step *build.Step) error {
	return perform(step, func() error {
		if err := build.CheckOS(step.Launcher); err != nil {
			return err
		}
		timeout, err := expandInt("timeout", b.Timeout, step.Run.Env, DefaultStopTimeout)
		if err != nil {
			return err
		}
		client := toolclient.NewTSClient(toolclient.TSConfig{
			ToolName: step.Run.Env.Expand(b.ToolName),
			Timeout:  timeout,
		}, hostFor(b.Host, step))
		ok, err := client.Stop(ctx, true)
		if err != nil {
			return err
		}
		if !ok {
			return build.NewPluginError("Stopping Tool-Server failed.")
		}
		return nil
	})
}
