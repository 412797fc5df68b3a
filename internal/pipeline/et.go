package pipeline

import (
	"context"
	"strconv"
	"sync"

	"github.com/newhook/ecuci/internal/build"
	"github.com/newhook/ecuci/internal/generator"
	"github.com/newhook/ecuci/internal/publisher"
	"github.com/newhook/ecuci/internal/toolclient"
)

// Registry holds the installations known to a pipeline: the configured ones
// plus those added by the script.
type Registry struct {
	mu       sync.RWMutex
	installs toolclient.InstallationList
}

var _ toolclient.Installations = &Registry{}

// NewRegistry creates a registry seeded with installs.
func NewRegistry(installs toolclient.InstallationList) *Registry {
	return &Registry{installs: append(toolclient.InstallationList(nil), installs...)}
}

// Installation implements toolclient.Installations.
func (r *Registry) Installation(name string) (toolclient.Installation, bool) {
	if r == nil {
		return toolclient.Installation{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.installs.Installation(name)
}

// Add registers inst, replacing an installation of the same name.
func (r *Registry) Add(inst toolclient.Installation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.installs {
		if r.installs[i].Name == inst.Name {
			r.installs[i] = inst
			return
		}
	}
	r.installs = append(r.installs, inst)
}

// ET gives scripts typed access to ecu.test installations of one build.
type ET struct {
	d    *Dispatcher
	step *build.Step
}

// NewET binds d to step.
func NewET(d *Dispatcher, step *build.Step) *ET {
	return &ET{d: d, step: step}
}

// NewInstallation registers an installation for the rest of the build.
// comTimeout bounds a single COM request in seconds.
func (e *ET) NewInstallation(name, home, progID string, comTimeout int) *Instance {
	inst := toolclient.Installation{Name: name, Home: home, ProgID: progID, COMTimeout: comTimeout}
	e.d.Installations.Add(inst)
	return &Instance{et: e, name: name}
}

// Installation returns a configured installation.
func (e *ET) Installation(name string) (*Instance, error) {
	inst, err := toolclient.ResolveInstallation(e.d.Installations, name, e.step.Run.Env)
	if err != nil {
		return nil, err
	}
	return &Instance{et: e, name: inst.Name}, nil
}

// Instance runs steps against one installation.
type Instance struct {
	et   *ET
	name string
}

// Name returns the installation name.
func (i *Instance) Name() string { return i.name }

// StartOptions are the optional arguments of Instance.Start. Zero values
// select the step defaults.
type StartOptions struct {
	WorkspaceDir   string
	SettingsDir    string
	Timeout        int
	Debug          bool
	KeepInstance   bool
	UpdateUserLibs bool
	ClearLogs      bool
}

func (o StartOptions) args(toolName string) map[string]any {
	args := map[string]any{
		"toolName":       toolName,
		"workspaceDir":   o.WorkspaceDir,
		"settingsDir":    o.SettingsDir,
		"debug":          o.Debug,
		"keepInstance":   o.KeepInstance,
		"updateUserLibs": o.UpdateUserLibs,
		"clearLogs":      o.ClearLogs,
	}
	if o.Timeout > 0 {
		args["timeout"] = strconv.Itoa(o.Timeout)
	}
	return args
}

// TSOptions are the optional arguments of Instance.StartTS.
type TSOptions struct {
	ToolLibsIni  string
	TCPPort      int
	Timeout      int
	KeepInstance bool
}

func (i *Instance) call(ctx context.Context, name string, args map[string]any) error {
	_, err := i.et.d.Call(ctx, i.et.step, name, args)
	return err
}

func timeoutArgs(toolName string, timeout int) map[string]any {
	args := map[string]any{"toolName": toolName}
	if timeout > 0 {
		args["timeout"] = strconv.Itoa(timeout)
	}
	return args
}

// Start starts ecu.test.
func (i *Instance) Start(ctx context.Context, opts StartOptions) error {
	return i.call(ctx, StepStartET, opts.args(i.name))
}

// Stop stops ecu.test. A timeout of 0 selects the default.
func (i *Instance) Stop(ctx context.Context, timeout int) error {
	return i.call(ctx, StepStopET, timeoutArgs(i.name, timeout))
}

// Restart stops ecu.test and starts it again with opts.
func (i *Instance) Restart(ctx context.Context, opts StartOptions, stopTimeout int) error {
	args := opts.args(i.name)
	if stopTimeout > 0 {
		args["stopTimeout"] = strconv.Itoa(stopTimeout)
	}
	return i.call(ctx, StepRestartET, args)
}

// StartTS starts the Tool-Server of the installation.
func (i *Instance) StartTS(ctx context.Context, opts TSOptions) error {
	args := timeoutArgs(i.name, opts.Timeout)
	args["toolLibsIni"] = opts.ToolLibsIni
	args["keepInstance"] = opts.KeepInstance
	if opts.TCPPort > 0 {
		args["tcpPort"] = strconv.Itoa(opts.TCPPort)
	}
	return i.call(ctx, StepStartTS, args)
}

// StopTS stops the Tool-Server.
func (i *Instance) StopTS(ctx context.Context, timeout int) error {
	return i.call(ctx, StepStopTS, timeoutArgs(i.name, timeout))
}

// PublishGenerators renders the build's reports with the given generators.
func (i *Instance) PublishGenerators(ctx context.Context, generators, custom []generator.Config, flags publisher.Flags) error {
	return i.call(ctx, StepPublishGenerators, map[string]any{
		"toolName":         i.name,
		"generators":       generators,
		"customGenerators": custom,
		"allowMissing":     flags.AllowMissing,
		"runOnFailed":      flags.RunOnFailed,
		"archiving":        flags.Archiving,
		"keepAll":          flags.KeepAll,
	})
}

// IsConfigStarted reports whether the instance has started its configurations.
func (i *Instance) IsConfigStarted(ctx context.Context) (bool, error) {
	v, err := i.et.d.Call(ctx, i.et.step, StepCheckETConfigStarted, map[string]any{"toolName": i.name})
	if err != nil {
		return false, err
	}
	started, _ := v.(bool)
	return started, nil
}
