// Package pipeline exposes the build steps and publishers to pipeline
// scripts. Scripts call steps by name with named arguments; the arguments are
// decoded into the step configuration, so unknown or wrongly typed arguments
// are rejected before anything runs.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/newhook/ecuci/internal/build"
	"github.com/newhook/ecuci/internal/builder"
	"github.com/newhook/ecuci/internal/com"
	"github.com/newhook/ecuci/internal/logging"
	"github.com/newhook/ecuci/internal/publisher"
	"github.com/newhook/ecuci/internal/toolclient"
)

// Step names understood by Dispatcher.Call.
const (
	StepStartET              = "startET"
	StepStopET               = "stopET"
	StepRestartET            = "restartET"
	StepStartTS              = "startTS"
	StepStopTS               = "stopTS"
	StepGenerateCache        = "generateCache"
	StepPublishETLogs        = "publishETLogs"
	StepPublishGenerators    = "publishGenerators"
	StepCheckETConfigStarted = "checkETConfigStarted"
)

// Dispatcher runs steps by name.
type Dispatcher struct {
	Installations *Registry
	History       publisher.History
	// Host overrides the agent collaborators; tests inject fakes here.
	Host *toolclient.Host
}

// NewDispatcher creates a dispatcher resolving installations from installs.
func NewDispatcher(installs toolclient.InstallationList, history publisher.History) *Dispatcher {
	return &Dispatcher{Installations: NewRegistry(installs), History: history}
}

type handler func(d *Dispatcher, ctx context.Context, step *build.Step, args map[string]any) (any, error)

var handlers = map[string]handler{
	StepStartET:              (*Dispatcher).startET,
	StepStopET:               (*Dispatcher).stopET,
	StepRestartET:            (*Dispatcher).restartET,
	StepStartTS:              (*Dispatcher).startTS,
	StepStopTS:               (*Dispatcher).stopTS,
	StepGenerateCache:        (*Dispatcher).generateCache,
	StepPublishETLogs:        (*Dispatcher).publishETLogs,
	StepPublishGenerators:    (*Dispatcher).publishGenerators,
	StepCheckETConfigStarted: (*Dispatcher).checkETConfigStarted,
}

// Steps lists the step names in sorted order.
func Steps() []string {
	return slices.Sorted(maps.Keys(handlers))
}

// Call runs the step called name. Only checkETConfigStarted returns a value,
// a bool; every other step returns nil.
func (d *Dispatcher) Call(ctx context.Context, step *build.Step, name string, args map[string]any) (any, error) {
	h, ok := handlers[name]
	if !ok {
		return nil, fmt.Errorf("unknown pipeline step: %s", name)
	}
	logging.Debug("calling pipeline step", "step", name, "build", step.Run.ID)
	return h(d, ctx, step, args)
}

// decodeArgs fills dst from args. dst keeps its values for missing
// arguments.
func decodeArgs(name string, args map[string]any, dst any) error {
	if len(args) == 0 {
		return nil
	}
	data, err := yaml.Marshal(args)
	if err != nil {
		return fmt.Errorf("invalid arguments for %s: %w", name, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid arguments for %s: %w", name, err)
	}
	return nil
}

func (d *Dispatcher) startET(ctx context.Context, step *build.Step, args map[string]any) (any, error) {
	b := &builder.StartET{}
	if err := decodeArgs(StepStartET, args, b); err != nil {
		return nil, err
	}
	b.Installations, b.Host = d.Installations, d.Host
	return nil, b.Perform(ctx, step)
}

func (d *Dispatcher) stopET(ctx context.Context, step *build.Step, args map[string]any) (any, error) {
	b := &builder.StopET{}
	if err := decodeArgs(StepStopET, args, b); err != nil {
		return nil, err
	}
	b.Installations, b.Host = d.Installations, d.Host
	return nil, b.Perform(ctx, step)
}

type restartArgs struct {
	builder.StartET `yaml:",inline"`
	StopTimeout     string `yaml:"stopTimeout"`
}

// restartET stops the installation and starts it again with the start
// arguments. A failed stop skips the start.
func (d *Dispatcher) restartET(ctx context.Context, step *build.Step, args map[string]any) (any, error) {
	var a restartArgs
	if err := decodeArgs(StepRestartET, args, &a); err != nil {
		return nil, err
	}
	stop := &builder.StopET{ToolName: a.ToolName, Timeout: a.StopTimeout, Installations: d.Installations, Host: d.Host}
	if err := stop.Perform(ctx, step); err != nil {
		return nil, err
	}
	start := a.StartET
	start.Installations, start.Host = d.Installations, d.Host
	return nil, start.Perform(ctx, step)
}

func (d *Dispatcher) startTS(ctx context.Context, step *build.Step, args map[string]any) (any, error) {
	b := &builder.StartTS{}
	if err := decodeArgs(StepStartTS, args, b); err != nil {
		return nil, err
	}
	b.Installations, b.Host = d.Installations, d.Host
	return nil, b.Perform(ctx, step)
}

func (d *Dispatcher) stopTS(ctx context.Context, step *build.Step, args map[string]any) (any, error) {
	b := &builder.StopTS{}
	if err := decodeArgs(StepStopTS, args, b); err != nil {
		return nil, err
	}
	b.Host = d.Host
	return nil, b.Perform(ctx, step)
}

func (d *Dispatcher) generateCache(ctx context.Context, step *build.Step, args map[string]any) (any, error) {
	var a builder.Cache
	if err := decodeArgs(StepGenerateCache, args, &a); err != nil {
		return nil, err
	}
	b := builder.NewCache(a.Caches)
	b.Host = d.Host
	return nil, b.Perform(ctx, step)
}

type logArgs struct {
	publisher.Flags        `yaml:",inline"`
	publisher.LogPublisher `yaml:",inline"`
}

func (d *Dispatcher) publishETLogs(ctx context.Context, step *build.Step, args map[string]any) (any, error) {
	a := logArgs{Flags: publisher.DefaultFlags()}
	if err := decodeArgs(StepPublishETLogs, args, &a); err != nil {
		return nil, err
	}
	strategy := a.LogPublisher
	return nil, publisher.New(a.Flags, &strategy, d.History).Perform(ctx, step)
}

type generatorArgs struct {
	publisher.Flags              `yaml:",inline"`
	publisher.GeneratorPublisher `yaml:",inline"`
}

func (d *Dispatcher) publishGenerators(ctx context.Context, step *build.Step, args map[string]any) (any, error) {
	a := generatorArgs{Flags: publisher.DefaultFlags()}
	if err := decodeArgs(StepPublishGenerators, args, &a); err != nil {
		return nil, err
	}
	strategy := a.GeneratorPublisher
	strategy.Installations, strategy.Host = d.Installations, d.Host
	return nil, publisher.New(a.Flags, &strategy, d.History).Perform(ctx, step)
}

type configStartedArgs struct {
	ToolName string `yaml:"toolName"`
}

// checkETConfigStarted reports whether the running ecu.test instance has
// started its configurations.
func (d *Dispatcher) checkETConfigStarted(ctx context.Context, step *build.Step, args map[string]any) (any, error) {
	var a configStartedArgs
	if err := decodeArgs(StepCheckETConfigStarted, args, &a); err != nil {
		return nil, err
	}
	var host toolclient.Host
	if d.Host != nil {
		host = *d.Host
	} else {
		host = toolclient.NewHost(step)
	}
	prop := com.DefaultProperty()
	if inst, err := toolclient.ResolveInstallation(d.Installations, a.ToolName, step.Run.Env); err == nil {
		prop = inst.Property()
	}
	client := toolclient.NewETClient(toolclient.ETConfig{ToolName: a.ToolName, Property: prop}, host)
	return client.CheckConfigStatus(ctx)
}
