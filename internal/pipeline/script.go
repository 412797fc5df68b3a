package pipeline

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/newhook/ecuci/internal/build"
	"github.com/newhook/ecuci/internal/logging"
)

// Script is a parsed pipeline script.
type Script struct {
	// Installations are registered before the first step runs and may be
	// referenced by toolName like configured ones.
	Installations []ScriptInstallation `yaml:"installations"`
	Steps         []ScriptStep         `yaml:"steps"`
}

// ScriptInstallation declares an ecu.test installation in a script.
type ScriptInstallation struct {
	Name       string `yaml:"name"`
	Home       string `yaml:"home"`
	ProgID     string `yaml:"progId"`
	COMTimeout int    `yaml:"comTimeout"`
}

// ScriptStep is one entry of a pipeline script.
type ScriptStep struct {
	Step string         `yaml:"step"`
	Args map[string]any `yaml:"args"`
}

// ParseScript reads a pipeline script: either a YAML list of steps or a
// document with installations and steps. Everything is validated before
// anything runs.
func ParseScript(data []byte) (*Script, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline script: %w", err)
	}
	s := &Script{}
	if len(doc.Content) > 0 {
		root := doc.Content[0]
		var err error
		switch root.Kind {
		case yaml.SequenceNode:
			err = root.Decode(&s.Steps)
		case yaml.MappingNode:
			err = decodeDocument(root, s)
		default:
			err = fmt.Errorf("line %d: expected a list of steps or a mapping", root.Line)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse pipeline script: %w", err)
		}
	}

	for i, inst := range s.Installations {
		name, home := strings.TrimSpace(inst.Name), strings.TrimSpace(inst.Home)
		if name == "" || home == "" {
			return nil, fmt.Errorf("installation %d: name and home are required", i+1)
		}
		s.Installations[i].Name, s.Installations[i].Home = name, home
	}
	for i, st := range s.Steps {
		name := strings.TrimSpace(st.Step)
		if _, ok := handlers[name]; !ok {
			return nil, fmt.Errorf("step %d: unknown pipeline step: %q", i+1, st.Step)
		}
		s.Steps[i].Step = name
	}
	return s, nil
}

// decodeDocument decodes the mapping form, rejecting unknown keys.
func decodeDocument(root *yaml.Node, s *Script) error {
	for i := 0; i+1 < len(root.Content); i += 2 {
		switch key := root.Content[i].Value; key {
		case "installations", "steps":
		default:
			return fmt.Errorf("line %d: unknown key %q", root.Content[i].Line, key)
		}
	}
	return root.Decode(s)
}

// RunScript registers the installations of a pipeline script and runs its
// steps in order. It stops at the first step that returns an error or leaves
// the build failed, and returns the number of steps that ran.
func RunScript(ctx context.Context, d *Dispatcher, step *build.Step, data []byte) (int, error) {
	script, err := ParseScript(data)
	if err != nil {
		return 0, err
	}
	et := NewET(d, step)
	for _, inst := range script.Installations {
		et.NewInstallation(inst.Name, step.Expand(inst.Home), inst.ProgID, inst.COMTimeout)
		step.Console.Debug("Registered installation %s (%s)", inst.Name, inst.Home)
	}
	for i, s := range script.Steps {
		v, err := d.Call(ctx, step, s.Step, s.Args)
		if err != nil {
			return i + 1, fmt.Errorf("step %d (%s): %w", i+1, s.Step, err)
		}
		if started, ok := v.(bool); ok {
			step.Console.Info("%s: %t", s.Step, started)
		}
		if result := step.Run.Result(); !build.Failure.IsWorseThan(result) {
			logging.Warn("pipeline stopped", "step", s.Step, "result", result.String())
			return i + 1, fmt.Errorf("step %d (%s) finished with result %s", i+1, s.Step, result)
		}
	}
	return len(script.Steps), nil
}
