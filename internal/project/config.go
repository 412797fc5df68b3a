package project

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/newhook/ecuci/internal/atx"
	"github.com/newhook/ecuci/internal/builder"
	"github.com/newhook/ecuci/internal/com"
	"github.com/newhook/ecuci/internal/generator"
	"github.com/newhook/ecuci/internal/logparser"
	"github.com/newhook/ecuci/internal/publisher"
	"github.com/newhook/ecuci/internal/toolclient"
)

//go:embed templates/config.tmpl
var configTemplateText string

// Config represents the project configuration stored in .ecuci/config.toml.
type Config struct {
	Project            ProjectConfig            `toml:"project"`
	Installations      []InstallationConfig     `toml:"installation"`
	LogPublisher       LogPublisherConfig       `toml:"log_publisher"`
	GeneratorPublisher GeneratorPublisherConfig `toml:"generator_publisher"`
	Caches             []builder.CacheConfig    `toml:"cache"`
	// ATX overrides single ATX generator settings by name.
	ATX map[string]any `toml:"atx"`
}

// ProjectConfig contains project metadata.
type ProjectConfig struct {
	Name      string    `toml:"name"`
	CreatedAt time.Time `toml:"created_at"`
	// Workspace is the build workspace, relative to the project root.
	// Defaults to the project root.
	Workspace string `toml:"workspace"`
	// Env holds build variables available as $NAME or ${NAME}.
	// Format: ["KEY=value", "ANOTHER_KEY=value"]
	Env []string `toml:"env"`
}

// InstallationConfig describes an ecu.test installation on this agent.
type InstallationConfig struct {
	Name string `toml:"name"`
	// Home is the installation directory containing ECU-TEST.exe.
	Home string `toml:"home"`
	// Executable overrides the ecu.test executable path.
	Executable string `toml:"executable"`
	// ProgID is the COM programmatic identifier.
	// Defaults to "ECU-TEST.Application".
	ProgID string `toml:"prog_id"`
	// COMTimeout bounds a single COM request in seconds; 0 waits forever.
	COMTimeout *int `toml:"com_timeout"`
	// ToolLibsIni is the ToolLibs.ini passed to the Tool-Server.
	ToolLibsIni string `toml:"tool_libs_ini"`
	// TCPPort is the Tool-Server port. Defaults to 5017.
	TCPPort *int `toml:"tcp_port"`
}

// GetProgID returns the configured prog id or the ecu.test default.
func (i *InstallationConfig) GetProgID() string {
	if strings.TrimSpace(i.ProgID) == "" {
		return com.DefaultProgID
	}
	return i.ProgID
}

// GetCOMTimeout returns the COM request timeout in seconds.
// Defaults to 0 (no timeout) when not specified.
func (i *InstallationConfig) GetCOMTimeout() int {
	if i.COMTimeout == nil || *i.COMTimeout < 0 {
		return com.DefaultTimeout
	}
	return *i.COMTimeout
}

// GetTCPPort returns the Tool-Server port or 5017 if not specified.
func (i *InstallationConfig) GetTCPPort() int {
	if i.TCPPort == nil || *i.TCPPort <= 0 {
		return toolclient.DefaultTCPPort
	}
	return *i.TCPPort
}

// Installation converts the config into the form the tool clients resolve.
func (i *InstallationConfig) Installation() toolclient.Installation {
	return toolclient.Installation{
		Name:       i.Name,
		Home:       i.Home,
		Executable: i.Executable,
		ProgID:     i.GetProgID(),
		COMTimeout: i.GetCOMTimeout(),
	}
}

// PublisherFlags holds the flags shared by all publisher sections.
type PublisherFlags struct {
	// AllowMissing skips missing results instead of failing the build.
	AllowMissing bool `toml:"allow_missing"`
	// RunOnFailed publishes even when the build already failed.
	RunOnFailed bool `toml:"run_on_failed"`
	// Archiving copies results into the archive. Defaults to true.
	Archiving *bool `toml:"archiving"`
	// KeepAll archives every build separately. Defaults to true.
	KeepAll *bool `toml:"keep_all"`
	// Downstream collects results from <workspace>/TestReports.
	Downstream bool   `toml:"downstream"`
	Workspace  string `toml:"workspace"`
}

// Flags returns the publisher flags with defaults applied.
func (f *PublisherFlags) Flags() publisher.Flags {
	flags := publisher.DefaultFlags()
	flags.AllowMissing = f.AllowMissing
	flags.RunOnFailed = f.RunOnFailed
	flags.Downstream = f.Downstream
	flags.Workspace = f.Workspace
	if f.Archiving != nil {
		flags.Archiving = *f.Archiving
	}
	if f.KeepAll != nil {
		flags.KeepAll = *f.KeepAll
	}
	return flags
}

// LogPublisherConfig contains the ecu.test log publisher configuration.
type LogPublisherConfig struct {
	PublisherFlags
	UnstableOnWarning bool `toml:"unstable_on_warning"`
	FailedOnError     bool `toml:"failed_on_error"`
	TestSpecific      bool `toml:"test_specific"`
	// MaxAnnotations caps the warnings and errors kept per log file.
	// Defaults to 10 when not specified.
	MaxAnnotations *int `toml:"max_annotations"`
}

// GetMaxAnnotations returns the annotation cap or 10 if not specified.
func (l *LogPublisherConfig) GetMaxAnnotations() int {
	if l.MaxAnnotations == nil || *l.MaxAnnotations <= 0 {
		return logparser.DefaultMaxAnnotations
	}
	return *l.MaxAnnotations
}

// Strategy returns the configured log publisher.
func (l *LogPublisherConfig) Strategy() *publisher.LogPublisher {
	return &publisher.LogPublisher{
		UnstableOnWarning: l.UnstableOnWarning,
		FailedOnError:     l.FailedOnError,
		TestSpecific:      l.TestSpecific,
		MaxAnnotations:    l.GetMaxAnnotations(),
	}
}

// GeneratorPublisherConfig contains the report generator publisher configuration.
type GeneratorPublisherConfig struct {
	PublisherFlags
	// ToolName selects the installation used when no instance is running.
	ToolName         string             `toml:"tool_name"`
	Generators       []generator.Config `toml:"generator"`
	CustomGenerators []generator.Config `toml:"custom_generator"`
}

// Load reads and parses a config.toml file.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// InstallationList returns all configured installations.
func (c *Config) InstallationList() toolclient.InstallationList {
	list := make(toolclient.InstallationList, 0, len(c.Installations))
	for i := range c.Installations {
		list = append(list, c.Installations[i].Installation())
	}
	return list
}

// InstallationConfig looks an installation up by name.
func (c *Config) InstallationConfig(name string) (*InstallationConfig, bool) {
	for i := range c.Installations {
		if c.Installations[i].Name == name {
			return &c.Installations[i], true
		}
	}
	return nil, false
}

// ATXConfig returns the default ATX settings with the [atx] overrides applied.
func (c *Config) ATXConfig() (*atx.Config, error) {
	cfg, err := atx.Default()
	if err != nil {
		return nil, err
	}
	if err := cfg.Apply(c.ATX); err != nil {
		return nil, fmt.Errorf("invalid [atx] section: %w", err)
	}
	return cfg, nil
}

// GeneratorStrategy returns the configured generator publisher. An ATX
// generator without settings is filled from the ATX configuration.
func (c *Config) GeneratorStrategy() (*publisher.GeneratorPublisher, error) {
	gp := c.GeneratorPublisher
	generators := make([]generator.Config, 0, len(gp.Generators))
	for _, g := range gp.Generators {
		if strings.TrimSpace(g.Name) == atx.GeneratorName && len(g.Settings) == 0 && !g.UsePersistedSettings {
			cfg, err := c.ATXConfig()
			if err != nil {
				return nil, err
			}
			g = cfg.Generator()
		}
		generators = append(generators, g)
	}
	return &publisher.GeneratorPublisher{
		ToolName:         gp.ToolName,
		Generators:       generators,
		CustomGenerators: gp.CustomGenerators,
		Installations:    c.InstallationList(),
	}, nil
}

// WorkspaceDir resolves the build workspace below root.
func (c *Config) WorkspaceDir(root string) string {
	ws := c.Project.Workspace
	if ws == "" {
		return root
	}
	if filepath.IsAbs(ws) {
		return ws
	}
	return filepath.Join(root, ws)
}

// EnvVars parses the configured build variables. Entries without "=" are
// ignored.
func (c *Config) EnvVars() map[string]string {
	env := make(map[string]string, len(c.Project.Env))
	for _, kv := range c.Project.Env {
		if k, v, ok := strings.Cut(kv, "="); ok && strings.TrimSpace(k) != "" {
			env[strings.TrimSpace(k)] = v
		}
	}
	return env
}

// Save writes the config to the specified path.
func (c *Config) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// SaveDocumented writes a fully documented config to the specified path.
func (c *Config) SaveDocumented(path string) error {
	return os.WriteFile(path, []byte(c.GenerateDocumented()), 0600)
}

// configTemplateData holds the data used to render the config template.
type configTemplateData struct {
	ProjectName   string
	CreatedAt     string
	Workspace     string
	Installations []InstallationConfig
}

// tomlString formats a string for TOML output with proper escaping.
func tomlString(s string) string {
	escaped := strings.ReplaceAll(s, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}

var configTemplate = template.Must(template.New("config").Funcs(template.FuncMap{
	"tomlString": tomlString,
}).Parse(configTemplateText))

// GenerateDocumented renders config.toml with the project values, the
// configured installations and commented-out examples of every section.
func (c *Config) GenerateDocumented() string {
	data := configTemplateData{
		ProjectName:   c.Project.Name,
		CreatedAt:     c.Project.CreatedAt.Format(time.RFC3339),
		Workspace:     c.Project.Workspace,
		Installations: c.Installations,
	}

	var buf bytes.Buffer
	if err := configTemplate.Execute(&buf, data); err != nil {
		return fmt.Sprintf("[project]\nname = %s\ncreated_at = %s\n", tomlString(c.Project.Name), data.CreatedAt)
	}
	return buf.String()
}
