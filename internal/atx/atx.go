// Package atx holds the settings of the ecu.test ATX report generator, which
// converts test reports into the ASAM ATX format and uploads them to
// TEST-GUIDE.
//
// The defaults come from an embedded template. A project overrides single
// values by name from the [atx] section of its configuration.
package atx

import (
	_ "embed"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/newhook/ecuci/internal/build"
	"github.com/newhook/ecuci/internal/generator"
)

//go:embed template.yaml
var templateYAML []byte

// GeneratorName is the report generator the settings are passed to.
const GeneratorName = "ATX"

// DefaultTestName replaces test names without any usable character.
const DefaultTestName = "DefaultTestName"

// Group is a settings section of the ATX configuration.
type Group int

const (
	GroupUpload Group = iota
	GroupArchive
	GroupAttribute
	GroupTBCConstant
	GroupTCFConstant
	GroupSpecial
)

// Groups lists all groups in template order.
var Groups = []Group{GroupUpload, GroupArchive, GroupAttribute, GroupTBCConstant, GroupTCFConstant, GroupSpecial}

var groupNames = map[Group]string{
	GroupUpload:      "uploadConfig",
	GroupArchive:     "archiveConfig",
	GroupAttribute:   "attributeConfig",
	GroupTBCConstant: "tbcConstantConfig",
	GroupTCFConstant: "tcfConstantConfig",
	GroupSpecial:     "specialConfig",
}

// String returns the config name of the group.
func (g Group) String() string {
	if name, ok := groupNames[g]; ok {
		return name
	}
	return fmt.Sprintf("Group(%d)", int(g))
}

// ParseGroup parses a config name such as "uploadConfig".
func ParseGroup(s string) (Group, error) {
	for g, name := range groupNames {
		if name == s {
			return g, nil
		}
	}
	return 0, fmt.Errorf("unknown settings group for: %s", s)
}

// Setting is one ATX setting. It is implemented by *BoolSetting,
// *TextSetting and *SecretSetting only.
type Setting interface {
	Name() string
	Group() Group
	// Description returns the German text for "de" and English otherwise.
	Description(lang string) string
	// String renders the current value the way the generator expects it.
	String() string
	isSetting()
}

type meta struct {
	name   string
	group  Group
	descDE string
	descEN string
}

func (m meta) Name() string { return m.name }
func (m meta) Group() Group { return m.group }
func (meta) isSetting()     {}

func (m meta) Description(lang string) string {
	if strings.EqualFold(lang, "de") {
		return m.descDE
	}
	return m.descEN
}

// BoolSetting is a checkbox setting.
type BoolSetting struct {
	meta
	Default bool
	Value   bool
}

func (s *BoolSetting) String() string { return FormatBool(s.Value) }

// TextSetting is a free text setting.
type TextSetting struct {
	meta
	Default string
	Value   string
}

func (s *TextSetting) String() string { return s.Value }

// SecretSetting is a text setting whose value must not be displayed.
type SecretSetting struct {
	meta
	Value string
}

func (s *SecretSetting) String() string { return s.Value }

// Masked returns a placeholder for a set secret.
func (s *SecretSetting) Masked() string {
	if s.Value == "" {
		return ""
	}
	return "********"
}

// FormatBool renders b as the generator expects it.
func FormatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// Title converts a camel case setting name into words, e.g.
// "serverURL" into "Server URL".
func Title(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && wordBoundary(runes, i) {
			b.WriteByte(' ')
		}
		if i == 0 {
			r = unicode.ToUpper(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

func wordBoundary(runes []rune, i int) bool {
	prev, cur := runes[i-1], runes[i]
	switch {
	case unicode.IsUpper(prev) && unicode.IsUpper(cur):
		return i+1 < len(runes) && unicode.IsLower(runes[i+1])
	case !unicode.IsUpper(prev) && unicode.IsUpper(cur):
		return true
	case unicode.IsLetter(prev) && !unicode.IsLetter(cur):
		return true
	}
	return false
}

type templateEntry struct {
	Name    string `yaml:"name"`
	Default string `yaml:"default"`
	Secret  bool   `yaml:"secret"`
	DE      string `yaml:"de"`
	EN      string `yaml:"en"`
}

// Config is the full ATX configuration.
type Config struct {
	settings []Setting
}

// Default returns the configuration of the embedded template.
func Default() (*Config, error) {
	return Parse(templateYAML)
}

// Parse reads a settings template: a mapping of group config names to lists
// of settings. Defaults of "true" or "false" make checkbox settings.
func Parse(data []byte) (*Config, error) {
	var raw map[string][]templateEntry
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("error parsing ATX template configuration: %w", err)
	}
	byGroup := map[Group][]templateEntry{}
	for key, entries := range raw {
		g, err := ParseGroup(key)
		if err != nil {
			return nil, err
		}
		byGroup[g] = entries
	}

	c := &Config{}
	seen := map[string]bool{}
	for _, g := range Groups {
		for _, e := range byGroup[g] {
			name := strings.TrimSpace(e.Name)
			if name == "" {
				return nil, fmt.Errorf("setting without name in %s", g)
			}
			if seen[name] {
				return nil, fmt.Errorf("duplicate setting %s", name)
			}
			seen[name] = true
			c.settings = append(c.settings, newSetting(g, name, e))
		}
	}
	return c, nil
}

func newSetting(g Group, name string, e templateEntry) Setting {
	m := meta{name: name, group: g, descDE: collapse(e.DE), descEN: collapse(e.EN)}
	def := strings.TrimSpace(e.Default)
	switch {
	case e.Secret:
		return &SecretSetting{meta: m}
	case isCheckbox(def):
		b := strings.EqualFold(def, "true")
		return &BoolSetting{meta: m, Default: b, Value: b}
	default:
		return &TextSetting{meta: m, Default: def, Value: def}
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isCheckbox(s string) bool {
	return strings.EqualFold(s, "true") || strings.EqualFold(s, "false")
}

// Settings returns all settings in template order.
func (c *Config) Settings() []Setting {
	return c.settings
}

// Group returns the settings of g.
func (c *Config) Group(g Group) []Setting {
	var out []Setting
	for _, s := range c.settings {
		if s.Group() == g {
			out = append(out, s)
		}
	}
	return out
}

// Setting looks a setting up by name.
func (c *Config) Setting(name string) (Setting, bool) {
	for _, s := range c.settings {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

// Set changes the current value of a setting. Checkbox settings accept
// true or false in any case.
func (c *Config) Set(name, value string) error {
	s, ok := c.Setting(name)
	if !ok {
		return fmt.Errorf("unknown ATX setting %q", name)
	}
	switch s := s.(type) {
	case *BoolSetting:
		if !isCheckbox(strings.TrimSpace(value)) {
			return fmt.Errorf("ATX setting %s expects true or false, got %q", name, value)
		}
		s.Value = strings.EqualFold(strings.TrimSpace(value), "true")
	case *TextSetting:
		s.Value = value
	case *SecretSetting:
		s.Value = value
	default:
		panic(fmt.Sprintf("atx: unhandled setting type %T", s))
	}
	return nil
}

// Apply sets every override, reporting all failures at once. Values may be
// strings, booleans or integers as decoded from TOML.
func (c *Config) Apply(overrides map[string]any) error {
	var errs []error
	for _, name := range slices.Sorted(maps.Keys(overrides)) {
		var value string
		switch v := overrides[name].(type) {
		case string:
			value = v
		case bool:
			value = strconv.FormatBool(v)
		case int64:
			value = strconv.FormatInt(v, 10)
		case int:
			value = strconv.Itoa(v)
		default:
			errs = append(errs, fmt.Errorf("ATX setting %s has unsupported value %v", name, v))
			continue
		}
		if err := c.Set(name, value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Changed returns the settings whose value differs from the default.
func (c *Config) Changed() []Setting {
	var out []Setting
	for _, s := range c.settings {
		switch s := s.(type) {
		case *BoolSetting:
			if s.Value != s.Default {
				out = append(out, s)
			}
		case *TextSetting:
			if s.Value != s.Default {
				out = append(out, s)
			}
		case *SecretSetting:
			if s.Value != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func (c *Config) text(name string) string {
	if s, ok := c.Setting(name); ok {
		return s.String()
	}
	return ""
}

func (c *Config) flag(name string, def bool) bool {
	s, _ := c.Setting(name)
	if b, ok := s.(*BoolSetting); ok {
		return b.Value
	}
	return def
}

// BaseURL returns the TEST-GUIDE URL built from the upload settings, with
// build variables expanded.
func (c *Config) BaseURL(env build.EnvVars) string {
	protocol := "http"
	if c.flag("useHttpsConnection", false) {
		protocol = "https"
	}
	host := env.Expand(c.text("serverURL"))
	port := env.Expand(c.text("serverPort"))
	path := env.Expand(c.text("serverContextPath"))
	if path == "" {
		return fmt.Sprintf("%s://%s:%s", protocol, host, port)
	}
	return fmt.Sprintf("%s://%s:%s/%s", protocol, host, port, path)
}

// UploadEnabled reports whether reports are uploaded after generation.
func (c *Config) UploadEnabled() bool {
	return c.flag("uploadToServer", false)
}

// SingleTestplanMap reports whether separate project executions map to one
// test plan. Missing settings count as enabled.
func (c *Config) SingleTestplanMap() bool {
	return c.flag("mapSeparateProjectExecutionAsSingleTestplan", true)
}

// Generator returns the ATX report generator configured with every setting.
func (c *Config) Generator() generator.Config {
	settings := make([]generator.Setting, 0, len(c.settings))
	for _, s := range c.settings {
		settings = append(settings, generator.Setting{Name: s.Name(), Value: s.String()})
	}
	return generator.NewConfig(GeneratorName, settings, false)
}

var umlauts = strings.NewReplacer(
	"ä", "ae", "Ä", "Ae",
	"ö", "oe", "Ö", "Oe",
	"ü", "ue", "Ü", "Ue",
	"ß", "ss",
	"-", "_", ".", "_", " ", "",
)

// ValidName converts a test name into a valid ATX element name.
func ValidName(testName string) string {
	if strings.Trim(testName, "_") == "" {
		return DefaultTestName
	}
	name := umlauts.Replace(testName)
	for strings.Contains(name, "__") {
		name = strings.ReplaceAll(name, "__", "_")
	}
	if name == "" {
		return DefaultTestName
	}
	if unicode.IsDigit([]rune(name)[0]) {
		name = "i" + name
	}
	return name
}
