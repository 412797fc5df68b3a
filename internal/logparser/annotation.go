package logparser

import (
	"fmt"
	"strings"
)

// Severity classifies a log annotation.
type Severity int

const (
	Info Severity = iota
	Debug
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "INFO"
	case Debug:
		return "DEBUG"
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// ParseSeverity parses a severity name case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INFO":
		return Info, nil
	case "DEBUG":
		return Debug, nil
	case "WARNING", "WARN":
		return Warning, nil
	case "ERROR":
		return Error, nil
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}

// Annotation is one warning or error block of an ecu.test log.
type Annotation struct {
	LineNumber int      `json:"lineNumber"`
	Timestamp  string   `json:"timestamp"`
	Context    string   `json:"context"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
}

// String formats the annotation like a console line.
func (a Annotation) String() string {
	return fmt.Sprintf("%d: %s [%s] %s: %s", a.LineNumber, a.Timestamp, a.Context, a.Severity, a.Message)
}

// MarshalText lets severities appear by name in JSON and YAML.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a severity name.
func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
