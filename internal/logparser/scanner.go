package logparser

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

var (
	// logPattern matches every unindented line and ends a message body.
	logPattern     = regexp.MustCompile(`^\S+(.*)`)
	warningPattern = regexp.MustCompile(`^\S+(.*)WARNING:$`)
	errorPattern   = regexp.MustCompile(`^\S+(.*)ERROR:$`)
)

// minHeaderTokens is the number of fields a header needs to carry a
// timestamp, a context and the severity.
const minHeaderTokens = 4

// cleanLine removes terminal escape codes and a trailing carriage return.
func cleanLine(line string) string {
	return ansi.Strip(strings.TrimSuffix(line, "\r"))
}

// headerSeverity classifies line as a warning or error header.
func headerSeverity(line string) (Severity, bool) {
	switch {
	case warningPattern.MatchString(line):
		return Warning, true
	case errorPattern.MatchString(line):
		return Error, true
	}
	return 0, false
}

// machine turns log lines into annotations. Lines are fed one at a time; an
// annotation is complete once the next unindented line or the end of input is
// seen.
type machine struct {
	max    int
	counts map[Severity]int

	lineNo  int
	pending *Annotation
	body    []string
}

func newMachine(max int) *machine {
	return &machine{max: max, counts: make(map[Severity]int)}
}

// exhausted reports whether both severities reached their cap.
func (m *machine) exhausted() bool {
	return m.max > 0 && m.counts[Warning] >= m.max && m.counts[Error] >= m.max && m.pending == nil
}

// feed consumes the next physical line and returns a completed annotation.
func (m *machine) feed(raw string) (Annotation, bool) {
	m.lineNo++
	line := cleanLine(raw)

	var done Annotation
	var ok bool
	if m.pending != nil {
		if !logPattern.MatchString(line) {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				m.body = append(m.body, trimmed)
			}
			return Annotation{}, false
		}
		done, ok = m.finish()
	}

	sev, isHeader := headerSeverity(line)
	if !isHeader || (m.max > 0 && m.counts[sev] >= m.max) {
		return done, ok
	}
	m.counts[sev]++

	fields := strings.Fields(line)
	if len(fields) < minHeaderTokens {
		return done, ok
	}
	m.pending = &Annotation{
		LineNumber: m.lineNo,
		Timestamp:  fields[0] + " " + fields[1],
		Context:    fields[len(fields)-2],
		Severity:   sev,
	}
	return done, ok
}

// finish completes the pending annotation.
func (m *machine) finish() (Annotation, bool) {
	if m.pending == nil {
		return Annotation{}, false
	}
	a := *m.pending
	a.Message = strings.TrimSpace(strings.Join(m.body, "\n"))
	m.pending = nil
	m.body = m.body[:0]
	return a, true
}

// matchesHeader reports whether line is a header of sev.
func matchesHeader(line string, sev Severity) bool {
	got, ok := headerSeverity(cleanLine(line))
	return ok && got == sev
}
