// Package console writes the build console log shown to CI users.
//
// Every line is prefixed with a [TT] severity tag so tool related output can be
// told apart from the rest of the build log. Debug lines only appear when debug
// logging is enabled.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/newhook/ecuci/internal/logging"
)

// Prefixes written in front of each console line.
const (
	InfoPrefix  = "[TT] INFO: "
	WarnPrefix  = "[TT] WARN: "
	ErrorPrefix = "[TT] ERROR: "
	DebugPrefix = "[TT] DEBUG: "
)

// FAQURL is appended to every COM exception report.
const FAQURL = "https://wiki.jenkins-ci.org/x/joLtB#TraceTronicECU-TESTPlugin-FAQ"

// comWrapWidth is the column at which COM exception messages are wrapped.
const comWrapWidth = 120

var (
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	debugStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Logger writes annotated lines to the build console.
type Logger struct {
	mu     sync.Mutex
	w      io.Writer
	debug  bool
	styled bool
}

// Option configures a Logger.
type Option func(*Logger)

// WithDebug enables [TT] DEBUG lines.
func WithDebug(enabled bool) Option {
	return func(l *Logger) { l.debug = enabled }
}

// WithColor renders the severity tags with terminal colors.
func WithColor(enabled bool) Option {
	return func(l *Logger) { l.styled = enabled }
}

// New creates a console logger writing to w.
// Debug output follows ECUCI_DEBUG_LOG unless overridden with WithDebug.
func New(w io.Writer, opts ...Option) *Logger {
	l := &Logger{w: w, debug: logging.DebugFromEnv()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Discard returns a logger that drops every line.
func Discard() *Logger {
	return New(io.Discard)
}

// Info logs an informational line. Like Warn, Error and Debug it formats
// with fmt; without args the format is written as is.
func (l *Logger) Info(format string, args ...any) {
	l.annotate(InfoPrefix, infoStyle, format, args...)
}

// Warn logs a warning line.
func (l *Logger) Warn(format string, args ...any) {
	l.annotate(WarnPrefix, warnStyle, format, args...)
}

// Error logs an error line.
func (l *Logger) Error(format string, args ...any) {
	l.annotate(ErrorPrefix, errorStyle, format, args...)
}

// Debug logs a debug line when debug output is enabled.
func (l *Logger) Debug(format string, args ...any) {
	if !l.debug {
		return
	}
	l.annotate(DebugPrefix, debugStyle, format, args...)
}

// ComException logs a failed automation call together with the FAQ link.
func (l *Logger) ComException(err error) {
	msg := wordwrap.String(err.Error(), comWrapWidth)
	l.Error("Caught ComException: %s\nFor further information see FAQ: %s", msg, FAQURL)
	logging.Warn("COM exception", "error", err)
}

// Log writes a plain line without a prefix.
func (l *Logger) Log(format string, args ...any) {
	l.write(formatMessage(format, args...) + "\n")
}

// DebugEnabled reports whether debug lines are written.
func (l *Logger) DebugEnabled() bool {
	return l.debug
}

// Writer exposes the underlying writer for child processes.
func (l *Logger) Writer() io.Writer {
	return l.w
}

func (l *Logger) annotate(prefix string, style lipgloss.Style, format string, args ...any) {
	if l.styled {
		prefix = style.Render(strings.TrimSuffix(prefix, " ")) + " "
	}
	l.write(prefix + formatMessage(format, args...) + "\n")
}

func (l *Logger) write(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := io.WriteString(l.w, s); err != nil {
		logging.Warn("problem with writing into console log", "error", err)
	}
}

func formatMessage(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
