// Package logging provides structured logging using slog.
// Logs are written to .ecuci/debug.log in append mode.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

const (
	// LogFileName is the name of the debug log file.
	LogFileName = "debug.log"
	// ConfigDir is the directory name for project configuration.
	ConfigDir = ".ecuci"
	// DebugEnvVar enables debug level records (and [TT] DEBUG console lines) when set to true.
	DebugEnvVar = "ECUCI_DEBUG_LOG"
)

var (
	// defaultLogger is the package-level logger.
	defaultLogger *slog.Logger
	// logFile is the file handle for the log file.
	logFile *os.File
	// level is shared by every handler created by Init so SetDebug applies immediately.
	level = new(slog.LevelVar)
	// mu protects concurrent access to the logger.
	mu sync.RWMutex
)

func init() {
	level.Set(slog.LevelInfo)
	if DebugFromEnv() {
		level.Set(slog.LevelDebug)
	}
}

// Init initializes the logger with the project root path.
// Logs are written to <projectRoot>/.ecuci/debug.log in append mode.
// If projectRoot is empty, logging is disabled (writes to io.Discard).
func Init(projectRoot string) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}

	var w io.Writer = io.Discard
	if projectRoot != "" {
		dir := filepath.Join(projectRoot, ConfigDir)
		// Fall back to discard if the directory or file cannot be created.
		if err := os.MkdirAll(dir, 0755); err == nil {
			f, err := os.OpenFile(filepath.Join(dir, LogFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err == nil {
				logFile = f
				w = f
			}
		}
	}

	defaultLogger = newLogger(w)
	return nil
}

// InitWriter initializes the logger to write JSON records to w.
// Used by tests and by commands that run outside of a project.
func InitWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = newLogger(w)
}

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// SetDebug toggles debug level records.
func SetDebug(enabled bool) {
	if enabled {
		level.Set(slog.LevelDebug)
		return
	}
	level.Set(slog.LevelInfo)
}

// IsDebug reports whether debug level records are enabled.
func IsDebug() bool {
	return level.Level() <= slog.LevelDebug
}

// DebugFromEnv reports whether ECUCI_DEBUG_LOG is set to a true value.
func DebugFromEnv() bool {
	enabled, err := strconv.ParseBool(os.Getenv(DebugEnvVar))
	return err == nil && enabled
}

// Close closes the log file.
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		err := logFile.Close()
		logFile = nil
		return err
	}
	return nil
}

// Logger returns the default logger.
// If not initialized, returns a no-op logger.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()

	if defaultLogger == nil {
		return slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return defaultLogger
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

// Warn logs at warning level.
func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

// ForBuild returns a logger carrying the build id and number.
func ForBuild(buildID string, number int) *slog.Logger {
	return Logger().With("build", buildID, "number", number)
}
