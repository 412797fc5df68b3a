package build

import (
	"errors"
	"fmt"
)

// ErrPlugin matches every PluginError with errors.Is.
var ErrPlugin = errors.New("plugin error")

// PluginError is a configuration error that aborts the build step before any
// process interaction takes place.
type PluginError struct {
	Msg string
	Err error
}

// NewPluginError formats a PluginError.
func NewPluginError(format string, args ...any) *PluginError {
	return &PluginError{Msg: fmt.Sprintf(format, args...)}
}

func (e *PluginError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *PluginError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrPlugin) true for every PluginError.
func (e *PluginError) Is(target error) bool {
	return target == ErrPlugin
}

// CheckOS fails on Unix agents, where the Windows-only tool cannot run.
func CheckOS(launcher Launcher) error {
	if launcher.IsUnix() {
		return NewPluginError("Trying to build Windows related configuration on an Unix-based system! " +
			"Restrict the project to be built on a particular Windows agent or master.")
	}
	return nil
}
