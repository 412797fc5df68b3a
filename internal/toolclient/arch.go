package toolclient

import (
	"debug/pe"
	"runtime"
	"strings"

	"github.com/newhook/ecuci/internal/logging"
)

// is64BitHost reports whether this agent runs a 64-bit build.
func is64BitHost() bool {
	return strings.HasSuffix(runtime.GOARCH, "64")
}

// is64BitExecutable reads the PE header of path.
func is64BitExecutable(path string) (bool, error) {
	f, err := pe.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	switch f.Machine {
	case pe.IMAGE_FILE_MACHINE_AMD64, pe.IMAGE_FILE_MACHINE_ARM64, pe.IMAGE_FILE_MACHINE_IA64:
		return true, nil
	}
	return false, nil
}

// checkArchitecture reports whether path can be automated from this agent.
// A 64-bit agent drives both architectures; a 32-bit agent only 32-bit tools.
// Unreadable executables are left to the launch step to report.
func checkArchitecture(path string, host64 bool) bool {
	if host64 {
		return true
	}
	is64, err := is64BitExecutable(path)
	if err != nil {
		logging.Debug("skipping architecture check", "path", path, "error", err)
		return true
	}
	return !is64
}
