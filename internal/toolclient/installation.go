package toolclient

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/newhook/ecuci/internal/build"
	"github.com/newhook/ecuci/internal/com"
)

// Executable names inside an installation home.
const (
	ETExecutable = "ECU-TEST.exe"
	TSExecutable = "Tool-Server.exe"
	tsSubDir     = "ToolServer"
)

// Installation is a configured ecu.test installation on the agent.
type Installation struct {
	Name string
	Home string
	// Executable overrides Home/ECU-TEST.exe when set.
	Executable string
	ProgID     string
	// COMTimeout bounds a single automation request in seconds.
	COMTimeout int
}

// Installations looks up configured installations by name.
type Installations interface {
	Installation(name string) (Installation, bool)
}

// InstallationList is an Installations backed by a slice.
type InstallationList []Installation

// Installation returns the installation called name.
func (l InstallationList) Installation(name string) (Installation, bool) {
	for _, inst := range l {
		if inst.Name == name {
			return inst, true
		}
	}
	return Installation{}, false
}

// ResolveInstallation finds the installation called name after expanding it
// against env. The returned installation has its paths expanded too.
func ResolveInstallation(installs Installations, name string, env build.EnvVars) (Installation, error) {
	expName := strings.TrimSpace(env.Expand(name))
	if installs != nil {
		if inst, ok := installs.Installation(expName); ok {
			inst.Name = expName
			inst.Home = env.Expand(inst.Home)
			inst.Executable = env.Expand(inst.Executable)
			return inst, nil
		}
	}
	return Installation{}, build.NewPluginError("The selected ECU-TEST installation is not configured for this node!")
}

// Property returns the COM property of the installation.
func (i Installation) Property() com.Property {
	return com.Property{ProgID: i.ProgID, Timeout: i.COMTimeout}.WithDefaults()
}

// ETExecutablePath returns the ecu.test executable, empty if it is not known.
func (i Installation) ETExecutablePath() string {
	if i.Executable != "" {
		return i.Executable
	}
	if i.Home == "" {
		return ""
	}
	return filepath.Join(i.Home, ETExecutable)
}

// TSExecutablePath returns the Tool-Server executable. Since ecu.test 6.5 it
// lives in the installation home, before that in the ToolServer sub directory.
// It returns empty when neither exists.
func (i Installation) TSExecutablePath() string {
	home := i.Home
	if home == "" && i.Executable != "" {
		home = filepath.Dir(i.Executable)
	}
	if home == "" {
		return ""
	}
	for _, p := range []string{
		filepath.Join(home, TSExecutable),
		filepath.Join(home, tsSubDir, TSExecutable),
	} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
