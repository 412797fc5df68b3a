// Package toolversion parses and compares ecu.test version strings such as
// "2024.1.0", "8.1.0.12345" or "2023.4.0#beta".
package toolversion

import (
	"fmt"
	"regexp"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

var (
	versionPattern = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(?:[.#](.*))?$`)
	zeroCore       = goversion.Must(goversion.NewVersion("0.0.0"))
)

// Version is a major.minor.micro version with an optional qualifier.
// A version without a qualifier sorts before the same version with one.
type Version struct {
	core      *goversion.Version
	qualifier string
	qualified bool
}

// New returns the version major.minor.micro without qualifier.
func New(major, minor, micro int) Version {
	return MustParse(fmt.Sprintf("%d.%d.%d", major, minor, micro))
}

// Parse parses <major>.<minor>.<micro>[.|#<qualifier>].
func Parse(s string) (Version, error) {
	trimmed := strings.TrimSpace(s)
	m := versionPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return Version{}, fmt.Errorf("version %q must be in form <major>.<minor>.<micro>.<qualifier>", s)
	}
	core, err := goversion.NewVersion(fmt.Sprintf("%s.%s.%s", m[1], m[2], m[3]))
	if err != nil {
		return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
	}
	qualified := len(trimmed) > len(m[1])+len(m[2])+len(m[3])+2
	return Version{core: core, qualifier: m[4], qualified: qualified}, nil
}

// MustParse is like Parse but panics on malformed input.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) coreVersion() *goversion.Version {
	if v.core == nil {
		return zeroCore
	}
	return v.core
}

func (v Version) segment(i int) int {
	return v.coreVersion().Segments()[i]
}

// Major returns the major version number.
func (v Version) Major() int { return v.segment(0) }

// Minor returns the minor version number.
func (v Version) Minor() int { return v.segment(1) }

// Micro returns the micro version number.
func (v Version) Micro() int { return v.segment(2) }

// Qualifier returns the build qualifier, empty if none.
func (v Version) Qualifier() string { return v.qualifier }

// Compare compares all parts including the qualifier, which is compared lexically.
func (v Version) Compare(o Version) int {
	if c := v.CompareWithoutQualifier(o); c != 0 {
		return c
	}
	switch {
	case v.qualified && !o.qualified:
		return 1
	case !v.qualified && o.qualified:
		return -1
	}
	return strings.Compare(v.qualifier, o.qualifier)
}

// CompareWithoutQualifier compares major, minor and micro.
func (v Version) CompareWithoutQualifier(o Version) int {
	return v.coreVersion().Compare(o.coreVersion())
}

// CompareWithoutMicro compares major and minor only.
func (v Version) CompareWithoutMicro(o Version) int {
	if c := compareInt(v.Major(), o.Major()); c != 0 {
		return c
	}
	return compareInt(v.Minor(), o.Minor())
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// MicroString formats major.minor.micro.
func (v Version) MicroString() string {
	return fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Micro())
}

// MinorString formats major.minor.
func (v Version) MinorString() string {
	return fmt.Sprintf("%d.%d", v.Major(), v.Minor())
}

func (v Version) String() string {
	if !v.qualified {
		return v.MicroString()
	}
	return v.MicroString() + "." + v.qualifier
}
