// Package build models the CI host a build step runs in: the build record and
// its result, the workspace, environment variables, the process launcher and
// the remote execution channel.
package build

import (
	"fmt"
	"strings"
)

// Result is the outcome of a build. Results are ordered from best to worst.
type Result int

const (
	Success Result = iota
	Unstable
	Failure
	NotBuilt
	Aborted
)

var resultNames = map[Result]string{
	Success:  "SUCCESS",
	Unstable: "UNSTABLE",
	Failure:  "FAILURE",
	NotBuilt: "NOT_BUILT",
	Aborted:  "ABORTED",
}

func (r Result) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Result(%d)", int(r))
}

// IsWorseThan reports whether r is a worse outcome than other.
func (r Result) IsWorseThan(other Result) bool {
	return r > other
}

// IsBetterOrEqualTo reports whether r is at least as good as other.
func (r Result) IsBetterOrEqualTo(other Result) bool {
	return r <= other
}

// ParseResult parses the upper case result name used in build records.
func ParseResult(s string) (Result, error) {
	for r, name := range resultNames {
		if strings.EqualFold(name, s) {
			return r, nil
		}
	}
	return Success, fmt.Errorf("unknown build result %q", s)
}
