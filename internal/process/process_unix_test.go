//go:build !windows

package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePSOutput(t *testing.T) {
	out := `    1     0 /sbin/init
  100     1 /usr/bin/ECU-TEST.exe --workspaceDir /tmp/my ws
  bad line
  101   100
`
	procs := parsePSOutput(out)
	assert.Equal(t, []Process{
		{PID: 1, PPID: 0, CommandLine: "/sbin/init"},
		{PID: 100, PPID: 1, CommandLine: "/usr/bin/ECU-TEST.exe --workspaceDir /tmp/my ws"},
	}, procs)
}
