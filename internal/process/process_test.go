package process_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/newhook/ecuci/internal/process"
	"github.com/newhook/ecuci/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listerOf(procs ...process.Process) *testutil.ProcessListerMock {
	return &testutil.ProcessListerMock{
		GetProcessListFunc: func(ctx context.Context) ([]process.Process, error) {
			return procs, nil
		},
	}
}

func TestCheck(t *testing.T) {
	procs := []process.Process{
		{PID: 10, PPID: 1, CommandLine: `C:\Program Files\ECU-TEST 2024.1\ECU-TEST.exe --startupAutomated=CreateDirs`},
		{PID: 11, PPID: 10, CommandLine: `C:\Program Files\ECU-TEST 2024.1\ECU-TEST_COM.exe`},
		{PID: 20, PPID: 1, CommandLine: `C:\Tools\tool-server.EXE --port 5017`},
		{PID: 30, PPID: 1, CommandLine: `explorer.exe`},
	}

	tests := []struct {
		name  string
		names []string
		want  []string
	}{
		{"ecu.test", process.ETProcesses, []string{"ECU-TEST.exe", "ECU-TEST_COM.exe"}},
		{"tool-server case insensitive", process.TSProcesses, []string{"Tool-Server.exe"}},
		{"nothing", []string{"notepad.exe"}, nil},
		{"empty name ignored", []string{""}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			killer := &testutil.ProcessKillerMock{}
			c := &process.Checker{Lister: listerOf(procs...), Killer: killer}

			found, err := c.Check(context.Background(), tt.names, false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, found)
			assert.Empty(t, killer.KillCalls())
		})
	}
}

func TestCheckKillsTree(t *testing.T) {
	procs := []process.Process{
		{PID: 10, PPID: 1, CommandLine: `ECU-TEST.exe`},
		{PID: 11, PPID: 10, CommandLine: `python.exe worker`},
		{PID: 12, PPID: 11, CommandLine: `child.exe`},
		{PID: 40, PPID: 1, CommandLine: `other.exe`},
	}
	killer := &testutil.ProcessKillerMock{}
	c := &process.Checker{Lister: listerOf(procs...), Killer: killer}

	found, err := c.Check(context.Background(), []string{"ecu-test.exe"}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"ecu-test.exe"}, found)

	var killed []int
	for _, call := range killer.KillCalls() {
		killed = append(killed, call.Pid)
	}
	assert.Equal(t, []int{12, 11, 10}, killed, "children are killed before parents")
}

func TestCheckKillErrorsAreCollected(t *testing.T) {
	killer := &testutil.ProcessKillerMock{
		KillFunc: func(ctx context.Context, pid int) error { return errors.New("access denied") },
	}
	c := &process.Checker{Lister: listerOf(process.Process{PID: 5, CommandLine: "Tool-Server.exe"}), Killer: killer}

	found, err := c.Check(context.Background(), process.TSProcesses, true)
	assert.Equal(t, []string{"Tool-Server.exe"}, found)
	assert.ErrorContains(t, err, "access denied")
}

func TestCheckListError(t *testing.T) {
	lister := &testutil.ProcessListerMock{
		GetProcessListFunc: func(ctx context.Context) ([]process.Process, error) {
			return nil, errors.New("ps missing")
		},
	}
	c := &process.Checker{Lister: lister, Killer: &testutil.ProcessKillerMock{}}

	running, err := c.IsRunning(context.Background(), process.ETProcesses)
	assert.False(t, running)
	assert.ErrorContains(t, err, "failed to get process list")
}

func TestSystemCheckerFindsAndKills(t *testing.T) {
	if os.Getenv("CI") != "" {
		t.Skip("Skipping test that spawns processes in CI")
	}
	if runtime.GOOS == "windows" {
		t.Skip("Skipping process spawning test on Windows")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.Command("sleep", "37")
	require.NoError(t, cmd.Start(), "failed to start test process")
	done := make(chan struct{})
	go func() {
		cmd.Wait()
		close(done)
	}()

	c := process.NewChecker()
	running, err := c.IsRunning(ctx, []string{"sleep 37"})
	require.NoError(t, err)
	require.True(t, running, "test process should be running")

	_, err = c.Check(ctx, []string{"sleep 37"}, true)
	require.NoError(t, err)

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatalf("process %s was not killed", strconv.Itoa(cmd.Process.Pid))
	}
}
