package publisher

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newhook/ecuci/internal/build"
	"github.com/newhook/ecuci/internal/report"
)

func TestCanContinue(t *testing.T) {
	tests := []struct {
		result      build.Result
		runOnFailed bool
		want        bool
	}{
		{build.Success, false, true},
		{build.Unstable, false, true},
		{build.Failure, false, false},
		{build.Aborted, false, false},
		{build.Failure, true, true},
		{build.NotBuilt, true, true},
		{build.Aborted, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.result.String(), func(t *testing.T) {
			p := &Publisher{Flags: Flags{RunOnFailed: tt.runOnFailed}}
			assert.Equal(t, tt.want, p.CanContinue(tt.result))
		})
	}
}

func TestIsSkipped(t *testing.T) {
	f := newFixture(t)
	p := New(DefaultFlags(), &LogPublisher{}, nil)

	skipped, err := p.IsSkipped(f.step, true)
	require.NoError(t, err)
	assert.False(t, skipped)

	f.step.Run.SetResult(build.Failure)
	skipped, err = p.IsSkipped(f.step, false)
	require.NoError(t, err)
	assert.True(t, skipped)
	assert.Contains(t, f.out.String(), "Skipping publisher since build result is FAILURE")
}

func TestIsSkippedOnUnix(t *testing.T) {
	f := newFixture(t)
	f.launcher.IsUnixFunc = func() bool { return true }
	p := New(DefaultFlags(), &GeneratorPublisher{}, nil)

	skipped, err := p.IsSkipped(f.step, true)
	assert.True(t, skipped)
	assert.ErrorIs(t, err, build.ErrPlugin)
}

func TestArchiveTarget(t *testing.T) {
	f := newFixture(t)
	run := f.step.Run

	p := New(DefaultFlags(), &LogPublisher{}, nil)
	assert.Equal(t, filepath.Join(run.RootDir, report.LogArchiveDir), p.ArchiveTarget(run))

	p.KeepAll = false
	assert.Equal(t, filepath.Join(run.ProjectDir, report.LogArchiveDir), p.ArchiveTarget(run))

	g := New(DefaultFlags(), &GeneratorPublisher{}, nil)
	assert.Equal(t, filepath.Join(run.RootDir, report.GeneratorArchiveDir), g.ArchiveTarget(run))
}

func TestResetProjectArchive(t *testing.T) {
	f := newFixture(t)
	history := &historyStub{}
	p := New(Flags{Archiving: true}, &LogPublisher{}, history)

	stale := filepath.Join(p.ArchiveTarget(f.step.Run), "old", report.InfoLogName)
	writeFile(t, stale, cleanLog)

	require.NoError(t, p.ResetProjectArchive(context.Background(), f.step.Run))
	assert.NoFileExists(t, stale)
	assert.Equal(t, [][2]string{{report.KindLogs, f.step.Run.ID}}, history.calls)

	p.KeepAll = true
	history.calls = nil
	require.NoError(t, p.ResetProjectArchive(context.Background(), f.step.Run))
	assert.Empty(t, history.calls)
}

func TestReportDirsSkipsMissing(t *testing.T) {
	f := newFixture(t)
	dir := f.addTestRun(t, "TestA", map[string]string{"a.trf": "x"})
	f.step.Run.AddAction(&build.TestEnvAction{TestName: "gone", TestReportDir: filepath.Join(f.step.Workspace, "gone")})

	p := New(DefaultFlags(), &LogPublisher{}, nil)
	dirs, err := p.ReportDirs(f.step)
	require.NoError(t, err)
	assert.Equal(t, []string{dir}, dirs)
}

func TestReportDirsDownstream(t *testing.T) {
	f := newFixture(t)
	writeFile(t, filepath.Join(f.step.Workspace, "et", "TestReports", "Run1", "a.trf"), "x")
	writeFile(t, filepath.Join(f.step.Workspace, "et", "TestReports", "Run2", "b.trf"), "x")

	p := New(Flags{Downstream: true, Workspace: "et"}, &LogPublisher{}, nil)
	dirs, err := p.ReportDirs(f.step)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(f.step.Workspace, "et", "TestReports", "Run1"),
		filepath.Join(f.step.Workspace, "et", "TestReports", "Run2"),
	}, dirs)
}

func TestReportFilesNewestFirst(t *testing.T) {
	f := newFixture(t)
	first := f.addTestRun(t, "TestA", map[string]string{"a.trf": "x", "Job_1/Job_1.trf": "x"})
	second := f.addTestRun(t, "TestB", map[string]string{"b.trf": "x"})

	p := New(DefaultFlags(), &GeneratorPublisher{}, nil)
	files, err := p.ReportFiles(f.step)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(second, "b.trf"),
		filepath.Join(first, "a.trf"),
	}, files)
}

func TestPerformPluginErrorFailsBuild(t *testing.T) {
	f := newFixture(t)
	p := New(DefaultFlags(), &GeneratorPublisher{}, nil)

	err := p.Perform(context.Background(), f.step)
	require.ErrorIs(t, err, build.ErrPlugin)
	assert.Equal(t, build.Failure, f.step.Run.Result())
	assert.Contains(t, f.out.String(), "[TT] ERROR: Empty test results are not allowed, setting build status to FAILURE!")
}
