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

func TestLogPublisherPlainMode(t *testing.T) {
	tests := []struct {
		name       string
		strategy   LogPublisher
		info, errs string
		want       build.Result
		message    string
	}{
		{
			name:     "errors fail",
			strategy: LogPublisher{FailedOnError: true, UnstableOnWarning: true},
			info:     warnLog, errs: errorLog,
			want:    build.Failure,
			message: "-> 2 error(s) found in the ECU-TEST logs, setting build status to FAILURE!",
		},
		{
			name:     "warnings unstable",
			strategy: LogPublisher{UnstableOnWarning: true},
			info:     warnLog, errs: errorLog,
			want:    build.Unstable,
			message: "-> 1 warning(s) found in the ECU-TEST logs, setting build status to UNSTABLE!",
		},
		{
			name:     "report only",
			strategy: LogPublisher{},
			info:     warnLog, errs: errorLog,
			want:    build.Success,
			message: "-> 1 warning(s) and 2 error(s) found in the ECU-TEST logs.",
		},
		{
			name:     "clean logs",
			strategy: LogPublisher{FailedOnError: true, UnstableOnWarning: true},
			info:     cleanLog, errs: cleanLog,
			want:    build.Success,
			message: "-> 0 warning(s) and 0 error(s) found in the ECU-TEST logs.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			writeFile(t, filepath.Join(f.step.Workspace, report.InfoLogName), tt.info)
			writeFile(t, filepath.Join(f.step.Workspace, report.ErrorLogName), tt.errs)

			strategy := tt.strategy
			p := New(DefaultFlags(), &strategy, nil)
			require.NoError(t, p.Perform(context.Background(), f.step))

			assert.Equal(t, tt.want, f.step.Run.Result())
			out := f.out.String()
			assert.Contains(t, out, tt.message)
			assert.Contains(t, out, "ECU-TEST logs published successfully.")

			action, ok := build.Action[*report.LogAction](f.step.Run)
			require.True(t, ok)
			assert.False(t, action.ProjectLevel)
			require.Len(t, action.Reports, 2)
			assert.Equal(t, report.InfoLogName, action.Reports[0].Title)
			assert.Equal(t, report.ErrorLogName, action.Reports[1].Title)
			assert.FileExists(t, filepath.Join(p.ArchiveTarget(f.step.Run), report.ErrorLogName))
		})
	}
}

func TestLogPublisherUsesSettingsDir(t *testing.T) {
	f := newFixture(t)
	settings := filepath.Join(f.step.Workspace, "settings")
	writeFile(t, filepath.Join(settings, report.ErrorLogName), errorLog)
	writeFile(t, filepath.Join(f.step.Workspace, report.ErrorLogName), cleanLog)
	f.step.Run.AddAction(&build.ToolEnvAction{ToolName: "ET", SettingsDir: settings})

	p := New(DefaultFlags(), &LogPublisher{}, nil)
	require.NoError(t, p.Perform(context.Background(), f.step))

	action, ok := build.Action[*report.LogAction](f.step.Run)
	require.True(t, ok)
	require.Len(t, action.Reports, 1)
	assert.Equal(t, 2, action.TotalErrorCount())
	assert.Contains(t, f.out.String(), "- Archiving log file: "+filepath.Join(settings, report.ErrorLogName))
}

func TestLogPublisherEmptyResults(t *testing.T) {
	tests := []struct {
		name         string
		allowMissing bool
		want         build.Result
	}{
		{"not allowed", false, build.Failure},
		{"allowed", true, build.Success},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			flags := DefaultFlags()
			flags.AllowMissing = tt.allowMissing

			require.NoError(t, New(flags, &LogPublisher{}, nil).Perform(context.Background(), f.step))
			assert.Equal(t, tt.want, f.step.Run.Result())
			out := f.out.String()
			assert.Contains(t, out, "No log results found.")
			if tt.allowMissing {
				assert.Contains(t, out, "ECU-TEST logs published successfully.")
			} else {
				assert.Contains(t, out, "[TT] ERROR: Empty log results are not allowed, setting build status to FAILURE!")
				assert.NotContains(t, out, "published successfully")
			}
			_, ok := build.Action[*report.LogAction](f.step.Run)
			assert.False(t, ok)
		})
	}
}

func TestLogPublisherTestSpecific(t *testing.T) {
	f := newFixture(t)
	f.addTestRun(t, "TestA", map[string]string{
		report.ErrorLogName:                        errorLog,
		report.InfoLogName:                         warnLog,
		filepath.Join("Report Sub", report.ErrorLogName): errorLog,
		filepath.Join("Report Sub", report.InfoLogName):  warnLog,
		"result.trf": "x",
	})
	f.addTestRun(t, "TestEmpty", map[string]string{"result.trf": "x"})

	strategy := &LogPublisher{TestSpecific: true, FailedOnError: true}
	p := New(DefaultFlags(), strategy, nil)
	require.NoError(t, p.Perform(context.Background(), f.step))

	out := f.out.String()
	assert.Contains(t, out, "-> Archived 1 sub-report(s).")
	assert.Contains(t, out, "-> 4 error(s) found in the ECU-TEST logs, setting build status to FAILURE!")
	assert.Equal(t, build.Failure, f.step.Run.Result())

	action, ok := build.Action[*report.LogAction](f.step.Run)
	require.True(t, ok)
	require.Len(t, action.Reports, 1)
	root := action.Reports[0]
	assert.Equal(t, "TestA", root.Title)

	var titles []string
	report.Walk(root, func(r *report.LogReport, depth int) { titles = append(titles, r.Title) })
	assert.Equal(t, []string{
		"TestA",
		report.ErrorLogName,
		report.InfoLogName,
		"Sub/" + report.ErrorLogName,
		"Sub/" + report.InfoLogName,
	}, titles)

	archived := filepath.Join(p.ArchiveTarget(f.step.Run), "TestA", "Report Sub", report.InfoLogName)
	assert.FileExists(t, archived)
	assert.NoDirExists(t, filepath.Join(p.ArchiveTarget(f.step.Run), "TestEmpty"))
}

func TestLogPublisherArchivingDisabled(t *testing.T) {
	f := newFixture(t)
	writeFile(t, filepath.Join(f.step.Workspace, report.ErrorLogName), errorLog)

	flags := DefaultFlags()
	flags.Archiving = false
	require.NoError(t, New(flags, &LogPublisher{FailedOnError: true}, nil).Perform(context.Background(), f.step))

	assert.Contains(t, f.out.String(), "Archiving ECU-TEST logs is disabled.")
	assert.Equal(t, build.Success, f.step.Run.Result())
	_, ok := build.Action[*report.LogAction](f.step.Run)
	assert.False(t, ok)
}

func TestLogPublisherProjectLevel(t *testing.T) {
	f := newFixture(t)
	writeFile(t, filepath.Join(f.step.Workspace, report.InfoLogName), warnLog)
	history := &historyStub{}

	flags := DefaultFlags()
	flags.KeepAll = false
	p := New(flags, &LogPublisher{}, history)
	require.NoError(t, p.Perform(context.Background(), f.step))

	action, ok := build.Action[*report.LogAction](f.step.Run)
	require.True(t, ok)
	assert.True(t, action.ProjectLevel)
	assert.Len(t, history.calls, 1)
	assert.FileExists(t, filepath.Join(f.step.Run.ProjectDir, report.LogArchiveDir, report.InfoLogName))
}

func TestLogPublisherSkipsFailedBuild(t *testing.T) {
	f := newFixture(t)
	writeFile(t, filepath.Join(f.step.Workspace, report.InfoLogName), warnLog)
	f.step.Run.SetResult(build.Failure)

	require.NoError(t, New(DefaultFlags(), &LogPublisher{}, nil).Perform(context.Background(), f.step))
	assert.Contains(t, f.out.String(), "Skipping publisher since build result is FAILURE")
	assert.NotContains(t, f.out.String(), "Archiving log file")
}
