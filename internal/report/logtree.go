package report

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/newhook/ecuci/internal/logparser"
)

// LogTreeBuilder turns archived ecu.test logs into LogReport trees.
type LogTreeBuilder struct {
	IDs *IDGenerator
	// MaxAnnotations caps the annotations kept per severity and log file.
	MaxAnnotations int
	// TestSpecific titles nested sub-project logs with their directory.
	TestSpecific bool
}

// NewLogTreeBuilder creates a builder drawing ids from ids.
func NewLogTreeBuilder(ids *IDGenerator, testSpecific bool) *LogTreeBuilder {
	return &LogTreeBuilder{IDs: ids, MaxAnnotations: logparser.DefaultMaxAnnotations, TestSpecific: testSpecific}
}

// Traverse builds the report of one archived test report directory. The
// error log and the info log of the directory become children when both
// exist, followed by the logs of nested sub-project reports.
func (b *LogTreeBuilder) Traverse(archiveTargetDir string) (*LogReport, error) {
	size, err := DirSize(archiveTargetDir)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(archiveTargetDir)
	root := &LogReport{Node: Node{ID: b.IDs.Next(), Title: name, FileName: name, FileSize: size}}

	baseDir := filepath.Dir(archiveTargetDir)
	errorLog := filepath.Join(archiveTargetDir, ErrorLogName)
	infoLog := filepath.Join(archiveTargetDir, InfoLogName)
	if Exists(errorLog) && Exists(infoLog) {
		errReport, err := b.ParseLogFile(errorLog, baseDir)
		if err != nil {
			return nil, err
		}
		root.AddSubReport(errReport)
		infoReport, err := b.ParseLogFile(infoLog, baseDir)
		if err != nil {
			return nil, err
		}
		root.AddSubReport(infoReport)
	}

	if err := b.traverseSubReports(root, baseDir, archiveTargetDir); err != nil {
		return nil, err
	}
	return root, nil
}

// traverseSubReports attaches the logs found in each sub-directory of dir.
// Error logs become leaves, info logs carry the reports nested below them.
func (b *LogTreeBuilder) traverseSubReports(parent *LogReport, baseDir, dir string) error {
	subDirs, err := SubDirs(dir)
	if err != nil {
		return err
	}
	for _, subDir := range subDirs {
		if logFile := filepath.Join(subDir, ErrorLogName); Exists(logFile) {
			sub, err := b.ParseLogFile(logFile, baseDir)
			if err != nil {
				return err
			}
			parent.AddSubReport(sub)
		}
		if logFile := filepath.Join(subDir, InfoLogName); Exists(logFile) {
			sub, err := b.ParseLogFile(logFile, baseDir)
			if err != nil {
				return err
			}
			parent.AddSubReport(sub)
			if err := b.traverseSubReports(sub, baseDir, subDir); err != nil {
				return err
			}
		}
	}
	return nil
}

// ParseLogFile parses one log into a leaf report. The file name is stored
// relative to baseDir.
func (b *LogTreeBuilder) ParseLogFile(logFile, baseDir string) (*LogReport, error) {
	info, err := os.Stat(logFile)
	if err != nil {
		return nil, err
	}
	rel, err := filepath.Rel(baseDir, logFile)
	if err != nil {
		return nil, err
	}

	parser := logparser.New(logFile)
	parser.MaxAnnotations = b.MaxAnnotations
	return &LogReport{
		Node: Node{
			ID:       b.IDs.Next(),
			Title:    b.title(logFile, baseDir),
			FileName: filepath.ToSlash(rel),
			FileSize: info.Size(),
		},
		Logs:            parser.Parse(),
		WarningLogCount: parser.ParseLogCount(logparser.Warning),
		ErrorLogCount:   parser.ParseLogCount(logparser.Error),
	}, nil
}

// title names nested sub-project logs "<project>/<file>" with the "Report "
// prefix of the directory removed.
func (b *LogTreeBuilder) title(logFile, baseDir string) string {
	dir := filepath.Dir(logFile)
	if !b.TestSpecific || filepath.Clean(filepath.Dir(dir)) == filepath.Clean(baseDir) {
		return filepath.Base(logFile)
	}
	return strings.TrimPrefix(filepath.Base(dir), "Report ") + "/" + filepath.Base(logFile)
}
