// Package report builds the report trees attached to a build: ecu.test log
// reports and generator reports, both indexing files archived below the build
// or project root.
package report

import (
	"path/filepath"
	"strconv"

	"github.com/newhook/ecuci/internal/logparser"
)

// Archive directory names, relative to the build or project root.
const (
	LogArchiveDir       = "ecutest-logs"
	GeneratorArchiveDir = "generator-reports"
)

// Fixed ecu.test log file names.
const (
	InfoLogName  = "ECU_TEST_OUT.log"
	ErrorLogName = "ECU_TEST_ERR.log"
)

// Node is the part shared by all reports indexing an archived file or
// directory.
type Node struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
}

// archivePath resolves the node below rootDir/archiveDir.
func (n Node) archivePath(rootDir, archiveDir string) string {
	return filepath.Join(rootDir, archiveDir, filepath.FromSlash(n.FileName))
}

// LogReport indexes one archived log file or test report directory.
type LogReport struct {
	Node
	Logs            []logparser.Annotation `json:"logs,omitempty"`
	WarningLogCount int                    `json:"warningLogCount"`
	ErrorLogCount   int                    `json:"errorLogCount"`
	SubReports      []*LogReport           `json:"subReports,omitempty"`
}

// AddSubReport appends a child report.
func (r *LogReport) AddSubReport(sub *LogReport) {
	r.SubReports = append(r.SubReports, sub)
}

// ArchivePath returns the archived file below rootDir.
func (r *LogReport) ArchivePath(rootDir string) string {
	return r.archivePath(rootDir, LogArchiveDir)
}

// TotalWarningCount sums the warnings of r and all of its descendants.
func (r *LogReport) TotalWarningCount() int {
	total := r.WarningLogCount
	for _, sub := range r.SubReports {
		total += sub.TotalWarningCount()
	}
	return total
}

// TotalErrorCount sums the errors of r and all of its descendants.
func (r *LogReport) TotalErrorCount() int {
	total := r.ErrorLogCount
	for _, sub := range r.SubReports {
		total += sub.TotalErrorCount()
	}
	return total
}

// WarningLogs returns the warning annotations of r.
func (r *LogReport) WarningLogs() []logparser.Annotation {
	return r.logs(logparser.Warning)
}

// ErrorLogs returns the error annotations of r.
func (r *LogReport) ErrorLogs() []logparser.Annotation {
	return r.logs(logparser.Error)
}

func (r *LogReport) logs(sev logparser.Severity) []logparser.Annotation {
	var out []logparser.Annotation
	for _, a := range r.Logs {
		if a.Severity == sev {
			out = append(out, a)
		}
	}
	return out
}

// GeneratorReport indexes the archived output of one report generator
// template, with one child per test report directory.
type GeneratorReport struct {
	Node
	SubReports []*GeneratorReport `json:"subReports,omitempty"`
}

// AddSubReport appends a child report.
func (r *GeneratorReport) AddSubReport(sub *GeneratorReport) {
	r.SubReports = append(r.SubReports, sub)
}

// ArchivePath returns the archived directory below rootDir.
func (r *GeneratorReport) ArchivePath(rootDir string) string {
	return r.archivePath(rootDir, GeneratorArchiveDir)
}

// IDGenerator hands out report ids unique within one publisher run.
type IDGenerator struct {
	next int
}

// Next returns the next id.
func (g *IDGenerator) Next() string {
	g.next++
	return strconv.Itoa(g.next)
}

// Walk visits r and its descendants in pre-order with their depth.
func Walk[T interface{ children() []T }](root T, fn func(r T, depth int)) {
	var visit func(r T, depth int)
	visit = func(r T, depth int) {
		fn(r, depth)
		for _, sub := range r.children() {
			visit(sub, depth+1)
		}
	}
	visit(root, 0)
}

func (r *LogReport) children() []*LogReport             { return r.SubReports }
func (r *GeneratorReport) children() []*GeneratorReport { return r.SubReports }
