package report

// Kinds of report trees attached to a build.
const (
	KindLogs       = "logs"
	KindGenerators = "generators"
)

// LogAction attaches log reports to a build. ProjectLevel actions index the
// archive shared by all builds of the project and are replaced by newer ones.
type LogAction struct {
	ProjectLevel bool         `json:"projectLevel"`
	Reports      []*LogReport `json:"reports"`
}

// Add appends reports.
func (a *LogAction) Add(reports ...*LogReport) {
	a.Reports = append(a.Reports, reports...)
}

// TotalWarningCount sums the warnings of all reports.
func (a *LogAction) TotalWarningCount() int {
	total := 0
	for _, r := range a.Reports {
		total += r.TotalWarningCount()
	}
	return total
}

// TotalErrorCount sums the errors of all reports.
func (a *LogAction) TotalErrorCount() int {
	total := 0
	for _, r := range a.Reports {
		total += r.TotalErrorCount()
	}
	return total
}

// GeneratorAction attaches generator reports to a build.
type GeneratorAction struct {
	ProjectLevel bool               `json:"projectLevel"`
	Reports      []*GeneratorReport `json:"reports"`
}

// Add appends reports.
func (a *GeneratorAction) Add(reports ...*GeneratorReport) {
	a.Reports = append(a.Reports, reports...)
}
