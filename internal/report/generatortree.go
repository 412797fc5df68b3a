package report

import (
	"path/filepath"
	"strings"
)

// GeneratorPattern selects the output of templateName below a test report
// directory.
func GeneratorPattern(templateName string) string {
	return "**/" + templateName + "/**"
}

// BuildGeneratorReport indexes archiveDir/templateName with one child per test
// report directory. It returns nil when nothing was archived for the template.
func BuildGeneratorReport(ids *IDGenerator, archiveDir, templateName string) (*GeneratorReport, error) {
	templateDir := filepath.Join(archiveDir, templateName)
	if !IsDir(templateDir) {
		return nil, nil
	}
	size, err := DirSize(templateDir)
	if err != nil {
		return nil, err
	}
	root := &GeneratorReport{Node: Node{ID: ids.Next(), Title: templateName, FileName: templateName, FileSize: size}}

	subDirs, err := SubDirs(templateDir)
	if err != nil {
		return nil, err
	}
	for _, dir := range subDirs {
		size, err := DirSize(dir)
		if err != nil {
			return nil, err
		}
		name := filepath.Base(dir)
		root.AddSubReport(&GeneratorReport{Node: Node{
			ID:       ids.Next(),
			Title:    strings.TrimSuffix(name, filepath.Ext(name)),
			FileName: templateName + "/" + name,
			FileSize: size,
		}})
	}
	return root, nil
}
