package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		rel     string
		want    bool
	}{
		{"**/HTML/**", "HTML/index.html", true},
		{"**/HTML/**", "sub/HTML/css/style.css", true},
		{"**/HTML/**", "HTMLX/index.html", false},
		{"**/HTML/**", "sub/index.html", false},
		{"**/ECU_TEST_ERR.log", "ECU_TEST_ERR.log", true},
		{"**/ECU_TEST_ERR.log", "a/b/ECU_TEST_ERR.log", true},
		{"**/ECU_TEST_ERR.log", "a/ECU_TEST_OUT.log", false},
		{"**/*.trf", "Report/test.trf", true},
		{"*.trf", "Report/test.trf", false},
		{"*/**/Job_*.trf", "Report/sub/Job_1.trf", true},
		{"*/**/Job_*.trf", "Job_1.trf", false},
		{"HTML/", "HTML/a/b", true},
		{"[", "[", false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.rel, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.pattern, tt.rel))
		})
	}
}

func TestCopyMatching(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, ErrorLogName), "err")
	writeFile(t, filepath.Join(src, InfoLogName), "out")
	writeFile(t, filepath.Join(src, "Report Sub", InfoLogName), "sub")
	writeFile(t, filepath.Join(src, "test.trf"), "trf")

	dst := filepath.Join(t.TempDir(), "archive")
	n, err := CopyMatching(src, "**/"+ErrorLogName+", **/"+InfoLogName, dst)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	data, err := os.ReadFile(filepath.Join(dst, "Report Sub", InfoLogName))
	require.NoError(t, err)
	assert.Equal(t, "sub", string(data))
	assert.NoFileExists(t, filepath.Join(dst, "test.trf"))
}

func TestCopyMatchingMissingSource(t *testing.T) {
	_, err := CopyMatching(filepath.Join(t.TempDir(), "missing"), "**", t.TempDir())
	assert.Error(t, err)
}

func TestDirSize(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "12345")
	writeFile(t, filepath.Join(dir, "nested", "b.txt"), "123")

	size, err := DirSize(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(8), size)
}

func TestSubDirsSorted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"c", "a", "b"} {
		require.NoError(t, os.Mkdir(filepath.Join(dir, name), 0o755))
	}
	writeFile(t, filepath.Join(dir, "file"), "")

	dirs, err := SubDirs(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a"), filepath.Join(dir, "b"), filepath.Join(dir, "c")}, dirs)
}

func TestListMatchingExcludes(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "test.trf"), "trf")
	writeFile(t, filepath.Join(src, "Sub", "sub.trf"), "trf")
	writeFile(t, filepath.Join(src, "Sub", "Job_1", "Job_1.trf"), "trf")
	writeFile(t, filepath.Join(src, "notes.txt"), "txt")

	files, err := ListMatching(src, "**/*.trf", "*/**/Job_*.trf")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(src, "test.trf"),
		filepath.Join(src, "Sub", "sub.trf"),
	}, files)
}
