package report

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DirSize sums the sizes of all regular files below dir.
func DirSize(dir string) (int64, error) {
	var size int64
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		size += info.Size()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to size %s: %w", dir, err)
	}
	return size, nil
}

// SubDirs lists the immediate sub-directories of dir sorted by name.
func SubDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(dir, e.Name()))
		}
	}
	return dirs, nil
}

// Exists reports whether p exists.
func Exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// IsDir reports whether p is an existing directory.
func IsDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

// ListMatching returns every regular file below srcDir whose slash separated
// relative path matches one of the comma separated includes and none of the
// excludes. Patterns use "*" within a segment and "**" across segments.
func ListMatching(srcDir, includes, excludes string) ([]string, error) {
	in, ex := splitPatterns(includes), splitPatterns(excludes)
	var files []string
	err := filepath.WalkDir(srcDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(srcDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if MatchAny(in, rel) && !MatchAny(ex, rel) {
			files = append(files, p)
		}
		return nil
	})
	return files, err
}

// CopyMatching copies the files selected by includes into dstDir, keeping
// their layout relative to srcDir. It returns the number of copied files.
func CopyMatching(srcDir, includes, dstDir string) (int, error) {
	files, err := ListMatching(srcDir, includes, "")
	if err != nil {
		return 0, err
	}
	copied := 0
	for _, p := range files {
		rel, err := filepath.Rel(srcDir, p)
		if err != nil {
			return copied, err
		}
		if err := CopyFile(p, filepath.Join(dstDir, rel)); err != nil {
			return copied, err
		}
		copied++
	}
	return copied, nil
}

// CopyFile copies src to dst, creating parent directories.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		return errors.Join(err, out.Close())
	}
	return out.Close()
}

func splitPatterns(includes string) []string {
	var out []string
	for _, p := range strings.Split(includes, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// MatchAny reports whether rel matches one of patterns.
func MatchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if Match(p, rel) {
			return true
		}
	}
	return false
}

// Match matches a slash separated relative path against a pattern where "**"
// spans any number of path segments, including none. A pattern ending in "/"
// or "/**" matches everything below the named directory.
func Match(pattern, rel string) bool {
	if strings.HasSuffix(pattern, "/") {
		pattern += "**"
	}
	return matchSegments(strings.Split(pattern, "/"), strings.Split(rel, "/"))
}

func matchSegments(pat, segs []string) bool {
	for len(pat) > 0 {
		if pat[0] == "**" {
			for len(pat) > 1 && pat[1] == "**" {
				pat = pat[1:]
			}
			if len(pat) == 1 {
				return true
			}
			for i := range segs {
				if matchSegments(pat[1:], segs[i:]) {
					return true
				}
			}
			return false
		}
		if len(segs) == 0 {
			return false
		}
		if ok, err := path.Match(pat[0], segs[0]); err != nil || !ok {
			return false
		}
		pat, segs = pat[1:], segs[1:]
	}
	return len(segs) == 0
}
