package logparser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/newhook/ecuci/internal/logging"
)

// follower tails one log file and feeds complete lines into a machine.
type follower struct {
	path    string
	offset  int64
	partial string
	m       *machine
	fn      func(Annotation)
}

// Follow reports annotations of the log file at path as they are written,
// starting with the current content. The directory is watched so the file may
// be created or replaced while following. A message still open when ctx is
// done is reported before Follow returns.
func Follow(ctx context.Context, path string, fn func(Annotation)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	f := &follower{path: abs, m: newMachine(0), fn: fn}
	if err := f.read(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			f.flush()
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				f.flush()
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				f.reset()
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if err := f.read(); err != nil {
					return err
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				f.flush()
				return nil
			}
			logging.Warn("log watcher error", "file", abs, "error", err)
		}
	}
}

// read feeds everything appended since the last read.
func (f *follower) read() error {
	file, err := os.Open(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat log: %w", err)
	}
	if info.Size() < f.offset {
		// Truncated in place.
		f.reset()
	}
	if _, err := file.Seek(f.offset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek log: %w", err)
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("failed to read log: %w", err)
	}
	f.offset += int64(len(data))

	lines := strings.Split(f.partial+string(data), "\n")
	f.partial = lines[len(lines)-1]
	for _, line := range lines[:len(lines)-1] {
		if a, ok := f.m.feed(line); ok {
			f.fn(a)
		}
	}
	return nil
}

// reset starts over with a new file, reporting what is still open.
func (f *follower) reset() {
	f.flush()
	f.offset = 0
	f.partial = ""
	f.m = newMachine(0)
}

func (f *follower) flush() {
	if f.partial != "" {
		if a, ok := f.m.feed(f.partial); ok {
			f.fn(a)
		}
		f.partial = ""
	}
	if a, ok := f.m.finish(); ok {
		f.fn(a)
	}
}
