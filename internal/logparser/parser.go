// Package logparser extracts warning and error annotations from ecu.test log
// files.
//
// A header line ends with "WARNING:" or "ERROR:" and carries the timestamp in
// its first two fields and the context right before the severity:
//
//	2023-01-01 10:00:00 ctx WARNING:
//	    message line
//
// The indented lines below a header form the message. The next unindented line
// ends the message and is examined as a possible header itself. INFO and DEBUG
// lines are never reported.
package logparser

import (
	"bufio"
	"io"
	"iter"
	"os"

	"github.com/newhook/ecuci/internal/logging"
)

// DefaultMaxAnnotations caps the annotations reported per severity.
const DefaultMaxAnnotations = 10

// maxLineSize bounds a single log line.
const maxLineSize = 1024 * 1024

// Parser reads annotations from one log file.
type Parser struct {
	Path string
	// MaxAnnotations caps the annotations per severity, 0 means unlimited.
	MaxAnnotations int
}

// New creates a parser for the log file at path.
func New(path string) *Parser {
	return &Parser{Path: path, MaxAnnotations: DefaultMaxAnnotations}
}

// All yields the annotations of the file in file order. The file is opened
// when iteration starts and read once. Read errors are logged and end the
// sequence early.
func (p *Parser) All() iter.Seq[Annotation] {
	return func(yield func(Annotation) bool) {
		f, err := os.Open(p.Path)
		if err != nil {
			logging.Warn("failed parsing log file", "file", p.Path, "error", err)
			return
		}
		defer f.Close()
		for a := range Scan(f, p.MaxAnnotations) {
			if !yield(a) {
				return
			}
		}
	}
}

// Parse returns all annotations of the file. On read errors the annotations
// parsed so far are returned.
func (p *Parser) Parse() []Annotation {
	var out []Annotation
	for a := range p.All() {
		out = append(out, a)
	}
	return out
}

// ParseLogCount counts every header of sev in the file, ignoring the cap.
func (p *Parser) ParseLogCount(sev Severity) int {
	f, err := os.Open(p.Path)
	if err != nil {
		logging.Warn("failed parsing log file", "file", p.Path, "error", err)
		return 0
	}
	defer f.Close()

	count := 0
	s := newLineScanner(f)
	for s.Scan() {
		if matchesHeader(s.Text(), sev) {
			count++
		}
	}
	if err := s.Err(); err != nil {
		logging.Warn("failed parsing log file", "file", p.Path, "error", err)
	}
	return count
}

// Scan yields the annotations read from r, at most max per severity when max
// is positive. The sequence consumes r and cannot be restarted.
func Scan(r io.Reader, max int) iter.Seq[Annotation] {
	return func(yield func(Annotation) bool) {
		m := newMachine(max)
		s := newLineScanner(r)
		for !m.exhausted() && s.Scan() {
			if a, ok := m.feed(s.Text()); ok && !yield(a) {
				return
			}
		}
		if err := s.Err(); err != nil {
			logging.Warn("failed reading log", "error", err)
		}
		if a, ok := m.finish(); ok {
			yield(a)
		}
	}
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), maxLineSize)
	return s
}
