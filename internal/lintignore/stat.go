// Package lintignore counts linter and type-checker suppression comments
// ("# noqa:", "# type: ignore", ...) against the number of code lines in
// each source file of a project.
package lintignore

import (
	"bufio"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/blackwell-systems/cuality/internal/faults"
)

// IgnorePattern matches a line carrying a suppression directive. It is
// anchored at the start of the (already trimmed) line.
var IgnorePattern = regexp.MustCompile(`^(.+)?#\s*(noqa:|pylint:|type:\s*ignore|nosec|mypy:|pragma:)`)

// CommentMarker starts a comment-only line.
const CommentMarker = "#"

// ErrInvalidEncoding is returned for source files that are not valid UTF-8.
var ErrInvalidEncoding = errors.New("file is not valid UTF-8")

// FileStat holds the counts for a single source file.
type FileStat struct {
	// File is the path relative to the audited root.
	File string `json:"file"`

	// TotalLines counts lines that are neither blank nor comment-only.
	TotalLines int `json:"total_lines"`

	// TotalIgnores counts lines matching IgnorePattern. A code line with a
	// trailing directive counts toward both totals.
	TotalIgnores int `json:"total_ignores"`
}

// ParseLine classifies one line and updates the counters.
func (s *FileStat) ParseLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if !strings.HasPrefix(line, CommentMarker) {
		s.TotalLines++
	}
	if IgnorePattern.MatchString(line) {
		s.TotalIgnores++
	}
}

// FromFile reads path line by line and returns its counts. When root is
// non-empty File is recorded relative to it, otherwise path is kept as is.
func FromFile(path, root string) (FileStat, error) {
	stat := FileStat{File: path}
	if root != "" {
		rel, err := relativeTo(path, root)
		if err != nil {
			return FileStat{}, faults.NewIOError("resolve", path, err)
		}
		stat.File = rel
	}

	f, err := os.Open(path)
	if err != nil {
		return FileStat{}, faults.NewIOError("open", path, err)
	}
	defer func() { _ = f.Close() }()

	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			if !utf8.ValidString(line) {
				return FileStat{}, faults.NewIOError("decode", path, ErrInvalidEncoding)
			}
			stat.ParseLine(line)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return FileStat{}, faults.NewIOError("read", path, err)
		}
	}
	return stat, nil
}

func relativeTo(path, root string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	return filepath.Rel(absRoot, absPath)
}
