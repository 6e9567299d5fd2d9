package lintignore

import (
	"cmp"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
	"github.com/sirupsen/logrus"

	"github.com/blackwell-systems/cuality/internal/faults"
	"github.com/blackwell-systems/cuality/internal/logging"
	"github.com/blackwell-systems/cuality/internal/report"
)

// DefaultSuffix is the file extension audited when none is configured.
const DefaultSuffix = ".py"

// CSVHeader is the header row of the audit CSV.
var CSVHeader = []string{"file", "total_lines", "total_ignores"}

// Options controls which files are audited.
type Options struct {
	// Suffix is the final extension a file must have, including the dot.
	Suffix string

	// RespectGitignore prunes paths matched by <root>/.gitignore.
	RespectGitignore bool

	Log logrus.FieldLogger
}

func (o Options) withDefaults() Options {
	if o.Suffix == "" {
		o.Suffix = DefaultSuffix
	}
	if o.Log == nil {
		o.Log = logging.Discard()
	}
	return o
}

// Audit aggregates FileStats. Each file is counted at most once.
type Audit struct {
	TotalLines   int        `json:"total_lines"`
	TotalIgnores int        `json:"total_ignores"`
	Files        []FileStat `json:"files"`

	seen map[string]bool
}

// AddIgnores records stat unless a stat for the same file was already added.
func (a *Audit) AddIgnores(stat FileStat) {
	if a.seen == nil {
		a.seen = make(map[string]bool)
	}
	if a.seen[stat.File] {
		return
	}
	a.seen[stat.File] = true
	a.Files = append(a.Files, stat)
	a.TotalLines += stat.TotalLines
	a.TotalIgnores += stat.TotalIgnores
}

// IgnoreRatio is TotalIgnores / TotalLines, or 0 for an empty audit.
func (a *Audit) IgnoreRatio() float64 {
	if a.TotalLines == 0 {
		return 0
	}
	return float64(a.TotalIgnores) / float64(a.TotalLines)
}

// TopIgnored returns up to n files with at least one ignore, most ignores
// first. Ties keep path order.
func (a *Audit) TopIgnored(n int) []FileStat {
	var top []FileStat
	for _, f := range a.Files {
		if f.TotalIgnores > 0 {
			top = append(top, f)
		}
	}
	slices.SortStableFunc(top, func(x, y FileStat) int {
		if c := cmp.Compare(y.TotalIgnores, x.TotalIgnores); c != 0 {
			return c
		}
		return strings.Compare(x.File, y.File)
	})
	if len(top) > n {
		top = top[:max(n, 0)]
	}
	return top
}

// Run audits every source file under root. The first unreadable file aborts
// the run and no Audit is returned.
func Run(root string, opts Options) (*Audit, error) {
	opts = opts.withDefaults()

	audit := &Audit{}
	for path, err := range SourceFiles(root, opts) {
		if err != nil {
			return nil, err
		}
		stat, err := FromFile(path, root)
		if err != nil {
			return nil, err
		}
		opts.Log.WithFields(logrus.Fields{
			"file":    stat.File,
			"lines":   stat.TotalLines,
			"ignores": stat.TotalIgnores,
		}).Debug("audited file")
		audit.AddIgnores(stat)
	}
	return audit, nil
}

// SourceFiles lazily yields every file under root whose final extension is
// opts.Suffix. Directories are visited depth-first; within a directory,
// files come in sorted order before its subdirectories are entered.
// Symlinks to directories are followed, but a directory reached twice is
// only walked the first time.
func SourceFiles(root string, opts Options) iter.Seq2[string, error] {
	opts = opts.withDefaults()

	return func(yield func(string, error) bool) {
		var matcher *ignore.GitIgnore
		if opts.RespectGitignore {
			gi := filepath.Join(root, ".gitignore")
			if _, err := os.Stat(gi); err == nil {
				m, err := ignore.CompileIgnoreFile(gi)
				if err != nil {
					yield("", faults.NewIOError("read", gi, err))
					return
				}
				matcher = m
			}
		}

		ignored := func(path string, dir bool) bool {
			if matcher == nil {
				return false
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return false
			}
			rel = filepath.ToSlash(rel)
			if dir {
				return matcher.MatchesPath(rel) || matcher.MatchesPath(rel+"/")
			}
			return matcher.MatchesPath(rel)
		}

		visited := make(map[string]bool)
		stack := []string{root}
		for len(stack) > 0 {
			dir := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			// Symlinked directories are followed, each real directory once.
			if resolved, err := filepath.EvalSymlinks(dir); err == nil {
				if visited[resolved] {
					continue
				}
				visited[resolved] = true
			}

			entries, err := os.ReadDir(dir)
			if err != nil {
				yield("", faults.NewIOError("read", dir, err))
				return
			}

			var subdirs []string
			for _, entry := range entries {
				path := filepath.Join(dir, entry.Name())
				if isDir(path, entry) {
					if !ignored(path, true) {
						subdirs = append(subdirs, path)
					}
					continue
				}
				if !hasSuffix(entry.Name(), opts.Suffix) || ignored(path, false) {
					continue
				}
				if !yield(path, nil) {
					return
				}
			}
			slices.Reverse(subdirs)
			stack = append(stack, subdirs...)
		}
	}
}

// hasSuffix reports whether the final extension of name is suffix. A bare
// dotfile such as ".py" has no extension.
func hasSuffix(name, suffix string) bool {
	return name != suffix && filepath.Ext(name) == suffix
}

// isDir reports whether entry is a directory or a symlink to one.
func isDir(path string, entry fs.DirEntry) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// WriteCSV writes one row per audited file, in discovery order.
func (a *Audit) WriteCSV(path string) error {
	rows := make([][]string, 0, len(a.Files))
	for _, f := range a.Files {
		rows = append(rows, []string{
			filepath.ToSlash(f.File),
			strconv.Itoa(f.TotalLines),
			strconv.Itoa(f.TotalIgnores),
		})
	}
	return report.WriteCSV(path, CSVHeader, rows)
}
