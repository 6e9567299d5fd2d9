// Package vcs runs git against a local repository and parses the handful of
// history queries cuality needs.
package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/blackwell-systems/cuality/internal/faults"
)

// Merge is a merge commit as reported by git log.
type Merge struct {
	// Commit is the full hash of the merge commit.
	Commit string

	// Parents are the parent hashes in git order; Parents[0] is the
	// mainline side.
	Parents []string

	// CommittedAt is the committer timestamp of the merge.
	CommittedAt time.Time
}

// Repo runs git commands inside a working directory.
type Repo struct {
	Dir string

	// Binary is the git executable; empty means "git" from PATH.
	Binary string
}

// Open returns a Repo rooted at dir.
func Open(dir string) *Repo {
	return &Repo{Dir: dir}
}

// MergeCommits lists every merge commit reachable from branch, newest first.
func (r *Repo) MergeCommits(ctx context.Context, branch string) ([]Merge, error) {
	out, err := r.run(ctx, "log", "--merges", "--pretty=format:%H%x00%P%x00%ct", branch, "--")
	if err != nil {
		return nil, err
	}
	return parseMergeLog(out)
}

// MergeBase returns the best common ancestor of a and b. ok is false when
// the two commits share no history.
func (r *Repo) MergeBase(ctx context.Context, a, b string) (base string, ok bool, err error) {
	out, err := r.run(ctx, "merge-base", a, b)
	if err != nil {
		var te *faults.ToolError
		// git merge-base exits 1 without output when there is no ancestor.
		if errors.As(err, &te) && te.ExitCode == 1 && te.Stderr == "" {
			return "", false, nil
		}
		return "", false, err
	}
	base = strings.TrimSpace(out)
	if base == "" {
		return "", false, nil
	}
	return base, true, nil
}

// CommitTime returns the committer timestamp of rev.
func (r *Repo) CommitTime(ctx context.Context, rev string) (time.Time, error) {
	out, err := r.run(ctx, "show", "-s", "--format=%ct", rev)
	if err != nil {
		return time.Time{}, err
	}
	return parseUnix(strings.TrimSpace(out))
}

func (r *Repo) run(ctx context.Context, args ...string) (string, error) {
	bin := r.Binary
	if bin == "" {
		bin = "git"
	}
	argv := append([]string{bin, "-C", r.Dir}, args...)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return "", &faults.ToolError{
			Command:  argv,
			ExitCode: code,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
	}
	return stdout.String(), nil
}

// parseMergeLog parses lines of "<hash>\x00<parents>\x00<unix time>".
func parseMergeLog(out string) ([]Merge, error) {
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, nil
	}

	var merges []Merge
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\x00")
		if len(fields) != 3 {
			return nil, fmt.Errorf("unexpected git log line %q", line)
		}
		ts, err := parseUnix(fields[2])
		if err != nil {
			return nil, fmt.Errorf("commit %s: %w", fields[0], err)
		}
		merges = append(merges, Merge{
			Commit:      fields[0],
			Parents:     strings.Fields(fields[1]),
			CommittedAt: ts,
		})
	}
	return merges, nil
}

func parseUnix(s string) (time.Time, error) {
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return time.Unix(secs, 0).UTC(), nil
}
