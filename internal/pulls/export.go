package pulls

import (
	"context"
	"fmt"
	"iter"
	"strconv"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/sirupsen/logrus"

	"github.com/blackwell-systems/cuality/internal/logging"
	"github.com/blackwell-systems/cuality/internal/report"
)

// Status values written to the CSV.
const (
	StatusMerged   = "merged"
	StatusDeclined = "declined"
)

// CSVHeader is the header row of the pull-request CSV.
var CSVHeader = []string{"PR ID", "Creator", "Target Branch", "Created At", "Status", "Merged/Declined At"}

// Cursor walks a paginated listing one page at a time.
type Cursor interface {
	// HasNext reports whether another page can be requested.
	HasNext() bool

	// Next fetches the next page.
	Next(ctx context.Context) ([]*github.PullRequest, error)
}

// pageCursor follows the rel="next" URL of each reply's Link header until a
// reply carries none.
type pageCursor struct {
	client      *Client
	owner, name string
	perPage     int
	next        string
	pages       int
	done        bool
	log         logrus.FieldLogger
}

// NewCursor returns a Cursor over every pull request of owner/name.
func NewCursor(c *Client, owner, name string, perPage int, log logrus.FieldLogger) Cursor {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if log == nil {
		log = logging.Discard()
	}
	return &pageCursor{client: c, owner: owner, name: name, perPage: perPage, log: log}
}

func (p *pageCursor) HasNext() bool {
	return !p.done
}

func (p *pageCursor) Next(ctx context.Context) ([]*github.PullRequest, error) {
	if p.done {
		return nil, nil
	}

	var (
		prs  []*github.PullRequest
		next string
		err  error
	)
	if p.pages == 0 {
		prs, next, err = p.client.firstPage(ctx, p.owner, p.name, p.perPage)
	} else {
		prs, next, err = p.client.followPage(ctx, p.next)
	}
	if err != nil {
		p.done = true
		return nil, fmt.Errorf("listing pull requests of %s/%s: %w", p.owner, p.name, err)
	}
	p.pages++
	p.log.WithFields(logrus.Fields{
		"repo":  p.owner + "/" + p.name,
		"page":  p.pages,
		"count": len(prs),
		"next":  next,
	}).Debug("fetched pull request page")

	p.next = next
	p.done = next == ""
	return prs, nil
}

// FetchAll lazily yields every pull request the cursor produces. Iteration
// stops at the first error, which is yielded with a nil pull request.
func FetchAll(ctx context.Context, cur Cursor) iter.Seq2[*github.PullRequest, error] {
	return func(yield func(*github.PullRequest, error) bool) {
		for cur.HasNext() {
			prs, err := cur.Next(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, pr := range prs {
				if !yield(pr, nil) {
					return
				}
			}
		}
	}
}

// Record is a pull request flattened for export.
type Record struct {
	ID                 int64  `json:"id"`
	Creator            string `json:"creator"`
	TargetBranch       string `json:"target_branch"`
	CreatedAt          string `json:"created_at"`
	Status             string `json:"status"`
	MergedOrDeclinedAt string `json:"merged_or_declined_at"`
}

// Normalize flattens pr. Status is "merged" when a merge time is present,
// "declined" for other closed pull requests, and the raw state otherwise.
func Normalize(pr *github.PullRequest) Record {
	r := Record{
		ID:           pr.GetID(),
		Creator:      pr.GetUser().GetLogin(),
		TargetBranch: pr.GetBase().GetRef(),
		CreatedAt:    formatTime(pr.CreatedAt),
		Status:       pr.GetState(),
	}
	switch {
	case pr.MergedAt != nil:
		r.Status = StatusMerged
		r.MergedOrDeclinedAt = formatTime(pr.MergedAt)
	case pr.GetState() == "closed":
		r.Status = StatusDeclined
		r.MergedOrDeclinedAt = formatTime(pr.ClosedAt)
	default:
		r.MergedOrDeclinedAt = formatTime(pr.ClosedAt)
	}
	return r
}

func formatTime(ts *github.Timestamp) string {
	if ts == nil || ts.IsZero() {
		return ""
	}
	return ts.Time.UTC().Format(time.RFC3339)
}

// Collect drains the cursor and normalizes the results. Nothing is returned
// unless every page was fetched.
func Collect(ctx context.Context, cur Cursor) ([]Record, error) {
	var raw []*github.PullRequest
	for pr, err := range FetchAll(ctx, cur) {
		if err != nil {
			return nil, err
		}
		raw = append(raw, pr)
	}

	records := make([]Record, len(raw))
	for i, pr := range raw {
		records[i] = Normalize(pr)
	}
	return records, nil
}

// WriteCSV writes records in the given order after the header row.
func WriteCSV(records []Record, path string) error {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{
			strconv.FormatInt(r.ID, 10),
			r.Creator,
			r.TargetBranch,
			r.CreatedAt,
			r.Status,
			r.MergedOrDeclinedAt,
		}
	}
	return report.WriteCSV(path, CSVHeader, rows)
}

// Export fetches every pull request through cur and writes them to path.
// It returns the number of rows written.
func Export(ctx context.Context, cur Cursor, path string) (int, error) {
	records, err := Collect(ctx, cur)
	if err != nil {
		return 0, err
	}
	if err := WriteCSV(records, path); err != nil {
		return 0, err
	}
	return len(records), nil
}
