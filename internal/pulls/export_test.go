package pulls

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/cuality/internal/faults"
)

const pageOne = `[
  {"id": 101, "state": "closed", "user": {"login": "alice"}, "base": {"ref": "main"},
   "created_at": "2024-01-01T10:00:00Z", "merged_at": "2024-01-02T11:00:00Z", "closed_at": "2024-01-02T11:00:00Z"},
  {"id": 102, "state": "closed", "user": {"login": "bob"}, "base": {"ref": "release"},
   "created_at": "2024-01-03T10:00:00Z", "closed_at": "2024-01-04T09:30:00Z"}
]`

const pageTwo = `[
  {"id": 103, "state": "open", "user": {"login": "carol"}, "base": {"ref": "main"},
   "created_at": "2024-02-01T08:00:00Z"}
]`

// fakeGitHub serves a two-page pull request listing.
type fakeGitHub struct {
	server   *httptest.Server
	requests []*http.Request
	failPage string
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	t.Helper()
	f := &fakeGitHub{}
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/pulls", func(w http.ResponseWriter, r *http.Request) {
		f.requests = append(f.requests, r)
		page := r.URL.Query().Get("page")
		if page != "" && page == f.failPage {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprint(w, `{"message": "upstream unavailable"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch page {
		case "", "1":
			next := fmt.Sprintf("%s/repos/acme/widgets/pulls?page=2&per_page=100&state=all", f.server.URL)
			w.Header().Set("Link", fmt.Sprintf(`<%s>; rel="next", <%s>; rel="last"`, next, next))
			fmt.Fprint(w, pageOne)
		case "2":
			fmt.Fprint(w, pageTwo)
		default:
			http.NotFound(w, r)
		}
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGitHub) client(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(ClientOptions{Token: "s3cret", BaseURL: f.server.URL})
	require.NoError(t, err)
	return c
}

func TestCursor_FollowsNextLink(t *testing.T) {
	gh := newFakeGitHub(t)
	cur := NewCursor(gh.client(t), "acme", "widgets", 0, nil)

	var ids []int64
	for pr, err := range FetchAll(context.Background(), cur) {
		require.NoError(t, err)
		ids = append(ids, pr.GetID())
	}

	assert.Equal(t, []int64{101, 102, 103}, ids)
	require.Len(t, gh.requests, 2)

	first := gh.requests[0].URL.Query()
	assert.Equal(t, "all", first.Get("state"))
	assert.Equal(t, "100", first.Get("per_page"))
	assert.Equal(t, "Bearer s3cret", gh.requests[0].Header.Get("Authorization"))

	assert.Equal(t, "2", gh.requests[1].URL.Query().Get("page"))
	assert.False(t, cur.HasNext())
}

func TestCursor_StopsWithoutNextLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, pageTwo)
	}))
	defer srv.Close()

	c, err := NewClient(ClientOptions{BaseURL: srv.URL})
	require.NoError(t, err)
	cur := NewCursor(c, "acme", "widgets", 50, nil)

	require.True(t, cur.HasNext())
	prs, err := cur.Next(context.Background())
	require.NoError(t, err)
	assert.Len(t, prs, 1)
	assert.False(t, cur.HasNext())
}

func TestCursor_FollowsCursorStyleNextLink(t *testing.T) {
	var queries []string
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("after") == "" {
			next := srv.URL + "/repos/acme/widgets/pulls?after=abc&per_page=100&state=all"
			w.Header().Set("Link", fmt.Sprintf(`<%s>; rel="next"`, next))
			fmt.Fprint(w, pageOne)
			return
		}
		fmt.Fprint(w, pageTwo)
	}))
	defer srv.Close()

	c, err := NewClient(ClientOptions{BaseURL: srv.URL})
	require.NoError(t, err)

	records, err := Collect(context.Background(), NewCursor(c, "acme", "widgets", 100, nil))
	require.NoError(t, err)
	assert.Len(t, records, 3)
	require.Len(t, queries, 2)
	assert.Equal(t, "after=abc&per_page=100&state=all", queries[1])
}

func TestNextLink(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"none", "", ""},
		{"next and last", `<https://api.example.com/x?page=2>; rel="next", <https://api.example.com/x?page=9>; rel="last"`, "https://api.example.com/x?page=2"},
		{"last only", `<https://api.example.com/x?page=1>; rel="first", <https://api.example.com/x?page=9>; rel="last"`, ""},
		{"cursor", `<https://api.example.com/x?after=Y3Vy>; rel="next"`, "https://api.example.com/x?after=Y3Vy"},
		{"malformed", `https://api.example.com/x?page=2; rel="next"`, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := &github.Response{Response: &http.Response{Header: http.Header{}}}
			if tc.header != "" {
				resp.Header.Set("Link", tc.header)
			}
			assert.Equal(t, tc.want, nextLink(resp))
		})
	}
	assert.Empty(t, nextLink(nil))
}

func TestExport(t *testing.T) {
	gh := newFakeGitHub(t)
	out := filepath.Join(t.TempDir(), "pull_requests.csv")

	n, err := Export(context.Background(), NewCursor(gh.client(t), "acme", "widgets", 100, nil), out)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	want := "PR ID,Creator,Target Branch,Created At,Status,Merged/Declined At\n" +
		"101,alice,main,2024-01-01T10:00:00Z,merged,2024-01-02T11:00:00Z\n" +
		"102,bob,release,2024-01-03T10:00:00Z,declined,2024-01-04T09:30:00Z\n" +
		"103,carol,main,2024-02-01T08:00:00Z,open,\n"
	assert.Equal(t, want, string(data))
}

func TestExport_ServiceErrorWritesNothing(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.failPage = "2"
	out := filepath.Join(t.TempDir(), "pull_requests.csv")

	_, err := Export(context.Background(), NewCursor(gh.client(t), "acme", "widgets", 100, nil), out)
	require.Error(t, err)

	var se *faults.ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
	assert.Equal(t, "upstream unavailable", se.Body)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "no partial CSV may be written")
}

func TestExport_CancelledContextWritesNothing(t *testing.T) {
	gh := newFakeGitHub(t)
	out := filepath.Join(t.TempDir(), "pull_requests.csv")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Export(ctx, NewCursor(gh.client(t), "acme", "widgets", 100, nil), out)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, gh.requests)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

// stubCursor replays canned pages.
type stubCursor struct {
	pages [][]*github.PullRequest
	err   error
	calls int
}

func (s *stubCursor) HasNext() bool {
	return s.calls < len(s.pages) || (s.err != nil && s.calls == len(s.pages))
}

func (s *stubCursor) Next(context.Context) ([]*github.PullRequest, error) {
	defer func() { s.calls++ }()
	if s.calls == len(s.pages) {
		return nil, s.err
	}
	return s.pages[s.calls], nil
}

func TestFetchAll_IsLazy(t *testing.T) {
	cur := &stubCursor{pages: [][]*github.PullRequest{
		{{ID: github.Int64(1)}, {ID: github.Int64(2)}},
		{{ID: github.Int64(3)}},
	}}

	for pr := range FetchAll(context.Background(), cur) {
		assert.Equal(t, int64(1), pr.GetID())
		break
	}
	assert.Equal(t, 1, cur.calls, "second page must not be requested")
}

func TestCollect_ErrorDiscardsEarlierPages(t *testing.T) {
	boom := errors.New("boom")
	cur := &stubCursor{
		pages: [][]*github.PullRequest{{{ID: github.Int64(1)}}},
		err:   boom,
	}

	records, err := Collect(context.Background(), cur)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, records)
}

func TestNormalize(t *testing.T) {
	at := func(s string) *github.Timestamp {
		ts, err := time.Parse(time.RFC3339, s)
		require.NoError(t, err)
		return &github.Timestamp{Time: ts}
	}

	tests := []struct {
		name       string
		pr         *github.PullRequest
		wantStatus string
		wantAt     string
	}{
		{
			name:       "merged",
			pr:         &github.PullRequest{State: github.String("closed"), MergedAt: at("2024-05-02T00:00:00Z"), ClosedAt: at("2024-05-02T00:00:00Z")},
			wantStatus: "merged",
			wantAt:     "2024-05-02T00:00:00Z",
		},
		{
			name:       "declined",
			pr:         &github.PullRequest{State: github.String("closed"), ClosedAt: at("2024-05-03T00:00:00Z")},
			wantStatus: "declined",
			wantAt:     "2024-05-03T00:00:00Z",
		},
		{
			name:       "open",
			pr:         &github.PullRequest{State: github.String("open")},
			wantStatus: "open",
			wantAt:     "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := Normalize(tc.pr)
			assert.Equal(t, tc.wantStatus, r.Status)
			assert.Equal(t, tc.wantAt, r.MergedOrDeclinedAt)
		})
	}
}

func TestNormalize_Fields(t *testing.T) {
	pr := &github.PullRequest{
		ID:        github.Int64(42),
		State:     github.String("open"),
		User:      &github.User{Login: github.String("dana")},
		Base:      &github.PullRequestBranch{Ref: github.String("develop")},
		CreatedAt: &github.Timestamp{Time: time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)},
	}

	assert.Equal(t, Record{
		ID:           42,
		Creator:      "dana",
		TargetBranch: "develop",
		CreatedAt:    "2024-03-04T05:06:07Z",
		Status:       "open",
	}, Normalize(pr))
}

func TestSplitRepo(t *testing.T) {
	owner, name, err := SplitRepo("acme/widgets")
	require.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "widgets", name)

	for _, bad := range []string{"", "acme", "/widgets", "acme/", "a/b/c"} {
		_, _, err := SplitRepo(bad)
		assert.Error(t, err, bad)
	}
}
