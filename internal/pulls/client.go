// Package pulls exports pull-request metadata from GitHub (or a GitHub
// Enterprise host) to CSV.
package pulls

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/time/rate"

	"github.com/blackwell-systems/cuality/internal/faults"
)

// DefaultPerPage is the page size requested from the listing endpoint.
const DefaultPerPage = 100

// Client wraps the GitHub API client with request pacing.
type Client struct {
	gh          *github.Client
	rateLimiter *rate.Limiter
}

// ClientOptions configures NewClient.
type ClientOptions struct {
	// Token is sent as a bearer token. Empty means unauthenticated.
	Token string

	// BaseURL overrides the API root, e.g. for GitHub Enterprise.
	BaseURL string

	// RateLimit is the maximum number of requests per second; <= 0
	// disables pacing.
	RateLimit float64

	HTTPClient *http.Client
}

// NewClient creates a Client.
func NewClient(opts ClientOptions) (*Client, error) {
	gh := github.NewClient(opts.HTTPClient)
	if opts.Token != "" {
		gh = gh.WithAuthToken(opts.Token)
	}
	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parsing API URL %q: %w", opts.BaseURL, err)
		}
		gh.BaseURL = u
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return &Client{gh: gh, rateLimiter: limiter}, nil
}

// SplitRepo splits "owner/name" into its parts.
func SplitRepo(repo string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(strings.Trim(repo, "/"), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("repository must be in owner/name form, got %q", repo)
	}
	return owner, name, nil
}

// firstPage fetches the first page of pull requests in every state and
// returns the URL of the next page, or "" on the last one.
func (c *Client) firstPage(ctx context.Context, owner, name string, perPage int) ([]*github.PullRequest, string, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, "", fmt.Errorf("rate limiter: %w", err)
	}

	opts := &github.PullRequestListOptions{
		State:       "all",
		ListOptions: github.ListOptions{PerPage: perPage},
	}
	prs, resp, err := c.gh.PullRequests.List(ctx, owner, name, opts)
	if err != nil {
		return nil, "", serviceError(err)
	}
	return prs, nextLink(resp), nil
}

// followPage fetches the page at a "next" URL exactly as the host sent it,
// whether it paginates by page number or by cursor.
func (c *Client) followPage(ctx context.Context, next string) ([]*github.PullRequest, string, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, "", fmt.Errorf("rate limiter: %w", err)
	}

	req, err := c.gh.NewRequest(http.MethodGet, next, nil)
	if err != nil {
		return nil, "", fmt.Errorf("building request for %s: %w", next, err)
	}
	var prs []*github.PullRequest
	resp, err := c.gh.Do(ctx, req, &prs)
	if err != nil {
		return nil, "", serviceError(err)
	}
	return prs, nextLink(resp), nil
}

// nextLink returns the target of the rel="next" entry in the response's
// Link header, or "" when there is none.
func nextLink(resp *github.Response) string {
	if resp == nil || resp.Response == nil {
		return ""
	}
	for _, link := range strings.Split(resp.Header.Get("Link"), ",") {
		segments := strings.Split(strings.TrimSpace(link), ";")
		if len(segments) < 2 {
			continue
		}
		target := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		for _, param := range segments[1:] {
			key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
			if !ok || strings.TrimSpace(key) != "rel" {
				continue
			}
			if slices.Contains(strings.Fields(strings.Trim(value, `"`)), "next") {
				return target[1 : len(target)-1]
			}
		}
	}
	return ""
}

// serviceError converts go-github's HTTP errors into faults.ServiceError.
func serviceError(err error) error {
	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		return &faults.ServiceError{
			StatusCode: errResp.Response.StatusCode,
			URL:        requestURL(errResp.Response),
			Body:       errResp.Message,
			Err:        err,
		}
	}
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) && rateErr.Response != nil {
		return &faults.ServiceError{
			StatusCode: rateErr.Response.StatusCode,
			URL:        requestURL(rateErr.Response),
			Body:       rateErr.Message,
			Err:        err,
		}
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) && abuseErr.Response != nil {
		return &faults.ServiceError{
			StatusCode: abuseErr.Response.StatusCode,
			URL:        requestURL(abuseErr.Response),
			Body:       abuseErr.Message,
			Err:        err,
		}
	}
	return err
}

func requestURL(resp *http.Response) string {
	if resp.Request == nil || resp.Request.URL == nil {
		return ""
	}
	u := *resp.Request.URL
	u.RawQuery = ""
	return u.String()
}
