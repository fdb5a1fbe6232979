package github

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"
)

// Source abstracts the GitHub API surface the fetcher needs. Listings are
// ordered most-recently-updated first and bounded by limit, which keeps
// every fetch O(limit) regardless of repository history.
type Source interface {
	Resolve(ctx context.Context, owner, name string) error
	PullRequests(ctx context.Context, owner, name, state string, limit int) ([]PRInfo, error)
	Releases(ctx context.Context, owner, name string, limit int) ([]ReleaseInfo, error)
}

// RateInfo mirrors the core REST rate-limit bucket. It is observed and
// logged only; secondary-limit sleeping is handled by the transport.
type RateInfo struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

// APISource talks to the real GitHub REST API.
type APISource struct {
	client *github.Client
}

// NewAPISource builds the client with a secondary-rate-limit waiter under
// the oauth2 transport. An empty token falls back to anonymous access.
func NewAPISource(token string) (*APISource, error) {
	waiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("rate limit waiter: %w", err)
	}

	hc := &http.Client{Transport: waiter}
	if token != "" {
		hc = &http.Client{Transport: &oauth2.Transport{
			Base:   waiter,
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
		}}
	}
	return &APISource{client: github.NewClient(hc)}, nil
}

func (s *APISource) Resolve(ctx context.Context, owner, name string) error {
	_, _, err := s.client.Repositories.Get(ctx, owner, name)
	return err
}

func (s *APISource) PullRequests(ctx context.Context, owner, name, state string, limit int) ([]PRInfo, error) {
	opts := &github.PullRequestListOptions{
		State:       state,
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: limit},
	}
	prs, _, err := s.client.PullRequests.List(ctx, owner, name, opts)
	if err != nil {
		return nil, err
	}
	out := make([]PRInfo, 0, len(prs))
	for _, pr := range prs {
		out = append(out, convertPR(pr))
	}
	return out, nil
}

func (s *APISource) Releases(ctx context.Context, owner, name string, limit int) ([]ReleaseInfo, error) {
	rels, _, err := s.client.Repositories.ListReleases(ctx, owner, name, &github.ListOptions{PerPage: limit})
	if err != nil {
		return nil, err
	}
	out := make([]ReleaseInfo, 0, len(rels))
	for _, r := range rels {
		out = append(out, convertRelease(r))
	}
	return out, nil
}

// RateLimit returns the current core bucket for the end-of-run log line.
func (s *APISource) RateLimit(ctx context.Context) (RateInfo, error) {
	rl, _, err := s.client.RateLimit.Get(ctx)
	if err != nil {
		return RateInfo{}, err
	}
	core := rl.GetCore()
	if core == nil {
		return RateInfo{}, nil
	}
	return RateInfo{Limit: core.Limit, Remaining: core.Remaining, Reset: core.Reset.Time}, nil
}

func convertPR(pr *github.PullRequest) PRInfo {
	labels := make([]string, 0, len(pr.Labels))
	for _, l := range pr.Labels {
		labels = append(labels, l.GetName())
	}
	return PRInfo{
		ID:     pr.GetID(),
		Number: pr.GetNumber(),
		Title:  pr.GetTitle(),
		URL:    pr.GetHTMLURL(),
		State:  pr.GetState(),
		// List results don't populate the merged flag; the timestamp does.
		Merged:    pr.MergedAt != nil,
		Body:      pr.GetBody(),
		CreatedAt: pr.GetCreatedAt().Time,
		UpdatedAt: pr.GetUpdatedAt().Time,
		Labels:    labels,
	}
}

func convertRelease(r *github.RepositoryRelease) ReleaseInfo {
	name := r.GetName()
	if name == "" {
		name = r.GetTagName()
	}
	published := r.GetPublishedAt().Time
	if published.IsZero() {
		published = r.GetCreatedAt().Time
	}
	return ReleaseInfo{
		ID:          r.GetID(),
		Tag:         r.GetTagName(),
		Name:        name,
		URL:         r.GetHTMLURL(),
		Body:        r.GetBody(),
		PublishedAt: published,
		Prerelease:  r.GetPrerelease(),
	}
}
