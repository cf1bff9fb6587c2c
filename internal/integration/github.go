package integration

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rh-ecosystem-edge/ci-matrix/internal/core"
)

// GitHubPullRequestLister lists closed pull requests through the GitHub REST API.
type GitHubPullRequestLister struct {
	api     *apiClient
	apiURL  string
	repo    string
	head    string
	token   string
	perPage int
}

var _ core.PullRequestLister = (*GitHubPullRequestLister)(nil)

// NewGitHubPullRequestLister creates a lister for repo ("owner/name"). head
// optionally restricts results to one "owner:branch"; token may be empty.
func NewGitHubPullRequestLister(apiURL, repo, head, token string, opts HTTPOptions) *GitHubPullRequestLister {
	return &GitHubPullRequestLister{
		api:     newAPIClient(opts),
		apiURL:  strings.TrimSuffix(apiURL, "/"),
		repo:    repo,
		head:    head,
		token:   token,
		perPage: 100,
	}
}

// ListClosedPullRequests returns the first page of closed pull requests
// against baseBranch, most recently updated first.
func (l *GitHubPullRequestLister) ListClosedPullRequests(ctx context.Context, baseBranch string) ([]core.PullRequest, error) {
	q := url.Values{}
	q.Set("state", "closed")
	q.Set("base", baseBranch)
	q.Set("per_page", fmt.Sprint(l.perPage))
	q.Set("page", "1")
	if l.head != "" {
		q.Set("head", l.head)
	}
	u := fmt.Sprintf("%s/repos/%s/pulls?%s", l.apiURL, l.repo, q.Encode())

	headers := map[string]string{
		"Accept":               "application/vnd.github+json",
		"X-GitHub-Api-Version": "2022-11-28",
	}
	if l.token != "" {
		headers["Authorization"] = "Bearer " + l.token
	}

	var prs []core.PullRequest
	if err := l.api.getJSON(ctx, u, headers, &prs); err != nil {
		return nil, fmt.Errorf("listing pull requests of %s: %w", l.repo, err)
	}
	return prs, nil
}
