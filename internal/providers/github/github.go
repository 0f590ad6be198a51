package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v71/github"
	"github.com/rs/zerolog"

	"github.com/Third-Cult/agile-automation-playground-sub000/pkg/models"
)

// GitHubProvider is the host-API collaborator for one repository.
type GitHubProvider struct {
	client *gh.Client
	owner  string
	repo   string
	logger zerolog.Logger
}

// Name identifies the host.
func (p *GitHubProvider) Name() string {
	return "github"
}

// Repository returns "owner/repo".
func (p *GitHubProvider) Repository() string {
	return p.owner + "/" + p.repo
}

// ListComments returns every top-level comment on the pull request, oldest first.
func (p *GitHubProvider) ListComments(ctx context.Context, number int) ([]models.Comment, error) {
	opts := &gh.IssueListCommentsOptions{
		Sort:        gh.Ptr("created"),
		Direction:   gh.Ptr("asc"),
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var comments []models.Comment
	for {
		page, resp, err := p.client.Issues.ListComments(ctx, p.owner, p.repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("list comments on #%d: %w", number, err)
		}
		for _, c := range page {
			comments = append(comments, models.Comment{
				ID:        c.GetID(),
				Author:    c.GetUser().GetLogin(),
				Body:      c.GetBody(),
				CreatedAt: c.GetCreatedAt().Time,
			})
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	p.logger.Debug().Int("pr", number).Int("count", len(comments)).Msg("listed pull request comments")
	return comments, nil
}

// CreateComment posts a top-level comment on the pull request.
func (p *GitHubProvider) CreateComment(ctx context.Context, number int, body string) error {
	_, _, err := p.client.Issues.CreateComment(ctx, p.owner, p.repo, number, &gh.IssueComment{Body: gh.Ptr(body)})
	if err != nil {
		return fmt.Errorf("create comment on #%d: %w", number, err)
	}
	return nil
}

// GetReview fetches a single review, used when a webhook payload omits the body.
func (p *GitHubProvider) GetReview(ctx context.Context, number int, reviewID int64) (*models.Review, error) {
	review, _, err := p.client.PullRequests.GetReview(ctx, p.owner, p.repo, number, reviewID)
	if err != nil {
		return nil, fmt.Errorf("get review %d on #%d: %w", reviewID, number, err)
	}
	return &models.Review{
		ID:     review.GetID(),
		Author: review.GetUser().GetLogin(),
		State:  strings.ToLower(review.GetState()),
		Body:   review.GetBody(),
	}, nil
}

// RequestReviewers (re-)requests reviews from the given logins.
func (p *GitHubProvider) RequestReviewers(ctx context.Context, number int, logins []string) error {
	if len(logins) == 0 {
		return nil
	}
	_, _, err := p.client.PullRequests.RequestReviewers(ctx, p.owner, p.repo, number, gh.ReviewersRequest{Reviewers: logins})
	if err != nil {
		return fmt.Errorf("request reviewers on #%d: %w", number, err)
	}
	return nil
}

// GetCommitMessage returns the full message of a commit.
func (p *GitHubProvider) GetCommitMessage(ctx context.Context, sha string) (string, error) {
	commit, _, err := p.client.Git.GetCommit(ctx, p.owner, p.repo, sha)
	if err != nil {
		return "", fmt.Errorf("get commit %s: %w", sha, err)
	}
	return commit.GetMessage(), nil
}

// ParseRepository splits "owner/repo".
func ParseRepository(fullName string) (string, string, error) {
	parts := strings.Split(strings.TrimSpace(fullName), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GitHub repository: expected 'owner/repo', got '%s'", fullName)
	}
	return parts[0], parts[1], nil
}

func newClient(token, apiURL string, httpClient *http.Client) (*gh.Client, error) {
	client := gh.NewClient(httpClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	if apiURL == "" {
		return client, nil
	}

	base, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid GitHub API URL: %w", err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	client.BaseURL = base
	return client, nil
}
