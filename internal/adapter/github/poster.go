package github

import (
	"context"

	"github.com/sherpai/sherpai/internal/domain"
	"github.com/sherpai/sherpai/internal/usecase/review"
)

// Poster adapts Client to the review use case's Poster and FileLister ports.
type Poster struct {
	client *Client
}

// NewPoster wraps a Client for use by the review orchestrator.
func NewPoster(client *Client) *Poster {
	return &Poster{client: client}
}

// PostLineComment implements review.Poster.
func (p *Poster) PostLineComment(ctx context.Context, req review.LineCommentRequest) error {
	_, err := p.client.CreateReviewComment(ctx, req.PullRequest, req.Path, req.Position, req.Body)
	return err
}

// PostGeneralComment implements review.Poster.
func (p *Poster) PostGeneralComment(ctx context.Context, req review.GeneralCommentRequest) error {
	return p.client.CreateIssueComment(ctx, req.PullRequest, req.Body)
}

// ListChangedFiles implements review.FileLister.
func (p *Poster) ListChangedFiles(ctx context.Context, pr domain.PullRequest) ([]domain.ChangedFile, error) {
	return p.client.ListPullRequestFiles(ctx, pr)
}
