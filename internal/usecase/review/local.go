package review

import (
	"context"
	"fmt"

	"github.com/sherpai/sherpai/internal/domain"
)

// DiffSource reads per-file patches from a local repository. Satisfied by the
// git adapter.
type DiffSource interface {
	ChangedFiles(ctx context.Context, baseRef, targetRef string) ([]domain.ChangedFile, error)
	HeadSHA(ctx context.Context, targetRef string) (string, error)
	CurrentBranch(ctx context.Context) (string, error)
}

// LocalRequest describes one local review run.
type LocalRequest struct {
	RepoName  string // used in cache keys and output, e.g. the directory name
	BaseRef   string
	TargetRef string // empty means the currently checked-out branch
}

// LocalReviewer runs the review pipeline against a local repository instead
// of a webhook delivery. Diff indexing, generation, resolution, and dedup are
// all the same code path; only the file source and the poster differ.
type LocalReviewer struct {
	source DiffSource
	orch   *Orchestrator
}

// NewLocalReviewer wires a diff source to an orchestrator.
func NewLocalReviewer(source DiffSource, orch *Orchestrator) *LocalReviewer {
	return &LocalReviewer{source: source, orch: orch}
}

// ReviewLocal reviews the changes between BaseRef and TargetRef.
func (l *LocalReviewer) ReviewLocal(ctx context.Context, req LocalRequest) (Result, error) {
	target := req.TargetRef
	if target == "" {
		branch, err := l.source.CurrentBranch(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("determine target branch: %w", err)
		}
		target = branch
	}

	sha, err := l.source.HeadSHA(ctx, target)
	if err != nil {
		return Result{}, fmt.Errorf("resolve head: %w", err)
	}

	files, err := l.source.ChangedFiles(ctx, req.BaseRef, target)
	if err != nil {
		return Result{}, fmt.Errorf("read changed files: %w", err)
	}

	pr := domain.PullRequest{
		Owner:   "local",
		Repo:    req.RepoName,
		HeadSHA: sha,
	}

	return l.orch.ReviewFiles(ctx, pr, files), nil
}

// CurrentBranch exposes the source's checked-out branch for CLI output.
func (l *LocalReviewer) CurrentBranch(ctx context.Context) (string, error) {
	return l.source.CurrentBranch(ctx)
}
