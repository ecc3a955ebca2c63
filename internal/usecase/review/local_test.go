package review_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sherpai/sherpai/internal/domain"
	"github.com/sherpai/sherpai/internal/usecase/review"
)

type fakeSource struct {
	branch string
	sha    string
	files  []domain.ChangedFile

	gotBase   string
	gotTarget string
}

func (s *fakeSource) ChangedFiles(ctx context.Context, baseRef, targetRef string) ([]domain.ChangedFile, error) {
	s.gotBase, s.gotTarget = baseRef, targetRef
	return s.files, nil
}

func (s *fakeSource) HeadSHA(ctx context.Context, targetRef string) (string, error) {
	if s.sha == "" {
		return "", fmt.Errorf("unknown ref %s", targetRef)
	}
	return s.sha, nil
}

func (s *fakeSource) CurrentBranch(ctx context.Context) (string, error) {
	return s.branch, nil
}

func TestReviewLocal_UsesCurrentBranchWhenTargetEmpty(t *testing.T) {
	source := &fakeSource{
		branch: "feature",
		sha:    "abc123",
		files: []domain.ChangedFile{
			{Filename: "a.go", Patch: "@@ -1 +1,2 @@\n ctx\n+one"},
		},
	}
	gen := &fakeGenerator{comments: []domain.ReviewComment{
		{Line: domain.IntPtr(1), Text: "issue"},
	}}
	poster := &fakePoster{}
	orch := newOrchestrator(gen, poster, newMemStore())

	l := review.NewLocalReviewer(source, orch)
	result, err := l.ReviewLocal(context.Background(), review.LocalRequest{
		RepoName: "myrepo",
		BaseRef:  "main",
	})

	require.NoError(t, err)
	assert.Equal(t, "main", source.gotBase)
	assert.Equal(t, "feature", source.gotTarget)
	assert.Equal(t, 1, result.Posted)

	require.Len(t, poster.lines, 1)
	assert.Equal(t, "local/myrepo", poster.lines[0].PullRequest.FullRepo())
	assert.Equal(t, "abc123", poster.lines[0].PullRequest.HeadSHA)
}

func TestReviewLocal_HeadResolutionFailure(t *testing.T) {
	source := &fakeSource{branch: "feature"}
	orch := newOrchestrator(&fakeGenerator{}, &fakePoster{}, newMemStore())

	l := review.NewLocalReviewer(source, orch)
	_, err := l.ReviewLocal(context.Background(), review.LocalRequest{BaseRef: "main"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolve head")
}
