// Package git computes per-file patches from a local repository for the
// offline review path. The patches carry only hunk text, same shape as the
// host API's patch field, so the position arithmetic downstream is identical.
package git

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	goGit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	formatdiff "github.com/go-git/go-git/v5/plumbing/format/diff"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/sherpai/sherpai/internal/domain"
)

// Engine reads diffs from a repository directory via go-git.
type Engine struct {
	repoDir string
}

// NewEngine constructs an engine for the provided repository directory.
func NewEngine(repoDir string) *Engine {
	return &Engine{repoDir: repoDir}
}

// ChangedFiles returns the files changed between baseRef and targetRef, each
// with its unified patch trimmed to the hunk stream. Binary files carry an
// empty patch.
func (e *Engine) ChangedFiles(ctx context.Context, baseRef, targetRef string) ([]domain.ChangedFile, error) {
	repo, err := goGit.PlainOpenWithOptions(e.repoDir, &goGit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	baseCommit, err := resolveCommit(repo, baseRef)
	if err != nil {
		return nil, fmt.Errorf("resolve base ref: %w", err)
	}

	targetCommit, err := resolveCommit(repo, targetRef)
	if err != nil {
		return nil, fmt.Errorf("resolve target ref: %w", err)
	}

	patch, err := baseCommit.Patch(targetCommit)
	if err != nil {
		return nil, fmt.Errorf("compute patch: %w", err)
	}

	files := make([]domain.ChangedFile, 0, len(patch.FilePatches()))
	for _, fp := range patch.FilePatches() {
		path, status := pathAndStatus(fp)
		if path == "" {
			continue
		}

		var patchText string
		if !fp.IsBinary() {
			encoded, err := encodeFilePatch(fp)
			if err != nil {
				return nil, fmt.Errorf("encode patch for %s: %w", path, err)
			}
			patchText = trimToHunks(encoded)
		}

		files = append(files, domain.ChangedFile{
			Filename: path,
			Status:   status,
			Patch:    patchText,
		})
	}

	return files, nil
}

// CurrentBranch returns the name of the checked-out branch.
func (e *Engine) CurrentBranch(ctx context.Context) (string, error) {
	repo, err := goGit.PlainOpenWithOptions(e.repoDir, &goGit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("open repo: %w", err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	name := head.Name()
	if name.IsBranch() {
		return name.Short(), nil
	}
	return "", fmt.Errorf("detached HEAD")
}

// HeadSHA returns the commit hash targetRef resolves to. Local runs use it
// where the webhook path uses the PR's head SHA.
func (e *Engine) HeadSHA(ctx context.Context, targetRef string) (string, error) {
	repo, err := goGit.PlainOpenWithOptions(e.repoDir, &goGit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("open repo: %w", err)
	}
	commit, err := resolveCommit(repo, targetRef)
	if err != nil {
		return "", fmt.Errorf("resolve target ref: %w", err)
	}
	return commit.Hash.String(), nil
}

func resolveCommit(repo *goGit.Repository, ref string) (*object.Commit, error) {
	candidates := []string{
		ref,
		fmt.Sprintf("refs/heads/%s", ref),
		fmt.Sprintf("refs/remotes/origin/%s", ref),
	}

	var lastErr error
	for _, candidate := range candidates {
		name := plumbing.Revision(candidate)
		hash, err := repo.ResolveRevision(name)
		if err != nil {
			lastErr = err
			continue
		}
		return repo.CommitObject(*hash)
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("unable to resolve ref %s", ref)
}

func pathAndStatus(fp formatdiff.FilePatch) (string, string) {
	from, to := fp.Files()

	switch {
	case from == nil && to != nil:
		return to.Path(), domain.FileStatusAdded
	case from != nil && to == nil:
		return from.Path(), domain.FileStatusDeleted
	case from != nil && to != nil:
		if from.Path() != to.Path() {
			return to.Path(), domain.FileStatusRenamed
		}
		return to.Path(), domain.FileStatusModified
	default:
		return "", domain.FileStatusModified
	}
}

// trimToHunks drops the "diff --git" and "---/+++" preamble so the patch
// starts at the first hunk header, matching the host API's patch field.
func trimToHunks(patchText string) string {
	idx := strings.Index(patchText, "@@")
	if idx < 0 {
		return ""
	}
	return strings.TrimRight(patchText[idx:], "\n")
}

func encodeFilePatch(fp formatdiff.FilePatch) (string, error) {
	var buf bytes.Buffer
	encoder := formatdiff.NewUnifiedEncoder(&buf, formatdiff.DefaultContextLines)
	if err := encoder.Encode(singlePatch{fp: fp}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type singlePatch struct {
	fp formatdiff.FilePatch
}

func (s singlePatch) FilePatches() []formatdiff.FilePatch {
	return []formatdiff.FilePatch{s.fp}
}

func (s singlePatch) Message() string {
	return ""
}
