package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/sherpai/sherpai/internal/diff"
	"github.com/sherpai/sherpai/internal/domain"
	"github.com/sherpai/sherpai/internal/usecase/dedup"
)

// ErrMalformedOutput tags generator responses that could not be parsed as
// structured review data. The orchestrator recovers it as "zero comments for
// this file"; surfacing it as a tagged error keeps "no issues" and "couldn't
// understand the model" distinguishable for tests and operators.
var ErrMalformedOutput = errors.New("malformed generator output")

// GenerateRequest is the payload handed to the comment generator for one file.
type GenerateRequest struct {
	Filename     string
	Patch        string
	Instructions string
}

// CommentGenerator defines the outbound port for the language-model call.
// Implementations may fail transiently or return ErrMalformedOutput when the
// model's response does not parse.
type CommentGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) ([]domain.ReviewComment, error)
}

// LineCommentRequest anchors a comment to a diff position on the PR's head
// commit.
type LineCommentRequest struct {
	PullRequest domain.PullRequest
	Path        string
	Position    int
	Body        string
}

// GeneralCommentRequest posts a remark on the PR conversation thread.
type GeneralCommentRequest struct {
	PullRequest domain.PullRequest
	Body        string
}

// Poster defines the outbound port for posting comments to the host.
type Poster interface {
	PostLineComment(ctx context.Context, req LineCommentRequest) error
	PostGeneralComment(ctx context.Context, req GeneralCommentRequest) error
}

// DedupCache gates side effects behind content-derived keys.
type DedupCache interface {
	ShouldSkip(ctx context.Context, key string) bool
	Lookup(ctx context.Context, key string) (value string, ok bool)
	MarkDone(ctx context.Context, key, value string, ttlSeconds int)
}

// FileLister fetches the changed files of a pull request.
type FileLister interface {
	ListChangedFiles(ctx context.Context, pr domain.PullRequest) ([]domain.ChangedFile, error)
}

// OrchestratorDeps captures the inbound dependencies for the orchestrator.
type OrchestratorDeps struct {
	Generator    CommentGenerator
	Poster       Poster
	Cache        DedupCache
	Files        FileLister
	Logger       Logger // Optional: structured logging for warnings and info
	Instructions string // Optional: extra reviewer instructions passed to the generator
	TTLSeconds   int    // Cache entry lifetime; defaults to dedup.DefaultTTLSeconds
}

// FileResult captures the outcome of processing one changed file.
type FileResult struct {
	Posted   int  // line comments successfully posted
	Skipped  int  // line comments suppressed by the line-level cache
	Dropped  int  // comments with an unresolvable line reference
	Replayed bool // comments came from the patch-level cache, no generator call
}

// Result captures the outcome of a full pull-request run.
type Result struct {
	FilesProcessed int
	Posted         int
	Skipped        int
}

// Orchestrator drives the per-file review flow: build the diff index, obtain
// comments (generator or patch-level cache replay), resolve them to diff
// positions, and post whatever the line-level cache does not suppress.
//
// Files are processed strictly in sequence: a file's posting and cache writes
// complete before the next file begins. The KVStore check-then-act between
// ShouldSkip and MarkDone is not atomic across concurrent deliveries; keys
// are content-derived and idempotent to re-write, so the worst case is a
// duplicated comment, not corruption.
type Orchestrator struct {
	deps OrchestratorDeps
}

// NewOrchestrator wires the orchestrator dependencies.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	if deps.TTLSeconds <= 0 {
		deps.TTLSeconds = dedup.DefaultTTLSeconds
	}
	return &Orchestrator{deps: deps}
}

func (o *Orchestrator) validateDependencies() error {
	if o.deps.Generator == nil {
		return errors.New("comment generator is required")
	}
	if o.deps.Poster == nil {
		return errors.New("poster is required")
	}
	if o.deps.Cache == nil {
		return errors.New("dedup cache is required")
	}
	// Files is only required for ReviewPullRequest
	// Logger is optional
	return nil
}

// ReviewPullRequest fetches the PR's changed files and processes each in
// order. Per-file failures never abort the run; the worst outcome is fewer
// comments than expected.
func (o *Orchestrator) ReviewPullRequest(ctx context.Context, pr domain.PullRequest) (Result, error) {
	if err := o.validateDependencies(); err != nil {
		return Result{}, err
	}
	if o.deps.Files == nil {
		return Result{}, errors.New("file lister is required")
	}

	files, err := o.deps.Files.ListChangedFiles(ctx, pr)
	if err != nil {
		return Result{}, fmt.Errorf("list changed files: %w", err)
	}

	return o.ReviewFiles(ctx, pr, files), nil
}

// ReviewFiles processes an already-fetched file list, sequentially.
func (o *Orchestrator) ReviewFiles(ctx context.Context, pr domain.PullRequest, files []domain.ChangedFile) Result {
	var result Result
	for _, file := range files {
		fr := o.ProcessFile(ctx, pr, file)
		result.FilesProcessed++
		result.Posted += fr.Posted
		result.Skipped += fr.Skipped
	}
	return result
}

// ProcessFile runs the full per-file flow. It never returns an error: every
// failure mode is recovered locally as "fewer comments" and logged.
func (o *Orchestrator) ProcessFile(ctx context.Context, pr domain.PullRequest, file domain.ChangedFile) FileResult {
	// Binary and renamed-only files carry no patch.
	if file.Patch == "" {
		return FileResult{}
	}

	index := diff.Build(file.Patch)
	if index.Len() == 0 {
		// Nothing was added, so there is nothing the model should comment on.
		return FileResult{}
	}

	comments, replayed := o.obtainComments(ctx, pr, file)

	result := FileResult{Replayed: replayed}
	for _, raw := range comments {
		resolved, general := Resolve(raw, index, file.Filename)

		switch {
		case general != nil:
			// General remarks have no dedup key; they are only posted on
			// fresh generation, so patch-level caching bounds repetition.
			if replayed {
				continue
			}
			if err := o.deps.Poster.PostGeneralComment(ctx, GeneralCommentRequest{
				PullRequest: pr,
				Body:        general.Text,
			}); err != nil {
				o.logWarning(ctx, "failed to post general comment", map[string]interface{}{
					"file":  file.Filename,
					"error": err.Error(),
				})
			}

		case resolved != nil:
			added, _ := index.At(*raw.Line - 1)
			lineKey := dedup.LineKey(pr, file.Filename, added.Content)
			if o.deps.Cache.ShouldSkip(ctx, lineKey) {
				o.logInfo(ctx, "already commented on line, skipping", map[string]interface{}{
					"file":     file.Filename,
					"position": resolved.Position,
				})
				result.Skipped++
				continue
			}

			if err := o.deps.Poster.PostLineComment(ctx, LineCommentRequest{
				PullRequest: pr,
				Path:        resolved.Path,
				Position:    resolved.Position,
				Body:        resolved.Text,
			}); err != nil {
				// Not retried within the run; the next delivery retries, and
				// because MarkDone only happens after success the comment is
				// not lost to the cache.
				o.logWarning(ctx, "failed to post line comment", map[string]interface{}{
					"file":     file.Filename,
					"position": resolved.Position,
					"error":    err.Error(),
				})
				continue
			}

			result.Posted++
			o.deps.Cache.MarkDone(ctx, lineKey, "true", o.deps.TTLSeconds)

		default:
			// The model referenced a line ordinal beyond the diff's added
			// lines; drop just this comment.
			result.Dropped++
			o.logInfo(ctx, "dropping comment with unresolvable line reference", map[string]interface{}{
				"file": file.Filename,
				"line": derefLine(raw.Line),
			})
		}
	}

	return result
}

// obtainComments returns the raw comment list for the file, replaying the
// patch-level cache when possible and invoking the generator otherwise.
func (o *Orchestrator) obtainComments(ctx context.Context, pr domain.PullRequest, file domain.ChangedFile) (comments []domain.ReviewComment, replayed bool) {
	patchKey := dedup.PatchKey(pr, file.Filename, file.Patch)

	if cached, ok := o.deps.Cache.Lookup(ctx, patchKey); ok {
		decoded, err := decodeComments(cached)
		if err == nil {
			return decoded, true
		}
		o.logWarning(ctx, "cached comment list unreadable, regenerating", map[string]interface{}{
			"file":  file.Filename,
			"error": err.Error(),
		})
	}

	generated, err := o.deps.Generator.Generate(ctx, GenerateRequest{
		Filename:     file.Filename,
		Patch:        file.Patch,
		Instructions: o.deps.Instructions,
	})
	if err != nil {
		// Malformed output and transport failures alike recover as zero
		// comments for this file. The patch key is left unwritten so the
		// next delivery gets another chance at generation.
		o.logWarning(ctx, "comment generation failed", map[string]interface{}{
			"file":      file.Filename,
			"malformed": errors.Is(err, ErrMalformedOutput),
			"error":     err.Error(),
		})
		return nil, false
	}

	// Cache the raw list before posting so a re-delivery never repeats the
	// model call, even if posting below partially fails.
	if encoded, err := encodeComments(generated); err == nil {
		o.deps.Cache.MarkDone(ctx, patchKey, encoded, o.deps.TTLSeconds)
	}

	return generated, false
}

func encodeComments(comments []domain.ReviewComment) (string, error) {
	data, err := json.Marshal(comments)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeComments(value string) ([]domain.ReviewComment, error) {
	var comments []domain.ReviewComment
	if err := json.Unmarshal([]byte(value), &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func derefLine(line *int) int {
	if line == nil {
		return 0
	}
	return *line
}

func (o *Orchestrator) logInfo(ctx context.Context, message string, fields map[string]interface{}) {
	if o.deps.Logger != nil {
		o.deps.Logger.LogInfo(ctx, message, fields)
		return
	}
	log.Printf("%s: %v", message, fields)
}

func (o *Orchestrator) logWarning(ctx context.Context, message string, fields map[string]interface{}) {
	if o.deps.Logger != nil {
		o.deps.Logger.LogWarning(ctx, message, fields)
		return
	}
	log.Printf("warning: %s: %v", message, fields)
}
