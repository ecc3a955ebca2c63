// Package trigger decides whether an inbound webhook event should start a
// review run. It is a two-state machine per pull request: Idle, and
// ReviewRequested while a time-boxed flag sits in the shared KVStore. The
// flag is never deleted explicitly; expiry returns the machine to Idle.
package trigger

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sherpai/sherpai/internal/domain"
	"github.com/sherpai/sherpai/internal/usecase/dedup"
	"github.com/sherpai/sherpai/internal/usecase/review"
)

// Phrase is the chat command that requests a review. The comment body must
// equal it exactly after trimming whitespace.
const Phrase = "/review"

// FlagTTLSeconds bounds how long a review request keeps synchronize events
// hot: 24 hours.
const FlagTTLSeconds = 86400

const flagKeyPrefix = "review-requested:"

// FlagKey returns the KVStore key for a PR's review-requested flag. It lives
// in its own namespace, disjoint from the dedup cache keys sharing the store.
func FlagKey(pr domain.PullRequest) string {
	return fmt.Sprintf("%s%s#%d", flagKeyPrefix, pr.FullRepo(), pr.Number)
}

// Reviewer runs the review flow for a pull request's current head.
type Reviewer interface {
	ReviewPullRequest(ctx context.Context, pr domain.PullRequest) (review.Result, error)
}

// SummaryPoster posts the one-line human-facing summary after an explicitly
// requested review.
type SummaryPoster interface {
	PostGeneralComment(ctx context.Context, req review.GeneralCommentRequest) error
}

// Decision reports what the gate did with an event, mostly for logging and
// tests.
type Decision struct {
	Ran    bool
	Reason string
	Result review.Result
}

// Gate wires the state machine to its collaborators.
type Gate struct {
	kv        dedup.KVStore
	reviewer  Reviewer
	summaries SummaryPoster
	logger    review.Logger
	flagTTL   time.Duration
}

// NewGate constructs a Gate. summaries and logger may be nil.
func NewGate(kv dedup.KVStore, reviewer Reviewer, summaries SummaryPoster, logger review.Logger) *Gate {
	return &Gate{
		kv:        kv,
		reviewer:  reviewer,
		summaries: summaries,
		logger:    logger,
		flagTTL:   FlagTTLSeconds * time.Second,
	}
}

// SetFlagTTL overrides the review-requested flag lifetime.
func (g *Gate) SetFlagTTL(d time.Duration) {
	if d > 0 {
		g.flagTTL = d
	}
}

// HandleEvent applies the gating rules:
//
//   - pull_request.opened always runs one review, without touching the flag.
//   - issue_comment.created runs only for the exact trigger phrase on a PR
//     thread; it sets the flag, runs a review, and posts a summary.
//   - pull_request.synchronize runs only while the flag is present.
//
// Review errors are returned to the caller but never change flag state.
func (g *Gate) HandleEvent(ctx context.Context, ev domain.WebhookEvent) (Decision, error) {
	switch ev.Type {
	case domain.EventPullRequestOpened:
		return g.run(ctx, ev.PullRequest, false)

	case domain.EventIssueCommentCreated:
		if strings.TrimSpace(ev.CommentBody) != Phrase {
			return Decision{Reason: "comment is not a review request"}, nil
		}
		if err := g.kv.Set(ctx, FlagKey(ev.PullRequest), "true", g.flagTTL); err != nil {
			// Fail open: the requested review still runs, only follow-up
			// synchronize events lose their trigger.
			g.logWarning(ctx, "failed to persist review-requested flag", map[string]interface{}{
				"pr":    ev.PullRequest.Number,
				"error": err.Error(),
			})
		}
		return g.run(ctx, ev.PullRequest, true)

	case domain.EventPullRequestSynchronize:
		_, ok, err := g.kv.Get(ctx, FlagKey(ev.PullRequest))
		if err != nil {
			g.logWarning(ctx, "failed to read review-requested flag", map[string]interface{}{
				"pr":    ev.PullRequest.Number,
				"error": err.Error(),
			})
			return Decision{Reason: "flag store unavailable"}, nil
		}
		if !ok {
			return Decision{Reason: "no review requested"}, nil
		}
		return g.run(ctx, ev.PullRequest, false)

	default:
		return Decision{Reason: "event not handled"}, nil
	}
}

func (g *Gate) run(ctx context.Context, pr domain.PullRequest, summarize bool) (Decision, error) {
	result, err := g.reviewer.ReviewPullRequest(ctx, pr)
	if err != nil {
		return Decision{Reason: "review failed"}, err
	}

	if summarize && g.summaries != nil {
		body := Summary(result.Posted)
		if err := g.summaries.PostGeneralComment(ctx, review.GeneralCommentRequest{
			PullRequest: pr,
			Body:        body,
		}); err != nil {
			g.logWarning(ctx, "failed to post review summary", map[string]interface{}{
				"pr":    pr.Number,
				"error": err.Error(),
			})
		}
	}

	return Decision{Ran: true, Result: result}, nil
}

// Summary renders the one-line human-facing outcome for a requested review.
func Summary(posted int) string {
	switch posted {
	case 0:
		return "no issues found"
	case 1:
		return "found 1 issue"
	default:
		return fmt.Sprintf("found %d issues", posted)
	}
}

func (g *Gate) logWarning(ctx context.Context, message string, fields map[string]interface{}) {
	if g.logger != nil {
		g.logger.LogWarning(ctx, message, fields)
		return
	}
	log.Printf("warning: %s: %v", message, fields)
}
