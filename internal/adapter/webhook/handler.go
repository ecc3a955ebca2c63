// Package webhook is the HTTP driving adapter: it verifies GitHub webhook
// deliveries and turns them into events for the trigger gate. One delivery is
// one unit of work, handled synchronously before the response is written, so
// GitHub's redelivery covers us against crashes mid-review.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/sherpai/sherpai/internal/domain"
	"github.com/sherpai/sherpai/internal/usecase/review"
	"github.com/sherpai/sherpai/internal/usecase/trigger"
)

// maxBodyBytes bounds webhook payloads; GitHub caps deliveries at 25 MB.
const maxBodyBytes = 25 << 20

// EventHandler is the inbound port, satisfied by trigger.Gate.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev domain.WebhookEvent) (trigger.Decision, error)
}

// PullFetcher resolves a pull request's head SHA; issue_comment payloads do
// not include it.
type PullFetcher interface {
	GetPullRequest(ctx context.Context, owner, repo string, number int) (domain.PullRequest, error)
}

// Handler serves the webhook and health endpoints.
type Handler struct {
	secret []byte
	gate   EventHandler
	pulls  PullFetcher
	logger review.Logger
}

// NewHandler creates a Handler. logger may be nil.
func NewHandler(secret string, gate EventHandler, pulls PullFetcher, logger review.Logger) *Handler {
	return &Handler{
		secret: []byte(secret),
		gate:   gate,
		pulls:  pulls,
		logger: logger,
	}
}

// NewServeMux registers the webhook routes.
func NewServeMux(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /webhook", h.HandleWebhook)
	mux.HandleFunc("GET /healthz", h.Health)

	return mux
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleWebhook verifies the delivery signature and dispatches by event type.
// Unhandled events and non-trigger payloads are acknowledged with 200 so
// GitHub does not redeliver them.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if !h.verifySignature(body, r.Header.Get("X-Hub-Signature-256")) {
		h.logWarning(r.Context(), "webhook signature verification failed", map[string]interface{}{
			"event": r.Header.Get("X-GitHub-Event"),
		})
		writeError(w, http.StatusUnauthorized, "signature mismatch")
		return
	}

	ev, ok, err := h.parseEvent(r.Context(), r.Header.Get("X-GitHub-Event"), body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	decision, err := h.gate.HandleEvent(r.Context(), ev)
	if err != nil {
		h.logWarning(r.Context(), "review run failed", map[string]interface{}{
			"event": string(ev.Type),
			"pr":    ev.PullRequest.Number,
			"error": err.Error(),
		})
		writeError(w, http.StatusInternalServerError, "review failed")
		return
	}

	status := "skipped"
	if decision.Ran {
		status = "reviewed"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": status,
		"posted": decision.Result.Posted,
	})
}

// parseEvent maps a raw delivery to a domain event. ok is false for events
// and actions outside the gate's vocabulary.
func (h *Handler) parseEvent(ctx context.Context, eventName string, body []byte) (domain.WebhookEvent, bool, error) {
	switch eventName {
	case "pull_request":
		var payload pullRequestPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return domain.WebhookEvent{}, false, errInvalidPayload
		}

		var evType domain.WebhookEventType
		switch payload.Action {
		case "opened":
			evType = domain.EventPullRequestOpened
		case "synchronize":
			evType = domain.EventPullRequestSynchronize
		default:
			return domain.WebhookEvent{}, false, nil
		}

		number := payload.PullRequest.Number
		if number == 0 {
			number = payload.Number
		}

		return domain.WebhookEvent{
			Type: evType,
			PullRequest: domain.PullRequest{
				Owner:   payload.Repository.Owner.Login,
				Repo:    payload.Repository.Name,
				Number:  number,
				HeadSHA: payload.PullRequest.Head.SHA,
			},
		}, true, nil

	case "issue_comment":
		var payload issueCommentPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return domain.WebhookEvent{}, false, errInvalidPayload
		}
		if payload.Action != "created" || payload.Issue.PullRequest == nil {
			return domain.WebhookEvent{}, false, nil
		}

		pr, err := h.pulls.GetPullRequest(ctx,
			payload.Repository.Owner.Login,
			payload.Repository.Name,
			payload.Issue.Number,
		)
		if err != nil {
			h.logWarning(ctx, "failed to resolve pull request head", map[string]interface{}{
				"pr":    payload.Issue.Number,
				"error": err.Error(),
			})
			return domain.WebhookEvent{}, false, nil
		}

		return domain.WebhookEvent{
			Type:        domain.EventIssueCommentCreated,
			PullRequest: pr,
			CommentBody: payload.Comment.Body,
		}, true, nil

	default:
		return domain.WebhookEvent{}, false, nil
	}
}

// verifySignature checks the HMAC-SHA256 delivery signature in constant time.
func (h *Handler) verifySignature(body []byte, header string) bool {
	if len(h.secret) == 0 || header == "" {
		return false
	}

	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(header))
}

func (h *Handler) logWarning(ctx context.Context, message string, fields map[string]interface{}) {
	if h.logger != nil {
		h.logger.LogWarning(ctx, message, fields)
		return
	}
	log.Printf("warning: %s: %v", message, fields)
}
