package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

const (
	FileStatusAdded    = "added"
	FileStatusModified = "modified"
	FileStatusRenamed  = "renamed"
	FileStatusDeleted  = "deleted"
)

// PullRequest identifies the pull request a review run operates on.
type PullRequest struct {
	Owner   string
	Repo    string
	Number  int
	HeadSHA string
}

// FullRepo returns the "owner/repo" form used in cache keys and logs.
func (pr PullRequest) FullRepo() string {
	return pr.Owner + "/" + pr.Repo
}

// ChangedFile is one file entry from a pull request's changed-files listing.
// Patch is the unified diff for the file as supplied by the host API; it is
// empty for binary or renamed-only files.
type ChangedFile struct {
	Filename string
	Status   string
	Patch    string
}

// ReviewComment is the raw model output for a single remark.
// Line, when present, is a 1-based ordinal into the added lines of the patch
// (not a diff position and not a file line number). A nil Line marks a
// general, non-line-anchored remark.
type ReviewComment struct {
	Line *int   `json:"line,omitempty"`
	Text string `json:"text"`
}

// ResolvedComment is a line comment translated into the coordinates the host
// API needs to anchor it: a file path and a 1-based position within the raw
// patch text stream.
type ResolvedComment struct {
	Path     string
	Position int
	Text     string
}

// GeneralComment is a file- or PR-level remark with no line anchor.
type GeneralComment struct {
	Text string
}

// WebhookEventType enumerates the inbound events the service reacts to.
type WebhookEventType string

const (
	EventPullRequestOpened      WebhookEventType = "pull_request.opened"
	EventPullRequestSynchronize WebhookEventType = "pull_request.synchronize"
	EventIssueCommentCreated    WebhookEventType = "issue_comment.created"
)

// WebhookEvent is the normalized form of an inbound delivery.
type WebhookEvent struct {
	Type        WebhookEventType
	PullRequest PullRequest
	CommentBody string // set for issue_comment events
}

// DigestHex returns the hex-encoded SHA-256 digest of s. Cache keys use it
// as the content fingerprint, so its output must stay stable across releases.
func DigestHex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// IntPtr returns a pointer to the given int value.
func IntPtr(n int) *int {
	return &n
}
