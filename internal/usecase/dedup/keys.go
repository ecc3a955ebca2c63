// Package dedup suppresses duplicate side effects across repeated webhook
// deliveries. Keys are derived from stable identifiers plus a content digest,
// so re-delivery of the same event always lands on the same key while any
// change to the underlying patch produces a different one.
package dedup

import (
	"fmt"

	"github.com/sherpai/sherpai/internal/domain"
)

// DefaultTTLSeconds is how long cache entries live: 4 days, long enough to
// survive CI re-runs and review iteration, short enough to bound growth.
const DefaultTTLSeconds = 345600

// Key namespaces. Patch-level entries gate generator invocation; line-level
// entries gate posting of individual comments.
const (
	patchKeyPrefix = "reviewed:"
	lineKeyPrefix  = "commented:"
)

// PatchKey returns the cache key for one (file, commit, patch-content)
// combination. A hit means the generator already ran for this exact diff and
// its output was cached.
//
// Format: reviewed:<repo>#<prNumber>:<filename>:<commitSha>:<digestHex>
func PatchKey(pr domain.PullRequest, filename, patch string) string {
	return fmt.Sprintf("%s%s#%d:%s:%s:%s",
		patchKeyPrefix, pr.FullRepo(), pr.Number, filename, pr.HeadSHA, domain.DigestHex(patch))
}

// LineKey returns the cache key for one commented line, fingerprinted by the
// line's content. The commit SHA is deliberately omitted so the same
// offending line surviving a rebase is not re-commented.
//
// Format: commented:<repo>#<prNumber>:<filename>::<digestHex>
func LineKey(pr domain.PullRequest, filename, lineContent string) string {
	return fmt.Sprintf("%s%s#%d:%s::%s",
		lineKeyPrefix, pr.FullRepo(), pr.Number, filename, domain.DigestHex(lineContent))
}
