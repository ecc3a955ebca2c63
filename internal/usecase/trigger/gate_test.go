package trigger_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sherpai/sherpai/internal/domain"
	"github.com/sherpai/sherpai/internal/usecase/review"
	"github.com/sherpai/sherpai/internal/usecase/trigger"
)

var gatePR = domain.PullRequest{
	Owner:   "octocat",
	Repo:    "hello-world",
	Number:  11,
	HeadSHA: "abc123",
}

type ttlStore struct {
	mu      sync.Mutex
	values  map[string]string
	expires map[string]time.Time
	now     time.Time
}

func newTTLStore() *ttlStore {
	return &ttlStore{
		values:  make(map[string]string),
		expires: make(map[string]time.Time),
		now:     time.Now(),
	}
}

func (s *ttlStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.expires[key]
	if !ok || s.now.After(exp) {
		return "", false, nil
	}
	return s.values[key], true, nil
}

func (s *ttlStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.expires[key] = s.now.Add(ttl)
	return nil
}

func (s *ttlStore) advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = s.now.Add(d)
}

type countingReviewer struct {
	runs   int
	posted int
}

func (r *countingReviewer) ReviewPullRequest(ctx context.Context, pr domain.PullRequest) (review.Result, error) {
	r.runs++
	return review.Result{Posted: r.posted}, nil
}

type summaryRecorder struct {
	bodies []string
}

func (s *summaryRecorder) PostGeneralComment(ctx context.Context, req review.GeneralCommentRequest) error {
	s.bodies = append(s.bodies, req.Body)
	return nil
}

func TestHandleEvent_OpenedAlwaysRuns(t *testing.T) {
	reviewer := &countingReviewer{}
	gate := trigger.NewGate(newTTLStore(), reviewer, nil, nil)

	d, err := gate.HandleEvent(context.Background(), domain.WebhookEvent{
		Type:        domain.EventPullRequestOpened,
		PullRequest: gatePR,
	})

	require.NoError(t, err)
	assert.True(t, d.Ran)
	assert.Equal(t, 1, reviewer.runs)
}

func TestHandleEvent_SynchronizeWithoutFlagIsNoOp(t *testing.T) {
	reviewer := &countingReviewer{}
	gate := trigger.NewGate(newTTLStore(), reviewer, nil, nil)

	d, err := gate.HandleEvent(context.Background(), domain.WebhookEvent{
		Type:        domain.EventPullRequestSynchronize,
		PullRequest: gatePR,
	})

	require.NoError(t, err)
	assert.False(t, d.Ran)
	assert.Equal(t, 0, reviewer.runs)
}

func TestHandleEvent_CommandSetsFlagAndRuns(t *testing.T) {
	store := newTTLStore()
	reviewer := &countingReviewer{posted: 3}
	summaries := &summaryRecorder{}
	gate := trigger.NewGate(store, reviewer, summaries, nil)
	ctx := context.Background()

	d, err := gate.HandleEvent(ctx, domain.WebhookEvent{
		Type:        domain.EventIssueCommentCreated,
		PullRequest: gatePR,
		CommentBody: "  /review \n",
	})
	require.NoError(t, err)
	assert.True(t, d.Ran)
	require.Len(t, summaries.bodies, 1)
	assert.Equal(t, "found 3 issues", summaries.bodies[0])

	// A synchronize within the TTL window triggers exactly one more run.
	d, err = gate.HandleEvent(ctx, domain.WebhookEvent{
		Type:        domain.EventPullRequestSynchronize,
		PullRequest: gatePR,
	})
	require.NoError(t, err)
	assert.True(t, d.Ran)
	assert.Equal(t, 2, reviewer.runs)

	// No extra summary for unsolicited synchronize runs.
	assert.Len(t, summaries.bodies, 1)
}

func TestHandleEvent_FlagExpires(t *testing.T) {
	store := newTTLStore()
	reviewer := &countingReviewer{}
	gate := trigger.NewGate(store, reviewer, nil, nil)
	ctx := context.Background()

	_, err := gate.HandleEvent(ctx, domain.WebhookEvent{
		Type:        domain.EventIssueCommentCreated,
		PullRequest: gatePR,
		CommentBody: "/review",
	})
	require.NoError(t, err)
	require.Equal(t, 1, reviewer.runs)

	store.advance(trigger.FlagTTLSeconds*time.Second + time.Minute)

	d, err := gate.HandleEvent(ctx, domain.WebhookEvent{
		Type:        domain.EventPullRequestSynchronize,
		PullRequest: gatePR,
	})
	require.NoError(t, err)
	assert.False(t, d.Ran)
	assert.Equal(t, 1, reviewer.runs)
}

func TestHandleEvent_NonCommandCommentIgnored(t *testing.T) {
	reviewer := &countingReviewer{}
	gate := trigger.NewGate(newTTLStore(), reviewer, nil, nil)

	for _, body := range []string{"lgtm", "/review please", "review", ""} {
		d, err := gate.HandleEvent(context.Background(), domain.WebhookEvent{
			Type:        domain.EventIssueCommentCreated,
			PullRequest: gatePR,
			CommentBody: body,
		})
		require.NoError(t, err)
		assert.False(t, d.Ran, "body %q", body)
	}
	assert.Equal(t, 0, reviewer.runs)
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "no issues found", trigger.Summary(0))
	assert.Equal(t, "found 1 issue", trigger.Summary(1))
	assert.Equal(t, "found 5 issues", trigger.Summary(5))
}
