package bot

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdulachik/replyguy/internal/config"
	"github.com/abdulachik/replyguy/internal/db"
	"github.com/abdulachik/replyguy/internal/feed"
	"github.com/abdulachik/replyguy/internal/filter"
	"github.com/abdulachik/replyguy/internal/reply"
)

// fakeScanner returns scripted candidate batches, one per scan attempt.
type fakeScanner struct {
	batches     [][]feed.Candidate
	repeatLast  bool
	scanCalls   int
	revealCalls int
}

func (f *fakeScanner) VisibleCandidates(ctx context.Context) ([]feed.Candidate, error) {
	i := f.scanCalls
	f.scanCalls++
	if i >= len(f.batches) {
		if f.repeatLast && len(f.batches) > 0 {
			i = len(f.batches) - 1
		} else {
			return nil, nil
		}
	}
	return f.batches[i], nil
}

func (f *fakeScanner) RevealMore(ctx context.Context) error {
	f.revealCalls++
	return nil
}

type submission struct {
	locator any
	text    string
	at      time.Time
}

// fakeDispatcher records submissions and returns scripted outcomes.
type fakeDispatcher struct {
	results     []bool
	submissions []submission
	clock       *fakeClock
}

func (f *fakeDispatcher) SubmitReply(ctx context.Context, locator any, text string) bool {
	var at time.Time
	if f.clock != nil {
		at = f.clock.now
	}
	f.submissions = append(f.submissions, submission{locator: locator, text: text, at: at})
	i := len(f.submissions) - 1
	if i >= len(f.results) {
		if len(f.results) == 0 {
			return true
		}
		i = len(f.results) - 1
	}
	return f.results[i]
}

// fakeGenerator returns a fixed reply and records what it was asked for.
type fakeGenerator struct {
	reply string
	calls []string
}

func (f *fakeGenerator) Generate(ctx context.Context, bodyText, author string) string {
	f.calls = append(f.calls, bodyText)
	return f.reply
}

// fakeClock advances only when the bot sleeps.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return ctx.Err()
}

func newTestStore(t *testing.T) *db.Store {
	t.Helper()
	ctx := context.Background()
	store, err := db.NewStore(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate(ctx))
	return store
}

func testConfig() *config.Config {
	return &config.Config{
		MaxRepliesPerRun:       1,
		MaxScanAttempts:        3,
		MaxConsecutiveFailures: 5,
		MinReplySpacing:        30 * time.Second,
		PostSuccessSleepMin:    0,
		PostSuccessSleepMax:    0,
	}
}

// newTestBot wires a bot with deterministic seams: frozen shuffle, a fake
// clock, and sleeps that advance the clock instead of blocking.
func newTestBot(cfg *config.Config, scanner feed.Scanner, dispatcher feed.Dispatcher, store HistoryStore, gen ReplyGenerator, approver Approver) (*Bot, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	b := New(Config{
		Cfg:        cfg,
		Scanner:    scanner,
		Dispatcher: dispatcher,
		Store:      store,
		Generator:  gen,
		Filter:     filter.New(filter.Config{}),
		Approver:   approver,
	})
	b.now = func() time.Time { return clock.now }
	b.sleep = clock.sleep
	b.randF64 = func() float64 { return 0.5 }
	b.shuffle = func(n int, swap func(i, j int)) {}
	return b, clock
}

func candidate(id, author, text string) feed.Candidate {
	return feed.Candidate{ContentID: id, Author: author, BodyText: text, Locator: "loc-" + id}
}

// failingBackend simulates an unreachable generation backend.
type failingBackend struct{}

func (failingBackend) Generate(ctx context.Context, prompt string, opts reply.Options) (string, error) {
	return "", errors.New("connection refused")
}

func TestBot_RunOnce_Scenario(t *testing.T) {
	// Feed yields a too-short post first, then a repliable one. The
	// generation backend is down, so the reply comes from the fallback
	// set. Submission succeeds.
	store := newTestStore(t)
	scanner := &fakeScanner{batches: [][]feed.Candidate{
		{candidate("1", "alice", "short")},
		{candidate("2", "bob", "I think microservices are overrated for small teams")},
	}}
	dispatcher := &fakeDispatcher{}
	gen := reply.NewGenerator(reply.Config{
		Backend:      failingBackend{},
		MaxAttempts:  2,
		BackoffDelay: time.Millisecond,
	})

	b, _ := newTestBot(testConfig(), scanner, dispatcher, store, gen, nil)

	made, err := b.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, made)

	require.Len(t, dispatcher.submissions, 1)
	assert.Equal(t, "loc-2", dispatcher.submissions[0].locator)
	assert.NotEmpty(t, dispatcher.submissions[0].text)

	ctx := context.Background()
	replied, err := store.HasReplied(ctx, "2")
	require.NoError(t, err)
	assert.True(t, replied)

	replied, err = store.HasReplied(ctx, "1")
	require.NoError(t, err)
	assert.False(t, replied)

	count, err := store.CountReplies(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestBot_RunOnce_DedupProperty(t *testing.T) {
	// A content id already in the ledger must never reach the generator
	// or the dispatcher again.
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.MarkReplied(ctx, db.MarkRepliedParams{
		ContentID: "99",
		Author:    "carol",
		BodyText:  "already handled post text",
		ReplyText: "earlier reply",
	}))

	scanner := &fakeScanner{
		batches:    [][]feed.Candidate{{candidate("99", "carol", "already handled post text")}},
		repeatLast: true,
	}
	dispatcher := &fakeDispatcher{}
	gen := &fakeGenerator{reply: "should never be used"}

	cfg := testConfig()
	cfg.MaxScanAttempts = 2
	cfg.MaxConsecutiveFailures = 2

	b, _ := newTestBot(cfg, scanner, dispatcher, store, gen, nil)

	made, err := b.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, made)
	assert.Empty(t, gen.calls)
	assert.Empty(t, dispatcher.submissions)
}

func TestBot_RunOnce_FailureBudget(t *testing.T) {
	// An empty feed exhausts the consecutive-failure budget and aborts
	// the run; no further lookups happen after the abort.
	store := newTestStore(t)
	scanner := &fakeScanner{}
	dispatcher := &fakeDispatcher{}
	gen := &fakeGenerator{reply: "unused"}

	cfg := testConfig()
	cfg.MaxRepliesPerRun = 10
	cfg.MaxScanAttempts = 2
	cfg.MaxConsecutiveFailures = 3

	b, _ := newTestBot(cfg, scanner, dispatcher, store, gen, nil)

	made, err := b.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, made)

	// 3 failed selection cycles x 2 scan attempts each, then nothing.
	assert.Equal(t, 6, scanner.scanCalls)
	assert.Empty(t, dispatcher.submissions)
}

func TestBot_RunOnce_RateLimiting(t *testing.T) {
	// The second submission must not start before
	// last_success + min_spacing, verified with the simulated clock.
	store := newTestStore(t)
	scanner := &fakeScanner{batches: [][]feed.Candidate{
		{candidate("1", "alice", "first post with plenty of text")},
		{candidate("2", "bob", "second post with plenty of text")},
	}}
	clockedDispatcher := &fakeDispatcher{}
	gen := &fakeGenerator{reply: "a perfectly fine reply"}

	cfg := testConfig()
	cfg.MaxRepliesPerRun = 2

	b, clock := newTestBot(cfg, scanner, clockedDispatcher, store, gen, nil)
	clockedDispatcher.clock = clock

	start := clock.now
	made, err := b.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, made)

	require.Len(t, clockedDispatcher.submissions, 2)
	firstSuccess := clockedDispatcher.submissions[0].at
	secondStart := clockedDispatcher.submissions[1].at
	assert.Equal(t, start, firstSuccess)
	assert.False(t, secondStart.Before(firstSuccess.Add(cfg.MinReplySpacing)),
		"second submission started before min spacing elapsed")
	assert.Contains(t, clock.sleeps, cfg.MinReplySpacing)
}

func TestBot_RunOnce_SubmissionFailureDoesNotCountAgainstBudget(t *testing.T) {
	// A failed submission is a UI problem, not content scarcity: nothing
	// is recorded, the budget is untouched, and the loop moves on.
	store := newTestStore(t)
	scanner := &fakeScanner{batches: [][]feed.Candidate{
		{candidate("1", "alice", "a post the dispatcher will fumble")},
		{candidate("2", "bob", "a post the dispatcher will handle")},
	}}
	dispatcher := &fakeDispatcher{results: []bool{false, true}}
	gen := &fakeGenerator{reply: "a perfectly fine reply"}

	cfg := testConfig()
	cfg.MaxConsecutiveFailures = 1 // a single counted failure would abort

	b, _ := newTestBot(cfg, scanner, dispatcher, store, gen, nil)

	made, err := b.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, made)
	require.Len(t, dispatcher.submissions, 2)

	ctx := context.Background()
	replied, err := store.HasReplied(ctx, "1")
	require.NoError(t, err)
	assert.False(t, replied, "failed submission must not be recorded")

	replied, err = store.HasReplied(ctx, "2")
	require.NoError(t, err)
	assert.True(t, replied)
}

func TestBot_RunOnce_FilterRejection(t *testing.T) {
	// Deny-listed candidates never reach generation; the cycle keeps
	// looking and picks the clean one.
	store := newTestStore(t)
	scanner := &fakeScanner{batches: [][]feed.Candidate{{
		candidate("1", "alice", "they found a bomb near the station"),
		candidate("2", "bob", "shipping a side project this weekend"),
	}}}
	dispatcher := &fakeDispatcher{}
	gen := &fakeGenerator{reply: "a perfectly fine reply"}

	b, _ := newTestBot(testConfig(), scanner, dispatcher, store, gen, nil)

	made, err := b.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, made)
	require.Len(t, gen.calls, 1)
	assert.Equal(t, "shipping a side project this weekend", gen.calls[0])
}

type scriptedApprover struct {
	decisions []Decision
	calls     int
}

func (a *scriptedApprover) Review(c feed.Candidate, replyText string) Decision {
	d := a.decisions[a.calls]
	a.calls++
	return d
}

func TestBot_RunOnce_ManualApprovalSkip(t *testing.T) {
	// A skipped reply is neither submitted nor recorded, and skipping
	// does not count against the failure budget.
	store := newTestStore(t)
	scanner := &fakeScanner{batches: [][]feed.Candidate{
		{candidate("1", "alice", "first post with plenty of text")},
		{candidate("2", "bob", "second post with plenty of text")},
	}}
	dispatcher := &fakeDispatcher{}
	gen := &fakeGenerator{reply: "a perfectly fine reply"}
	approver := &scriptedApprover{decisions: []Decision{Skip, Approve}}

	cfg := testConfig()
	cfg.MaxConsecutiveFailures = 1

	b, _ := newTestBot(cfg, scanner, dispatcher, store, gen, approver)

	made, err := b.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, made)
	assert.Equal(t, 2, approver.calls)

	require.Len(t, dispatcher.submissions, 1)
	assert.Equal(t, "loc-2", dispatcher.submissions[0].locator)

	ctx := context.Background()
	replied, err := store.HasReplied(ctx, "1")
	require.NoError(t, err)
	assert.False(t, replied)
}

func TestBot_RunOnce_QuotaReached(t *testing.T) {
	store := newTestStore(t)
	scanner := &fakeScanner{batches: [][]feed.Candidate{
		{candidate("1", "a", "first post with plenty of text")},
		{candidate("2", "b", "second post with plenty of text")},
		{candidate("3", "c", "third post with plenty of text")},
		{candidate("4", "d", "fourth post with plenty of text")},
	}}
	dispatcher := &fakeDispatcher{}
	gen := &fakeGenerator{reply: "a perfectly fine reply"}

	cfg := testConfig()
	cfg.MaxRepliesPerRun = 3

	b, _ := newTestBot(cfg, scanner, dispatcher, store, gen, nil)

	made, err := b.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, made)
	assert.Len(t, dispatcher.submissions, 3)
}

func TestBot_RunOnce_ContextCancelled(t *testing.T) {
	store := newTestStore(t)
	scanner := &fakeScanner{repeatLast: true, batches: [][]feed.Candidate{
		{candidate("1", "a", "first post with plenty of text")},
	}}
	dispatcher := &fakeDispatcher{}
	gen := &fakeGenerator{reply: "a perfectly fine reply"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b, _ := newTestBot(testConfig(), scanner, dispatcher, store, gen, nil)

	made, err := b.RunOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, made)
	assert.Empty(t, dispatcher.submissions)
}
