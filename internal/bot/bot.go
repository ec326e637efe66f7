// Package bot drives the run loop: scan the feed, pick a novel repliable
// candidate, generate a reply, submit it, and record it for dedup.
package bot

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/abdulachik/replyguy/internal/config"
	"github.com/abdulachik/replyguy/internal/db"
	"github.com/abdulachik/replyguy/internal/feed"
	"github.com/abdulachik/replyguy/internal/filter"
)

// HistoryStore is the dedup ledger contract the loop depends on.
type HistoryStore interface {
	HasReplied(ctx context.Context, contentID string) (bool, error)
	MarkReplied(ctx context.Context, params db.MarkRepliedParams) error
}

// ReplyGenerator produces reply text; it never fails observably.
type ReplyGenerator interface {
	Generate(ctx context.Context, bodyText, author string) string
}

// Bot orchestrates one or more runs against a live feed.
type Bot struct {
	cfg        *config.Config
	scanner    feed.Scanner
	dispatcher feed.Dispatcher
	store      HistoryStore
	generator  ReplyGenerator
	filter     *filter.Filter
	approver   Approver

	// seams for tests
	now     func() time.Time
	sleep   func(context.Context, time.Duration) error
	randF64 func() float64
	shuffle func(n int, swap func(i, j int))
}

// Config holds the bot's collaborators and configuration.
type Config struct {
	Cfg        *config.Config
	Scanner    feed.Scanner
	Dispatcher feed.Dispatcher
	Store      HistoryStore
	Generator  ReplyGenerator
	Filter     *filter.Filter
	Approver   Approver // optional; nil means no approval step
}

// New creates a bot.
func New(cfg Config) *Bot {
	return &Bot{
		cfg:        cfg.Cfg,
		scanner:    cfg.Scanner,
		dispatcher: cfg.Dispatcher,
		store:      cfg.Store,
		generator:  cfg.Generator,
		filter:     cfg.Filter,
		approver:   cfg.Approver,
		now:        time.Now,
		sleep:      sleepCtx,
		randF64:    rand.Float64,
		shuffle:    rand.Shuffle,
	}
}

// RunOnce executes a single run and returns the number of replies made.
// The run ends at the reply quota, when the consecutive-failure budget is
// exhausted, or on context cancellation.
func (b *Bot) RunOnce(ctx context.Context) (int, error) {
	state := NewRunState()
	log := slog.With("run_id", state.RunID)

	log.Info("starting run",
		"max_replies", b.cfg.MaxRepliesPerRun,
		"failure_budget", b.cfg.MaxConsecutiveFailures,
		"min_spacing", b.cfg.MinReplySpacing,
	)

	for state.RepliesMade < b.cfg.MaxRepliesPerRun {
		if err := ctx.Err(); err != nil {
			log.Info("run interrupted", "replies_made", state.RepliesMade)
			return state.RepliesMade, err
		}

		candidate, found := b.selectCandidate(ctx, log)
		if !found {
			state.ConsecutiveFailures++
			log.Warn("selection cycle failed",
				"consecutive_failures", state.ConsecutiveFailures,
				"budget", b.cfg.MaxConsecutiveFailures,
			)
			if state.ConsecutiveFailures >= b.cfg.MaxConsecutiveFailures {
				log.Error("failure budget exhausted, aborting run",
					"replies_made", state.RepliesMade)
				break
			}
			continue
		}
		state.ConsecutiveFailures = 0

		log.Info("candidate selected",
			"content_id", candidate.ContentID,
			"author", candidate.Author,
		)

		// Only mandatory inter-reply delay; applies after successes only.
		if err := b.waitForSpacing(ctx, log, state); err != nil {
			return state.RepliesMade, err
		}

		replyText := b.generator.Generate(ctx, candidate.BodyText, candidate.Author)

		if b.approver != nil {
			if b.approver.Review(candidate, replyText) == Skip {
				log.Info("reply skipped by operator", "content_id", candidate.ContentID)
				continue
			}
		}

		log.Info("submitting reply", "content_id", candidate.ContentID, "chars", len(replyText))
		if !b.dispatcher.SubmitReply(ctx, candidate.Locator, replyText) {
			// Submission failures are UI/timing, not content scarcity:
			// they never count against the selection failure budget and
			// nothing is recorded.
			log.Warn("submission failed", "content_id", candidate.ContentID)
			continue
		}

		// Write-after-success: the record exists only once the reply is out.
		if err := b.store.MarkReplied(ctx, db.MarkRepliedParams{
			ContentID: candidate.ContentID,
			Author:    candidate.Author,
			BodyText:  candidate.BodyText,
			ReplyText: replyText,
		}); err != nil {
			// Accepted risk: this id may be re-attempted on a future run.
			log.Warn("failed to record reply", "content_id", candidate.ContentID, "error", err)
		}

		state.RepliesMade++
		state.LastSuccess = b.now()
		log.Info("reply posted",
			"content_id", candidate.ContentID,
			"replies_made", state.RepliesMade,
			"max", b.cfg.MaxRepliesPerRun,
		)

		if state.RepliesMade < b.cfg.MaxRepliesPerRun {
			pause := b.postSuccessPause()
			log.Info("pausing before next search", "duration", pause.Round(time.Second))
			if err := b.sleep(ctx, pause); err != nil {
				return state.RepliesMade, err
			}
		}
	}

	log.Info("run complete", "replies_made", state.RepliesMade)
	return state.RepliesMade, nil
}

// RunContinuous repeats RunOnce with a fixed pause between runs until the
// context is cancelled.
func (b *Bot) RunContinuous(ctx context.Context, interval time.Duration) error {
	slog.Info("starting continuous mode", "interval", interval)

	for {
		if _, err := b.RunOnce(ctx); err != nil {
			return err
		}

		slog.Info("waiting until next run", "interval", interval)
		if err := b.sleep(ctx, interval); err != nil {
			return err
		}
	}
}

// selectCandidate runs one selection cycle: a bounded number of scan
// attempts, each revealing more content and evaluating the visible set in
// randomized order. Returns false when no eligible candidate was found.
func (b *Bot) selectCandidate(ctx context.Context, log *slog.Logger) (feed.Candidate, bool) {
	for attempt := 1; attempt <= b.cfg.MaxScanAttempts; attempt++ {
		if ctx.Err() != nil {
			return feed.Candidate{}, false
		}

		if err := b.scanner.RevealMore(ctx); err != nil {
			log.Debug("reveal more failed", "error", err)
		}

		candidates, err := b.scanner.VisibleCandidates(ctx)
		if err != nil {
			log.Debug("scan failed", "attempt", attempt, "error", err)
			continue
		}

		// Randomized order avoids positional bias and varies behavior
		// across runs.
		b.shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})

		for _, candidate := range candidates {
			if !candidate.Valid() {
				continue
			}

			replied, err := b.store.HasReplied(ctx, candidate.ContentID)
			if err != nil {
				log.Warn("history lookup failed", "content_id", candidate.ContentID, "error", err)
				continue
			}
			if replied {
				log.Debug("candidate rejected: already replied", "content_id", candidate.ContentID)
				continue
			}

			if check := b.filter.Check(candidate.BodyText); !check.Pass {
				log.Debug("candidate rejected by filter",
					"content_id", candidate.ContentID, "reason", check.Reason)
				continue
			}

			return candidate, true
		}

		log.Debug("no eligible candidate in view", "attempt", attempt, "visible", len(candidates))
	}

	return feed.Candidate{}, false
}

// waitForSpacing blocks until the minimum spacing since the last
// successful reply has elapsed.
func (b *Bot) waitForSpacing(ctx context.Context, log *slog.Logger, state *RunState) error {
	if state.LastSuccess.IsZero() {
		return nil
	}
	elapsed := b.now().Sub(state.LastSuccess)
	if elapsed >= b.cfg.MinReplySpacing {
		return nil
	}
	wait := b.cfg.MinReplySpacing - elapsed
	log.Info("rate limit wait", "duration", wait.Round(time.Second))
	return b.sleep(ctx, wait)
}

// postSuccessPause picks a randomized pause so successful replies don't
// land on a fixed cadence.
func (b *Bot) postSuccessPause() time.Duration {
	span := b.cfg.PostSuccessSleepMax - b.cfg.PostSuccessSleepMin
	if span <= 0 {
		return b.cfg.PostSuccessSleepMin
	}
	return b.cfg.PostSuccessSleepMin + time.Duration(b.randF64()*float64(span))
}

// sleepCtx sleeps for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
