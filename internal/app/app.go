// Package app wires the application container: database, browser,
// generation backend, filter, and the run loop itself.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/abdulachik/replyguy/internal/bot"
	"github.com/abdulachik/replyguy/internal/browser"
	"github.com/abdulachik/replyguy/internal/config"
	"github.com/abdulachik/replyguy/internal/db"
	"github.com/abdulachik/replyguy/internal/feed"
	"github.com/abdulachik/replyguy/internal/filter"
	"github.com/abdulachik/replyguy/internal/reply"
)

// Options are per-invocation switches layered on top of the environment
// configuration.
type Options struct {
	// DryRun replaces the live dispatcher with one that only logs, and
	// disables ledger writes so nothing is marked replied.
	DryRun bool

	// ManualApproval puts a terminal prompt between generation and
	// submission.
	ManualApproval bool

	// ReviewDelay, when set and ManualApproval is off, shows each pending
	// reply and pauses before posting, leaving a window to Ctrl-C.
	ReviewDelay time.Duration
}

// App is the main application container holding all dependencies.
type App struct {
	Config  *config.Config
	Store   *db.Store
	Driver  *browser.Driver
	Session feed.SessionStore
	Bot     *bot.Bot
}

// New creates a fully wired application: it opens the database, runs
// migrations, launches the browser, and ensures an authenticated session
// before handing back the run loop.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	store, err := db.NewStore(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	driver, err := browser.NewDriver(ctx, browser.Config{
		SessionDir: cfg.SessionDir,
		Headless:   cfg.Headless,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	session := browser.NewCookieStore(driver.Browser(), cfg.SessionDir)

	login := browser.NewLogin(driver, session, cfg.FeedURL)
	if err := login.Ensure(ctx); err != nil {
		driver.Close()
		store.Close()
		return nil, fmt.Errorf("ensure login: %w", err)
	}

	scanner, err := browser.NewFeedScanner(driver)
	if err != nil {
		driver.Close()
		store.Close()
		return nil, fmt.Errorf("create scanner: %w", err)
	}

	var dispatcher feed.Dispatcher
	var history bot.HistoryStore = store
	if opts.DryRun {
		slog.Info("dry run: replies will be logged, not posted")
		dispatcher = feed.DryRunDispatcher{}
		history = readOnlyHistory{store}
	} else {
		actions, err := browser.NewActions(driver)
		if err != nil {
			driver.Close()
			store.Close()
			return nil, fmt.Errorf("create dispatcher: %w", err)
		}
		dispatcher = actions
	}

	var approver bot.Approver
	switch {
	case opts.ManualApproval:
		approver = &bot.TerminalApprover{In: os.Stdin, Out: os.Stdout}
	case opts.ReviewDelay > 0:
		approver = bot.NewDelayApprover(opts.ReviewDelay)
	}

	generator := reply.NewGenerator(reply.Config{
		Backend: reply.NewOllamaClient(reply.OllamaConfig{
			Host:  cfg.OllamaHost,
			Model: cfg.OllamaModel,
		}),
		MaxAttempts:  cfg.GenerateAttempts,
		BackoffDelay: cfg.GenerateBackoff,
	})

	b := bot.New(bot.Config{
		Cfg:        cfg,
		Scanner:    scanner,
		Dispatcher: dispatcher,
		Store:      history,
		Generator:  generator,
		Filter:     filter.New(filter.Config{}),
		Approver:   approver,
	})

	return &App{
		Config:  cfg,
		Store:   store,
		Driver:  driver,
		Session: session,
		Bot:     b,
	}, nil
}

// Close saves the session and releases all resources.
func (a *App) Close() error {
	if a.Session != nil {
		if err := a.Session.Save(context.Background()); err != nil {
			slog.Warn("failed to save session", "error", err)
		}
	}
	if a.Driver != nil {
		if err := a.Driver.Close(); err != nil {
			slog.Warn("failed to close browser", "error", err)
		}
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// readOnlyHistory keeps dedup lookups live during a dry run but drops
// writes, so rehearsals never poison the ledger.
type readOnlyHistory struct {
	*db.Store
}

func (readOnlyHistory) MarkReplied(ctx context.Context, params db.MarkRepliedParams) error {
	slog.Debug("dry run: skipping ledger write", "content_id", params.ContentID)
	return nil
}
