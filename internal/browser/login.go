package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"

	"github.com/abdulachik/replyguy/internal/feed"
)

// loginIndicatorSelectors appear only when the session is not
// authenticated.
var loginIndicatorSelectors = []string{
	`a[href="/i/flow/login"]`,
	`[data-testid="loginButton"]`,
}

const (
	timelineWait    = 30 * time.Second
	manualLoginWait = 3 * time.Minute
)

// Login verifies the session is authenticated, restoring saved cookies
// and waiting for a manual operator login when it is not. A run cannot
// proceed without an authenticated view, so failures here are fatal.
type Login struct {
	driver  *Driver
	session feed.SessionStore
	feedURL string
}

// NewLogin creates a login flow for the given driver and session store.
func NewLogin(driver *Driver, session feed.SessionStore, feedURL string) *Login {
	return &Login{driver: driver, session: session, feedURL: feedURL}
}

// Ensure brings the page to an authenticated feed view. On success the
// current cookies are saved for the next run.
func (l *Login) Ensure(ctx context.Context) error {
	if l.session.HasSaved() {
		if loaded, err := l.session.Load(ctx); err != nil {
			slog.Warn("failed to load saved session", "error", err)
		} else if loaded {
			slog.Info("restored saved session")
		}
	}

	if err := l.driver.Navigate(l.feedURL); err != nil {
		return fmt.Errorf("open feed: %w", err)
	}

	page, err := l.driver.Page()
	if err != nil {
		return err
	}

	if l.needsLogin(page) {
		slog.Warn("not logged in; waiting for manual login in the browser window",
			"timeout", manualLoginWait)
		if err := l.waitForManualLogin(ctx, page); err != nil {
			return err
		}
	}

	// An article on the timeline is the login confirmation signal.
	if _, err := page.Context(ctx).Timeout(timelineWait).Element(articleSelector); err != nil {
		return fmt.Errorf("could not verify login: timeline never appeared: %w", err)
	}

	slog.Info("session authenticated")

	if err := l.session.Save(ctx); err != nil {
		slog.Warn("failed to save session", "error", err)
	}
	return nil
}

// needsLogin checks for login-only UI elements.
func (l *Login) needsLogin(page *rod.Page) bool {
	_, outcome := firstMatch(page.Sleeper(rod.NotFoundSleeper), loginIndicatorSelectors)
	return outcome == Found
}

// waitForManualLogin polls until the login indicators disappear or the
// wait expires.
func (l *Login) waitForManualLogin(ctx context.Context, page *rod.Page) error {
	deadline := time.Now().Add(manualLoginWait)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
		}
		if !l.needsLogin(page) {
			return nil
		}
	}
	return fmt.Errorf("manual login not completed within %s", manualLoginWait)
}
