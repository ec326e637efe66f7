package browser

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/abdulachik/replyguy/internal/feed"
)

// replyButtonSelectors locate the reply control on an article.
var replyButtonSelectors = []string{
	`[data-testid="reply"]`,
	`button[aria-label*="Reply"]`,
	`button[aria-label*="reply"]`,
	`div[role="button"][aria-label*="Reply"]`,
}

// composerSelectors locate the reply text box once the composer opens.
var composerSelectors = []string{
	`div[data-testid="tweetTextarea_0"]`,
	`div[contenteditable="true"][data-testid="tweetTextarea_0"]`,
	`div[role="textbox"]`,
	`div[contenteditable="true"]`,
}

// postButtonSelectors locate the submit control in the composer.
var postButtonSelectors = []string{
	`button[data-testid="tweetButton"]`,
	`button[data-testid="tweetButtonInline"]`,
}

const composerWait = 20 * time.Second

// Actions submits replies through the live composer. It implements
// feed.Dispatcher: every recoverable failure is reported as false, never
// as an error.
type Actions struct {
	page *rod.Page

	// sleep is injectable for tests.
	sleep func(time.Duration)
}

// NewActions creates a dispatcher bound to the driver's page.
func NewActions(driver *Driver) (*Actions, error) {
	page, err := driver.Page()
	if err != nil {
		return nil, err
	}
	return &Actions{page: page, sleep: time.Sleep}, nil
}

// SubmitReply runs the full flow: open the composer from the located
// article, type the reply like a person would, post it, and verify the
// composer went away.
func (a *Actions) SubmitReply(ctx context.Context, locator any, text string) bool {
	article, ok := locator.(*rod.Element)
	if !ok {
		slog.Warn("dispatcher received unexpected locator type")
		return false
	}

	if !a.openComposer(article) {
		return false
	}
	if !a.typeReply(ctx, text) {
		return false
	}
	return a.post(ctx)
}

// openComposer clicks the reply button on the article.
func (a *Actions) openComposer(article *rod.Element) bool {
	button, outcome := firstMatch(article.Sleeper(rod.NotFoundSleeper), replyButtonSelectors)
	if outcome != Found {
		slog.Warn("reply button lookup failed", "outcome", outcome.String())
		return false
	}

	if err := button.ScrollIntoView(); err != nil {
		slog.Warn("scroll to reply button failed", "error", err)
		return false
	}
	a.humanDelay(300, 800)

	if err := button.Click(proto.InputMouseButtonLeft, 1); err != nil {
		slog.Warn("click reply button failed", "error", err)
		return false
	}

	a.humanDelay(1000, 2000)
	return true
}

// typeReply types text into the composer character by character with
// variable speed.
func (a *Actions) typeReply(ctx context.Context, text string) bool {
	page := a.page.Context(ctx)

	box, outcome := a.waitForComposer(page)
	if outcome != Found {
		slog.Warn("composer lookup failed", "outcome", outcome.String())
		return false
	}

	if err := box.Click(proto.InputMouseButtonLeft, 1); err != nil {
		slog.Warn("focus composer failed", "error", err)
		return false
	}
	a.humanDelay(500, 1000)

	for _, r := range text {
		if err := page.InsertText(string(r)); err != nil {
			slog.Warn("typing failed", "error", err)
			return false
		}
		a.sleep(time.Duration(55+rand.IntN(65)) * time.Millisecond)
	}

	a.humanDelay(1000, 2500)
	return true
}

// waitForComposer polls the composer selector cascade until a match
// appears or the wait expires. Polling keeps the cascade fair: a waiting
// lookup would stall on the first selector and never try the rest.
func (a *Actions) waitForComposer(page *rod.Page) (*rod.Element, Outcome) {
	deadline := time.Now().Add(composerWait)
	for {
		box, outcome := firstMatch(page.Sleeper(rod.NotFoundSleeper), composerSelectors)
		if outcome != NotFound {
			return box, outcome
		}
		if !time.Now().Before(deadline) {
			return nil, NotFound
		}
		a.sleep(500 * time.Millisecond)
	}
}

// post clicks the submit button and verifies the composer dismisses.
func (a *Actions) post(ctx context.Context) bool {
	page := a.page.Context(ctx)

	button, outcome := firstMatch(page.Sleeper(rod.NotFoundSleeper), postButtonSelectors)
	if outcome != Found {
		slog.Warn("post button lookup failed", "outcome", outcome.String())
		return false
	}

	if err := button.Click(proto.InputMouseButtonLeft, 1); err != nil {
		slog.Warn("click post button failed", "error", err)
		return false
	}

	a.humanDelay(2000, 3000)

	// The composer disappearing is the best signal the reply went out. If
	// it lingers we still treat the post as sent; the platform sometimes
	// keeps the box mounted briefly after a successful submit.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		_, outcome := firstMatch(page.Sleeper(rod.NotFoundSleeper), composerSelectors[:1])
		if outcome != Found {
			return true
		}
		a.sleep(500 * time.Millisecond)
	}

	slog.Debug("composer still visible after post, assuming sent")
	return true
}

// humanDelay sleeps a random interval between min and max milliseconds.
func (a *Actions) humanDelay(minMs, maxMs int) {
	a.sleep(time.Duration(minMs+rand.IntN(maxMs-minMs)) * time.Millisecond)
}

var _ feed.Dispatcher = (*Actions)(nil)
