package browser

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"

	"github.com/go-rod/rod"

	"github.com/abdulachik/replyguy/internal/feed"
)

const articleSelector = `article[data-testid="tweet"]`

// bodyTextSelectors are tried in order when extracting post text.
var bodyTextSelectors = []string{
	`[data-testid="tweetText"]`,
	`div[data-testid="tweetText"]`,
	`div[lang]`,
}

// authorSelectors locate the author handle within an article.
var authorSelectors = []string{
	`[data-testid="User-Name"] a`,
	`a[href^="/"] span`,
}

var statusIDPattern = regexp.MustCompile(`/status/(\d+)`)

// FeedScanner extracts candidates from the visible timeline. It implements
// feed.Scanner.
type FeedScanner struct {
	page *rod.Page

	// sleep is injectable for tests.
	sleep func(time.Duration)
}

// NewFeedScanner creates a scanner bound to the driver's page.
func NewFeedScanner(driver *Driver) (*FeedScanner, error) {
	page, err := driver.Page()
	if err != nil {
		return nil, err
	}
	return &FeedScanner{page: page, sleep: time.Sleep}, nil
}

// VisibleCandidates extracts every currently visible post that carries
// enough data to evaluate. Posts with missing ids or too-little text are
// expected noise in a dynamic view and are dropped silently.
func (s *FeedScanner) VisibleCandidates(ctx context.Context) ([]feed.Candidate, error) {
	articles, err := s.page.Context(ctx).Elements(articleSelector)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}

	candidates := make([]feed.Candidate, 0, len(articles))
	seen := make(map[string]bool)

	for _, article := range articles {
		candidate, ok := s.extract(article)
		if !ok || seen[candidate.ContentID] {
			continue
		}
		seen[candidate.ContentID] = true
		candidates = append(candidates, candidate)
	}

	slog.Debug("scanned feed", "articles", len(articles), "candidates", len(candidates))
	return candidates, nil
}

// extract pulls a candidate out of one article element. The element itself
// becomes the candidate's opaque locator.
func (s *FeedScanner) extract(article *rod.Element) (feed.Candidate, bool) {
	contentID, outcome := s.extractContentID(article)
	if outcome != Found {
		return feed.Candidate{}, false
	}

	body, outcome := s.extractBodyText(article)
	if outcome != Found {
		return feed.Candidate{}, false
	}

	candidate := feed.Candidate{
		ContentID: contentID,
		Author:    s.extractAuthor(article),
		BodyText:  body,
		Locator:   article,
	}
	return candidate, candidate.Valid()
}

// extractContentID finds the platform id in any /status/ link inside the
// article.
func (s *FeedScanner) extractContentID(article *rod.Element) (string, Outcome) {
	links, err := article.Elements("a")
	if err != nil {
		if isStale(err) {
			return "", Stale
		}
		return "", NotFound
	}

	for _, link := range links {
		href, err := link.Attribute("href")
		if err != nil || href == nil {
			continue
		}
		if m := statusIDPattern.FindStringSubmatch(*href); m != nil {
			return m[1], Found
		}
	}
	return "", NotFound
}

// extractAuthor looks for an @handle; a missing author never blocks
// selection.
func (s *FeedScanner) extractAuthor(article *rod.Element) string {
	for _, selector := range authorSelectors {
		elements, err := article.Elements(selector)
		if err != nil {
			continue
		}
		for _, el := range elements {
			text, err := el.Text()
			if err != nil {
				continue
			}
			text = strings.TrimSpace(text)
			if strings.HasPrefix(text, "@") && len(text) > 1 {
				return strings.TrimPrefix(text, "@")
			}
		}
	}
	return feed.UnknownAuthor
}

// extractBodyText tries the dedicated text selectors first, then falls
// back to filtering the article's full text.
func (s *FeedScanner) extractBodyText(article *rod.Element) (string, Outcome) {
	el, outcome := firstMatch(article.Sleeper(rod.NotFoundSleeper), bodyTextSelectors)
	if outcome == Stale {
		return "", Stale
	}
	if outcome == Found {
		text, err := el.Text()
		if err == nil {
			if trimmed := strings.TrimSpace(text); trimmed != "" {
				return trimmed, Found
			}
		} else if isStale(err) {
			return "", Stale
		}
	}

	// Fallback: take the first meaningful lines of the whole article,
	// skipping handles and metadata rows.
	full, err := article.Text()
	if err != nil {
		if isStale(err) {
			return "", Stale
		}
		return "", NotFound
	}

	var lines []string
	for _, line := range strings.Split(full, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "@") || strings.Contains(line, "·") {
			continue
		}
		if len([]rune(line)) <= feed.MinBodyLength {
			continue
		}
		lines = append(lines, line)
		if len(lines) == 3 {
			break
		}
	}
	if len(lines) == 0 {
		return "", NotFound
	}
	return strings.Join(lines, " "), Found
}

// RevealMore performs a randomized scroll with a reading-time pause, to
// surface new content without a fixed cadence. Occasionally it scrolls
// back up, the way a person rechecks something they passed.
func (s *FeedScanner) RevealMore(ctx context.Context) error {
	amount := 300 + rand.IntN(600)
	if rand.Float64() < 0.2 {
		amount = -(200 + rand.IntN(200))
	}

	_, err := s.page.Context(ctx).Eval(`(y) => window.scrollBy(0, y)`, amount)
	if err != nil {
		return fmt.Errorf("scroll feed: %w", err)
	}

	s.sleep(time.Duration(1000+rand.IntN(2500)) * time.Millisecond)
	return nil
}
