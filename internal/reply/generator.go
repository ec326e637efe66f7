// Package reply generates bounded, human-sounding replies via a local
// Ollama model, degrading to canned fallbacks when the backend is down.
package reply

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	// MaxReplyLength is the platform character limit.
	MaxReplyLength = 200
	// truncateAt leaves room for an ellipsis marker.
	truncateAt = 197
	// MinReplyLength below which a generation attempt is considered failed.
	MinReplyLength = 5
)

// fallbackReplies are used when every generation attempt fails. The loop
// must always receive usable text.
var fallbackReplies = []string{
	"Interesting!",
	"Great point, definitely something to think about.",
	"Love seeing this kind of content, keep it up.",
	"Solid take btw.",
	"Sounds interesting.",
	"Nice perspective on this.",
	"Well said.",
	"Good stuff.",
	"That's a great thought.",
	"Appreciate this insight.",
	"Glad you shared this.",
	"This is worth reflecting on.",
	"Strong point you made here.",
	"Thanks for the perspective.",
	"Really like this viewpoint.",
	"Good point, appreciate you sharing.",
	"This makes sense to me.",
	"Nice one, thanks for sharing.",
	"Thoughtful take on this.",
	"Love this kind of discussion.",
}

// fillerPrefixes the model tends to prepend despite instructions.
var fillerPrefixes = []string{
	"reply:", "response:", "here's", "here is",
}

// defaultOptions are the sampling options for reply generation.
var defaultOptions = Options{
	Temperature: 1,
	TopK:        64,
	TopP:        0.95,
	Stop:        []string{endOfTurn},
}

// Backend is the generation backend contract.
type Backend interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// Generator produces reply text for a candidate post. Generate never fails
// observably: backend failures degrade to a fallback reply.
type Generator struct {
	backend      Backend
	maxAttempts  int
	backoffDelay time.Duration

	// randIntN is injectable for deterministic tests.
	randIntN func(int) int
}

// Config holds generator configuration.
type Config struct {
	Backend      Backend
	MaxAttempts  int           // default 3
	BackoffDelay time.Duration // default 2s
}

// NewGenerator creates a new generator.
func NewGenerator(cfg Config) *Generator {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	backoffDelay := cfg.BackoffDelay
	if backoffDelay <= 0 {
		backoffDelay = 2 * time.Second
	}

	return &Generator{
		backend:      cfg.Backend,
		maxAttempts:  maxAttempts,
		backoffDelay: backoffDelay,
		randIntN:     rand.IntN,
	}
}

// Generate returns a reply for the given post text. The result is always
// non-empty and between MinReplyLength and MaxReplyLength characters.
func (g *Generator) Generate(ctx context.Context, bodyText, author string) string {
	prompt := BuildPrompt(bodyText, author)

	result, err := backoff.Retry(ctx, func() (string, error) {
		return g.attempt(ctx, prompt)
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(g.backoffDelay)),
		backoff.WithMaxTries(uint(g.maxAttempts)),
	)
	if err != nil {
		slog.Warn("reply generation failed, using fallback", "error", err)
		return g.fallback()
	}

	slog.Info("generated reply", "chars", len([]rune(result)))
	return result
}

// attempt performs one backend call and post-processes the result.
func (g *Generator) attempt(ctx context.Context, prompt string) (string, error) {
	raw, err := g.backend.Generate(ctx, prompt, defaultOptions)
	if err != nil {
		return "", fmt.Errorf("backend: %w", err)
	}

	cleaned := Cleanup(raw)
	cleaned = Truncate(cleaned)

	if len([]rune(cleaned)) < MinReplyLength {
		return "", errors.New("reply too short")
	}

	return cleaned, nil
}

// fallback picks a canned reply uniformly at random.
func (g *Generator) fallback() string {
	return fallbackReplies[g.randIntN(len(fallbackReplies))]
}

// Cleanup strips model artifacts from a raw completion: turn-delimiter
// tokens, wrapping quotes, filler prefixes, and emoji.
func Cleanup(raw string) string {
	text := strings.ReplaceAll(raw, endOfTurn, "")
	text = strings.ReplaceAll(text, startOfTurn, "")
	text = strings.TrimSpace(text)

	// Unwrap quotes the model sometimes adds around the whole reply.
	for _, q := range []string{`"`, `'`} {
		if len(text) >= 2 && strings.HasPrefix(text, q) && strings.HasSuffix(text, q) {
			text = strings.TrimSpace(text[1 : len(text)-1])
		}
	}

	// Strip filler prefixes, then any leftover colon.
	lower := strings.ToLower(text)
	for _, prefix := range fillerPrefixes {
		if strings.HasPrefix(lower, prefix) {
			text = strings.TrimSpace(text[len(prefix):])
			text = strings.TrimSpace(strings.TrimPrefix(text, ":"))
			lower = strings.ToLower(text)
		}
	}

	return strings.TrimSpace(stripEmoji(text))
}

// Truncate enforces the platform length limit, preferring to cut at the
// last sentence boundary within the first truncateAt characters.
func Truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxReplyLength {
		return text
	}

	head := runes[:truncateAt]
	if idx := lastIndexRune(head, '.'); idx != -1 {
		return string(head[:idx+1])
	}
	return string(head) + "..."
}

func lastIndexRune(runes []rune, r rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}

// emojiRanges are the unicode blocks stripped from replies.
var emojiRanges = [][2]rune{
	{0x1F600, 0x1F64F}, // emoticons
	{0x1F300, 0x1F5FF}, // symbols & pictographs
	{0x1F680, 0x1F6FF}, // transport & map symbols
	{0x1F900, 0x1F9FF}, // supplemental symbols
	{0x1F1E0, 0x1F1FF}, // regional indicators / flags
	{0x2600, 0x27BF},   // misc symbols & dingbats
	{0xFE00, 0xFE0F},   // variation selectors
	{0x1FA70, 0x1FAFF}, // extended symbols
}

func stripEmoji(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if isEmoji(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isEmoji(r rune) bool {
	for _, rng := range emojiRanges {
		if r >= rng[0] && r <= rng[1] {
			return true
		}
	}
	return false
}
