package bot

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/abdulachik/replyguy/internal/feed"
)

// Decision is the operator's verdict on a pending reply.
type Decision int

const (
	Approve Decision = iota
	Skip
)

// Approver reviews a generated reply before it is submitted.
type Approver interface {
	Review(candidate feed.Candidate, replyText string) Decision
}

// TerminalApprover prompts the operator on the terminal. Skipping returns
// the loop to scanning without submitting or recording anything.
type TerminalApprover struct {
	In  io.Reader
	Out io.Writer
}

// Review shows the post and the pending reply and reads a verdict.
func (a *TerminalApprover) Review(candidate feed.Candidate, replyText string) Decision {
	fmt.Fprintf(a.Out, "\n%s\n", strings.Repeat("=", 60))
	fmt.Fprintf(a.Out, "Post by @%s:\n  %s\n\n", candidate.Author, excerpt(candidate.BodyText, 200))
	fmt.Fprintf(a.Out, "Reply:\n  %s\n", replyText)
	fmt.Fprintf(a.Out, "%s\n", strings.Repeat("=", 60))
	fmt.Fprint(a.Out, "Post this reply? [y]es / [s]kip: ")

	scanner := bufio.NewScanner(a.In)
	if !scanner.Scan() {
		// Input closed; skipping is the safe default.
		return Skip
	}

	switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
	case "y", "yes":
		return Approve
	default:
		return Skip
	}
}

// DelayApprover shows the pending reply and proceeds after a fixed pause.
// Used when no interactive terminal is available.
type DelayApprover struct {
	Delay time.Duration

	// sleep is injectable for tests.
	sleep func(time.Duration)
}

// NewDelayApprover creates a non-interactive approver.
func NewDelayApprover(delay time.Duration) *DelayApprover {
	return &DelayApprover{Delay: delay, sleep: time.Sleep}
}

// Review logs the pending reply and approves after the delay.
func (a *DelayApprover) Review(candidate feed.Candidate, replyText string) Decision {
	slog.Info("pending reply (auto-approving after delay)",
		"author", candidate.Author,
		"post", excerpt(candidate.BodyText, 100),
		"reply", replyText,
		"delay", a.Delay,
	)
	a.sleep(a.Delay)
	return Approve
}

func excerpt(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
