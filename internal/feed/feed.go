// Package feed defines the candidate model and the collaborator contracts
// the run loop consumes: scanning the live view, dispatching replies, and
// session persistence.
package feed

import "context"

// MinBodyLength is the shortest body text worth evaluating. Shorter
// extractions are treated as noise and dropped before selection.
const MinBodyLength = 10

// UnknownAuthor is the sentinel used when the author handle cannot be
// extracted. A missing author never blocks selection.
const UnknownAuthor = "unknown"

// Candidate is one discoverable post, extracted fresh each scan cycle.
// Candidates are transient: never persisted, and discarded after a single
// selection attempt.
type Candidate struct {
	// ContentID is the platform-assigned id. A candidate without one is
	// discarded before it reaches selection.
	ContentID string

	// Author is the display handle, or UnknownAuthor.
	Author string

	// BodyText is the extracted text content.
	BodyText string

	// Locator is an opaque handle owned by the scanner, passed back to the
	// dispatcher untouched. The run loop never inspects it.
	Locator any
}

// Valid reports whether the candidate carries enough extracted data to be
// worth evaluating.
func (c Candidate) Valid() bool {
	return c.ContentID != "" && len([]rune(c.BodyText)) >= MinBodyLength
}

// Scanner produces candidates from the live view.
type Scanner interface {
	// VisibleCandidates returns the currently visible candidates. Posts
	// with missing ids or too-little text are already filtered out.
	VisibleCandidates(ctx context.Context) ([]Candidate, error)

	// RevealMore asks the view to surface more content (a scroll).
	// Best-effort; may no-op.
	RevealMore(ctx context.Context) error
}

// Dispatcher submits a reply against a located candidate.
type Dispatcher interface {
	// SubmitReply posts text as a reply to the candidate identified by
	// locator. It encapsulates its own retry and selector-fallback logic
	// and returns false, rather than an error, on any recoverable failure.
	SubmitReply(ctx context.Context, locator any, text string) bool
}

// SessionStore persists browser session state across runs. The run loop
// touches it only at login and cleanup, never mid-loop.
type SessionStore interface {
	Save(ctx context.Context) error
	Load(ctx context.Context) (bool, error)
	HasSaved() bool
}
