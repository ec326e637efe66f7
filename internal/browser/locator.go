package browser

import (
	"context"
	"errors"
	"strings"

	"github.com/go-rod/rod"
)

// Outcome is the explicit result of a locator lookup. The view mutates
// under us constantly, so "not found" and "stale" are normal outcomes,
// not errors.
type Outcome int

const (
	Found Outcome = iota
	NotFound
	Stale
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case NotFound:
		return "not-found"
	case Stale:
		return "stale"
	default:
		return "unknown"
	}
}

// elementQuerier is the subset of rod shared by pages and elements.
type elementQuerier interface {
	Element(selector string) (*rod.Element, error)
}

// firstMatch tries an ordered list of selectors against root and returns
// the first visible match. Each strategy independently swallows "not
// found"; a detached or cancelled target reports Stale. The root must use
// a non-waiting sleeper, otherwise the first absent selector blocks the
// whole cascade.
func firstMatch(root elementQuerier, selectors []string) (*rod.Element, Outcome) {
	for _, selector := range selectors {
		el, err := root.Element(selector)
		if err != nil {
			if isStale(err) {
				return nil, Stale
			}
			continue
		}
		if visible, err := el.Visible(); err != nil || !visible {
			continue
		}
		return el, Found
	}
	return nil, NotFound
}

// isStale reports whether err indicates the element or its target went
// away mid-interaction.
func isStale(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "cannot find context") ||
		strings.Contains(msg, "Cannot find context") ||
		strings.Contains(msg, "detached") ||
		strings.Contains(msg, "Node with given id does not belong")
}
