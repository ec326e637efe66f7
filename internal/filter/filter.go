// Package filter decides whether a post is appropriate to reply to.
package filter

import (
	"strings"
	"unicode"
)

// DenyTerms that make a post unsuitable for an automated reply.
// Substring matching is deliberately coarse: "war" also matches
// "warehouse". Over-filtering is the conservative failure mode here.
var DenyTerms = []string{
	"kill", "death", "die", "suicide", "self-harm", "hate", "violence",
	"attack", "war", "terror", "bomb", "gun", "weapon", "shooting",
	"murder", "massacre", "assault",
}

// Filter classifies post text as appropriate or not. It is pure: no
// side effects, no external calls.
type Filter struct {
	denyTerms []string
	minLength int
}

// Config holds filter configuration.
type Config struct {
	AdditionalTerms []string
	MinLength       int
}

// New creates a new filter.
func New(cfg Config) *Filter {
	terms := make([]string, len(DenyTerms))
	copy(terms, DenyTerms)
	terms = append(terms, cfg.AdditionalTerms...)

	// Lowercase all terms for case-insensitive matching
	for i, term := range terms {
		terms[i] = strings.ToLower(term)
	}

	minLength := cfg.MinLength
	if minLength <= 0 {
		minLength = 10
	}

	return &Filter{
		denyTerms: terms,
		minLength: minLength,
	}
}

// Result contains the filter decision.
type Result struct {
	Pass   bool
	Reason string
}

// Check examines post text and returns whether it is appropriate to reply to.
func (f *Filter) Check(text string) Result {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Result{Pass: false, Reason: "empty text"}
	}

	if len([]rune(trimmed)) < f.minLength {
		return Result{Pass: false, Reason: "too short"}
	}

	lower := strings.ToLower(trimmed)
	for _, term := range f.denyTerms {
		if strings.Contains(lower, term) {
			return Result{Pass: false, Reason: "contains deny-listed term: " + term}
		}
	}

	// All-caps posts above a minimal length read as spam or shouting.
	if len([]rune(trimmed)) > 20 && isAllUpper(trimmed) {
		return Result{Pass: false, Reason: "all uppercase"}
	}

	return Result{Pass: true}
}

// Appropriate is a convenience wrapper around Check.
func (f *Filter) Appropriate(text string) bool {
	return f.Check(text).Pass
}

func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			hasLetter = true
		}
	}
	return hasLetter
}
