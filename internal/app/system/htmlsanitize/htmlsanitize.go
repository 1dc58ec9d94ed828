// Package htmlsanitize provides sanitization for user-submitted text.
// It uses bluemonday to strip potentially dangerous HTML. Log notes and
// habit titles are stored as plain text; descriptions may keep minimal
// inline formatting.
package htmlsanitize

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy *bluemonday.Policy
	inlinePolicy *bluemonday.Policy
	policyOnce   sync.Once
)

func initPolicies() {
	policyOnce.Do(func() {
		// Strips every tag; used for titles, notes, category names.
		strictPolicy = bluemonday.StrictPolicy()

		// Minimal inline formatting for habit descriptions.
		inlinePolicy = bluemonday.NewPolicy()
		inlinePolicy.AllowElements("b", "strong", "i", "em", "u", "s", "br")
	})
}

// Plain strips all HTML from the input and trims surrounding whitespace.
// Use for single-line fields and log notes.
func Plain(s string) string {
	if s == "" {
		return ""
	}
	initPolicies()
	return strings.TrimSpace(strictPolicy.Sanitize(s))
}

// Inline sanitizes input keeping only basic inline formatting tags.
// Use for habit descriptions.
func Inline(s string) string {
	if s == "" {
		return ""
	}
	initPolicies()
	return strings.TrimSpace(inlinePolicy.Sanitize(s))
}
