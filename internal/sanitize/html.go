// Package sanitize strips unsafe markup from user-supplied fields before
// they reach storage or the audit trail.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// strict removes all HTML tags and attributes. Used for plain-text
	// fields: names, locations, denial reasons.
	strict = bluemonday.StrictPolicy()

	// ugc allows basic formatting in user-generated content such as
	// event descriptions, while dropping scripts and event handlers.
	ugc = bluemonday.UGCPolicy()
)

// Text strips all HTML and collapses surrounding whitespace.
func Text(input string) string {
	return strings.TrimSpace(strict.Sanitize(input))
}

// HTML keeps safe formatting tags and removes everything executable.
func HTML(input string) string {
	return ugc.Sanitize(input)
}
