// Package diagram holds the diagram languages sketchiq can generate and
// the clean-up applied to raw model output.
package diagram

import (
	"regexp"
	"strings"
)

// fenceOpen matches an opening code fence that names a diagram language,
// in any case, or a bare fence, together with the line break that ends it.
var fenceOpen = regexp.MustCompile("```[ \\t]*(?i:mermaid|dot|graphviz|gv)?[ \\t]*\\r?\\n")

// Sanitize strips markdown code fences from generated text and trims the
// result. It is idempotent.
func Sanitize(raw string) string {
	s := fenceOpen.ReplaceAllString(raw, "")
	// Any fence left over is a closing marker or an inline fence. Removing
	// them non-overlapping leaves fewer than three backticks per run.
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
