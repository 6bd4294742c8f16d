// Package prompt builds the instructions sent to the generation service.
package prompt

import (
	"fmt"
	"strings"
)

// NoContextMarker stands in for the current source when there is none.
const NoContextMarker = "No previous context."

// InputError reports a request that was rejected before any remote call.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string { return e.Reason }

// Builder composes generation and fix instructions for one diagram language.
type Builder struct {
	// Language is the name the model knows the diagram language by,
	// e.g. "Mermaid.js".
	Language string
}

// NewBuilder returns a Builder for the named language.
func NewBuilder(language string) *Builder {
	return &Builder{Language: language}
}

// Build returns the instruction for a normal generation turn. current is
// the diagram source the user is iterating on and may be empty.
func (b *Builder) Build(instruction, current string) (string, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return "", &InputError{Reason: "please enter a prompt"}
	}

	context := strings.TrimSpace(current)
	if context == "" {
		context = NoContextMarker
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are an expert in %s syntax.\n", b.Language)
	sb.WriteString("The user wants to create or update a diagram.\n")
	fmt.Fprintf(&sb, "Based on the user's prompt, generate a complete and valid %s script.\n", b.Language)
	fmt.Fprintf(&sb, "Only output the %s script, without any explanation or markdown backticks.\n", b.Language)
	fmt.Fprintf(&sb, "User prompt: \"%s\"\n", instruction)
	sb.WriteString("Current diagram context (if any):\n")
	sb.WriteString(context)
	sb.WriteString("\n")
	return sb.String(), nil
}

// BuildFix returns the instruction asking the model to repair a script
// the renderer rejected. Both faulty and message are embedded verbatim.
func (b *Builder) BuildFix(faulty, message string) (string, error) {
	if strings.TrimSpace(faulty) == "" {
		return "", &InputError{Reason: "nothing to fix"}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are an expert in %s syntax.\n", b.Language)
	fmt.Fprintf(&sb, "The following %s script failed to render.\n", b.Language)
	sb.WriteString("Script:\n")
	sb.WriteString(faulty)
	sb.WriteString("\nRenderer error:\n")
	sb.WriteString(message)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Return only the corrected, complete %s script, without any explanation or markdown backticks.\n", b.Language)
	return sb.String(), nil
}
