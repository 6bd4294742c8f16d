// Package render turns diagram source into SVG or PNG through an external
// rendering collaborator.
package render

import (
	"context"
	"fmt"
	"strings"
)

// Format is an output image format.
type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// ParseFormat accepts "svg" or "png" in any case.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatSVG:
		return FormatSVG, nil
	case FormatPNG:
		return FormatPNG, nil
	default:
		return "", fmt.Errorf("unsupported image format %q: must be svg or png", s)
	}
}

// ContentType is the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "image/svg+xml"
}

// Request is one rendering job.
type Request struct {
	Source string
	Format Format
	// Theme is "dark" or "default".
	Theme string
}

// Output is a rendered diagram.
type Output struct {
	Format Format
	Data   []byte
}

// Renderer hands diagram source to a rendering collaborator.
type Renderer interface {
	// Render returns *Error when the collaborator rejects the source. Any
	// other error means the collaborator could not be reached or run.
	Render(ctx context.Context, req Request) (*Output, error)
	Name() string
}

// Error is a rejection of the diagram source by the renderer.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

// ThemeFor maps the dark-mode flag to a renderer theme name.
func ThemeFor(dark bool) string {
	if dark {
		return "dark"
	}
	return "default"
}
