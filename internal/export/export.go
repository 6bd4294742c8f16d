// Package export turns the current diagram and session into files.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ziadkadry99/sketchiq/internal/render"
)

// Diagrammer is the part of the studio controller export needs.
type Diagrammer interface {
	Current() string
	RenderCurrent(ctx context.Context, format render.Format) (*render.Output, error)
}

// DefaultBaseName is the file name used when none is given.
const DefaultBaseName = "sketchiq-diagram"

// Source returns the current diagram source as copyable text.
func Source(d Diagrammer) string {
	return d.Current()
}

// Image renders the current diagram in format.
func Image(ctx context.Context, d Diagrammer, format render.Format) (*render.Output, error) {
	out, err := d.RenderCurrent(ctx, format)
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", format, err)
	}
	return out, nil
}

// DefaultFilename is e.g. sketchiq-diagram.png for FormatPNG.
func DefaultFilename(format render.Format) string {
	return DefaultBaseName + "." + string(format)
}

// WriteFile writes out to path, or to DefaultFilename in the current
// directory when path is empty. It returns the path written.
func WriteFile(path string, out *render.Output) (string, error) {
	if path == "" {
		path = DefaultFilename(out.Format)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, out.Data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
