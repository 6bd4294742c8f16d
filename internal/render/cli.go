package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// CLIRenderer runs mermaid-cli (mmdc) locally.
type CLIRenderer struct {
	path string
}

// NewCLIRenderer creates a renderer invoking the mmdc binary at path, or
// "mmdc" from PATH when path is empty.
func NewCLIRenderer(path string) *CLIRenderer {
	if path == "" {
		path = "mmdc"
	}
	return &CLIRenderer{path: path}
}

func (c *CLIRenderer) Name() string { return "mmdc" }

func (c *CLIRenderer) Render(ctx context.Context, req Request) (*Output, error) {
	format := req.Format
	if format == "" {
		format = FormatSVG
	}

	dir, err := os.MkdirTemp("", "sketchiq-render-")
	if err != nil {
		return nil, fmt.Errorf("mmdc: creating work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "diagram.mmd")
	out := filepath.Join(dir, "diagram."+string(format))
	if err := os.WriteFile(in, []byte(req.Source), 0o600); err != nil {
		return nil, fmt.Errorf("mmdc: writing input: %w", err)
	}

	args := []string{"-i", in, "-o", out, "-q"}
	if req.Theme != "" {
		args = append(args, "-t", req.Theme)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.path, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			return nil, &Error{Message: cleanCLIError(stderr.String(), exitErr)}
		}
		return nil, fmt.Errorf("mmdc: running %s: %w", c.path, err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("mmdc: reading output: %w", err)
	}
	return &Output{Format: format, Data: data}, nil
}

// cleanCLIError drops the node stack trace mmdc prints after the message.
func cleanCLIError(stderr string, exitErr *exec.ExitError) string {
	var lines []string
	for _, line := range strings.Split(stderr, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "at ") {
			break
		}
		lines = append(lines, line)
	}
	msg := strings.TrimSpace(strings.Join(lines, "\n"))
	if msg == "" {
		msg = exitErr.Error()
	}
	return msg
}
