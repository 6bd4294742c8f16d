package render

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
)

// GraphvizRenderer renders DOT source in-process.
type GraphvizRenderer struct{}

// NewGraphvizRenderer creates a GraphvizRenderer.
func NewGraphvizRenderer() *GraphvizRenderer {
	return &GraphvizRenderer{}
}

func (g *GraphvizRenderer) Name() string { return "graphviz" }

func (g *GraphvizRenderer) Render(ctx context.Context, req Request) (*Output, error) {
	format := req.Format
	if format == "" {
		format = FormatSVG
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("graphviz: create: %w", err)
	}
	defer gv.Close()

	graph, err := graphviz.ParseBytes([]byte(req.Source))
	if err != nil {
		return nil, &Error{Message: err.Error()}
	}
	if graph == nil {
		return nil, &Error{Message: "no graph found in source"}
	}
	defer graph.Close()

	if req.Theme == "dark" {
		graph.SetBackgroundColor("#1e1e1e")
	}

	gvFormat := graphviz.SVG
	if format == FormatPNG {
		gvFormat = graphviz.PNG
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, gvFormat, &buf); err != nil {
		return nil, &Error{Message: err.Error()}
	}
	return &Output{Format: format, Data: buf.Bytes()}, nil
}
