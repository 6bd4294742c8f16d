package render

import (
	"fmt"

	"github.com/ziadkadry99/sketchiq/internal/diagram"
)

// Kinds accepted by New.
const (
	KindKroki    = "kroki"
	KindMMDC     = "mmdc"
	KindGraphviz = "graphviz"
)

// Settings selects and configures a renderer.
type Settings struct {
	Kind     string
	URL      string
	MMDCPath string
	Language diagram.Language
}

// New creates the renderer described by s. The renderer must understand
// s.Language.
func New(s Settings) (Renderer, error) {
	switch s.Kind {
	case "", KindKroki:
		return NewKrokiRenderer(s.URL, s.Language.KrokiType()), nil
	case KindMMDC:
		if s.Language != diagram.Mermaid {
			return nil, fmt.Errorf("renderer mmdc only renders mermaid, not %s", s.Language)
		}
		return NewCLIRenderer(s.MMDCPath), nil
	case KindGraphviz:
		if s.Language != diagram.DOT {
			return nil, fmt.Errorf("renderer graphviz only renders dot, not %s", s.Language)
		}
		return NewGraphvizRenderer(), nil
	default:
		return nil, fmt.Errorf("unsupported renderer %q: must be one of kroki, mmdc, graphviz", s.Kind)
	}
}
