package diagram

import "fmt"

// Language is a diagram-description language understood by the renderers.
type Language string

const (
	Mermaid Language = "mermaid"
	DOT     Language = "dot"
)

// ParseLanguage accepts the language names used in configuration.
func ParseLanguage(s string) (Language, error) {
	switch s {
	case "", "mermaid":
		return Mermaid, nil
	case "dot", "graphviz":
		return DOT, nil
	default:
		return "", fmt.Errorf("unsupported diagram language %q: must be one of mermaid, dot", s)
	}
}

// DisplayName is the name the generation model knows the language by.
func (l Language) DisplayName() string {
	switch l {
	case DOT:
		return "Graphviz DOT"
	default:
		return "Mermaid.js"
	}
}

// KrokiType is the diagram type segment of a Kroki URL.
func (l Language) KrokiType() string {
	switch l {
	case DOT:
		return "graphviz"
	default:
		return "mermaid"
	}
}

// DefaultDiagram is shown when a session has no committed source yet.
func DefaultDiagram(l Language) string {
	switch l {
	case DOT:
		return "digraph G {\n    Start -> IsIt;\n    IsIt -> OK [label=\"Yes\"];\n    OK -> End;\n    IsIt -> Oops [label=\"No\"];\n    Oops -> End;\n}"
	default:
		return "graph TD\n    A[Start] --> B{Is it?};\n    B -->|Yes| C[OK];\n    C --> D[End];\n    B -->|No| E[Oops];\n    E --> D;"
	}
}
