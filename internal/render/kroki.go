package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultKrokiURL is the public Kroki instance.
const DefaultKrokiURL = "https://kroki.io"

// KrokiRenderer renders through a Kroki HTTP service.
type KrokiRenderer struct {
	baseURL     string
	diagramType string
	client      *http.Client
}

// NewKrokiRenderer creates a renderer posting to baseURL. diagramType is
// the Kroki type segment ("mermaid", "graphviz").
func NewKrokiRenderer(baseURL, diagramType string) *KrokiRenderer {
	if baseURL == "" {
		baseURL = DefaultKrokiURL
	}
	return &KrokiRenderer{
		baseURL:     strings.TrimRight(baseURL, "/"),
		diagramType: diagramType,
		client:      &http.Client{},
	}
}

func (k *KrokiRenderer) Name() string { return "kroki" }

func (k *KrokiRenderer) Render(ctx context.Context, req Request) (*Output, error) {
	format := req.Format
	if format == "" {
		format = FormatSVG
	}

	url := fmt.Sprintf("%s/%s/%s", k.baseURL, k.diagramType, format)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(req.Source))
	if err != nil {
		return nil, fmt.Errorf("kroki: creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "text/plain")
	httpReq.Header.Set("Accept", format.ContentType())
	if req.Theme != "" && k.diagramType == "mermaid" {
		httpReq.Header.Set("Kroki-Diagram-Options-Theme", req.Theme)
	}

	resp, err := k.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("kroki: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("kroki: reading response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return &Output{Format: format, Data: body}, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		msg := strings.TrimSpace(string(bytes.ToValidUTF8(body, nil)))
		if msg == "" {
			msg = resp.Status
		}
		return nil, &Error{Message: msg}
	default:
		return nil, fmt.Errorf("kroki: returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}
