package llm

import (
	"context"
	"net/http"
	"strings"
)

const (
	anthropicAPIURL     = "https://api.anthropic.com/v1/messages"
	anthropicAPIVersion = "2023-06-01"
	anthropicMaxTokens  = 4096
)

// AnthropicProvider calls the Anthropic Messages API.
type AnthropicProvider struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

func NewAnthropicProvider(apiKey string, model string) *AnthropicProvider {
	return &AnthropicProvider{
		apiKey:   apiKey,
		model:    model,
		endpoint: anthropicAPIURL,
		client:   &http.Client{},
	}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model, apiKey := resolve(req, p.model, p.apiKey)
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	system, turns := splitSystem(req.Messages)
	body := anthropicRequest{
		Model:       model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		System:      system,
	}
	if body.MaxTokens == 0 {
		body.MaxTokens = anthropicMaxTokens
	}
	for _, m := range turns {
		body.Messages = append(body.Messages, anthropicMessage{Role: string(m.Role), Content: m.Content})
	}

	header := http.Header{}
	header.Set("x-api-key", apiKey)
	header.Set("anthropic-version", anthropicAPIVersion)

	var resp anthropicResponse
	raw, err := postJSON(ctx, p.client, p.Name(), p.endpoint, header, body, &resp)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return nil, &MalformedResponseError{Provider: p.Name(), Reason: "no text content blocks", Body: bodySnippet(raw)}
	}

	return &CompletionResponse{
		Content:      sb.String(),
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		Model:        resp.Model,
		FinishReason: resp.StopReason,
	}, nil
}
