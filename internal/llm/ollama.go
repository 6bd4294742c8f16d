package llm

import (
	"context"
	"net/http"
	"strings"
)

// OllamaProvider calls a local Ollama server. It needs no key.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewOllamaProvider(baseURL string, model string) *OllamaProvider {
	return &OllamaProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{},
	}
}

func (p *OllamaProvider) Name() string { return "ollama" }

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Message         ollamaMessage `json:"message"`
	Model           string        `json:"model"`
	DoneReason      string        `json:"done_reason"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
}

func (p *OllamaProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model, _ := resolve(req, p.model, "")

	body := ollamaChatRequest{Model: model}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, ollamaMessage{Role: string(m.Role), Content: m.Content})
	}
	if req.Temperature > 0 || req.MaxTokens > 0 {
		body.Options = &ollamaOptions{Temperature: req.Temperature, NumPredict: req.MaxTokens}
	}

	var resp ollamaChatResponse
	raw, err := postJSON(ctx, p.client, p.Name(), p.baseURL+"/api/chat", nil, body, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Message.Content == "" {
		return nil, &MalformedResponseError{Provider: p.Name(), Reason: "message content is empty", Body: bodySnippet(raw)}
	}

	return &CompletionResponse{
		Content:      resp.Message.Content,
		InputTokens:  resp.PromptEvalCount,
		OutputTokens: resp.EvalCount,
		Model:        resp.Model,
		FinishReason: resp.DoneReason,
	}, nil
}
