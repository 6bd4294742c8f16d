package llm

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider using the OpenAI Chat Completions API.
// Any OpenAI-compatible endpoint (OpenRouter, MiniMax) works through baseURL.
type OpenAIProvider struct {
	name    string
	apiKey  string
	baseURL string
	client  *openai.Client
	model   string
}

// NewOpenAIProvider creates a new OpenAI provider. name labels errors and
// the ledger; an empty baseURL selects api.openai.com.
func NewOpenAIProvider(name, apiKey, model, baseURL string) *OpenAIProvider {
	return &OpenAIProvider{
		name:    name,
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  newOpenAIClient(apiKey, baseURL),
		model:   model,
	}
}

func newOpenAIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

func (p *OpenAIProvider) Name() string {
	return p.name
}

func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	client := p.client
	switch {
	case req.APIKey != "" && req.APIKey != p.apiKey:
		client = newOpenAIClient(req.APIKey, p.baseURL)
	case p.apiKey == "" && req.APIKey == "":
		return nil, ErrNoAPIKey
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	var messages []openai.ChatCompletionMessage
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	apiReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: float32(req.Temperature),
	}

	resp, err := client.CreateChatCompletion(ctx, apiReq)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, &TransportError{Provider: p.name, StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return nil, &TransportError{Provider: p.name, StatusCode: reqErr.HTTPStatusCode, Body: bodySnippet(reqErr.Body)}
		}
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, &MalformedResponseError{Provider: p.name, Reason: "no choices"}
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return nil, &MalformedResponseError{Provider: p.name, Reason: "choice text is empty (finish reason " + string(resp.Choices[0].FinishReason) + ")"}
	}

	return &CompletionResponse{
		Content:      content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Model:        resp.Model,
		FinishReason: string(resp.Choices[0].FinishReason),
	}, nil
}
