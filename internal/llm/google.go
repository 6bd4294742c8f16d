package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const googleAPIBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// GoogleProvider calls the Gemini generateContent endpoint. The key travels
// in the query string, so errors never include the request URL.
type GoogleProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewGoogleProvider creates a Gemini provider. An empty baseURL selects the
// public endpoint.
func NewGoogleProvider(apiKey, model, baseURL string) *GoogleProvider {
	if baseURL == "" {
		baseURL = googleAPIBaseURL
	}
	return &GoogleProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

func (p *GoogleProvider) Name() string { return "google" }

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      *geminiContent `json:"content"`
		FinishReason string         `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

// geminiRoles maps conversation roles onto Gemini's names.
var geminiRoles = map[Role]string{
	RoleUser:      "user",
	RoleAssistant: "model",
}

func (p *GoogleProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model, apiKey := resolve(req, p.model, p.apiKey)
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	system, turns := splitSystem(req.Messages)
	if len(turns) == 0 {
		return nil, fmt.Errorf("gemini request has no user content")
	}

	var body geminiRequest
	for _, m := range turns {
		body.Contents = append(body.Contents, geminiContent{
			Role:  geminiRoles[m.Role],
			Parts: []geminiPart{{Text: m.Content}},
		})
	}
	if system != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}
	if req.MaxTokens > 0 || req.Temperature > 0 {
		body.GenerationConfig = &geminiGenerationConfig{MaxOutputTokens: req.MaxTokens, Temperature: req.Temperature}
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s", p.baseURL, model, url.QueryEscape(apiKey))

	var resp geminiResponse
	raw, err := postJSON(ctx, p.client, p.Name(), endpoint, nil, body, &resp)
	if err != nil {
		return nil, err
	}
	malformed := func(reason string) error {
		return &MalformedResponseError{Provider: p.Name(), Reason: reason, Body: bodySnippet(raw)}
	}

	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return nil, malformed("prompt blocked: " + resp.PromptFeedback.BlockReason)
		}
		return nil, malformed("no candidates")
	}

	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		reason := "candidate has no content"
		if cand.FinishReason != "" {
			reason += " (finish reason " + cand.FinishReason + ")"
		}
		return nil, malformed(reason)
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		sb.WriteString(part.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return nil, malformed("candidate text is empty")
	}

	out := &CompletionResponse{
		Content:      sb.String(),
		Model:        model,
		FinishReason: cand.FinishReason,
	}
	if u := resp.UsageMetadata; u != nil {
		out.InputTokens = u.PromptTokenCount
		out.OutputTokens = u.CandidatesTokenCount
	}
	return out, nil
}
