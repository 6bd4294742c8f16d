// Package llm talks to the text-generation services that write diagram
// source. Providers report a non-success status as *TransportError and a
// success reply without usable text as *MalformedResponseError.
package llm

import "context"

// Provider is a text-generation backend.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Name() string
}

// Role represents the role of a message sender in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation entry sent to a provider.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest contains the parameters for a completion call. Zero
// values leave the provider's defaults in place.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	// APIKey, when set, is used instead of the key the provider was built with.
	APIKey string
}

// CompletionResponse is the generated text and its accounting.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}

// Prompt builds a single-turn request carrying text as the user message.
func Prompt(text string) CompletionRequest {
	return CompletionRequest{Messages: []Message{{Role: RoleUser, Content: text}}}
}

// splitSystem separates system messages, joined by blank lines, from the
// conversation turns. Providers with a dedicated system field use it.
func splitSystem(msgs []Message) (string, []Message) {
	var (
		system string
		turns  []Message
	)
	for _, m := range msgs {
		if m.Role != RoleSystem {
			turns = append(turns, m)
			continue
		}
		if system != "" {
			system += "\n\n"
		}
		system += m.Content
	}
	return system, turns
}

// resolve picks the request's model and key over the provider's own.
func resolve(req CompletionRequest, model, apiKey string) (string, string) {
	if req.Model != "" {
		model = req.Model
	}
	if req.APIKey != "" {
		apiKey = req.APIKey
	}
	return model, apiKey
}
