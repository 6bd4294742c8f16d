package llm

import (
	"errors"
	"fmt"
)

// ErrNoAPIKey is returned when neither the provider nor the request carries
// a credential.
var ErrNoAPIKey = errors.New("no API key configured")

// TransportError reports a non-success HTTP status from a provider.
type TransportError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s API request failed: %d - %s", e.Provider, e.StatusCode, e.Body)
}

// MalformedResponseError reports a success response that does not carry
// generated text in the expected place.
type MalformedResponseError struct {
	Provider string
	Reason   string
	Body     string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s returned an unexpected response: %s", e.Provider, e.Reason)
}

// bodySnippet keeps error bodies readable in transcripts.
func bodySnippet(body []byte) string {
	const max = 2048
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
