package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// postJSON sends body to endpoint and decodes a 2xx reply into out. The raw
// reply is returned so callers can attach it to shape errors of their own.
func postJSON(ctx context.Context, client *http.Client, provider, endpoint string, header http.Header, body, out any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range header {
		req.Header[k] = vs
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		// Some endpoints carry the key in the query string; never echo the URL.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("%s request failed: %w", provider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", provider, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return raw, &TransportError{Provider: provider, StatusCode: resp.StatusCode, Body: bodySnippet(raw)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return raw, &MalformedResponseError{Provider: provider, Reason: "invalid JSON: " + err.Error(), Body: bodySnippet(raw)}
	}
	return raw, nil
}
