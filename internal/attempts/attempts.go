// Package attempts is the ledger of generation pipeline runs.
package attempts

import "time"

// Kind is how an attempt was started.
type Kind string

const (
	KindGenerate Kind = "generate"
	KindFix      Kind = "fix"
)

// Outcome is how an attempt ended.
type Outcome string

const (
	OutcomeCommitted           Outcome = "committed"
	OutcomeRenderFailed        Outcome = "render_failed"
	OutcomeTransportFailed     Outcome = "transport_failed"
	OutcomeMalformed           Outcome = "malformed"
	OutcomeRendererUnavailable Outcome = "renderer_unavailable"
	OutcomeCommitFailed        Outcome = "commit_failed"
	OutcomeReverted            Outcome = "reverted"
)

// Attempt is a single ledger record.
type Attempt struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Kind         Kind      `json:"kind"`
	Depth        int       `json:"depth"`
	Instruction  string    `json:"instruction"`
	Candidate    string    `json:"candidate,omitempty"`
	Outcome      Outcome   `json:"outcome"`
	Error        string    `json:"error,omitempty"`
	Model        string    `json:"model,omitempty"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	CostUSD      float64   `json:"cost_usd"`
}

// Summary aggregates the ledger.
type Summary struct {
	Total     int             `json:"total"`
	ByOutcome map[Outcome]int `json:"by_outcome"`
	CostUSD   float64         `json:"cost_usd"`
}
