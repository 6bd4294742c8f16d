package studio

import (
	"errors"

	"github.com/ziadkadry99/sketchiq/internal/render"
	"github.com/ziadkadry99/sketchiq/internal/session"
)

// Status is how a pipeline run ended.
type Status string

const (
	StatusCommitted      Status = "committed"
	StatusAwaitingChoice Status = "awaiting_choice"
)

// Action is a continuation offered after a render failure.
type Action string

const (
	ActionFix    Action = "fix"
	ActionRevert Action = "revert"
)

// Transcript notes written by the controller.
const (
	NoteCommitted = "Diagram updated successfully!"
	NoteReverted  = "Discarded the generated diagram; keeping the previous version."
)

var (
	// ErrBusy is returned while another pipeline run is in flight.
	ErrBusy = errors.New("a diagram is already being generated")
	// ErrNoRecovery is returned by Fix and Revert when no render failure
	// is waiting for a decision.
	ErrNoRecovery = errors.New("no failed diagram is waiting for a decision")
	// ErrFixLimit is returned by Fix once the fix depth reached its cap.
	ErrFixLimit = errors.New("fix limit reached; revert to continue")
)

// Recovery is a render failure waiting for the user to pick an Action.
type Recovery struct {
	State       Status   `json:"state"`
	Instruction string   `json:"instruction"`
	Candidate   string   `json:"candidate"`
	Message     string   `json:"message"`
	Depth       int      `json:"depth"`
	Actions     []Action `json:"actions"`

	attemptID string
}

// Allows reports whether a is offered.
func (r *Recovery) Allows(a Action) bool {
	for _, x := range r.Actions {
		if x == a {
			return true
		}
	}
	return false
}

func (r *Recovery) clone() *Recovery {
	if r == nil {
		return nil
	}
	c := *r
	c.Actions = append([]Action(nil), r.Actions...)
	return &c
}

// Result is the outcome of Generate or Fix.
type Result struct {
	Status   Status                `json:"status"`
	Source   string                `json:"source,omitempty"`
	Output   *render.Output        `json:"-"`
	Entry    *session.HistoryEntry `json:"entry,omitempty"`
	Recovery *Recovery             `json:"recovery,omitempty"`
}
