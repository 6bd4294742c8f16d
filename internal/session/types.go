package session

import "time"

// Role identifies who produced a turn in the transcript.
type Role string

const (
	RoleUser   Role = "user"
	RoleSystem Role = "system"
)

// Turn is a single transcript line. Turns are never edited once appended.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryEntry pairs a prompt with the diagram source it produced.
type HistoryEntry struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// State is everything a session persists between runs.
type State struct {
	Turns   []Turn         `json:"messages"`
	Entries []HistoryEntry `json:"history"`
	Source  string         `json:"mermaidCode"`
}

func (s State) clone() State {
	out := State{Source: s.Source}
	if s.Turns != nil {
		out.Turns = append([]Turn(nil), s.Turns...)
	}
	if s.Entries != nil {
		out.Entries = append([]HistoryEntry(nil), s.Entries...)
	}
	return out
}
