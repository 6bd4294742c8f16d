package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/sketchiq/internal/kv"
)

// Persistence keys.
const (
	KeySession    = "sketchiq-session"
	KeyCredential = "gemini-api-key"
	KeyDarkMode   = "dark-mode"
)

// ErrNoCredential is returned by SetCredential for a blank credential.
var ErrNoCredential = errors.New("credential must not be empty")

// Store owns the session state and writes it through to a kv.Store on
// every mutation.
type Store struct {
	kv    kv.Store
	mu    sync.RWMutex
	state State
	now   func() time.Time
}

// NewStore creates a Store with empty state. Call Load to restore a
// previously saved session.
func NewStore(backend kv.Store) *Store {
	return &Store{kv: backend, now: func() time.Time { return time.Now().UTC() }}
}

// Load reads the persisted session. A missing key leaves the state empty.
func (s *Store) Load(ctx context.Context) error {
	raw, ok, err := s.kv.Get(ctx, KeySession)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}

	var st State
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &st); err != nil {
			return fmt.Errorf("decoding session: %w", err)
		}
	}

	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	return nil
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Source returns the current diagram source.
func (s *Store) Source() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Source
}

// AppendTurn adds a turn to the transcript.
func (s *Store) AppendTurn(ctx context.Context, role Role, content string) error {
	return s.mutate(ctx, func(st *State) error {
		st.Turns = append(st.Turns, Turn{Role: role, Content: content, CreatedAt: s.now()})
		return nil
	})
}

// Commit records a successfully rendered source: it appends a history
// entry and a system note and makes source current, in a single save.
func (s *Store) Commit(ctx context.Context, prompt, source, note string) (HistoryEntry, error) {
	entry := HistoryEntry{
		ID:        uuid.New().String(),
		Prompt:    prompt,
		Source:    source,
		CreatedAt: s.now(),
	}
	err := s.mutate(ctx, func(st *State) error {
		st.Entries = append(st.Entries, entry)
		if note != "" {
			st.Turns = append(st.Turns, Turn{Role: RoleSystem, Content: note, CreatedAt: entry.CreatedAt})
		}
		st.Source = source
		return nil
	})
	if err != nil {
		return HistoryEntry{}, err
	}
	return entry, nil
}

// Select makes the source of history entry index current. History itself
// is left as is.
func (s *Store) Select(ctx context.Context, index int) (HistoryEntry, error) {
	var picked HistoryEntry
	err := s.mutate(ctx, func(st *State) error {
		if index < 0 || index >= len(st.Entries) {
			return fmt.Errorf("history entry %d out of range (have %d)", index, len(st.Entries))
		}
		picked = st.Entries[index]
		st.Source = picked.Source
		return nil
	})
	return picked, err
}

// Reset clears the whole session and removes it from persistence.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Delete(ctx, KeySession); err != nil {
		return fmt.Errorf("resetting session: %w", err)
	}
	s.state = State{}
	return nil
}

// mutate applies fn to a copy of the state and only swaps it in once the
// copy has been saved.
func (s *Store) mutate(ctx context.Context, fn func(*State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	if err := fn(&next); err != nil {
		return err
	}

	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := s.kv.Set(ctx, KeySession, string(data)); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	s.state = next
	return nil
}

// Credential returns the stored credential, or "" when none is set.
func (s *Store) Credential(ctx context.Context) (string, error) {
	v, _, err := s.kv.Get(ctx, KeyCredential)
	if err != nil {
		return "", fmt.Errorf("reading credential: %w", err)
	}
	return v, nil
}

// SetCredential stores a trimmed, non-empty credential.
func (s *Store) SetCredential(ctx context.Context, credential string) error {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return ErrNoCredential
	}
	return s.kv.Set(ctx, KeyCredential, credential)
}

// DarkMode reports the persisted theme flag.
func (s *Store) DarkMode(ctx context.Context) (bool, error) {
	v, _, err := s.kv.Get(ctx, KeyDarkMode)
	if err != nil {
		return false, fmt.Errorf("reading theme: %w", err)
	}
	return v == "true", nil
}

// SetDarkMode persists the theme flag.
func (s *Store) SetDarkMode(ctx context.Context, dark bool) error {
	v := "false"
	if dark {
		v = "true"
	}
	return s.kv.Set(ctx, KeyDarkMode, v)
}
