package session

import (
	"context"
	"errors"
	"testing"

	"github.com/ziadkadry99/sketchiq/internal/kv"
)

// failingKV rejects every write.
type failingKV struct{ kv.Store }

func (failingKV) Set(context.Context, string, string) error { return errors.New("disk full") }

func TestLoadEmpty(t *testing.T) {
	s := NewStore(kv.NewMemoryStore())
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	st := s.State()
	if len(st.Turns) != 0 || len(st.Entries) != 0 || st.Source != "" {
		t.Errorf("expected empty state, got %+v", st)
	}
}

func TestCommitPersistsAcrossLoad(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemoryStore()

	s := NewStore(backend)
	if err := s.AppendTurn(ctx, RoleUser, "draw A to B"); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}
	entry, err := s.Commit(ctx, "draw A to B", "graph TD; A-->B;", "Diagram updated successfully!")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if entry.ID == "" {
		t.Error("expected generated entry ID")
	}

	reloaded := NewStore(backend)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	st := reloaded.State()
	if st.Source != "graph TD; A-->B;" {
		t.Errorf("Source = %q", st.Source)
	}
	if len(st.Turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(st.Turns))
	}
	if st.Turns[0].Role != RoleUser || st.Turns[1].Role != RoleSystem {
		t.Errorf("unexpected roles: %v, %v", st.Turns[0].Role, st.Turns[1].Role)
	}
	if len(st.Entries) != 1 || st.Entries[0].Prompt != "draw A to B" {
		t.Errorf("unexpected entries: %+v", st.Entries)
	}
}

func TestFailedSaveLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	s := NewStore(failingKV{kv.NewMemoryStore()})

	if _, err := s.Commit(ctx, "p", "graph TD; X-->Y;", "ok"); err == nil {
		t.Fatal("expected save error")
	}
	if got := s.Source(); got != "" {
		t.Errorf("Source = %q after failed save, want empty", got)
	}
	if n := len(s.State().Entries); n != 0 {
		t.Errorf("expected no entries, got %d", n)
	}
}

func TestSelectRestoresSourceWithoutTouchingHistory(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kv.NewMemoryStore())
	s.Commit(ctx, "first", "graph TD; A-->B;", "")
	s.Commit(ctx, "second", "graph TD; A-->C;", "")

	entry, err := s.Select(ctx, 0)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if entry.Prompt != "first" {
		t.Errorf("selected prompt = %q", entry.Prompt)
	}
	st := s.State()
	if st.Source != "graph TD; A-->B;" {
		t.Errorf("Source = %q", st.Source)
	}
	if len(st.Entries) != 2 {
		t.Errorf("history length changed to %d", len(st.Entries))
	}

	if _, err := s.Select(ctx, 5); err == nil {
		t.Error("expected out of range error")
	}
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemoryStore()
	s := NewStore(backend)
	s.Commit(ctx, "p", "graph TD; A-->B;", "done")

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if st := s.State(); st.Source != "" || len(st.Turns) != 0 {
		t.Errorf("state not cleared: %+v", st)
	}
	if _, ok, _ := backend.Get(ctx, KeySession); ok {
		t.Error("session key still persisted")
	}
}

func TestStateIsACopy(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kv.NewMemoryStore())
	s.AppendTurn(ctx, RoleUser, "hello")

	st := s.State()
	st.Turns[0].Content = "mutated"
	if s.State().Turns[0].Content != "hello" {
		t.Error("State() leaked internal slice")
	}
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kv.NewMemoryStore())

	if err := s.SetCredential(ctx, "   "); !errors.Is(err, ErrNoCredential) {
		t.Errorf("SetCredential(blank) = %v, want ErrNoCredential", err)
	}
	if err := s.SetCredential(ctx, "  secret  "); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}
	if got, _ := s.Credential(ctx); got != "secret" {
		t.Errorf("Credential = %q, want trimmed value", got)
	}

	if dark, _ := s.DarkMode(ctx); dark {
		t.Error("expected light theme by default")
	}
	s.SetDarkMode(ctx, true)
	if dark, _ := s.DarkMode(ctx); !dark {
		t.Error("expected dark theme after SetDarkMode(true)")
	}
}
