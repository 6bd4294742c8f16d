package studio

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ziadkadry99/sketchiq/internal/attempts"
	"github.com/ziadkadry99/sketchiq/internal/db"
	"github.com/ziadkadry99/sketchiq/internal/diagram"
	"github.com/ziadkadry99/sketchiq/internal/kv"
	"github.com/ziadkadry99/sketchiq/internal/llm"
	"github.com/ziadkadry99/sketchiq/internal/prompt"
	"github.com/ziadkadry99/sketchiq/internal/render"
	"github.com/ziadkadry99/sketchiq/internal/session"
)

// fakeProvider replays scripted replies and records every request.
type fakeProvider struct {
	mu       sync.Mutex
	replies  []string
	err      error
	block    chan struct{}
	requests []llm.CompletionRequest
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if len(f.replies) == 0 {
		return nil, errors.New("no scripted reply")
	}
	text := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return &llm.CompletionResponse{Content: text, InputTokens: 10, OutputTokens: 5}, nil
}

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeProvider) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	req := f.requests[len(f.requests)-1]
	return req.Messages[len(req.Messages)-1].Content
}

// fakeRenderer rejects any source containing "INVALID" and otherwise
// returns a tiny SVG.
type fakeRenderer struct {
	err     error
	sources []string
}

func (f *fakeRenderer) Name() string { return "fake" }

func (f *fakeRenderer) Render(_ context.Context, req render.Request) (*render.Output, error) {
	f.sources = append(f.sources, req.Source)
	if f.err != nil {
		return nil, f.err
	}
	if strings.Contains(req.Source, "INVALID") {
		return nil, &render.Error{Message: "Parse error on line 2: unexpected INVALID"}
	}
	return &render.Output{Format: req.Format, Data: []byte("<svg/>")}, nil
}

type fixture struct {
	ctrl     *Controller
	store    *session.Store
	ledger   *attempts.Store
	provider *fakeProvider
	renderer *fakeRenderer
}

func setup(t *testing.T, opts Options) *fixture {
	t.Helper()
	ctx := context.Background()

	store := session.NewStore(kv.NewMemoryStore())
	if err := store.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := store.SetCredential(ctx, "test-key"); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}

	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	ledger := attempts.NewStore(database)

	if opts.ProviderType == "" {
		opts.ProviderType = "google"
	}
	if opts.Model == "" {
		opts.Model = "gemini-2.5-flash"
	}
	provider := &fakeProvider{}
	renderer := &fakeRenderer{}
	ctrl := New(store, provider, renderer, opts)
	ctrl.SetLedger(ledger)

	return &fixture{ctrl: ctrl, store: store, ledger: ledger, provider: provider, renderer: renderer}
}

func (f *fixture) outcomes(t *testing.T) []attempts.Outcome {
	t.Helper()
	list, err := f.ledger.Query(context.Background(), attempts.QueryFilter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	var out []attempts.Outcome
	// oldest first
	for i := len(list) - 1; i >= 0; i-- {
		out = append(out, list[i].Outcome)
	}
	return out
}

func lastTurn(t *testing.T, s *session.Store) session.Turn {
	t.Helper()
	turns := s.State().Turns
	if len(turns) == 0 {
		t.Fatal("no turns recorded")
	}
	return turns[len(turns)-1]
}

func TestGenerateCommitsSanitizedSource(t *testing.T) {
	f := setup(t, Options{})
	ctx := context.Background()

	if _, err := f.store.Commit(ctx, "start", "graph TD; A-->B;", ""); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	f.provider.replies = []string{"```mermaid\ngraph TD; A-->B; B-->C;\n```"}

	res, err := f.ctrl.Generate(ctx, "add node C after B")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Status != StatusCommitted {
		t.Fatalf("Status = %s, want %s", res.Status, StatusCommitted)
	}
	want := "graph TD; A-->B; B-->C;"
	if res.Source != want || f.store.Source() != want {
		t.Errorf("source = %q / %q, want %q", res.Source, f.store.Source(), want)
	}
	if res.Output == nil || string(res.Output.Data) != "<svg/>" {
		t.Errorf("unexpected output: %+v", res.Output)
	}

	st := f.store.State()
	if len(st.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(st.Entries))
	}
	if st.Entries[1].Prompt != "add node C after B" || st.Entries[1].Source != want {
		t.Errorf("new entry = %+v", st.Entries[1])
	}
	if turn := lastTurn(t, f.store); turn.Content != NoteCommitted {
		t.Errorf("last turn = %q", turn.Content)
	}

	p := f.provider.lastPrompt()
	if !strings.Contains(p, "add node C after B") || !strings.Contains(p, "graph TD; A-->B;") {
		t.Errorf("prompt missing instruction or context:\n%s", p)
	}
	if got := f.provider.requests[0].APIKey; got != "test-key" {
		t.Errorf("APIKey = %q, want stored credential", got)
	}
	if got := f.outcomes(t); len(got) != 1 || got[0] != attempts.OutcomeCommitted {
		t.Errorf("ledger = %v", got)
	}
	if f.ctrl.Pending() != nil {
		t.Error("expected no pending recovery")
	}
}

func TestGenerateWithoutContextUsesMarker(t *testing.T) {
	f := setup(t, Options{})
	f.provider.replies = []string{"graph TD; A-->B"}

	if _, err := f.ctrl.Generate(context.Background(), "draw A to B"); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if p := f.provider.lastPrompt(); !strings.Contains(p, prompt.NoContextMarker) {
		t.Errorf("prompt lacks no-context marker:\n%s", p)
	}
}

func TestRenderFailureThenRevert(t *testing.T) {
	f := setup(t, Options{})
	ctx := context.Background()

	d0 := "graph TD; A-->B;"
	f.store.Commit(ctx, "start", d0, "")
	f.provider.replies = []string{"graph TD; A-->INVALID"}

	res, err := f.ctrl.Generate(ctx, "break it")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Status != StatusAwaitingChoice || res.Recovery == nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	rec := res.Recovery
	if rec.Message != "Parse error on line 2: unexpected INVALID" {
		t.Errorf("Message = %q", rec.Message)
	}
	if !rec.Allows(ActionFix) || !rec.Allows(ActionRevert) {
		t.Errorf("Actions = %v, want fix and revert", rec.Actions)
	}
	if rec.Candidate != "graph TD; A-->INVALID" || rec.Depth != 0 {
		t.Errorf("recovery = %+v", rec)
	}
	if f.store.Source() != d0 {
		t.Errorf("source changed to %q", f.store.Source())
	}
	if turn := lastTurn(t, f.store); !strings.HasPrefix(turn.Content, "Render failed: ") {
		t.Errorf("last turn = %q", turn.Content)
	}
	if f.ctrl.Pending() == nil {
		t.Fatal("expected pending recovery")
	}

	if err := f.ctrl.Revert(ctx); err != nil {
		t.Fatalf("Revert: %v", err)
	}
	if f.store.Source() != d0 {
		t.Errorf("source after revert = %q, want %q", f.store.Source(), d0)
	}
	if f.ctrl.Pending() != nil {
		t.Error("recovery still pending after revert")
	}
	if turn := lastTurn(t, f.store); turn.Content != NoteReverted {
		t.Errorf("last turn = %q", turn.Content)
	}
	if len(f.store.State().Entries) != 1 {
		t.Error("revert must not add history")
	}
	if got := f.outcomes(t); len(got) != 1 || got[0] != attempts.OutcomeReverted {
		t.Errorf("ledger = %v", got)
	}

	if err := f.ctrl.Revert(ctx); !errors.Is(err, ErrNoRecovery) {
		t.Errorf("second Revert = %v, want ErrNoRecovery", err)
	}
	if _, err := f.ctrl.Fix(ctx); !errors.Is(err, ErrNoRecovery) {
		t.Errorf("Fix after revert = %v, want ErrNoRecovery", err)
	}
}

func TestFixEmbedsCandidateAndMessage(t *testing.T) {
	f := setup(t, Options{})
	ctx := context.Background()
	f.provider.replies = []string{"graph TD; A-->INVALID", "```\ngraph TD; A-->B\n```"}

	if _, err := f.ctrl.Generate(ctx, "draw A to B"); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	res, err := f.ctrl.Fix(ctx)
	if err != nil {
		t.Fatalf("Fix: %v", err)
	}

	p := f.provider.lastPrompt()
	if !strings.Contains(p, "graph TD; A-->INVALID") {
		t.Errorf("fix prompt lacks faulty source:\n%s", p)
	}
	if !strings.Contains(p, "Parse error on line 2: unexpected INVALID") {
		t.Errorf("fix prompt lacks error message:\n%s", p)
	}

	if res.Status != StatusCommitted || f.store.Source() != "graph TD; A-->B" {
		t.Fatalf("Fix did not commit: %+v, source %q", res, f.store.Source())
	}
	if res.Entry.Prompt != "draw A to B" {
		t.Errorf("entry prompt = %q, want original instruction", res.Entry.Prompt)
	}

	fixes, _ := f.ledger.Query(ctx, attempts.QueryFilter{Kind: attempts.KindFix})
	if len(fixes) != 1 || fixes[0].Depth != 1 || fixes[0].Outcome != attempts.OutcomeCommitted {
		t.Errorf("fix attempts = %+v", fixes)
	}
}

func TestFixDepthIsCapped(t *testing.T) {
	f := setup(t, Options{MaxFixAttempts: 2})
	ctx := context.Background()
	f.provider.replies = []string{"graph TD; INVALID"}

	res, err := f.ctrl.Generate(ctx, "x")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for depth := 1; depth <= 2; depth++ {
		if !res.Recovery.Allows(ActionFix) {
			t.Fatalf("fix not offered at depth %d", res.Recovery.Depth)
		}
		res, err = f.ctrl.Fix(ctx)
		if err != nil {
			t.Fatalf("Fix %d: %v", depth, err)
		}
		if res.Recovery == nil || res.Recovery.Depth != depth {
			t.Fatalf("after fix %d: %+v", depth, res.Recovery)
		}
	}

	if res.Recovery.Allows(ActionFix) {
		t.Errorf("fix still offered at depth %d", res.Recovery.Depth)
	}
	if !res.Recovery.Allows(ActionRevert) {
		t.Error("revert must stay available")
	}

	calls := f.provider.calls()
	if _, err := f.ctrl.Fix(ctx); !errors.Is(err, ErrFixLimit) {
		t.Errorf("Fix past cap = %v, want ErrFixLimit", err)
	}
	if f.provider.calls() != calls {
		t.Error("no call should be made past the cap")
	}
	if f.ctrl.Pending() == nil {
		t.Fatal("recovery must survive a refused fix")
	}
	if err := f.ctrl.Revert(ctx); err != nil {
		t.Errorf("Revert: %v", err)
	}
}

func TestInputErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("empty instruction", func(t *testing.T) {
		f := setup(t, Options{})
		_, err := f.ctrl.Generate(ctx, "   ")
		var ierr *prompt.InputError
		if !errors.As(err, &ierr) {
			t.Fatalf("expected InputError, got %v", err)
		}
		if f.provider.calls() != 0 || len(f.store.State().Turns) != 0 {
			t.Error("nothing should be recorded or called")
		}
	})

	t.Run("missing credential", func(t *testing.T) {
		f := setup(t, Options{})
		f.store = session.NewStore(kv.NewMemoryStore())
		f.ctrl = New(f.store, f.provider, f.renderer, Options{ProviderType: "google"})
		_, err := f.ctrl.Generate(ctx, "draw")
		var ierr *prompt.InputError
		if !errors.As(err, &ierr) {
			t.Fatalf("expected InputError, got %v", err)
		}
		if f.provider.calls() != 0 || len(f.store.State().Turns) != 0 {
			t.Error("nothing should be recorded or called")
		}
	})

	t.Run("fallback key", func(t *testing.T) {
		f := setup(t, Options{})
		f.ctrl = New(session.NewStore(kv.NewMemoryStore()), f.provider, f.renderer,
			Options{ProviderType: "google", FallbackKey: "env-key"})
		f.provider.replies = []string{"graph TD; A"}
		if _, err := f.ctrl.Generate(ctx, "draw"); err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if got := f.provider.requests[0].APIKey; got != "env-key" {
			t.Errorf("APIKey = %q", got)
		}
	})

	t.Run("keyless provider", func(t *testing.T) {
		f := setup(t, Options{})
		f.ctrl = New(session.NewStore(kv.NewMemoryStore()), f.provider, f.renderer,
			Options{ProviderType: "ollama"})
		f.provider.replies = []string{"graph TD; A"}
		if _, err := f.ctrl.Generate(ctx, "draw"); err != nil {
			t.Fatalf("Generate: %v", err)
		}
	})
}

func TestRemoteFailuresKeepState(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		outcome attempts.Outcome
	}{
		{
			name:    "transport",
			err:     &llm.TransportError{Provider: "google", StatusCode: 403, Body: "API key not valid"},
			outcome: attempts.OutcomeTransportFailed,
		},
		{
			name:    "malformed",
			err:     &llm.MalformedResponseError{Provider: "google", Reason: "no candidates"},
			outcome: attempts.OutcomeMalformed,
		},
		{
			name:    "network",
			err:     errors.New("dial tcp: connection refused"),
			outcome: attempts.OutcomeTransportFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, Options{})
			ctx := context.Background()
			f.store.Commit(ctx, "start", "graph TD; A", "")
			f.provider.err = tt.err

			res, err := f.ctrl.Generate(ctx, "more")
			if !errors.Is(err, tt.err) {
				t.Fatalf("err = %v, want %v", err, tt.err)
			}
			if res != nil {
				t.Errorf("unexpected result %+v", res)
			}
			if f.store.Source() != "graph TD; A" {
				t.Errorf("source changed to %q", f.store.Source())
			}
			if turn := lastTurn(t, f.store); turn.Content != "Error: "+tt.err.Error() {
				t.Errorf("last turn = %q", turn.Content)
			}
			if f.ctrl.Pending() != nil {
				t.Error("remote failures must not open a recovery")
			}
			if got := f.outcomes(t); len(got) != 1 || got[0] != tt.outcome {
				t.Errorf("ledger = %v, want [%s]", got, tt.outcome)
			}
		})
	}
}

func TestEmptyCandidateIsMalformed(t *testing.T) {
	f := setup(t, Options{})
	f.provider.replies = []string{"```mermaid\n```"}

	_, err := f.ctrl.Generate(context.Background(), "draw")
	var merr *llm.MalformedResponseError
	if !errors.As(err, &merr) {
		t.Fatalf("expected MalformedResponseError, got %v", err)
	}
	if len(f.renderer.sources) != 0 {
		t.Error("renderer should not be called for an empty candidate")
	}
}

func TestRendererUnavailable(t *testing.T) {
	f := setup(t, Options{})
	f.provider.replies = []string{"graph TD; A"}
	f.renderer.err = errors.New("connection refused")

	_, err := f.ctrl.Generate(context.Background(), "draw")
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("err = %v", err)
	}
	if f.ctrl.Pending() != nil {
		t.Error("unavailable renderer must not open a recovery")
	}
	if f.store.Source() != "" {
		t.Errorf("source = %q", f.store.Source())
	}
	if got := f.outcomes(t); len(got) != 1 || got[0] != attempts.OutcomeRendererUnavailable {
		t.Errorf("ledger = %v", got)
	}
}

func TestGenerateAbandonsPendingRecovery(t *testing.T) {
	f := setup(t, Options{})
	ctx := context.Background()
	f.provider.replies = []string{"graph INVALID", "graph TD; A"}

	if _, err := f.ctrl.Generate(ctx, "one"); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := f.ctrl.Generate(ctx, "two"); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if f.ctrl.Pending() != nil {
		t.Error("pending recovery should be gone")
	}
	got := f.outcomes(t)
	if len(got) != 2 || got[0] != attempts.OutcomeReverted || got[1] != attempts.OutcomeCommitted {
		t.Errorf("ledger = %v", got)
	}
}

func TestOneRunAtATime(t *testing.T) {
	f := setup(t, Options{})
	ctx := context.Background()
	f.provider.replies = []string{"graph TD; A"}
	f.provider.block = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.ctrl.Generate(ctx, "first")
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for f.provider.calls() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first run never reached the provider")
		}
		time.Sleep(time.Millisecond)
	}
	if !f.ctrl.Busy() {
		t.Error("controller should report busy")
	}

	if _, err := f.ctrl.Generate(ctx, "second"); !errors.Is(err, ErrBusy) {
		t.Errorf("concurrent Generate = %v, want ErrBusy", err)
	}
	if err := f.ctrl.Reset(ctx); !errors.Is(err, ErrBusy) {
		t.Errorf("concurrent Reset = %v, want ErrBusy", err)
	}

	close(f.provider.block)
	if err := <-done; err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	if f.ctrl.Busy() {
		t.Error("controller still busy")
	}
}

func TestTimeout(t *testing.T) {
	f := setup(t, Options{Timeout: 20 * time.Millisecond})
	f.provider.block = make(chan struct{})
	defer close(f.provider.block)

	_, err := f.ctrl.Generate(context.Background(), "slow")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestCurrentSelectReset(t *testing.T) {
	f := setup(t, Options{})
	ctx := context.Background()

	if got := f.ctrl.Current(); got != diagram.DefaultDiagram(diagram.Mermaid) {
		t.Errorf("Current on empty session = %q", got)
	}

	f.provider.replies = []string{"graph TD; A", "graph TD; B"}
	f.ctrl.Generate(ctx, "a")
	f.ctrl.Generate(ctx, "b")

	entry, err := f.ctrl.Select(ctx, 0)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if entry.Source != "graph TD; A" || f.ctrl.Current() != "graph TD; A" {
		t.Errorf("Select did not restore: %q", f.ctrl.Current())
	}
	if len(f.store.State().Entries) != 2 {
		t.Error("Select must not change history")
	}
	if _, err := f.ctrl.Select(ctx, 5); err == nil {
		t.Error("expected out-of-range error")
	}

	out, err := f.ctrl.RenderCurrent(ctx, render.FormatPNG)
	if err != nil {
		t.Fatalf("RenderCurrent: %v", err)
	}
	if out.Format != render.FormatPNG {
		t.Errorf("Format = %s", out.Format)
	}

	f.provider.replies = []string{"graph INVALID"}
	f.ctrl.Generate(ctx, "c")
	if f.ctrl.Pending() == nil {
		t.Fatal("expected pending recovery")
	}
	if err := f.ctrl.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if f.ctrl.Pending() != nil || f.store.Source() != "" || len(f.store.State().Turns) != 0 {
		t.Error("Reset left state behind")
	}
}

// failingKV refuses writes once broken is set.
type failingKV struct {
	*kv.MemoryStore
	broken bool
}

func (f *failingKV) Set(ctx context.Context, key, value string) error {
	if f.broken {
		return errors.New("disk full")
	}
	return f.MemoryStore.Set(ctx, key, value)
}

func TestCommitFailureIsRecorded(t *testing.T) {
	ctx := context.Background()
	backend := &failingKV{MemoryStore: kv.NewMemoryStore()}
	store := session.NewStore(backend)
	if err := store.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := store.SetCredential(ctx, "test-key"); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	ledger := attempts.NewStore(database)

	ctrl := New(store, &fakeProvider{replies: []string{"graph TD; A-->B"}}, &fakeRenderer{},
		Options{ProviderType: "google", Model: "gemini-2.5-flash"})
	ctrl.SetLedger(ledger)

	backend.broken = true
	_, err = ctrl.Generate(ctx, "draw A to B")
	if err == nil || !strings.Contains(err.Error(), "committing diagram") {
		t.Fatalf("expected commit error, got %v", err)
	}
	if store.Source() != "" {
		t.Errorf("source changed to %q after a failed commit", store.Source())
	}
	if ctrl.Busy() || ctrl.Pending() != nil {
		t.Error("controller left busy or with a recovery after a failed commit")
	}

	list, err := ledger.Query(ctx, attempts.QueryFilter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(list) != 1 || list[0].Outcome != attempts.OutcomeCommitFailed || !strings.Contains(list[0].Error, "disk full") {
		t.Errorf("ledger = %+v, want one commit_failed attempt", list)
	}
}
