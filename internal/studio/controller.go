// Package studio drives the generate, render and recover loop on top of
// the session store. Front ends call it instead of touching the pipeline
// stages directly.
package studio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/ziadkadry99/sketchiq/internal/attempts"
	"github.com/ziadkadry99/sketchiq/internal/diagram"
	"github.com/ziadkadry99/sketchiq/internal/llm"
	"github.com/ziadkadry99/sketchiq/internal/progress"
	"github.com/ziadkadry99/sketchiq/internal/prompt"
	"github.com/ziadkadry99/sketchiq/internal/render"
	"github.com/ziadkadry99/sketchiq/internal/session"
)

// DefaultMaxFixAttempts caps consecutive fix requests for one instruction.
const DefaultMaxFixAttempts = 5

// Options tune a Controller.
type Options struct {
	Language     diagram.Language
	ProviderType string
	Model        string
	// FallbackKey is used when no credential is stored.
	FallbackKey    string
	MaxFixAttempts int
	// Timeout bounds each remote call and each render. Zero disables it.
	Timeout time.Duration
}

// Controller owns one session and runs at most one pipeline at a time.
type Controller struct {
	store    *session.Store
	builder  *prompt.Builder
	provider llm.Provider
	renderer render.Renderer
	ledger   *attempts.Store
	reporter progress.Reporter
	opts     Options

	mu      sync.Mutex
	busy    bool
	pending *Recovery
}

// New creates a Controller. The store should already be loaded.
func New(store *session.Store, provider llm.Provider, renderer render.Renderer, opts Options) *Controller {
	if opts.Language == "" {
		opts.Language = diagram.Mermaid
	}
	if opts.MaxFixAttempts <= 0 {
		opts.MaxFixAttempts = DefaultMaxFixAttempts
	}
	return &Controller{
		store:    store,
		builder:  prompt.NewBuilder(opts.Language.DisplayName()),
		provider: provider,
		renderer: renderer,
		reporter: progress.Nop{},
		opts:     opts,
	}
}

// SetLedger records every attempt in l.
func (c *Controller) SetLedger(l *attempts.Store) { c.ledger = l }

// SetReporter sets where stage progress goes.
func (c *Controller) SetReporter(r progress.Reporter) {
	if r == nil {
		r = progress.Nop{}
	}
	c.reporter = r
}

// Session exposes the underlying store for settings and snapshots.
func (c *Controller) Session() *session.Store { return c.store }

// Ledger returns the attempt ledger, or nil.
func (c *Controller) Ledger() *attempts.Store { return c.ledger }

// Language is the diagram language this controller generates.
func (c *Controller) Language() diagram.Language { return c.opts.Language }

// MaxFixAttempts is the configured fix depth cap.
func (c *Controller) MaxFixAttempts() int { return c.opts.MaxFixAttempts }

// run describes one trip through the pipeline.
type run struct {
	kind        attempts.Kind
	depth       int
	instruction string
	prompt      string
	key         string
}

// Generate asks the model for a diagram matching instruction, using the
// current source as context.
func (c *Controller) Generate(ctx context.Context, instruction string) (*Result, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return nil, &prompt.InputError{Reason: "please enter a prompt"}
	}
	key, err := c.credential(ctx)
	if err != nil {
		return nil, err
	}

	if !c.acquire() {
		return nil, ErrBusy
	}
	defer c.release()

	text, err := c.builder.Build(instruction, c.store.Source())
	if err != nil {
		return nil, err
	}
	if rec := c.takePending(); rec != nil {
		c.markReverted(ctx, rec)
	}

	c.appendTurn(ctx, session.RoleUser, instruction)
	return c.run(ctx, run{
		kind:        attempts.KindGenerate,
		instruction: instruction,
		prompt:      text,
		key:         key,
	})
}

// Fix asks the model to repair the candidate of the pending recovery.
func (c *Controller) Fix(ctx context.Context) (*Result, error) {
	key, err := c.credential(ctx)
	if err != nil {
		return nil, err
	}

	if !c.acquire() {
		return nil, ErrBusy
	}
	defer c.release()

	c.mu.Lock()
	rec := c.pending
	switch {
	case rec == nil:
		c.mu.Unlock()
		return nil, ErrNoRecovery
	case !rec.Allows(ActionFix):
		c.mu.Unlock()
		return nil, ErrFixLimit
	}
	c.mu.Unlock()

	text, err := c.builder.BuildFix(rec.Candidate, rec.Message)
	if err != nil {
		return nil, err
	}
	c.takePending()

	c.appendTurn(ctx, session.RoleUser, fmt.Sprintf("Fix the diagram (attempt %d of %d)", rec.Depth+1, c.opts.MaxFixAttempts))
	return c.run(ctx, run{
		kind:        attempts.KindFix,
		depth:       rec.Depth + 1,
		instruction: rec.Instruction,
		prompt:      text,
		key:         key,
	})
}

// Revert discards the candidate of the pending recovery. The current
// source is left as it was.
func (c *Controller) Revert(ctx context.Context) error {
	if !c.acquire() {
		return ErrBusy
	}
	defer c.release()

	rec := c.takePending()
	if rec == nil {
		return ErrNoRecovery
	}
	c.markReverted(ctx, rec)
	c.appendTurn(ctx, session.RoleSystem, NoteReverted)
	return nil
}

// Pending returns the recovery waiting for a decision, or nil.
func (c *Controller) Pending() *Recovery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending.clone()
}

// Busy reports whether a pipeline run is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Current returns the current diagram source, or the starter diagram when
// nothing has been committed yet.
func (c *Controller) Current() string {
	if src := c.store.Source(); src != "" {
		return src
	}
	return diagram.DefaultDiagram(c.opts.Language)
}

// RenderCurrent renders Current in the given format using the stored theme.
func (c *Controller) RenderCurrent(ctx context.Context, format render.Format) (*render.Output, error) {
	return c.render(ctx, c.Current(), format)
}

// Select makes history entry index current. A pending recovery is
// abandoned.
func (c *Controller) Select(ctx context.Context, index int) (session.HistoryEntry, error) {
	if !c.acquire() {
		return session.HistoryEntry{}, ErrBusy
	}
	defer c.release()

	entry, err := c.store.Select(ctx, index)
	if err != nil {
		return session.HistoryEntry{}, err
	}
	if rec := c.takePending(); rec != nil {
		c.markReverted(ctx, rec)
	}
	return entry, nil
}

// Reset clears the session and any pending recovery.
func (c *Controller) Reset(ctx context.Context) error {
	if !c.acquire() {
		return ErrBusy
	}
	defer c.release()

	if err := c.store.Reset(ctx); err != nil {
		return err
	}
	c.takePending()
	return nil
}

func (c *Controller) run(ctx context.Context, r run) (*Result, error) {
	c.reporter.Start(3)
	defer c.reporter.Finish()

	att := attempts.Attempt{
		Kind:        r.kind,
		Depth:       r.depth,
		Instruction: r.instruction,
		Model:       c.opts.Model,
	}

	c.reporter.Update(1, "Calling "+c.provider.Name())
	resp, err := c.complete(ctx, r)
	if err != nil {
		att.Outcome = outcomeFor(err)
		att.Error = err.Error()
		c.logAttempt(ctx, att)
		c.appendTurn(ctx, session.RoleSystem, "Error: "+err.Error())
		return nil, err
	}
	att.InputTokens = resp.InputTokens
	att.OutputTokens = resp.OutputTokens
	if resp.InputTokens == 0 && resp.OutputTokens == 0 {
		att.InputTokens = llm.EstimateTokens(r.prompt)
		att.OutputTokens = llm.EstimateTokens(resp.Content)
	}
	att.CostUSD = llm.EstimateCost(c.opts.Model, att.InputTokens, att.OutputTokens)

	c.reporter.Update(2, "Cleaning diagram source")
	candidate := diagram.Sanitize(resp.Content)
	att.Candidate = candidate
	if candidate == "" {
		err := &llm.MalformedResponseError{Provider: c.provider.Name(), Reason: "generated text contains no diagram source", Body: resp.Content}
		att.Outcome = attempts.OutcomeMalformed
		att.Error = err.Error()
		c.logAttempt(ctx, att)
		c.appendTurn(ctx, session.RoleSystem, "Error: "+err.Error())
		return nil, err
	}

	c.reporter.Update(3, "Rendering with "+c.renderer.Name())
	out, err := c.render(ctx, candidate, render.FormatSVG)
	var rerr *render.Error
	switch {
	case errors.As(err, &rerr):
		att.Outcome = attempts.OutcomeRenderFailed
		att.Error = rerr.Message
		rec := &Recovery{
			State:       StatusAwaitingChoice,
			Instruction: r.instruction,
			Candidate:   candidate,
			Message:     rerr.Message,
			Depth:       r.depth,
			Actions:     c.actionsAt(r.depth),
			attemptID:   c.logAttempt(ctx, att),
		}
		c.mu.Lock()
		c.pending = rec
		c.mu.Unlock()
		c.appendTurn(ctx, session.RoleSystem, "Render failed: "+rerr.Message)
		return &Result{Status: StatusAwaitingChoice, Recovery: rec.clone()}, nil

	case err != nil:
		err = fmt.Errorf("renderer %s unavailable: %w", c.renderer.Name(), err)
		att.Outcome = attempts.OutcomeRendererUnavailable
		att.Error = err.Error()
		c.logAttempt(ctx, att)
		c.appendTurn(ctx, session.RoleSystem, "Error: "+err.Error())
		return nil, err
	}

	entry, err := c.store.Commit(ctx, r.instruction, candidate, NoteCommitted)
	if err != nil {
		err = fmt.Errorf("committing diagram: %w", err)
		att.Outcome = attempts.OutcomeCommitFailed
		att.Error = err.Error()
		c.logAttempt(ctx, att)
		c.appendTurn(ctx, session.RoleSystem, "Error: "+err.Error())
		return nil, err
	}
	att.Outcome = attempts.OutcomeCommitted
	c.logAttempt(ctx, att)

	return &Result{Status: StatusCommitted, Source: candidate, Output: out, Entry: &entry}, nil
}

func (c *Controller) complete(ctx context.Context, r run) (*llm.CompletionResponse, error) {
	ctx, cancel := c.stageContext(ctx)
	defer cancel()
	req := llm.Prompt(r.prompt)
	req.Model = c.opts.Model
	req.APIKey = r.key
	return c.provider.Complete(ctx, req)
}

func (c *Controller) render(ctx context.Context, source string, format render.Format) (*render.Output, error) {
	dark, err := c.store.DarkMode(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.stageContext(ctx)
	defer cancel()
	return c.renderer.Render(ctx, render.Request{
		Source: source,
		Format: format,
		Theme:  render.ThemeFor(dark),
	})
}

func (c *Controller) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.Timeout > 0 {
		return context.WithTimeout(ctx, c.opts.Timeout)
	}
	return context.WithCancel(ctx)
}

// actionsAt lists the continuations for a failure at depth. Fixing stops
// being offered once the cap is reached.
func (c *Controller) actionsAt(depth int) []Action {
	if depth >= c.opts.MaxFixAttempts {
		return []Action{ActionRevert}
	}
	return []Action{ActionFix, ActionRevert}
}

func (c *Controller) credential(ctx context.Context) (string, error) {
	key, err := c.store.Credential(ctx)
	if err != nil {
		return "", err
	}
	if key == "" {
		key = c.opts.FallbackKey
	}
	if key == "" && llm.RequiresAPIKey(c.opts.ProviderType) {
		return "", &prompt.InputError{Reason: "please set your API key first"}
	}
	return key, nil
}

func (c *Controller) acquire() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return false
	}
	c.busy = true
	return true
}

func (c *Controller) release() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

func (c *Controller) takePending() *Recovery {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec := c.pending
	c.pending = nil
	return rec
}

// appendTurn records a transcript line. A failed save is logged and the
// run continues.
func (c *Controller) appendTurn(ctx context.Context, role session.Role, content string) {
	if err := c.store.AppendTurn(ctx, role, content); err != nil {
		log.Printf("[studio] recording %s turn: %v", role, err)
	}
}

func (c *Controller) logAttempt(ctx context.Context, a attempts.Attempt) string {
	if c.ledger == nil {
		return ""
	}
	id, err := c.ledger.Log(ctx, a)
	if err != nil {
		log.Printf("[studio] logging attempt: %v", err)
		return ""
	}
	return id
}

func (c *Controller) markReverted(ctx context.Context, rec *Recovery) {
	if c.ledger == nil || rec.attemptID == "" {
		return
	}
	if err := c.ledger.MarkReverted(ctx, rec.attemptID); err != nil {
		log.Printf("[studio] marking attempt reverted: %v", err)
	}
}

func outcomeFor(err error) attempts.Outcome {
	var mal *llm.MalformedResponseError
	if errors.As(err, &mal) {
		return attempts.OutcomeMalformed
	}
	return attempts.OutcomeTransportFailed
}
