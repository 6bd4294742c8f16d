package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/sketchiq/internal/diagram"
	"github.com/ziadkadry99/sketchiq/internal/export"
	"github.com/ziadkadry99/sketchiq/internal/llm"
	"github.com/ziadkadry99/sketchiq/internal/prompt"
	"github.com/ziadkadry99/sketchiq/internal/render"
	"github.com/ziadkadry99/sketchiq/internal/session"
	"github.com/ziadkadry99/sketchiq/internal/studio"
)

// sessionResponse is the JSON response for the session endpoint.
type sessionResponse struct {
	Messages       []session.Turn         `json:"messages"`
	History        []session.HistoryEntry `json:"history"`
	Source         string                 `json:"source"`
	IsStarter      bool                   `json:"is_starter"`
	Language       diagram.Language       `json:"language"`
	DarkMode       bool                   `json:"dark_mode"`
	HasCredential  bool                   `json:"has_credential"`
	Busy           bool                   `json:"busy"`
	Pending        *studio.Recovery       `json:"pending,omitempty"`
	MaxFixAttempts int                    `json:"max_fix_attempts"`
}

// pipelineResponse is returned by generate and fix.
type pipelineResponse struct {
	*studio.Result
	SVG string `json:"svg,omitempty"`
}

type generateRequest struct {
	Instruction string `json:"instruction"`
}

type credentialRequest struct {
	Credential string `json:"credential"`
}

type themeRequest struct {
	Dark bool `json:"dark"`
}

func (d *Dashboard) handleSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	store := d.ctrl.Session()
	st := store.State()

	dark, err := store.DarkMode(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	cred, err := store.Credential(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if st.Turns == nil {
		st.Turns = []session.Turn{}
	}
	if st.Entries == nil {
		st.Entries = []session.HistoryEntry{}
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Messages:       st.Turns,
		History:        st.Entries,
		Source:         d.ctrl.Current(),
		IsStarter:      st.Source == "",
		Language:       d.ctrl.Language(),
		DarkMode:       dark,
		HasCredential:  cred != "",
		Busy:           d.ctrl.Busy(),
		Pending:        d.ctrl.Pending(),
		MaxFixAttempts: d.ctrl.MaxFixAttempts(),
	})
}

func (d *Dashboard) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	res, err := d.ctrl.Generate(r.Context(), req.Instruction)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, toPipelineResponse(res))
}

func (d *Dashboard) handleFix(w http.ResponseWriter, r *http.Request) {
	res, err := d.ctrl.Fix(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, toPipelineResponse(res))
}

func (d *Dashboard) handleRevert(w http.ResponseWriter, r *http.Request) {
	if err := d.ctrl.Revert(r.Context()); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "reverted",
		"source": d.ctrl.Current(),
	})
}

func (d *Dashboard) handleSelect(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "index must be a number"})
		return
	}
	entry, err := d.ctrl.Select(r.Context(), index)
	if err != nil {
		if errors.Is(err, studio.ErrBusy) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (d *Dashboard) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := d.ctrl.Reset(r.Context()); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (d *Dashboard) handleCredential(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := d.ctrl.Session().SetCredential(r.Context(), req.Credential); err != nil {
		if errors.Is(err, session.ErrNoCredential) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (d *Dashboard) handleTheme(w http.ResponseWriter, r *http.Request) {
	var req themeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := d.ctrl.Session().SetDarkMode(r.Context(), req.Dark); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (d *Dashboard) handleExportSource(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(export.Source(d.ctrl)))
}

// handleExport serves svg/png images plus the md/html transcript.
func (d *Dashboard) handleExport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "format")
	switch name {
	case "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte(export.TranscriptMarkdown(d.ctrl.Session().State(), d.ctrl.Language())))
		return
	case "html":
		page, err := export.TranscriptHTML(d.ctrl.Session().State(), d.ctrl.Language())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(page)
		return
	}

	format, err := render.ParseFormat(name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	out, err := export.Image(r.Context(), d.ctrl, format)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	if r.URL.Query().Get("download") != "" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+export.DefaultFilename(format)+`"`)
	}
	w.Write(out.Data)
}

func toPipelineResponse(res *studio.Result) pipelineResponse {
	resp := pipelineResponse{Result: res}
	if res.Output != nil && res.Output.Format == render.FormatSVG {
		resp.SVG = string(res.Output.Data)
	}
	return resp
}

// statusFor maps pipeline errors onto HTTP statuses.
func statusFor(err error) int {
	var (
		inputErr     *prompt.InputError
		transportErr *llm.TransportError
		malformedErr *llm.MalformedResponseError
	)
	switch {
	case errors.As(err, &inputErr):
		return http.StatusBadRequest
	case errors.Is(err, studio.ErrBusy), errors.Is(err, studio.ErrNoRecovery), errors.Is(err, studio.ErrFixLimit):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &transportErr), errors.As(err, &malformedErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
