package dashboard

import (
	_ "embed"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/sketchiq/internal/attempts"
	"github.com/ziadkadry99/sketchiq/internal/studio"
)

// Dashboard serves the browser UI and its JSON API on top of a studio
// controller.
type Dashboard struct {
	ctrl *studio.Controller
}

// New creates a new Dashboard.
func New(ctrl *studio.Controller) *Dashboard {
	return &Dashboard{ctrl: ctrl}
}

// RegisterRoutes mounts all dashboard routes onto the given router.
func (d *Dashboard) RegisterRoutes(r chi.Router) {
	r.Get("/", d.handleIndex)

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", d.handleSession)
		r.Post("/generate", d.handleGenerate)
		r.Post("/fix", d.handleFix)
		r.Post("/revert", d.handleRevert)
		r.Post("/history/{index}/select", d.handleSelect)
		r.Post("/reset", d.handleReset)
		r.Put("/credential", d.handleCredential)
		r.Put("/theme", d.handleTheme)
		r.Get("/export/source", d.handleExportSource)
		r.Get("/export/{format}", d.handleExport)
	})

	if ledger := d.ctrl.Ledger(); ledger != nil {
		attempts.RegisterRoutes(r, ledger)
	}

	r.Get("/ws/chat", d.handleWebSocket)
}

//go:embed index.html
var indexHTML []byte

// handleIndex serves the single-page UI. It is never cached so a restarted
// server always hands out the matching API client.
func (d *Dashboard) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(indexHTML)
}
