package dashboard

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/sketchiq/internal/studio"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatRequest is the incoming WebSocket message format.
type chatRequest struct {
	Type    string `json:"type"` // "generate", "fix" or "revert"
	Content string `json:"content"`
}

// chatResponse is the outgoing WebSocket message format.
type chatResponse struct {
	Type     string           `json:"type"` // "committed", "awaiting_choice", "reverted" or "error"
	Content  string           `json:"content,omitempty"`
	Source   string           `json:"source,omitempty"`
	SVG      string           `json:"svg,omitempty"`
	Recovery *studio.Recovery `json:"recovery,omitempty"`
}

func (d *Dashboard) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("dashboard: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	// The connection outlives the request's handler deadline. Each remote
	// stage is bounded by the controller's own timeout instead.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("dashboard: websocket read: %v", err)
			}
			return
		}

		var req chatRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			d.sendError(conn, "invalid message format")
			continue
		}

		switch req.Type {
		case "generate":
			if req.Content == "" {
				d.sendError(conn, "content is required")
				continue
			}
			res, err := d.ctrl.Generate(ctx, req.Content)
			d.sendResult(conn, res, err)
		case "fix":
			res, err := d.ctrl.Fix(ctx)
			d.sendResult(conn, res, err)
		case "revert":
			if err := d.ctrl.Revert(ctx); err != nil {
				d.sendError(conn, err.Error())
				continue
			}
			d.sendResponse(conn, chatResponse{
				Type:    "reverted",
				Content: studio.NoteReverted,
				Source:  d.ctrl.Current(),
			})
		default:
			d.sendError(conn, "unknown message type: "+req.Type)
		}
	}
}

func (d *Dashboard) sendResult(conn *websocket.Conn, res *studio.Result, err error) {
	if err != nil {
		d.sendError(conn, err.Error())
		return
	}
	resp := chatResponse{Type: string(res.Status), Source: res.Source, Recovery: res.Recovery}
	switch res.Status {
	case studio.StatusCommitted:
		resp.Content = studio.NoteCommitted
		resp.SVG = toPipelineResponse(res).SVG
	case studio.StatusAwaitingChoice:
		resp.Content = "Render failed: " + res.Recovery.Message
	}
	d.sendResponse(conn, resp)
}

func (d *Dashboard) sendResponse(conn *websocket.Conn, resp chatResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		log.Printf("dashboard: websocket write: %v", err)
	}
}

func (d *Dashboard) sendError(conn *websocket.Conn, message string) {
	resp := chatResponse{
		Type:    "error",
		Content: message,
	}
	if err := conn.WriteJSON(resp); err != nil {
		log.Printf("dashboard: websocket write error: %v", err)
	}
}
