package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/sketchiq/internal/render"
	"github.com/ziadkadry99/sketchiq/internal/studio"
)

// handleGenerateDiagram runs the generation pipeline for an instruction.
func (s *Server) handleGenerateDiagram(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instruction, err := request.RequireString("instruction")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: instruction"), nil
	}

	res, err := s.ctrl.Generate(ctx, instruction)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("generation failed: %v", err)), nil
	}
	return mcp.NewToolResultText(s.formatResult(res)), nil
}

// handleFixDiagram asks the model to repair the pending failed diagram.
func (s *Server) handleFixDiagram(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.ctrl.Fix(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("fix failed: %v", err)), nil
	}
	return mcp.NewToolResultText(s.formatResult(res)), nil
}

// handleRevertDiagram discards the pending failed diagram.
func (s *Server) handleRevertDiagram(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.ctrl.Revert(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("revert failed: %v", err)), nil
	}
	return mcp.NewToolResultText(studio.NoteReverted + "\n\nCurrent diagram:\n" + s.ctrl.Current()), nil
}

// handleGetDiagram returns the current source or its SVG rendering.
func (s *Server) handleGetDiagram(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	switch request.GetString("format", "source") {
	case "svg":
		out, err := s.ctrl.RenderCurrent(ctx, render.FormatSVG)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("render failed: %v", err)), nil
		}
		return mcp.NewToolResultText(string(out.Data)), nil
	case "source":
		return mcp.NewToolResultText(s.ctrl.Current()), nil
	default:
		return mcp.NewToolResultError("format must be source or svg"), nil
	}
}

// handleListHistory lists committed diagrams, newest first.
func (s *Server) handleListHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", 20)
	if limit <= 0 {
		limit = 20
	}

	entries := s.ctrl.Session().State().Entries
	if len(entries) == 0 {
		return mcp.NewToolResultText("No diagrams yet. Use generate_diagram to create one."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d diagram(s) in history:\n", len(entries))
	for i := len(entries) - 1; i >= 0 && len(entries)-i <= limit; i-- {
		e := entries[i]
		fmt.Fprintf(&sb, "\n--- #%d (%s) ---\n", i, e.CreatedAt.Format("2006-01-02 15:04"))
		fmt.Fprintf(&sb, "Instruction: %s\n", e.Prompt)
		sb.WriteString(e.Source)
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// formatResult describes a pipeline result for an agent.
func (s *Server) formatResult(res *studio.Result) string {
	var sb strings.Builder
	switch res.Status {
	case studio.StatusCommitted:
		sb.WriteString(studio.NoteCommitted)
		sb.WriteString("\n\n")
		sb.WriteString(res.Source)
	case studio.StatusAwaitingChoice:
		rec := res.Recovery
		fmt.Fprintf(&sb, "Render failed: %s\n\nCandidate source:\n%s\n\n", rec.Message, rec.Candidate)
		if rec.Allows(studio.ActionFix) {
			fmt.Fprintf(&sb, "Call fix_diagram to repair it (attempt %d of %d) or revert_diagram to discard it.", rec.Depth+1, s.ctrl.MaxFixAttempts())
		} else {
			sb.WriteString("The fix limit is reached. Call revert_diagram to discard it.")
		}
	}
	return sb.String()
}
