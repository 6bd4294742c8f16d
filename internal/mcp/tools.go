package mcp

import "github.com/mark3labs/mcp-go/mcp"

// generateDiagramTool defines the generate_diagram MCP tool.
var generateDiagramTool = mcp.NewTool("generate_diagram",
	mcp.WithDescription("Create or update the current diagram from a natural-language instruction. The current diagram is sent as context. If the generated source fails to render, the failure is kept so fix_diagram or revert_diagram can resolve it."),
	mcp.WithString("instruction",
		mcp.Required(),
		mcp.Description("What to draw or change, e.g. \"add a cache between API and DB\""),
	),
)

// fixDiagramTool defines the fix_diagram MCP tool.
var fixDiagramTool = mcp.NewTool("fix_diagram",
	mcp.WithDescription("Ask the model to repair the diagram that failed to render, using the renderer's error message."),
)

// revertDiagramTool defines the revert_diagram MCP tool.
var revertDiagramTool = mcp.NewTool("revert_diagram",
	mcp.WithDescription("Discard the diagram that failed to render and keep the previous version."),
)

// getDiagramTool defines the get_diagram MCP tool.
var getDiagramTool = mcp.NewTool("get_diagram",
	mcp.WithDescription("Get the current diagram source, optionally rendered as SVG."),
	mcp.WithString("format",
		mcp.Description("source (default) or svg"),
		mcp.Enum("source", "svg"),
	),
)

// listHistoryTool defines the list_history MCP tool.
var listHistoryTool = mcp.NewTool("list_history",
	mcp.WithDescription("List previously committed diagrams with the instruction that produced each."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of entries to return, newest first (default 20)"),
	),
)
