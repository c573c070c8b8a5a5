package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/4rankng/paper-trading-sub001/internal/common"
	"github.com/4rankng/paper-trading-sub001/internal/viz"
)

// registerTools adds all MCP tool definitions and handlers.
func (a *App) registerTools() {
	a.MCPServer.AddTool(createGetVersionTool(), handleGetVersion())
	a.MCPServer.AddTool(createExtractVisualizationsTool(), handleExtractVisualizations(a.Logger))
	a.MCPServer.AddTool(createFixVisualizationTool(), handleFixVisualization(a.Logger))
}

// createGetVersionTool returns the get_version tool definition
func createGetVersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the Papertrade MCP server version and status. Use this to verify connectivity."),
	)
}

// createExtractVisualizationsTool returns the extract_visualizations tool definition
func createExtractVisualizationsTool() mcp.Tool {
	return mcp.NewTool("extract_visualizations",
		mcp.WithDescription("Extract embedded ![viz:TYPE]({...}) visualization commands from assistant message text. Malformed JSON payloads are repaired before validation. Returns the commands plus the message text with command spans replaced by placeholders."),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The message text to scan"),
		),
		mcp.WithBoolean("final",
			mcp.Description("Whether the stream has closed; when false, unterminated markers are pending rather than errors (default: true)"),
		),
	)
}

// createFixVisualizationTool returns the fix_visualization tool definition
func createFixVisualizationTool() mcp.Tool {
	return mcp.NewTool("fix_visualization",
		mcp.WithDescription("Run the JSON repair pipeline over one raw visualization payload. Returns the fixed payload, whether anything changed, and repair warnings."),
		mcp.WithString("raw",
			mcp.Required(),
			mcp.Description("The raw JSON-ish payload to repair"),
		),
		mcp.WithString("type_hint",
			mcp.Description("Visualization type hint: chart, table, or pie"),
		),
	)
}

// handleGetVersion implements the get_version tool
func handleGetVersion() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := fmt.Sprintf("Papertrade MCP Server\nVersion: %s\nBuild: %s\nCommit: %s\nStatus: OK",
			common.GetVersion(), common.GetBuild(), common.GetGitCommit())
		return textResult(result), nil
	}
}

// handleExtractVisualizations implements the extract_visualizations tool
func handleExtractVisualizations(logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := request.RequireString("text")
		if err != nil || text == "" {
			return errorResult("Error: text parameter is required"), nil
		}
		final := request.GetBool("final", true)

		result := viz.ExtractCommands(text, final)
		logger.Debug().
			Int("commands", len(result.Commands)).
			Int("errors", len(result.Errors)).
			Int("pending", result.Pending).
			Msg("Extracted visualizations via MCP")

		return jsonResult(result)
	}
}

// handleFixVisualization implements the fix_visualization tool
func handleFixVisualization(logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := request.RequireString("raw")
		if err != nil || raw == "" {
			return errorResult("Error: raw parameter is required"), nil
		}
		typeHint := request.GetString("type_hint", "")

		result := viz.AutoFix(raw, typeHint)
		logger.Debug().
			Bool("was_fixed", result.WasFixed).
			Int("warnings", len(result.Warnings)).
			Msg("Fixed visualization payload via MCP")

		return jsonResult(result)
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("Error encoding result: %v", err)), nil
	}
	return textResult(string(data)), nil
}
