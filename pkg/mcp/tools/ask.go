// Package tools provides the MCP tool implementations for lumera-engine.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/lumera-ai/lumera-engine/pkg/pipeline"
)

// Asker runs one question through the analytics pipeline.
type Asker interface {
	Run(ctx context.Context, question string) (*pipeline.Bundle, error)
}

// RegisterAskTool adds the ask tool: natural-language question in, full
// pipeline bundle out. Pipeline-stage failures are reported inside the
// bundle's status fields, not as tool errors.
func RegisterAskTool(s *server.MCPServer, asker Asker, logger *zap.Logger) {
	log := logger.Named("tools.ask")

	tool := mcp.NewTool(
		"ask",
		mcp.WithDescription("Answer a natural-language analytics question: routes it to the warehouse schema, generates and executes SQL, and recommends a visualization. Returns the full result bundle as JSON, including SQL, result rows, and pass/fail status for the SQL and visualization stages."),
		mcp.WithString(
			"question",
			mcp.Required(),
			mcp.Description("The analytics question, e.g. \"What were the total sales per month in 2017?\""),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		bundle, err := asker.Run(ctx, question)
		if err != nil {
			log.Warn("ask failed before pipeline start", zap.Error(err))
			return mcp.NewToolResultError(err.Error()), nil
		}
		log.Info("ask completed",
			zap.String("run_id", bundle.RunID),
			zap.String("sql_status", string(bundle.SQLStatus)),
			zap.String("viz_status", string(bundle.VizStatus)))

		payload, err := json.Marshal(bundle)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal bundle: %w", err)
		}
		return mcp.NewToolResultText(string(payload)), nil
	})
}
