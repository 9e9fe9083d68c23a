package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type healthResult struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Model   string `json:"model"`
	Dialect string `json:"dialect"`
}

// RegisterHealthTool adds a health check tool reporting the server version,
// the configured completion model, and the warehouse dialect.
func RegisterHealthTool(s *server.MCPServer, version, model, dialect string) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status, version, model, and warehouse dialect"),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := json.Marshal(healthResult{
			Status:  "ok",
			Version: version,
			Model:   model,
			Dialect: dialect,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal health result: %w", err)
		}
		return mcp.NewToolResultText(string(result)), nil
	})
}
