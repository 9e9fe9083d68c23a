package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lumera-ai/lumera-engine/pkg/pipeline"
)

// fakeAsker returns a canned bundle or error.
type fakeAsker struct {
	bundle   *pipeline.Bundle
	err      error
	question string
}

func (f *fakeAsker) Run(ctx context.Context, question string) (*pipeline.Bundle, error) {
	f.question = question
	return f.bundle, f.err
}

type toolCallResponse struct {
	Result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	} `json:"result"`
}

func callTool(t *testing.T, s *server.MCPServer, request string) toolCallResponse {
	t.Helper()
	raw := s.HandleMessage(context.Background(), []byte(request))
	resultBytes, err := json.Marshal(raw)
	require.NoError(t, err)

	var response toolCallResponse
	require.NoError(t, json.Unmarshal(resultBytes, &response))
	return response
}

func TestAskToolReturnsBundle(t *testing.T) {
	asker := &fakeAsker{bundle: &pipeline.Bundle{
		RunID:     "run-1",
		Question:  "total sales per month",
		SQL:       "SELECT 1",
		SQLStatus: pipeline.StatusPass,
		VizStatus: pipeline.StatusPass,
	}}

	mcpServer := server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
	RegisterAskTool(mcpServer, asker, zap.NewNop())

	response := callTool(t, mcpServer,
		`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"ask","arguments":{"question":"total sales per month"}},"id":1}`)

	require.False(t, response.Result.IsError)
	require.NotEmpty(t, response.Result.Content)
	assert.Equal(t, "total sales per month", asker.question)

	var bundle pipeline.Bundle
	require.NoError(t, json.Unmarshal([]byte(response.Result.Content[0].Text), &bundle))
	assert.Equal(t, "run-1", bundle.RunID)
	assert.Equal(t, pipeline.StatusPass, bundle.SQLStatus)
}

func TestAskToolMissingQuestion(t *testing.T) {
	mcpServer := server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
	RegisterAskTool(mcpServer, &fakeAsker{}, zap.NewNop())

	response := callTool(t, mcpServer,
		`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"ask","arguments":{}},"id":1}`)
	assert.True(t, response.Result.IsError)
}

func TestAskToolRunError(t *testing.T) {
	mcpServer := server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
	RegisterAskTool(mcpServer, &fakeAsker{err: errors.New("question must not be empty")}, zap.NewNop())

	response := callTool(t, mcpServer,
		`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"ask","arguments":{"question":" "}},"id":1}`)
	assert.True(t, response.Result.IsError)
}

func TestRegisterHealthTool(t *testing.T) {
	mcpServer := server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
	RegisterHealthTool(mcpServer, "1.2.3", "gpt-4o", "postgres")

	response := callTool(t, mcpServer,
		`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"health"},"id":1}`)
	require.NotEmpty(t, response.Result.Content)

	var health healthResult
	require.NoError(t, json.Unmarshal([]byte(response.Result.Content[0].Text), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "1.2.3", health.Version)
	assert.Equal(t, "gpt-4o", health.Model)
	assert.Equal(t, "postgres", health.Dialect)
}
