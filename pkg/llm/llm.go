// Package llm provides the text-completion capability used by every
// generation and repair stage of the pipeline.
package llm

import "context"

// Request is a single completion request: a system message, a user prompt,
// and a sampling temperature.
type Request struct {
	System      string
	User        string
	Temperature float64
}

// Completer turns a structured prompt into plain text. Implementations must
// be safe for concurrent use.
type Completer interface {
	// Complete returns the model's text response for the request.
	Complete(ctx context.Context, req Request) (string, error)

	// Model returns the configured model name, for logging.
	Model() string
}
