package llm

import (
	"context"
	"sync"
)

// MockCompleter is a configurable mock for testing pipeline stages.
// Set CompleteFunc to control behavior; calls are recorded for verification.
type MockCompleter struct {
	// CompleteFunc is called when Complete is invoked.
	// If nil, Complete returns an empty string and nil error.
	CompleteFunc func(ctx context.Context, req Request) (string, error)

	// ModelName is returned by Model. Defaults to "mock-model".
	ModelName string

	mu    sync.Mutex
	calls []Request
}

// NewMockCompleter creates a mock with sensible defaults.
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{ModelName: "mock-model"}
}

// Complete implements Completer.
func (m *MockCompleter) Complete(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return "", nil
}

// Model implements Completer.
func (m *MockCompleter) Model() string {
	if m.ModelName == "" {
		return "mock-model"
	}
	return m.ModelName
}

// Calls returns a copy of the recorded requests.
func (m *MockCompleter) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of Complete invocations.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Reset clears recorded calls.
func (m *MockCompleter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Scripted returns a mock that replays the given responses in order,
// repeating the last one once the script is exhausted.
func Scripted(responses ...string) *MockCompleter {
	m := NewMockCompleter()
	i := 0
	m.CompleteFunc = func(ctx context.Context, req Request) (string, error) {
		if i < len(responses)-1 {
			resp := responses[i]
			i++
			return resp, nil
		}
		if len(responses) == 0 {
			return "", nil
		}
		return responses[len(responses)-1], nil
	}
	return m
}

var _ Completer = (*MockCompleter)(nil)
