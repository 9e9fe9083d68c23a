package datasource

import (
	"context"
	"sync"
)

// MockStore is a configurable in-memory Store for tests.
// Set the function fields to control behavior; calls are tracked.
type MockStore struct {
	// QueryFunc is called when Query is invoked.
	// If nil, Query returns an empty table.
	QueryFunc func(ctx context.Context, sqlQuery string) (*ResultTable, error)

	// ExplainFunc is called when Explain is invoked. If nil, returns nil.
	ExplainFunc func(ctx context.Context, sqlQuery string) error

	// DistinctValuesFunc is called when DistinctValues is invoked.
	// If nil, returns Distinct[table+"."+column].
	DistinctValuesFunc func(ctx context.Context, table, column string, limit int) ([]string, error)

	// Distinct backs the default DistinctValues behavior, keyed "table.column".
	Distinct map[string][]string

	// StoreDialect is returned by Dialect. Defaults to DialectPostgres.
	StoreDialect Dialect

	mu            sync.Mutex
	queries       []string
	distinctCalls int
}

// NewMockStore creates a mock with an empty distinct-value map.
func NewMockStore() *MockStore {
	return &MockStore{Distinct: map[string][]string{}}
}

// Query implements Store.
func (m *MockStore) Query(ctx context.Context, sqlQuery string) (*ResultTable, error) {
	m.mu.Lock()
	m.queries = append(m.queries, sqlQuery)
	m.mu.Unlock()
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, sqlQuery)
	}
	return &ResultTable{}, nil
}

// Explain implements Store.
func (m *MockStore) Explain(ctx context.Context, sqlQuery string) error {
	if m.ExplainFunc != nil {
		return m.ExplainFunc(ctx, sqlQuery)
	}
	return nil
}

// DistinctValues implements Store.
func (m *MockStore) DistinctValues(ctx context.Context, table, column string, limit int) ([]string, error) {
	m.mu.Lock()
	m.distinctCalls++
	m.mu.Unlock()
	if m.DistinctValuesFunc != nil {
		return m.DistinctValuesFunc(ctx, table, column, limit)
	}
	return m.Distinct[table+"."+column], nil
}

// Dialect implements Store.
func (m *MockStore) Dialect() Dialect {
	if m.StoreDialect == "" {
		return DialectPostgres
	}
	return m.StoreDialect
}

// Close implements Store.
func (m *MockStore) Close() error { return nil }

// Queries returns the executed statements in order.
func (m *MockStore) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.queries))
	copy(out, m.queries)
	return out
}

// DistinctCalls returns how many times DistinctValues was invoked.
func (m *MockStore) DistinctCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.distinctCalls
}

var _ Store = (*MockStore)(nil)
