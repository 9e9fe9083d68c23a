// Package datasource defines the warehouse access contract used by the
// pipeline: execute a SELECT, best-effort explain it, and fetch distinct
// column values for filter resolution.
package datasource

import (
	"context"
	"fmt"
	"regexp"
)

// Dialect identifies the SQL flavor of a store, for limit-clause syntax.
type Dialect string

const (
	DialectPostgres  Dialect = "postgres"
	DialectSQLServer Dialect = "sqlserver"
)

// Store executes SQL against the analytics warehouse.
// Each implementation owns its connection and must be closed when done.
// Implementations are safe for concurrent use.
type Store interface {
	// Query runs a SELECT/CTE statement and returns the full result.
	// The caller is responsible for bounding the statement; Query does not
	// rewrite it.
	Query(ctx context.Context, sqlQuery string) (*ResultTable, error)

	// Explain asks the database to plan the statement without running it.
	// Support is advisory: implementations may return an error for valid
	// SQL, and callers must treat any failure as non-blocking.
	Explain(ctx context.Context, sqlQuery string) error

	// DistinctValues returns up to limit distinct non-null values of a
	// column as strings. Table and column names are validated before use.
	DistinctValues(ctx context.Context, table, column string, limit int) ([]string, error)

	// Dialect returns the store's SQL dialect.
	Dialect() Dialect

	// Close releases the connection.
	Close() error
}

// ColumnInfo describes a result column with its database type name.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ResultTable is the columnar in-memory result of executing a statement.
// An empty table (zero rows) is a valid value meaning "no data".
type ResultTable struct {
	Columns  []ColumnInfo     `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}

// Empty reports whether the table has no rows.
func (t *ResultTable) Empty() bool {
	return t == nil || t.RowCount == 0
}

// ColumnNames returns the column names in order.
func (t *ResultTable) ColumnNames() []string {
	if t == nil {
		return nil
	}
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Head returns up to n leading rows.
func (t *ResultTable) Head(n int) []map[string]any {
	if t == nil || n <= 0 {
		return nil
	}
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	return t.Rows[:n]
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// SanitizeIdentifier validates a table or column name before it is embedded
// in a SQL fragment. Only letters, digits, and underscores are accepted;
// anything else is rejected rather than quoted.
func SanitizeIdentifier(name string) (string, error) {
	if !identifierPattern.MatchString(name) {
		return "", fmt.Errorf("unsafe identifier %q", name)
	}
	return name, nil
}
