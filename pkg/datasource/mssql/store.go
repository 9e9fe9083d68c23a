// Package mssql implements the datasource.Store contract for SQL Server
// via database/sql and the go-mssqldb driver.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/lumera-ai/lumera-engine/pkg/datasource"
)

// Config contains SQL Server connection options.
type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string

	Encrypt                bool
	TrustServerCertificate bool
	ConnectionTimeout      int // seconds
}

// ConnectionString builds a sqlserver:// URL for the driver.
func (cfg *Config) ConnectionString() string {
	port := cfg.Port
	if port == 0 {
		port = 1433
	}

	query := url.Values{}
	query.Add("database", cfg.Database)
	if cfg.Encrypt {
		query.Add("encrypt", "true")
	} else {
		query.Add("encrypt", "false")
	}
	if cfg.TrustServerCertificate {
		query.Add("TrustServerCertificate", "true")
	}
	if cfg.ConnectionTimeout > 0 {
		query.Add("connection timeout", fmt.Sprintf("%d", cfg.ConnectionTimeout))
	}

	return fmt.Sprintf("sqlserver://%s:%s@%s:%d?%s",
		url.QueryEscape(cfg.Username),
		url.QueryEscape(cfg.Password),
		cfg.Host,
		port,
		query.Encode(),
	)
}

// Store executes statements against a SQL Server warehouse.
type Store struct {
	db *sql.DB
}

var _ datasource.Store = (*Store)(nil)

// NewStore connects to SQL Server and verifies the connection.
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	db, err := sql.Open("sqlserver", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("open sqlserver connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlserver: %w", err)
	}
	return &Store{db: db}, nil
}

// Query runs a statement and collects the full result set.
func (s *Store) Query(ctx context.Context, sqlQuery string) (*datasource.ResultTable, error) {
	rows, err := s.db.QueryContext(ctx, sqlQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	columnNames, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to get column types: %w", err)
	}

	columns := make([]datasource.ColumnInfo, len(columnNames))
	for i, colName := range columnNames {
		columns[i] = datasource.ColumnInfo{
			Name: colName,
			Type: strings.ToUpper(columnTypes[i].DatabaseTypeName()),
		}
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columnNames))
		valuePtrs := make([]any, len(columnNames))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		rowMap := make(map[string]any, len(columnNames))
		for i, col := range columnNames {
			val := values[i]
			// The driver returns text columns as []byte.
			if b, ok := val.([]byte); ok && isStringType(columnTypes[i].DatabaseTypeName()) {
				val = string(b)
			}
			rowMap[col] = val
		}
		resultRows = append(resultRows, rowMap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return &datasource.ResultTable{
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
	}, nil
}

// Explain validates the statement with SHOWPLAN without executing it.
func (s *Store) Explain(ctx context.Context, sqlQuery string) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "SET SHOWPLAN_XML ON"); err != nil {
		return fmt.Errorf("enable showplan: %w", err)
	}
	_, planErr := conn.ExecContext(ctx, sqlQuery)
	if _, err := conn.ExecContext(ctx, "SET SHOWPLAN_XML OFF"); err != nil {
		return fmt.Errorf("disable showplan: %w", err)
	}
	if planErr != nil {
		return fmt.Errorf("explain query: %w", planErr)
	}
	return nil
}

// DistinctValues returns up to limit distinct non-null values of a column.
func (s *Store) DistinctValues(ctx context.Context, table, column string, limit int) ([]string, error) {
	tbl, err := datasource.SanitizeIdentifier(table)
	if err != nil {
		return nil, err
	}
	col, err := datasource.SanitizeIdentifier(column)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		"SELECT DISTINCT TOP (%d) CAST(%s AS NVARCHAR(MAX)) FROM %s WHERE %s IS NOT NULL",
		limit, col, tbl, col,
	)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("distinct values for %s.%s: %w", table, column, err)
	}
	defer rows.Close()

	values := make([]string, 0, limit)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan distinct value: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating distinct values: %w", err)
	}
	return values, nil
}

// Dialect identifies the store as SQL Server.
func (s *Store) Dialect() datasource.Dialect {
	return datasource.DialectSQLServer
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func isStringType(sqlType string) bool {
	switch strings.ToUpper(sqlType) {
	case "CHAR", "NCHAR", "VARCHAR", "NVARCHAR", "TEXT", "NTEXT":
		return true
	}
	return false
}
