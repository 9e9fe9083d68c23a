package sqlguard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumera-ai/lumera-engine/pkg/datasource"
)

func TestNormalize_AcceptsSelect(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{
			name: "plain select",
			sql:  "SELECT * FROM orders",
			want: "SELECT * FROM orders",
		},
		{
			name: "trailing semicolon stripped",
			sql:  "SELECT * FROM orders;",
			want: "SELECT * FROM orders",
		},
		{
			name: "semicolon with trailing whitespace",
			sql:  "SELECT * FROM orders ;  \n",
			want: "SELECT * FROM orders",
		},
		{
			name: "lowercase select",
			sql:  "select id from customers",
			want: "select id from customers",
		},
		{
			name: "pure select cte",
			sql:  "WITH totals AS (SELECT SUM(amount) AS s FROM orders) SELECT * FROM totals",
			want: "WITH totals AS (SELECT SUM(amount) AS s FROM orders) SELECT * FROM totals",
		},
		{
			name: "semicolon inside string literal",
			sql:  "SELECT * FROM orders WHERE note = 'a;b'",
			want: "SELECT * FROM orders WHERE note = 'a;b'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.sql)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		wantErr error
	}{
		{
			name:    "empty",
			sql:     "   ",
			wantErr: ErrEmptyStatement,
		},
		{
			name:    "multiple statements",
			sql:     "SELECT 1; DROP TABLE orders",
			wantErr: ErrMultipleStatements,
		},
		{
			name:    "insert",
			sql:     "INSERT INTO orders VALUES (1)",
			wantErr: ErrNotReadOnly,
		},
		{
			name:    "update",
			sql:     "UPDATE orders SET amount = 0",
			wantErr: ErrNotReadOnly,
		},
		{
			name:    "delete",
			sql:     "DELETE FROM orders",
			wantErr: ErrNotReadOnly,
		},
		{
			name:    "ddl",
			sql:     "DROP TABLE orders",
			wantErr: ErrNotReadOnly,
		},
		{
			name:    "data-modifying cte",
			sql:     "WITH gone AS (DELETE FROM orders RETURNING *) SELECT * FROM gone",
			wantErr: ErrNotReadOnly,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.sql)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAppendLimit(t *testing.T) {
	t.Run("appends limit for postgres", func(t *testing.T) {
		got := AppendLimit("SELECT * FROM orders", 2000, datasource.DialectPostgres)
		assert.Equal(t, "SELECT * FROM orders\nLIMIT 2000", got)
	})

	t.Run("injects top for sqlserver", func(t *testing.T) {
		got := AppendLimit("SELECT * FROM orders", 100, datasource.DialectSQLServer)
		assert.Equal(t, "SELECT TOP (100) * FROM orders", got)
	})

	t.Run("sqlserver top follows distinct", func(t *testing.T) {
		got := AppendLimit("SELECT DISTINCT customer_state FROM customers", 100, datasource.DialectSQLServer)
		assert.Equal(t, "SELECT DISTINCT TOP (100) customer_state FROM customers", got)
	})

	t.Run("sqlserver cte gets top on the outer select", func(t *testing.T) {
		got := AppendLimit("WITH m AS (SELECT order_id FROM orders) SELECT * FROM m", 2000, datasource.DialectSQLServer)
		assert.Equal(t, "WITH m AS (SELECT order_id FROM orders) SELECT TOP (2000) * FROM m", got)
	})

	t.Run("sqlserver trailing order by gets offset fetch", func(t *testing.T) {
		got := AppendLimit("SELECT month, total FROM sales ORDER BY month", 2000, datasource.DialectSQLServer)
		assert.Equal(t, "SELECT month, total FROM sales ORDER BY month\nOFFSET 0 ROWS FETCH FIRST 2000 ROWS ONLY", got)
	})

	t.Run("sqlserver ordered cte gets offset fetch", func(t *testing.T) {
		sql := "WITH m AS (SELECT order_id, amount FROM orders) SELECT * FROM m ORDER BY amount DESC"
		got := AppendLimit(sql, 500, datasource.DialectSQLServer)
		assert.Equal(t, sql+"\nOFFSET 0 ROWS FETCH FIRST 500 ROWS ONLY", got)
	})

	t.Run("sqlserver order by inside subquery does not force offset", func(t *testing.T) {
		got := AppendLimit("SELECT * FROM (SELECT id FROM orders ORDER BY id OFFSET 0 ROWS) AS t", 100, datasource.DialectSQLServer)
		assert.Equal(t, "SELECT TOP (100) * FROM (SELECT id FROM orders ORDER BY id OFFSET 0 ROWS) AS t", got)
	})

	t.Run("sqlserver existing top is preserved", func(t *testing.T) {
		sql := "SELECT TOP (10) * FROM orders"
		assert.Equal(t, sql, AppendLimit(sql, 2000, datasource.DialectSQLServer))
	})

	t.Run("respects existing limit", func(t *testing.T) {
		sql := "SELECT * FROM orders LIMIT 50"
		assert.Equal(t, sql, AppendLimit(sql, 2000, datasource.DialectPostgres))
	})

	t.Run("respects existing fetch clause", func(t *testing.T) {
		sql := "SELECT * FROM orders ORDER BY id FETCH FIRST 10 ROWS ONLY"
		assert.Equal(t, sql, AppendLimit(sql, 2000, datasource.DialectSQLServer))
	})

	t.Run("limit in subquery still gets bound", func(t *testing.T) {
		sql := "SELECT * FROM (SELECT * FROM orders LIMIT 5) AS t WHERE amount > 0"
		got := AppendLimit(sql, 2000, datasource.DialectPostgres)
		assert.Equal(t, sql+"\nLIMIT 2000", got)
	})

	t.Run("non-positive bound is a no-op", func(t *testing.T) {
		sql := "SELECT * FROM orders"
		assert.Equal(t, sql, AppendLimit(sql, 0, datasource.DialectPostgres))
	})
}

func TestCheckFilterValue(t *testing.T) {
	t.Run("clean values pass", func(t *testing.T) {
		assert.NoError(t, CheckFilterValue("California"))
		assert.NoError(t, CheckFilterValue("O'Brien Furniture"))
	})

	t.Run("injection attempt rejected", func(t *testing.T) {
		err := CheckFilterValue("'; DROP TABLE users--")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "injection")
	})
}
