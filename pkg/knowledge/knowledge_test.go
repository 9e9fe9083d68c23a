package knowledge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBase(t *testing.T) *Base {
	t.Helper()
	b := New(map[string]Table{
		"customer": {
			Description: "Customer records and their location (city, state).",
			Columns: []Column{
				{Name: "customer_id", Description: "unique customer identifier"},
				{Name: "customer_city", Description: "customer city name"},
				{Name: "customer_state", Description: "two-letter state abbreviation"},
			},
		},
		"orders": {
			Description: "Order lifecycle timestamps, status, and customer_id.",
			Columns: []Column{
				{Name: "order_id", Description: "unique order identifier"},
				{Name: "order_purchase_timestamp", Description: "when the order was placed"},
			},
		},
		"order_items":          {Description: "Item-level rows for each order."},
		"order_payments":       {Description: "Payment transactions for orders."},
		"category_translation": {Description: "Maps Portuguese category names to English."},
	})
	b.SetAliases(map[string]string{
		"payments": "order_payments",
		"payment":  "order_payments",
	})
	return b
}

func TestCanonicalize_Variants(t *testing.T) {
	b := testBase(t)

	cases := []struct {
		input string
		want  string
	}{
		{"customer", "customer"},
		{"Customers", "customer"},
		{"customer ", "customer"},
		{"CUSTOMER", "customer"},
		{"orders", "orders"},
		{"order", "orders"},
		{"order_item", "order_items"},
		{"Order Items", "order_items"},
		{"payments", "order_payments"},
		{"category translation", "category_translation"},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			got, ok := b.Canonicalize(tc.input)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCanonicalize_UnknownDropped(t *testing.T) {
	b := testBase(t)
	for _, name := range []string{"widgets", "", "   ", "inventory"} {
		_, ok := b.Canonicalize(name)
		assert.False(t, ok, "expected %q to be unresolved", name)
	}
}

func TestCanonicalize_AliasIgnoredForUnknownTarget(t *testing.T) {
	b := testBase(t)
	b.SetAliases(map[string]string{"ghost": "no_such_table"})
	_, ok := b.Canonicalize("ghost")
	assert.False(t, ok)
}

func TestDescriptions_SkipsUnknown(t *testing.T) {
	b := testBase(t)
	out := b.Descriptions([]string{"orders", "widgets", "customer"})
	require.Len(t, out, 2)
	assert.Contains(t, out, "orders")
	assert.Contains(t, out, "customer")
}

func TestLoad_AttemptedPathsInError(t *testing.T) {
	_, err := Load("/does/not/exist.yaml", "/also/missing.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/does/not/exist.yaml")
	assert.Contains(t, err.Error(), "/also/missing.yaml")
}

func TestLoad_FirstValidPathWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "knowledgebase.yaml")
	content := `
orders:
  description: Order lifecycle timestamps.
  columns:
    - name: order_id
      description: unique order identifier
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	b, err := Load(filepath.Join(dir, "missing.yaml"), path)
	require.NoError(t, err)

	table, ok := b.Table("orders")
	require.True(t, ok)
	assert.Equal(t, "Order lifecycle timestamps.", table.Description)
	require.Len(t, table.Columns, 1)
	assert.Equal(t, "order_id", table.Columns[0].Name)
}
