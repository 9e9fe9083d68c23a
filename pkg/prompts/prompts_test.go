package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lumera-ai/lumera-engine/pkg/datasource"
)

func TestRouter(t *testing.T) {
	req := Router("Which state has most orders?", []Group{
		{Name: "customer", Description: "customer and seller locations"},
		{Name: "orders", Description: "order details and payments"},
	})

	assert.Contains(t, req.System, "JSON array of group name strings")
	assert.Contains(t, req.User, "customer group: customer and seller locations")
	assert.Contains(t, req.User, "orders group: order details and payments")
	assert.Contains(t, req.User, "Which state has most orders?")
}

func TestSubquestion_StableTableOrder(t *testing.T) {
	descriptions := map[string]string{
		"orders":   "order facts",
		"customer": "customer locations",
	}

	first := Subquestion("q", descriptions).User
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Subquestion("q", descriptions).User)
	}
	assert.Less(t, strings.Index(first, "customer:"), strings.Index(first, "orders:"))
}

func TestColumnSelection(t *testing.T) {
	req := ColumnSelection("main q", "sub q", "[[\"order_id\", \"identifier\"]]")
	assert.Contains(t, req.System, "JSON array of pairs")
	assert.Contains(t, req.User, "Subquestion:\nsub q")
	assert.Contains(t, req.User, "Main question:\nmain q")
}

func TestFilterExtraction(t *testing.T) {
	req := FilterExtraction("orders from São Paulo", "customer.customer_state")
	assert.Contains(t, req.System, `["no"]`)
	assert.Contains(t, req.System, `["yes", ["<table>", "<column>", "<predicate>"]`)
	assert.Contains(t, req.System, "Do NOT abbreviate or translate")
	assert.Contains(t, req.User, "São Paulo")
}

func TestSQLGenerate_DialectHints(t *testing.T) {
	pg := SQLGenerate("q", "cols", "filters", datasource.DialectPostgres)
	assert.Contains(t, pg.System, "PostgreSQL SQL query generator")
	assert.Contains(t, pg.System, "DATE_TRUNC")
	assert.NotContains(t, pg.System, "TOP (n)")

	ms := SQLGenerate("q", "cols", "filters", datasource.DialectSQLServer)
	assert.Contains(t, ms.System, "SQL Server SQL query generator")
	assert.Contains(t, ms.System, "STRING_AGG")
	assert.Contains(t, ms.System, "LIMIT is not valid")
}

func TestSQLRepair_CarriesError(t *testing.T) {
	req := SQLRepair("q", "cols", "filters", "SELECT x FROM y", "column x does not exist", datasource.DialectPostgres)
	assert.Contains(t, req.User, "SELECT x FROM y")
	assert.Contains(t, req.User, "column x does not exist")
	assert.Contains(t, req.System, "SQL query fixer")
}

func TestVizPrompts(t *testing.T) {
	rec := VizRecommend("q", "SELECT 1", "EMPTY", "EMPTY")
	assert.Contains(t, rec.System, "Business Intelligence expert")
	assert.Contains(t, rec.User, "EMPTY")

	gen := VizGenerate("month:string", "sample", "line chart of sales by month")
	assert.Contains(t, gen.System, "chart")
	assert.Contains(t, gen.System, "tableView")
	assert.Contains(t, gen.System, "textResult")
	assert.Contains(t, gen.System, "```go")
	assert.Contains(t, gen.User, "line chart of sales by month")

	fix := VizRepair("chart := bad()", "undefined: bad")
	assert.Contains(t, fix.System, "silently fixing errors")
	assert.Contains(t, fix.User, "chart := bad()")
	assert.Contains(t, fix.User, "undefined: bad")
}
