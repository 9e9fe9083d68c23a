package textparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNestedList_StrictJSON(t *testing.T) {
	out := ParseNestedList(`[["what is total revenue","order_payments"],["when was it paid","orders"]]`)
	require.Len(t, out, 2)

	first, ok := out[0].([]any)
	require.True(t, ok)
	assert.Equal(t, "what is total revenue", first[0])
	assert.Equal(t, "order_payments", first[1])
}

func TestParseNestedList_PythonLiteral(t *testing.T) {
	out := ParseNestedList(`[['customer', 'orders']]`)
	require.Len(t, out, 1)

	inner, ok := out[0].([]any)
	require.True(t, ok)
	assert.Equal(t, []any{"customer", "orders"}, inner)
}

func TestParseNestedList_FlatLiteral(t *testing.T) {
	out := ParseNestedList(`['customer', 'orders']`)
	assert.Equal(t, []any{"customer", "orders"}, out)
}

func TestParseNestedList_SurroundingProse(t *testing.T) {
	text := "Sure, here are the subquestions:\n" +
		`[["monthly sales", "orders"], ["total paid", "order_payments"]]` +
		"\nLet me know if you need anything else."
	out := ParseNestedList(text)
	require.Len(t, out, 2)
}

func TestParseNestedList_MarkdownFence(t *testing.T) {
	out := ParseNestedList("```json\n[[\"a\", \"b\"]]\n```")
	require.Len(t, out, 1)
}

func TestParseNestedList_TrailingComma(t *testing.T) {
	out := ParseNestedList(`[["a", "b"],]`)
	require.Len(t, out, 1)
}

func TestParseNestedList_ApostropheInsideString(t *testing.T) {
	out := ParseNestedList(`[["customer’s city", "customer"]]`)
	require.Len(t, out, 1)
}

func TestParseNestedList_Malformed(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace", "   \n\t"},
		{"plain prose", "I could not determine any subquestions for this."},
		{"truncated json", `[["a", "b"`},
		{"object not list", `{"a": 1}`},
		{"number", "42"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Empty(t, ParseNestedList(tc.input))
		})
	}
}

func TestNormalizePairs(t *testing.T) {
	entries := []any{
		[]any{" q1 ", "orders "},
		[]any{"q2", "customer", "extra is fine"},
		[]any{"only one"},
		"not a list",
		[]any{"", "orders"},
		[]any{"q3", ""},
		[]any{42.0, "orders"},
	}
	out := NormalizePairs(entries)
	require.Len(t, out, 3)
	assert.Equal(t, [2]string{"q1", "orders"}, out[0])
	assert.Equal(t, [2]string{"q2", "customer"}, out[1])
	assert.Equal(t, [2]string{"42", "orders"}, out[2])
}

func TestExtractSQL_FencedBlock(t *testing.T) {
	assert.Equal(t, "SELECT 1", ExtractSQL("Sure! ```sql\nSELECT 1```"))
}

func TestExtractSQL_CTEKeptVerbatim(t *testing.T) {
	sql := "WITH x AS (SELECT 1) SELECT * FROM x"
	assert.Equal(t, sql, ExtractSQL(sql))
}

func TestExtractSQL_FromFirstSelect(t *testing.T) {
	got := ExtractSQL("Here is the query you asked for: SELECT a FROM t WHERE b = 1")
	assert.Equal(t, "SELECT a FROM t WHERE b = 1", got)
}

func TestExtractSQL_RawFallback(t *testing.T) {
	assert.Equal(t, "no sql here", ExtractSQL("  no sql here  "))
	assert.Equal(t, "", ExtractSQL(""))
}

func TestExtractSQL_UnlabelledFence(t *testing.T) {
	assert.Equal(t, "SELECT 2", ExtractSQL("```\nSELECT 2```"))
}

func TestExtractCodeBlock(t *testing.T) {
	t.Run("named language", func(t *testing.T) {
		got := ExtractCodeBlock("prose\n```go\nchart := 1\n```\nmore prose", "go")
		assert.Equal(t, "chart := 1", got)
	})
	t.Run("falls back to first fence", func(t *testing.T) {
		got := ExtractCodeBlock("```\nx := 2\n```", "go")
		assert.Equal(t, "x := 2", got)
	})
	t.Run("other language fence", func(t *testing.T) {
		got := ExtractCodeBlock("```python\nx = 2\n```", "go")
		assert.Equal(t, "x = 2", got)
	})
	t.Run("no fences", func(t *testing.T) {
		assert.Equal(t, "just code", ExtractCodeBlock("just code", "go"))
	})
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, "", ExtractCodeBlock("", "go"))
	})
}
