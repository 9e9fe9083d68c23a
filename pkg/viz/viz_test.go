package viz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOutputKind(t *testing.T) {
	assert.Equal(t, "none", Output{}.Kind())
	assert.True(t, Output{}.Empty())

	chart := Output{Chart: NewChart(ChartLine, []any{"jan"}, []any{1.0})}
	assert.Equal(t, "chart", chart.Kind())
	assert.False(t, chart.Empty())

	table := Output{Table: &TableView{Columns: []string{"a"}}}
	assert.Equal(t, "table", table.Kind())

	text := Output{Text: "42"}
	assert.Equal(t, "text", text.Kind())
}

func TestChartBuilders(t *testing.T) {
	c := NewChart(ChartBar, []any{"x"}, []any{1}).
		WithTitle("sales").
		WithLabels("month", "total").
		AddSeries("freight", []any{2})

	assert.Equal(t, ChartBar, c.Type)
	assert.Equal(t, "sales", c.Title)
	assert.Equal(t, "month", c.XLabel)
	assert.Equal(t, "total", c.YLabel)
	assert.Len(t, c.Series, 2)
	assert.Equal(t, "freight", c.Series[1].Name)
}

func TestTableFromRows(t *testing.T) {
	rows := []map[string]any{
		{"month": "2023-01", "total": 100.0},
		{"month": "2023-02", "total": 250.5},
	}

	t.Run("explicit column order", func(t *testing.T) {
		view := TableFromRows(rows, "month", "total")
		assert.Equal(t, []string{"month", "total"}, view.Columns)
		assert.Equal(t, [][]any{{"2023-01", 100.0}, {"2023-02", 250.5}}, view.Rows)
	})

	t.Run("inferred columns are sorted", func(t *testing.T) {
		view := TableFromRows(rows)
		assert.Equal(t, []string{"month", "total"}, view.Columns)
	})

	t.Run("empty rows", func(t *testing.T) {
		view := TableFromRows(nil, "a")
		assert.Empty(t, view.Rows)
	})
}

func TestColumnHelpers(t *testing.T) {
	rows := []map[string]any{
		{"month": time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC), "total": int64(100), "note": nil},
		{"month": time.Date(2023, 2, 3, 0, 0, 0, 0, time.UTC), "total": "250.5", "note": "x"},
	}

	assert.Equal(t, []float64{100, 250.5}, Numbers(rows, "total"))
	assert.Equal(t, []string{"2023-01-15", "2023-02-03"}, Strings(rows, "month"))
	assert.Equal(t, []string{"", "x"}, Strings(rows, "note"))
	assert.Equal(t, []any{int64(100), "250.5"}, Column(rows, "total"))
	assert.Equal(t, []float64{0, 0}, Numbers(rows, "note"))
}
