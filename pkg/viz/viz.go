// Package viz defines the visualization output model produced by generated
// rendering code: a chart spec, a table view, or a short text result. It also
// provides the small column-access helpers that generated code runs against
// the result rows.
package viz

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// ChartType enumerates the supported chart treatments.
type ChartType string

const (
	ChartLine      ChartType = "line"
	ChartBar       ChartType = "bar"
	ChartScatter   ChartType = "scatter"
	ChartPie       ChartType = "pie"
	ChartHistogram ChartType = "histogram"
)

// Series is one named sequence of y-values plotted against the chart's x-axis.
type Series struct {
	Name   string `json:"name"`
	Values []any  `json:"values"`
}

// Chart is a renderer-agnostic chart specification.
type Chart struct {
	Type   ChartType `json:"type"`
	Title  string    `json:"title,omitempty"`
	XLabel string    `json:"x_label,omitempty"`
	YLabel string    `json:"y_label,omitempty"`
	X      []any     `json:"x"`
	Series []Series  `json:"series"`
}

// TableView is a column-ordered tabular rendering of the result.
type TableView struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Output is the result of running visualization code. At most one field is
// set; a zero Output means the code produced nothing.
type Output struct {
	Chart *Chart     `json:"chart,omitempty"`
	Table *TableView `json:"table,omitempty"`
	Text  string     `json:"text,omitempty"`
}

// Empty reports whether the code produced no output value.
func (o Output) Empty() bool {
	return o.Chart == nil && o.Table == nil && o.Text == ""
}

// Kind names which output value was produced, for logging.
func (o Output) Kind() string {
	switch {
	case o.Chart != nil:
		return "chart"
	case o.Table != nil:
		return "table"
	case o.Text != "":
		return "text"
	default:
		return "none"
	}
}

// NewChart builds a chart of the given type with one unnamed series.
func NewChart(chartType ChartType, x, y []any) *Chart {
	return &Chart{
		Type:   chartType,
		X:      x,
		Series: []Series{{Values: y}},
	}
}

// AddSeries appends a named series and returns the chart for chaining.
func (c *Chart) AddSeries(name string, values []any) *Chart {
	c.Series = append(c.Series, Series{Name: name, Values: values})
	return c
}

// WithTitle sets the title and returns the chart for chaining.
func (c *Chart) WithTitle(title string) *Chart {
	c.Title = title
	return c
}

// WithLabels sets the axis labels and returns the chart for chaining.
func (c *Chart) WithLabels(xLabel, yLabel string) *Chart {
	c.XLabel = xLabel
	c.YLabel = yLabel
	return c
}

// TableFromRows converts map rows into an ordered TableView. Column order
// follows the given names; with none given, columns are the sorted union of
// keys across rows.
func TableFromRows(rows []map[string]any, columns ...string) *TableView {
	if len(columns) == 0 {
		seen := map[string]struct{}{}
		for _, row := range rows {
			for k := range row {
				seen[k] = struct{}{}
			}
		}
		for k := range seen {
			columns = append(columns, k)
		}
		sort.Strings(columns)
	}

	view := &TableView{Columns: columns, Rows: make([][]any, 0, len(rows))}
	for _, row := range rows {
		out := make([]any, len(columns))
		for i, col := range columns {
			out[i] = row[col]
		}
		view.Rows = append(view.Rows, out)
	}
	return view
}

// Column extracts one column from map rows, preserving row order.
func Column(rows []map[string]any, name string) []any {
	values := make([]any, 0, len(rows))
	for _, row := range rows {
		values = append(values, row[name])
	}
	return values
}

// Numbers extracts one column as float64 values. Non-numeric cells become 0.
func Numbers(rows []map[string]any, name string) []float64 {
	values := make([]float64, 0, len(rows))
	for _, row := range rows {
		values = append(values, toFloat(row[name]))
	}
	return values
}

// Strings extracts one column with every cell formatted as a string.
func Strings(rows []map[string]any, name string) []string {
	values := make([]string, 0, len(rows))
	for _, row := range rows {
		values = append(values, formatCell(row[name]))
	}
	return values
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func formatCell(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case time.Time:
		return s.Format("2006-01-02")
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", s)
	}
}
