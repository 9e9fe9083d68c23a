package vizrun

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lumera-ai/lumera-engine/pkg/viz"
)

func testRows() []map[string]any {
	return []map[string]any{
		{"month": "2023-01", "total": 100.0},
		{"month": "2023-02", "total": 250.5},
	}
}

func TestRun_ChartOutput(t *testing.T) {
	r := NewRunner(zap.NewNop())

	code := `chart := viz.NewChart(viz.ChartLine, viz.Column(rows, "month"), viz.Column(rows, "total")).WithTitle("Monthly sales")`
	out, err := r.Run(context.Background(), code, testRows())
	require.NoError(t, err)

	require.NotNil(t, out.Chart)
	assert.Equal(t, "chart", out.Kind())
	assert.Equal(t, viz.ChartLine, out.Chart.Type)
	assert.Equal(t, "Monthly sales", out.Chart.Title)
	assert.Equal(t, []any{"2023-01", "2023-02"}, out.Chart.X)
}

func TestRun_TableOutput(t *testing.T) {
	r := NewRunner(zap.NewNop())

	code := `tableView := viz.TableFromRows(rows, "month", "total")`
	out, err := r.Run(context.Background(), code, testRows())
	require.NoError(t, err)

	require.NotNil(t, out.Table)
	assert.Equal(t, []string{"month", "total"}, out.Table.Columns)
	assert.Len(t, out.Table.Rows, 2)
}

func TestRun_TextOutput(t *testing.T) {
	r := NewRunner(zap.NewNop())

	out, err := r.Run(context.Background(), `textResult := "total sales: 350.50"`, testRows())
	require.NoError(t, err)
	assert.Equal(t, "total sales: 350.50", out.Text)
	assert.Equal(t, "text", out.Kind())
}

func TestRun_NoOutputIdentifier(t *testing.T) {
	r := NewRunner(zap.NewNop())

	out, err := r.Run(context.Background(), `x := viz.Numbers(rows, "total")
_ = x`, testRows())
	require.NoError(t, err)
	assert.True(t, out.Empty())
}

func TestRun_ForbiddenImport(t *testing.T) {
	r := NewRunner(zap.NewNop())

	code := "import \"os\"\ntextResult := os.Getenv(\"HOME\")"
	_, err := r.Run(context.Background(), code, testRows())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forbidden imports")
}

func TestRun_BrokenCodeReturnsError(t *testing.T) {
	r := NewRunner(zap.NewNop())

	_, err := r.Run(context.Background(), `chart := viz.NoSuchFunc(rows)`, testRows())
	require.Error(t, err)
}

func TestRun_EmptyCode(t *testing.T) {
	r := NewRunner(zap.NewNop())

	_, err := r.Run(context.Background(), "   \n", testRows())
	require.Error(t, err)
}

func TestSanitize(t *testing.T) {
	code := "package main\nchart := viz.NewChart(viz.ChartBar, nil, nil)\nchart.Show()\n"
	got := Sanitize(code)
	assert.NotContains(t, got, "package main")
	assert.NotContains(t, got, "Show()")
	assert.Contains(t, got, "viz.NewChart")
}

func TestExtractImports(t *testing.T) {
	code := "import (\n\t\"strings\"\n\ts \"strconv\"\n)\nimport \"fmt\"\n"
	assert.Equal(t, []string{"strings", "strconv", "fmt"}, extractImports(code))
}
