// Package vizrun executes generated visualization code inside a restricted
// yaegi interpreter. The code sees only the result rows, a curated stdlib
// subset, and the viz package; outputs are probed by identifier.
package vizrun

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"go.uber.org/zap"

	"github.com/lumera-ai/lumera-engine/pkg/viz"
)

// Identifiers the generated code may define as its output value.
const (
	identChart     = "chart"
	identTableView = "tableView"
	identText      = "textResult"
)

// interactiveCallPattern matches statements that only trigger interactive
// rendering, e.g. "chart.Show()". They are stripped before execution.
var interactiveCallPattern = regexp.MustCompile(`(?m)^[ \t]*[\w.]+\.(Show|Display|Open)\([^)]*\)[ \t]*\r?\n?`)

// packageClausePattern strips a leading package clause so the code can run
// as interpreter statements.
var packageClausePattern = regexp.MustCompile(`(?m)^[ \t]*package\s+\w+[ \t]*\r?\n`)

// Runner interprets visualization code against a set of result rows.
type Runner struct {
	allowedImports map[string]bool
	logger         *zap.Logger
}

// NewRunner creates a runner with the default import allow-list.
func NewRunner(logger *zap.Logger) *Runner {
	return &Runner{
		allowedImports: map[string]bool{
			"fmt":     true,
			"math":    true,
			"sort":    true,
			"strconv": true,
			"strings": true,
			"time":    true,
			"viz":     true,

			// Blocked by omission: os, os/exec, net, net/http, io,
			// syscall, unsafe, reflect.
		},
		logger: logger.Named("vizrun"),
	}
}

// Run executes the code with the rows bound to the identifier "rows" and
// returns whichever output value the code defined. Execution is bounded by
// the context deadline.
func (r *Runner) Run(ctx context.Context, code string, rows []map[string]any) (viz.Output, error) {
	code = Sanitize(code)
	if strings.TrimSpace(code) == "" {
		return viz.Output{}, fmt.Errorf("empty visualization code")
	}

	if err := r.validateImports(code); err != nil {
		return viz.Output{}, err
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return viz.Output{}, fmt.Errorf("load stdlib symbols: %w", err)
	}
	if err := i.Use(vizSymbols(rows)); err != nil {
		return viz.Output{}, fmt.Errorf("load viz symbols: %w", err)
	}

	// Imports must be evaluated separately from statements: yaegi rejects a
	// single Eval source that mixes an import declaration with statements.
	preludeImports := "import (\n\t\"viz\"\n\t\"vizdata\"\n)\n"
	preludeStmts := "rows := vizdata.Rows\n_ = rows\n_ = viz.ChartLine\n"

	done := make(chan error, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- fmt.Errorf("visualization code panicked: %v", rec)
			}
		}()
		if _, err := i.Eval(preludeImports); err != nil {
			done <- fmt.Errorf("interpreter setup: %w", err)
			return
		}
		if _, err := i.Eval(preludeStmts); err != nil {
			done <- fmt.Errorf("interpreter setup: %w", err)
			return
		}
		_, err := i.Eval(code)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			r.logger.Debug("visualization code failed", zap.Error(err))
			return viz.Output{}, fmt.Errorf("visualization code failed: %w", err)
		}
	case <-ctx.Done():
		// Eval cannot be interrupted mid-statement: the goroutine keeps
		// running until the current evaluation returns, then exits via the
		// buffered channel. The interpreter is abandoned, not reused.
		return viz.Output{}, fmt.Errorf("visualization code timed out: %w", ctx.Err())
	}

	output := r.probeOutputs(i)
	r.logger.Debug("visualization code executed", zap.String("output", output.Kind()))
	return output, nil
}

// probeOutputs looks up the three output identifiers in the interpreter.
// Absence of all three is not an error; the caller reports "no output".
func (r *Runner) probeOutputs(i *interp.Interpreter) viz.Output {
	var out viz.Output

	if v, err := i.Eval(identChart); err == nil {
		if chart, ok := v.Interface().(*viz.Chart); ok && chart != nil {
			out.Chart = chart
			return out
		}
	}
	if v, err := i.Eval(identTableView); err == nil {
		if table, ok := v.Interface().(*viz.TableView); ok && table != nil {
			out.Table = table
			return out
		}
	}
	if v, err := i.Eval(identText); err == nil {
		switch s := v.Interface().(type) {
		case string:
			out.Text = s
		case fmt.Stringer:
			out.Text = s.String()
		}
	}
	return out
}

// validateImports rejects code that imports anything outside the allow-list.
func (r *Runner) validateImports(code string) error {
	var forbidden []string
	for _, pkg := range extractImports(code) {
		if !r.allowedImports[pkg] {
			forbidden = append(forbidden, pkg)
		}
	}
	if len(forbidden) > 0 {
		return fmt.Errorf("forbidden imports in visualization code: %v", forbidden)
	}
	return nil
}

// Sanitize strips package clauses, code fences, and interactive-render calls
// so the remainder can run as interpreter statements.
func Sanitize(code string) string {
	code = strings.TrimSpace(code)
	code = packageClausePattern.ReplaceAllString(code, "")
	code = interactiveCallPattern.ReplaceAllString(code, "")
	return strings.TrimSpace(code)
}

// extractImports collects import paths from both single and block forms.
func extractImports(code string) []string {
	var imports []string
	inBlock := false
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "import ("):
			inBlock = true
		case inBlock && strings.HasPrefix(trimmed, ")"):
			inBlock = false
		case inBlock:
			if pkg := parseImportLine(trimmed); pkg != "" {
				imports = append(imports, pkg)
			}
		case strings.HasPrefix(trimmed, "import "):
			if pkg := parseImportLine(strings.TrimPrefix(trimmed, "import ")); pkg != "" {
				imports = append(imports, pkg)
			}
		}
	}
	return imports
}

// parseImportLine handles optional aliases, e.g. `s "strings"`.
func parseImportLine(line string) string {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "//") {
		return ""
	}
	if i := strings.IndexByte(line, '"'); i >= 0 {
		line = line[i+1:]
		if j := strings.IndexByte(line, '"'); j >= 0 {
			return line[:j]
		}
	}
	return ""
}

// vizSymbols exposes the viz package and the bound rows to interpreted code.
func vizSymbols(rows []map[string]any) interp.Exports {
	return interp.Exports{
		"viz/viz": {
			"ChartLine":      reflect.ValueOf(viz.ChartLine),
			"ChartBar":       reflect.ValueOf(viz.ChartBar),
			"ChartScatter":   reflect.ValueOf(viz.ChartScatter),
			"ChartPie":       reflect.ValueOf(viz.ChartPie),
			"ChartHistogram": reflect.ValueOf(viz.ChartHistogram),
			"NewChart":       reflect.ValueOf(viz.NewChart),
			"TableFromRows":  reflect.ValueOf(viz.TableFromRows),
			"Column":         reflect.ValueOf(viz.Column),
			"Numbers":        reflect.ValueOf(viz.Numbers),
			"Strings":        reflect.ValueOf(viz.Strings),
			"Chart":          reflect.ValueOf((*viz.Chart)(nil)),
			"ChartType":      reflect.ValueOf((*viz.ChartType)(nil)),
			"Series":         reflect.ValueOf((*viz.Series)(nil)),
			"TableView":      reflect.ValueOf((*viz.TableView)(nil)),
		},
		"vizdata/vizdata": {
			"Rows": reflect.ValueOf(rows),
		},
	}
}
