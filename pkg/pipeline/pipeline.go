// Package pipeline sequences a natural-language analytics question through
// routing, decomposition, filter resolution, SQL generation and repair,
// execution, and visualization, producing a single Bundle.
//
// The orchestrator never raises for model or warehouse failures mid-run:
// every stage degrades to an explicit status or pass-through value and the
// caller reads success from the Bundle's status fields.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumera-ai/lumera-engine/pkg/apperrors"
	"github.com/lumera-ai/lumera-engine/pkg/datasource"
	"github.com/lumera-ai/lumera-engine/pkg/filters"
	"github.com/lumera-ai/lumera-engine/pkg/knowledge"
	"github.com/lumera-ai/lumera-engine/pkg/llm"
	"github.com/lumera-ai/lumera-engine/pkg/viz"
	"github.com/lumera-ai/lumera-engine/pkg/vizrun"
)

// Status marks whether a repair loop ended in success or exhaustion.
type Status string

const (
	StatusPass   Status = "PASS"
	StatusFailed Status = "FAILED"
)

// GroupDef is one routing group: a name, a description shown to the router,
// and the tables the group expands to.
type GroupDef struct {
	Name        string
	Description string
	Tables      []string
}

// Config tunes the orchestrator. Zero values fall back to the defaults
// below, so tests can set only what they exercise.
type Config struct {
	// MaxRetries bounds both repair loops. A failing statement is executed
	// at most MaxRetries+1 times.
	MaxRetries int

	// RowLimit is appended to the executed copy of the SQL statement.
	RowLimit int

	// SQLErrorLimit and VizErrorLimit cap the error text fed back to the
	// repair prompts.
	SQLErrorLimit int
	VizErrorLimit int

	// VizTimeout bounds one execution of generated visualization code.
	VizTimeout time.Duration

	// DefaultGroup is expanded when routing produces no usable group.
	DefaultGroup string

	// SampleRows is how many leading result rows the visualization
	// prompts see.
	SampleRows int

	// Temperature is applied to every completion request.
	Temperature float64

	Groups []GroupDef
}

const (
	defaultMaxRetries    = 3
	defaultRowLimit      = 2000
	defaultSQLErrorLimit = 600
	defaultVizErrorLimit = 800
	defaultVizTimeout    = 10 * time.Second
	defaultSampleRows    = 5
)

func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.RowLimit <= 0 {
		c.RowLimit = defaultRowLimit
	}
	if c.SQLErrorLimit <= 0 {
		c.SQLErrorLimit = defaultSQLErrorLimit
	}
	if c.VizErrorLimit <= 0 {
		c.VizErrorLimit = defaultVizErrorLimit
	}
	if c.VizTimeout <= 0 {
		c.VizTimeout = defaultVizTimeout
	}
	if c.SampleRows <= 0 {
		c.SampleRows = defaultSampleRows
	}
	return c
}

// Subquestion is one decomposed part of the question assigned to a table.
type Subquestion struct {
	Question string `json:"question"`
	Table    string `json:"table"`
}

// ColumnRow is one selected column with the description the model saw.
type ColumnRow struct {
	Table       string `json:"table"`
	Column      string `json:"column"`
	Description string `json:"description"`
}

// StageTiming records how long one stage took, in order of execution.
type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
}

// Bundle is the complete result of one pipeline run. It is always returned
// fully populated; SQLStatus and VizStatus carry the pass/fail outcome of
// the two repair loops.
type Bundle struct {
	RunID    string `json:"run_id"`
	Question string `json:"question"`

	Tables       []string      `json:"tables"`
	Subquestions []Subquestion `json:"subquestions"`
	Columns      []ColumnRow   `json:"columns"`

	FiltersRaw     string `json:"filters_raw"`
	FiltersMatched string `json:"filters_matched"`

	// SQL is the canonical statement: validated, unbounded by the row
	// limit. On FAILED it is the last attempted statement.
	SQL       string                  `json:"sql"`
	SQLStatus Status                  `json:"sql_status"`
	SQLError  string                  `json:"sql_error,omitempty"`
	Result    *datasource.ResultTable `json:"result,omitempty"`

	VizRequest string     `json:"viz_request"`
	VizCode    string     `json:"viz_code"`
	VizStatus  Status     `json:"viz_status"`
	VizError   string     `json:"viz_error,omitempty"`
	Viz        viz.Output `json:"viz"`

	Timings []StageTiming `json:"timings"`
}

// Orchestrator runs the full pipeline. It is safe for concurrent use: all
// per-run state lives in the Bundle.
type Orchestrator struct {
	completer llm.Completer
	store     datasource.Store
	kb        *knowledge.Base
	resolver  *filters.Resolver
	runner    *vizrun.Runner
	cfg       Config
	logger    *zap.Logger
}

// New creates an orchestrator. The resolver may be nil, in which case
// extracted filters are passed through unresolved.
func New(completer llm.Completer, store datasource.Store, kb *knowledge.Base, resolver *filters.Resolver, cfg Config, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		completer: completer,
		store:     store,
		kb:        kb,
		resolver:  resolver,
		runner:    vizrun.NewRunner(logger),
		cfg:       cfg.withDefaults(),
		logger:    logger.Named("pipeline"),
	}
}

// Run processes one question end to end and returns the Bundle. The only
// error it returns is an empty question or a cancelled context before work
// starts; everything downstream is reported through the Bundle's status
// fields instead.
func (o *Orchestrator) Run(ctx context.Context, question string) (*Bundle, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, apperrors.ErrQuestionEmpty
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := &Bundle{RunID: uuid.NewString(), Question: question}
	log := o.logger.With(zap.String("run_id", b.RunID))
	log.Info("pipeline start", zap.String("question", question), zap.String("model", o.completer.Model()))

	o.timed(b, "route", func() {
		b.Tables = o.route(ctx, log, question)
	})
	o.timed(b, "decompose", func() {
		b.Subquestions, b.Columns = o.decompose(ctx, log, question, b.Tables)
	})

	columnsBlock := serializeColumnRows(b.Columns)

	o.timed(b, "filters", func() {
		b.FiltersRaw, b.FiltersMatched = o.extractFilters(ctx, log, question, columnsBlock)
	})

	var sqlText string
	o.timed(b, "sql_generate", func() {
		sqlText = o.generateSQL(ctx, log, question, columnsBlock, b.FiltersMatched)
	})

	var sqlRes sqlResult
	o.timed(b, "sql_execute", func() {
		sqlRes = o.executeSQL(ctx, log, question, columnsBlock, b.FiltersMatched, sqlText)
	})
	b.SQL = sqlRes.SQL
	b.SQLStatus = sqlRes.Status
	b.SQLError = sqlRes.Error
	b.Result = sqlRes.Table

	var vizRes vizResult
	o.timed(b, "viz", func() {
		vizRes = o.visualize(ctx, log, question, b.SQL, b.Result)
	})
	b.VizRequest = vizRes.Request
	b.VizCode = vizRes.Code
	b.VizStatus = vizRes.Status
	b.VizError = vizRes.Error
	b.Viz = vizRes.Output

	log.Info("pipeline done",
		zap.String("sql_status", string(b.SQLStatus)),
		zap.String("viz_status", string(b.VizStatus)),
		zap.String("viz_kind", b.Viz.Kind()),
		zap.Int("rows", rowCount(b.Result)))
	return b, nil
}

// complete applies the configured sampling temperature and dispatches the
// request.
func (o *Orchestrator) complete(ctx context.Context, req llm.Request) (string, error) {
	req.Temperature = o.cfg.Temperature
	return o.completer.Complete(ctx, req)
}

func (o *Orchestrator) timed(b *Bundle, stage string, fn func()) {
	start := time.Now()
	fn()
	b.Timings = append(b.Timings, StageTiming{Stage: stage, Duration: time.Since(start)})
}

func rowCount(t *datasource.ResultTable) int {
	if t == nil {
		return 0
	}
	return t.RowCount
}
