package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/lumera-ai/lumera-engine/pkg/datasource"
	"github.com/lumera-ai/lumera-engine/pkg/logging"
	"github.com/lumera-ai/lumera-engine/pkg/prompts"
	"github.com/lumera-ai/lumera-engine/pkg/textparse"
	"github.com/lumera-ai/lumera-engine/pkg/viz"
)

// noOutputMessage is reported when the generated code ran cleanly but
// defined none of the expected output values.
const noOutputMessage = "no output produced"

// vizResult is the terminal state of the visualization stage.
type vizResult struct {
	Request string
	Code    string
	Status  Status
	Error   string
	Output  viz.Output
}

// visualize recommends a presentation, generates code for it, and runs the
// code under the restricted interpreter with a bounded silent-fix loop.
// It proceeds gracefully on an empty or absent result table: the prompts
// see the EMPTY marker and the code runs over zero rows.
func (o *Orchestrator) visualize(ctx context.Context, log *zap.Logger, question, sqlText string, table *datasource.ResultTable) vizResult {
	structure, sample := describeResult(table, o.cfg.SampleRows)

	recResp, err := o.complete(ctx, prompts.VizRecommend(question, sqlText, structure, sample))
	if err != nil {
		log.Warn("viz recommendation completion failed", zap.Error(err))
	}
	request := strings.TrimSpace(recResp)

	genResp, err := o.complete(ctx, prompts.VizGenerate(structure, sample, request))
	if err != nil {
		log.Warn("viz generation completion failed", zap.Error(err))
	}
	code := textparse.ExtractCodeBlock(genResp, "go")

	rows := []map[string]any{}
	if table != nil {
		rows = table.Rows
	}

	var lastErr string
	for attempt := 0; attempt <= o.cfg.MaxRetries; attempt++ {
		out, err := o.runCode(ctx, code, rows)
		if err == nil {
			res := vizResult{Request: request, Code: code, Status: StatusPass, Output: out}
			if out.Empty() {
				res.Error = noOutputMessage
			}
			log.Info("viz code executed",
				zap.Int("attempt", attempt), zap.String("kind", out.Kind()))
			return res
		}

		lastErr = logging.TruncateString(err.Error(), o.cfg.VizErrorLimit)
		log.Warn("viz attempt failed",
			zap.Int("attempt", attempt), zap.String("error", lastErr))
		if attempt == o.cfg.MaxRetries {
			break
		}

		fixResp, ferr := o.complete(ctx, prompts.VizRepair(code, lastErr))
		if ferr != nil {
			log.Warn("viz repair completion failed", zap.Error(ferr))
			continue
		}
		if fixed := textparse.ExtractCodeBlock(fixResp, "go"); fixed != "" {
			code = fixed
		}
	}
	return vizResult{Request: request, Code: code, Status: StatusFailed, Error: lastErr}
}

// runCode executes one attempt under the interpreter's time budget.
func (o *Orchestrator) runCode(ctx context.Context, code string, rows []map[string]any) (viz.Output, error) {
	runCtx, cancel := context.WithTimeout(ctx, o.cfg.VizTimeout)
	defer cancel()
	return o.runner.Run(runCtx, code, rows)
}
