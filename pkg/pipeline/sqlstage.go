package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/lumera-ai/lumera-engine/pkg/datasource"
	"github.com/lumera-ai/lumera-engine/pkg/logging"
	"github.com/lumera-ai/lumera-engine/pkg/prompts"
	"github.com/lumera-ai/lumera-engine/pkg/sqlguard"
	"github.com/lumera-ai/lumera-engine/pkg/textparse"
)

// sqlResult is the terminal state of the execute/repair loop.
type sqlResult struct {
	// SQL is the canonical statement without the appended row limit.
	// On FAILED it is the last attempted statement.
	SQL    string
	Status Status
	Error  string
	Table  *datasource.ResultTable
}

// generateSQL produces the candidate statement: one generation call followed
// by a single review pass that may return it unchanged.
func (o *Orchestrator) generateSQL(ctx context.Context, log *zap.Logger, question, columnsBlock, filtersStr string) string {
	dialect := o.store.Dialect()

	resp, err := o.complete(ctx, prompts.SQLGenerate(question, columnsBlock, filtersStr, dialect))
	if err != nil {
		log.Warn("sql generation completion failed", zap.Error(err))
		return ""
	}
	sqlText := textparse.ExtractSQL(resp)

	revResp, err := o.complete(ctx, prompts.SQLReview(question, columnsBlock, filtersStr, sqlText, dialect))
	if err != nil {
		log.Warn("sql review completion failed", zap.Error(err))
		return sqlText
	}
	if reviewed := textparse.ExtractSQL(revResp); reviewed != "" {
		sqlText = reviewed
	}
	return sqlText
}

// executeSQL runs the bounded validate/execute/repair loop. The statement is
// executed at most MaxRetries+1 times; each failure feeds a truncated error
// message into a repair completion before the next attempt. Exhaustion
// returns the last FAILED state instead of an error.
func (o *Orchestrator) executeSQL(ctx context.Context, log *zap.Logger, question, columnsBlock, filtersStr, sqlText string) sqlResult {
	current := sqlText
	var lastErr string

	for attempt := 0; attempt <= o.cfg.MaxRetries; attempt++ {
		table, canonical, err := o.tryExecute(ctx, log, current)
		if err == nil {
			log.Info("sql executed",
				zap.Int("attempt", attempt), zap.Int("rows", table.RowCount))
			return sqlResult{SQL: canonical, Status: StatusPass, Table: table}
		}

		lastErr = logging.TruncateString(err.Error(), o.cfg.SQLErrorLimit)
		log.Warn("sql attempt failed",
			zap.Int("attempt", attempt),
			zap.String("query", logging.SanitizeQuery(current)),
			zap.String("error", lastErr))
		if attempt == o.cfg.MaxRetries {
			break
		}

		resp, rerr := o.complete(ctx, prompts.SQLRepair(question, columnsBlock, filtersStr, current, lastErr, o.store.Dialect()))
		if rerr != nil {
			log.Warn("sql repair completion failed", zap.Error(rerr))
			continue
		}
		if fixed := textparse.ExtractSQL(resp); fixed != "" {
			current = fixed
		}
	}
	return sqlResult{SQL: current, Status: StatusFailed, Error: lastErr}
}

// tryExecute validates the statement, appends the row limit to an executed
// copy, plan-checks it, and runs it. The returned canonical string is the
// normalized statement without the limit. A guard rejection is reported the
// same way as an execution failure so the repair loop can react to it.
func (o *Orchestrator) tryExecute(ctx context.Context, log *zap.Logger, sqlText string) (*datasource.ResultTable, string, error) {
	canonical, err := sqlguard.Normalize(sqlText)
	if err != nil {
		return nil, sqlText, err
	}

	bounded := sqlguard.AppendLimit(canonical, o.cfg.RowLimit, o.store.Dialect())

	// Advisory only: some stores cannot plan every valid statement.
	if err := o.store.Explain(ctx, bounded); err != nil {
		log.Debug("explain failed", zap.String("error", logging.SanitizeError(err)))
	}

	table, err := o.store.Query(ctx, bounded)
	if err != nil {
		return nil, canonical, err
	}
	return table, canonical, nil
}
