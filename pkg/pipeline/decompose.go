package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/lumera-ai/lumera-engine/pkg/prompts"
	"github.com/lumera-ai/lumera-engine/pkg/textparse"
)

// decompose splits the question into subquestions bound to tables, then
// selects the relevant columns of each assigned table. Subquestions naming
// tables the knowledgebase cannot canonicalize are dropped; the column rows
// are deduplicated preserving first occurrence.
func (o *Orchestrator) decompose(ctx context.Context, log *zap.Logger, question string, tables []string) ([]Subquestion, []ColumnRow) {
	descriptions := o.kb.Descriptions(tables)

	resp, err := o.complete(ctx, prompts.Subquestion(question, descriptions))
	if err != nil {
		log.Warn("subquestion completion failed", zap.Error(err))
		return nil, nil
	}

	var subqs []Subquestion
	var rows []ColumnRow
	for _, pair := range textparse.NormalizePairs(textparse.ParseNestedList(resp)) {
		subq, rawTable := pair[0], pair[1]
		canonical, ok := o.kb.Canonicalize(rawTable)
		if !ok {
			log.Debug("dropping subquestion with unresolved table",
				zap.String("table", rawTable), zap.String("subquestion", subq))
			continue
		}
		subqs = append(subqs, Subquestion{Question: subq, Table: canonical})
		rows = append(rows, o.selectColumns(ctx, log, question, subq, canonical)...)
	}
	return subqs, dedupeColumnRows(rows)
}

// selectColumns asks for the columns of one table relevant to a subquestion.
func (o *Orchestrator) selectColumns(ctx context.Context, log *zap.Logger, question, subquestion, table string) []ColumnRow {
	schema, ok := o.kb.Table(table)
	if !ok {
		return nil
	}

	resp, err := o.complete(ctx, prompts.ColumnSelection(question, subquestion, serializeKnowledgeColumns(schema)))
	if err != nil {
		log.Warn("column selection completion failed",
			zap.String("table", table), zap.Error(err))
		return nil
	}

	var rows []ColumnRow
	for _, pair := range textparse.NormalizePairs(textparse.ParseNestedList(resp)) {
		rows = append(rows, ColumnRow{Table: table, Column: pair[0], Description: pair[1]})
	}
	return rows
}

// dedupeColumnRows removes exact duplicate rows preserving first-occurrence
// order. Applying it twice yields the same result as applying it once.
func dedupeColumnRows(rows []ColumnRow) []ColumnRow {
	seen := make(map[ColumnRow]bool, len(rows))
	out := make([]ColumnRow, 0, len(rows))
	for _, r := range rows {
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}
