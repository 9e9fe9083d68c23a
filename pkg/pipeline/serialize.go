package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lumera-ai/lumera-engine/pkg/datasource"
	"github.com/lumera-ai/lumera-engine/pkg/filters"
	"github.com/lumera-ai/lumera-engine/pkg/knowledge"
)

// emptyTableMarker is what the visualization prompts see in place of
// structure and sample when the result has no rows.
const emptyTableMarker = "EMPTY"

// serializeColumnRows renders the selected columns for the filter and SQL
// prompts, one "- table.column: description" line each.
func serializeColumnRows(rows []ColumnRow) string {
	if len(rows) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&b, "- %s.%s: %s\n", r.Table, r.Column, r.Description)
	}
	return b.String()
}

// serializeKnowledgeColumns renders one table's column list for the
// column-selection prompt.
func serializeKnowledgeColumns(t knowledge.Table) string {
	var b strings.Builder
	for _, c := range t.Columns {
		fmt.Fprintf(&b, "- %s: %s\n", c.Name, c.Description)
	}
	return b.String()
}

// serializeFilterSet renders a resolved filter set back into the list shape
// the SQL prompts expect: ["no"] or ["yes", [table, column, predicate], ...].
func serializeFilterSet(set filters.Set) string {
	if !set.Applies {
		return `["no"]`
	}
	items := make([]any, 0, len(set.Entries)+1)
	items = append(items, "yes")
	for _, e := range set.Entries {
		items = append(items, []any{e.Table, e.Column, e.Predicate})
	}
	b, err := json.Marshal(items)
	if err != nil {
		return set.Raw
	}
	return string(b)
}

// describeResult summarizes a result table for the visualization prompts:
// a column/type listing and a JSON sample of the leading rows. Both degrade
// to the EMPTY marker when there is nothing to show.
func describeResult(t *datasource.ResultTable, sampleRows int) (structure, sample string) {
	if t.Empty() {
		return emptyTableMarker, emptyTableMarker
	}

	var b strings.Builder
	for _, c := range t.Columns {
		fmt.Fprintf(&b, "%s: %s\n", c.Name, c.Type)
	}
	fmt.Fprintf(&b, "(%d rows)\n", t.RowCount)
	structure = b.String()

	head, err := json.Marshal(t.Head(sampleRows))
	if err != nil {
		return structure, emptyTableMarker
	}
	return structure, string(head)
}
