package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/lumera-ai/lumera-engine/pkg/filters"
	"github.com/lumera-ai/lumera-engine/pkg/prompts"
	"github.com/lumera-ai/lumera-engine/pkg/textparse"
)

// extractFilters asks which filters the question implies over the selected
// columns and resolves categorical values against the warehouse. When the
// model output does not parse as a list, both the raw and matched strings
// carry it unchanged; that is a pass-through, not an error.
func (o *Orchestrator) extractFilters(ctx context.Context, log *zap.Logger, question, columnsBlock string) (raw, matched string) {
	resp, err := o.complete(ctx, prompts.FilterExtraction(question, columnsBlock))
	if err != nil {
		log.Warn("filter extraction completion failed", zap.Error(err))
		return "", `["no"]`
	}
	raw = strings.TrimSpace(resp)

	parsed := textparse.ParseNestedList(raw)
	if len(parsed) == 0 {
		return raw, raw
	}

	set := filters.FromParsed(parsed)
	set.Raw = raw
	if o.resolver != nil && set.Applies {
		set = o.resolver.Resolve(ctx, set)
	}
	matched = serializeFilterSet(set)
	log.Debug("filters resolved",
		zap.Bool("applies", set.Applies), zap.Int("entries", len(set.Entries)))
	return raw, matched
}
