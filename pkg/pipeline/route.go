package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/lumera-ai/lumera-engine/pkg/prompts"
	"github.com/lumera-ai/lumera-engine/pkg/textparse"
)

// route asks the router which groups can answer the question and expands
// them into an order-preserving, deduplicated table list. Anything that goes
// wrong (completion failure, unparseable output, unknown group names)
// degrades to the default group rather than an error.
func (o *Orchestrator) route(ctx context.Context, log *zap.Logger, question string) []string {
	groups := make([]prompts.Group, 0, len(o.cfg.Groups))
	byName := make(map[string]GroupDef, len(o.cfg.Groups))
	for _, g := range o.cfg.Groups {
		groups = append(groups, prompts.Group{Name: g.Name, Description: g.Description})
		byName[strings.ToLower(g.Name)] = g
	}

	var picked []string
	resp, err := o.complete(ctx, prompts.Router(question, groups))
	if err != nil {
		log.Warn("router completion failed", zap.Error(err))
	} else {
		for _, item := range textparse.ParseNestedList(resp) {
			name, ok := item.(string)
			if !ok {
				continue
			}
			picked = append(picked, strings.ToLower(strings.TrimSpace(name)))
		}
	}

	var tables []string
	for _, name := range picked {
		g, ok := byName[name]
		if !ok {
			log.Debug("router picked unknown group", zap.String("group", name))
			continue
		}
		tables = append(tables, g.Tables...)
	}
	if len(tables) == 0 {
		if g, ok := byName[strings.ToLower(o.cfg.DefaultGroup)]; ok {
			tables = append(tables, g.Tables...)
		}
		log.Info("routing fell back to default group",
			zap.String("group", o.cfg.DefaultGroup), zap.Strings("picked", picked))
	}
	return dedupeStrings(tables)
}

// dedupeStrings removes duplicates while preserving first-occurrence order.
func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
