// Package filters resolves loosely-phrased categorical filter values against
// the distinct values that actually exist in the warehouse, handling accents,
// case, multi-value lists, and city/state abbreviation mismatches.
package filters

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"

	"github.com/lumera-ai/lumera-engine/pkg/datasource"
	"github.com/lumera-ai/lumera-engine/pkg/fuzzy"
	"github.com/lumera-ai/lumera-engine/pkg/sqlguard"
)

// Entry is one (table, column, predicate) filter triple.
type Entry struct {
	Table     string `json:"table"`
	Column    string `json:"column"`
	Predicate string `json:"predicate"`
}

// Set is the parsed filter-extraction output: whether any filters apply,
// the raw model text, and the triples in order.
type Set struct {
	Applies bool    `json:"applies"`
	Raw     string  `json:"raw,omitempty"`
	Entries []Entry `json:"entries,omitempty"`
}

// FromParsed normalizes the two accepted response shapes into a Set:
// ["no"], or ["yes", [table,column,predicate], ...] with the triples either
// flat or wrapped in one nested list. Malformed entries are dropped.
func FromParsed(items []any) Set {
	if len(items) == 0 {
		return Set{}
	}

	rest := items
	if head, ok := items[0].(string); ok {
		switch strings.ToLower(strings.TrimSpace(head)) {
		case "no":
			return Set{}
		case "yes":
			rest = items[1:]
		}
	}

	// A single nested list-of-triples unwraps to the flat shape.
	if len(rest) == 1 {
		if inner, ok := rest[0].([]any); ok && allLists(inner) {
			rest = inner
		}
	}

	var entries []Entry
	for _, item := range rest {
		triple, ok := item.([]any)
		if !ok || len(triple) < 3 {
			continue
		}
		e := Entry{
			Table:     asString(triple[0]),
			Column:    asString(triple[1]),
			Predicate: asString(triple[2]),
		}
		if e.Table == "" || e.Column == "" || e.Predicate == "" {
			continue
		}
		entries = append(entries, e)
	}

	return Set{Applies: len(entries) > 0, Entries: entries}
}

// DefaultMatchThreshold is the minimum token-set score for accepting a
// fuzzy match during value resolution.
const DefaultMatchThreshold = 60

// DefaultDistinctLimit bounds how many distinct values are fetched per column.
const DefaultDistinctLimit = 500

// numericDatePattern recognizes predicates that are comparisons, ranges, or
// dates. Those pass through resolution untouched.
var numericDatePattern = regexp.MustCompile(`(?i)(\bbetween\b|<=|>=|<|>|\bbefore\b|\bafter\b|\d{4}-\d{2}-\d{2})`)

// multiValueSplitPattern splits multi-valued predicates into independent values.
var multiValueSplitPattern = regexp.MustCompile(`(?i)\s*(?:,|;|\band\b|\bor\b)\s*`)

// abbreviationPattern matches short uppercase codes such as state abbreviations.
var abbreviationPattern = regexp.MustCompile(`^[A-Z]{1,3}$`)

// Config tunes the resolver.
type Config struct {
	// MatchThreshold is the minimum accepted similarity score (0-100).
	MatchThreshold int
	// DistinctLimit bounds distinct values fetched per column.
	DistinctLimit int
	// CacheTTL bounds how long distinct values are cached per column.
	CacheTTL time.Duration
	// RedirectTables names location tables whose *_city columns may be
	// redirected to the paired *_state column.
	RedirectTables []string
}

// Resolver matches filter predicates against column distinct values.
// Safe for concurrent use; the distinct-value cache may be populated
// redundantly under race without correctness loss.
type Resolver struct {
	store          datasource.Store
	cache          *ttlcache.Cache[string, []string]
	threshold      int
	distinctLimit  int
	redirectTables map[string]bool
	logger         *zap.Logger
}

// NewResolver creates a resolver backed by the given store.
func NewResolver(store datasource.Store, cfg Config, logger *zap.Logger) *Resolver {
	if cfg.MatchThreshold <= 0 {
		cfg.MatchThreshold = DefaultMatchThreshold
	}
	if cfg.DistinctLimit <= 0 {
		cfg.DistinctLimit = DefaultDistinctLimit
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}

	redirect := make(map[string]bool, len(cfg.RedirectTables))
	for _, t := range cfg.RedirectTables {
		redirect[strings.TrimSpace(strings.ToLower(t))] = true
	}

	cache := ttlcache.New[string, []string](
		ttlcache.WithTTL[string, []string](cfg.CacheTTL),
	)
	go cache.Start()

	return &Resolver{
		store:          store,
		cache:          cache,
		threshold:      cfg.MatchThreshold,
		distinctLimit:  cfg.DistinctLimit,
		redirectTables: redirect,
		logger:         logger.Named("filters"),
	}
}

// Close stops the cache janitor.
func (r *Resolver) Close() {
	r.cache.Stop()
}

// Resolve maps each entry's predicate onto values present in its column.
// Entries that cannot be resolved (unreachable store, no match above the
// threshold) pass through unchanged; Resolve never returns an error.
func (r *Resolver) Resolve(ctx context.Context, set Set) Set {
	if !set.Applies || len(set.Entries) == 0 {
		return set
	}

	resolved := make([]Entry, 0, len(set.Entries))
	for _, e := range set.Entries {
		resolved = append(resolved, r.resolveEntry(ctx, e))
	}
	return Set{Applies: true, Raw: set.Raw, Entries: resolved}
}

func (r *Resolver) resolveEntry(ctx context.Context, e Entry) Entry {
	predicate := strings.TrimSpace(e.Predicate)
	if predicate == "" {
		return e
	}

	// Comparisons, ranges, and dates are never fuzzy-matched.
	if numericDatePattern.MatchString(predicate) || !fuzzy.HasLetter(predicate) {
		return e
	}

	table := e.Table
	column := e.Column

	// City names asked against a *_city column often live in the paired
	// *_state column as abbreviations ("São Paulo" is stored as "SP").
	if r.redirectTables[strings.ToLower(table)] && strings.HasSuffix(column, "_city") {
		stateColumn := strings.TrimSuffix(column, "_city") + "_state"
		if stateValues, err := r.distinctValues(ctx, table, stateColumn); err == nil && len(abbreviationSubset(stateValues)) > 0 {
			initials := fuzzy.Initials(predicate)
			if initials != "" {
				r.logger.Debug("redirecting city filter to state column",
					zap.String("table", table),
					zap.String("from", column),
					zap.String("to", stateColumn),
					zap.String("initials", initials))
				column = stateColumn
				predicate = initials
			}
		}
	}

	values, err := r.distinctValues(ctx, table, column)
	if err != nil {
		r.logger.Warn("distinct values unavailable, passing filter through",
			zap.String("table", table),
			zap.String("column", column),
			zap.Error(err))
		return e
	}

	parts := splitMultiValue(predicate)
	matched := make([]string, 0, len(parts))
	for _, part := range parts {
		matched = append(matched, r.matchValue(part, values))
	}
	result := strings.Join(matched, ", ")

	if err := sqlguard.CheckFilterValue(result); err != nil {
		r.logger.Warn("resolved filter value failed injection screen, keeping original",
			zap.String("table", table),
			zap.String("column", column),
			zap.Error(err))
		return e
	}

	return Entry{Table: table, Column: column, Predicate: result}
}

// matchValue attempts four escalating passes, each only when the previous
// pass scored below the threshold: raw, accent-folded, fully normalized,
// and initials-vs-abbreviations.
func (r *Resolver) matchValue(value string, choices []string) string {
	if len(choices) == 0 {
		return value
	}

	best, score := fuzzy.BestMatch(value, choices)

	if score < r.threshold {
		if c, s := bestByTransform(value, choices, fuzzy.Fold); s > score {
			best, score = c, s
		}
	}
	if score < r.threshold {
		if c, s := bestByTransform(value, choices, fuzzy.NormalizeToken); s > score {
			best, score = c, s
		}
	}
	if score < r.threshold {
		initials := fuzzy.Initials(value)
		for _, choice := range abbreviationSubset(choices) {
			if strings.EqualFold(initials, choice) {
				best, score = choice, 100
				break
			}
		}
	}

	if score < r.threshold {
		return value
	}
	return best
}

func (r *Resolver) distinctValues(ctx context.Context, table, column string) ([]string, error) {
	key := table + "." + column
	if item := r.cache.Get(key); item != nil {
		return item.Value(), nil
	}

	values, err := r.store.DistinctValues(ctx, table, column, r.distinctLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch distinct values: %w", err)
	}
	r.cache.Set(key, values, ttlcache.DefaultTTL)
	return values, nil
}

// bestByTransform scores transformed copies but returns the original choice.
func bestByTransform(value string, choices []string, transform func(string) string) (string, int) {
	tv := transform(value)
	best := ""
	bestScore := 0
	for _, choice := range choices {
		if score := fuzzy.TokenSetRatio(tv, transform(choice)); score > bestScore {
			best = choice
			bestScore = score
		}
	}
	return best, bestScore
}

// abbreviationSubset returns the values that are 1-3 letter uppercase
// codes. A stray non-conforming value (a null placeholder, a spelled-out
// name) must not disable abbreviation matching for the rest.
func abbreviationSubset(values []string) []string {
	var out []string
	for _, v := range values {
		if abbreviationPattern.MatchString(strings.TrimSpace(v)) {
			out = append(out, v)
		}
	}
	return out
}

func splitMultiValue(predicate string) []string {
	parts := multiValueSplitPattern.Split(predicate, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{predicate}
	}
	return out
}

func allLists(items []any) bool {
	if len(items) == 0 {
		return false
	}
	for _, item := range items {
		if _, ok := item.([]any); !ok {
			return false
		}
	}
	return true
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", s))
	}
}
