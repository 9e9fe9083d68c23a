// Package knowledge holds the schema knowledgebase: per-table descriptions
// and column specs produced offline and loaded once per process.
//
// The knowledgebase is read-only at run time and safe for concurrent reads.
package knowledge

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jinzhu/inflection"
	"gopkg.in/yaml.v3"

	"github.com/lumera-ai/lumera-engine/pkg/apperrors"
	"github.com/lumera-ai/lumera-engine/pkg/fuzzy"
)

// DefaultFuzzyThreshold is the minimum token-set score for a fuzzy
// table-name match during canonicalization.
const DefaultFuzzyThreshold = 80

// Column describes one column of a warehouse table.
type Column struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Table describes one warehouse table.
type Table struct {
	Description string   `yaml:"description"`
	Columns     []Column `yaml:"columns"`
}

// Base is the loaded knowledgebase plus the table-name alias map used for
// canonicalization.
type Base struct {
	tables         map[string]Table
	keys           []string
	aliases        map[string]string
	fuzzyThreshold int
}

// Load reads the knowledgebase from the first path that exists and parses.
// If every path fails, the returned error enumerates each attempted location
// so a misconfigured deployment is diagnosable from the startup log alone.
func Load(paths ...string) (*Base, error) {
	var attempts []string
	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			attempts = append(attempts, fmt.Sprintf("%s (%v)", path, err))
			continue
		}
		var tables map[string]Table
		if err := yaml.Unmarshal(data, &tables); err != nil {
			attempts = append(attempts, fmt.Sprintf("%s (parse: %v)", path, err))
			continue
		}
		if len(tables) == 0 {
			attempts = append(attempts, fmt.Sprintf("%s (empty knowledgebase)", path))
			continue
		}
		return New(tables), nil
	}
	return nil, fmt.Errorf("%w; attempted: %s", apperrors.ErrKnowledgebaseNotFound, strings.Join(attempts, "; "))
}

// New builds a Base from an in-memory table map.
func New(tables map[string]Table) *Base {
	keys := make([]string, 0, len(tables))
	for k := range tables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &Base{
		tables:         tables,
		keys:           keys,
		aliases:        map[string]string{},
		fuzzyThreshold: DefaultFuzzyThreshold,
	}
}

// SetAliases installs the alias map consulted first during canonicalization.
// Aliases pointing at unknown tables are ignored.
func (b *Base) SetAliases(aliases map[string]string) {
	b.aliases = make(map[string]string, len(aliases))
	for alias, target := range aliases {
		if _, ok := b.tables[target]; ok {
			b.aliases[normalizeName(alias)] = target
		}
	}
}

// SetFuzzyThreshold overrides the fuzzy-match cutoff (0-100).
func (b *Base) SetFuzzyThreshold(threshold int) {
	if threshold > 0 && threshold <= 100 {
		b.fuzzyThreshold = threshold
	}
}

// Table returns the schema entry for a canonical table name.
func (b *Base) Table(name string) (Table, bool) {
	t, ok := b.tables[name]
	return t, ok
}

// Keys returns the canonical table names in sorted order.
func (b *Base) Keys() []string {
	return b.keys
}

// Descriptions returns name -> description for the given tables, skipping
// names the knowledgebase does not know.
func (b *Base) Descriptions(tables []string) map[string]string {
	out := make(map[string]string, len(tables))
	for _, name := range tables {
		if t, ok := b.tables[name]; ok {
			out[name] = t.Description
		}
	}
	return out
}

// Canonicalize resolves a model-proposed table name to a knowledgebase key.
// The matchers run in order and the first hit wins: alias map, exact key,
// normalized key, singular/plural toggle, fuzzy best-match above the
// threshold. Returns false when nothing resolves; the caller drops the entry.
func (b *Base) Canonicalize(name string) (string, bool) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", false
	}
	norm := normalizeName(trimmed)

	for _, match := range []func() (string, bool){
		func() (string, bool) {
			target, ok := b.aliases[norm]
			return target, ok
		},
		func() (string, bool) {
			_, ok := b.tables[trimmed]
			return trimmed, ok
		},
		func() (string, bool) {
			_, ok := b.tables[norm]
			return norm, ok
		},
		func() (string, bool) {
			if singular := inflection.Singular(norm); singular != norm {
				if _, ok := b.tables[singular]; ok {
					return singular, true
				}
			}
			if plural := inflection.Plural(norm); plural != norm {
				if _, ok := b.tables[plural]; ok {
					return plural, true
				}
			}
			return "", false
		},
		func() (string, bool) {
			best, score := fuzzy.BestMatch(norm, b.keys)
			return best, score >= b.fuzzyThreshold
		},
	} {
		if key, ok := match(); ok {
			return key, true
		}
	}
	return "", false
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, " ", "_")
}
