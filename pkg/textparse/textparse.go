// Package textparse coerces free-form model output into typed values.
//
// Every parser in this package is best-effort: malformed input degrades to an
// empty value, never an error. The callers treat model text as untrusted and
// rely on this contract at each pipeline boundary.
package textparse

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ParseNestedList parses model output into a list of values.
// It tries strict JSON first, then a relaxed literal pass (single quotes,
// trailing commas, Python-style constants), then falls back to extracting the
// first balanced top-level bracket structure. Returns an empty slice when
// nothing parses.
func ParseNestedList(text string) []any {
	s := strings.TrimSpace(text)
	if s == "" {
		return []any{}
	}
	s = stripFences(s)

	if out, ok := tryJSONList(s); ok {
		return out
	}
	if out, ok := tryJSONList(relaxLiteral(s)); ok {
		return out
	}

	// Surrounding prose: scan for the first balanced [...] block and retry.
	if block, ok := extractBalanced(s, '[', ']'); ok {
		if out, ok := tryJSONList(block); ok {
			return out
		}
		if out, ok := tryJSONList(relaxLiteral(block)); ok {
			return out
		}
	}
	return []any{}
}

// NormalizePairs keeps entries that are sequences with at least two non-empty
// string-coercible fields, trimmed. Anything else is dropped.
func NormalizePairs(entries []any) [][2]string {
	out := make([][2]string, 0, len(entries))
	for _, e := range entries {
		seq, ok := e.([]any)
		if !ok || len(seq) < 2 {
			continue
		}
		first := strings.TrimSpace(coerceString(seq[0]))
		second := strings.TrimSpace(coerceString(seq[1]))
		if first == "" || second == "" {
			continue
		}
		out = append(out, [2]string{first, second})
	}
	return out
}

var (
	sqlFencePattern = regexp.MustCompile("(?is)```(?:\\s*sql)?\\s*(.*?)```")
	ctePattern      = regexp.MustCompile(`(?is)^\s*with\b`)
	selectPattern   = regexp.MustCompile(`(?is)\bselect\b.*`)
	anyFencePattern = regexp.MustCompile("(?s)```(.*?)```")
)

// ExtractSQL pulls a SQL statement out of model output. Preference order:
// a fenced sql block, a statement beginning with WITH (kept verbatim so the
// CTE stays intact), everything from the first SELECT onward, or the trimmed
// raw text.
func ExtractSQL(text string) string {
	s := strings.TrimSpace(text)
	if s == "" {
		return ""
	}
	if m := sqlFencePattern.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	if ctePattern.MatchString(s) {
		return s
	}
	if m := selectPattern.FindString(s); m != "" {
		return strings.TrimSpace(m)
	}
	return s
}

// ExtractCodeBlock extracts code fenced with the given language tag. Falls
// back to the first fenced block of any language, then to the raw content
// with fence markers stripped.
func ExtractCodeBlock(content, language string) string {
	if content == "" {
		return ""
	}
	langPattern := regexp.MustCompile("(?is)```(?:\\s*" + regexp.QuoteMeta(language) + ")\\s*\\n?(.*?)```")
	if m := langPattern.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := anyFencePattern.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(stripLanguageTag(m[1]))
	}
	return strings.TrimSpace(strings.ReplaceAll(content, "```", ""))
}

// stripLanguageTag drops a leading language identifier line from a fenced
// block captured without its tag ("go\ncode..." -> "code...").
func stripLanguageTag(block string) string {
	trimmed := strings.TrimLeft(block, " \t")
	if idx := strings.IndexByte(trimmed, '\n'); idx > 0 {
		first := strings.TrimSpace(trimmed[:idx])
		if first != "" && !strings.ContainsAny(first, " \t({=:") {
			return trimmed[idx+1:]
		}
	}
	return block
}

// stripFences removes markdown code fences so fenced JSON parses directly.
func stripFences(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	if m := anyFencePattern.FindStringSubmatch(s); m != nil {
		inner := strings.TrimSpace(stripLanguageTag(m[1]))
		if inner != "" {
			return inner
		}
	}
	return strings.ReplaceAll(s, "```", "")
}

func tryJSONList(s string) ([]any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	return list, true
}

func coerceString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		b, _ := json.Marshal(t)
		return string(b)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case nil:
		return ""
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// relaxLiteral rewrites common Python-literal habits into JSON: single-quoted
// strings, trailing commas, and the None/True/False constants. The rewrite is
// character-wise so quotes inside strings survive.
func relaxLiteral(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	const (
		stateNormal = iota
		stateSingle
		stateDouble
	)
	state := stateNormal
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch state {
		case stateNormal:
			switch c {
			case '\'':
				state = stateSingle
				b.WriteByte('"')
			case '"':
				state = stateDouble
				b.WriteByte('"')
			case ',':
				// Drop a trailing comma before a closing bracket.
				if next := nextNonSpace(s, i+1); next == ']' || next == '}' {
					continue
				}
				b.WriteByte(c)
			default:
				// Bare Python constants.
				if rest := s[i:]; hasWordPrefix(rest, "None") {
					b.WriteString("null")
					i += 3
				} else if hasWordPrefix(rest, "True") {
					b.WriteString("true")
					i += 3
				} else if hasWordPrefix(rest, "False") {
					b.WriteString("false")
					i += 4
				} else {
					b.WriteByte(c)
				}
			}
		case stateSingle:
			if escaped {
				escaped = false
				if c == '\'' {
					b.WriteByte('\'')
				} else {
					b.WriteByte('\\')
					b.WriteByte(c)
				}
				continue
			}
			switch c {
			case '\\':
				escaped = true
			case '\'':
				state = stateNormal
				b.WriteByte('"')
			case '"':
				b.WriteString(`\"`)
			default:
				b.WriteByte(c)
			}
		case stateDouble:
			if escaped {
				escaped = false
				b.WriteByte('\\')
				b.WriteByte(c)
				continue
			}
			switch c {
			case '\\':
				escaped = true
			case '"':
				state = stateNormal
				b.WriteByte('"')
			default:
				b.WriteByte(c)
			}
		}
	}
	return b.String()
}

func nextNonSpace(s string, from int) byte {
	for i := from; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return s[i]
		}
	}
	return 0
}

func hasWordPrefix(s, word string) bool {
	if !strings.HasPrefix(s, word) {
		return false
	}
	if len(s) == len(word) {
		return true
	}
	next := s[len(word)]
	return next == ',' || next == ']' || next == '}' || next == ' ' || next == '\t' || next == '\n' || next == '\r'
}

// extractBalanced finds the first balanced structure opened by openChar,
// counting depth and skipping over string literals.
func extractBalanced(s string, openChar, closeChar byte) (string, bool) {
	start := strings.IndexByte(s, openChar)
	if start == -1 {
		return "", false
	}

	depth := 0
	var quote byte
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if quote != 0 {
			if escaped {
				escaped = false
				continue
			}
			switch c {
			case '\\':
				escaped = true
			case quote:
				quote = 0
			}
			continue
		}

		switch c {
		case '\'', '"':
			quote = c
		case openChar:
			depth++
		case closeChar:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
