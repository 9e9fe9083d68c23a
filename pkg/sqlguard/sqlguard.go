// Package sqlguard validates generated SQL before it reaches the warehouse:
// only single read-only statements pass, and executed copies get a row cap.
package sqlguard

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/lumera-ai/lumera-engine/pkg/datasource"
)

var (
	// ErrMultipleStatements indicates the query contains multiple SQL statements.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")

	// ErrNotReadOnly indicates the statement is not a SELECT or a pure-SELECT CTE.
	ErrNotReadOnly = errors.New("only SELECT statements are permitted")

	// ErrEmptyStatement indicates there was no SQL to validate.
	ErrEmptyStatement = errors.New("empty SQL statement")
)

// modifyingCTEPattern matches CTEs that contain data-modifying operations.
// Example: WITH deleted AS (DELETE FROM ...) SELECT * FROM deleted
var modifyingCTEPattern = regexp.MustCompile(`(?i)\bAS\s*\(\s*(INSERT|UPDATE|DELETE|MERGE)\b`)

// trailingLimitPattern matches an existing row bound at the end of a statement,
// either LIMIT n or the standard FETCH FIRST/NEXT n ROWS ONLY form.
var trailingLimitPattern = regexp.MustCompile(`(?i)(\bLIMIT\s+\d+(\s+OFFSET\s+\d+)?|\bFETCH\s+(FIRST|NEXT)\s+\d+\s+ROWS?\s+ONLY)\s*;?\s*$`)

// Normalize strips the trailing semicolon and verifies the statement is a
// single read-only SELECT or CTE. It returns the normalized SQL.
//
// The validation order is:
//  1. Strip trailing semicolon and whitespace
//  2. Reject remaining semicolons outside string literals (multiple statements)
//  3. Reject anything that is not SELECT or a pure-SELECT WITH clause
func Normalize(sqlQuery string) (string, error) {
	sqlQuery = strings.TrimSpace(sqlQuery)
	if sqlQuery == "" {
		return "", ErrEmptyStatement
	}

	normalized := stripTrailingSemicolon(sqlQuery)

	if hasSemicolonOutsideStrings(normalized) {
		return "", ErrMultipleStatements
	}

	upper := strings.ToUpper(strings.TrimSpace(normalized))
	switch {
	case strings.HasPrefix(upper, "SELECT"):
	case strings.HasPrefix(upper, "WITH"):
		// A WITH clause may hide a data-modifying CTE:
		// WITH deleted AS (DELETE FROM t RETURNING *) SELECT * FROM deleted
		if modifyingCTEPattern.MatchString(normalized) {
			return "", fmt.Errorf("%w: data-modifying CTE detected", ErrNotReadOnly)
		}
	default:
		keyword := upper
		if i := strings.IndexAny(keyword, " \t\n\r("); i > 0 {
			keyword = keyword[:i]
		}
		return "", fmt.Errorf("%w: got %s statement", ErrNotReadOnly, keyword)
	}

	return normalized, nil
}

// AppendLimit returns a copy of the statement bounded to at most n rows.
// Statements that already end in a LIMIT or FETCH clause are returned
// unchanged, as are non-positive bounds.
func AppendLimit(sqlQuery string, n int, dialect datasource.Dialect) string {
	if n <= 0 {
		return sqlQuery
	}
	trimmed := strings.TrimSpace(sqlQuery)
	if trailingLimitPattern.MatchString(trimmed) {
		return sqlQuery
	}

	switch dialect {
	case datasource.DialectSQLServer:
		return sqlServerLimit(trimmed, n)
	default:
		return fmt.Sprintf("%s\nLIMIT %d", trimmed, n)
	}
}

// sqlServerLimit bounds a T-SQL statement without wrapping it in a derived
// table: T-SQL forbids WITH inside a derived table and rejects a bare ORDER
// BY there, so wrapping would break exactly the CTE and ordered statements
// the generator emits. A statement ordered at the top level gets an
// OFFSET/FETCH clause; anything else gets TOP injected after the outermost
// SELECT. A statement already carrying a top-level TOP is returned unchanged.
func sqlServerLimit(sqlQuery string, n int) string {
	insert, hasTop := topInsertionPoint(sqlQuery)
	if hasTop || insert < 0 {
		return sqlQuery
	}
	if topLevelKeywordIndex(sqlQuery, "ORDER") >= 0 {
		return fmt.Sprintf("%s\nOFFSET 0 ROWS FETCH FIRST %d ROWS ONLY", sqlQuery, n)
	}
	return fmt.Sprintf("%s TOP (%d)%s", sqlQuery[:insert], n, sqlQuery[insert:])
}

// topInsertionPoint finds where a TOP clause belongs in the outermost
// SELECT: after the keyword and its ALL/DISTINCT qualifier when present.
// The boolean reports an existing TOP at that position.
func topInsertionPoint(sqlQuery string) (int, bool) {
	idx := topLevelKeywordIndex(sqlQuery, "SELECT")
	if idx < 0 {
		return -1, false
	}
	pos := idx + len("SELECT")
	if word, next := nextWord(sqlQuery, pos); word == "DISTINCT" || word == "ALL" {
		pos = next
	}
	word, _ := nextWord(sqlQuery, pos)
	return pos, word == "TOP"
}

// CheckFilterValue screens a resolved filter value for SQL injection
// patterns before it is offered to the generator as a literal.
func CheckFilterValue(value string) error {
	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if isSQLi {
		return fmt.Errorf("filter value %q matches injection fingerprint %s", value, string(fingerprint))
	}
	return nil
}

// hasSemicolonOutsideStrings returns true if the SQL contains any semicolon
// outside of string literals.
func hasSemicolonOutsideStrings(sqlQuery string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	state := stateNormal
	prevChar := rune(0)

	for _, char := range sqlQuery {
		switch state {
		case stateNormal:
			switch char {
			case ';':
				return true
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			}
		case stateSingleQuote:
			// Handle both backslash escape (\') and SQL standard escape ('').
			// A doubled quote exits and immediately re-enters on the next
			// quote, which keeps us inside the string.
			if char == '\'' && prevChar != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if char == '"' && prevChar != '\\' {
				state = stateNormal
			}
		}
		prevChar = char
	}

	return false
}

// topLevelKeywordIndex returns the index of the first occurrence of keyword
// at parenthesis depth zero outside string literals, or -1. CTE bodies,
// subqueries, and window clauses are parenthesized, so a depth-zero hit is
// part of the outermost statement.
func topLevelKeywordIndex(sqlQuery, keyword string) int {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	state := stateNormal
	depth := 0

	for i := 0; i < len(sqlQuery); i++ {
		c := sqlQuery[i]
		switch state {
		case stateNormal:
			switch c {
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			case '(':
				depth++
			case ')':
				if depth > 0 {
					depth--
				}
			default:
				if depth == 0 && matchKeywordAt(sqlQuery, i, keyword) {
					return i
				}
			}
		case stateSingleQuote:
			if c == '\'' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if c == '"' {
				state = stateNormal
			}
		}
	}
	return -1
}

// matchKeywordAt reports a case-insensitive match of keyword at position i
// with word boundaries on both sides.
func matchKeywordAt(s string, i int, keyword string) bool {
	if i+len(keyword) > len(s) {
		return false
	}
	if !strings.EqualFold(s[i:i+len(keyword)], keyword) {
		return false
	}
	if i > 0 && isWordByte(s[i-1]) {
		return false
	}
	if i+len(keyword) < len(s) && isWordByte(s[i+len(keyword)]) {
		return false
	}
	return true
}

// nextWord returns the upper-cased word starting at or after pos and the
// index just past it.
func nextWord(s string, pos int) (string, int) {
	for pos < len(s) && isSQLSpace(s[pos]) {
		pos++
	}
	start := pos
	for pos < len(s) && isWordByte(s[pos]) {
		pos++
	}
	return strings.ToUpper(s[start:pos]), pos
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isSQLSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// stripTrailingSemicolon removes a trailing semicolon and surrounding whitespace.
func stripTrailingSemicolon(sqlQuery string) string {
	sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")
	if strings.HasSuffix(sqlQuery, ";") {
		sqlQuery = strings.TrimSuffix(sqlQuery, ";")
		sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")
	}
	return sqlQuery
}
