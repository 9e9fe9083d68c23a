// Package prompts builds the completion requests for every pipeline stage:
// routing, subquestion decomposition, column selection, filter extraction,
// SQL generation/review/repair, and visualization recommendation/generation.
package prompts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lumera-ai/lumera-engine/pkg/datasource"
	"github.com/lumera-ai/lumera-engine/pkg/llm"
)

// Group describes one routing group for the router prompt.
type Group struct {
	Name        string
	Description string
}

// Router builds the prompt that picks which table groups can answer the
// question. The response contract is a bare list of group name strings.
func Router(question string, groups []Group) llm.Request {
	system := `You are an intelligent router in a text-to-SQL system. You understand the user question and determine which groups might have the answer based on each group description. Multiple groups might answer a given question.
OUTPUT MUST BE a JSON array of group name strings, e.g. ["customer", "orders"].
Do not give any explanation or other verbose output.`

	var user strings.Builder
	user.WriteString("Below are descriptions of the available groups.\n")
	for _, g := range groups {
		user.WriteString(fmt.Sprintf("%s group: %s\n", g.Name, g.Description))
	}
	user.WriteString(`
STEP BY STEP GROUP SELECTION PROCESS:
- Split the question into different subquestions.
- For each subquestion, go through every group description and decide which group might answer it.
- Collect all groups that together can answer the whole question into one list of strings.
- If two groups can answer, output e.g. ["customer", "orders"] without any other text.
- If only one group applies, output a one-element list, e.g. ["customer"].

User question:
`)
	user.WriteString(question)
	user.WriteString("\n")

	return llm.Request{System: system, User: user.String()}
}

// Subquestion builds the decomposition prompt: split the question into
// minimal subquestions, each assigned to exactly one best table.
func Subquestion(question string, tableDescriptions map[string]string) llm.Request {
	system := `You are an intelligent subquestion generator inside a text-to-SQL agent. You create subquestions from the user question and assign each to the single best table.

STRICT OUTPUT CONTRACT:
- Return ONLY a JSON array (no backticks, no markdown, no extra text).
- Each element MUST be a 2-item array: ["<subquestion>", "<table_name>"].
- Do NOT group multiple subquestions into one element. If multiple subquestions map to the same table, emit multiple 2-item elements that reuse that table.
- Use double quotes for all strings.
- If no valid subquestions exist, return [].

LINKING MINDSET:
You may choose a table even if it cannot independently answer a subquestion, as long as it serves as a join link to another chosen table. Aim to select the single best table for each subquestion while keeping potential links in mind.`

	var user strings.Builder
	user.WriteString(`You are given a user question and a list of table names with descriptions.

Your task:
1. Break the user question into minimal, precise subquestions that cover distinct parts of the requested information.
2. For each subquestion, identify the single best table whose description clearly shows it contains the needed information.
3. Exclude any subquestion that cannot be answered using the provided tables.
4. If multiple tables could answer a subquestion, select the most appropriate one based on the descriptions.
5. Be specific and avoid redundancy.

Table list:
`)
	user.WriteString(serializeDescriptions(tableDescriptions))
	user.WriteString("\nUser question:\n")
	user.WriteString(question)
	user.WriteString("\n")

	return llm.Request{System: system, User: user.String()}
}

// ColumnSelection builds the prompt that picks relevant columns of one table
// for a subquestion, with the overall question as secondary context.
func ColumnSelection(mainQuestion, subquestion, columns string) llm.Request {
	system := `You are an intelligent column selector that chooses the most relevant columns from a list of column descriptions to answer a subquestion. Your selections feed a SQL generation agent, so choose only the columns needed to write correct SQL.

HOW TO THINK STEP BY STEP:
- For each column in the list, decide whether it helps answer the subquestion based on its description. If not, check whether it helps answer any part of the main question.
- There can be critical dependencies between columns: totals need identifiers, multi-row facts must be combined.
- Include supporting columns that define or group the main entity (e.g. an order identifier when order-level info is asked).
- Process the subquestion completely before consulting the main question for extra columns.

RULES:
1. ALWAYS include unique identifiers related to the entity being queried.
2. When a value depends on multiple rows, include every column required to calculate or group that metric.
3. Output MUST be a JSON array of pairs: [["<column name>", "<description and how it is used>"], ...] with each inner array of length 2. No other text.`

	var user strings.Builder
	user.WriteString("Column list:\n")
	user.WriteString(columns)
	user.WriteString("\n\nSubquestion:\n")
	user.WriteString(subquestion)
	user.WriteString("\n\nMain question:\n")
	user.WriteString(mainQuestion)
	user.WriteString("\n")

	return llm.Request{System: system, User: user.String()}
}

// FilterExtraction builds the prompt that asks which filters the question
// implies over the already-selected columns.
func FilterExtraction(question, columns string) llm.Request {
	system := `You help a text-to-SQL agent decide WHAT filters are implied by a user's question.
Return a STRICT JSON array:
- If no filter: ["no"]
- If filters exist: ["yes", ["<table>", "<column>", "<predicate>"], ...]
Where <predicate> is one of:
  - simple equality for categorical columns, e.g. "credit_card", "SP", "delivered"
  - numerical or date conditions, e.g. ">= 5", "< 100", "between 2017-01-01 and 2017-01-31", "after 2018-10-01", "before 2018-10-01"
Rules:
- Include only filters that truly narrow the dataset (location, status, type, date ranges, numeric thresholds).
- Prefer equality for categorical values; use ranges for dates and numbers.
- Return categorical predicates exactly as they appear in the user's natural language. Do NOT abbreviate or translate; a downstream matching stage normalizes values to what is stored in the database.
Return ONLY the JSON array, no prose.`

	var user strings.Builder
	user.WriteString("User question:\n")
	user.WriteString(question)
	user.WriteString("\n\nAvailable tables and columns (with descriptions):\n")
	user.WriteString(columns)
	user.WriteString("\n")

	return llm.Request{System: system, User: user.String()}
}

// SQLGenerate builds the SQL generation prompt for the store's dialect.
func SQLGenerate(question, columns, filters string, dialect datasource.Dialect) llm.Request {
	var system strings.Builder
	system.WriteString(fmt.Sprintf("You are an intelligent %s SQL query generator.\n\n", dialectName(dialect)))
	system.WriteString(`STRICT OUTPUT CONTRACT:
- Return ONLY a single SQL query as plain text. No prose, no explanations, no markdown fences.
- The output MUST be a single syntactically valid statement. If you use a CTE, include the full WITH <name> AS (...) and close all parentheses.
- Do NOT include any leading commentary such as "Assuming...".

SCHEMA COMPLIANCE:
- Prefer the tables and columns listed under "Relevant tables and columns".
- If a standard join key is obviously required to connect the listed tables but is missing from the list, you may include it to produce a correct query.
- Do not introduce unrelated tables or columns.

FILTERS:
- Apply exactly the predicates given under "Applicable filters". Treat them literally (e.g. "between 2017-01-01 and 2017-01-31", ">= 5", "delivered").
- Translate relative dates like "last month" or "this year" into ranges using the current date functions of the dialect.

AGGREGATION & DISTINCT:
- When counting logical entities that can repeat across rows, use COUNT(DISTINCT <entity_id>) to match the user's intent.

STYLE & SAFETY:
- Use meaningful, short aliases; never SQL reserved words as aliases.
- Prefer CTEs for readability when the query is complex, fully defined and referenced.
- Do NOT use backticks.
`)
	system.WriteString(dialectHints(dialect))

	var user strings.Builder
	user.WriteString("User question:\n")
	user.WriteString(question)
	user.WriteString("\n\nRelevant tables and columns:\n")
	user.WriteString(columns)
	user.WriteString("\n\nApplicable filters:\n")
	user.WriteString(filters)
	user.WriteString("\n")

	return llm.Request{System: system.String(), User: user.String()}
}

// SQLReview builds the one-shot review pass that may return the statement
// unchanged if it is already correct.
func SQLReview(question, columns, filters, sqlQuery string, dialect datasource.Dialect) llm.Request {
	var system strings.Builder
	system.WriteString(fmt.Sprintf("You are a highly capable and precise %s SQL query validator and fixer.\n\n", dialectName(dialect)))
	system.WriteString(`STRICT OUTPUT CONTRACT:
- Return ONLY a single corrected SQL query as plain text. No prose, no explanations, no markdown fences.
- If the provided query is fully correct, return it UNCHANGED (still SQL only).
- If a CTE alias is referenced, ensure the CTE is fully declared with WITH <name> AS (...) and parentheses balanced. Fix dangling parentheses or undefined aliases.

SCHEMA & INPUT COMPLIANCE:
- Prefer the tables and columns listed under "Relevant tables and columns".
- Keep standard join keys that are obviously required to connect the provided tables, even if unlisted.
- Do NOT introduce unrelated tables or columns.
- Apply "Applicable filters" exactly as given; do not add or remove filters.

COLUMN & ALIAS POLICY:
- Ensure required identifiers, grouping keys, and metric columns are present and used correctly.
- Keep SELECT minimal; do not use reserved words as aliases.

AGGREGATION & DISTINCT:
- Prefer COUNT(DISTINCT <entity_id>) when counting entities that repeat across rows; rewrite if needed.
`)
	system.WriteString(dialectHints(dialect))

	var user strings.Builder
	user.WriteString("User question:\n")
	user.WriteString(question)
	user.WriteString("\n\nRelevant tables and columns:\n")
	user.WriteString(columns)
	user.WriteString("\n\nApplicable filters:\n")
	user.WriteString(filters)
	user.WriteString("\n\nSQL query to validate:\n")
	user.WriteString(sqlQuery)
	user.WriteString("\n")

	return llm.Request{System: system.String(), User: user.String()}
}

// SQLRepair builds the repair prompt used inside the execute loop after a
// database error.
func SQLRepair(question, columns, filters, sqlQuery, errMsg string, dialect datasource.Dialect) llm.Request {
	var system strings.Builder
	system.WriteString(fmt.Sprintf("You are a precise %s SQL query fixer.\n\n", dialectName(dialect)))
	system.WriteString(`STRICT OUTPUT:
- Return ONLY a single corrected SQL SELECT statement. No prose, no markdown.

CONSTRAINTS:
- Use ONLY tables and columns implied by the provided context when present.
- Apply filters exactly when provided; do not invent or omit them.
- Avoid reserved words as aliases. Balance parentheses. If using CTEs, ensure full WITH clauses.
`)
	system.WriteString(dialectHints(dialect))

	var user strings.Builder
	user.WriteString("User question:\n")
	user.WriteString(question)
	user.WriteString("\n\nRelevant context (may be empty):\nColumns:\n")
	user.WriteString(columns)
	user.WriteString("\n\nFilters:\n")
	user.WriteString(filters)
	user.WriteString("\n\nCurrent SQL to fix:\n")
	user.WriteString(sqlQuery)
	user.WriteString("\n\nDatabase error message:\n")
	user.WriteString(errMsg)
	user.WriteString("\n")

	return llm.Request{System: system.String(), User: user.String()}
}

// VizRecommend builds the BI-expert prompt that recommends how to present
// the result table. Empty tables are signaled with the literal "EMPTY".
func VizRecommend(question, sqlQuery, structure, sample string) llm.Request {
	system := `You are a Business Intelligence expert specializing in data visualization. You receive a user question, the SQL query used, and the structure plus a small sample of the result table. Determine the most effective way to present the data.

Guidelines:
- Analyze the question and the result to pick the best presentation (chart or table).
- If the result contains a single value, suggest displaying it as a short labeled text.
- Maintain the exact column names as they appear in the query.
- Be concise and explicit about which columns map to each axis or to the table.

Output:
A concise plain-text recommendation. Specify whether a chart (bar, line, scatter, pie, histogram) or a table is more appropriate, and name the columns used for each axis when applicable.`

	var user strings.Builder
	user.WriteString("User question:\n")
	user.WriteString(question)
	user.WriteString("\n\nSQL query:\n")
	user.WriteString(sqlQuery)
	user.WriteString("\n\nData structure & types:\n")
	user.WriteString(structure)
	user.WriteString("\n\nSample data:\n")
	user.WriteString(sample)
	user.WriteString("\n")

	return llm.Request{System: system, User: user.String()}
}

// VizGenerate builds the prompt that produces Go visualization code runnable
// by the restricted interpreter.
func VizGenerate(structure, sample, request string) llm.Request {
	system := "You are an expert data visualization assistant writing Go statements against a small viz helper package. You receive the result rows (as the variable rows, a []map[string]any) and a visualization request.\n\n" +
		"CRITICAL RULES (read carefully):\n" +
		"- Use only the variable rows for the dataset. Do not reference any other state.\n" +
		"- Do not load files or connect to external services. No I/O of any kind.\n" +
		"- The code must define one and only one of the following outputs:\n" +
		"  1) chart - built with viz.NewChart(viz.ChartLine|viz.ChartBar|viz.ChartScatter|viz.ChartPie|viz.ChartHistogram, x, y) when a chart is appropriate, or\n" +
		"  2) tableView - built with viz.TableFromRows(rows, \"col1\", \"col2\", ...) when a table is best, or\n" +
		"  3) textResult - a short string when the result is a single value or message.\n" +
		"- Column access helpers: viz.Column(rows, \"name\") returns []any, viz.Strings(rows, \"name\") returns []string, viz.Numbers(rows, \"name\") returns []float64.\n" +
		"- Chart methods: .WithTitle(\"...\"), .WithLabels(\"x\", \"y\"), .AddSeries(\"name\", values).\n" +
		"- If rows is empty, set textResult explaining that there is no data to visualize.\n" +
		"- Keep axis labels and titles clear; use the query's column names as provided.\n" +
		"- Return ONLY the code inside a fenced block:\n```go\n...\n```\n\n" +
		"Example:\n```go\nchart := viz.NewChart(viz.ChartLine, viz.Column(rows, \"month\"), viz.Column(rows, \"total_sales\")).WithTitle(\"Monthly sales\").WithLabels(\"month\", \"total_sales\")\n```"

	var user strings.Builder
	user.WriteString("Result structure & types:\n")
	user.WriteString(structure)
	user.WriteString("\n\nSample data:\n")
	user.WriteString(sample)
	user.WriteString("\n\nRequested visualization:\n")
	user.WriteString(request)
	user.WriteString("\n")

	return llm.Request{System: system, User: user.String()}
}

// VizRepair builds the silent fixer prompt for broken visualization code.
func VizRepair(code, errMsg string) llm.Request {
	system := "You are a Go expert in data visualization focused on silently fixing errors.\n\n" +
		"Rules:\n" +
		"- Output ONLY the corrected Go code inside a ```go fenced block. No explanations.\n" +
		"- The corrected code must use only the variable rows as the dataset and the viz helper package (viz.NewChart, viz.TableFromRows, viz.Column, viz.Strings, viz.Numbers).\n" +
		"- It must define exactly one of: chart, tableView, or textResult.\n" +
		"- No file I/O and no network access.\n\n" +
		"Example outputs:\n```go\nchart := viz.NewChart(viz.ChartBar, viz.Column(rows, \"state\"), viz.Column(rows, \"order_count\"))\n```\n```go\ntextResult := \"Number of cities: \" + viz.Strings(rows, \"num_cities\")[0]\n```\n```go\ntableView := viz.TableFromRows(rows)\n```"

	var user strings.Builder
	user.WriteString("Code:\n```go\n")
	user.WriteString(code)
	user.WriteString("\n```\n\nError:\n")
	user.WriteString(errMsg)
	user.WriteString("\n")

	return llm.Request{System: system, User: user.String()}
}

// serializeDescriptions renders a name->description map with a stable order.
func serializeDescriptions(m map[string]string) string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(fmt.Sprintf("%s: %s\n", name, m[name]))
	}
	return b.String()
}

func dialectName(d datasource.Dialect) string {
	switch d {
	case datasource.DialectSQLServer:
		return "SQL Server"
	default:
		return "PostgreSQL"
	}
}

// dialectHints lists date and aggregation idioms for the target dialect.
func dialectHints(d datasource.Dialect) string {
	switch d {
	case datasource.DialectSQLServer:
		return `
DIALECT HINTS (SQL Server):
- Monthly bucket: FORMAT(ts, 'yyyy-MM') or DATEFROMPARTS(YEAR(ts), MONTH(ts), 1).
- String aggregation: STRING_AGG(expr, ',').
- Date math: DATEADD(<unit>, <n>, <ts>), DATEDIFF(<unit>, start, end).
- Row bounds: TOP (n) or OFFSET ... FETCH; LIMIT is not valid.
`
	default:
		return `
DIALECT HINTS (PostgreSQL):
- Monthly bucket: DATE_TRUNC('month', ts); label with TO_CHAR(ts, 'YYYY-MM').
- String aggregation: STRING_AGG(expr, ',' ORDER BY ...).
- Date math: ts + INTERVAL '7 days', AGE(end, start), EXTRACT(EPOCH FROM ...).
- Averages of intervals: EXTRACT(DAY FROM ...) or date subtraction for day counts.
`
	}
}
