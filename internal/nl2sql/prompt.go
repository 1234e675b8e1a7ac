package nl2sql

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chainquery/chainquery/internal/fewshot"
)

const sqlInstructions = `You are a crypto data analyst with deep experience in blockchain data analysis and SQL.
You are given a database schema, prior accepted examples, and a user question. Generate a single SQL query that answers the question.
The query must be read-only, efficient, and must not expose sensitive data.
If the question does not make sense for the schema, return the message "Please provide a more specific query".
If the question does not explicitly contain dates, assume the most recent date period that makes sense.
Add an explicit alias for every selected expression. Never return unnamed columns. An alias cannot be named "hash".

IMPORTANT: Return ONLY the SQL query text. Do NOT include markdown code blocks.
Do NOT wrap the query in any formatting. Return the raw SQL query only.`

// BuildSQLPrompt assembles the generation prompt from the schema text, the
// stored examples, and the user question. The pieces are concatenated, not
// run through a template engine, so brace and percent characters inside the
// serialized example JSON stay literal.
func BuildSQLPrompt(schema string, examples []fewshot.Example, question string) (string, error) {
	examplesJSON, err := json.MarshalIndent(examples, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal examples: %w", err)
	}

	var b strings.Builder
	b.WriteString(sqlInstructions)
	b.WriteString("\n\nDatabase schema:\n")
	b.WriteString(strings.TrimSpace(schema))
	b.WriteString("\n\nFew-shot examples (JSON):\n")
	b.Write(examplesJSON)
	b.WriteString("\n\nUser question:\n")
	b.WriteString(strings.TrimSpace(question))
	return b.String(), nil
}

const summaryInstructions = `You are a crypto data analyst. You are given a user question and the tabular result of the query that answered it.
Summarize the result, taking both the question and the rows into account.
Answer in natural language, no introduction sentence, specific and to the point.
If no date was specified in the question, note that the latest date period was assumed.`

// BuildSummaryPrompt renders the result as a compact text table below the
// question; the model never sees the raw typed values, only their display
// strings.
func BuildSummaryPrompt(req SummaryRequest) string {
	var b strings.Builder
	b.WriteString(summaryInstructions)
	b.WriteString("\n\nUser question:\n")
	b.WriteString(strings.TrimSpace(req.Question))
	b.WriteString("\n\nResult:\n")
	b.WriteString(strings.Join(req.Columns, " | "))
	for _, row := range req.Rows {
		b.WriteString("\n")
		b.WriteString(strings.Join(row, " | "))
	}
	return b.String()
}
