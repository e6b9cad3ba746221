package resolve

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are an expert C and C++ engineer helping a developer fix issues reported by a static analyzer.

For the reported line you are given the analyzer messages and, usually, the surrounding source.

Rules:
1. Explain the root cause in one or two sentences.
2. Give a concrete fix. Show the corrected line or lines as code when that helps.
3. If the report looks like a false positive, say so and explain why.
4. Only discuss the reported line and code that directly affects it.
5. Plain text only. No preamble and no closing remarks.`

// SystemPrompt returns the system prompt sent with every query.
func SystemPrompt() string {
	return systemPrompt
}

// BuildPrompt renders q as the user prompt. Source lines are numbered and the
// reported line is marked with ">>".
func BuildPrompt(q Query) string {
	var b strings.Builder
	fmt.Fprintf(&b, "File: %s\nLine: %d\n\n", q.File, q.Line)
	b.WriteString("Analyzer findings:\n")
	b.WriteString(q.Message)
	b.WriteString("\n")

	if len(q.Context) == 0 {
		b.WriteString("\nSource is not available for this file.\n")
		return b.String()
	}

	first := q.Line - q.Offset
	width := len(fmt.Sprint(first + len(q.Context) - 1))
	b.WriteString("\n--- BEGIN SOURCE ---\n")
	for i, line := range q.Context {
		marker := "  "
		if i == q.Offset {
			marker = ">>"
		}
		fmt.Fprintf(&b, "%s %*d | %s\n", marker, width, first+i, line)
	}
	b.WriteString("--- END SOURCE ---\n")
	return b.String()
}
