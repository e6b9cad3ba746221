package output

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/dshills/mender/internal/resolve"
)

// MarkdownWriter outputs a markdown report suitable for a PR comment or wiki page.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, report *resolve.Report) error {
	ew := &errWriter{w: w}
	s := report.Summary

	ew.printf("## mender resolutions\n\n")

	ew.printf("| Outcome | Count |\n")
	ew.printf("|---------|-------|\n")
	ew.printf("| Cached | %d |\n", s.Hits)
	ew.printf("| New | %d |\n", s.Resolved)
	ew.printf("| Unresolved | %d |\n", s.Unresolved)
	ew.printf("| Failed | %d |\n", s.Failed)
	if s.Suppressed > 0 {
		ew.printf("| Suppressed | %d |\n", s.Suppressed)
	}
	ew.printf("| **Groups** | **%d** |\n\n", s.Groups)

	if len(report.Results) == 0 {
		ew.println("Nothing to report. :white_check_mark:")
		return ew.err
	}

	// One collapsible section per file, in result order.
	var current string
	for _, r := range report.Results {
		if r.Filename != current {
			if current != "" {
				ew.printf("</details>\n\n")
			}
			current = r.Filename
			ew.printf("<details>\n<summary><code>%s</code> (%d)</summary>\n\n", r.Filename, countFile(report.Results, r.Filename))
		}

		ew.printf("### `%s:%d`\n\n", r.Filename, r.Pos)
		for _, line := range strings.Split(r.Message, "\n") {
			ew.printf("- %s\n", line)
		}
		ew.println("")

		switch {
		case strings.TrimSpace(r.Resolution) == "":
			ew.printf("_No resolution._\n\n")
		case strings.Contains(r.Resolution, "```"):
			ew.printf("%s\n\n", strings.TrimSpace(r.Resolution))
		case looksLikeCode(r.Resolution):
			ew.printf("```%s\n%s\n```\n\n", inferLang(r.Filename), strings.TrimSpace(r.Resolution))
		default:
			ew.printf("> %s\n\n", strings.ReplaceAll(strings.TrimSpace(r.Resolution), "\n", "\n> "))
		}
		ew.printf("---\n\n")
	}
	ew.printf("</details>\n\n")

	ew.printf("*Resolved in %dms (resolver: %dms)*\n", report.Timing.TotalMs, report.Timing.ResolverMs)
	return ew.err
}

func countFile(results []resolve.Output, file string) int {
	var n int
	for _, r := range results {
		if r.Filename == file {
			n++
		}
	}
	return n
}

func looksLikeCode(s string) bool {
	codeIndicators := []string{
		"#include", "#define", "->", "::", "==", "();", "{\n", "}\n",
		"std::", "nullptr", "return ",
	}
	for _, indicator := range codeIndicators {
		if strings.Contains(s, indicator) {
			return true
		}
	}
	return false
}

func inferLang(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".c", ".h":
		return "c"
	case ".cc", ".cpp", ".cxx", ".hh", ".hpp", ".hxx", ".inl":
		return "cpp"
	case ".go":
		return "go"
	case ".py":
		return "python"
	case ".rs":
		return "rust"
	case ".java":
		return "java"
	default:
		return ""
	}
}
