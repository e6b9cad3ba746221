package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dshills/mender/internal/resolve"
)

// TextWriter outputs a human-readable text report.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, report *resolve.Report) error {
	ew := &errWriter{w: w}
	s := report.Summary

	ew.printf("mender resolve (run %s)\n", report.RunID)
	if len(report.Targets) > 0 {
		ew.printf("Targets: %s\n", strings.Join(report.Targets, ", "))
	}
	ew.println(strings.Repeat("─", 60))
	ew.printf("Results: %d of %d groups", len(report.Results), s.Groups)
	ew.printf(" (%d cached, %d new, %d unresolved, %d failed",
		s.Hits, s.Resolved, s.Unresolved, s.Failed)
	if s.Suppressed > 0 {
		ew.printf(", %d suppressed", s.Suppressed)
	}
	ew.println(")")
	ew.println(strings.Repeat("─", 60))

	if len(report.Results) == 0 {
		ew.println("\nNothing to report.")
		return ew.err
	}

	for _, r := range report.Results {
		ew.printf("\n%s:%d\n", r.Filename, r.Pos)
		for _, line := range strings.Split(r.Message, "\n") {
			ew.printf("  - %s\n", line)
		}
		if strings.TrimSpace(r.Resolution) == "" {
			ew.println("  (no resolution)")
			continue
		}
		ew.println("  Resolution:")
		for _, para := range strings.Split(r.Resolution, "\n") {
			if strings.TrimSpace(para) == "" {
				ew.println("")
				continue
			}
			for _, line := range wrapText(para, 70) {
				ew.printf("    %s\n", line)
			}
		}
	}

	ew.printf("\n%s\n", strings.Repeat("─", 60))
	ew.printf("Completed in %dms (resolver: %dms, %d calls)\n",
		report.Timing.TotalMs, report.Timing.ResolverMs, s.ResolverCalls)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

func wrapText(text string, width int) []string {
	if len(text) <= width {
		return []string{text}
	}
	var lines []string
	words := strings.Fields(text)
	var current strings.Builder
	for _, word := range words {
		if current.Len()+len(word)+1 > width && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
