package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestMarkdownWriter_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := (&MarkdownWriter{}).Write(&buf, emptyReport()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "## mender resolutions") {
		t.Error("missing heading")
	}
	if !strings.Contains(out, "Nothing to report.") {
		t.Error("missing empty message")
	}
	if strings.Contains(out, "<details>") {
		t.Error("empty report should have no sections")
	}
}

func TestMarkdownWriter_WithResults(t *testing.T) {
	var buf bytes.Buffer
	if err := (&MarkdownWriter{}).Write(&buf, sampleReport()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"| Cached | 1 |",
		"| **Groups** | **3** |",
		"<summary><code>core/alloc.cpp</code> (2)</summary>",
		"<summary><code>net/socket.c</code> (1)</summary>",
		"### `core/alloc.cpp:42`",
		"- memory leak: buf",
		"> Free buf before returning.\n> Check the result of malloc.",
		"_No resolution._",
		"```c\nclose(fd);\nreturn -1;\n```",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if got := strings.Count(out, "<details>"); got != 2 {
		t.Errorf("<details> count = %d, want 2", got)
	}
	if got := strings.Count(out, "</details>"); got != 2 {
		t.Errorf("</details> count = %d, want 2", got)
	}
}

func TestInferLang(t *testing.T) {
	tests := map[string]string{
		"a.c":      "c",
		"a.H":      "c",
		"b.cpp":    "cpp",
		"b.hpp":    "cpp",
		"c.go":     "go",
		"Makefile": "",
	}
	for path, want := range tests {
		if got := inferLang(path); got != want {
			t.Errorf("inferLang(%q) = %q, want %q", path, got, want)
		}
	}
}
