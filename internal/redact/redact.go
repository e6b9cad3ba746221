package redact

import (
	"regexp"

	ignore "github.com/sabhiram/go-gitignore"
)

const placeholder = "[REDACTED]"

// secretPatterns are heuristics for secrets that show up in source snippets.
var secretPatterns = []*regexp.Regexp{
	// key = "value" style assignments
	regexp.MustCompile(`(?i)(api[_-]?key|apikey|api[_-]?secret)\s*[:=]\s*["']?([A-Za-z0-9/+=_-]{20,})["']?`),
	regexp.MustCompile(`(?i)(secret|token|password|passwd|credential)\s*[:=]\s*["']([^"']{8,})["']`),
	// C preprocessor constants: #define API_TOKEN "..."
	regexp.MustCompile(`(?i)#\s*define\s+\w*(key|secret|token|passw(or)?d)\w*\s+"[^"]{8,}"`),
	// AWS
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`(?i)(aws[_-]?secret[_-]?access[_-]?key)\s*[:=]\s*["']?([A-Za-z0-9/+=]{40})["']?`),
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9._-]{20,}`),
	// JWT
	regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`),
	regexp.MustCompile(`-----BEGIN\s+([A-Z]+\s+)?PRIVATE KEY-----`),
	// user:password@ in connection strings
	regexp.MustCompile(`[a-z][a-z0-9+.-]*://[^\s:/@"']+:[^\s@/"']+@`),
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`),
	regexp.MustCompile(`xox[bporas]-[A-Za-z0-9-]{10,}`),
	regexp.MustCompile(`sk-ant-[A-Za-z0-9_-]{20,}`),
	regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),
	regexp.MustCompile(`(?i)(key|secret|token)\s*[:=]\s*["']?[0-9a-f]{32,}["']?`),
}

// Secrets replaces detected secrets in text with [REDACTED].
func Secrets(text string) string {
	out, _ := count(text)
	return out
}

func count(text string) (string, int) {
	n := 0
	for _, pat := range secretPatterns {
		text = pat.ReplaceAllStringFunc(text, func(string) string {
			n++
			return placeholder
		})
	}
	return text, n
}

// Lines redacts each line independently and returns the new lines with the
// number of replacements made. The input slice is not modified.
func Lines(lines []string) ([]string, int) {
	out := make([]string, len(lines))
	total := 0
	for i, l := range lines {
		var n int
		out[i], n = count(l)
		total += n
	}
	return out, total
}

// PathPolicy withholds whole files whose paths match gitignore-style patterns.
type PathPolicy struct {
	matcher *ignore.GitIgnore
}

// NewPathPolicy compiles patterns. A nil or empty list matches nothing.
func NewPathPolicy(patterns []string) *PathPolicy {
	if len(patterns) == 0 {
		return &PathPolicy{}
	}
	return &PathPolicy{matcher: ignore.CompileIgnoreLines(patterns...)}
}

// Withhold reports whether content from path must not leave the machine.
func (p *PathPolicy) Withhold(path string) bool {
	return p != nil && p.matcher != nil && p.matcher.MatchesPath(path)
}

// Content returns the placeholder for withheld paths and secret-redacted
// content otherwise.
func (p *PathPolicy) Content(content, path string) string {
	if p.Withhold(path) {
		return placeholder + " (file content redacted by path policy)\n"
	}
	return Secrets(content)
}
