package resolve

import "strings"

// SplitLines splits file content into lines. A trailing newline does not
// produce an empty last line and a trailing "\r" is dropped from each line.
func SplitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// Window returns the lines in [max(target-margin, 0), min(target+margin, len))
// and the position of target relative to the start of that range. target is a
// 0-based line index.
func Window(lines []string, target, margin int) ([]string, int) {
	start := max(target-margin, 0)
	end := min(target+margin, len(lines))
	if start > end {
		start = end
	}
	return lines[start:end], target - start
}
