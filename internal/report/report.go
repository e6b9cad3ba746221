package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/dshills/mender/internal/finding"
)

// Schema lists the columns of a checker table in the order they appear.
// Column names match the `col` tags on finding.Finding.
type Schema struct {
	Columns []string
}

// DefaultSchema matches the checker's --detailSection=filename|line|id|message| output.
var DefaultSchema = Schema{Columns: []string{"filename", "line", "id", "message"}}

// Validate checks that every column binds to a Finding field and that the
// location columns are present.
func (s Schema) Validate() error {
	if len(s.Columns) == 0 {
		return fmt.Errorf("schema has no columns")
	}
	seen := make(map[string]bool, len(s.Columns))
	for _, c := range s.Columns {
		if _, ok := fieldIndex[c]; !ok {
			return fmt.Errorf("unknown column %q", c)
		}
		if seen[c] {
			return fmt.Errorf("duplicate column %q", c)
		}
		seen[c] = true
	}
	for _, required := range []string{"filename", "line"} {
		if !seen[required] {
			return fmt.Errorf("schema must include %q", required)
		}
	}
	return nil
}

// fieldIndex maps a col tag to its field index in finding.Finding.
var fieldIndex = func() map[string]int {
	m := make(map[string]int)
	t := reflect.TypeOf(finding.Finding{})
	for i := 0; i < t.NumField(); i++ {
		if tag := t.Field(i).Tag.Get("col"); tag != "" {
			m[tag] = i
		}
	}
	return m
}()

// Parse reads a pipe-separated table from r. Header rows, separator rows and
// rows whose line cell is not a number are skipped.
func Parse(r io.Reader, schema Schema) ([]finding.Finding, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	var out []finding.Finding
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		f, ok := ParseRow(sc.Text(), schema)
		if ok {
			out = append(out, f)
		}
	}
	if err := sc.Err(); err != nil {
		return out, fmt.Errorf("reading report: %w", err)
	}
	return out, nil
}

// ParseLines is Parse over lines already split, as returned by checker.Run.
func ParseLines(lines []string, schema Schema) ([]finding.Finding, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	var out []finding.Finding
	for _, line := range lines {
		if f, ok := ParseRow(line, schema); ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// ParseRow binds one table row to a Finding. Cells beyond the schema are
// joined back into the last column with "|".
func ParseRow(line string, schema Schema) (finding.Finding, bool) {
	cells := splitRow(line)
	n := len(schema.Columns)
	if len(cells) < n {
		return finding.Finding{}, false
	}
	if len(cells) > n {
		cells = append(cells[:n-1], strings.Join(cells[n-1:], "|"))
	}
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	if cells[0] == schema.Columns[0] || isSeparatorRow(cells) {
		return finding.Finding{}, false
	}

	var f finding.Finding
	v := reflect.ValueOf(&f).Elem()
	for i, col := range schema.Columns {
		field := v.Field(fieldIndex[col])
		switch field.Kind() {
		case reflect.Int:
			n, err := strconv.Atoi(cells[i])
			if err != nil {
				return finding.Finding{}, false
			}
			field.SetInt(int64(n))
		case reflect.String:
			field.SetString(cells[i])
		}
	}
	return f, true
}

// splitRow splits on "|", dropping one leading and one trailing pipe.
func splitRow(line string) []string {
	line = strings.TrimSpace(strings.TrimRight(line, "\r"))
	if line == "" {
		return nil
	}
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	return strings.Split(line, "|")
}

func isSeparatorRow(cells []string) bool {
	for _, c := range cells {
		c = strings.Trim(c, ":")
		if c == "" || strings.Trim(c, "-") != "" {
			return false
		}
	}
	return true
}

// ReadFile loads findings from a saved report. Files ending in .json are
// decoded with ParseJSON; anything else is treated as a table.
func ReadFile(path string, schema Schema) ([]finding.Finding, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading report: %w", err)
		}
		return ParseJSON(data)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	defer f.Close()
	return Parse(f, schema)
}
