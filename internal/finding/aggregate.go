package finding

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// AggregateOptions controls which findings survive aggregation.
type AggregateOptions struct {
	// Root is the directory finding paths are relative to.
	Root string
	// Exclude holds gitignore-style patterns matched against finding paths.
	Exclude []string
	// Only, when non-nil, restricts aggregation to these slash-separated
	// paths relative to Root.
	Only []string
	// Exists reports whether a path exists. Defaults to a regular-file stat.
	Exists func(path string) bool
}

// Index is the result of aggregation: file -> line -> Group.
type Index struct {
	files  []string
	groups map[string]map[int]*Group
	count  int
}

// Aggregate groups findings by file and line. Findings for files that do not
// exist under Root, that match an exclude pattern, or that are outside Only
// are dropped.
func Aggregate(findings []Finding, opts AggregateOptions) *Index {
	exists := opts.Exists
	if exists == nil {
		exists = fileExists
	}
	var excluded *ignore.GitIgnore
	if len(opts.Exclude) > 0 {
		excluded = ignore.CompileIgnoreLines(opts.Exclude...)
	}
	var only map[string]bool
	if opts.Only != nil {
		only = make(map[string]bool, len(opts.Only))
		for _, p := range opts.Only {
			only[filepath.ToSlash(filepath.Clean(p))] = true
		}
	}

	idx := &Index{groups: make(map[string]map[int]*Group)}
	for _, f := range findings {
		file, ok := relativeTo(opts.Root, f.File)
		if !ok || f.Line <= 0 {
			continue
		}
		if excluded != nil && excluded.MatchesPath(file) {
			continue
		}
		if only != nil && !only[file] {
			continue
		}
		if !exists(filepath.Join(opts.Root, file)) {
			continue
		}
		idx.add(file, f)
	}
	return idx
}

func (idx *Index) add(file string, f Finding) {
	lines, ok := idx.groups[file]
	if !ok {
		lines = make(map[int]*Group)
		idx.groups[file] = lines
		idx.files = append(idx.files, file)
	}
	g, ok := lines[f.Line]
	if !ok {
		g = newGroup(file, f.Line)
		lines[f.Line] = g
		idx.count++
	}
	g.add(f.CategoryID, f.Message)
}

// Files returns files in the order they were first reported.
func (idx *Index) Files() []string {
	return idx.files
}

// Lines returns the groups of one file keyed by line.
func (idx *Index) Lines(file string) map[int]*Group {
	return idx.groups[file]
}

// Group returns the group at file:line, or nil.
func (idx *Index) Group(file string, line int) *Group {
	return idx.groups[file][line]
}

// Len is the number of groups.
func (idx *Index) Len() int {
	return idx.count
}

// Groups returns every group sorted by file, then line.
func (idx *Index) Groups() []*Group {
	out := make([]*Group, 0, idx.count)
	for _, lines := range idx.groups {
		for _, g := range lines {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].Line < out[j].Line
	})
	return out
}

// relativeTo expresses path relative to root using forward slashes. Absolute
// paths outside root are rejected.
func relativeTo(root, path string) (string, bool) {
	if path == "" {
		return "", false
	}
	if filepath.IsAbs(path) {
		if root == "" {
			return filepath.ToSlash(path), true
		}
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return "", false
		}
		rel, err := filepath.Rel(absRoot, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", false
		}
		path = rel
	}
	return filepath.ToSlash(filepath.Clean(path)), true
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
