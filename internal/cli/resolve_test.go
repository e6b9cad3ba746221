package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/mender/internal/providers"
	"github.com/dshills/mender/internal/resolve"
)

type stubProvider struct {
	mu      sync.Mutex
	answer  string
	prompts []string
}

func (s *stubProvider) Complete(_ context.Context, req providers.Request) (providers.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, req.Prompt)
	return providers.Response{Text: s.answer}, nil
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

const findingsTable = `| filename | line | id | message |
|---|---|---|---|
| src/alloc.cpp | 5 | leak | memory leak: buf |
| src/alloc.cpp | 5 | nullcheck | missing null check |
| src/net.cpp | 3 | unused | unused variable 'n' |
| src/gone.cpp | 1 | leak | file was deleted |
`

type project struct {
	target string
	report string
	out    string
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// newProject lays out a target tree, a saved checker report, and isolated
// config and cache directories.
func newProject(t *testing.T) project {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(tmp, "cache"))

	p := project{
		target: filepath.Join(tmp, "project"),
		report: filepath.Join(tmp, "findings.txt"),
		out:    filepath.Join(tmp, "out.json"),
	}

	var alloc strings.Builder
	for i := 1; i <= 30; i++ {
		if i == 5 {
			alloc.WriteString("  const char* password = \"hunter2secret\";\n")
			continue
		}
		fmt.Fprintf(&alloc, "  line %d\n", i)
	}
	writeFile(t, filepath.Join(p.target, "src", "alloc.cpp"), alloc.String())
	writeFile(t, filepath.Join(p.target, "src", "net.cpp"), "int main() {\n  int n;\n  int m;\n  return 0;\n}\n")
	writeFile(t, p.report, findingsTable)
	return p
}

// run executes the resolve command with the stub provider and returns the exit code.
func run(t *testing.T, stub providers.Provider, args ...string) int {
	t.Helper()
	resetFlags()
	if stub != nil {
		newProvider = func(string, string) (providers.Provider, error) { return stub, nil }
	}
	resolveCmd.SetArgs(args)
	require.NoError(t, resolveCmd.Execute())
	return exitCode
}

func readReport(t *testing.T, path string) resolve.Report {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var rep resolve.Report
	require.NoError(t, json.Unmarshal(data, &rep))
	return rep
}

func TestResolve_ReportThenCache(t *testing.T) {
	p := newProject(t)
	stub := &stubProvider{answer: "Free buf on every return path."}
	args := []string{"--report", p.report, "--format", "json", "--out", p.out, p.target}

	require.Equal(t, ExitSuccess, run(t, stub, args...))
	first := readReport(t, p.out)

	assert.Equal(t, 2, stub.calls())
	assert.Equal(t, "mender", first.Tool)
	assert.NotEmpty(t, first.RunID)
	assert.Equal(t, []string{p.target}, first.Targets)
	require.Len(t, first.Results, 2)
	assert.Equal(t, resolve.Output{
		Filename:   "src/alloc.cpp",
		Pos:        5,
		Message:    "memory leak: buf\nmissing null check",
		Resolution: "Free buf on every return path.",
	}, first.Results[0])
	assert.Equal(t, "src/net.cpp", first.Results[1].Filename)
	assert.Equal(t, 3, first.Results[1].Pos)
	assert.Equal(t, 2, first.Summary.Resolved)

	require.Equal(t, ExitSuccess, run(t, stub, args...))
	second := readReport(t, p.out)
	assert.Equal(t, 2, stub.calls(), "warm run must not call the resolver")
	assert.Equal(t, first.Results, second.Results)
	assert.Equal(t, 2, second.Summary.Hits)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestResolve_OnlyNew(t *testing.T) {
	p := newProject(t)
	stub := &stubProvider{answer: "fix"}
	base := []string{"--report", p.report, "--format", "json", "--out", p.out}

	run(t, stub, append(base, p.target)...)
	require.Equal(t, ExitSuccess, run(t, stub, append(base, "--only-new", p.target)...))

	rep := readReport(t, p.out)
	assert.Empty(t, rep.Results)
	assert.Equal(t, 2, rep.Summary.Suppressed)
	assert.Equal(t, 2, stub.calls())
}

func TestResolve_FailOnNew(t *testing.T) {
	p := newProject(t)
	stub := &stubProvider{answer: "fix"}
	args := []string{"--report", p.report, "--format", "json", "--out", p.out, "--fail-on-new", p.target}

	assert.Equal(t, ExitFindings, run(t, stub, args...))
	assert.Equal(t, ExitSuccess, run(t, stub, args...), "cached results are not new")
}

func TestResolve_UnusableAnswerIsNew(t *testing.T) {
	p := newProject(t)
	stub := &stubProvider{answer: "   "}
	args := []string{"--report", p.report, "--format", "json", "--out", p.out, "--fail-on-new", p.target}

	assert.Equal(t, ExitFindings, run(t, stub, args...))
	rep := readReport(t, p.out)
	assert.Equal(t, 2, rep.Summary.Unresolved)

	calls := stub.calls()
	assert.Equal(t, ExitFindings, run(t, stub, args...), "unresolved groups are retried")
	assert.Greater(t, stub.calls(), calls)
}

func TestResolve_Reset(t *testing.T) {
	p := newProject(t)
	stub := &stubProvider{answer: "fix"}
	base := []string{"--report", p.report, "--format", "json", "--out", p.out}

	run(t, stub, append(base, p.target)...)
	run(t, stub, append(base, "--reset", p.target)...)
	assert.Equal(t, 4, stub.calls())
}

func TestResolve_Exclude(t *testing.T) {
	p := newProject(t)
	stub := &stubProvider{answer: "fix"}

	run(t, stub, "--report", p.report, "--format", "json", "--out", p.out, "--exclude", "net.cpp", p.target)
	rep := readReport(t, p.out)
	require.Len(t, rep.Results, 1)
	assert.Equal(t, "src/alloc.cpp", rep.Results[0].Filename)
}

func TestResolve_RedactsSnippet(t *testing.T) {
	p := newProject(t)
	stub := &stubProvider{answer: "fix"}
	run(t, stub, "--report", p.report, "--format", "json", "--out", p.out, p.target)
	require.NotEmpty(t, stub.prompts)
	assert.NotContains(t, stub.prompts[0], "hunter2secret")
	assert.Contains(t, stub.prompts[0], "[REDACTED]")

	stub = &stubProvider{answer: "fix"}
	run(t, stub, "--report", p.report, "--format", "json", "--out", p.out, "--reset", "--no-redact", p.target)
	require.NotEmpty(t, stub.prompts)
	assert.Contains(t, stub.prompts[0], "hunter2secret")
}

func TestResolve_RunsChecker(t *testing.T) {
	p := newProject(t)
	writeFile(t, filepath.Join(p.target, "checker-output.txt"), findingsTable)
	writeFile(t, filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "mender", "config.json"),
		`{"checker": {"command": ["cat", "{target}/checker-output.txt"]}}`)

	stub := &stubProvider{answer: "fix"}
	require.Equal(t, ExitSuccess, run(t, stub, "--format", "json", "--out", p.out, p.target))

	rep := readReport(t, p.out)
	assert.Len(t, rep.Results, 2)
	assert.Equal(t, 2, rep.Summary.Groups)
}

func TestResolve_CheckerFailure(t *testing.T) {
	p := newProject(t)
	writeFile(t, filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "mender", "config.json"),
		`{"checker": {"command": ["false"]}}`)

	assert.Equal(t, ExitRuntimeError, run(t, &stubProvider{answer: "fix"}, "--out", p.out, p.target))
	_, err := os.Stat(p.out)
	assert.True(t, os.IsNotExist(err), "no output on checker failure")
}

func TestResolve_MultipleTargets(t *testing.T) {
	p := newProject(t)
	other := filepath.Join(filepath.Dir(p.target), "other")
	writeFile(t, filepath.Join(other, "src", "net.cpp"), "int x;\nint y;\nint z;\n")
	for _, dir := range []string{p.target, other} {
		writeFile(t, filepath.Join(dir, "checker-output.txt"), findingsTable)
	}
	writeFile(t, filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "mender", "config.json"),
		`{"checker": {"command": ["cat", "{target}/checker-output.txt"]}}`)

	stub := &stubProvider{answer: "fix"}
	require.Equal(t, ExitSuccess, run(t, stub, "--format", "json", "--out", p.out, p.target, other))

	rep := readReport(t, p.out)
	assert.Equal(t, []string{p.target, other}, rep.Targets)
	assert.Len(t, rep.Results, 3)
	assert.Equal(t, 3, rep.Summary.Groups)
	assert.Equal(t, 3, rep.Summary.ResolverCalls)
}

func TestResolve_ReportWithTwoTargets(t *testing.T) {
	p := newProject(t)
	resolveCmd.SetArgs([]string{"--report", p.report, p.target, p.target})
	assert.Error(t, resolveCmd.Execute())
}

func TestResolve_UnknownFormat(t *testing.T) {
	p := newProject(t)
	resolveCmd.SetArgs([]string{"--report", p.report, "--format", "pdf", p.target})
	assert.Error(t, resolveCmd.Execute())
}

func TestResolve_MissingAPIKey(t *testing.T) {
	p := newProject(t)
	t.Setenv("ANTHROPIC_API_KEY", "")
	assert.Equal(t, ExitAuthError, run(t, nil, "--report", p.report, "--provider", "anthropic", p.target))
}

func TestResolve_UnknownProvider(t *testing.T) {
	p := newProject(t)
	assert.Equal(t, ExitUsageError, run(t, nil, "--report", p.report, "--provider", "bogus", p.target))
}

func TestResolve_AuthFailureAborts(t *testing.T) {
	p := newProject(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer server.Close()
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("MENDER_OPENAI_BASE_URL", server.URL)

	code := run(t, nil, "--report", p.report, "--provider", "openai", "--out", p.out, p.target)
	assert.Equal(t, ExitAuthError, code)
	_, err := os.Stat(p.out)
	assert.True(t, os.IsNotExist(err), "no output when the run is aborted")
}

func TestMergeReport(t *testing.T) {
	a := &resolve.Report{
		RunID:   "a",
		Targets: []string{"x"},
		Results: []resolve.Output{{Filename: "a.c", Pos: 1}},
		Summary: resolve.Summary{Groups: 1, Resolved: 1, ResolverCalls: 1},
		Timing:  resolve.Timing{TotalMs: 10},
	}
	b := &resolve.Report{
		RunID:   "b",
		Targets: []string{"y"},
		Results: []resolve.Output{{Filename: "b.c", Pos: 2}},
		Summary: resolve.Summary{Groups: 2, Hits: 1, Failed: 1},
		Timing:  resolve.Timing{TotalMs: 5, ResolverMs: 3},
	}

	assert.Same(t, a, mergeReport(nil, a))
	got := mergeReport(a, b)
	assert.Equal(t, "a", got.RunID)
	assert.Equal(t, []string{"x", "y"}, got.Targets)
	assert.Len(t, got.Results, 2)
	assert.Equal(t, resolve.Summary{Groups: 3, Hits: 1, Resolved: 1, Failed: 1, ResolverCalls: 1}, got.Summary)
	assert.Equal(t, resolve.Timing{TotalMs: 15, ResolverMs: 3}, got.Timing)
}

func TestResolve_Since(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	p := newProject(t)
	git := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = p.target
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test",
			"GIT_AUTHOR_EMAIL=test@test.com",
			"GIT_COMMITTER_NAME=test",
			"GIT_COMMITTER_EMAIL=test@test.com",
		)
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}
	git("init")
	git("add", "-A")
	git("commit", "-m", "init")
	writeFile(t, filepath.Join(p.target, "src", "net.cpp"), "int main() {\n  int n;\n  int k;\n  return 0;\n}\n")

	stub := &stubProvider{answer: "fix"}
	require.Equal(t, ExitSuccess, run(t, stub, "--report", p.report, "--format", "json", "--out", p.out, "--since", "HEAD", p.target))

	rep := readReport(t, p.out)
	require.Len(t, rep.Results, 1)
	assert.Equal(t, "src/net.cpp", rep.Results[0].Filename)
}
