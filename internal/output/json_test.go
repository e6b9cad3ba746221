package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/dshills/mender/internal/resolve"
)

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &JSONWriter{}
	if err := w.Write(&buf, sampleReport()); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	var parsed resolve.Report
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if parsed.Tool != "mender" {
		t.Errorf("Tool = %q, want %q", parsed.Tool, "mender")
	}
	if len(parsed.Results) != 3 {
		t.Fatalf("Results count = %d, want 3", len(parsed.Results))
	}
	if parsed.Results[0].Pos != 42 || parsed.Results[0].Filename != "core/alloc.cpp" {
		t.Errorf("first result = %+v", parsed.Results[0])
	}
	if parsed.Summary.ResolverCalls != 2 {
		t.Errorf("ResolverCalls = %d, want 2", parsed.Summary.ResolverCalls)
	}
}

func TestJSONWriter_EmptyResultsIsArray(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONWriter{}).Write(&buf, emptyReport()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"results": []`)) {
		t.Errorf("expected empty results array, got:\n%s", buf.String())
	}
}
