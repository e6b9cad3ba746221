package report

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/dshills/mender/internal/finding"
)

//go:embed findings.schema.json
var findingsSchema []byte

var schemaLoader = gojsonschema.NewBytesLoader(findingsSchema)

// ParseJSON decodes a JSON array of findings. Each element needs "filename"
// and "line"; "id" and "message" are optional. Output of `mender resolve
// --format json` is accepted as well, using "pos" for the line.
func ParseJSON(data []byte) ([]finding.Finding, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing findings json: %w", err)
	}
	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("invalid findings json: %s", strings.Join(msgs, "; "))
	}

	var raw []struct {
		finding.Finding
		Pos *int `json:"pos"`
	}
	if err := json.Unmarshal(unwrapResults(data), &raw); err != nil {
		return nil, fmt.Errorf("decoding findings json: %w", err)
	}
	out := make([]finding.Finding, 0, len(raw))
	for _, r := range raw {
		f := r.Finding
		if r.Pos != nil && f.Line == 0 {
			f.Line = *r.Pos
		}
		out = append(out, f)
	}
	return out, nil
}

// unwrapResults returns the "results" array of a mender report document, or
// data unchanged when it is already an array.
func unwrapResults(data []byte) []byte {
	var doc struct {
		Results json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(data, &doc); err == nil && len(doc.Results) > 0 {
		return doc.Results
	}
	return data
}
