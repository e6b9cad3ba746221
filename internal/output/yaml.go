package output

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/dshills/mender/internal/resolve"
)

// YAMLWriter outputs the full report as YAML. Multi-line resolutions are
// emitted as literal blocks.
type YAMLWriter struct{}

func (y *YAMLWriter) Write(w io.Writer, report *resolve.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encoding YAML: %w", err)
	}
	return enc.Close()
}
