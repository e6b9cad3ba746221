// Package output renders a resolve.Report as text, JSON, markdown, YAML,
// or SARIF.
package output
