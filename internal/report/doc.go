// Package report turns checker output into findings.
//
// The checker prints a pipe-separated table, optionally in markdown form.
// Columns are declared by a Schema and bound to finding.Finding fields through
// their `col` struct tags, so reordering the checker's detail sections only
// needs a schema change. Saved JSON reports are validated against an embedded
// JSON schema before decoding.
package report
