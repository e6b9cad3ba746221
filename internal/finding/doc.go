// Package finding models checker findings and groups them by source location.
//
// [Aggregate] reduces a flat list of findings into an [Index] of [Group]s, one
// per file and line. Categories and messages keep the order they were first
// reported in, so the combined text sent to the resolver (and the cache key
// signature derived from it) is stable across runs.
package finding
