// Package resolve turns aggregated checker findings into remediation text.
//
// For each finding group the Engine derives a cache key from a narrow window
// of source lines around the reported line. On a hit the cached Output is
// reused, or dropped when only new results are wanted. On a miss the group's
// messages and a wider source window go to the Resolver, and a usable answer
// is stored before it is emitted.
//
// Empty answers are retried and then emitted unresolved without being cached.
// Authentication errors abort the run. Any other resolver error skips the group.
//
// Runs and groups are traced through OpenTelemetry, and each group's outcome
// is counted on the mender.resolve.groups instrument.
package resolve
