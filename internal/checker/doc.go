// Package checker runs the external static-analysis tool whose report mender
// post-processes.
package checker
