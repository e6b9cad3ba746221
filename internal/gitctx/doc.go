// Package gitctx reads repository state from git.
//
// [ChangedFiles] narrows a resolve run to files touched since a revision, so
// a pre-commit hook or CI job only pays for findings in changed code.
package gitctx
