// Package cli wires together the Cobra command tree for the mender binary.
//
// It defines the root command and all subcommands (resolve, config, models,
// cache, hook, version), binds flags, reads configuration, drives the
// checker and the resolution engine, and returns deterministic exit codes
// for CI gating.
package cli
