// Mender turns static-analysis findings into suggested fixes using LLM providers.
//
// It runs a line-oriented checker over each target, groups the findings by
// file and line, and asks the configured provider for a resolution per group.
// Answers are cached on disk so unchanged findings never cost a second call.
//
// Usage:
//
//	mender resolve ./engine                  # run the checker and resolve findings
//	mender resolve --report out.txt ./engine # resolve a saved checker report
//	mender resolve --only-new --fail-on-new  # CI gate: print and fail on new results
//	mender resolve --since main .            # only files changed since main
//	mender cache show                        # cache statistics
//	mender models doctor                     # check provider credentials
//	mender config init                       # write a default config file
package main
