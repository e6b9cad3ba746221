package output

import "github.com/dshills/mender/internal/resolve"

func sampleReport() *resolve.Report {
	return &resolve.Report{
		Tool:    "mender",
		Version: "1.0",
		RunID:   "test-run",
		Targets: []string{"/src/engine"},
		Results: []resolve.Output{
			{
				Filename:   "core/alloc.cpp",
				Pos:        42,
				Message:    "memory leak: buf\nmissing null check",
				Resolution: "Free buf before returning.\nCheck the result of malloc.",
			},
			{
				Filename: "core/alloc.cpp",
				Pos:      90,
				Message:  "unused variable 'n'",
			},
			{
				Filename:   "net/socket.c",
				Pos:        7,
				Message:    "resource leak: fd",
				Resolution: "close(fd);\nreturn -1;",
			},
		},
		Summary: resolve.Summary{Groups: 3, Hits: 1, Resolved: 1, Unresolved: 1, ResolverCalls: 2},
		Timing:  resolve.Timing{ResolverMs: 120, TotalMs: 150},
	}
}

func emptyReport() *resolve.Report {
	return &resolve.Report{Tool: "mender", Version: "1.0", RunID: "empty", Results: []resolve.Output{}}
}
