package gitctx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
)

// ChangedFiles lists files under dir that differ from rev in the working tree
// (staged or not), plus untracked files that are not ignored. Paths are
// relative to dir, slash-separated, sorted and unique.
func ChangedFiles(ctx context.Context, dir, rev string) ([]string, error) {
	if rev == "" {
		return nil, errors.New("revision is required")
	}
	diff, err := gitOutput(ctx, dir, "diff", "--name-only", "--relative", rev, "--")
	if err != nil {
		return nil, fmt.Errorf("git diff %s: %w", rev, err)
	}
	untracked, err := gitOutput(ctx, dir, "ls-files", "--others", "--exclude-standard")
	if err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}
	return splitPaths(diff, untracked), nil
}

func splitPaths(outputs ...string) []string {
	seen := make(map[string]bool)
	files := []string{}
	for _, out := range outputs {
		for _, line := range strings.Split(out, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || seen[line] {
				continue
			}
			seen[line] = true
			files = append(files, line)
		}
	}
	sort.Strings(files)
	return files
}

func gitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return string(out), fmt.Errorf("%w: %s", err, msg)
		}
		return "", err
	}
	return string(out), nil
}
