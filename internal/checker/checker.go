package checker

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// TargetPlaceholder is replaced by the target path in every argument of a Command.
const TargetPlaceholder = "{target}"

// Exit codes reported in Result.ExitCode for failures that never produced one.
const (
	ExitTimeout  = 124
	ExitNotFound = 127
)

// Command describes how to invoke the external checker.
type Command struct {
	// Argv is the program followed by its arguments. Arguments may contain
	// TargetPlaceholder.
	Argv []string
	// Timeout bounds a single run. Zero means no limit beyond ctx.
	Timeout time.Duration
	// Dir overrides the working directory. Defaults to the target.
	Dir string
}

// DefaultArgv runs CppChecker in detail mode and emits one pipe-separated row per finding.
var DefaultArgv = []string{
	"ruby", "CppChecker.rb", TargetPlaceholder,
	"-m", "detail", "-s", "--detailSection=filename|line|id|message|",
}

// Result holds a finished checker run.
type Result struct {
	Stdout   string
	Stderr   string
	Duration time.Duration
	ExitCode int
}

// Expand substitutes target into the argument template.
func (c Command) Expand(target string) []string {
	out := make([]string, len(c.Argv))
	for i, a := range c.Argv {
		out[i] = strings.ReplaceAll(a, TargetPlaceholder, target)
	}
	return out
}

// Exec runs the command for target, capturing output. A non-zero exit from
// the checker is returned as an error with Result.ExitCode set; timeouts map
// to ExitTimeout and a missing binary to ExitNotFound.
func Exec(ctx context.Context, c Command, target string) (Result, error) {
	argv := c.Expand(target)
	if len(argv) == 0 || argv[0] == "" {
		return Result{}, errors.New("checker command is empty")
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = c.Dir
	if cmd.Dir == "" {
		cmd.Dir = target
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.ExitCode = ExitTimeout
		return res, fmt.Errorf("checker timed out after %s: %w", res.Duration.Round(time.Millisecond), err)
	case errors.Is(err, exec.ErrNotFound):
		res.ExitCode = ExitNotFound
		return res, fmt.Errorf("checker %q not found: %w", argv[0], err)
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		res.ExitCode = 1
	}
	return res, fmt.Errorf("running checker: %w", err)
}

// Run executes the checker for target and returns its stdout split into
// lines. Empty lines are dropped.
func Run(ctx context.Context, c Command, target string, log zerolog.Logger) ([]string, error) {
	res, err := Exec(ctx, c, target)
	log.Debug().
		Str("target", target).
		Strs("argv", c.Expand(target)).
		Int("exit", res.ExitCode).
		Dur("duration", res.Duration).
		Msg("checker finished")
	if err != nil {
		if msg := strings.TrimSpace(res.Stderr); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, firstLine(msg))
		}
		return nil, err
	}
	return Lines(res.Stdout), nil
}

// Lines splits output into non-empty lines with trailing carriage returns removed.
func Lines(s string) []string {
	var out []string
	sc := bufio.NewScanner(strings.NewReader(s))
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
