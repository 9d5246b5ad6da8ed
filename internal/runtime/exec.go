package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"sort"
	"strings"

	"costdeploy/pkg/runtime"
)

// ExecRunner implements the CommandRunner interface using os/exec.
type ExecRunner struct {
	logger *slog.Logger
}

// NewExecRunner creates a new ExecRunner. A nil logger uses slog.Default().
func NewExecRunner(logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecRunner{logger: logger}
}

// Run executes a command, streaming its output into debug logs.
func (r *ExecRunner) Run(ctx context.Context, c runtime.Command) (*runtime.Result, error) {
	r.logger.Info("Running command", "command", c.String(), "dir", c.Dir)

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), envSlice(c.Env)...)
	}

	out := &lineWriter{logger: r.logger, command: c.Name}
	cmd.Stdout = out
	cmd.Stderr = out

	err := cmd.Run()
	out.flush()

	result := &runtime.Result{Output: strings.TrimSpace(out.all.String())}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	// A cancelled or expired context kills the process; report the context error instead of the signal.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, fmt.Errorf("%s: %w", c.String(), ctxErr)
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return result, &runtime.CommandError{
				Command: c.String(),
				Code:    exitErr.ExitCode(),
				Output:  result.Output,
				Err:     err,
			}
		}
		return result, fmt.Errorf("failed to run %s: %w", c.String(), err)
	}

	r.logger.Debug("Command completed successfully", "command", c.String())
	return result, nil
}

// LookPath reports where an executable lives on the host.
func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func envSlice(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	vars := make([]string, 0, len(keys))
	for _, k := range keys {
		vars = append(vars, fmt.Sprintf("%s=%s", k, env[k]))
	}
	return vars
}

// lineWriter splits command output into lines and logs each one.
// exec.Cmd serialises writes when Stdout and Stderr share a writer.
type lineWriter struct {
	logger  *slog.Logger
	command string
	partial bytes.Buffer
	all     strings.Builder
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.all.Write(p)
	w.partial.Write(p)
	for {
		line, err := w.partial.ReadString('\n')
		if err != nil {
			// incomplete line, keep it for the next write
			w.partial.Reset()
			w.partial.WriteString(line)
			break
		}
		w.log(line)
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	if w.partial.Len() > 0 {
		w.log(w.partial.String())
		w.partial.Reset()
	}
}

func (w *lineWriter) log(line string) {
	if clean := cleanOutputLine(line); clean != "" {
		w.logger.Debug("Command output", "command", w.command, "line", clean)
	}
}

// ansiRegex is a compiled regex for ANSI escape sequences
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// cleanOutputLine removes ANSI escape sequences, carriage-return progress redraws and control characters.
func cleanOutputLine(line string) string {
	if len(line) == 0 {
		return ""
	}

	// pip and yum redraw progress bars with \r; keep only the final frame
	if i := strings.LastIndex(strings.TrimRight(line, "\r\n"), "\r"); i >= 0 {
		line = line[i+1:]
	}

	line = ansiRegex.ReplaceAllString(line, "")

	line = strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' {
			return -1
		}
		return r
	}, line)

	return strings.TrimSpace(line)
}
