// Located in pkg/runtime/runtime.go
package runtime

import (
	"context"
	"fmt"
	"strings"
)

// Command defines the parameters for running a host command.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory. Empty means the runner's current directory.
	Dir string
	Env map[string]string
}

// String renders the command the way an operator would type it.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result carries the combined output of a finished command.
type Result struct {
	Output   string
	ExitCode int
}

// CommandRunner defines the contract for executing host commands.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
	// LookPath reports whether an executable is available on the host.
	LookPath(name string) (string, error)
}

// CommandError reports a command that ran and exited unsuccessfully.
type CommandError struct {
	Command string
	Code    int
	Output  string
	Err     error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Command, e.Err)
	if tail := lastLines(e.Output, 5); tail != "" {
		msg += "\n" + tail
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit code of the failed command.
func (e *CommandError) ExitCode() int {
	return e.Code
}

func lastLines(output string, n int) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
