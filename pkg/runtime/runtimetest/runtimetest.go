// Package runtimetest provides CommandRunner fakes for tests.
package runtimetest

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"

	"github.com/stretchr/testify/mock"

	"costdeploy/pkg/runtime"
)

// MockRunner is a testify mock of runtime.CommandRunner.
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, cmd runtime.Command) (*runtime.Result, error) {
	args := m.Called(ctx, cmd)
	result, _ := args.Get(0).(*runtime.Result)
	return result, args.Error(1)
}

func (m *MockRunner) LookPath(name string) (string, error) {
	args := m.Called(name)
	return args.String(0), args.Error(1)
}

// RecordingRunner records every command and answers from canned outputs and failures.
// Keys are matched as prefixes of Command.String().
type RecordingRunner struct {
	mu       sync.Mutex
	Commands []runtime.Command
	Outputs  map[string]string
	Failures map[string]error
	// Binaries lists the executables LookPath reports as installed.
	Binaries []string
	// OnRun, if set, is called for every successful command to simulate its side effects.
	OnRun func(cmd runtime.Command)
}

func (r *RecordingRunner) Run(ctx context.Context, cmd runtime.Command) (*runtime.Result, error) {
	r.mu.Lock()
	r.Commands = append(r.Commands, cmd)
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return &runtime.Result{}, err
	}

	line := cmd.String()
	for prefix, err := range r.Failures {
		if strings.HasPrefix(line, prefix) {
			return &runtime.Result{ExitCode: exitCode(err)}, err
		}
	}
	if r.OnRun != nil {
		r.OnRun(cmd)
	}
	for prefix, out := range r.Outputs {
		if strings.HasPrefix(line, prefix) {
			return &runtime.Result{Output: out}, nil
		}
	}
	return &runtime.Result{}, nil
}

func (r *RecordingRunner) LookPath(name string) (string, error) {
	for _, b := range r.Binaries {
		if b == name {
			return "/usr/bin/" + name, nil
		}
	}
	return "", exec.ErrNotFound
}

// Lines returns the recorded commands as strings.
func (r *RecordingRunner) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	lines := make([]string, 0, len(r.Commands))
	for _, c := range r.Commands {
		lines = append(lines, c.String())
	}
	return lines
}

// Ran reports whether a command starting with prefix was run.
func (r *RecordingRunner) Ran(prefix string) bool {
	for _, line := range r.Lines() {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

func exitCode(err error) int {
	var cmdErr *runtime.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code
	}
	return 1
}
