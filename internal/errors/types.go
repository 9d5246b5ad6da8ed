package errors

import (
	"context"
	"errors"
)

var (
	ErrStepFailed          = errors.New("provisioning step failed")
	ErrPreconditionMissing = errors.New("precondition missing")
	ErrTimeout             = errors.New("step timed out")
	ErrStatusCheckFailed   = errors.New("service status check failed")
	ErrMetadataUnavailable = errors.New("instance metadata unavailable")
	ErrConfigInvalid       = errors.New("configuration invalid")
)

// TimeoutExitCode matches the exit status used by coreutils timeout(1).
const TimeoutExitCode = 124

type ProvisionError struct {
	Type        error
	Step        string
	Context     string
	Cause       string
	Suggestion  string
	OriginalErr error
}

// Error returns the underlying error text verbatim.
func (e *ProvisionError) Error() string {
	return e.OriginalErr.Error()
}

func (e *ProvisionError) Unwrap() error {
	return e.OriginalErr
}

// Is matches the error's own type; precondition and timeout failures are also step failures.
func (e *ProvisionError) Is(target error) bool {
	if target == e.Type {
		return true
	}
	return target == ErrStepFailed && (e.Type == ErrPreconditionMissing || e.Type == ErrTimeout)
}

func NewProvisionError(errorType error, step, context, cause, suggestion string, originalErr error) *ProvisionError {
	return &ProvisionError{
		Type:        errorType,
		Step:        step,
		Context:     context,
		Cause:       cause,
		Suggestion:  suggestion,
		OriginalErr: originalErr,
	}
}

func NewStepError(step, context, cause, suggestion string, originalErr error) *ProvisionError {
	return NewProvisionError(ErrStepFailed, step, context, cause, suggestion, originalErr)
}

func NewPreconditionError(step, context, cause, suggestion string, originalErr error) *ProvisionError {
	return NewProvisionError(ErrPreconditionMissing, step, context, cause, suggestion, originalErr)
}

func NewTimeoutError(step, context, cause, suggestion string, originalErr error) *ProvisionError {
	return NewProvisionError(ErrTimeout, step, context, cause, suggestion, originalErr)
}

func NewStatusCheckError(step, context, cause, suggestion string, originalErr error) *ProvisionError {
	return NewProvisionError(ErrStatusCheckFailed, step, context, cause, suggestion, originalErr)
}

func NewMetadataError(step, context, cause, suggestion string, originalErr error) *ProvisionError {
	return NewProvisionError(ErrMetadataUnavailable, step, context, cause, suggestion, originalErr)
}

func NewConfigError(context, cause, suggestion string, originalErr error) *ProvisionError {
	return NewProvisionError(ErrConfigInvalid, "", context, cause, suggestion, originalErr)
}

// ExitCode maps an error to a process exit status.
// Command failures keep the failing command's own status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return TimeoutExitCode
	}
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		if code := coder.ExitCode(); code > 0 {
			return code
		}
	}
	return 1
}
