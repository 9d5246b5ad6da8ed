package app

import (
	"context"
	"time"
)

// Step is a single action in the provisioning workflow.
// Steps run in a fixed order; a failing fatal step ends the run.
type Step interface {
	Name() string
	Description() string
	Fatal() bool
	Execute(ctx context.Context, state *ExecutionState) error
}

// timeoutStep is implemented by steps that need a bound other than timeouts.step.
type timeoutStep interface {
	Timeout() time.Duration
}

// StepStatus is the outcome recorded for a step.
type StepStatus string

const (
	StatusSuccess StepStatus = "success"
	StatusFailed  StepStatus = "failed"
	StatusWarning StepStatus = "warning"
	StatusSkipped StepStatus = "skipped"
)

// StepResult records one step of a run.
type StepResult struct {
	Number      int           `json:"number"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      StepStatus    `json:"status"`
	Duration    time.Duration `json:"duration"`
	Message     string        `json:"message,omitempty"`
}
