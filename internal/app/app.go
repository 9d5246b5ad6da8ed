package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "costdeploy/internal/errors"
	"costdeploy/internal/ui"
	"costdeploy/pkg/deployment"
)

// Warner surfaces non-fatal errors to the operator.
type Warner interface {
	Warn(err error)
}

// App runs the provisioning workflow.
type App struct {
	cfg     *deployment.Config
	factory Factory
	console *ui.Console
	warner  Warner
	dryRun  bool
}

func New(cfg *deployment.Config, factory Factory, console *ui.Console, warner Warner, dryRun bool) *App {
	return &App{
		cfg:     cfg,
		factory: factory,
		console: console,
		warner:  warner,
		dryRun:  dryRun,
	}
}

// buildSteps returns the workflow in its required order.
func buildSteps(tb *toolbox) []Step {
	return []Step{
		&RefreshPackagesStep{tb},
		&InstallPrerequisitesStep{tb},
		&ResolveAppDirStep{tb},
		&CreateEnvironmentStep{tb},
		&ActivateEnvironmentStep{tb},
		&InstallDependenciesStep{tb},
		&RegisterServiceStep{tb},
		&ReportStatusStep{tb},
		&DiscoverEndpointStep{tb},
		&AnnounceStep{tb},
	}
}

// Run executes every step in order. It returns the run journal and, if a
// fatal step failed, a *errors.ProvisionError describing the failure.
func (a *App) Run(ctx context.Context) (*ExecutionState, error) {
	tb := newToolbox(a.cfg, a.factory, a.console, a.dryRun)
	defer tb.close()

	return a.run(ctx, buildSteps(tb))
}

func (a *App) run(ctx context.Context, steps []Step) (*ExecutionState, error) {
	state := newState(uuid.New().String(), a.dryRun)
	slog.Info("Starting costdeploy workflow", "runId", state.RunID, "appDir", a.cfg.App.Dir, "dryRun", a.dryRun)

	if a.dryRun {
		a.console.PrintWarning("DRY RUN MODE - commands are printed, nothing is changed")
	}

	for i, step := range steps {
		a.console.PrintStep(i+1, len(steps), step.Description())

		start := time.Now()
		err := a.execute(ctx, step, state)
		result := StepResult{
			Number:      i + 1,
			Name:        step.Name(),
			Description: step.Description(),
			Status:      StatusSuccess,
			Duration:    time.Since(start),
		}

		if err == nil {
			state.record(result)
			slog.Info("Step completed", "step", step.Name(), "duration", result.Duration)
			continue
		}

		result.Message = err.Error()
		if step.Fatal() {
			result.Status = StatusFailed
			state.record(result)
			for j, skipped := range steps[i+1:] {
				state.record(StepResult{
					Number:      i + j + 2,
					Name:        skipped.Name(),
					Description: skipped.Description(),
					Status:      StatusSkipped,
				})
			}
			state.Outcome = OutcomeFailed
			state.Error = err.Error()
			slog.Error("Step failed", "step", step.Name(), "exitCode", apperrors.ExitCode(err))
			a.saveState(state)
			return state, err
		}

		result.Status = StatusWarning
		state.record(result)
		slog.Warn("Step completed with warnings", "step", step.Name(), "error", err)
		if a.warner != nil {
			a.warner.Warn(err)
		}
	}

	state.Outcome = OutcomeSucceeded
	slog.Info("costdeploy workflow completed", "runId", state.RunID, "endpoint", state.Endpoint, "dryRun", a.dryRun)
	a.saveState(state)
	return state, nil
}

// execute runs one step under its timeout and classifies its error.
func (a *App) execute(ctx context.Context, step Step, state *ExecutionState) error {
	timeout := a.cfg.Timeouts.Step
	if ts, ok := step.(timeoutStep); ok {
		timeout = ts.Timeout()
	}

	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := step.Execute(stepCtx, state)
	if err == nil {
		return nil
	}

	if step.Fatal() && errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeoutError(step.Name(),
			fmt.Sprintf("Step %q did not finish within %s", step.Name(), timeout),
			err.Error(),
			"Raise timeouts.step (COSTDEPLOY_TIMEOUTS_STEP) if the host is slow, then re-run",
			err)
	}

	var provisionErr *apperrors.ProvisionError
	if errors.As(err, &provisionErr) {
		return err
	}
	if step.Fatal() {
		return apperrors.NewStepError(step.Name(), fmt.Sprintf("%s failed", step.Description()), err.Error(), "", err)
	}
	return apperrors.NewStatusCheckError(step.Name(), fmt.Sprintf("%s failed", step.Description()), err.Error(), "", err)
}

// saveState writes the journal. Dry runs and missing paths write nothing.
func (a *App) saveState(state *ExecutionState) {
	if a.dryRun || a.cfg.State.File == "" {
		return
	}
	if err := SaveState(a.factory.FS(), a.cfg.State.File, state); err != nil {
		slog.Warn("Failed to save run journal", "file", a.cfg.State.File, "error", err)
		return
	}
	slog.Debug("Run journal saved", "file", a.cfg.State.File)
}
