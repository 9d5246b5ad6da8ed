package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	apperrors "costdeploy/internal/errors"
	"costdeploy/internal/pyenv"
)

// CreateEnvironmentStep builds the isolated dependency environment, reusing an existing one.
type CreateEnvironmentStep struct {
	*toolbox
}

func (s *CreateEnvironmentStep) Name() string        { return "create-environment" }
func (s *CreateEnvironmentStep) Description() string { return "Creating virtual environment" }
func (s *CreateEnvironmentStep) Fatal() bool         { return true }

func (s *CreateEnvironmentStep) Execute(ctx context.Context, state *ExecutionState) error {
	env, reused, err := s.envs.Create(ctx, s.cfg.Runtime.Interpreter(), state.AppDir, s.cfg.App.EnvDir)
	if err != nil {
		return apperrors.NewStepError(s.Name(),
			"Failed to create the virtual environment",
			err.Error(),
			fmt.Sprintf("Check that %s can run 'venv' and that %s is writable", s.cfg.Runtime.Interpreter(), state.AppDir),
			err)
	}
	state.Environment = &env
	state.EnvironmentReused = reused

	if reused {
		s.console.PrintSuccess(fmt.Sprintf("Reusing virtual environment at %s", env.Root))
	} else {
		s.console.PrintSuccess(fmt.Sprintf("Virtual environment created at %s", env.Root))
	}
	return nil
}

// ActivateEnvironmentStep makes the environment the target of every later dependency command.
type ActivateEnvironmentStep struct {
	*toolbox
}

func (s *ActivateEnvironmentStep) Name() string        { return "activate-environment" }
func (s *ActivateEnvironmentStep) Description() string { return "Activating virtual environment" }
func (s *ActivateEnvironmentStep) Fatal() bool         { return true }

func (s *ActivateEnvironmentStep) Execute(ctx context.Context, state *ExecutionState) error {
	if state.Environment == nil {
		err := errors.New("no virtual environment has been created")
		return apperrors.NewStepError(s.Name(), "Cannot activate the virtual environment", err.Error(), "", err)
	}
	env := *state.Environment

	// a dry run never creates the environment, so only an existing one can be checked
	if s.dryRun && !state.EnvironmentReused {
		s.console.PrintInfo(fmt.Sprintf("DRY RUN: Would activate %s", env.Root))
		state.EnvironmentActive = true
		return nil
	}

	if err := s.envs.Activate(env); err != nil {
		return apperrors.NewStepError(s.Name(),
			"Virtual environment is incomplete",
			err.Error(),
			fmt.Sprintf("Remove %s and re-run to recreate it", env.Root),
			err)
	}
	state.EnvironmentActive = true

	slog.Debug("Environment active", "root", env.Root, "pip", env.Pip())
	s.console.PrintSuccess(fmt.Sprintf("Virtual environment %s active", env.Root))
	return nil
}

// InstallDependenciesStep installs the declared dependency set and the application server.
type InstallDependenciesStep struct {
	*toolbox
}

func (s *InstallDependenciesStep) Name() string        { return "install-dependencies" }
func (s *InstallDependenciesStep) Description() string { return "Installing Python dependencies" }
func (s *InstallDependenciesStep) Fatal() bool         { return true }

func (s *InstallDependenciesStep) Execute(ctx context.Context, state *ExecutionState) error {
	if state.Environment == nil || !state.EnvironmentActive {
		err := errors.New("virtual environment is not active")
		return apperrors.NewStepError(s.Name(), "Cannot install dependencies", err.Error(), "", err)
	}
	env := *state.Environment

	manifestPath := filepath.Join(state.AppDir, s.cfg.App.Manifest)
	manifest, err := pyenv.ParseManifest(s.factory.FS(), manifestPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperrors.NewPreconditionError(s.Name(),
				fmt.Sprintf("Dependency manifest %s not found", manifestPath),
				err.Error(),
				"Make sure the application source includes its requirements file",
				err)
		}
		return apperrors.NewStepError(s.Name(), "Failed to read the dependency manifest", err.Error(), "", err)
	}
	state.Requirements = manifest.Names()
	slog.Info("Dependency manifest parsed", "path", manifestPath, "requirements", len(manifest.Requirements))

	fail := func(what string, err error) error {
		return apperrors.NewStepError(s.Name(),
			fmt.Sprintf("Failed to install %s", what),
			err.Error(),
			"Check the pip output above; the service is not registered with a partial dependency set",
			err)
	}

	if err := s.envs.UpgradeInstaller(ctx, env, state.AppDir); err != nil {
		return fail("pip", err)
	}
	if err := s.envs.InstallManifest(ctx, env, state.AppDir, s.cfg.App.Manifest); err != nil {
		return fail(s.cfg.App.Manifest, err)
	}
	if err := s.envs.InstallPackages(ctx, env, state.AppDir, s.cfg.App.ServerPackage); err != nil {
		return fail(s.cfg.App.ServerPackage, err)
	}

	s.console.PrintSuccess(fmt.Sprintf("Installed %d declared dependencies and %s", len(manifest.Requirements), s.cfg.App.ServerPackage))
	return nil
}
