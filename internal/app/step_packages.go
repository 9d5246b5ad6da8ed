package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	apperrors "costdeploy/internal/errors"
	"costdeploy/internal/packages"
)

// RefreshPackagesStep updates the host's packages and package index.
type RefreshPackagesStep struct {
	*toolbox
}

func (s *RefreshPackagesStep) Name() string        { return "refresh-packages" }
func (s *RefreshPackagesStep) Description() string { return "Refreshing system packages" }
func (s *RefreshPackagesStep) Fatal() bool         { return true }

func (s *RefreshPackagesStep) Execute(ctx context.Context, state *ExecutionState) error {
	pm, err := s.packageManager()
	if err != nil {
		if errors.Is(err, packages.ErrNoPackageManager) {
			return apperrors.NewPreconditionError(s.Name(),
				"No supported package manager found on this host",
				err.Error(),
				"costdeploy supports dnf, yum and apt-get; set runtime.package_manager if detection fails",
				err)
		}
		return apperrors.NewConfigError("Invalid package manager", err.Error(), "Use one of: auto, yum, dnf, apt", err)
	}
	state.PackageManager = pm.Name()

	if err := pm.Refresh(ctx); err != nil {
		return apperrors.NewStepError(s.Name(),
			"Failed to refresh system packages",
			err.Error(),
			"Check network access to the package repositories and re-run",
			err)
	}

	s.console.PrintSuccess(fmt.Sprintf("System packages refreshed with %s", pm.Name()))
	return nil
}

// InstallPrerequisitesStep installs the runtime, its installer and git, then checks the runtime version.
type InstallPrerequisitesStep struct {
	*toolbox
}

func (s *InstallPrerequisitesStep) Name() string { return "install-prerequisites" }
func (s *InstallPrerequisitesStep) Description() string {
	return fmt.Sprintf("Installing Python %s, pip and git", s.cfg.Runtime.Version)
}
func (s *InstallPrerequisitesStep) Fatal() bool { return true }

func (s *InstallPrerequisitesStep) Execute(ctx context.Context, state *ExecutionState) error {
	pm, err := s.packageManager()
	if err != nil {
		return err
	}

	pkgs := append(pm.RuntimePackages(s.cfg.Runtime.Version), s.cfg.Runtime.ExtraPackages...)
	if err := pm.Install(ctx, pkgs...); err != nil {
		return apperrors.NewStepError(s.Name(),
			"Failed to install runtime prerequisites",
			err.Error(),
			fmt.Sprintf("Make sure Python %s is available from the %s repositories", s.cfg.Runtime.Version, pm.Name()),
			err)
	}

	if s.dryRun {
		s.console.PrintInfo(fmt.Sprintf("DRY RUN: Would verify %s is at least %s", s.cfg.Runtime.Interpreter(), s.cfg.Runtime.Minimum))
		return nil
	}

	version, err := packages.CheckRuntimeVersion(ctx, s.factory.Runner(), s.cfg.Runtime.Interpreter(), s.cfg.Runtime.Minimum)
	if err != nil {
		return apperrors.NewStepError(s.Name(),
			"Installed runtime does not satisfy the application",
			err.Error(),
			fmt.Sprintf("Set runtime.version to a release of at least %s", s.cfg.Runtime.Minimum),
			err)
	}
	state.RuntimeVersion = version
	slog.Info("Runtime verified", "interpreter", s.cfg.Runtime.Interpreter(), "version", version)

	s.console.PrintSuccess(fmt.Sprintf("Installed %v (%s %s)", pkgs, s.cfg.Runtime.Interpreter(), version))
	return nil
}
