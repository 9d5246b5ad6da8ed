package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	apperrors "costdeploy/internal/errors"
	"costdeploy/internal/probe"
	"costdeploy/internal/services"
)

// RegisterServiceStep installs the unit file, reloads systemd, enables the unit and starts it.
type RegisterServiceStep struct {
	*toolbox
}

func (s *RegisterServiceStep) Name() string        { return "register-service" }
func (s *RegisterServiceStep) Description() string { return "Registering systemd service" }
func (s *RegisterServiceStep) Fatal() bool         { return true }

func (s *RegisterServiceStep) Execute(ctx context.Context, state *ExecutionState) error {
	unit := s.cfg.Service.UnitFileName()
	src := filepath.Join(state.AppDir, unit)

	dst, changed, err := services.InstallUnit(s.factory.FS(), src, s.cfg.Service.UnitDir)
	if err != nil {
		return apperrors.NewStepError(s.Name(),
			fmt.Sprintf("Failed to install unit file %s", unit),
			err.Error(),
			fmt.Sprintf("Make sure %s exists in the application source", src),
			err)
	}
	state.UnitPath = dst
	state.UnitChanged = changed

	sm, err := s.serviceManager(ctx)
	if err != nil {
		return apperrors.NewStepError(s.Name(),
			"Cannot reach systemd",
			err.Error(),
			"costdeploy must run as root on a host booted with systemd",
			err)
	}

	actions := []struct {
		failure string
		run     func(context.Context) error
	}{
		{"Failed to reload systemd", sm.Reload},
		{fmt.Sprintf("Failed to enable %s", unit), func(ctx context.Context) error { return sm.Enable(ctx, unit) }},
		{fmt.Sprintf("Failed to start %s", unit), func(ctx context.Context) error { return sm.Start(ctx, unit) }},
	}
	for _, action := range actions {
		if err := action.run(ctx); err != nil {
			return apperrors.NewStepError(s.Name(),
				action.failure,
				err.Error(),
				fmt.Sprintf("Inspect the unit with 'systemctl status %s' and 'journalctl -u %s'", unit, unit),
				err)
		}
	}

	s.console.PrintSuccess(fmt.Sprintf("Service %s enabled and started", unit))
	return nil
}

// ReportStatusStep shows the unit state and probes the service port. It never fails the run.
type ReportStatusStep struct {
	*toolbox
}

func (s *ReportStatusStep) Name() string           { return "report-status" }
func (s *ReportStatusStep) Description() string    { return "Checking service status" }
func (s *ReportStatusStep) Fatal() bool            { return false }
func (s *ReportStatusStep) Timeout() time.Duration { return s.cfg.Timeouts.Status }

func (s *ReportStatusStep) Execute(ctx context.Context, state *ExecutionState) error {
	unit := s.cfg.Service.UnitFileName()
	if s.dryRun {
		s.console.PrintInfo(fmt.Sprintf("DRY RUN: Would query the status of %s", unit))
		return nil
	}

	sm, err := s.serviceManager(ctx)
	if err != nil {
		return apperrors.NewStatusCheckError(s.Name(), "Cannot reach systemd to query service status", err.Error(), "", err)
	}

	svc, err := sm.Get(ctx, unit)
	if err != nil {
		return apperrors.NewStatusCheckError(s.Name(),
			fmt.Sprintf("Could not read the status of %s", unit),
			err.Error(),
			fmt.Sprintf("Run 'systemctl status %s' to inspect it", unit),
			err)
	}
	state.Service = svc
	s.console.PrintInfo(svc.String())

	if !svc.Started() {
		err := fmt.Errorf("service %s is %s (%s)", unit, svc.ActiveState, svc.SubState)
		return apperrors.NewStatusCheckError(s.Name(),
			fmt.Sprintf("Service %s is not running", unit),
			err.Error(),
			fmt.Sprintf("Check 'journalctl -u %s' for the application's startup errors", unit),
			err)
	}

	if !s.cfg.Probe.Enabled {
		return nil
	}
	url := probe.LocalURL(s.cfg.App.Port, s.cfg.Probe.Path)
	prober := s.factory.Prober(probe.Options{
		Retries: s.cfg.Probe.Retries,
		WaitMin: s.cfg.Probe.WaitMin,
		WaitMax: s.cfg.Probe.WaitMax,
	})
	status, err := prober.Probe(ctx, url)
	state.ProbeStatus = status
	if err != nil {
		return apperrors.NewStatusCheckError(s.Name(),
			fmt.Sprintf("Service is running but %s is not answering", url),
			err.Error(),
			"The application may still be starting; check its logs with journalctl",
			err)
	}

	s.console.PrintSuccess(fmt.Sprintf("Service is running and %s answered %d", url, status))
	return nil
}
