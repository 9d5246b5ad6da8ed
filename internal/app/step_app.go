package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	apperrors "costdeploy/internal/errors"
	"costdeploy/internal/source"
)

// ResolveAppDirStep checks that the application source has been deployed.
type ResolveAppDirStep struct {
	*toolbox
}

func (s *ResolveAppDirStep) Name() string        { return "resolve-app-dir" }
func (s *ResolveAppDirStep) Description() string { return "Resolving application directory" }
func (s *ResolveAppDirStep) Fatal() bool         { return true }

func (s *ResolveAppDirStep) Execute(ctx context.Context, state *ExecutionState) error {
	dir := s.cfg.App.Dir

	info, err := s.factory.FS().Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			err = fmt.Errorf("directory not found: %s: %w", dir, err)
		}
		return apperrors.NewPreconditionError(s.Name(),
			fmt.Sprintf("Application directory %s does not exist", dir),
			err.Error(),
			fmt.Sprintf("Deploy the dashboard source to %s (for example with git clone) before running costdeploy", dir),
			err)
	}
	if !info.IsDir() {
		err := fmt.Errorf("not a directory: %s", dir)
		return apperrors.NewPreconditionError(s.Name(),
			fmt.Sprintf("Application path %s is not a directory", dir),
			err.Error(),
			"Point app.dir at the directory holding the dashboard source",
			err)
	}
	state.AppDir = dir

	rev, err := s.factory.InspectSource(dir, s.cfg.App.EnvDir)
	switch {
	case err == nil:
		state.Revision = rev
		s.console.PrintInfo(fmt.Sprintf("Application source at %s", rev))
	case errors.Is(err, source.ErrNotRepository):
		slog.Debug("Application directory is not a git checkout", "dir", dir)
	default:
		slog.Warn("Could not read application revision", "dir", dir, "error", err)
	}

	s.console.PrintSuccess(fmt.Sprintf("Using application directory %s", dir))
	return nil
}
