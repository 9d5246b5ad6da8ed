package pyenv

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"costdeploy/pkg/runtime"
)

// Environment is an isolated dependency environment rooted at Root.
// Commands run "inside" it by using its binaries and the variables from Vars,
// so nothing in the provisioner's own process environment changes.
type Environment struct {
	Root string `json:"root"`
}

// Bin returns the path of an executable inside the environment.
func (e Environment) Bin(name string) string {
	return filepath.Join(e.Root, "bin", name)
}

func (e Environment) Python() string {
	return e.Bin("python")
}

func (e Environment) Pip() string {
	return e.Bin("pip")
}

// Vars returns the variables an activation script would export.
func (e Environment) Vars() map[string]string {
	return map[string]string{
		"VIRTUAL_ENV": e.Root,
		"PATH":        filepath.Join(e.Root, "bin") + string(os.PathListSeparator) + os.Getenv("PATH"),
	}
}

// Manager creates environments and installs packages into them.
type Manager struct {
	fs     afero.Fs
	runner runtime.CommandRunner
}

func NewManager(fs afero.Fs, runner runtime.CommandRunner) *Manager {
	return &Manager{fs: fs, runner: runner}
}

// Create builds the environment at appDir/envDir with "<interpreter> -m venv".
// An environment with both python and pip is reused as is. One left half-built
// by an interrupted run is rebuilt with --clear.
func (m *Manager) Create(ctx context.Context, interpreter, appDir, envDir string) (Environment, bool, error) {
	env := Environment{Root: filepath.Join(appDir, envDir)}

	hasPython, _ := afero.Exists(m.fs, env.Python())
	hasPip, _ := afero.Exists(m.fs, env.Pip())
	if hasPython && hasPip {
		slog.Info("Reusing existing environment", "path", env.Root)
		return env, true, nil
	}

	args := []string{"-m", "venv", envDir}
	if hasPython {
		slog.Warn("Environment is incomplete, recreating it", "path", env.Root, "missing", env.Pip())
		args = []string{"-m", "venv", "--clear", envDir}
	} else {
		slog.Info("Creating environment", "path", env.Root, "interpreter", interpreter)
	}

	_, err := m.runner.Run(ctx, runtime.Command{
		Name: interpreter,
		Args: args,
		Dir:  appDir,
	})
	return env, false, err
}

// Activate checks that the environment is usable for installs.
func (m *Manager) Activate(env Environment) error {
	exists, err := afero.Exists(m.fs, env.Pip())
	if err != nil {
		return fmt.Errorf("failed to inspect environment %s: %w", env.Root, err)
	}
	if !exists {
		return fmt.Errorf("environment %s has no pip executable at %s", env.Root, env.Pip())
	}
	return nil
}

// Pip runs the environment's pip with args from dir.
func (m *Manager) Pip(ctx context.Context, env Environment, dir string, args ...string) error {
	_, err := m.runner.Run(ctx, runtime.Command{
		Name: env.Pip(),
		Args: args,
		Dir:  dir,
		Env:  env.Vars(),
	})
	return err
}

// UpgradeInstaller upgrades pip itself.
func (m *Manager) UpgradeInstaller(ctx context.Context, env Environment, dir string) error {
	return m.Pip(ctx, env, dir, "install", "--upgrade", "pip")
}

// InstallManifest installs the declared dependency set from a requirements file.
func (m *Manager) InstallManifest(ctx context.Context, env Environment, dir, manifest string) error {
	return m.Pip(ctx, env, dir, "install", "-r", manifest)
}

// InstallPackages installs additional packages by name.
func (m *Manager) InstallPackages(ctx context.Context, env Environment, dir string, pkgs ...string) error {
	return m.Pip(ctx, env, dir, append([]string{"install"}, pkgs...)...)
}
