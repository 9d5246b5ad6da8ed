package packages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"costdeploy/pkg/runtime"
)

// ErrNoPackageManager is returned when auto-detection finds no supported package manager.
var ErrNoPackageManager = errors.New("no supported package manager found")

// Manager wraps the host's package manager.
type Manager interface {
	Name() string
	// Refresh updates the installed packages and the package index.
	Refresh(ctx context.Context) error
	Install(ctx context.Context, pkgs ...string) error
	// RuntimePackages lists the packages providing the given runtime version, its installer and git.
	RuntimePackages(version string) []string
}

type commandManager struct {
	name            string
	binary          string
	refreshArgs     []string
	installArgs     []string
	env             map[string]string
	runtimePackages func(version string) []string
	runner          runtime.CommandRunner
}

func (m *commandManager) Name() string {
	return m.name
}

func (m *commandManager) Refresh(ctx context.Context) error {
	slog.Info("Refreshing system packages", "manager", m.name)
	_, err := m.runner.Run(ctx, runtime.Command{Name: m.binary, Args: m.refreshArgs, Env: m.env})
	return err
}

func (m *commandManager) Install(ctx context.Context, pkgs ...string) error {
	if len(pkgs) == 0 {
		return nil
	}
	slog.Info("Installing packages", "manager", m.name, "packages", pkgs)
	args := append(append([]string{}, m.installArgs...), pkgs...)
	_, err := m.runner.Run(ctx, runtime.Command{Name: m.binary, Args: args, Env: m.env})
	return err
}

func (m *commandManager) RuntimePackages(version string) []string {
	return m.runtimePackages(version)
}

func redHatRuntimePackages(version string) []string {
	return []string{"python" + version, "python" + version + "-pip", "git"}
}

// Debian splits venv support out of the interpreter package.
func debianRuntimePackages(version string) []string {
	return []string{"python" + version, "python" + version + "-venv", "python3-pip", "git"}
}

// NewYum returns a yum-backed manager (Amazon Linux 2, RHEL 7).
func NewYum(runner runtime.CommandRunner) Manager {
	return &commandManager{
		name:            "yum",
		binary:          "yum",
		refreshArgs:     []string{"update", "-y"},
		installArgs:     []string{"install", "-y"},
		runtimePackages: redHatRuntimePackages,
		runner:          runner,
	}
}

// NewDnf returns a dnf-backed manager (Amazon Linux 2023, Fedora, RHEL 8+).
func NewDnf(runner runtime.CommandRunner) Manager {
	return &commandManager{
		name:            "dnf",
		binary:          "dnf",
		refreshArgs:     []string{"upgrade", "-y", "--refresh"},
		installArgs:     []string{"install", "-y"},
		runtimePackages: redHatRuntimePackages,
		runner:          runner,
	}
}

// NewApt returns an apt-get-backed manager (Debian, Ubuntu).
func NewApt(runner runtime.CommandRunner) Manager {
	return &commandManager{
		name:            "apt",
		binary:          "apt-get",
		refreshArgs:     []string{"update", "-y"},
		installArgs:     []string{"install", "-y"},
		env:             map[string]string{"DEBIAN_FRONTEND": "noninteractive"},
		runtimePackages: debianRuntimePackages,
		runner:          runner,
	}
}

// detectOrder is the probe order used by Detect.
var detectOrder = []struct {
	binary string
	build  func(runtime.CommandRunner) Manager
}{
	{"dnf", NewDnf},
	{"yum", NewYum},
	{"apt-get", NewApt},
}

// Detect picks the first package manager found on the host.
func Detect(runner runtime.CommandRunner) (Manager, error) {
	for _, candidate := range detectOrder {
		if _, err := runner.LookPath(candidate.binary); err == nil {
			slog.Debug("Detected package manager", "binary", candidate.binary)
			return candidate.build(runner), nil
		}
	}
	return nil, ErrNoPackageManager
}

// New returns the manager for kind, which is one of auto, yum, dnf or apt.
func New(kind string, runner runtime.CommandRunner) (Manager, error) {
	switch kind {
	case "", "auto":
		return Detect(runner)
	case "yum":
		return NewYum(runner), nil
	case "dnf":
		return NewDnf(runner), nil
	case "apt":
		return NewApt(runner), nil
	default:
		return nil, fmt.Errorf("unsupported package manager: %s", kind)
	}
}
