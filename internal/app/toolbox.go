package app

import (
	"context"

	"costdeploy/internal/packages"
	"costdeploy/internal/pyenv"
	"costdeploy/internal/services"
	"costdeploy/internal/ui"
	"costdeploy/pkg/deployment"
)

// toolbox is shared by the steps of one run. Collaborators that are
// expensive or host-dependent are resolved on first use.
type toolbox struct {
	cfg     *deployment.Config
	factory Factory
	console *ui.Console
	dryRun  bool
	envs    *pyenv.Manager

	packages packages.Manager
	services services.Manager
}

func newToolbox(cfg *deployment.Config, factory Factory, console *ui.Console, dryRun bool) *toolbox {
	return &toolbox{
		cfg:     cfg,
		factory: factory,
		console: console,
		dryRun:  dryRun,
		envs:    pyenv.NewManager(factory.FS(), factory.Runner()),
	}
}

func (t *toolbox) packageManager() (packages.Manager, error) {
	if t.packages == nil {
		pm, err := t.factory.PackageManager(t.cfg.Runtime.PackageManager)
		if err != nil {
			return nil, err
		}
		t.packages = pm
	}
	return t.packages, nil
}

func (t *toolbox) serviceManager(ctx context.Context) (services.Manager, error) {
	if t.services == nil {
		// the connection lives as long as its context and must outlast the step that opens it
		sm, err := t.factory.ServiceManager(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		t.services = sm
	}
	return t.services, nil
}

func (t *toolbox) close() {
	if t.services != nil {
		t.services.Close()
		t.services = nil
	}
}
