package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/afero"

	"costdeploy/internal/metadata"
	"costdeploy/internal/packages"
	"costdeploy/internal/probe"
	"costdeploy/internal/runtime"
	"costdeploy/internal/services"
	"costdeploy/internal/source"
	runtimePkg "costdeploy/pkg/runtime"
)

// Factory provides the host collaborators used by the workflow steps.
// It decouples the orchestrator from concrete implementations so that
// tests and dry runs can substitute their own.
type Factory interface {
	Runner() runtimePkg.CommandRunner
	FS() afero.Fs
	PackageManager(kind string) (packages.Manager, error)
	// ServiceManager may open a connection; callers must Close it.
	ServiceManager(ctx context.Context) (services.Manager, error)
	MetadataResolver(endpoint string) metadata.Resolver
	Prober(opts probe.Options) probe.Prober
	InspectSource(dir string, exclude ...string) (*source.Revision, error)
}

// HostFactory builds collaborators that act on the local host.
type HostFactory struct {
	dryRun bool
	out    io.Writer
	runner runtimePkg.CommandRunner
	fs     afero.Fs
}

// NewHostFactory returns the production factory. In dry-run mode commands
// and service actions are printed to out, and file writes land in memory
// on top of a read-only view of the real filesystem.
func NewHostFactory(dryRun bool, out io.Writer, logger *slog.Logger) *HostFactory {
	f := &HostFactory{dryRun: dryRun, out: out}
	if dryRun {
		f.runner = runtime.NewDryRunRunner(out)
		f.fs = afero.NewCopyOnWriteFs(afero.NewReadOnlyFs(afero.NewOsFs()), afero.NewMemMapFs())
	} else {
		f.runner = runtime.NewExecRunner(logger)
		f.fs = afero.NewOsFs()
	}
	return f
}

func (f *HostFactory) Runner() runtimePkg.CommandRunner {
	return f.runner
}

func (f *HostFactory) FS() afero.Fs {
	return f.fs
}

func (f *HostFactory) PackageManager(kind string) (packages.Manager, error) {
	return packages.New(kind, f.runner)
}

func (f *HostFactory) ServiceManager(ctx context.Context) (services.Manager, error) {
	if f.dryRun {
		return services.NewDryRun(f.out), nil
	}
	return services.NewSystemd(ctx)
}

func (f *HostFactory) MetadataResolver(endpoint string) metadata.Resolver {
	return metadata.NewIMDSResolver(endpoint)
}

func (f *HostFactory) Prober(opts probe.Options) probe.Prober {
	return probe.NewHTTPProber(opts)
}

func (f *HostFactory) InspectSource(dir string, exclude ...string) (*source.Revision, error) {
	return source.Inspect(dir, exclude...)
}
