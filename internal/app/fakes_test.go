package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"costdeploy/internal/metadata"
	"costdeploy/internal/packages"
	"costdeploy/internal/probe"
	"costdeploy/internal/services"
	"costdeploy/internal/source"
	"costdeploy/internal/ui"
	"costdeploy/pkg/deployment"
	"costdeploy/pkg/runtime"
	"costdeploy/pkg/runtime/runtimetest"
)

const (
	testAppDir    = "/opt/aws-cost-dashboard"
	testUnitDir   = "/etc/systemd/system"
	testStateFile = "/var/lib/costdeploy/last-run.json"
	testUnit      = "aws-cost-dashboard.service"
	testPip       = testAppDir + "/venv/bin/pip"
)

func testConfig() *deployment.Config {
	return &deployment.Config{
		App: deployment.App{
			Dir:           testAppDir,
			Manifest:      "requirements.txt",
			EnvDir:        "venv",
			ServerPackage: "gunicorn",
			Port:          5000,
		},
		Runtime: deployment.Runtime{
			Version:        "3.11",
			Minimum:        "3.9",
			PackageManager: "yum",
		},
		Service: deployment.Service{
			Name:    "aws-cost-dashboard",
			UnitDir: testUnitDir,
		},
		Metadata: deployment.Metadata{
			Endpoint:    "http://169.254.169.254",
			Timeout:     100 * time.Millisecond,
			Placeholder: "YOUR_EC2_PUBLIC_IP",
		},
		Probe: deployment.Probe{
			Enabled: true,
			Path:    "/",
		},
		Timeouts: deployment.Timeouts{
			Step:   5 * time.Second,
			Status: time.Second,
		},
		State: deployment.State{File: testStateFile},
	}
}

// fakeServices records service manager calls against an in-memory unit table.
type fakeServices struct {
	mu        sync.Mutex
	actions   []string
	state     string // what Get reports; empty means the unit is unknown
	failOn    map[string]error
	closed    int
	connected int
}

func (f *fakeServices) do(action string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
	return f.failOn[strings.Fields(action)[0]]
}

func (f *fakeServices) Reload(ctx context.Context) error { return f.do("reload") }
func (f *fakeServices) Enable(ctx context.Context, name string) error {
	return f.do("enable " + name)
}
func (f *fakeServices) Start(ctx context.Context, name string) error {
	if err := f.do("start " + name); err != nil {
		return err
	}
	if f.state == "" {
		f.state = "active"
	}
	return nil
}

func (f *fakeServices) Get(ctx context.Context, name string) (*services.Service, error) {
	if err := f.do("get " + name); err != nil {
		return nil, err
	}
	if f.state == "" {
		return nil, services.ErrServiceNotFound
	}
	sub := "running"
	if f.state != "active" {
		sub = f.state
	}
	return &services.Service{Name: name, ActiveState: f.state, SubState: sub, UnitFileState: "enabled"}, nil
}

func (f *fakeServices) Close() { f.closed++ }

type fakeResolver struct {
	addr string
	err  error
}

func (r fakeResolver) PublicAddress(ctx context.Context) (string, error) {
	return r.addr, r.err
}

type fakeProber struct {
	status int
	err    error
	urls   []string
}

func (p *fakeProber) Probe(ctx context.Context, url string) (int, error) {
	p.urls = append(p.urls, url)
	return p.status, p.err
}

// fakeFactory wires the real step logic to in-memory collaborators.
type fakeFactory struct {
	runner   runtime.CommandRunner
	fs       afero.Fs
	services *fakeServices
	svcErr   error
	resolver fakeResolver
	prober   *fakeProber
	revision *source.Revision
}

func (f *fakeFactory) Runner() runtime.CommandRunner { return f.runner }
func (f *fakeFactory) FS() afero.Fs                  { return f.fs }

func (f *fakeFactory) PackageManager(kind string) (packages.Manager, error) {
	return packages.New(kind, f.runner)
}

func (f *fakeFactory) ServiceManager(ctx context.Context) (services.Manager, error) {
	if f.svcErr != nil {
		return nil, f.svcErr
	}
	f.services.connected++
	return f.services, nil
}

func (f *fakeFactory) MetadataResolver(endpoint string) metadata.Resolver { return f.resolver }
func (f *fakeFactory) Prober(opts probe.Options) probe.Prober             { return f.prober }

func (f *fakeFactory) InspectSource(dir string, exclude ...string) (*source.Revision, error) {
	if f.revision == nil {
		return nil, source.ErrNotRepository
	}
	return f.revision, nil
}

type recordingWarner struct {
	errs []error
}

func (w *recordingWarner) Warn(err error) { w.errs = append(w.errs, err) }

// host bundles a fake host ready for a successful run.
type host struct {
	cfg     *deployment.Config
	fs      afero.Fs
	runner  *runtimetest.RecordingRunner
	factory *fakeFactory
	warner  *recordingWarner
	out     *bytes.Buffer
	errOut  *bytes.Buffer
}

const testUnitContent = `[Unit]
Description=AWS Cost Dashboard

[Service]
WorkingDirectory=/opt/aws-cost-dashboard
ExecStart=/opt/aws-cost-dashboard/venv/bin/gunicorn -c gunicorn_config.py app:app

[Install]
WantedBy=multi-user.target
`

func newHost(t *testing.T) *host {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, filepath.Join(testAppDir, "requirements.txt"), []byte("X==1.0\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(testAppDir, testUnit), []byte(testUnitContent), 0644))

	runner := &runtimetest.RecordingRunner{
		Outputs: map[string]string{"python3.11 --version": "Python 3.11.6"},
	}
	runner.OnRun = func(cmd runtime.Command) {
		// venv creation leaves an interpreter and pip behind
		if cmd.String() == "python3.11 -m venv venv" {
			for _, bin := range []string{"python", "pip"} {
				_ = afero.WriteFile(fs, filepath.Join(cmd.Dir, "venv", "bin", bin), []byte{}, 0755)
			}
		}
	}

	factory := &fakeFactory{
		runner:   runner,
		fs:       fs,
		services: &fakeServices{},
		resolver: fakeResolver{addr: "54.210.167.204"},
		prober:   &fakeProber{status: 200},
	}

	return &host{
		cfg:     testConfig(),
		fs:      fs,
		runner:  runner,
		factory: factory,
		warner:  &recordingWarner{},
		out:     &bytes.Buffer{},
		errOut:  &bytes.Buffer{},
	}
}

func (h *host) app(dryRun bool) *App {
	console := ui.NewConsoleWithWriters(h.out, h.errOut, false)
	return New(h.cfg, h.factory, console, h.warner, dryRun)
}

func (h *host) run(t *testing.T) (*ExecutionState, error) {
	t.Helper()
	return h.app(false).Run(context.Background())
}

// blockingRunner hangs on commands with the given prefix until the context ends.
type blockingRunner struct {
	*runtimetest.RecordingRunner
	prefix string
}

func (b *blockingRunner) Run(ctx context.Context, cmd runtime.Command) (*runtime.Result, error) {
	if strings.HasPrefix(cmd.String(), b.prefix) {
		<-ctx.Done()
		return &runtime.Result{}, fmt.Errorf("%s: %w", cmd, ctx.Err())
	}
	return b.RecordingRunner.Run(ctx, cmd)
}

var errBoom = errors.New("boom")
