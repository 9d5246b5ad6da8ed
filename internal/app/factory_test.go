package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "costdeploy/internal/errors"
	"costdeploy/internal/probe"
	"costdeploy/internal/services"
	"costdeploy/internal/ui"
)

func TestHostFactory_DryRunTouchesNothing(t *testing.T) {
	tmp := t.TempDir()
	appDir := filepath.Join(tmp, "aws-cost-dashboard")
	require.NoError(t, os.MkdirAll(appDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(appDir, "requirements.txt"), []byte("X==1.0\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(appDir, testUnit), []byte(testUnitContent), 0644))

	metadataServer := httptest.NewServer(http.NotFoundHandler())
	metadataServer.Close()

	cfg := testConfig()
	cfg.App.Dir = appDir
	cfg.Service.UnitDir = filepath.Join(tmp, "units")
	cfg.State.File = filepath.Join(tmp, "state", "last-run.json")
	cfg.Metadata.Endpoint = metadataServer.URL

	var out, errOut bytes.Buffer
	warner := &recordingWarner{}
	factory := NewHostFactory(true, &out, nil)
	application := New(cfg, factory, ui.NewConsoleWithWriters(&out, &errOut, false), warner, true)

	state, err := application.Run(context.Background())

	require.NoError(t, err)
	assert.True(t, state.DryRun)
	assert.Equal(t, "http://YOUR_EC2_PUBLIC_IP:5000", state.Endpoint)

	output := out.String()
	for _, want := range []string{
		"DRY RUN: Would run 'yum update -y'",
		"DRY RUN: Would run 'yum install -y python3.11 python3.11-pip git'",
		"DRY RUN: Would run 'python3.11 -m venv venv' in " + appDir,
		"DRY RUN: Would run '" + filepath.Join(appDir, "venv", "bin", "pip") + " install -r requirements.txt' in " + appDir,
		"DRY RUN: Would enable aws-cost-dashboard.service on boot",
		"DRY RUN: Would start aws-cost-dashboard.service",
		"DRY RUN COMPLETED",
	} {
		assert.Contains(t, output, want)
	}
	assert.Contains(t, errOut.String(), "DRY RUN MODE")

	for _, path := range []string{cfg.Service.UnitDir, filepath.Join(appDir, "venv"), cfg.State.File} {
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err), "%s should not exist after a dry run", path)
	}

	// the unit file was installed into the in-memory layer only
	_, err = factory.FS().Stat(filepath.Join(cfg.Service.UnitDir, testUnit))
	assert.NoError(t, err)

	require.Len(t, warner.errs, 1)
	assert.ErrorIs(t, warner.errs[0], apperrors.ErrMetadataUnavailable)
}

func TestHostFactory_DryRunStillChecksPreconditions(t *testing.T) {
	cfg := testConfig()
	cfg.App.Dir = filepath.Join(t.TempDir(), "missing")

	var out bytes.Buffer
	application := New(cfg, NewHostFactory(true, &out, nil), ui.NewConsoleWithWriters(&out, &out, false), nil, true)

	_, err := application.Run(context.Background())

	assert.ErrorIs(t, err, apperrors.ErrPreconditionMissing)
	assert.NotContains(t, out.String(), "venv")
}

func TestHostFactory_Collaborators(t *testing.T) {
	var out bytes.Buffer

	dry := NewHostFactory(true, &out, nil)
	sm, err := dry.ServiceManager(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &services.DryRunManager{}, sm)

	pm, err := dry.PackageManager("apt")
	require.NoError(t, err)
	assert.Equal(t, "apt", pm.Name())

	assert.NotNil(t, dry.MetadataResolver("http://169.254.169.254"))
	assert.NotNil(t, dry.Prober(probe.Options{Retries: 1}))
}
