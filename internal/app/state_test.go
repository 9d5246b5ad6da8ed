package app

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"costdeploy/internal/pyenv"
	"costdeploy/internal/services"
	"costdeploy/internal/source"
)

func TestSaveAndLoadState(t *testing.T) {
	fs := afero.NewMemMapFs()
	state := newState("run-123", false)
	state.Environment = &pyenv.Environment{Root: "/opt/aws-cost-dashboard/venv"}
	state.Revision = &source.Revision{Hash: "4f1c2a9d0e8b", Branch: "main"}
	state.Service = &services.Service{Name: testUnit, ActiveState: "active", SubState: "running", UnitFileState: "enabled"}
	state.record(StepResult{Number: 1, Name: "refresh-packages", Status: StatusSuccess, Duration: 3 * time.Second})
	state.Outcome = OutcomeSucceeded

	require.NoError(t, SaveState(fs, testStateFile, state))

	loaded, err := LoadState(fs, testStateFile)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, StateSchemaVersion, loaded.SchemaVersion)
	assert.Equal(t, "run-123", loaded.RunID)
	assert.Equal(t, OutcomeSucceeded, loaded.Outcome)
	assert.Equal(t, "/opt/aws-cost-dashboard/venv", loaded.Environment.Root)
	assert.True(t, loaded.Service.Started())

	result, ok := loaded.Step("refresh-packages")
	require.True(t, ok)
	assert.Equal(t, 3*time.Second, result.Duration)

	_, ok = loaded.Step("announce")
	assert.False(t, ok)
}

func TestLoadState_Missing(t *testing.T) {
	state, err := LoadState(afero.NewMemMapFs(), testStateFile)

	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestLoadState_Corrupt(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, testStateFile, []byte("{not json"), 0644))

	_, err := LoadState(fs, testStateFile)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse state file")
}

func TestSaveState_ReadOnly(t *testing.T) {
	err := SaveState(afero.NewReadOnlyFs(afero.NewMemMapFs()), testStateFile, newState("run-1", false))
	assert.Error(t, err)
}

func TestRenderState(t *testing.T) {
	state := newState("0b5e8f1e-5f3c-4a57-9d6a-1f2a3b4c5d6e", false)
	state.Outcome = OutcomeFailed
	state.Error = "yum update -y: exit status 1"
	state.record(StepResult{Number: 1, Name: "refresh-packages", Status: StatusFailed, Duration: 1500 * time.Millisecond, Message: "yum update -y: exit status 1"})
	state.record(StepResult{Number: 2, Name: "install-prerequisites", Status: StatusSkipped})

	var buf bytes.Buffer
	RenderState(&buf, state)
	out := buf.String()

	for _, want := range []string{
		"0b5e8f1e-5f3c-4a57-9d6a-1f2a3b4c5d6e",
		"failed",
		"STEP",
		"refresh-packages",
		"1.5s",
		"install-prerequisites",
		"skipped",
		"yum update -y: exit status 1",
	} {
		assert.Contains(t, out, want)
	}
}
