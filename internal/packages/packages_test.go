package packages

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"costdeploy/pkg/runtime"
	"costdeploy/pkg/runtime/runtimetest"
)

func TestManagers_Commands(t *testing.T) {
	tests := []struct {
		name        string
		build       func(runtime.CommandRunner) Manager
		wantRefresh string
		wantInstall string
		wantEnv     map[string]string
	}{
		{
			name:        "yum",
			build:       NewYum,
			wantRefresh: "yum update -y",
			wantInstall: "yum install -y python3.11 python3.11-pip git",
		},
		{
			name:        "dnf",
			build:       NewDnf,
			wantRefresh: "dnf upgrade -y --refresh",
			wantInstall: "dnf install -y python3.11 python3.11-pip git",
		},
		{
			name:        "apt",
			build:       NewApt,
			wantRefresh: "apt-get update -y",
			wantInstall: "apt-get install -y python3.11 python3.11-venv python3-pip git",
			wantEnv:     map[string]string{"DEBIAN_FRONTEND": "noninteractive"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &runtimetest.RecordingRunner{}
			manager := tt.build(runner)

			assert.Equal(t, tt.name, manager.Name())
			require.NoError(t, manager.Refresh(context.Background()))
			require.NoError(t, manager.Install(context.Background(), manager.RuntimePackages("3.11")...))

			assert.Equal(t, []string{tt.wantRefresh, tt.wantInstall}, runner.Lines())
			for _, cmd := range runner.Commands {
				assert.Equal(t, tt.wantEnv, cmd.Env)
			}
		})
	}
}

func TestManager_InstallNothing(t *testing.T) {
	runner := &runtimetest.RecordingRunner{}

	require.NoError(t, NewYum(runner).Install(context.Background()))
	assert.Empty(t, runner.Commands)
}

func TestManager_ErrorIsPropagated(t *testing.T) {
	cmdErr := &runtime.CommandError{Command: "yum update -y", Code: 1, Err: errors.New("exit status 1")}
	runner := &runtimetest.MockRunner{}
	runner.On("Run", mock.Anything, mock.MatchedBy(func(c runtime.Command) bool { return c.Name == "yum" })).
		Return(&runtime.Result{ExitCode: 1}, cmdErr)

	err := NewYum(runner).Refresh(context.Background())

	require.Error(t, err)
	assert.Same(t, cmdErr, err)
	runner.AssertExpectations(t)
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		binaries []string
		want     string
		wantErr  error
	}{
		{name: "prefers dnf", binaries: []string{"yum", "dnf", "apt-get"}, want: "dnf"},
		{name: "falls back to yum", binaries: []string{"yum"}, want: "yum"},
		{name: "debian hosts use apt", binaries: []string{"apt-get"}, want: "apt"},
		{name: "nothing installed", binaries: nil, wantErr: ErrNoPackageManager},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager, err := Detect(&runtimetest.RecordingRunner{Binaries: tt.binaries})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, manager.Name())
		})
	}
}

func TestNew(t *testing.T) {
	runner := &runtimetest.MockRunner{}
	runner.On("LookPath", "dnf").Return("", exec.ErrNotFound)
	runner.On("LookPath", "yum").Return("/usr/bin/yum", nil)

	auto, err := New("auto", runner)
	require.NoError(t, err)
	assert.Equal(t, "yum", auto.Name())

	for _, kind := range []string{"yum", "dnf", "apt"} {
		manager, err := New(kind, runner)
		require.NoError(t, err)
		assert.Equal(t, kind, manager.Name())
	}

	_, err = New("pacman", runner)
	assert.EqualError(t, err, "unsupported package manager: pacman")
}
