package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"costdeploy/internal/pyenv"
	"costdeploy/internal/services"
	"costdeploy/internal/source"
)

const StateSchemaVersion = "1.0"

// Outcome summarises a whole run.
type Outcome string

const (
	OutcomeRunning   Outcome = "running"
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// ExecutionState is the journal of a costdeploy run. Steps read what earlier
// steps produced from it and record their own results. It is written to disk
// after every run for the operator; it is never used to skip steps.
type ExecutionState struct {
	SchemaVersion string  `json:"schema_version"`
	RunID         string  `json:"run_id"`
	DryRun        bool    `json:"dry_run"`
	Outcome       Outcome `json:"outcome"`
	Error         string  `json:"error,omitempty"`

	PackageManager    string             `json:"package_manager,omitempty"`
	RuntimeVersion    string             `json:"runtime_version,omitempty"`
	AppDir            string             `json:"app_dir,omitempty"`
	Revision          *source.Revision   `json:"revision,omitempty"`
	Environment       *pyenv.Environment `json:"environment,omitempty"`
	EnvironmentReused bool               `json:"environment_reused"`
	EnvironmentActive bool               `json:"environment_active"`
	Requirements      []string           `json:"requirements,omitempty"`
	UnitPath          string             `json:"unit_path,omitempty"`
	UnitChanged       bool               `json:"unit_changed"`
	Service           *services.Service  `json:"service,omitempty"`
	ProbeStatus       int                `json:"probe_status,omitempty"`
	PublicAddress     string             `json:"public_address,omitempty"`
	Endpoint          string             `json:"endpoint,omitempty"`

	Steps         []StepResult `json:"steps"`
	CreatedAt     time.Time    `json:"created_at"`
	LastUpdatedAt time.Time    `json:"last_updated_at"`
}

// newState creates the journal for a fresh run.
func newState(runID string, dryRun bool) *ExecutionState {
	now := time.Now()
	return &ExecutionState{
		SchemaVersion: StateSchemaVersion,
		RunID:         runID,
		DryRun:        dryRun,
		Outcome:       OutcomeRunning,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
}

func (s *ExecutionState) record(result StepResult) {
	s.Steps = append(s.Steps, result)
	s.LastUpdatedAt = time.Now()
}

// Step returns the recorded result for a step name.
func (s *ExecutionState) Step(name string) (StepResult, bool) {
	for _, r := range s.Steps {
		if r.Name == name {
			return r, true
		}
	}
	return StepResult{}, false
}

// LoadState reads a journal. It returns nil if the file doesn't exist.
func LoadState(fs afero.Fs, path string) (*ExecutionState, error) {
	data, err := afero.ReadFile(fs, path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state ExecutionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}

	return &state, nil
}

// SaveState persists the journal, creating its directory if needed.
func SaveState(fs afero.Fs, path string, state *ExecutionState) error {
	state.LastUpdatedAt = time.Now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize state: %w", err)
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	return nil
}
