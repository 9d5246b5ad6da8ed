package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/coreos/go-systemd/v22/dbus"
)

var ErrServiceNotFound = errors.New("no service found")

// Service is a snapshot of a systemd unit's state.
type Service struct {
	Name          string `json:"name"`
	ActiveState   string `json:"active_state"` // active, reloading, inactive, failed, activating, deactivating
	SubState      string `json:"sub_state"`
	UnitFileState string `json:"unit_file_state"`
}

func (s Service) Started() bool {
	return s.ActiveState == "active"
}

func (s Service) Enabled() bool {
	return s.UnitFileState == "enabled" || s.UnitFileState == "static"
}

func (s Service) String() string {
	return fmt.Sprintf("%s: %s (%s), %s", s.Name, s.ActiveState, s.SubState, s.UnitFileState)
}

func (s *Service) fillFromProperties(props map[string]interface{}) {
	s.ActiveState, _ = props["ActiveState"].(string)
	s.SubState, _ = props["SubState"].(string)
	s.UnitFileState, _ = props["UnitFileState"].(string)
}

// Manager drives the host service manager.
type Manager interface {
	Reload(ctx context.Context) error
	Enable(ctx context.Context, name string) error
	// Start starts the unit and waits for its job to finish.
	Start(ctx context.Context, name string) error
	Get(ctx context.Context, name string) (*Service, error)
	Close()
}

// systemdConn is the subset of *dbus.Conn used here.
type systemdConn interface {
	ReloadContext(ctx context.Context) error
	EnableUnitFilesContext(ctx context.Context, files []string, runtime bool, force bool) (bool, []dbus.EnableUnitFileChange, error)
	StartUnitContext(ctx context.Context, name string, mode string, ch chan<- string) (int, error)
	ListUnitsByNamesContext(ctx context.Context, units []string) ([]dbus.UnitStatus, error)
	GetUnitPropertiesContext(ctx context.Context, unit string) (map[string]interface{}, error)
	Close()
}

type SystemdManager struct {
	conn systemdConn
}

// NewSystemd connects to the system instance of systemd over D-Bus.
// The connection is closed when ctx is done.
func NewSystemd(ctx context.Context) (*SystemdManager, error) {
	conn, err := dbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to systemd: %w", err)
	}
	return &SystemdManager{conn: conn}, nil
}

func (s *SystemdManager) Reload(ctx context.Context) error {
	if err := s.conn.ReloadContext(ctx); err != nil {
		return fmt.Errorf("daemon-reload failed: %w", err)
	}
	return nil
}

func (s *SystemdManager) Enable(ctx context.Context, name string) error {
	_, changes, err := s.conn.EnableUnitFilesContext(ctx, []string{name}, false, true)
	if err != nil {
		return fmt.Errorf("cannot enable unit %v: %w", name, err)
	}
	if len(changes) == 0 {
		slog.Debug("Unit already enabled", "unit", name)
	}
	for _, change := range changes {
		slog.Debug("Unit file change", "type", change.Type, "filename", change.Filename, "destination", change.Destination)
	}
	return nil
}

func (s *SystemdManager) Start(ctx context.Context, name string) error {
	// buffered so a late job result never blocks the D-Bus signal loop
	callback := make(chan string, 1)
	if _, err := s.conn.StartUnitContext(ctx, name, "replace", callback); err != nil {
		return fmt.Errorf("cannot start unit %v: %w", name, err)
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("waiting for %v to start: %w", name, ctx.Err())
	case result := <-callback:
		if result != "done" {
			return fmt.Errorf("start job for %v finished with result %q", name, result)
		}
		return nil
	}
}

func (s *SystemdManager) Get(ctx context.Context, name string) (*Service, error) {
	if name == "" {
		return nil, errors.New("empty service name")
	}
	us, err := s.conn.ListUnitsByNamesContext(ctx, []string{name})
	if err != nil {
		return nil, fmt.Errorf("couldn't list units: %w", err)
	}
	if len(us) == 0 || us[0].LoadState == "not-found" {
		return nil, ErrServiceNotFound
	}
	props, err := s.conn.GetUnitPropertiesContext(ctx, name)
	if err != nil {
		return nil, err
	}
	result := &Service{Name: name}
	result.fillFromProperties(props)
	return result, nil
}

func (s *SystemdManager) Close() {
	s.conn.Close()
}

// DryRunManager prints the service actions a real run would take.
type DryRunManager struct {
	out io.Writer
}

func NewDryRun(out io.Writer) *DryRunManager {
	return &DryRunManager{out: out}
}

func (d *DryRunManager) Reload(ctx context.Context) error {
	fmt.Fprintln(d.out, "DRY RUN: Would reload systemd unit files")
	return nil
}

func (d *DryRunManager) Enable(ctx context.Context, name string) error {
	fmt.Fprintf(d.out, "DRY RUN: Would enable %s on boot\n", name)
	return nil
}

func (d *DryRunManager) Start(ctx context.Context, name string) error {
	fmt.Fprintf(d.out, "DRY RUN: Would start %s\n", name)
	return nil
}

func (d *DryRunManager) Get(ctx context.Context, name string) (*Service, error) {
	return nil, ErrServiceNotFound
}

func (d *DryRunManager) Close() {}
