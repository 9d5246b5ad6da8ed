package deployment

import "time"

// Config is the root object that holds the entire configuration for a costdeploy run.
// It's populated from built-in defaults, an optional YAML file and COSTDEPLOY_* variables.
type Config struct {
	App      App      `mapstructure:"app" validate:"required"`
	Runtime  Runtime  `mapstructure:"runtime" validate:"required"`
	Service  Service  `mapstructure:"service" validate:"required"`
	Metadata Metadata `mapstructure:"metadata" validate:"required"`
	Probe    Probe    `mapstructure:"probe"`
	Timeouts Timeouts `mapstructure:"timeouts" validate:"required"`
	State    State    `mapstructure:"state"`
}

// App describes the pre-deployed application source.
type App struct {
	Dir           string `mapstructure:"dir" validate:"required"`
	Manifest      string `mapstructure:"manifest" validate:"required"`
	EnvDir        string `mapstructure:"env_dir" validate:"required"`
	ServerPackage string `mapstructure:"server_package" validate:"required"`
	Port          int    `mapstructure:"port" validate:"required,min=1,max=65535"`
}

// Runtime selects the language runtime and the host package manager.
type Runtime struct {
	Version        string   `mapstructure:"version" validate:"required"`
	Minimum        string   `mapstructure:"minimum" validate:"required"`
	PackageManager string   `mapstructure:"package_manager" validate:"required,oneof=auto yum dnf apt"`
	ExtraPackages  []string `mapstructure:"extra_packages"`
}

// Service configures the systemd unit registration.
type Service struct {
	Name    string `mapstructure:"name" validate:"required"`
	UnitDir string `mapstructure:"unit_dir" validate:"required"`
}

// Metadata configures public address discovery.
type Metadata struct {
	Endpoint    string        `mapstructure:"endpoint" validate:"required,url"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"required"`
	Placeholder string        `mapstructure:"placeholder" validate:"required"`
}

// Probe configures the post-start HTTP check of the local service port.
type Probe struct {
	Enabled bool          `mapstructure:"enabled"`
	Path    string        `mapstructure:"path"`
	Retries int           `mapstructure:"retries" validate:"min=0"`
	WaitMin time.Duration `mapstructure:"wait_min"`
	WaitMax time.Duration `mapstructure:"wait_max"`
}

// Timeouts bounds every step so an unattended run cannot hang.
type Timeouts struct {
	Step   time.Duration `mapstructure:"step" validate:"required"`
	Status time.Duration `mapstructure:"status" validate:"required"`
}

// State configures where the run journal is written.
type State struct {
	File string `mapstructure:"file"`
}

// UnitFileName returns the unit file name for the configured service.
func (s Service) UnitFileName() string {
	return s.Name + ".service"
}

// Interpreter returns the versioned runtime executable, e.g. "python3.11".
func (r Runtime) Interpreter() string {
	return "python" + r.Version
}
