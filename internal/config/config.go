package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"costdeploy/pkg/deployment"
)

const (
	// EnvPrefix is prepended to every configuration key when read from the environment.
	EnvPrefix = "COSTDEPLOY"

	DefaultAppDir         = "/opt/aws-cost-dashboard"
	DefaultServiceName    = "aws-cost-dashboard"
	DefaultPort           = 5000
	DefaultPlaceholder    = "YOUR_EC2_PUBLIC_IP"
	DefaultMetadataURL    = "http://169.254.169.254"
	DefaultUnitDir        = "/etc/systemd/system"
	DefaultStateFile      = "/var/lib/costdeploy/last-run.json"
	DefaultRuntimeVersion = "3.11"
	DefaultRuntimeMinimum = "3.9"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// setDefaults registers every key so that environment overrides resolve during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.dir", DefaultAppDir)
	v.SetDefault("app.manifest", "requirements.txt")
	v.SetDefault("app.env_dir", "venv")
	v.SetDefault("app.server_package", "gunicorn")
	v.SetDefault("app.port", DefaultPort)

	v.SetDefault("runtime.version", DefaultRuntimeVersion)
	v.SetDefault("runtime.minimum", DefaultRuntimeMinimum)
	v.SetDefault("runtime.package_manager", "auto")
	v.SetDefault("runtime.extra_packages", []string{})

	v.SetDefault("service.name", DefaultServiceName)
	v.SetDefault("service.unit_dir", DefaultUnitDir)

	v.SetDefault("metadata.endpoint", DefaultMetadataURL)
	v.SetDefault("metadata.timeout", 2*time.Second)
	v.SetDefault("metadata.placeholder", DefaultPlaceholder)

	v.SetDefault("probe.enabled", true)
	v.SetDefault("probe.path", "/")
	v.SetDefault("probe.retries", 5)
	v.SetDefault("probe.wait_min", 1*time.Second)
	v.SetDefault("probe.wait_max", 5*time.Second)

	v.SetDefault("timeouts.step", 15*time.Minute)
	v.SetDefault("timeouts.status", 30*time.Second)

	v.SetDefault("state.file", DefaultStateFile)
}

// Load builds the deployment configuration. An empty filePath means defaults and environment only.
func Load(filePath string) (*deployment.Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if filePath != "" {
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", filePath)
		}

		v.SetConfigFile(filePath)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg deployment.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config - malformed value: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks a configuration struct and returns user-friendly messages.
func Validate(cfg *deployment.Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		var errorMessages []string
		for _, e := range validationErrors {
			errorMessages = append(errorMessages, formatFieldError(e))
		}

		if len(errorMessages) == 1 {
			return fmt.Errorf("validation error: %s", errorMessages[0])
		}

		result := "validation errors:\n"
		for _, msg := range errorMessages {
			result += fmt.Sprintf("  - %s\n", msg)
		}
		return fmt.Errorf("%s", result)
	}
	return fmt.Errorf("validation failed: %w", err)
}

// formatFieldError formats a single validation error into a user-friendly message.
func formatFieldError(e validator.FieldError) string {
	field := e.Namespace()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required but missing", field)
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of: %s", field, e.Param())
	case "url":
		return fmt.Sprintf("field '%s' must be a valid URL", field)
	case "min":
		return fmt.Sprintf("field '%s' must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("field '%s' must be at most %s", field, e.Param())
	default:
		return fmt.Sprintf("field '%s' failed validation (%s)", field, e.Tag())
	}
}
