package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"costdeploy/internal/ui"
)

const (
	// LogDirEnv overrides the directory holding the JSON error log.
	LogDirEnv   = "COSTDEPLOY_LOG_DIR"
	LogFileName = "costdeploy.log"
)

type ErrorHandler struct {
	logger  *slog.Logger
	console *ui.Console
	logFile *os.File
}

func NewErrorHandler() (*ErrorHandler, error) {
	return NewErrorHandlerWithConsole(ui.NewConsole())
}

// NewErrorHandlerWithConsole writes structured error records to the log file and user-facing text to console.
func NewErrorHandlerWithConsole(console *ui.Console) (*ErrorHandler, error) {
	logFile, err := createLogFile()
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(logFile, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	return &ErrorHandler{
		logger:  logger,
		console: console,
		logFile: logFile,
	}, nil
}

func (h *ErrorHandler) Close() error {
	if h.logFile == nil {
		return nil
	}
	return h.logFile.Close()
}

// getOSStandardLogDir returns the OS-standard log directory path
func getOSStandardLogDir() (string, error) {
	// Check for environment variable override first
	if customLogDir := os.Getenv(LogDirEnv); customLogDir != "" {
		return customLogDir, nil
	}

	// Provisioning normally runs as root; keep its records with the other system logs
	if runtime.GOOS == "linux" && os.Geteuid() == 0 {
		return filepath.Join("/var", "log", "costdeploy"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	switch runtime.GOOS {
	case "darwin":
		// macOS: ~/Library/Logs/costdeploy/
		return filepath.Join(homeDir, "Library", "Logs", "costdeploy"), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		// Linux/Unix: ~/.local/share/costdeploy/logs/ (XDG Base Directory)
		if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
			return filepath.Join(dataHome, "costdeploy", "logs"), nil
		}
		return filepath.Join(homeDir, ".local", "share", "costdeploy", "logs"), nil
	default:
		return filepath.Join(homeDir, ".costdeploy", "logs"), nil
	}
}

// createLogDirectoryWithFallback creates the log directory with fallback to current directory
func createLogDirectoryWithFallback() (string, bool, error) {
	var warnings []string
	var fallbackUsed bool

	// Try OS-standard directory first
	logDir, err := getOSStandardLogDir()
	if err == nil {
		if err := os.MkdirAll(logDir, 0750); err == nil {
			// Check if we can write to the directory
			testFile := filepath.Join(logDir, ".test_write")
			if f, testErr := os.Create(testFile); testErr == nil {
				if err := f.Close(); err != nil {
					slog.Warn("Failed to close test file", "path", testFile, "error", err)
				}
				if err := os.Remove(testFile); err != nil {
					slog.Warn("Failed to remove test file", "path", testFile, "error", err)
				}
				return logDir, fallbackUsed, nil
			}
		}
		warnings = append(warnings, fmt.Sprintf("Cannot access standard log directory %s: %v", logDir, err))
	} else {
		warnings = append(warnings, fmt.Sprintf("Cannot determine standard log directory: %v", err))
	}

	// Fallback to current directory
	currentDir, err := os.Getwd()
	if err != nil {
		return "", true, fmt.Errorf("cannot determine current directory for fallback logging: %w", err)
	}

	fallbackUsed = true
	if len(warnings) > 0 {
		fmt.Fprintf(os.Stderr, "Warning: %s. Falling back to current directory for logging.\n", warnings[0])
	}

	return currentDir, fallbackUsed, nil
}

// rotateLogFile rotates log files when size limit is exceeded, keeping maxBackups old files
func rotateLogFile(logPath string) error {
	const maxBackups = 5

	// Drop .5, then shift .4 -> .5, .3 -> .4, etc.
	for i := maxBackups; i > 0; i-- {
		oldPath := fmt.Sprintf("%s.%d", logPath, i)
		newPath := fmt.Sprintf("%s.%d", logPath, i+1)

		if i == maxBackups {
			// Remove the oldest file
			if _, err := os.Stat(oldPath); err == nil {
				if err := os.Remove(oldPath); err != nil {
					slog.Warn("Failed to remove old log file", "path", oldPath, "error", err)
				}
			}
		} else {
			// Rotate file
			if _, err := os.Stat(oldPath); err == nil {
				if err := os.Rename(oldPath, newPath); err != nil {
					slog.Warn("Failed to rotate log file", "old", oldPath, "new", newPath, "error", err)
				}
			}
		}
	}

	// Move current log to .1
	if _, err := os.Stat(logPath); err == nil {
		return os.Rename(logPath, logPath+".1")
	}

	return nil
}

// checkLogRotation checks if log rotation is needed and performs it
func checkLogRotation(logPath string) error {
	const maxSizeBytes = 10 * 1024 * 1024 // 10MB

	info, err := os.Stat(logPath)
	if err != nil {
		// File doesn't exist or other error, no rotation needed
		return nil
	}

	if info.Size() >= maxSizeBytes {
		return rotateLogFile(logPath)
	}

	return nil
}

func createLogFile() (*os.File, error) {
	logDir, _, err := createLogDirectoryWithFallback()
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logFileName := LogFileName

	logPath := filepath.Join(logDir, logFileName)

	// Check if log rotation is needed before opening the file
	if err := checkLogRotation(logPath); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to rotate log file: %v\n", err)
	}

	return os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
}

func (h *ErrorHandler) Handle(err error) {
	if err == nil {
		return
	}

	var provisionErr *ProvisionError
	if errors.As(err, &provisionErr) {
		h.handleProvisionError(provisionErr)
	} else {
		h.handleGenericError(err)
	}
}

// Warn records a non-fatal error and shows it as a warning; the run carries on.
func (h *ErrorHandler) Warn(err error) {
	if err == nil {
		return
	}

	var provisionErr *ProvisionError
	if !errors.As(err, &provisionErr) {
		h.logger.Warn("Non-fatal error occurred", "error", err.Error(), "type", "generic")
		h.console.PrintWarning(err.Error())
		return
	}

	h.logStructuredError(slog.LevelWarn, provisionErr)

	message := h.console.FormatErrorMessage(provisionErr.Context, provisionErr.Cause, provisionErr.Suggestion)
	if message == "" {
		message = provisionErr.Error()
	}
	h.console.PrintWarning(message)
}

func (h *ErrorHandler) handleProvisionError(err *ProvisionError) {
	h.logStructuredError(slog.LevelError, err)

	message := h.console.FormatErrorMessage(err.Context, err.Cause, err.Suggestion)
	if message == "" {
		message = err.Error()
	}
	h.console.PrintError(message)
}

func (h *ErrorHandler) handleGenericError(err error) {
	h.logger.Error("Unhandled error occurred",
		"error", err.Error(),
		"type", "generic",
	)

	h.console.PrintError(err.Error())
}

func (h *ErrorHandler) logStructuredError(level slog.Level, err *ProvisionError) {
	logAttrs := []slog.Attr{
		slog.String("error", err.OriginalErr.Error()),
		slog.String("type", getErrorTypeName(err.Type)),
		slog.String("context", err.Context),
		slog.Int("exit_code", ExitCode(err)),
	}

	if err.Step != "" {
		logAttrs = append(logAttrs, slog.String("step", err.Step))
	}

	if err.Cause != "" {
		logAttrs = append(logAttrs, slog.String("cause", err.Cause))
	}

	if err.Suggestion != "" {
		logAttrs = append(logAttrs, slog.String("suggestion", err.Suggestion))
	}

	h.logger.LogAttrs(context.TODO(), level, "Provisioning error occurred", logAttrs...)
}

func getErrorTypeName(errType error) string {
	switch errType {
	case ErrStepFailed:
		return "step_failed"
	case ErrPreconditionMissing:
		return "precondition_missing"
	case ErrTimeout:
		return "timeout"
	case ErrStatusCheckFailed:
		return "status_check_failed"
	case ErrMetadataUnavailable:
		return "metadata_unavailable"
	case ErrConfigInvalid:
		return "config_invalid"
	default:
		return "unknown"
	}
}
