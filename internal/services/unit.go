package services

import (
	"bytes"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"
)

// InstallUnit copies a unit definition into unitDir, keeping its file name.
// It reports whether the installed file changed.
func InstallUnit(fs afero.Fs, src, unitDir string) (string, bool, error) {
	dst := filepath.Join(unitDir, filepath.Base(src))

	content, err := afero.ReadFile(fs, src)
	if err != nil {
		return dst, false, fmt.Errorf("failed to read unit file: %w", err)
	}

	if existing, err := afero.ReadFile(fs, dst); err == nil && bytes.Equal(existing, content) {
		slog.Info("Unit file already installed", "path", dst)
		return dst, false, nil
	}

	if err := fs.MkdirAll(unitDir, 0755); err != nil {
		return dst, false, fmt.Errorf("failed to create unit directory %s: %w", unitDir, err)
	}
	if err := afero.WriteFile(fs, dst, content, 0644); err != nil {
		return dst, false, fmt.Errorf("failed to install unit file: %w", err)
	}

	slog.Info("Installed unit file", "source", src, "path", dst)
	return dst, true, nil
}
