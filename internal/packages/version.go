package packages

import (
	"context"
	"fmt"
	"regexp"

	"golang.org/x/mod/semver"

	"costdeploy/pkg/runtime"
)

var versionRegex = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)

// ParseVersion extracts a canonical semver string from output such as "Python 3.11.6".
func ParseVersion(output string) (string, error) {
	m := versionRegex.FindStringSubmatch(output)
	if m == nil {
		return "", fmt.Errorf("no version found in %q", output)
	}
	patch := m[3]
	if patch == "" {
		patch = "0"
	}
	return fmt.Sprintf("v%s.%s.%s", m[1], m[2], patch), nil
}

// AtLeast reports whether version satisfies minimum. Both may omit the leading "v".
func AtLeast(version, minimum string) (bool, error) {
	v, err := canonical(version)
	if err != nil {
		return false, err
	}
	floor, err := canonical(minimum)
	if err != nil {
		return false, err
	}
	return semver.Compare(v, floor) >= 0, nil
}

func canonical(version string) (string, error) {
	if version != "" && version[0] != 'v' {
		version = "v" + version
	}
	if !semver.IsValid(version) {
		return "", fmt.Errorf("invalid version %q", version)
	}
	return semver.Canonical(version), nil
}

// CheckRuntimeVersion runs "<interpreter> --version" and verifies it meets minimum.
// It returns the detected version.
func CheckRuntimeVersion(ctx context.Context, runner runtime.CommandRunner, interpreter, minimum string) (string, error) {
	result, err := runner.Run(ctx, runtime.Command{Name: interpreter, Args: []string{"--version"}})
	if err != nil {
		return "", err
	}

	version, err := ParseVersion(result.Output)
	if err != nil {
		return "", fmt.Errorf("cannot determine %s version: %w", interpreter, err)
	}

	ok, err := AtLeast(version, minimum)
	if err != nil {
		return "", err
	}
	if !ok {
		return version, fmt.Errorf("%s reports %s, application requires at least %s", interpreter, version, minimum)
	}
	return version, nil
}
