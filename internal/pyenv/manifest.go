package pyenv

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/afero"
)

// Requirement is one declared dependency, e.g. "flask==3.0.0".
type Requirement struct {
	Name string
	// Specifier is everything after the name, e.g. "==3.0.0".
	Specifier string
	Line      int
}

func (r Requirement) String() string {
	return r.Name + r.Specifier
}

// Manifest is a parsed requirements file.
type Manifest struct {
	Path         string
	Requirements []Requirement
	// Options holds pip option lines such as "-r base.txt" or "--index-url ...".
	Options []string
}

// ParseManifest reads a pip requirements file.
func ParseManifest(fs afero.Fs, path string) (*Manifest, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dependency manifest: %w", err)
	}
	defer f.Close()

	manifest := &Manifest{Path: path}
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.Index(line, " #"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "-") {
			manifest.Options = append(manifest.Options, line)
			continue
		}
		manifest.Requirements = append(manifest.Requirements, parseRequirement(line, lineNo))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dependency manifest: %w", err)
	}

	return manifest, nil
}

func parseRequirement(line string, lineNo int) Requirement {
	end := strings.IndexAny(line, "=<>!~;[ @")
	if end < 0 {
		return Requirement{Name: line, Line: lineNo}
	}
	return Requirement{
		Name:      strings.TrimSpace(line[:end]),
		Specifier: strings.TrimSpace(line[end:]),
		Line:      lineNo,
	}
}

// Names returns the declared package names.
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.Requirements))
	for _, r := range m.Requirements {
		names = append(names, r.Name)
	}
	return names
}
