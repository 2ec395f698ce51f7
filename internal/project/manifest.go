// Package project loads the plasma.toml manifest describing a Plasma
// project: its name and entry source file.
package project

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ManifestName is the file the CLI looks for in the working directory.
const ManifestName = "plasma.toml"

// Config is the parsed manifest contents.
type Config struct {
	Package PackageConfig `toml:"package"`
	Build   BuildConfig   `toml:"build"`
}

// PackageConfig names the project.
type PackageConfig struct {
	Name  string `toml:"name"`
	Entry string `toml:"entry"`
}

// BuildConfig holds build tuning knobs.
type BuildConfig struct {
	Output         string `toml:"output"`
	MaxDiagnostics int    `toml:"max_diagnostics"`
	NoCache        bool   `toml:"no_cache"`
}

// Manifest couples the parsed config with its location.
type Manifest struct {
	Root   string
	Config Config
}

// Load reads the manifest from dir. The second result is false when no
// manifest exists there.
func Load(dir string) (*Manifest, bool, error) {
	path := filepath.Join(dir, ManifestName)
	data, err := os.ReadFile(path) // #nosec G304 -- path is cwd-relative
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, false, err
	}
	if cfg.Package.Entry == "" {
		return nil, false, errors.New("plasma.toml: package.entry is required")
	}
	return &Manifest{Root: dir, Config: cfg}, true, nil
}

// EntryPath resolves the entry file relative to the manifest root.
func (m *Manifest) EntryPath() string {
	return filepath.Join(m.Root, m.Config.Package.Entry)
}

// OutputPath picks the output file: configured, or derived from the
// entry name.
func (m *Manifest) OutputPath() string {
	if m.Config.Build.Output != "" {
		return filepath.Join(m.Root, m.Config.Build.Output)
	}
	entry := m.Config.Package.Entry
	ext := filepath.Ext(entry)
	return filepath.Join(m.Root, entry[:len(entry)-len(ext)]+".pzt")
}
