// Package config handles optfacts.toml analysis configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/chazu/optfacts/classify"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "optfacts.toml"

// Config represents an optfacts.toml file.
type Config struct {
	Driver Driver `toml:"driver"`
	Seed   Seed   `toml:"seed"`
	Facts  Facts  `toml:"facts"`
	Log    Log    `toml:"log"`

	// Dir is the directory containing the file (set at load time).
	Dir string `toml:"-"`
}

// Driver tunes the fixed-point iteration.
type Driver struct {
	MaxPasses   int  `toml:"max-passes"`
	Parallelism int  `toml:"parallelism"`
	TrackReads  bool `toml:"track-reads"`
	TrackWrites bool `toml:"track-writes"`
}

// Seed lists trusted methods by signature. "owner.*" selects every method
// of a class.
type Seed struct {
	NoSideEffects          []string `toml:"no-side-effects"`
	NoExternalSideEffects  []string `toml:"no-external-side-effects"`
	NoExternalReturnValues []string `toml:"no-external-return-values"`
}

// Facts names exported fact files to import before the first pass, and the
// file to export to afterwards.
type Facts struct {
	Import []string `toml:"import"`
	Export string   `toml:"export"`
}

// Log configures commonlog. Verbosity follows commonlog.Configure: 0 is
// quiet, higher is chattier.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Driver: Driver{
			MaxPasses:   64,
			Parallelism: 1,
			TrackReads:  true,
			TrackWrites: true,
		},
		Log: Log{Verbosity: 1},
	}
}

// Load parses the optfacts.toml file in dir.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile parses a configuration file at any path. Keys missing from the
// file keep their Default values.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	if c.Driver.MaxPasses <= 0 {
		return nil, fmt.Errorf("%s: max-passes must be positive, got %d", path, c.Driver.MaxPasses)
	}
	if c.Driver.Parallelism <= 0 {
		c.Driver.Parallelism = 1
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find an optfacts.toml file, then
// loads it. Returns Default() if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

// Seeds converts the seed section for classify.ApplySeeds.
func (c *Config) Seeds() classify.Seeds {
	return classify.Seeds{
		NoSideEffects:          c.Seed.NoSideEffects,
		NoExternalSideEffects:  c.Seed.NoExternalSideEffects,
		NoExternalReturnValues: c.Seed.NoExternalReturnValues,
	}
}

// ImportPaths returns the fact files to import, relative paths resolved
// against the configuration directory.
func (c *Config) ImportPaths() []string {
	var paths []string
	for _, p := range c.Facts.Import {
		paths = append(paths, c.resolve(p))
	}
	return paths
}

// ExportPath returns the resolved export path, or "" if none is set.
func (c *Config) ExportPath() string {
	if c.Facts.Export == "" {
		return ""
	}
	return c.resolve(c.Facts.Export)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}
