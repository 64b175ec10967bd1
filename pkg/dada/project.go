package dada

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/dada-lang/dada-model-sub000/pkg/check"
	"github.com/dada-lang/dada-model-sub000/pkg/judge"
)

// ConfigFile is the name of the project configuration file.
const ConfigFile = "dada.toml"

// Config represents a dada.toml project configuration file.
type Config struct {
	Check  CheckConfig  `toml:"check"`
	Output OutputConfig `toml:"output"`
}

// CheckConfig bounds the search performed for each declaration. Zero values
// take the checker's defaults.
type CheckConfig struct {
	Fuel        int `toml:"fuel,omitempty"`
	MaxDepth    int `toml:"max_depth,omitempty"`
	MaxOutcomes int `toml:"max_outcomes,omitempty"`

	// Workers is the number of declarations checked concurrently.
	Workers int `toml:"workers,omitempty"`
}

// OutputConfig controls how diagnostics are rendered.
type OutputConfig struct {
	// Dedupe prints only the distinct leaf reasons instead of the full tree
	// of attempted rules.
	Dedupe bool `toml:"dedupe"`

	// Color forces colored output on or off. When unset, color is used
	// only if the output is a terminal.
	Color *bool `toml:"color,omitempty"`

	// Width truncates long diagnostic lines.
	Width int `toml:"width,omitempty"`
}

// Options converts the [check] table into checker options.
func (c *Config) Options() check.Options {
	if c == nil {
		return check.Options{}
	}
	return check.Options{
		Budget: judge.Budget{
			Fuel:        c.Check.Fuel,
			MaxDepth:    c.Check.MaxDepth,
			MaxOutcomes: c.Check.MaxOutcomes,
		},
		Workers: c.Check.Workers,
	}
}

// LoadProjectConfig loads a dada.toml file from the given path.
func LoadProjectConfig(path string) (*Config, error) {
	var config Config
	md, err := toml.DecodeFile(path, &config)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	if config.Check.Fuel < 0 || config.Check.MaxDepth < 0 || config.Check.MaxOutcomes < 0 || config.Check.Workers < 0 || config.Output.Width < 0 {
		return nil, errors.Errorf("%s: limits must not be negative", path)
	}
	return &config, nil
}

// FindProjectConfig searches for a dada.toml file starting from dir and
// walking up to parent directories. Returns the path to dada.toml and the
// parsed config, or ("", nil, nil) if not found.
func FindProjectConfig(dir string) (string, *Config, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, err
	}
	for {
		path := filepath.Join(dir, ConfigFile)
		if _, err := os.Stat(path); err == nil {
			config, err := LoadProjectConfig(path)
			if err != nil {
				return "", nil, err
			}
			return path, config, nil
		}

		// Stop at .git boundary
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return "", nil, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil, nil
		}
		dir = parent
	}
}
