package ginsync

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk YAML configuration consumed by the ginsync CLI.
//
// Example:
//
//	salt: 1
//	cacheDir: /var/cache/ginsync
//	sources:
//	  - name: ecephys
//	    remote: https://gin.g-node.org/NeuralEnsemble/ephy_testing_data
//	    localPath: /data/ephy_testing_data
//	  - name: ophys
//	    remote: https://gin.g-node.org/CatalystNeuro/ophys_testing_data
//	    localPath: /data/ophys_testing_data
//	  - name: behavior
//	    remote: https://gin.g-node.org/CatalystNeuro/behavior_testing_data
//	    localPath: /data/behavior_testing_data
type Config struct {
	// Salt versions every cache key; bump it to force fresh fetches for all
	// sources at once.
	Salt int `yaml:"salt"`

	// Scope optionally prefixes every key, keeping entries separate between
	// environments that share a store.
	Scope string `yaml:"scope,omitempty"`

	// CacheDir overrides the default entry store location.
	CacheDir string `yaml:"cacheDir,omitempty"`

	// Sources lists the datasets to synchronize.
	Sources []Source `yaml:"sources"`
}

var scopeRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// LoadConfig reads and validates a YAML configuration file. Unknown fields
// are rejected so typos surface instead of being silently dropped.
func LoadConfig(fs billy.Filesystem, path string) (*Config, error) {
	data, err := util.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", ErrInvalidConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the whole configuration. It runs before any pipeline
// starts, so a malformed config never produces partial work.
func (c *Config) Validate() error {
	if c.Salt < 0 {
		return fmt.Errorf("%w: salt must not be negative", ErrInvalidConfig)
	}
	if c.Scope != "" && !scopeRe.MatchString(c.Scope) {
		return fmt.Errorf("%w: scope %q must be a plain identifier", ErrInvalidConfig, c.Scope)
	}
	if len(c.Sources) == 0 {
		return fmt.Errorf("%w: no sources defined", ErrInvalidConfig)
	}
	return ValidateSources(c.Sources)
}

// Select returns the named sources in input order, or all sources when names
// is empty. Unknown names are reported as ErrUnknownSource.
func (c *Config) Select(names []string) ([]Source, error) {
	if len(names) == 0 {
		return c.Sources, nil
	}

	byName := make(map[string]Source, len(c.Sources))
	for _, src := range c.Sources {
		byName[src.Name] = src
	}

	out := make([]Source, 0, len(names))
	for _, name := range names {
		src, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s (configured: %s)", ErrUnknownSource, name, c.sourceNames())
		}
		out = append(out, src)
	}
	return out, nil
}

func (c *Config) sourceNames() string {
	names := ""
	for i, src := range c.Sources {
		if i > 0 {
			names += ", "
		}
		names += src.Name
	}
	return names
}
