package config

import (
	"bytes"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/sokinpui/applyit/internal/errors"
	"github.com/sokinpui/applyit/internal/patcher"
	"github.com/sokinpui/applyit/model"
)

// Config is the optional on-disk configuration.
type Config struct {
	Strategy string      `yaml:"strategy" toml:"strategy"`
	Git      GitConfig   `yaml:"git" toml:"git"`
	Fuzzy    FuzzyConfig `yaml:"fuzzy" toml:"fuzzy"`
	Log      LogConfig   `yaml:"log" toml:"log"`
}

// GitConfig configures the external patch tool.
type GitConfig struct {
	Path string `yaml:"path" toml:"path"`
	// Timeout is a duration string such as "30s"; empty means no limit.
	Timeout string `yaml:"timeout" toml:"timeout"`
}

// FuzzyConfig tunes the in-process fuzzy applier.
type FuzzyConfig struct {
	MatchThreshold  *float64 `yaml:"match_threshold" toml:"match_threshold"`
	MatchDistance   *int     `yaml:"match_distance" toml:"match_distance"`
	DeleteThreshold *float64 `yaml:"delete_threshold" toml:"delete_threshold"`
}

// LogConfig configures diagnostics.
type LogConfig struct {
	Verbosity int `yaml:"verbosity" toml:"verbosity"`
}

// projectFiles are searched for in the project root, in order.
var projectFiles = []string{".applyit.yaml", ".applyit.yml", ".applyit.toml"}

// userFiles are searched for in the XDG config directories, in order.
var userFiles = []string{"applyit/config.yaml", "applyit/config.toml"}

// Default returns the configuration used when no file is found.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Discover returns the first config file that exists for the project
// root, or "" when there is none.
func Discover(root string) string {
	for _, name := range projectFiles {
		path := filepath.Join(root, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	for _, rel := range userFiles {
		if path, err := xdg.SearchConfigFile(rel); err == nil {
			return path
		}
	}
	return ""
}

// Load reads and parses a configuration file. The format follows the
// extension: .toml is TOML, anything else is YAML.
func Load(path string) (*Config, error) {
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindConfig, "failed to read config file").WithPath(path)
	}

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(&cfg)
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err = dec.Decode(&cfg); stderrors.Is(err, io.EOF) {
			// A file with no YAML document is an empty configuration.
			err = nil
		}
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.KindConfig, "failed to parse config file").WithPath(path)
	}

	cfg.Git.Path = os.ExpandEnv(cfg.Git.Path)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.KindConfig, "invalid configuration").WithPath(path)
	}
	return &cfg, nil
}

// applyDefaults fills in zero-value fields.
func (c *Config) applyDefaults() {
	if c.Strategy == "" {
		c.Strategy = model.StrategyMarkdown.String()
	}
	if c.Git.Path == "" {
		c.Git.Path = "git"
	}
	defaults := patcher.DefaultFuzzyOptions()
	if c.Fuzzy.MatchThreshold == nil {
		c.Fuzzy.MatchThreshold = &defaults.MatchThreshold
	}
	if c.Fuzzy.MatchDistance == nil {
		c.Fuzzy.MatchDistance = &defaults.MatchDistance
	}
	if c.Fuzzy.DeleteThreshold == nil {
		c.Fuzzy.DeleteThreshold = &defaults.DeleteThreshold
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, err := model.ParseStrategy(c.Strategy); err != nil {
		return err
	}
	if _, err := c.GitTimeout(); err != nil {
		return err
	}
	if t := *c.Fuzzy.MatchThreshold; t < 0 || t > 1 {
		return errors.Newf(errors.KindConfig, "fuzzy.match_threshold must be between 0 and 1: %v", t)
	}
	if t := *c.Fuzzy.DeleteThreshold; t < 0 || t > 1 {
		return errors.Newf(errors.KindConfig, "fuzzy.delete_threshold must be between 0 and 1: %v", t)
	}
	if *c.Fuzzy.MatchDistance < 0 {
		return errors.Newf(errors.KindConfig, "fuzzy.match_distance must not be negative: %d", *c.Fuzzy.MatchDistance)
	}
	if c.Log.Verbosity < 0 {
		return errors.Newf(errors.KindConfig, "log.verbosity must not be negative: %d", c.Log.Verbosity)
	}
	return nil
}

// GitTimeout parses git.timeout. Empty means no timeout.
func (c *Config) GitTimeout() (time.Duration, error) {
	if c.Git.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Git.Timeout)
	if err != nil {
		return 0, errors.Wrapf(err, errors.KindConfig, "invalid git.timeout %q", c.Git.Timeout)
	}
	if d < 0 {
		return 0, errors.Newf(errors.KindConfig, "git.timeout must not be negative: %s", c.Git.Timeout)
	}
	return d, nil
}

// FuzzyOptions converts the fuzzy section for the applier.
func (c *Config) FuzzyOptions() patcher.FuzzyOptions {
	opts := patcher.DefaultFuzzyOptions()
	if c.Fuzzy.MatchThreshold != nil {
		opts.MatchThreshold = *c.Fuzzy.MatchThreshold
	}
	if c.Fuzzy.MatchDistance != nil {
		opts.MatchDistance = *c.Fuzzy.MatchDistance
	}
	if c.Fuzzy.DeleteThreshold != nil {
		opts.DeleteThreshold = *c.Fuzzy.DeleteThreshold
	}
	return opts
}
