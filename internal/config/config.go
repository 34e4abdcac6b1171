package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"tagclass/internal/parse"
	"tagclass/internal/vocab"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("config: invalid")

// Config holds all tagclass configuration.
type Config struct {
	// Seed vocabulary files
	Vocabulary VocabularyConfig `yaml:"vocabulary"`

	// Incremental update loop and rounds
	Update UpdateConfig `yaml:"update"`

	// Label parsing
	Parse ParseConfig `yaml:"parse"`

	// Alias rule mining
	Alias AliasConfig `yaml:"alias"`

	// SQLite checkpoints and candidates
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// VocabularyConfig locates the vocabulary files. Each file holds a fixed
// group of roots.
type VocabularyConfig struct {
	Dir      string `yaml:"dir"`
	Locator  string `yaml:"locator"`  // behavior, platform, method
	Family   string `yaml:"family"`   // family
	Modifier string `yaml:"modifier"` // modifier
}

// UpdateConfig configures the LFS/CFS loop.
type UpdateConfig struct {
	ThresholdCFS int    `yaml:"threshold_cfs"`
	MaxRounds    int    `yaml:"max_rounds"`
	LFSMode      string `yaml:"lfs_mode"` // parsing, updating
}

// ParseConfig configures label parsing.
type ParseConfig struct {
	Workers       int  `yaml:"workers"`
	Uniform       bool `yaml:"uniform"`
	IgnoreGeneric bool `yaml:"ignore_generic"`
}

// AliasConfig configures the frequent itemset miner.
type AliasConfig struct {
	Threshold int `yaml:"threshold"`
	MaxLen    int `yaml:"max_len"`
}

// StoreConfig configures the SQLite store.
type StoreConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DatabasePath string `yaml:"database_path"`
}

// Vocabulary file groups.
const (
	GroupLocator  = "locator"
	GroupFamily   = "family"
	GroupModifier = "modifier"
)

// Groups lists the vocabulary file groups in load order.
var Groups = []string{GroupLocator, GroupFamily, GroupModifier}

// GroupRoots maps each file group to the roots saved in it.
var GroupRoots = map[string][]vocab.Root{
	GroupLocator:  vocab.Locators,
	GroupFamily:   {vocab.RootFamily},
	GroupModifier: {vocab.RootModifier},
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Vocabulary: VocabularyConfig{
			Dir:      "vocabulary",
			Locator:  "locator.yaml",
			Family:   "family.yaml",
			Modifier: "modifier.yaml",
		},
		Update: UpdateConfig{
			ThresholdCFS: 10,
			MaxRounds:    5,
			LFSMode:      string(parse.ModeUpdate),
		},
		Parse: ParseConfig{
			Workers: 4,
		},
		Alias: AliasConfig{
			Threshold: 20,
			MaxLen:    5,
		},
		Store: StoreConfig{
			DatabasePath: "data/tagclass.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv("TAGCLASS_VOCAB_DIR"); dir != "" {
		c.Vocabulary.Dir = dir
	}
	if path := os.Getenv("TAGCLASS_DB"); path != "" {
		c.Store.DatabasePath = path
		c.Store.Enabled = true
	}
	if level := os.Getenv("TAGCLASS_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if v := os.Getenv("TAGCLASS_THRESHOLD_CFS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Update.ThresholdCFS = n
		}
	}
}

// File returns the path of a vocabulary group file.
func (v VocabularyConfig) File(group string) string {
	name := ""
	switch group {
	case GroupLocator:
		name = v.Locator
	case GroupFamily:
		name = v.Family
	case GroupModifier:
		name = v.Modifier
	}
	if name == "" {
		return ""
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(v.Dir, name)
}

// Files returns every vocabulary file path in load order.
func (v VocabularyConfig) Files() []string {
	out := make([]string, 0, len(Groups))
	for _, g := range Groups {
		if p := v.File(g); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Mode returns the configured LFS mode.
func (c *Config) Mode() parse.Mode {
	return parse.Mode(c.Update.LFSMode)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Vocabulary.Dir == "" {
		return fmt.Errorf("%w: vocabulary dir is empty", ErrInvalidConfig)
	}
	if len(c.Vocabulary.Files()) == 0 {
		return fmt.Errorf("%w: no vocabulary file configured", ErrInvalidConfig)
	}
	if c.Update.ThresholdCFS < 1 {
		return fmt.Errorf("%w: update.threshold_cfs must be positive, got %d", ErrInvalidConfig, c.Update.ThresholdCFS)
	}
	if c.Update.MaxRounds < 1 {
		return fmt.Errorf("%w: update.max_rounds must be positive, got %d", ErrInvalidConfig, c.Update.MaxRounds)
	}
	if _, err := parse.ParseMode(c.Update.LFSMode); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Parse.Workers < 1 {
		return fmt.Errorf("%w: parse.workers must be positive, got %d", ErrInvalidConfig, c.Parse.Workers)
	}
	if c.Alias.Threshold < 1 || c.Alias.MaxLen < 1 {
		return fmt.Errorf("%w: alias threshold and max_len must be positive", ErrInvalidConfig)
	}
	if c.Store.Enabled && c.Store.DatabasePath == "" {
		return fmt.Errorf("%w: store enabled without database_path", ErrInvalidConfig)
	}
	return nil
}
