package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagclass/internal/parse"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 10, cfg.Update.ThresholdCFS)
	assert.Equal(t, 5, cfg.Update.MaxRounds)
	assert.Equal(t, parse.ModeUpdate, cfg.Mode())
	assert.Equal(t, 20, cfg.Alias.Threshold)
	assert.Equal(t, 5, cfg.Alias.MaxLen)
	assert.Equal(t, 4, cfg.Parse.Workers)
	assert.Equal(t, []string{
		filepath.Join("vocabulary", "locator.yaml"),
		filepath.Join("vocabulary", "family.yaml"),
		filepath.Join("vocabulary", "modifier.yaml"),
	}, cfg.Vocabulary.Files())
	require.NoError(t, cfg.Validate())
}

func TestConfig_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "tagclass.yaml")

	cfg := DefaultConfig()
	cfg.Update.ThresholdCFS = 3
	cfg.Parse.IgnoreGeneric = true
	cfg.Vocabulary.Family = "/abs/family.yaml"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Update.ThresholdCFS)
	assert.True(t, loaded.Parse.IgnoreGeneric)
	assert.Equal(t, "/abs/family.yaml", loaded.Vocabulary.File(GroupFamily))
	assert.Equal(t, 4, loaded.Parse.Workers)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tagclass.yaml")
	require.NoError(t, os.WriteFile(path, []byte("update:\n  max_rounds: 2\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Update.MaxRounds)
	assert.Equal(t, 10, cfg.Update.ThresholdCFS)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tagclass.yaml")
	require.NoError(t, os.WriteFile(path, []byte("update: [\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty dir", func(c *Config) { c.Vocabulary.Dir = "" }},
		{"no files", func(c *Config) { c.Vocabulary = VocabularyConfig{Dir: "v"} }},
		{"threshold", func(c *Config) { c.Update.ThresholdCFS = 0 }},
		{"rounds", func(c *Config) { c.Update.MaxRounds = 0 }},
		{"mode", func(c *Config) { c.Update.LFSMode = "training" }},
		{"workers", func(c *Config) { c.Parse.Workers = 0 }},
		{"alias", func(c *Config) { c.Alias.MaxLen = 0 }},
		{"store", func(c *Config) { c.Store = StoreConfig{Enabled: true} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLoggingConfig(t *testing.T) {
	c := LoggingConfig{Level: "debug", Categories: map[string]bool{"alias": false}}
	assert.False(t, c.IsCategoryEnabled("alias"))
	assert.True(t, c.IsCategoryEnabled("update"))

	lc := c.Logging()
	assert.Equal(t, "debug", lc.Level)
	assert.Equal(t, c.Categories, lc.Categories)
}
