package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 0.2, cfg.Paste.ConflictRatio)
	assert.Equal(t, 8, cfg.Paste.SealMax)
	assert.Equal(t, 4, cfg.Paste.InscriptionMax)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
paths:
  backgrounds: /data/bg
  output: /data/out
paste:
  conflict_ratio: 0.5
  seal_max: 3
resize:
  size: 800
run:
  seed: 42
  workers: 2
log:
  mode: production
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/bg", cfg.Paths.Backgrounds)
	assert.Equal(t, "./data/objects", cfg.Paths.Objects)
	assert.Equal(t, "/data/out", cfg.Paths.Output)
	assert.Equal(t, 0.5, cfg.Paste.ConflictRatio)
	assert.Equal(t, 3, cfg.Paste.SealMax)
	assert.Equal(t, 4, cfg.Paste.InscriptionMax)
	assert.Equal(t, 800, cfg.Resize.Size)
	assert.Equal(t, int64(42), cfg.Run.Seed)
	assert.Equal(t, 2, cfg.Run.Workers)
	assert.Equal(t, "production", cfg.Log.Mode)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SEALCOMP_PASTE_SEAL_MAX", "2")
	t.Setenv("SEALCOMP_RUN_WORKERS", "7")

	cfg, err := Load(writeConfig(t, "paste:\n  seal_max: 5\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Paste.SealMax)
	assert.Equal(t, 7, cfg.Run.Workers)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(writeConfig(t, "paste:\n  conflict_ratio: 1.5\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "paste: [unclosed\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative ratio", func(c *Config) { c.Paste.ConflictRatio = -0.1 }},
		{"ratio above one", func(c *Config) { c.Paste.ConflictRatio = 1.01 }},
		{"zero seal max", func(c *Config) { c.Paste.SealMax = 0 }},
		{"zero inscription max", func(c *Config) { c.Paste.InscriptionMax = 0 }},
		{"negative size", func(c *Config) { c.Resize.Size = -1 }},
		{"no workers", func(c *Config) { c.Run.Workers = 0 }},
		{"unknown log mode", func(c *Config) { c.Log.Mode = "verbose" }},
	}

	require.NoError(t, Default().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
