// Package config loads seal-compositor settings from a YAML file, with
// SEALCOMP_* environment variables overriding file values.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides: SEALCOMP_PASTE_CONFLICT_RATIO
// sets paste.conflict_ratio.
const EnvPrefix = "SEALCOMP"

type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	Paths  PathsConfig  `mapstructure:"paths"`
	Paste  PasteConfig  `mapstructure:"paste"`
	Resize ResizeConfig `mapstructure:"resize"`
	Run    RunConfig    `mapstructure:"run"`
}

type LogConfig struct {
	// Mode is "development" or "production".
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

type PathsConfig struct {
	Backgrounds string `mapstructure:"backgrounds"`
	Objects     string `mapstructure:"objects"`
	Output      string `mapstructure:"output"`
}

type PasteConfig struct {
	// ConflictRatio is the share of objects per image that must overlap
	// the painting's foreground.
	ConflictRatio  float64 `mapstructure:"conflict_ratio"`
	SealMax        int     `mapstructure:"seal_max"`
	InscriptionMax int     `mapstructure:"inscription_max"`
}

type ResizeConfig struct {
	// Size > 0 scales each background's shorter side to Size and crops a
	// random Size×Size square. 0 keeps backgrounds as they are.
	Size int `mapstructure:"size"`
}

type RunConfig struct {
	// Seed 0 seeds from the clock.
	Seed    int64 `mapstructure:"seed"`
	Workers int   `mapstructure:"workers"`
}

// Load reads configPath. An empty path, or a path that does not exist,
// yields the defaults with environment overrides applied.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("log.mode", d.Log.Mode)
	v.SetDefault("log.level", d.Log.Level)

	v.SetDefault("paths.backgrounds", d.Paths.Backgrounds)
	v.SetDefault("paths.objects", d.Paths.Objects)
	v.SetDefault("paths.output", d.Paths.Output)

	v.SetDefault("paste.conflict_ratio", d.Paste.ConflictRatio)
	v.SetDefault("paste.seal_max", d.Paste.SealMax)
	v.SetDefault("paste.inscription_max", d.Paste.InscriptionMax)

	v.SetDefault("resize.size", d.Resize.Size)

	v.SetDefault("run.seed", d.Run.Seed)
	v.SetDefault("run.workers", d.Run.Workers)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Mode:  "development",
			Level: "info",
		},
		Paths: PathsConfig{
			Backgrounds: "./data/nosi",
			Objects:     "./data/objects",
			Output:      "./data/pasted",
		},
		Paste: PasteConfig{
			ConflictRatio:  0.2,
			SealMax:        8,
			InscriptionMax: 4,
		},
		Resize: ResizeConfig{Size: 0},
		Run: RunConfig{
			Seed:    0,
			Workers: 4,
		},
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	r := c.Paste.ConflictRatio
	if math.IsNaN(r) || r < 0 || r > 1 {
		return fmt.Errorf("paste.conflict_ratio must be within [0, 1], got %v", r)
	}
	if c.Paste.SealMax <= 0 {
		return fmt.Errorf("paste.seal_max must be positive, got %d", c.Paste.SealMax)
	}
	if c.Paste.InscriptionMax <= 0 {
		return fmt.Errorf("paste.inscription_max must be positive, got %d", c.Paste.InscriptionMax)
	}
	if c.Resize.Size < 0 {
		return fmt.Errorf("resize.size must not be negative, got %d", c.Resize.Size)
	}
	if c.Run.Workers <= 0 {
		return fmt.Errorf("run.workers must be positive, got %d", c.Run.Workers)
	}
	switch c.Log.Mode {
	case "development", "production":
	default:
		return fmt.Errorf("log.mode must be development or production, got %q", c.Log.Mode)
	}
	return nil
}
