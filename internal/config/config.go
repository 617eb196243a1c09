// Package config provides Viper-based configuration management for reducepic
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/AnyUserName/reducepic/internal/sizefit"
)

// Config represents the complete reducepic configuration
type Config struct {
	Encode  EncodeConfig  `mapstructure:"encode"`
	Batch   BatchConfig   `mapstructure:"batch"`
	Output  OutputConfig  `mapstructure:"output"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// EncodeConfig tunes the size-targeting search
type EncodeConfig struct {
	Format         string  `mapstructure:"format"`
	StartQuality   float64 `mapstructure:"start_quality"`
	MinQuality     float64 `mapstructure:"min_quality"`
	CoarseStep     float64 `mapstructure:"coarse_step"`
	FineStep       float64 `mapstructure:"fine_step"`
	FineBelow      float64 `mapstructure:"fine_below"`
	ScaleStep      float64 `mapstructure:"scale_step"`
	SmallScaleStep float64 `mapstructure:"small_scale_step"`
	SmallDimension int     `mapstructure:"small_dimension"`
	MinDimension   int     `mapstructure:"min_dimension"`
	Tolerance      int64   `mapstructure:"tolerance"` // bytes; negative disables
	DefaultQuality float64 `mapstructure:"default_quality"`
}

// BatchConfig contains batch run settings
type BatchConfig struct {
	Parallelism    int    `mapstructure:"parallelism"`
	OutDir         string `mapstructure:"out_dir"`
	KeepBestEffort bool   `mapstructure:"keep_best_effort"`
}

// OutputConfig contains output formatting settings
type OutputConfig struct {
	Colors   bool `mapstructure:"colors"`
	Progress bool `mapstructure:"progress"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		// Search paths for .reducepic.yaml
		v.SetConfigName(".reducepic")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/reducepic")
	}

	// Environment variables: REDUCEPIC_BATCH_PARALLELISM etc.
	v.SetEnvPrefix("REDUCEPIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file or env is present
func Default() *Config {
	d := sizefit.DefaultOptions()
	return &Config{
		Encode: EncodeConfig{
			Format:         d.Format,
			StartQuality:   d.StartQuality,
			MinQuality:     d.MinQuality,
			CoarseStep:     d.CoarseStep,
			FineStep:       d.FineStep,
			FineBelow:      d.FineBelow,
			ScaleStep:      d.ScaleStep,
			SmallScaleStep: d.SmallScaleStep,
			SmallDimension: d.SmallDimension,
			MinDimension:   d.MinDimension,
			Tolerance:      d.Tolerance,
			DefaultQuality: d.DefaultQuality,
		},
		Batch: BatchConfig{
			Parallelism: 4,
			OutDir:      "./reducepic_out",
		},
		Output: OutputConfig{
			Colors:   true,
			Progress: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// setDefaults configures default values
func setDefaults(v *viper.Viper) {
	d := Default()

	// Encode defaults
	v.SetDefault("encode.format", d.Encode.Format)
	v.SetDefault("encode.start_quality", d.Encode.StartQuality)
	v.SetDefault("encode.min_quality", d.Encode.MinQuality)
	v.SetDefault("encode.coarse_step", d.Encode.CoarseStep)
	v.SetDefault("encode.fine_step", d.Encode.FineStep)
	v.SetDefault("encode.fine_below", d.Encode.FineBelow)
	v.SetDefault("encode.scale_step", d.Encode.ScaleStep)
	v.SetDefault("encode.small_scale_step", d.Encode.SmallScaleStep)
	v.SetDefault("encode.small_dimension", d.Encode.SmallDimension)
	v.SetDefault("encode.min_dimension", d.Encode.MinDimension)
	v.SetDefault("encode.tolerance", d.Encode.Tolerance)
	v.SetDefault("encode.default_quality", d.Encode.DefaultQuality)

	// Batch defaults
	v.SetDefault("batch.parallelism", d.Batch.Parallelism)
	v.SetDefault("batch.out_dir", d.Batch.OutDir)
	v.SetDefault("batch.keep_best_effort", d.Batch.KeepBestEffort)

	// Output defaults
	v.SetDefault("output.colors", d.Output.Colors)
	v.SetDefault("output.progress", d.Output.Progress)

	// Logging defaults
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// validate checks the configuration for errors
func validate(cfg *Config) error {
	e := cfg.Encode
	for name, q := range map[string]float64{
		"start_quality":   e.StartQuality,
		"min_quality":     e.MinQuality,
		"default_quality": e.DefaultQuality,
	} {
		if q <= 0 || q > 1 {
			return fmt.Errorf("invalid encode.%s: %g (must be in (0, 1])", name, q)
		}
	}
	if e.MinQuality > e.StartQuality {
		return fmt.Errorf("encode.min_quality %g is above encode.start_quality %g", e.MinQuality, e.StartQuality)
	}
	if e.ScaleStep <= 0 || e.ScaleStep >= 1 || e.SmallScaleStep <= 0 || e.SmallScaleStep >= 1 {
		return fmt.Errorf("invalid scale steps %g/%g (must be in (0, 1))", e.ScaleStep, e.SmallScaleStep)
	}
	if e.MinDimension < 1 {
		return fmt.Errorf("invalid encode.min_dimension: %d", e.MinDimension)
	}

	if cfg.Batch.Parallelism < 1 {
		return fmt.Errorf("invalid batch.parallelism: %d (must be at least 1)", cfg.Batch.Parallelism)
	}

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s (must be text or json)", cfg.Logging.Format)
	}

	return nil
}

// SizefitOptions converts the encode section into search options
func (c *Config) SizefitOptions() sizefit.Options {
	e := c.Encode
	tol := e.Tolerance
	if tol == 0 {
		// Zero in the file means "no slack", not "use the default".
		tol = -1
	}
	return sizefit.Options{
		Format:         e.Format,
		StartQuality:   e.StartQuality,
		MinQuality:     e.MinQuality,
		CoarseStep:     e.CoarseStep,
		FineStep:       e.FineStep,
		FineBelow:      e.FineBelow,
		ScaleStep:      e.ScaleStep,
		SmallScaleStep: e.SmallScaleStep,
		SmallDimension: e.SmallDimension,
		MinDimension:   e.MinDimension,
		Tolerance:      tol,
		DefaultQuality: e.DefaultQuality,
	}
}
