// Application configuration loaded from TOML with defaults
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"

	"deep-fryer/internal/core"
	"deep-fryer/internal/loader"
)

// Duration decodes TOML strings such as "100ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config holds every tunable of the viewer.
type Config struct {
	Threshold    int      `toml:"threshold"`
	Debounce     Duration `toml:"debounce"`
	DropStale    bool     `toml:"drop_stale"`
	Decoder      string   `toml:"decoder"`
	MaxDimension int      `toml:"max_dimension"`
	Metrics      bool     `toml:"metrics"`
	Watch        bool     `toml:"watch"`
	LogLevel     string   `toml:"log_level"`
	Preset       string   `toml:"preset"`
	WindowWidth  float32  `toml:"window_width"`
	WindowHeight float32  `toml:"window_height"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Threshold:    core.DefaultThreshold,
		Debounce:     Duration{core.DefaultDebounce},
		Decoder:      "std",
		Metrics:      true,
		LogLevel:     "info",
		Preset:       loader.DefaultPreset,
		WindowWidth:  1600,
		WindowHeight: 900,
	}
}

// Load reads path over the defaults. A missing file is not an error when
// path is empty; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("config file not found: %w", err)
		}
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("unknown config keys in %s: %v", path, undecoded)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	var errs []error

	if c.Threshold < 0 || c.Threshold > 255 {
		errs = append(errs, fmt.Errorf("threshold %d outside [0, 255]", c.Threshold))
	}
	if c.Debounce.Duration < 0 {
		errs = append(errs, fmt.Errorf("debounce must not be negative: %s", c.Debounce.Duration))
	}
	if c.Decoder != "std" && c.Decoder != "opencv" {
		errs = append(errs, fmt.Errorf("decoder must be \"std\" or \"opencv\", got %q", c.Decoder))
	}
	if c.MaxDimension < 0 {
		errs = append(errs, fmt.Errorf("max_dimension must not be negative: %d", c.MaxDimension))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.Preset != "" && !isPreset(c.Preset) {
		errs = append(errs, fmt.Errorf("unknown preset %q", c.Preset))
	}
	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		errs = append(errs, fmt.Errorf("window size must be positive: %gx%g", c.WindowWidth, c.WindowHeight))
	}

	return errors.Join(errs...)
}

// ControllerOptions maps the config onto controller options. The evaluator
// is left to the caller.
func (c Config) ControllerOptions() core.Options {
	return core.Options{
		Threshold: c.Threshold,
		Debounce:  c.Debounce.Duration,
		DropStale: c.DropStale,
	}
}

// LoaderOptions maps the config onto loader options.
func (c Config) LoaderOptions() loader.Options {
	return loader.Options{
		Decoder:      c.Decoder,
		MaxDimension: c.MaxDimension,
	}
}

func isPreset(id string) bool {
	for _, p := range loader.Presets() {
		if p == id {
			return true
		}
	}
	return false
}
