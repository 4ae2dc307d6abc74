// Package config loads the startup configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"facegauge/settings"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

const maxFileSize = 1 << 20

type CameraConfig struct {
	// Device is a camera index ("0") or a file/stream URL.
	Device string `yaml:"device"`
	// ReconnectInterval is the delay between reopen attempts after a read failure.
	ReconnectInterval string `yaml:"reconnect_interval"`
}

// DisplayConfig is the displayed element's bounding box in pointer
// coordinates. Clicks are mapped from this rect into frame pixels.
type DisplayConfig struct {
	Title  string  `yaml:"title"`
	Left   float64 `yaml:"left"`
	Top    float64 `yaml:"top"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

type OverlayConfig struct {
	Status        bool `yaml:"status"`
	Terminal      bool `yaml:"terminal"`
	TerminalLines int  `yaml:"terminal_lines"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	Camera       CameraConfig      `yaml:"camera"`
	Display      DisplayConfig     `yaml:"display"`
	Overlay      OverlayConfig     `yaml:"overlay"`
	Log          LogConfig         `yaml:"log"`
	Settings     settings.Settings `yaml:"settings"`
	Source       string            `yaml:"source"`
	TickInterval string            `yaml:"tick_interval"`
	ResultsDir   string            `yaml:"results_dir"`
}

// Default returns the configuration used when no file is given. Fields a
// file omits keep these values.
func Default() *Config {
	return &Config{
		Camera: CameraConfig{Device: "0", ReconnectInterval: "2s"},
		Display: DisplayConfig{
			Title:  "facegauge",
			Width:  640,
			Height: 480,
		},
		Overlay:      OverlayConfig{Status: true, Terminal: true, TerminalLines: 6},
		Log:          LogConfig{Level: "info", Format: "console"},
		Settings:     settings.Default(),
		Source:       "simulator",
		TickInterval: "1s",
		ResultsDir:   "results",
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	clean := filepath.Clean(path)
	if ext := filepath.Ext(clean); ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .yaml extension, got %q", ext)
	}
	info, err := os.Stat(clean)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}
	f, err := os.Open(clean)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()
	return LoadYAML(f)
}

// LoadYAML decodes r over the defaults. An empty document yields the defaults.
func LoadYAML(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every value. Invalid settings are rejected, not replaced.
func (c *Config) Validate() error {
	if c.Camera.Device == "" {
		return fmt.Errorf("%w: camera.device is empty", ErrInvalidConfig)
	}
	if _, err := c.Reconnect(); err != nil {
		return err
	}
	if _, err := c.Tick(); err != nil {
		return err
	}
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		return fmt.Errorf("%w: display size must be positive, got %gx%g", ErrInvalidConfig, c.Display.Width, c.Display.Height)
	}
	if c.Overlay.TerminalLines < 0 {
		return fmt.Errorf("%w: overlay.terminal_lines must not be negative", ErrInvalidConfig)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Log.Format)
	}
	if err := c.Settings.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Tick parses the tick interval.
func (c *Config) Tick() (time.Duration, error) {
	return positiveDuration("tick_interval", c.TickInterval)
}

// Reconnect parses the camera reconnect interval.
func (c *Config) Reconnect() (time.Duration, error) {
	return positiveDuration("camera.reconnect_interval", c.Camera.ReconnectInterval)
}

func positiveDuration(name, v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q: %v", ErrInvalidConfig, name, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive, got %s", ErrInvalidConfig, name, d)
	}
	return d, nil
}
