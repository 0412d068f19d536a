// Package config loads keytouch settings from a TOML file and watches it
// for changes.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the TOML configuration file.
type Config struct {
	Server       ServerConfig       `toml:"server"`
	Store        StoreConfig        `toml:"store"`
	Plugins      PluginsConfig      `toml:"plugins"`
	Log          LogConfig          `toml:"log"`
	Segmentation SegmentationConfig `toml:"segmentation"`
	Gestures     GesturesConfig     `toml:"gestures"`
}

type ServerConfig struct {
	Addr      string `toml:"addr"`
	StaticDir string `toml:"static_dir"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

type PluginsConfig struct {
	Dir       string `toml:"dir"`
	TimeoutMs int    `toml:"timeout_ms"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// SegmentationConfig tunes how paths are split into hold and move segments.
type SegmentationConfig struct {
	WindowMs     float64 `toml:"window_ms"`
	HoldSpeed    float64 `toml:"hold_speed"`
	MinSegmentMs float64 `toml:"min_segment_ms"`
}

// GesturesConfig tunes the keyboard gesture models.
type GesturesConfig struct {
	LongpressMs       int     `toml:"longpress_ms"`
	LongpressRoam     float64 `toml:"longpress_roam"`
	FlickDistance     float64 `toml:"flick_distance"`
	FlickStraightness float64 `toml:"flick_straightness"`
	MultitapDelayMs   int     `toml:"multitap_delay_ms"`
	ShapeMinDistance  float64 `toml:"shape_min_distance"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Addr: ":8080"},
		Store:   StoreConfig{Path: DefaultDBPath()},
		Plugins: PluginsConfig{Dir: DefaultPluginDir(), TimeoutMs: 5000},
		Log:     LogConfig{Level: "info", Format: "text", Output: "stderr"},
		Segmentation: SegmentationConfig{
			WindowMs:     48,
			HoldSpeed:    80,
			MinSegmentMs: 64,
		},
		Gestures: GesturesConfig{
			LongpressMs:       500,
			LongpressRoam:     10,
			FlickDistance:     40,
			FlickStraightness: 0.8,
			MultitapDelayMs:   125,
			ShapeMinDistance:  60,
		},
	}
}

// Load reads a TOML config from path on top of the defaults. A missing file
// is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to stat config: %w", err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the recognizer cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Segmentation.WindowMs <= 0 {
		errs = append(errs, fmt.Errorf("segmentation.window_ms must be positive"))
	}
	if c.Segmentation.HoldSpeed <= 0 {
		errs = append(errs, fmt.Errorf("segmentation.hold_speed must be positive"))
	}
	if c.Segmentation.MinSegmentMs < 0 {
		errs = append(errs, fmt.Errorf("segmentation.min_segment_ms must not be negative"))
	}
	if c.Gestures.LongpressMs <= 0 {
		errs = append(errs, fmt.Errorf("gestures.longpress_ms must be positive"))
	}
	if c.Gestures.MultitapDelayMs <= 0 {
		errs = append(errs, fmt.Errorf("gestures.multitap_delay_ms must be positive"))
	}
	if s := c.Gestures.FlickStraightness; s <= 0 || s > 1 {
		errs = append(errs, fmt.Errorf("gestures.flick_straightness must be in (0, 1]"))
	}
	if c.Plugins.TimeoutMs <= 0 {
		errs = append(errs, fmt.Errorf("plugins.timeout_ms must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Save writes the config to path in TOML form.
func (c *Config) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

// PluginTimeout returns the plugin execution timeout.
func (c *Config) PluginTimeout() time.Duration {
	return time.Duration(c.Plugins.TimeoutMs) * time.Millisecond
}
