package config

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/Carmen-Shannon/oxy-rig/common"
	"gopkg.in/yaml.v3"
)

// Config holds the settings of the rigtool CLI.
type Config struct {
	// Paths
	Input string `yaml:"input"`
	Cache string `yaml:"cache"`

	// Playback
	Clip      string  `yaml:"clip"`
	Time      float32 `yaml:"time"`
	FPS       float32 `yaml:"fps"`
	Frames    int     `yaml:"frames"`
	Speed     float32 `yaml:"speed"`
	Loop      bool    `yaml:"loop"`
	Instances int     `yaml:"instances"`
	Workers   int     `yaml:"workers"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		FPS:       60,
		Frames:    120,
		Speed:     1,
		Loop:      true,
		Instances: 1,
		Workers:   runtime.NumCPU(),
		LogLevel:  "info",
	}
}

// Load reads a YAML config file on top of Default. An empty path returns the defaults.
// Fields not set in the file keep their default values.
//
// Parameters:
//   - path: the YAML file, or ""
//
// Returns:
//   - Config: the loaded configuration
//   - error: error if the file cannot be read or parsed
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
// Zero values and nil pointers mean "not given".
type Flags struct {
	Input     string
	Cache     string
	Clip      string
	Time      *float32
	FPS       float32
	Frames    int
	Speed     float32
	Loop      *bool
	Instances int
	Workers   int
	LogLevel  string
}

// Resolve applies CLI overrides and fills any remaining invalid values with defaults.
//
// Parameters:
//   - flags: the CLI overrides
func (c *Config) Resolve(flags Flags) {
	c.Input = common.Coalesce(flags.Input, c.Input)
	c.Cache = common.Coalesce(flags.Cache, c.Cache)
	c.Clip = common.Coalesce(flags.Clip, c.Clip)
	c.Speed = common.Coalesce(flags.Speed, c.Speed)
	c.LogLevel = common.Coalesce(flags.LogLevel, c.LogLevel)
	if flags.Time != nil {
		c.Time = *flags.Time
	}
	if flags.FPS > 0 {
		c.FPS = flags.FPS
	}
	if flags.Frames > 0 {
		c.Frames = flags.Frames
	}
	if flags.Loop != nil {
		c.Loop = *flags.Loop
	}
	if flags.Instances > 0 {
		c.Instances = flags.Instances
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}

	def := Default()
	if c.FPS <= 0 {
		c.FPS = def.FPS
	}
	if c.Frames <= 0 {
		c.Frames = def.Frames
	}
	if c.Instances <= 0 {
		c.Instances = def.Instances
	}
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
}

// SlogLevel maps LogLevel to a slog level. Unknown names map to Info.
//
// Returns:
//   - slog.Level: the level
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
