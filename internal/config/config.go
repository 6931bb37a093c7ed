// Package config loads simulator settings from YAML on top of built-in
// defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"evacsim/internal/geo"
	"evacsim/internal/sim"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full simulator configuration.
type Config struct {
	Scenario ScenarioConfig `yaml:"scenario"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ScenarioConfig describes the evacuation being simulated.
type ScenarioConfig struct {
	// EnRouteCount includes the distinguished agent.
	EnRouteCount int `yaml:"en_route_count"`
	// SafeCount agents start at the shelter.
	SafeCount int `yaml:"safe_count"`

	// Bounds is the evacuation zone ordinary agents start from.
	Bounds geo.Rect `yaml:"bounds"`
	// Destination is the shelter every ordinary agent heads to.
	Destination geo.Point `yaml:"destination"`
	// DistinguishedPath is the designated safe route of the tracked agent.
	DistinguishedPath geo.Path `yaml:"distinguished_path"`

	Speeds           sim.Speeds `yaml:"speeds"`
	SafeJitterRadius float64    `yaml:"safe_jitter_radius"`

	// Seed fixes agent placement; 0 picks a time-based seed.
	Seed int64 `yaml:"seed"`
}

// ServerConfig configures the stream server and its tick loop.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// TickInterval is the wall time between tick batches.
	TickInterval time.Duration `yaml:"tick_interval"`
	// Pace is the number of ticks per interval.
	Pace int `yaml:"pace"`
	// StaticDir, when set, is served at / for a browser client.
	StaticDir string `yaml:"static_dir,omitempty"`
}

// LoggingConfig selects log level and format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Shelter is the default destination.
var Shelter = geo.Point{Lat: 34.0395, Lng: -118.6958}

// Default returns the built-in wildfire evacuation scenario.
func Default() *Config {
	return &Config{
		Scenario: ScenarioConfig{
			EnRouteCount: 57,
			SafeCount:    573,
			Bounds: geo.Rect{
				North: 34.045,
				South: 34.020,
				West:  -118.725,
				East:  -118.690,
			},
			Destination: Shelter,
			DistinguishedPath: geo.Path{
				{Lat: 34.0259, Lng: -118.7189},
				{Lat: 34.0281, Lng: -118.7124},
				{Lat: 34.0318, Lng: -118.7087},
				{Lat: 34.0352, Lng: -118.7019},
				{Lat: 34.0377, Lng: -118.6981},
				Shelter,
			},
			Speeds:           sim.DefaultSpeeds,
			SafeJitterRadius: sim.DefaultSafeJitterRadius,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			TickInterval: 16 * time.Millisecond,
			Pace:         1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults and validates the result. An empty
// path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the scenario and server settings.
func (c *Config) Validate() error {
	if err := c.Scenario.Params().Validate(); err != nil {
		return fmt.Errorf("%w: scenario: %w", ErrInvalidConfig, err)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr is empty", ErrInvalidConfig)
	}
	if c.Server.TickInterval <= 0 {
		return fmt.Errorf("%w: server.tick_interval must be positive, got %v", ErrInvalidConfig, c.Server.TickInterval)
	}
	if c.Server.Pace < 0 || c.Server.Pace > sim.MaxPace {
		return fmt.Errorf("%w: server.pace must be within [0, %d], got %d", ErrInvalidConfig, sim.MaxPace, c.Server.Pace)
	}
	return nil
}

// Params converts the scenario into generator parameters.
func (s ScenarioConfig) Params() sim.Params {
	return sim.Params{
		EnRouteCount:      s.EnRouteCount,
		SafeCount:         s.SafeCount,
		Bounds:            s.Bounds,
		Destination:       s.Destination,
		DistinguishedPath: s.DistinguishedPath,
		Speeds:            s.Speeds,
		SafeJitterRadius:  s.SafeJitterRadius,
	}
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
