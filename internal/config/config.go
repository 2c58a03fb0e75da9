// Package config loads the lap timer's JSON configuration file. Every field
// is optional; the Get* methods supply defaults for anything not set, so a
// partial file (or none at all) is valid.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/lap.timer/internal/serialmux"
	"github.com/banshee-data/lap.timer/internal/stopwatch"
)

// DefaultConfigPath is where the lap timer looks for its config when no
// --config flag is given.
const DefaultConfigPath = "config/laptimer.json"

const (
	DefaultPort   = "/dev/ttyUSB0"
	DefaultListen = ":8080"
)

// Config is the root configuration for the lap timer.
type Config struct {
	// Serial port of the timing gate
	Port     *string `json:"port,omitempty"`
	BaudRate *int    `json:"baud_rate,omitempty"`
	DataBits *int    `json:"data_bits,omitempty"`
	StopBits *int    `json:"stop_bits,omitempty"`
	Parity   *string `json:"parity,omitempty"`

	// Display refresh period while a run is in progress, e.g. "100ms"
	TickInterval *string `json:"tick_interval,omitempty"`

	// HTTP listen address for the API and debug routes
	Listen *string `json:"listen,omitempty"`

	// Journal database path; empty disables the journal
	DBPath *string `json:"db_path,omitempty"`

	Debug *bool `json:"debug,omitempty"`
}

func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }
func ptrBool(v bool) *bool       { return &v }

// EmptyConfig returns a Config with all fields set to nil.
func EmptyConfig() *Config {
	return &Config{}
}

// LoadConfig loads a Config from a JSON file. The file must have a .json
// extension and be under 1MB.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadConfigIfExists loads path if the file exists and returns an empty
// config otherwise.
func LoadConfigIfExists(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return EmptyConfig(), nil
	}
	return LoadConfig(path)
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if c.Port != nil && *c.Port == "" {
		return fmt.Errorf("port must not be empty")
	}

	if _, err := c.PortOptions().Normalise(); err != nil {
		return err
	}

	if c.TickInterval != nil && *c.TickInterval != "" {
		d, err := time.ParseDuration(*c.TickInterval)
		if err != nil {
			return fmt.Errorf("invalid tick_interval '%s': %w", *c.TickInterval, err)
		}
		if d < 10*time.Millisecond {
			return fmt.Errorf("tick_interval must be at least 10ms, got %s", d)
		}
	}

	if c.Listen != nil && *c.Listen == "" {
		return fmt.Errorf("listen must not be empty")
	}
	return nil
}

// GetPort returns the serial port path or the default.
func (c *Config) GetPort() string {
	if c.Port == nil {
		return DefaultPort
	}
	return *c.Port
}

// PortOptions returns the serial line settings. Unset fields are left zero
// for serialmux.PortOptions.Normalise to default.
func (c *Config) PortOptions() serialmux.PortOptions {
	var opts serialmux.PortOptions
	if c.BaudRate != nil {
		opts.BaudRate = *c.BaudRate
	}
	if c.DataBits != nil {
		opts.DataBits = *c.DataBits
	}
	if c.StopBits != nil {
		opts.StopBits = *c.StopBits
	}
	if c.Parity != nil {
		opts.Parity = *c.Parity
	}
	return opts
}

// GetTickInterval parses and returns the TickInterval as a time.Duration.
func (c *Config) GetTickInterval() time.Duration {
	if c.TickInterval == nil || *c.TickInterval == "" {
		return stopwatch.DefaultTickInterval
	}
	d, err := time.ParseDuration(*c.TickInterval)
	if err != nil {
		return stopwatch.DefaultTickInterval // default on parse error
	}
	return d
}

// GetListen returns the HTTP listen address or the default.
func (c *Config) GetListen() string {
	if c.Listen == nil {
		return DefaultListen
	}
	return *c.Listen
}

// GetDBPath returns the journal path, empty when journaling is off.
func (c *Config) GetDBPath() string {
	if c.DBPath == nil {
		return ""
	}
	return *c.DBPath
}

// GetDebug reports whether debug logging is enabled.
func (c *Config) GetDebug() bool {
	return c.Debug != nil && *c.Debug
}

// Override is a set of command-line values applied on top of a loaded config.
// Nil fields leave the config unchanged.
type Override struct {
	Port         *string
	Listen       *string
	DBPath       *string
	TickInterval *string
	Debug        *bool
}

// Apply copies every set override into c and revalidates.
func (c *Config) Apply(o Override) error {
	if o.Port != nil {
		c.Port = ptrString(*o.Port)
	}
	if o.Listen != nil {
		c.Listen = ptrString(*o.Listen)
	}
	if o.DBPath != nil {
		c.DBPath = ptrString(*o.DBPath)
	}
	if o.TickInterval != nil {
		c.TickInterval = ptrString(*o.TickInterval)
	}
	if o.Debug != nil {
		c.Debug = ptrBool(*o.Debug)
	}
	return c.Validate()
}
