// Package config loads server configuration from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Stream    StreamConfig    `yaml:"stream"`
	Database  DatabaseConfig  `yaml:"database"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// AllowedOrigins lists origins accepted by CORS and the WebSocket
	// upgrader. Empty or "*" allows every origin.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type WebSocketConfig struct {
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	PongTimeout          time.Duration `yaml:"pong_timeout"`
	MaxMessageSize       int64         `yaml:"max_message_size"`
	MaxClientMessageSize int64         `yaml:"max_client_message_size"`
	ClientSendQueue      int           `yaml:"client_send_queue"`
}

type StreamConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type DatabaseConfig struct {
	Path       string `yaml:"path"`
	MaxDevices int    `yaml:"max_devices"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		WebSocket: WebSocketConfig{
			WriteTimeout:         10 * time.Second,
			PongTimeout:          60 * time.Second,
			MaxMessageSize:       16 << 20,
			MaxClientMessageSize: 64 << 10,
			ClientSendQueue:      64,
		},
		Stream: StreamConfig{
			Interval: 33 * time.Millisecond,
		},
		Database: DatabaseConfig{
			Path:       "data/devices.db",
			MaxDevices: 100,
		},
	}
}

// Load reads path over the defaults and then applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from PORT, HOST, DB_PATH and STREAM_INTERVAL.
func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("HOST"); v != "" {
		c.Server.Host = v
	}
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := getenv("DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := getenv("STREAM_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid STREAM_INTERVAL %q: %w", v, err)
		}
		c.Stream.Interval = d
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Stream.Interval <= 0 {
		return fmt.Errorf("stream interval must be positive, got %s", c.Stream.Interval)
	}
	if c.WebSocket.WriteTimeout <= 0 || c.WebSocket.PongTimeout <= 0 {
		return errors.New("websocket timeouts must be positive")
	}
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// AllowAllOrigins reports whether every origin is accepted.
func (c *Config) AllowAllOrigins() bool {
	if len(c.Server.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range c.Server.AllowedOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

// OriginAllowed reports whether origin may connect.
func (c *Config) OriginAllowed(origin string) bool {
	if c.AllowAllOrigins() || origin == "" {
		return true
	}
	for _, o := range c.Server.AllowedOrigins {
		if o == origin {
			return true
		}
	}
	return false
}
