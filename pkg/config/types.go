// Package config defines the configuration types for the todomock server
// and interceptor, plus loaders for JSON and YAML files.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Validation modes for request bodies.
const (
	// ValidationCompat coerces missing or oddly-typed fields instead of
	// rejecting them. This mirrors the behavior most frontends observe
	// against the mocked backend.
	ValidationCompat = "compat"
	// ValidationStrict rejects bad create/update bodies with 400 responses.
	ValidationStrict = "strict"
)

// Config is the root configuration for a todomock instance.
type Config struct {
	// Server configures the HTTP listener.
	Server ServerConfig `json:"server" yaml:"server"`
	// Mock configures response synthesis behavior.
	Mock MockConfig `json:"mock" yaml:"mock"`
	// Session configures optional state persistence across restarts.
	Session SessionConfig `json:"session" yaml:"session"`
	// Logging configures the structured logger.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
	// Seed overrides the built-in seed todos when non-empty.
	Seed []SeedTodo `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	// Host is the interface to bind. Default: 127.0.0.1.
	Host string `json:"host" yaml:"host"`
	// Port is the TCP port. 0 picks a free port.
	Port int `json:"port" yaml:"port"`
	// ReadTimeout is the request read timeout in seconds.
	ReadTimeout int `json:"readTimeout,omitempty" yaml:"readTimeout,omitempty"`
	// WriteTimeout is the response write timeout in seconds.
	WriteTimeout int `json:"writeTimeout,omitempty" yaml:"writeTimeout,omitempty"`
	// CORS configures cross-origin headers. Nil means allow-all, matching
	// what browser test pages expect from a local mock backend.
	CORS *CORSConfig `json:"cors,omitempty" yaml:"cors,omitempty"`
	// LogRequests enables the in-memory request log.
	LogRequests bool `json:"logRequests" yaml:"logRequests"`
	// MaxLogEntries bounds the request log ring buffer.
	MaxLogEntries int `json:"maxLogEntries,omitempty" yaml:"maxLogEntries,omitempty"`
}

// MockConfig holds response synthesis settings.
type MockConfig struct {
	// DelayMS is the artificial latency applied to every mocked response,
	// in milliseconds.
	DelayMS int `json:"delayMs" yaml:"delayMs"`
	// Validation selects the request body validation mode
	// ("compat" or "strict").
	Validation string `json:"validation,omitempty" yaml:"validation,omitempty"`
}

// Delay returns the configured artificial latency as a duration.
func (m MockConfig) Delay() time.Duration {
	return time.Duration(m.DelayMS) * time.Millisecond
}

// SessionConfig holds persistence settings. An empty File disables
// persistence and state lives only in memory.
type SessionConfig struct {
	// File is the path of the JSON snapshot file.
	File string `json:"file,omitempty" yaml:"file,omitempty"`
	// DebounceMS batches rapid writes, in milliseconds. 0 writes
	// synchronously.
	DebounceMS int `json:"debounceMs,omitempty" yaml:"debounceMs,omitempty"`
}

// Debounce returns the write debounce interval as a duration.
func (s SessionConfig) Debounce() time.Duration {
	return time.Duration(s.DebounceMS) * time.Millisecond
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
	// Format is "text" or "json".
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
	// File mirrors log output to the given path in addition to stderr.
	File string `json:"file,omitempty" yaml:"file,omitempty"`
}

// SeedTodo describes one seed record. IDs are assigned in order starting
// from 1.
type SeedTodo struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Completed   bool   `json:"completed,omitempty" yaml:"completed,omitempty"`
}

// CORSConfig defines cross-origin resource sharing settings.
type CORSConfig struct {
	// Enabled turns CORS handling on. When false no CORS headers are added.
	Enabled bool `json:"enabled" yaml:"enabled"`
	// AllowOrigins lists allowed origins. "*" allows any origin.
	AllowOrigins []string `json:"allowOrigins,omitempty" yaml:"allowOrigins,omitempty"`
	// AllowMethods lists allowed HTTP methods.
	AllowMethods []string `json:"allowMethods,omitempty" yaml:"allowMethods,omitempty"`
	// AllowHeaders lists allowed request headers.
	AllowHeaders []string `json:"allowHeaders,omitempty" yaml:"allowHeaders,omitempty"`
	// MaxAge is the preflight cache lifetime in seconds.
	MaxAge int `json:"maxAge,omitempty" yaml:"maxAge,omitempty"`
}

// IsWildcard reports whether any origin is allowed.
func (c *CORSConfig) IsWildcard() bool {
	if c == nil {
		return false
	}
	for _, origin := range c.AllowOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// AllowOriginValue returns the Access-Control-Allow-Origin header value for
// the given request origin, or "" if the origin is not allowed.
func (c *CORSConfig) AllowOriginValue(requestOrigin string) string {
	if c == nil || !c.Enabled {
		return ""
	}
	if c.IsWildcard() {
		return "*"
	}
	for _, origin := range c.AllowOrigins {
		if origin == requestOrigin {
			return requestOrigin
		}
	}
	return ""
}

// DefaultCORSConfig returns an allow-all CORS configuration. The original
// backend this emulates served wildcard CORS, so browser pages under test
// can call the mock from any origin.
func DefaultCORSConfig() *CORSConfig {
	return &CORSConfig{
		Enabled:      true,
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders: []string{"Content-Type", "Authorization", "X-Requested-With", "Accept", "Origin"},
		MaxAge:       86400,
	}
}

// Default returns the base configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:          "127.0.0.1",
			Port:          5001,
			ReadTimeout:   30,
			WriteTimeout:  30,
			CORS:          DefaultCORSConfig(),
			LogRequests:   true,
			MaxLogEntries: 1000,
		},
		Mock: MockConfig{
			DelayMS:    50,
			Validation: ValidationCompat,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", c.Server.Port)
	}
	if c.Mock.DelayMS < 0 {
		return fmt.Errorf("mock delay must not be negative: %d", c.Mock.DelayMS)
	}
	switch c.Mock.Validation {
	case "", ValidationCompat, ValidationStrict:
	default:
		return fmt.Errorf("unknown validation mode: %q", c.Mock.Validation)
	}
	if c.Session.DebounceMS < 0 {
		return fmt.Errorf("session debounce must not be negative: %d", c.Session.DebounceMS)
	}
	for i, s := range c.Seed {
		if s.Title == "" {
			return fmt.Errorf("seed todo %d: title is required", i)
		}
	}
	return nil
}

// ErrNilConfig is returned when a nil configuration is saved.
var ErrNilConfig = errors.New("config cannot be nil")
