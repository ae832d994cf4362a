package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Environment variables recognized by ApplyEnv. MOCK_DELAY_MS and
// ENABLE_REQUEST_LOGGING keep the names the browser-based harness used, so
// existing test environments carry over unchanged.
const (
	EnvConfigFile     = "TODOMOCK_CONFIG"
	EnvHost           = "TODOMOCK_HOST"
	EnvPort           = "TODOMOCK_PORT"
	EnvSessionFile    = "TODOMOCK_SESSION_FILE"
	EnvDelayMS        = "MOCK_DELAY_MS"
	EnvRequestLogging = "ENABLE_REQUEST_LOGGING"
)

// configDiscoveryOrder lists file names probed by DiscoverConfig, in order.
var configDiscoveryOrder = []string{
	"todomock.yaml",
	"todomock.yml",
	"todomock.json",
}

// ApplyEnv overlays environment variable overrides onto cfg. Unset or empty
// variables leave the config untouched; malformed values are an error rather
// than a silent fallback.
func ApplyEnv(cfg *Config) error {
	if cfg == nil {
		return ErrNilConfig
	}

	if v := os.Getenv(EnvHost); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", EnvPort, v, err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv(EnvDelayMS); v != "" {
		delay, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", EnvDelayMS, v, err)
		}
		cfg.Mock.DelayMS = delay
	}
	if v := os.Getenv(EnvRequestLogging); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", EnvRequestLogging, v, err)
		}
		cfg.Server.LogRequests = enabled
	}
	if v := os.Getenv(EnvSessionFile); v != "" {
		cfg.Session.File = v
	}

	return nil
}

// DiscoverConfig finds a config file via the TODOMOCK_CONFIG variable or by
// probing well-known names in the current directory. Returns "" when nothing
// is found; only a dangling TODOMOCK_CONFIG is an error.
func DiscoverConfig() (string, error) {
	if envPath := os.Getenv(EnvConfigFile); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("%s points to unreadable file %s: %w", EnvConfigFile, envPath, err)
		}
		return envPath, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	for _, name := range configDiscoveryOrder {
		path := filepath.Join(cwd, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}
