package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Host = %q, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Server.Port != 5001 {
		t.Errorf("Port = %d, want 5001", cfg.Server.Port)
	}
	if cfg.Mock.DelayMS != 50 {
		t.Errorf("DelayMS = %d, want 50", cfg.Mock.DelayMS)
	}
	if cfg.Mock.Validation != ValidationCompat {
		t.Errorf("Validation = %q, want %q", cfg.Mock.Validation, ValidationCompat)
	}
	if !cfg.Server.CORS.IsWildcard() {
		t.Error("default CORS should be wildcard")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestMockConfigDelay(t *testing.T) {
	m := MockConfig{DelayMS: 250}
	if got := m.Delay(); got != 250*time.Millisecond {
		t.Errorf("Delay() = %v, want 250ms", got)
	}
}

func TestParseYAML(t *testing.T) {
	data := []byte(`
server:
  host: 0.0.0.0
  port: 8080
mock:
  delayMs: 10
  validation: strict
session:
  file: /tmp/todos.json
  debounceMs: 200
seed:
  - title: First
    completed: true
  - title: Second
    description: something
`)
	cfg, err := ParseYAML(data)
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 8080 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Mock.Validation != ValidationStrict {
		t.Errorf("Validation = %q, want strict", cfg.Mock.Validation)
	}
	if cfg.Session.File != "/tmp/todos.json" || cfg.Session.Debounce() != 200*time.Millisecond {
		t.Errorf("session = %+v", cfg.Session)
	}
	if len(cfg.Seed) != 2 || cfg.Seed[0].Title != "First" || !cfg.Seed[0].Completed {
		t.Errorf("seed = %+v", cfg.Seed)
	}
	// Unset fields keep defaults.
	if cfg.Logging.Level != "info" {
		t.Errorf("Level = %q, want info", cfg.Logging.Level)
	}
}

func TestParseYAMLInvalid(t *testing.T) {
	_, err := ParseYAML([]byte("server: [not: a: mapping"))
	if !errors.Is(err, ErrInvalidYAML) {
		t.Errorf("expected ErrInvalidYAML, got %v", err)
	}
}

func TestParseJSON(t *testing.T) {
	data := []byte(`{"server":{"port":9000},"mock":{"delayMs":0}}`)
	cfg, err := ParseJSON(data)
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Mock.DelayMS != 0 {
		t.Errorf("DelayMS = %d, want 0", cfg.Mock.DelayMS)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative port", func(c *Config) { c.Server.Port = -1 }},
		{"huge port", func(c *Config) { c.Server.Port = 70000 }},
		{"negative delay", func(c *Config) { c.Mock.DelayMS = -5 }},
		{"unknown validation mode", func(c *Config) { c.Mock.Validation = "paranoid" }},
		{"negative debounce", func(c *Config) { c.Session.DebounceMS = -1 }},
		{"seed without title", func(c *Config) { c.Seed = []SeedTodo{{Description: "x"}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("yaml round trip", func(t *testing.T) {
		path := filepath.Join(dir, "config.yaml")
		cfg := Default()
		cfg.Server.Port = 7777
		if err := SaveToFile(path, cfg); err != nil {
			t.Fatalf("SaveToFile: %v", err)
		}
		loaded, err := LoadFromFile(path)
		if err != nil {
			t.Fatalf("LoadFromFile: %v", err)
		}
		if loaded.Server.Port != 7777 {
			t.Errorf("Port = %d, want 7777", loaded.Server.Port)
		}
	})

	t.Run("json round trip", func(t *testing.T) {
		path := filepath.Join(dir, "config.json")
		cfg := Default()
		cfg.Mock.DelayMS = 123
		if err := SaveToFile(path, cfg); err != nil {
			t.Fatalf("SaveToFile: %v", err)
		}
		loaded, err := LoadFromFile(path)
		if err != nil {
			t.Fatalf("LoadFromFile: %v", err)
		}
		if loaded.Mock.DelayMS != 123 {
			t.Errorf("DelayMS = %d, want 123", loaded.Mock.DelayMS)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFromFile(filepath.Join(dir, "nope.yaml"))
		if !errors.Is(err, ErrFileNotFound) {
			t.Errorf("expected ErrFileNotFound, got %v", err)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(dir, "empty.json")
		if err := os.WriteFile(path, nil, 0644); err != nil {
			t.Fatal(err)
		}
		_, err := LoadFromFile(path)
		if !errors.Is(err, ErrEmptyFile) {
			t.Errorf("expected ErrEmptyFile, got %v", err)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		if err := os.WriteFile(path, []byte("{nope"), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := LoadFromFile(path)
		if !errors.Is(err, ErrInvalidJSON) {
			t.Errorf("expected ErrInvalidJSON, got %v", err)
		}
	})
}

func TestCORSAllowOriginValue(t *testing.T) {
	cfg := &CORSConfig{
		Enabled:      true,
		AllowOrigins: []string{"http://localhost:3000"},
	}
	if got := cfg.AllowOriginValue("http://localhost:3000"); got != "http://localhost:3000" {
		t.Errorf("allowed origin: got %q", got)
	}
	if got := cfg.AllowOriginValue("http://evil.example"); got != "" {
		t.Errorf("disallowed origin: got %q", got)
	}

	wildcard := DefaultCORSConfig()
	if got := wildcard.AllowOriginValue("http://anything.example"); got != "*" {
		t.Errorf("wildcard: got %q", got)
	}

	var nilCfg *CORSConfig
	if got := nilCfg.AllowOriginValue("http://x"); got != "" {
		t.Errorf("nil config: got %q", got)
	}
}
