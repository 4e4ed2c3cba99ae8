package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/teeworlds-nats/bridge/internal/config"
)

func TestLoad_MissingFileWritesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg, err := config.Load(path)

	var wrote *config.WroteDefault
	if !errors.As(err, &wrote) {
		t.Fatalf("expected *WroteDefault, got %v", err)
	}
	if wrote.Path != path {
		t.Fatalf("expected path %q, got %q", path, wrote.Path)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Fatalf("expected config file to be written: %v", statErr)
	}
	if cfg.Econ.AuthMessage != "Authentication successful" {
		t.Fatalf("expected default auth_message, got %q", cfg.Econ.AuthMessage)
	}
	if cfg.Econ.Reconnect.MaxAttempts != 20 {
		t.Fatalf("expected default max_attempts=20, got %d", cfg.Econ.Reconnect.MaxAttempts)
	}
}

func TestLoad_ParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlBody := `
logging: debug
nats:
  server: ["nats://broker:4222"]
  from: ["tw.tg.42"]
  to: ["tw.econ.write.42"]
econ:
  host: "game.example.com:8303"
  password: "secret"
  first_commands:
    - "say hello"
paths:
  - from: ["tw.econ.read.42"]
    regex: ['^\[chat\]: \d+:-?\d+:(.*): (.*)$']
    to: ["tw.tg.42"]
`
	if err := os.WriteFile(path, []byte(yamlBody), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging != "debug" {
		t.Fatalf("expected logging=debug, got %q", cfg.Logging)
	}
	if cfg.Econ.Host != "game.example.com:8303" {
		t.Fatalf("expected econ.host, got %q", cfg.Econ.Host)
	}
	if len(cfg.Paths) != 1 || len(cfg.Paths[0].Regex) != 1 {
		t.Fatalf("expected one path with one regex, got %+v", cfg.Paths)
	}
	if cfg.Paths[0].Queue != "handler_{{0}}" {
		t.Fatalf("expected normalized default queue template, got %q", cfg.Paths[0].Queue)
	}
}

func TestLoad_DefaultsAppliedOnZeroValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("econ:\n  host: x:1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Nats.PingInterval != 15 {
		t.Fatalf("expected default ping_interval=15, got %d", cfg.Nats.PingInterval)
	}
	if cfg.Econ.Reconnect.Sleep != 10 {
		t.Fatalf("expected default reconnect.sleep=10, got %d", cfg.Econ.Reconnect.Sleep)
	}
}

func TestLoad_UnreadableYAMLIsConfigError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("not: [valid yaml"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := config.Load(path)
	var cfgErr *config.Error
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *config.Error, got %v", err)
	}
}
