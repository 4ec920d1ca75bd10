package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MinimalConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "debug"

node_stores:
  main:
    type: memory

frame_stores:
  main:
    type: filesystem
    filesystem:
      path: "` + filepath.Join(tmpDir, "frames") + `"

servers:
  - name: mars
    product: IFFFS
    node_store: main
    frame_store: main
    volumes:
      - name: stonefs
        projects: [show]
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected normalized level 'DEBUG', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Metrics.Port != DefaultMetricsPort {
		t.Errorf("Expected default metrics port %d, got %d", DefaultMetricsPort, cfg.Metrics.Port)
	}
	if len(cfg.Servers) != 1 || cfg.Servers[0].Name != "mars" {
		t.Fatalf("Expected one server 'mars', got %+v", cfg.Servers)
	}
	if got := cfg.Servers[0].Volumes[0].Projects; len(got) != 1 || got[0] != "show" {
		t.Errorf("Expected projects [show], got %v", got)
	}
	if _, ok := cfg.NodeStores[DefaultStoreName]; ok {
		t.Error("Default node store should not be added when stores are configured")
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	nonExistentPath := filepath.Join(tmpDir, "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error with missing config file, got: %v", err)
	}
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level 'INFO', got %q", cfg.Logging.Level)
	}

	t.Setenv("XDG_CONFIG_HOME", tmpDir)
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Expected no error without a config file, got: %v", err)
	}
	if len(cfg.Servers) != 1 || cfg.Servers[0].Name != DefaultServerName {
		t.Errorf("Expected the default server, got %+v", cfg.Servers)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	if err := os.WriteFile(configPath, []byte("logging: [unclosed"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error for invalid YAML")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
servers:
  - name: mars
    product: IFFFS
    node_store: missing
    frame_store: default
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected validation error for an undefined node store")
	}
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("logging:\n  level: INFO\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	t.Setenv("STONIFY_LOGGING_LEVEL", "warn")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected level from environment 'WARN', got %q", cfg.Logging.Level)
	}
}

func TestGetConfigDir(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	if got, want := GetConfigDir(), filepath.Join(tmpDir, "stonify"); got != want {
		t.Errorf("GetConfigDir() = %q, want %q", got, want)
	}
	if got, want := GetDefaultConfigPath(), filepath.Join(tmpDir, "stonify", "config.yaml"); got != want {
		t.Errorf("GetDefaultConfigPath() = %q, want %q", got, want)
	}
	if ConfigExists() {
		t.Error("ConfigExists() should be false in an empty directory")
	}
}
