package config

import (
	"testing"
)

func TestApplyDefaults_Empty(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("Expected output 'stderr', got %q", cfg.Logging.Output)
	}
	if cfg.Transfer.DropMode != "NDF" {
		t.Errorf("Expected drop mode 'NDF', got %q", cfg.Transfer.DropMode)
	}
	if cfg.Transfer.StartTimecode != "00:00:00:00" {
		t.Errorf("Expected start timecode '00:00:00:00', got %q", cfg.Transfer.StartTimecode)
	}
	if !cfg.Transfer.Limits.IsZero() {
		t.Errorf("Expected unlimited transfers, got %+v", cfg.Transfer.Limits)
	}

	if got := cfg.NodeStores[DefaultStoreName].Type; got != "memory" {
		t.Errorf("Expected default memory node store, got %q", got)
	}
	if got := cfg.FrameStores[DefaultStoreName].Type; got != "memory" {
		t.Errorf("Expected default memory frame store, got %q", got)
	}

	if len(cfg.Servers) != 1 {
		t.Fatalf("Expected one default server, got %d", len(cfg.Servers))
	}
	srv := cfg.Servers[0]
	if srv.Name != DefaultServerName || srv.NodeStore != DefaultStoreName || srv.FrameStore != DefaultStoreName {
		t.Errorf("Unexpected default server: %+v", srv)
	}
	if len(srv.Volumes) != 1 || srv.Volumes[0].Name != DefaultVolume {
		t.Errorf("Expected volume %q, got %+v", DefaultVolume, srv.Volumes)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging:  LoggingConfig{Level: "warn", Format: "json", Output: "stdout"},
		Metrics:  MetricsConfig{Enabled: true, Port: 9100},
		Transfer: TransferConfig{DropMode: "df", StartTimecode: "01:00:00:00"},
		Servers:  []ServerConfig{{Name: "mars"}},
	}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected normalized level 'WARN', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Output != "stdout" {
		t.Errorf("Explicit logging values overwritten: %+v", cfg.Logging)
	}
	if cfg.Metrics.Port != 9100 {
		t.Errorf("Expected port 9100, got %d", cfg.Metrics.Port)
	}
	if cfg.Transfer.DropMode != "DF" {
		t.Errorf("Expected normalized drop mode 'DF', got %q", cfg.Transfer.DropMode)
	}
	if cfg.Transfer.StartTimecode != "01:00:00:00" {
		t.Errorf("Explicit timecode overwritten: %q", cfg.Transfer.StartTimecode)
	}
	if len(cfg.Servers) != 1 || cfg.Servers[0].Name != "mars" {
		t.Errorf("Explicit servers overwritten: %+v", cfg.Servers)
	}
}

func TestApplyDefaults_FrameStoreSections(t *testing.T) {
	cfg := &Config{
		FrameStores: map[string]FrameStoreConfig{
			"disk":   {Type: "filesystem"},
			"bucket": {Type: "s3", S3: map[string]any{"bucket": "frames", "region": "eu-west-1"}},
			"custom": {Type: "filesystem", Filesystem: map[string]any{"path": "/data/frames"}},
		},
	}
	ApplyDefaults(cfg)

	if got := cfg.FrameStores["disk"].Filesystem["path"]; got != "/tmp/stonify-frames" {
		t.Errorf("Expected default filesystem path, got %v", got)
	}
	if got := cfg.FrameStores["custom"].Filesystem["path"]; got != "/data/frames" {
		t.Errorf("Explicit filesystem path overwritten: %v", got)
	}
	if got := cfg.FrameStores["bucket"].S3["key_prefix"]; got != "frames/" {
		t.Errorf("Expected default key prefix, got %v", got)
	}
	if got := cfg.FrameStores["bucket"].S3["bucket"]; got != "frames" {
		t.Errorf("Explicit bucket overwritten: %v", got)
	}
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	if err := Validate(GetDefaultConfig()); err != nil {
		t.Fatalf("Default config failed validation: %v", err)
	}
}
