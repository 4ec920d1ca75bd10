package config

import (
	"strings"

	"github.com/marmos91/stonify/pkg/wiretap"
)

// Default names used when the configuration defines no stores or servers.
const (
	DefaultStoreName   = "default"
	DefaultServerName  = "localhost"
	DefaultVolume      = "stonefs"
	DefaultProject     = "default"
	DefaultMetricsPort = 9090
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - A configuration without stores or servers gets one in-memory server
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyMetricsDefaults(&cfg.Metrics)
	applyTransferDefaults(&cfg.Transfer)

	if cfg.Mounts == nil {
		cfg.Mounts = map[string]string{}
	}

	if len(cfg.NodeStores) == 0 {
		cfg.NodeStores = map[string]NodeStoreConfig{
			DefaultStoreName: {Type: "memory"},
		}
	}
	if len(cfg.FrameStores) == 0 {
		cfg.FrameStores = map[string]FrameStoreConfig{
			DefaultStoreName: {Type: "memory"},
		}
	}
	for name, store := range cfg.FrameStores {
		applyFrameStoreDefaults(&store)
		cfg.FrameStores[name] = store
	}

	if len(cfg.Servers) == 0 {
		cfg.Servers = []ServerConfig{{
			Name:       DefaultServerName,
			Product:    string(wiretap.ProductIFFFS),
			NodeStore:  DefaultStoreName,
			FrameStore: DefaultStoreName,
			Volumes: []VolumeConfig{
				{Name: DefaultVolume, Projects: []string{DefaultProject}},
			},
		}}
	}
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = DefaultMetricsPort
	}
}

func applyTransferDefaults(cfg *TransferConfig) {
	if cfg.DropMode == "" {
		cfg.DropMode = "NDF"
	}
	cfg.DropMode = strings.ToUpper(cfg.DropMode)

	if cfg.StartTimecode == "" {
		cfg.StartTimecode = "00:00:00:00"
	}
}

// applyFrameStoreDefaults fills the type-specific section of a frame store.
func applyFrameStoreDefaults(cfg *FrameStoreConfig) {
	switch cfg.Type {
	case "filesystem":
		if cfg.Filesystem == nil {
			cfg.Filesystem = make(map[string]any)
		}
		if _, ok := cfg.Filesystem["path"]; !ok {
			cfg.Filesystem["path"] = "/tmp/stonify-frames"
		}
	case "s3":
		if cfg.S3 == nil {
			cfg.S3 = make(map[string]any)
		}
		if _, ok := cfg.S3["key_prefix"]; !ok {
			cfg.S3["key_prefix"] = "frames/"
		}
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
