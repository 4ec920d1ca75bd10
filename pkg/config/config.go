package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/marmos91/stonify/internal/ratelimiter"
)

// Config represents the complete stonify configuration.
//
// It covers:
//   - Logging and metrics
//   - Transfer defaults used by the stonify command
//   - Browser defaults used by the wtbrowse command
//   - Mount mappings applied when normalizing source paths
//   - Named node and frame stores, and the servers they back
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (STONIFY_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each store type has its own section inside the store entry (e.g.
// frame_stores.<name>.s3) and only the section matching the selected type
// is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Metrics controls the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Transfer holds defaults for frame transfers
	Transfer TransferConfig `mapstructure:"transfer" yaml:"transfer"`

	// Browser holds defaults for node browsing
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`

	// Mounts maps drive letters or two-segment mount points to substitute
	// roots, e.g. "C:" -> "//fileserver/c" or "/mnt/share" -> "/Volumes/share"
	Mounts map[string]string `mapstructure:"mounts" yaml:"mounts,omitempty"`

	// NodeStores are the named node record stores
	NodeStores map[string]NodeStoreConfig `mapstructure:"node_stores" validate:"dive" yaml:"node_stores"`

	// FrameStores are the named frame stores
	FrameStores map[string]FrameStoreConfig `mapstructure:"frame_stores" validate:"dive" yaml:"frame_stores"`

	// Servers are the Wiretap servers served in-process
	Servers []ServerConfig `mapstructure:"servers" validate:"dive" yaml:"servers"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// MetricsConfig controls the metrics HTTP endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port serving /metrics
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// TransferConfig holds defaults for frame transfers. Command-line flags
// override each field.
type TransferConfig struct {
	// Limits throttles frame copies. Zero values are unlimited.
	Limits ratelimiter.Limits `mapstructure:"limits" yaml:"limits"`

	// CreateParent creates a missing library or reel on the destination path
	CreateParent bool `mapstructure:"create_parent" yaml:"create_parent"`

	// Overwrite deletes same-named clips before copying
	Overwrite bool `mapstructure:"overwrite" yaml:"overwrite"`

	// DropMode is the timecode mode written to clip metadata: DF or NDF
	DropMode string `mapstructure:"drop_mode" validate:"omitempty,oneof=DF NDF df ndf" yaml:"drop_mode"`

	// StartTimecode is written to clip metadata (hh:mm:ss:ff)
	StartTimecode string `mapstructure:"start_timecode" yaml:"start_timecode"`
}

// BrowserConfig holds defaults for browsing the node hierarchy.
type BrowserConfig struct {
	// Products limits the listed servers. Empty lists every product.
	Products []string `mapstructure:"products" validate:"dive,required" yaml:"products"`

	// ExcludeContent hides clips and other non-container nodes
	ExcludeContent bool `mapstructure:"exclude_content" yaml:"exclude_content"`
}

// NodeStoreConfig configures one named node store.
type NodeStoreConfig struct {
	// Type selects the implementation
	// Valid values: memory, badger
	Type string `mapstructure:"type" validate:"required,oneof=memory badger" yaml:"type"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger,omitempty"`
}

// FrameStoreConfig configures one named frame store.
type FrameStoreConfig struct {
	// Type selects the implementation
	// Valid values: memory, filesystem, s3
	Type string `mapstructure:"type" validate:"required,oneof=memory filesystem s3" yaml:"type"`

	// Filesystem contains filesystem-specific configuration
	// Only used when Type = "filesystem"
	Filesystem map[string]any `mapstructure:"filesystem" yaml:"filesystem,omitempty"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3" yaml:"s3,omitempty"`

	// CacheFrames wraps the store with an LRU of recently read frames.
	// Zero disables the cache.
	CacheFrames int `mapstructure:"cache_frames" validate:"gte=0" yaml:"cache_frames"`
}

// ServerConfig defines one served Wiretap server.
type ServerConfig struct {
	// Name is the display name advertised by the directory service
	Name string `mapstructure:"name" validate:"required,excludesall=:/" yaml:"name"`

	// Product is the server product, e.g. IFFFS or Gateway
	Product string `mapstructure:"product" validate:"required" yaml:"product"`

	// NodeStore names the node store holding the server's hierarchy
	NodeStore string `mapstructure:"node_store" validate:"required" yaml:"node_store"`

	// FrameStore names the frame store holding the server's frames
	FrameStore string `mapstructure:"frame_store" validate:"required" yaml:"frame_store"`

	// Volumes are provisioned when the server starts
	Volumes []VolumeConfig `mapstructure:"volumes" validate:"dive" yaml:"volumes"`
}

// VolumeConfig names a volume and its projects.
type VolumeConfig struct {
	Name     string   `mapstructure:"name" validate:"required,excludesall=/" yaml:"name"`
	Projects []string `mapstructure:"projects" validate:"dive,required,excludesall=/" yaml:"projects"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (STONIFY_*)
//  2. Configuration file
//  3. Default values
//
// An empty configPath searches the default location. A missing file is not
// an error: the defaults describe a usable in-memory deployment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Example: STONIFY_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("STONIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}

	// $XDG_CONFIG_HOME/stonify/config.yaml
	v.AddConfigPath(getConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		// An explicit path that does not exist surfaces as a plain fs error.
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "stonify")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "stonify")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
