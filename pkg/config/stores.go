package config

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/stonify/internal/logger"
	"github.com/marmos91/stonify/pkg/metrics"
	"github.com/marmos91/stonify/pkg/store/frame"
	framecache "github.com/marmos91/stonify/pkg/store/frame/cache"
	framefs "github.com/marmos91/stonify/pkg/store/frame/fs"
	framememory "github.com/marmos91/stonify/pkg/store/frame/memory"
	frames3 "github.com/marmos91/stonify/pkg/store/frame/s3"
	"github.com/marmos91/stonify/pkg/store/node"
	nodebadger "github.com/marmos91/stonify/pkg/store/node/badger"
	nodememory "github.com/marmos91/stonify/pkg/store/node/memory"
)

// s3YAMLConfig represents S3 configuration loaded from YAML files.
type s3YAMLConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
	MaxAttempts     int    `mapstructure:"max_attempts"`
}

// CreateNodeStore creates a single node store instance.
func CreateNodeStore(ctx context.Context, cfg NodeStoreConfig) (node.Store, error) {
	switch cfg.Type {
	case "memory":
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nodememory.NewMemoryNodeStore(), nil
	case "badger":
		return createBadgerNodeStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown node store type: %q", cfg.Type)
	}
}

// createBadgerNodeStore creates a BadgerDB node store.
func createBadgerNodeStore(ctx context.Context, cfg NodeStoreConfig) (node.Store, error) {
	var badgerCfg nodebadger.BadgerNodeStoreConfig
	if err := mapstructure.Decode(cfg.Badger, &badgerCfg); err != nil {
		return nil, fmt.Errorf("invalid badger config: %w", err)
	}

	store, err := nodebadger.NewBadgerNodeStore(ctx, badgerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return store, nil
}

// CreateFrameStore creates a single frame store instance, wrapped in a read
// cache when cfg.CacheFrames is set. name labels the cache metrics.
func CreateFrameStore(ctx context.Context, name string, cfg FrameStoreConfig) (frame.Store, error) {
	var (
		store frame.Store
		err   error
	)

	switch cfg.Type {
	case "memory":
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		store = framememory.NewMemoryFrameStore()
	case "filesystem":
		store, err = createFilesystemFrameStore(ctx, cfg)
	case "s3":
		store, err = createS3FrameStore(ctx, name, cfg)
	default:
		return nil, fmt.Errorf("unknown frame store type: %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	if cfg.CacheFrames <= 0 {
		return store, nil
	}

	cached, err := framecache.NewCachedFrameStore(store, cfg.CacheFrames, metrics.NewFrameCacheMetrics(name))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create frame cache: %w", err)
	}
	logger.Debug("Frame store %q cached (%d frames)", name, cfg.CacheFrames)
	return cached, nil
}

// createFilesystemFrameStore creates a filesystem-backed frame store.
func createFilesystemFrameStore(ctx context.Context, cfg FrameStoreConfig) (frame.Store, error) {
	var fsCfg struct {
		Path string `mapstructure:"path"`
	}
	if err := mapstructure.Decode(cfg.Filesystem, &fsCfg); err != nil {
		return nil, fmt.Errorf("invalid filesystem config: %w", err)
	}

	if fsCfg.Path == "" {
		return nil, fmt.Errorf("filesystem path is required")
	}

	store, err := framefs.NewFSFrameStore(ctx, fsCfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize filesystem store: %w", err)
	}
	return store, nil
}

// createS3FrameStore creates an S3-backed frame store.
func createS3FrameStore(ctx context.Context, name string, cfg FrameStoreConfig) (frame.Store, error) {
	var yamlCfg s3YAMLConfig
	if err := mapstructure.Decode(cfg.S3, &yamlCfg); err != nil {
		return nil, fmt.Errorf("invalid S3 config: %w", err)
	}

	if yamlCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket is required")
	}

	client, err := frames3.NewClient(ctx, frames3.ClientConfig{
		Region:          yamlCfg.Region,
		Endpoint:        yamlCfg.Endpoint,
		AccessKeyID:     yamlCfg.AccessKeyID,
		SecretAccessKey: yamlCfg.SecretAccessKey,
		ForcePathStyle:  yamlCfg.ForcePathStyle,
		MaxAttempts:     yamlCfg.MaxAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	store, err := frames3.NewS3FrameStore(ctx, frames3.S3FrameStoreConfig{
		Client:    client,
		Bucket:    yamlCfg.Bucket,
		KeyPrefix: yamlCfg.KeyPrefix,
		Metrics:   metrics.NewS3Metrics(name),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 store: %w", err)
	}

	logger.Info("S3 frame store initialized: bucket=%s, region=%s, prefix=%s",
		yamlCfg.Bucket, yamlCfg.Region, yamlCfg.KeyPrefix)
	return store, nil
}
