package config

import (
	"context"
	"fmt"
	"sort"

	"github.com/marmos91/stonify/internal/logger"
	"github.com/marmos91/stonify/pkg/registry"
	"github.com/marmos91/stonify/pkg/wiretap"
)

// InitializeRegistry creates a fully configured Registry from the provided configuration.
//
// This function orchestrates the complete initialization process:
//  1. Creates and registers all node stores from cfg.NodeStores
//  2. Creates and registers all frame stores from cfg.FrameStores
//  3. Adds every server in cfg.Servers, provisioning its volumes and projects
//
// On failure every store opened so far is closed.
//
// Example:
//
//	cfg, _ := config.Load("config.yaml")
//	reg, err := config.InitializeRegistry(ctx, cfg)
//	if err != nil {
//	    log.Fatalf("Failed to initialize registry: %v", err)
//	}
//	client := local.NewClient(reg)
func InitializeRegistry(ctx context.Context, cfg *Config) (*registry.Registry, error) {
	logger.Debug("Initializing registry from configuration")

	if err := validateRegistryConfig(cfg); err != nil {
		return nil, err
	}

	reg := registry.NewRegistry()

	if err := registerNodeStores(ctx, reg, cfg); err != nil {
		_ = reg.Close()
		return nil, fmt.Errorf("failed to register node stores: %w", err)
	}
	logger.Debug("Registered %d node store(s)", len(reg.ListNodeStores()))

	if err := registerFrameStores(ctx, reg, cfg); err != nil {
		_ = reg.Close()
		return nil, fmt.Errorf("failed to register frame stores: %w", err)
	}
	logger.Debug("Registered %d frame store(s)", len(reg.ListFrameStores()))

	if err := addServers(ctx, reg, cfg); err != nil {
		_ = reg.Close()
		return nil, fmt.Errorf("failed to add servers: %w", err)
	}
	logger.Debug("Registered %d server(s)", reg.CountServers())

	return reg, nil
}

// validateRegistryConfig performs basic validation on the configuration.
func validateRegistryConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}
	if len(cfg.NodeStores) == 0 {
		return fmt.Errorf("no node stores configured: at least one node store is required")
	}
	if len(cfg.FrameStores) == 0 {
		return fmt.Errorf("no frame stores configured: at least one frame store is required")
	}
	if len(cfg.Servers) == 0 {
		return fmt.Errorf("no servers configured: at least one server is required")
	}
	return nil
}

// registerNodeStores creates and registers all configured node stores, in
// name order so failures are reproducible.
func registerNodeStores(ctx context.Context, reg *registry.Registry, cfg *Config) error {
	for _, name := range sortedNames(cfg.NodeStores) {
		storeCfg := cfg.NodeStores[name]
		logger.Debug("Creating node store %q (type: %s)", name, storeCfg.Type)

		store, err := CreateNodeStore(ctx, storeCfg)
		if err != nil {
			return fmt.Errorf("failed to create node store %q: %w", name, err)
		}

		if err := reg.RegisterNodeStore(name, store); err != nil {
			_ = store.Close()
			return fmt.Errorf("failed to register node store %q: %w", name, err)
		}
	}
	return nil
}

// registerFrameStores creates and registers all configured frame stores.
func registerFrameStores(ctx context.Context, reg *registry.Registry, cfg *Config) error {
	for _, name := range sortedNames(cfg.FrameStores) {
		storeCfg := cfg.FrameStores[name]
		logger.Debug("Creating frame store %q (type: %s)", name, storeCfg.Type)

		store, err := CreateFrameStore(ctx, name, storeCfg)
		if err != nil {
			return fmt.Errorf("failed to create frame store %q: %w", name, err)
		}

		if err := reg.RegisterFrameStore(name, store); err != nil {
			_ = store.Close()
			return fmt.Errorf("failed to register frame store %q: %w", name, err)
		}
	}
	return nil
}

// addServers adds all configured servers to the registry.
func addServers(ctx context.Context, reg *registry.Registry, cfg *Config) error {
	for i, srvCfg := range cfg.Servers {
		product, err := wiretap.ParseProduct(srvCfg.Product)
		if err != nil {
			return fmt.Errorf("server #%d: %w", i+1, err)
		}

		volumes := make([]registry.VolumeConfig, 0, len(srvCfg.Volumes))
		for _, v := range srvCfg.Volumes {
			volumes = append(volumes, registry.VolumeConfig{Name: v.Name, Projects: v.Projects})
		}

		if err := reg.AddServer(ctx, &registry.ServerConfig{
			Name:       srvCfg.Name,
			Product:    product,
			NodeStore:  srvCfg.NodeStore,
			FrameStore: srvCfg.FrameStore,
			Volumes:    volumes,
		}); err != nil {
			return err
		}

		logger.Debug("Server %s added (node store: %s, frame store: %s)",
			srvCfg.Name, srvCfg.NodeStore, srvCfg.FrameStore)
	}
	return nil
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
