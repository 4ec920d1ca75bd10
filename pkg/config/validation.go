package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/stonify/pkg/nodepath"
	"github.com/marmos91/stonify/pkg/transfer"
	"github.com/marmos91/stonify/pkg/wiretap"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// Struct tags cover field-level constraints; cross-references between
// servers and stores are checked by hand.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if len(cfg.Servers) == 0 {
		return fmt.Errorf("servers: at least one server must be configured")
	}

	if _, err := wiretap.ParseProductSet(cfg.Browser.Products); err != nil {
		return fmt.Errorf("browser.products: %w", err)
	}

	if cfg.Transfer.StartTimecode != "" {
		if err := transfer.ValidateTimecode(cfg.Transfer.StartTimecode); err != nil {
			return fmt.Errorf("transfer.start_timecode: %w", err)
		}
	}

	for key := range cfg.Mounts {
		if err := validateMountKey(key); err != nil {
			return fmt.Errorf("mounts: %w", err)
		}
	}

	hostnames := make(map[string]int)
	nodeStoreOwner := make(map[string]string)
	for i, srv := range cfg.Servers {
		product, err := wiretap.ParseProduct(srv.Product)
		if err != nil {
			return fmt.Errorf("servers[%d]: %w", i, err)
		}

		hostname := wiretap.ServerInfo{DisplayName: srv.Name, Product: product}.Hostname()
		if prev, ok := hostnames[strings.ToLower(hostname)]; ok {
			return fmt.Errorf("servers[%d]: hostname %q already used by servers[%d]", i, hostname, prev)
		}
		hostnames[strings.ToLower(hostname)] = i

		if _, ok := cfg.NodeStores[srv.NodeStore]; !ok {
			return fmt.Errorf("servers[%d]: node store %q is not defined", i, srv.NodeStore)
		}
		if _, ok := cfg.FrameStores[srv.FrameStore]; !ok {
			return fmt.Errorf("servers[%d]: frame store %q is not defined", i, srv.FrameStore)
		}

		// The node store holds the server's root node.
		if owner, ok := nodeStoreOwner[srv.NodeStore]; ok {
			return fmt.Errorf("servers[%d]: node store %q already backs server %q", i, srv.NodeStore, owner)
		}
		nodeStoreOwner[srv.NodeStore] = srv.Name

		volumes := make(map[string]bool)
		for _, vol := range srv.Volumes {
			if volumes[vol.Name] {
				return fmt.Errorf("servers[%d]: duplicate volume %q", i, vol.Name)
			}
			volumes[vol.Name] = true
		}
	}

	for name, store := range cfg.FrameStores {
		if err := validateFrameStore(store); err != nil {
			return fmt.Errorf("frame_stores.%s: %w", name, err)
		}
	}
	for name, store := range cfg.NodeStores {
		if store.Type != "badger" {
			continue
		}
		if path, _ := store.Badger["db_path"].(string); path == "" {
			if inMemory, _ := store.Badger["in_memory"].(bool); !inMemory {
				return fmt.Errorf("node_stores.%s: badger.db_path is required", name)
			}
		}
	}

	return nil
}

func validateFrameStore(store FrameStoreConfig) error {
	switch store.Type {
	case "filesystem":
		if path, _ := store.Filesystem["path"].(string); path == "" {
			return fmt.Errorf("filesystem.path is required")
		}
	case "s3":
		if bucket, _ := store.S3["bucket"].(string); bucket == "" {
			return fmt.Errorf("s3.bucket is required")
		}
		if region, _ := store.S3["region"].(string); region == "" {
			return fmt.Errorf("s3.region is required")
		}
	}
	return nil
}

// validateMountKey accepts a drive letter ("C:") or a two-segment mount
// point ("/mnt/share").
func validateMountKey(key string) error {
	if len(key) == 2 && key[1] == ':' {
		return nil
	}
	if strings.HasPrefix(key, "/") && len(nodepath.Segments(key)) == 2 {
		return nil
	}
	return fmt.Errorf("invalid mount %q: want a drive letter or a two-segment mount point", key)
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
