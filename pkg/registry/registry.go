package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/marmos91/stonify/internal/logger"
	"github.com/marmos91/stonify/pkg/store/frame"
	"github.com/marmos91/stonify/pkg/store/node"
	"github.com/marmos91/stonify/pkg/wiretap"
)

// Registry manages all named resources served by the local Wiretap
// service: node stores, frame stores and the servers built on them.
// It provides thread-safe registration and lookup.
//
// Example usage:
//
//	reg := NewRegistry()
//	reg.RegisterNodeStore("nodes", badgerStore)
//	reg.RegisterFrameStore("frames", s3Store)
//	reg.AddServer(ctx, &ServerConfig{Name: "mars", Product: wiretap.ProductIFFFS,
//	    NodeStore: "nodes", FrameStore: "frames"})
//
//	srv, _ := reg.GetServer("mars:IFFFS")
type Registry struct {
	mu      sync.RWMutex
	nodes   map[string]node.Store
	frames  map[string]frame.Store
	servers map[string]*Server // key: hostname
	order   []string           // hostnames in the order they were added
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		nodes:   make(map[string]node.Store),
		frames:  make(map[string]frame.Store),
		servers: make(map[string]*Server),
	}
}

// RegisterNodeStore adds a named node store to the registry.
// Returns an error if a store with the same name already exists.
func (r *Registry) RegisterNodeStore(name string, store node.Store) error {
	if store == nil {
		return fmt.Errorf("cannot register nil node store")
	}
	if name == "" {
		return fmt.Errorf("cannot register node store with empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodes[name]; exists {
		return fmt.Errorf("node store %q already registered", name)
	}

	r.nodes[name] = store
	return nil
}

// RegisterFrameStore adds a named frame store to the registry.
// Returns an error if a store with the same name already exists.
func (r *Registry) RegisterFrameStore(name string, store frame.Store) error {
	if store == nil {
		return fmt.Errorf("cannot register nil frame store")
	}
	if name == "" {
		return fmt.Errorf("cannot register frame store with empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.frames[name]; exists {
		return fmt.Errorf("frame store %q already registered", name)
	}

	r.frames[name] = store
	return nil
}

// AddServer registers a server and provisions its root, volume and project
// nodes. Provisioning is idempotent: nodes that already exist in a
// persistent node store are reused.
//
// Returns an error if:
// - A server with the same hostname already exists
// - The referenced stores don't exist, or the node store backs another server
// - Provisioning fails
func (r *Registry) AddServer(ctx context.Context, config *ServerConfig) error {
	if err := config.validate(); err != nil {
		return err
	}

	info := wiretap.ServerInfo{DisplayName: config.Name, Product: config.Product}
	hostname := info.Hostname()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.servers[hostname]; exists {
		return fmt.Errorf("server %q already exists", hostname)
	}

	nodeStore, exists := r.nodes[config.NodeStore]
	if !exists {
		return fmt.Errorf("node store %q not found", config.NodeStore)
	}
	frameStore, exists := r.frames[config.FrameStore]
	if !exists {
		return fmt.Errorf("frame store %q not found", config.FrameStore)
	}
	for _, srv := range r.servers {
		if srv.NodeStore == config.NodeStore {
			return fmt.Errorf("node store %q already backs server %q", config.NodeStore, srv.Hostname())
		}
	}

	if err := provision(ctx, nodeStore, config); err != nil {
		return fmt.Errorf("failed to provision server %q: %w", hostname, err)
	}

	r.servers[hostname] = &Server{
		Info:       info,
		NodeStore:  config.NodeStore,
		FrameStore: config.FrameStore,
		Nodes:      nodeStore,
		Frames:     frameStore,
	}
	r.order = append(r.order, hostname)

	logger.Debug("Registered server %s (nodes=%s, frames=%s)", hostname, config.NodeStore, config.FrameStore)
	return nil
}

func provision(ctx context.Context, store node.Store, config *ServerConfig) error {
	if err := ensureNode(ctx, store, "", wiretap.RootID, config.Name, wiretap.NodeHost); err != nil {
		return err
	}

	for _, vol := range config.Volumes {
		volID := NamedChildID(wiretap.RootID, vol.Name)
		if err := ensureNode(ctx, store, wiretap.RootID, volID, vol.Name, wiretap.NodeVolume); err != nil {
			return err
		}

		for _, proj := range vol.Projects {
			projID := NamedChildID(volID, proj)
			if err := ensureNode(ctx, store, volID, projID, proj, wiretap.NodeProject); err != nil {
				return err
			}
		}
	}
	return nil
}

func ensureNode(ctx context.Context, store node.Store, parent, id, name string, typ wiretap.NodeType) error {
	rec, err := store.Get(ctx, id)
	switch {
	case err == nil:
		if rec.Type != typ {
			return fmt.Errorf("node %s exists with type %s, want %s", id, rec.Type, typ)
		}
		return nil
	case !node.IsCode(err, node.ErrNotFound):
		return err
	}

	err = store.Create(ctx, &node.Record{ID: id, Parent: parent, Name: name, Type: typ})
	if err != nil && !node.IsCode(err, node.ErrAlreadyExists) {
		return err
	}
	logger.Debug("Provisioned %s node %q at %s", typ, name, id)
	return nil
}

// RemoveServer unregisters a server. Its stores and nodes are untouched.
func (r *Registry) RemoveServer(hostname string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.servers[hostname]; !exists {
		return fmt.Errorf("server %q not found", hostname)
	}

	delete(r.servers, hostname)
	for i, h := range r.order {
		if h == hostname {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// GetServer returns the server registered under hostname ("name:Product").
func (r *Registry) GetServer(hostname string) (*Server, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	srv, exists := r.servers[hostname]
	if !exists {
		return nil, fmt.Errorf("server %q not found", hostname)
	}
	return srv, nil
}

// ListServers returns the registered servers in the order they were added.
func (r *Registry) ListServers() []wiretap.ServerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]wiretap.ServerInfo, 0, len(r.order))
	for _, h := range r.order {
		infos = append(infos, r.servers[h].Info)
	}
	return infos
}

// GetNodeStore returns a node store by name.
func (r *Registry) GetNodeStore(name string) (node.Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	store, exists := r.nodes[name]
	if !exists {
		return nil, fmt.Errorf("node store %q not found", name)
	}
	return store, nil
}

// GetFrameStore returns a frame store by name.
func (r *Registry) GetFrameStore(name string) (frame.Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	store, exists := r.frames[name]
	if !exists {
		return nil, fmt.Errorf("frame store %q not found", name)
	}
	return store, nil
}

// ListNodeStores returns the sorted names of all node stores.
func (r *Registry) ListNodeStores() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.nodes)
}

// ListFrameStores returns the sorted names of all frame stores.
func (r *Registry) ListFrameStores() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.frames)
}

// CountServers returns the number of registered servers.
func (r *Registry) CountServers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.servers)
}

// Close closes every registered store and joins their errors.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, store := range r.nodes {
		if err := store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("node store %q: %w", name, err))
		}
	}
	for name, store := range r.frames {
		if err := store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("frame store %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
