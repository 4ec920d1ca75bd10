package registry

import (
	"fmt"
	"strings"

	"github.com/marmos91/stonify/pkg/store/frame"
	"github.com/marmos91/stonify/pkg/store/node"
	"github.com/marmos91/stonify/pkg/wiretap"
)

// Server binds a served Wiretap hierarchy to its stores:
// - the server identity advertised by the directory service
// - a node store holding the node tree (one server per node store)
// - a frame store holding clip frames (may be shared)
type Server struct {
	Info       wiretap.ServerInfo
	NodeStore  string // Name of the node store
	FrameStore string // Name of the frame store

	Nodes  node.Store
	Frames frame.Store
}

// Hostname returns the "name:Product" form clients connect with.
func (s *Server) Hostname() string {
	return s.Info.Hostname()
}

// ServerConfig contains all configuration needed to add a server.
type ServerConfig struct {
	Name       string
	Product    wiretap.Product
	NodeStore  string
	FrameStore string

	// Volumes are provisioned (with their projects) when the server is
	// added. Clients cannot create volumes or projects.
	Volumes []VolumeConfig
}

// VolumeConfig names a volume and the projects it holds.
type VolumeConfig struct {
	Name     string
	Projects []string
}

// NamedChildID returns the node ID of a volume or project: the parent ID
// followed by the node name.
func NamedChildID(parent, name string) string {
	if parent == wiretap.RootID {
		return "/" + name
	}
	return parent + "/" + name
}

// ValidateNodeName rejects display names that would break display paths.
// Reels and clips may be unnamed, so an empty name is accepted.
func ValidateNodeName(name string) error {
	if strings.ContainsAny(name, "/\x00") {
		return fmt.Errorf("node name %q contains a slash or NUL", name)
	}
	return nil
}

// validateNamedNode checks a volume or project name, which becomes part of
// the node ID.
func validateNamedNode(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("node name is empty")
	}
	return ValidateNodeName(name)
}

func (c *ServerConfig) validate() error {
	if c.Name == "" {
		return fmt.Errorf("cannot add server with empty name")
	}
	if strings.Contains(c.Name, ":") || strings.Contains(c.Name, "/") {
		return fmt.Errorf("server name %q must not contain ':' or '/'", c.Name)
	}
	product, err := wiretap.ParseProduct(string(c.Product))
	if err != nil {
		return err
	}
	c.Product = product

	for _, vol := range c.Volumes {
		if err := validateNamedNode(vol.Name); err != nil {
			return fmt.Errorf("volume: %w", err)
		}
		for _, proj := range vol.Projects {
			if err := validateNamedNode(proj); err != nil {
				return fmt.Errorf("project in volume %q: %w", vol.Name, err)
			}
		}
	}
	return nil
}
