package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	framememory "github.com/marmos91/stonify/pkg/store/frame/memory"
	nodememory "github.com/marmos91/stonify/pkg/store/node/memory"
	"github.com/marmos91/stonify/pkg/wiretap"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, reg.RegisterNodeStore("nodes", nodememory.NewMemoryNodeStore()))
	require.NoError(t, reg.RegisterNodeStore("gateway-nodes", nodememory.NewMemoryNodeStore()))
	require.NoError(t, reg.RegisterFrameStore("frames", framememory.NewMemoryFrameStore()))
	return reg
}

func TestRegisterStores(t *testing.T) {
	reg := newTestRegistry(t)

	assert.Error(t, reg.RegisterNodeStore("nodes", nodememory.NewMemoryNodeStore()))
	assert.Error(t, reg.RegisterNodeStore("", nodememory.NewMemoryNodeStore()))
	assert.Error(t, reg.RegisterFrameStore("x", nil))

	assert.Equal(t, []string{"gateway-nodes", "nodes"}, reg.ListNodeStores())
	assert.Equal(t, []string{"frames"}, reg.ListFrameStores())

	_, err := reg.GetFrameStore("missing")
	assert.Error(t, err)
}

func TestAddServer_Provisions(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	cfg := &ServerConfig{
		Name: "mars", Product: wiretap.ProductIFFFS, NodeStore: "nodes", FrameStore: "frames",
		Volumes: []VolumeConfig{{Name: "stonefs", Projects: []string{"show_a", "show_b"}}},
	}
	require.NoError(t, reg.AddServer(ctx, cfg))

	srv, err := reg.GetServer("mars:IFFFS")
	require.NoError(t, err)

	root, err := srv.Nodes.Get(ctx, wiretap.RootID)
	require.NoError(t, err)
	assert.Equal(t, wiretap.NodeHost, root.Type)
	assert.Equal(t, "mars", root.Name)

	projects, err := srv.Nodes.Children(ctx, "/stonefs")
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "/stonefs/show_a", projects[0].ID)
	assert.Equal(t, wiretap.NodeProject, projects[0].Type)
	assert.Equal(t, "/stonefs/show_b", projects[1].ID)
}

func TestAddServer_IdempotentProvisioning(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	cfg := &ServerConfig{
		Name: "mars", Product: wiretap.ProductIFFFS, NodeStore: "nodes", FrameStore: "frames",
		Volumes: []VolumeConfig{{Name: "stonefs", Projects: []string{"show_a"}}},
	}
	require.NoError(t, reg.AddServer(ctx, cfg))
	require.NoError(t, reg.RemoveServer("mars:IFFFS"))

	cfg.Volumes[0].Projects = append(cfg.Volumes[0].Projects, "show_b")
	require.NoError(t, reg.AddServer(ctx, cfg))

	srv, err := reg.GetServer("mars:IFFFS")
	require.NoError(t, err)
	volumes, err := srv.Nodes.Children(ctx, wiretap.RootID)
	require.NoError(t, err)
	assert.Len(t, volumes, 1)

	projects, err := srv.Nodes.Children(ctx, "/stonefs")
	require.NoError(t, err)
	assert.Len(t, projects, 2)
}

func TestAddServer_Errors(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	base := ServerConfig{Name: "mars", Product: wiretap.ProductIFFFS, NodeStore: "nodes", FrameStore: "frames"}
	require.NoError(t, reg.AddServer(ctx, &base))

	dup := base
	assert.ErrorContains(t, reg.AddServer(ctx, &dup), "already exists")

	shared := base
	shared.Product = wiretap.ProductGateway
	assert.ErrorContains(t, reg.AddServer(ctx, &shared), "already backs")

	missing := base
	missing.Name, missing.NodeStore = "venus", "ghost"
	assert.ErrorContains(t, reg.AddServer(ctx, &missing), "not found")

	badName := base
	badName.Name = "a:b"
	assert.Error(t, reg.AddServer(ctx, &badName))

	badVolume := base
	badVolume.Name, badVolume.NodeStore = "venus", "gateway-nodes"
	badVolume.Volumes = []VolumeConfig{{Name: "a/b"}}
	assert.Error(t, reg.AddServer(ctx, &badVolume))

	badProduct := base
	badProduct.Name, badProduct.Product = "venus", "Flame"
	assert.Error(t, reg.AddServer(ctx, &badProduct))
}

func TestListServers_Order(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	require.NoError(t, reg.AddServer(ctx, &ServerConfig{Name: "zeta", Product: wiretap.ProductIFFFS, NodeStore: "nodes", FrameStore: "frames"}))
	require.NoError(t, reg.AddServer(ctx, &ServerConfig{Name: "alpha", Product: wiretap.ProductGateway, NodeStore: "gateway-nodes", FrameStore: "frames"}))

	infos := reg.ListServers()
	require.Len(t, infos, 2)
	assert.Equal(t, "zeta:IFFFS", infos[0].Hostname())
	assert.Equal(t, "alpha:Gateway", infos[1].Hostname())
	assert.Equal(t, 2, reg.CountServers())

	require.NoError(t, reg.Close())
}

func TestNamedChildID(t *testing.T) {
	assert.Equal(t, "/stonefs", NamedChildID(wiretap.RootID, "stonefs"))
	assert.Equal(t, "/stonefs/show", NamedChildID("/stonefs", "show"))
}
