package local

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/stonify/pkg/registry"
	framememory "github.com/marmos91/stonify/pkg/store/frame/memory"
	nodememory "github.com/marmos91/stonify/pkg/store/node/memory"
	"github.com/marmos91/stonify/pkg/wiretap"
)

var testFormat = wiretap.ClipFormat{
	Width:        4,
	Height:       2,
	BitsPerPixel: 24,
	NumChannels:  3,
	FrameRate:    24,
	FormatTag:    wiretap.FormatRGB,
}

func newTestServer(t *testing.T) wiretap.Server {
	t.Helper()
	ctx := context.Background()

	reg := registry.NewRegistry()
	require.NoError(t, reg.RegisterNodeStore("nodes", nodememory.NewMemoryNodeStore()))
	require.NoError(t, reg.RegisterFrameStore("frames", framememory.NewMemoryFrameStore()))
	require.NoError(t, reg.AddServer(ctx, &registry.ServerConfig{
		Name: "mars", Product: wiretap.ProductIFFFS, NodeStore: "nodes", FrameStore: "frames",
		Volumes: []registry.VolumeConfig{{Name: "stonefs", Projects: []string{"show"}}},
	}))
	t.Cleanup(func() { _ = reg.Close() })

	srv, err := NewClient(reg).Connect(ctx, "mars:IFFFS")
	require.NoError(t, err)
	return srv
}

func newClip(t *testing.T, srv wiretap.Server, frames int) string {
	t.Helper()
	ctx := context.Background()

	lib, err := srv.CreateNode(ctx, "/stonefs/show", "lib", wiretap.NodeLibrary)
	require.NoError(t, err)
	clip, err := srv.CreateClip(ctx, lib.ID, "clip", testFormat)
	require.NoError(t, err)
	require.NoError(t, srv.SetNumFrames(ctx, clip.ID, frames))
	return clip.ID
}

func TestClient(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewRegistry()
	require.NoError(t, reg.RegisterNodeStore("nodes", nodememory.NewMemoryNodeStore()))
	require.NoError(t, reg.RegisterFrameStore("frames", framememory.NewMemoryFrameStore()))
	require.NoError(t, reg.AddServer(ctx, &registry.ServerConfig{
		Name: "venus", Product: wiretap.ProductGateway, NodeStore: "nodes", FrameStore: "frames",
	}))

	client := NewClient(reg)

	servers, err := client.ListServers(ctx)
	require.NoError(t, err)
	require.Len(t, servers, 1)
	assert.Equal(t, "venus:Gateway", servers[0].Hostname())

	_, err = client.Connect(ctx, "venus:IFFFS")
	assert.True(t, wiretap.IsCode(err, wiretap.ErrConnection))

	srv, err := client.Connect(ctx, "venus:Gateway")
	require.NoError(t, err)
	root, err := srv.Node(ctx, wiretap.RootID)
	require.NoError(t, err)
	assert.Equal(t, wiretap.NodeHost, root.Type)
	assert.Equal(t, "venus", root.DisplayName)
}

func TestCreateNode(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)

	t.Run("LibraryAndReel", func(t *testing.T) {
		lib, err := srv.CreateNode(ctx, "/stonefs/show", "dailies", wiretap.NodeLibrary)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(lib.ID, "/stonefs/show/"))
		assert.Len(t, strings.TrimPrefix(lib.ID, "/stonefs/show/"), 16)

		reel, err := srv.CreateNode(ctx, lib.ID, "reel 1", wiretap.NodeReel)
		require.NoError(t, err)
		assert.Equal(t, "reel 1", reel.DisplayName)

		children, err := srv.Children(ctx, lib.ID)
		require.NoError(t, err)
		assert.Equal(t, []wiretap.NodeInfo{reel}, children)
	})

	t.Run("DuplicateNamesGetDistinctIDs", func(t *testing.T) {
		a, err := srv.CreateNode(ctx, "/stonefs/show", "same", wiretap.NodeLibrary)
		require.NoError(t, err)
		b, err := srv.CreateNode(ctx, "/stonefs/show", "same", wiretap.NodeLibrary)
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)
	})

	t.Run("Placement", func(t *testing.T) {
		_, err := srv.CreateNode(ctx, "/stonefs", "lib", wiretap.NodeLibrary)
		assert.True(t, wiretap.IsCode(err, wiretap.ErrNodeAccess))

		_, err = srv.CreateNode(ctx, "/stonefs/show", "reel", wiretap.NodeReel)
		assert.True(t, wiretap.IsCode(err, wiretap.ErrNodeAccess))

		_, err = srv.CreateNode(ctx, wiretap.RootID, "vol", wiretap.NodeVolume)
		assert.True(t, wiretap.IsCode(err, wiretap.ErrNodeAccess))

		_, err = srv.CreateNode(ctx, "/stonefs/show", "clip", wiretap.NodeClip)
		assert.True(t, wiretap.IsCode(err, wiretap.ErrNodeAccess))
	})

	t.Run("MissingParent", func(t *testing.T) {
		_, err := srv.CreateNode(ctx, "/nope", "lib", wiretap.NodeLibrary)
		require.Error(t, err)
		assert.True(t, wiretap.IsCode(err, wiretap.ErrNodeAccess))
		assert.Contains(t, err.Error(), "node not found")
	})

	t.Run("InvalidName", func(t *testing.T) {
		_, err := srv.CreateNode(ctx, "/stonefs/show", "a/b", wiretap.NodeLibrary)
		assert.True(t, wiretap.IsCode(err, wiretap.ErrNodeAccess))
	})
}

func TestCreateClip(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)

	lib, err := srv.CreateNode(ctx, "/stonefs/show", "lib", wiretap.NodeLibrary)
	require.NoError(t, err)

	clip, err := srv.CreateClip(ctx, lib.ID, "shot_010", testFormat)
	require.NoError(t, err)
	assert.Equal(t, wiretap.NodeClip, clip.Type)

	format, err := srv.ClipFormat(ctx, clip.ID)
	require.NoError(t, err)
	assert.Equal(t, 4*2*3, format.FrameBufferSize)
	assert.Equal(t, wiretap.DefaultPixelRatio, format.PixelRatio)
	assert.Equal(t, wiretap.ScanProgressive, format.ScanFormat)

	n, err := srv.NumFrames(ctx, clip.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = srv.CreateClip(ctx, "/stonefs/show", "bad", testFormat)
	assert.True(t, wiretap.IsCode(err, wiretap.ErrNodeAccess))

	bad := testFormat
	bad.Width = 0
	_, err = srv.CreateClip(ctx, lib.ID, "bad", bad)
	assert.True(t, wiretap.IsCode(err, wiretap.ErrFormat))

	_, err = srv.ClipFormat(ctx, lib.ID)
	assert.True(t, wiretap.IsCode(err, wiretap.ErrFormat))
}

func TestFrames(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)
	clipID := newClip(t, srv, 3)

	frame := []byte("0123456789abcdefghijklmnXX")
	require.NoError(t, srv.WriteFrame(ctx, clipID, 1, frame))

	buf := make([]byte, 24)
	n, err := srv.ReadFrame(ctx, clipID, 1, buf)
	require.NoError(t, err)
	assert.Equal(t, 24, n)
	assert.Equal(t, frame[:24], buf)

	t.Run("OutOfRange", func(t *testing.T) {
		err := srv.WriteFrame(ctx, clipID, 3, frame)
		assert.True(t, wiretap.IsCode(err, wiretap.ErrFrameIO))

		_, err = srv.ReadFrame(ctx, clipID, -1, buf)
		assert.True(t, wiretap.IsCode(err, wiretap.ErrFrameIO))
	})

	t.Run("ShortBuffers", func(t *testing.T) {
		err := srv.WriteFrame(ctx, clipID, 0, frame[:10])
		assert.True(t, wiretap.IsCode(err, wiretap.ErrFrameIO))

		_, err = srv.ReadFrame(ctx, clipID, 1, make([]byte, 10))
		assert.True(t, wiretap.IsCode(err, wiretap.ErrFrameIO))
	})

	t.Run("Unwritten", func(t *testing.T) {
		_, err := srv.ReadFrame(ctx, clipID, 2, buf)
		require.Error(t, err)
		assert.True(t, wiretap.IsCode(err, wiretap.ErrFrameIO))
		assert.Contains(t, err.Error(), "never written")
	})
}

func TestDestroyNode(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)
	clipID := newClip(t, srv, 1)

	require.NoError(t, srv.WriteFrame(ctx, clipID, 0, make([]byte, 24)))

	clip, err := srv.Node(ctx, clipID)
	require.NoError(t, err)
	parent := clipID[:strings.LastIndex(clipID, "/")]

	err = srv.DestroyNode(ctx, parent)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node has children")

	require.NoError(t, srv.DestroyNode(ctx, clip.ID))
	_, err = srv.Node(ctx, clip.ID)
	assert.True(t, wiretap.IsCode(err, wiretap.ErrNodeAccess))

	require.NoError(t, srv.DestroyNode(ctx, parent))
	assert.Error(t, srv.DestroyNode(ctx, wiretap.RootID))
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)

	require.NoError(t, srv.Close())
	_, err := srv.Children(ctx, wiretap.RootID)
	assert.True(t, wiretap.IsCode(err, wiretap.ErrConnection))
}
