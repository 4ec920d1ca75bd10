package badger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/stonify/pkg/store/node"
	nodetesting "github.com/marmos91/stonify/pkg/store/node/testing"
	"github.com/marmos91/stonify/pkg/wiretap"
)

func TestBadgerNodeStore(t *testing.T) {
	suite := &nodetesting.StoreTestSuite{
		NewStore: func() node.Store {
			store, err := NewBadgerNodeStore(context.Background(), BadgerNodeStoreConfig{InMemory: true})
			if err != nil {
				t.Fatalf("Failed to create BadgerNodeStore: %v", err)
			}
			return store
		},
	}
	suite.Run(t)
}

func TestBadgerNodeStore_Persistence(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nodes")

	store, err := NewBadgerNodeStore(ctx, BadgerNodeStoreConfig{DBPath: dir})
	require.NoError(t, err)

	require.NoError(t, store.Create(ctx, &node.Record{ID: "/", Name: "mars", Type: wiretap.NodeHost}))
	first := &node.Record{ID: "/stonefs", Parent: "/", Name: "stonefs", Type: wiretap.NodeVolume}
	require.NoError(t, store.Create(ctx, first))
	require.NoError(t, store.Close())

	reopened, err := NewBadgerNodeStore(ctx, BadgerNodeStoreConfig{DBPath: dir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.Get(ctx, "/stonefs")
	require.NoError(t, err)
	assert.Equal(t, first, got)

	// New siblings still sort after the ones created before the restart.
	second := &node.Record{ID: "/archive", Parent: "/", Name: "archive", Type: wiretap.NodeVolume}
	require.NoError(t, reopened.Create(ctx, second))
	assert.Greater(t, second.Seq, first.Seq)

	children, err := reopened.Children(ctx, "/")
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "/stonefs", children[0].ID)
	assert.Equal(t, "/archive", children[1].ID)
}

func TestRecordSerialization(t *testing.T) {
	rec := &node.Record{
		ID: "/v/p/l/c", Parent: "/v/p/l", Name: "clip", Type: wiretap.NodeClip, NumFrames: 3, Seq: 9,
		Format: &wiretap.ClipFormat{Width: 2, Height: 2, BitsPerPixel: 32, NumChannels: 4, FrameRate: 25,
			PixelRatio: 1, FormatTag: wiretap.FormatRGBALE, FrameBufferSize: 16},
	}

	data, err := encodeRecord(rec)
	require.NoError(t, err)

	got, err := decodeRecord(data)
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	noFormat := &node.Record{ID: "/v", Parent: "/", Name: "v", Type: wiretap.NodeVolume, Seq: 1}
	data, err = encodeRecord(noFormat)
	require.NoError(t, err)
	got, err = decodeRecord(data)
	require.NoError(t, err)
	assert.Nil(t, got.Format)
}
