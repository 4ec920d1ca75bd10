package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/stonify/pkg/store/frame"
	frametesting "github.com/marmos91/stonify/pkg/store/frame/testing"
)

func TestFSFrameStore(t *testing.T) {
	suite := &frametesting.StoreTestSuite{
		NewStore: func() frame.Store {
			store, err := NewFSFrameStore(context.Background(), t.TempDir())
			if err != nil {
				t.Fatalf("Failed to create FSFrameStore: %v", err)
			}
			return store
		},
	}
	suite.Run(t)
}

func TestFSFrameStore_Layout(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()

	store, err := NewFSFrameStore(ctx, base)
	require.NoError(t, err)

	require.NoError(t, store.WriteFrame(ctx, "/stonefs/proj/1a2b", 12, []byte("frame")))

	data, err := os.ReadFile(filepath.Join(base, "stonefs", "proj", "1a2b", "00000012.frame"))
	require.NoError(t, err)
	assert.Equal(t, "frame", string(data))

	entries, err := os.ReadDir(filepath.Join(base, "stonefs", "proj", "1a2b"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")

	require.NoError(t, store.DeleteClip(ctx, "/stonefs/proj/1a2b"))
	_, err = os.Stat(filepath.Join(base, "stonefs", "proj", "1a2b"))
	assert.True(t, os.IsNotExist(err))
}
