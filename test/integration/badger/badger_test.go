//go:build integration

package badger_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/stonify/pkg/store/node"
	"github.com/marmos91/stonify/pkg/store/node/badger"
	nodetesting "github.com/marmos91/stonify/pkg/store/node/testing"
	"github.com/marmos91/stonify/pkg/wiretap"
)

// TestBadgerNodeStore_Integration runs the node store suite against on-disk
// databases.
//
// Run with: go test -tags=integration ./test/integration/badger/...
func TestBadgerNodeStore_Integration(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	n := 0
	suite := &nodetesting.StoreTestSuite{
		NewStore: func() node.Store {
			n++
			store, err := badger.NewBadgerNodeStore(ctx, badger.BadgerNodeStoreConfig{
				DBPath: filepath.Join(dir, fmt.Sprintf("db-%d", n)),
			})
			require.NoError(t, err)
			return store
		},
	}
	suite.Run(t)
}

// TestBadgerNodeStore_Persistence checks that nodes survive a reopen.
func TestBadgerNodeStore_Persistence(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nodes.db")

	open := func() *badger.BadgerNodeStore {
		store, err := badger.NewBadgerNodeStore(ctx, badger.BadgerNodeStoreConfig{DBPath: dbPath})
		require.NoError(t, err)
		return store
	}

	store := open()
	require.NoError(t, store.Create(ctx, &node.Record{ID: "/", Name: "mars", Type: wiretap.NodeHost}))
	require.NoError(t, store.Create(ctx, &node.Record{ID: "/stonefs", Parent: "/", Name: "stonefs", Type: wiretap.NodeVolume}))
	require.NoError(t, store.Create(ctx, &node.Record{ID: "/stonefs/show", Parent: "/stonefs", Name: "show", Type: wiretap.NodeProject}))
	require.NoError(t, store.Create(ctx, &node.Record{ID: "/stonefs/show/lib", Parent: "/stonefs/show", Name: "dailies", Type: wiretap.NodeLibrary}))
	require.NoError(t, store.Close())

	store = open()
	defer store.Close()

	rec, err := store.Get(ctx, "/stonefs/show/lib")
	require.NoError(t, err)
	assert.Equal(t, "dailies", rec.Name)
	assert.Equal(t, wiretap.NodeLibrary, rec.Type)

	children, err := store.Children(ctx, "/stonefs")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "/stonefs/show", children[0].ID)

	// Children created after a reopen keep sibling order.
	require.NoError(t, store.Create(ctx, &node.Record{ID: "/stonefs/show/lib2", Parent: "/stonefs/show", Name: "conform", Type: wiretap.NodeLibrary}))
	children, err = store.Children(ctx, "/stonefs/show")
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "dailies", children[0].Name)
	assert.Equal(t, "conform", children[1].Name)

	err = store.Create(ctx, &node.Record{ID: "/stonefs", Parent: "/", Name: "stonefs", Type: wiretap.NodeVolume})
	assert.True(t, node.IsCode(err, node.ErrAlreadyExists))
}
