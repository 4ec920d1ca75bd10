package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/stonify/pkg/store/node"
	"github.com/marmos91/stonify/pkg/wiretap"
)

// StoreTestSuite checks the node.Store contract. Every backend runs it.
//
// Usage:
//
//	func TestMyNodeStore(t *testing.T) {
//	    suite := &nodetesting.StoreTestSuite{
//	        NewStore: func() node.Store { return mystore.New() },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh, empty store for each test.
	NewStore func() node.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("Create", suite.testCreate)
	t.Run("Children", suite.testChildren)
	t.Run("Update", suite.testUpdate)
	t.Run("Delete", suite.testDelete)
}

func testContext() context.Context {
	return context.Background()
}

// newTree creates root -> /vol -> /vol/proj and returns the store.
func (suite *StoreTestSuite) newTree(t *testing.T) node.Store {
	t.Helper()
	store := suite.NewStore()
	t.Cleanup(func() { _ = store.Close() })

	ctx := testContext()
	require.NoError(t, store.Create(ctx, &node.Record{ID: "/", Name: "host", Type: wiretap.NodeHost}))
	require.NoError(t, store.Create(ctx, &node.Record{ID: "/vol", Parent: "/", Name: "vol", Type: wiretap.NodeVolume}))
	require.NoError(t, store.Create(ctx, &node.Record{ID: "/vol/proj", Parent: "/vol", Name: "proj", Type: wiretap.NodeProject}))
	return store
}

func (suite *StoreTestSuite) testCreate(test *testing.T) {
	test.Run("RoundTripsClipFormat", func(t *testing.T) {
		store := suite.newTree(t)
		ctx := testContext()

		rec := &node.Record{
			ID: "/vol/proj/lib", Parent: "/vol/proj", Name: "lib", Type: wiretap.NodeLibrary,
		}
		require.NoError(t, store.Create(ctx, rec))

		clip := &node.Record{
			ID: "/vol/proj/lib/c1", Parent: "/vol/proj/lib", Name: "shot", Type: wiretap.NodeClip,
			NumFrames: 12,
			Format: &wiretap.ClipFormat{
				Width: 1920, Height: 1080, BitsPerPixel: 24, NumChannels: 3,
				FrameRate: 23.976, PixelRatio: 1, ScanFormat: wiretap.ScanProgressive,
				FormatTag: wiretap.FormatRGBLE, FrameBufferSize: 6220800,
				MetadataTag: wiretap.MetadataTagXML, Metadata: "<XML/>",
			},
		}
		require.NoError(t, store.Create(ctx, clip))
		assert.NotZero(t, clip.Seq)

		got, err := store.Get(ctx, clip.ID)
		require.NoError(t, err)
		assert.Equal(t, clip, got)
	})

	test.Run("RejectsDuplicateID", func(t *testing.T) {
		store := suite.newTree(t)

		err := store.Create(testContext(), &node.Record{ID: "/vol", Parent: "/", Name: "vol", Type: wiretap.NodeVolume})
		require.Error(t, err)
		assert.True(t, node.IsCode(err, node.ErrAlreadyExists))
	})

	test.Run("RequiresParent", func(t *testing.T) {
		store := suite.newTree(t)

		err := store.Create(testContext(), &node.Record{ID: "/x/y", Parent: "/x", Name: "y", Type: wiretap.NodeLibrary})
		require.Error(t, err)
		assert.True(t, node.IsCode(err, node.ErrNotFound))
	})

	test.Run("RejectsMalformedRecord", func(t *testing.T) {
		store := suite.newTree(t)

		err := store.Create(testContext(), &node.Record{ID: "noslash", Parent: "/", Type: wiretap.NodeVolume})
		assert.True(t, node.IsCode(err, node.ErrInvalidArgument))
	})

	test.Run("GetMissing", func(t *testing.T) {
		store := suite.newTree(t)

		_, err := store.Get(testContext(), "/nope")
		assert.True(t, node.IsCode(err, node.ErrNotFound))
	})

	test.Run("ReturnsCopies", func(t *testing.T) {
		store := suite.newTree(t)
		ctx := testContext()

		got, err := store.Get(ctx, "/vol")
		require.NoError(t, err)
		got.Name = "mutated"

		again, err := store.Get(ctx, "/vol")
		require.NoError(t, err)
		assert.Equal(t, "vol", again.Name)
	})
}

func (suite *StoreTestSuite) testChildren(test *testing.T) {
	test.Run("CreationOrder", func(t *testing.T) {
		store := suite.newTree(t)
		ctx := testContext()

		// Names and IDs sort differently from creation order.
		for _, name := range []string{"zeta", "alpha", "mid"} {
			rec := &node.Record{ID: "/vol/proj/" + name, Parent: "/vol/proj", Name: name, Type: wiretap.NodeLibrary}
			require.NoError(t, store.Create(ctx, rec))
		}

		children, err := store.Children(ctx, "/vol/proj")
		require.NoError(t, err)
		names := make([]string, len(children))
		for i, c := range children {
			names[i] = c.Name
		}
		assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)
	})

	test.Run("DuplicateDisplayNames", func(t *testing.T) {
		store := suite.newTree(t)
		ctx := testContext()

		require.NoError(t, store.Create(ctx, &node.Record{ID: "/vol/proj/a1", Parent: "/vol/proj", Name: "dup", Type: wiretap.NodeLibrary}))
		require.NoError(t, store.Create(ctx, &node.Record{ID: "/vol/proj/a2", Parent: "/vol/proj", Name: "dup", Type: wiretap.NodeLibrary}))

		children, err := store.Children(ctx, "/vol/proj")
		require.NoError(t, err)
		require.Len(t, children, 2)
		assert.Equal(t, "/vol/proj/a1", children[0].ID)
		assert.Equal(t, "/vol/proj/a2", children[1].ID)
	})

	test.Run("PrefixIsolation", func(t *testing.T) {
		store := suite.newTree(t)
		ctx := testContext()

		require.NoError(t, store.Create(ctx, &node.Record{ID: "/volume2", Parent: "/", Name: "volume2", Type: wiretap.NodeVolume}))
		require.NoError(t, store.Create(ctx, &node.Record{ID: "/volume2/p", Parent: "/volume2", Name: "p", Type: wiretap.NodeProject}))

		children, err := store.Children(ctx, "/vol")
		require.NoError(t, err)
		require.Len(t, children, 1)
		assert.Equal(t, "/vol/proj", children[0].ID)
	})

	test.Run("Empty", func(t *testing.T) {
		store := suite.newTree(t)

		children, err := store.Children(testContext(), "/vol/proj")
		require.NoError(t, err)
		assert.Empty(t, children)
	})

	test.Run("MissingParent", func(t *testing.T) {
		store := suite.newTree(t)

		_, err := store.Children(testContext(), "/ghost")
		assert.True(t, node.IsCode(err, node.ErrNotFound))
	})
}

func (suite *StoreTestSuite) testUpdate(test *testing.T) {
	test.Run("ReplacesMutableFields", func(t *testing.T) {
		store := suite.newTree(t)
		ctx := testContext()

		clip := &node.Record{ID: "/vol/proj/c", Parent: "/vol/proj", Name: "c", Type: wiretap.NodeClip}
		require.NoError(t, store.Create(ctx, clip))

		update := clip.Clone()
		update.NumFrames = 5
		update.Format = &wiretap.ClipFormat{Width: 4, Height: 2, BitsPerPixel: 24, NumChannels: 3, FrameRate: 24}
		update.Type = wiretap.NodeReel
		update.Parent = "/elsewhere"
		require.NoError(t, store.Update(ctx, update))

		got, err := store.Get(ctx, clip.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, got.NumFrames)
		require.NotNil(t, got.Format)
		assert.Equal(t, 4, got.Format.Width)
		assert.Equal(t, wiretap.NodeClip, got.Type)
		assert.Equal(t, "/vol/proj", got.Parent)
		assert.Equal(t, clip.Seq, got.Seq)
	})

	test.Run("Missing", func(t *testing.T) {
		store := suite.newTree(t)

		err := store.Update(testContext(), &node.Record{ID: "/nope", Type: wiretap.NodeClip})
		assert.True(t, node.IsCode(err, node.ErrNotFound))
	})
}

func (suite *StoreTestSuite) testDelete(test *testing.T) {
	test.Run("Leaf", func(t *testing.T) {
		store := suite.newTree(t)
		ctx := testContext()

		require.NoError(t, store.Create(ctx, &node.Record{ID: "/vol/proj/l", Parent: "/vol/proj", Name: "l", Type: wiretap.NodeLibrary}))
		require.NoError(t, store.Delete(ctx, "/vol/proj/l"))

		_, err := store.Get(ctx, "/vol/proj/l")
		assert.True(t, node.IsCode(err, node.ErrNotFound))

		children, err := store.Children(ctx, "/vol/proj")
		require.NoError(t, err)
		assert.Empty(t, children)
	})

	test.Run("RefusesNonEmpty", func(t *testing.T) {
		store := suite.newTree(t)

		err := store.Delete(testContext(), "/vol")
		require.Error(t, err)
		assert.True(t, node.IsCode(err, node.ErrNotEmpty))
	})

	test.Run("KeepsSiblingOrder", func(t *testing.T) {
		store := suite.newTree(t)
		ctx := testContext()

		for _, id := range []string{"/vol/proj/1", "/vol/proj/2", "/vol/proj/3"} {
			require.NoError(t, store.Create(ctx, &node.Record{ID: id, Parent: "/vol/proj", Name: id, Type: wiretap.NodeLibrary}))
		}
		require.NoError(t, store.Delete(ctx, "/vol/proj/2"))
		require.NoError(t, store.Create(ctx, &node.Record{ID: "/vol/proj/4", Parent: "/vol/proj", Name: "4", Type: wiretap.NodeLibrary}))

		children, err := store.Children(ctx, "/vol/proj")
		require.NoError(t, err)
		ids := make([]string, len(children))
		for i, c := range children {
			ids[i] = c.ID
		}
		assert.Equal(t, []string{"/vol/proj/1", "/vol/proj/3", "/vol/proj/4"}, ids)
	})

	test.Run("Missing", func(t *testing.T) {
		store := suite.newTree(t)

		err := store.Delete(testContext(), "/nope")
		assert.True(t, node.IsCode(err, node.ErrNotFound))
	})
}
