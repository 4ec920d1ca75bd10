package testing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/stonify/pkg/store/frame"
)

// StoreTestSuite checks the frame.Store contract against any backend.
//
// Usage:
//
//	func TestMyFrameStore(t *testing.T) {
//	    suite := &frametesting.StoreTestSuite{
//	        NewStore: func() frame.Store { return mystore.New() },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh, empty store for each test.
	NewStore func() frame.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("ReadWrite", suite.testReadWrite)
	t.Run("DeleteClip", suite.testDeleteClip)
}

func testContext() context.Context {
	return context.Background()
}

func (suite *StoreTestSuite) newStore(t *testing.T) frame.Store {
	t.Helper()
	store := suite.NewStore()
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// pattern returns a deterministic frame buffer unique to (seed, size).
func pattern(seed byte, size int) []byte {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = seed + byte(i)
	}
	return buf
}

func (suite *StoreTestSuite) testReadWrite(test *testing.T) {
	test.Run("RoundTrip", func(t *testing.T) {
		store := suite.newStore(t)
		ctx := testContext()

		data := pattern(7, 4096)
		require.NoError(t, store.WriteFrame(ctx, "/vol/proj/lib/clip", 3, data))

		got, err := store.ReadFrame(ctx, "/vol/proj/lib/clip", 3)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(data, got))
	})

	test.Run("Overwrite", func(t *testing.T) {
		store := suite.newStore(t)
		ctx := testContext()

		require.NoError(t, store.WriteFrame(ctx, "/v/c", 0, pattern(1, 16)))
		require.NoError(t, store.WriteFrame(ctx, "/v/c", 0, pattern(2, 8)))

		got, err := store.ReadFrame(ctx, "/v/c", 0)
		require.NoError(t, err)
		assert.Equal(t, pattern(2, 8), got)
	})

	test.Run("CallerBufferReuse", func(t *testing.T) {
		store := suite.newStore(t)
		ctx := testContext()

		buf := pattern(9, 32)
		require.NoError(t, store.WriteFrame(ctx, "/v/c", 1, buf))
		buf[0] = 0xff

		got, err := store.ReadFrame(ctx, "/v/c", 1)
		require.NoError(t, err)
		assert.Equal(t, byte(9), got[0])

		got[1] = 0xff
		again, err := store.ReadFrame(ctx, "/v/c", 1)
		require.NoError(t, err)
		assert.Equal(t, byte(10), again[1])
	})

	test.Run("MissingFrame", func(t *testing.T) {
		store := suite.newStore(t)
		ctx := testContext()

		require.NoError(t, store.WriteFrame(ctx, "/v/c", 0, pattern(0, 4)))

		_, err := store.ReadFrame(ctx, "/v/c", 1)
		require.Error(t, err)
		assert.ErrorIs(t, err, frame.ErrFrameNotFound)

		_, err = store.ReadFrame(ctx, "/v/other", 0)
		assert.ErrorIs(t, err, frame.ErrFrameNotFound)
	})

	test.Run("EmptyFrame", func(t *testing.T) {
		store := suite.newStore(t)
		ctx := testContext()

		require.NoError(t, store.WriteFrame(ctx, "/v/c", 0, nil))
		got, err := store.ReadFrame(ctx, "/v/c", 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	test.Run("InvalidAddress", func(t *testing.T) {
		store := suite.newStore(t)
		ctx := testContext()

		assert.Error(t, store.WriteFrame(ctx, "/v/c", -1, pattern(0, 4)))
		assert.Error(t, store.WriteFrame(ctx, "/", 0, pattern(0, 4)))
	})

	test.Run("CancelledContext", func(t *testing.T) {
		store := suite.newStore(t)
		ctx, cancel := context.WithCancel(testContext())
		cancel()

		assert.ErrorIs(t, store.WriteFrame(ctx, "/v/c", 0, pattern(0, 4)), context.Canceled)
	})
}

func (suite *StoreTestSuite) testDeleteClip(test *testing.T) {
	test.Run("RemovesAllFrames", func(t *testing.T) {
		store := suite.newStore(t)
		ctx := testContext()

		for i := 0; i < 5; i++ {
			require.NoError(t, store.WriteFrame(ctx, "/v/lib/a", i, pattern(byte(i), 8)))
		}
		require.NoError(t, store.DeleteClip(ctx, "/v/lib/a"))

		for i := 0; i < 5; i++ {
			_, err := store.ReadFrame(ctx, "/v/lib/a", i)
			assert.ErrorIs(t, err, frame.ErrFrameNotFound)
		}
	})

	test.Run("LeavesOtherClips", func(t *testing.T) {
		store := suite.newStore(t)
		ctx := testContext()

		require.NoError(t, store.WriteFrame(ctx, "/v/lib/a", 0, pattern(1, 8)))
		require.NoError(t, store.WriteFrame(ctx, "/v/lib/ab", 0, pattern(2, 8)))
		require.NoError(t, store.WriteFrame(ctx, "/v/lib/a/nested", 0, pattern(3, 8)))

		require.NoError(t, store.DeleteClip(ctx, "/v/lib/a"))

		got, err := store.ReadFrame(ctx, "/v/lib/ab", 0)
		require.NoError(t, err)
		assert.Equal(t, pattern(2, 8), got)

		got, err = store.ReadFrame(ctx, "/v/lib/a/nested", 0)
		require.NoError(t, err)
		assert.Equal(t, pattern(3, 8), got)
	})

	test.Run("UnknownClip", func(t *testing.T) {
		store := suite.newStore(t)
		assert.NoError(t, store.DeleteClip(testContext(), "/v/none"))
	})
}
