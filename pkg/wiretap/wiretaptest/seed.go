package wiretaptest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/stonify/pkg/wiretap"
)

// Format is a small RGB clip format suitable for tests: 4x2 pixels, 24 bits,
// 24 bytes per frame.
var Format = wiretap.ClipFormat{
	Width:        4,
	Height:       2,
	BitsPerPixel: 24,
	NumChannels:  3,
	FrameRate:    24,
	PixelRatio:   1,
	ScanFormat:   wiretap.ScanProgressive,
	FormatTag:    wiretap.FormatRGB,
}

// FrameData returns the content SeedClip writes for frame index.
func FrameData(size, index int) []byte {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = byte(index)
	}
	return buf
}

// MkNode creates a container node and returns its ID.
func MkNode(t testing.TB, srv wiretap.Server, parent, name string, typ wiretap.NodeType) string {
	t.Helper()
	info, err := srv.CreateNode(context.Background(), parent, name, typ)
	require.NoError(t, err)
	return info.ID
}

// SeedClip creates a clip with numFrames frames, each filled with its index.
func SeedClip(t testing.TB, srv wiretap.Server, parent, name string, format wiretap.ClipFormat, numFrames int) string {
	t.Helper()
	ctx := context.Background()

	info, err := srv.CreateClip(ctx, parent, name, format)
	require.NoError(t, err)
	require.NoError(t, srv.SetNumFrames(ctx, info.ID, numFrames))

	f, err := srv.ClipFormat(ctx, info.ID)
	require.NoError(t, err)
	for i := 0; i < numFrames; i++ {
		require.NoError(t, srv.WriteFrame(ctx, info.ID, i, FrameData(f.FrameBufferSize, i)))
	}
	return info.ID
}

// ReadFrames returns the frames of a clip. Unwritten frames are nil.
func ReadFrames(t testing.TB, srv wiretap.Server, clipID string) [][]byte {
	t.Helper()
	ctx := context.Background()

	n, err := srv.NumFrames(ctx, clipID)
	require.NoError(t, err)
	f, err := srv.ClipFormat(ctx, clipID)
	require.NoError(t, err)

	frames := make([][]byte, n)
	for i := range frames {
		buf := make([]byte, f.FrameBufferSize)
		if _, err := srv.ReadFrame(ctx, clipID, i, buf); err == nil {
			frames[i] = buf
		}
	}
	return frames
}
