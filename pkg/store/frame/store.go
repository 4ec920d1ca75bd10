// Package frame defines storage for the raw frame buffers of clips served by
// the local Wiretap service.
//
// Frames are addressed by (clip node ID, frame index). Stores treat frame
// data as opaque bytes; sizes are checked by the service against the clip
// format before a store is called.
package frame

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrFrameNotFound is returned when a frame was never written.
var ErrFrameNotFound = errors.New("frame not found")

// Store persists frame buffers.
//
// All implementations must be safe for concurrent use. Writes to the same
// frame are last-writer-wins.
type Store interface {
	// ReadFrame returns a copy of the stored frame.
	// Returns an error wrapping ErrFrameNotFound if it was never written.
	ReadFrame(ctx context.Context, clipID string, index int) ([]byte, error)

	// WriteFrame stores data as the given frame, replacing any previous data.
	WriteFrame(ctx context.Context, clipID string, index int, data []byte) error

	// DeleteClip removes every frame of a clip. Deleting a clip without
	// frames is not an error.
	DeleteClip(ctx context.Context, clipID string) error

	Close() error
}

// ClipKey returns the storage key prefix of a clip: its node ID without the
// leading slash. Every frame key of the clip starts with ClipKey + "/".
func ClipKey(clipID string) string {
	return strings.TrimPrefix(clipID, "/")
}

// FrameKey returns the storage key of one frame, e.g. "vol/proj/1a2b/00000004".
// Indexes are zero padded so keys sort in frame order.
func FrameKey(clipID string, index int) string {
	return fmt.Sprintf("%s/%08d", ClipKey(clipID), index)
}

// NotFound wraps ErrFrameNotFound with the frame address.
func NotFound(clipID string, index int) error {
	return fmt.Errorf("frame %d of %s: %w", index, clipID, ErrFrameNotFound)
}

// ValidateAddress rejects frame addresses no backend can store.
func ValidateAddress(clipID string, index int) error {
	if ClipKey(clipID) == "" {
		return fmt.Errorf("invalid clip id %q", clipID)
	}
	if index < 0 {
		return fmt.Errorf("invalid frame index %d", index)
	}
	return nil
}
