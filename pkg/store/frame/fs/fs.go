// Package fs implements filesystem-based frame storage.
//
// Each frame is one file under <basePath>/<clip key>/<index>.frame. Writes go
// to a temporary file in the same directory and are renamed into place, so a
// reader never observes a partially written frame.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/marmos91/stonify/pkg/store/frame"
)

// FSFrameStore implements frame.Store on the local filesystem.
//
// Thread Safety:
// Concurrent writes to the same frame are resolved by the final rename; the
// last writer wins.
type FSFrameStore struct {
	basePath string
}

// NewFSFrameStore creates the base directory if needed.
func NewFSFrameStore(ctx context.Context, basePath string) (*FSFrameStore, error) {
	// ========================================================================
	// Step 1: Check context before filesystem operation
	// ========================================================================

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// ========================================================================
	// Step 2: Create the base directory if it doesn't exist
	// ========================================================================

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FSFrameStore{basePath: basePath}, nil
}

var _ frame.Store = (*FSFrameStore)(nil)

func (s *FSFrameStore) clipDir(clipID string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(frame.ClipKey(clipID)))
}

func (s *FSFrameStore) framePath(clipID string, index int) string {
	return filepath.Join(s.basePath, filepath.FromSlash(frame.FrameKey(clipID, index))+".frame")
}

func (s *FSFrameStore) ReadFrame(ctx context.Context, clipID string, index int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := frame.ValidateAddress(clipID, index); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.framePath(clipID, index))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, frame.NotFound(clipID, index)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read frame %d of %s: %w", index, clipID, err)
	}
	return data, nil
}

func (s *FSFrameStore) WriteFrame(ctx context.Context, clipID string, index int, data []byte) error {
	// ========================================================================
	// Step 1: Validate the address
	// ========================================================================

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := frame.ValidateAddress(clipID, index); err != nil {
		return err
	}

	// ========================================================================
	// Step 2: Write to a temporary file next to the destination
	// ========================================================================

	dir := s.clipDir(clipID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create clip directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".frame-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary frame file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write frame %d of %s: %w", index, clipID, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close frame %d of %s: %w", index, clipID, err)
	}

	// ========================================================================
	// Step 3: Move it into place
	// ========================================================================

	if err := os.Rename(tmpName, s.framePath(clipID, index)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to commit frame %d of %s: %w", index, clipID, err)
	}
	return nil
}

func (s *FSFrameStore) DeleteClip(ctx context.Context, clipID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if frame.ClipKey(clipID) == "" {
		return fmt.Errorf("invalid clip id %q", clipID)
	}

	// Only frame files are removed: a clip directory may also hold the
	// directories of clips nested under the same key prefix.
	dir := s.clipDir(clipID)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to list frames of %s: %w", clipID, err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to delete frames of %s: %w", clipID, err)
		}
	}

	// Succeeds only once the directory is empty.
	_ = os.Remove(dir)
	return nil
}

func (s *FSFrameStore) Close() error {
	return nil
}
