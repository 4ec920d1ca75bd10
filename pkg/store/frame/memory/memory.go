package memory

import (
	"context"
	"sync"

	"github.com/marmos91/stonify/pkg/store/frame"
)

// MemoryFrameStore implements frame.Store with an in-memory map.
//
// Characteristics:
//   - Fast: all operations are memory-speed
//   - Volatile: data lost on restart
//   - Thread-safe: protected by RWMutex
//
// Frame buffers are copied on read and write so callers may reuse their
// buffers.
type MemoryFrameStore struct {
	mu    sync.RWMutex
	clips map[string]map[int][]byte
}

// NewMemoryFrameStore creates an empty store.
func NewMemoryFrameStore() *MemoryFrameStore {
	return &MemoryFrameStore{clips: make(map[string]map[int][]byte)}
}

var _ frame.Store = (*MemoryFrameStore)(nil)

func (s *MemoryFrameStore) ReadFrame(ctx context.Context, clipID string, index int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := frame.ValidateAddress(clipID, index); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.clips[clipID][index]
	if !ok {
		return nil, frame.NotFound(clipID, index)
	}

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *MemoryFrameStore) WriteFrame(ctx context.Context, clipID string, index int, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := frame.ValidateAddress(clipID, index); err != nil {
		return err
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	defer s.mu.Unlock()

	frames, ok := s.clips[clipID]
	if !ok {
		frames = make(map[int][]byte)
		s.clips[clipID] = frames
	}
	frames[index] = buf
	return nil
}

func (s *MemoryFrameStore) DeleteClip(ctx context.Context, clipID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.clips, clipID)
	return nil
}

// FrameCount returns how many frames of a clip are stored.
func (s *MemoryFrameStore) FrameCount(clipID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clips[clipID])
}

func (s *MemoryFrameStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clips = make(map[string]map[int][]byte)
	return nil
}
