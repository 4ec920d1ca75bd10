package memory

import (
	"context"
	"sync"

	"github.com/marmos91/stonify/pkg/store/node"
)

// MemoryNodeStore implements node.Store using in-memory maps.
//
// It is meant for tests, demos and short-lived browse sessions. Records are
// cloned on the way in and out so callers never share state with the store.
//
// Thread Safety:
// All operations are protected by a sync.RWMutex.
type MemoryNodeStore struct {
	mu sync.RWMutex

	records  map[string]*node.Record
	children map[string][]string
	nextSeq  uint64
}

// NewMemoryNodeStore creates an empty store.
func NewMemoryNodeStore() *MemoryNodeStore {
	return &MemoryNodeStore{
		records:  make(map[string]*node.Record),
		children: make(map[string][]string),
	}
}

var _ node.Store = (*MemoryNodeStore)(nil)

func (s *MemoryNodeStore) Get(ctx context.Context, id string) (*node.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, node.NewNotFoundError(id)
	}
	return rec.Clone(), nil
}

func (s *MemoryNodeStore) Children(ctx context.Context, parent string) ([]*node.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.records[parent]; !ok {
		return nil, node.NewNotFoundError(parent)
	}

	ids := s.children[parent]
	out := make([]*node.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.records[id].Clone())
	}
	return out, nil
}

func (s *MemoryNodeStore) Create(ctx context.Context, rec *node.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := node.ValidateRecord(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.ID]; ok {
		return node.NewAlreadyExistsError(rec.ID)
	}
	if rec.Parent != "" {
		if _, ok := s.records[rec.Parent]; !ok {
			return node.NewNotFoundError(rec.Parent)
		}
	}

	s.nextSeq++
	rec.Seq = s.nextSeq
	s.records[rec.ID] = rec.Clone()
	if rec.Parent != "" {
		s.children[rec.Parent] = append(s.children[rec.Parent], rec.ID)
	}
	return nil
}

func (s *MemoryNodeStore) Update(ctx context.Context, rec *node.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.records[rec.ID]
	if !ok {
		return node.NewNotFoundError(rec.ID)
	}

	next := rec.Clone()
	next.Parent = cur.Parent
	next.Type = cur.Type
	next.Seq = cur.Seq
	s.records[rec.ID] = next
	return nil
}

func (s *MemoryNodeStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return node.NewNotFoundError(id)
	}
	if len(s.children[id]) > 0 {
		return node.NewNotEmptyError(id)
	}

	delete(s.records, id)
	delete(s.children, id)

	siblings := s.children[rec.Parent]
	for i, sid := range siblings {
		if sid == id {
			s.children[rec.Parent] = append(siblings[:i:i], siblings[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryNodeStore) Close() error {
	return nil
}
