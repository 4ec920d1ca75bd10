package badger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/marmos91/stonify/pkg/store/node"
)

// BadgerNodeStore implements node.Store on top of BadgerDB.
//
// Node records survive restarts, which keeps node IDs handed out to clients
// stable across service restarts. Reads run in badger's MVCC snapshots; writes
// are additionally serialized by mu so that the existence checks in Create
// and Delete cannot race with each other.
//
// See keys.go for the key namespace layout.
type BadgerNodeStore struct {
	db  *badger.DB
	seq *badger.Sequence

	mu sync.Mutex
}

// BadgerNodeStoreConfig configures a BadgerNodeStore.
type BadgerNodeStoreConfig struct {
	// DBPath is the directory holding the database files.
	DBPath string `mapstructure:"db_path"`

	// InMemory keeps the database in RAM. DBPath is ignored.
	InMemory bool `mapstructure:"in_memory"`

	// BlockCacheSizeMB defaults to 64.
	BlockCacheSizeMB int64 `mapstructure:"block_cache_size_mb"`

	// IndexCacheSizeMB defaults to 32.
	IndexCacheSizeMB int64 `mapstructure:"index_cache_size_mb"`
}

// NewBadgerNodeStore opens (or creates) the database described by config.
func NewBadgerNodeStore(ctx context.Context, config BadgerNodeStoreConfig) (*BadgerNodeStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(config.DBPath)
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLoggingLevel(badger.WARNING)
	opts = opts.WithCompression(options.None) // records are a few hundred bytes

	blockCacheMB := config.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 64
	}
	indexCacheMB := config.IndexCacheSizeMB
	if indexCacheMB == 0 {
		indexCacheMB = 32
	}
	opts = opts.WithBlockCacheSize(blockCacheMB << 20)
	opts = opts.WithIndexCacheSize(indexCacheMB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	seq, err := db.GetSequence([]byte(keySequence), 128)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open node sequence: %w", err)
	}

	return &BadgerNodeStore{db: db, seq: seq}, nil
}

var _ node.Store = (*BadgerNodeStore)(nil)

func (s *BadgerNodeStore) Get(ctx context.Context, id string) (*node.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec *node.Record
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = getRecord(txn, id)
		return err
	})
	return rec, err
}

func (s *BadgerNodeStore) Children(ctx context.Context, parent string) ([]*node.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []*node.Record
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := getRecord(txn, parent); err != nil {
			return err
		}

		ids, err := childIDs(txn, parent, 0)
		if err != nil {
			return err
		}

		out = make([]*node.Record, 0, len(ids))
		for _, id := range ids {
			rec, err := getRecord(txn, id)
			if err != nil {
				return fmt.Errorf("dangling child entry under %s: %w", parent, err)
			}
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}

func (s *BadgerNodeStore) Create(ctx context.Context, rec *node.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := node.ValidateRecord(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("failed to allocate node sequence: %w", err)
	}

	stored := rec.Clone()
	stored.Seq = next + 1

	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(keyNode(stored.ID)); err == nil {
			return node.NewAlreadyExistsError(stored.ID)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if stored.Parent != "" {
			if _, err := getRecord(txn, stored.Parent); err != nil {
				return err
			}
			if err := txn.Set(keyChild(stored.Parent, stored.Seq), []byte(stored.ID)); err != nil {
				return err
			}
		}
		return putRecord(txn, stored)
	})
	if err != nil {
		return err
	}

	rec.Seq = stored.Seq
	return nil
}

func (s *BadgerNodeStore) Update(ctx context.Context, rec *node.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		cur, err := getRecord(txn, rec.ID)
		if err != nil {
			return err
		}

		next := rec.Clone()
		next.Parent = cur.Parent
		next.Type = cur.Type
		next.Seq = cur.Seq
		return putRecord(txn, next)
	})
}

func (s *BadgerNodeStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, id)
		if err != nil {
			return err
		}

		ids, err := childIDs(txn, id, 1)
		if err != nil {
			return err
		}
		if len(ids) > 0 {
			return node.NewNotEmptyError(id)
		}

		if rec.Parent != "" {
			if err := txn.Delete(keyChild(rec.Parent, rec.Seq)); err != nil {
				return err
			}
		}
		return txn.Delete(keyNode(id))
	})
}

// Close releases the sequence lease and closes the database.
func (s *BadgerNodeStore) Close() error {
	if err := s.seq.Release(); err != nil {
		_ = s.db.Close()
		return fmt.Errorf("failed to release node sequence: %w", err)
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
}

func getRecord(txn *badger.Txn, id string) (*node.Record, error) {
	item, err := txn.Get(keyNode(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, node.NewNotFoundError(id)
	}
	if err != nil {
		return nil, err
	}

	var rec *node.Record
	err = item.Value(func(val []byte) error {
		rec, err = decodeRecord(val)
		return err
	})
	return rec, err
}

func putRecord(txn *badger.Txn, rec *node.Record) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	return txn.Set(keyNode(rec.ID), data)
}

// childIDs scans the children index of parent. A positive limit stops the
// scan early.
func childIDs(txn *badger.Txn, parent string, limit int) ([]string, error) {
	prefix := keyChildrenPrefix(parent)

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var ids []string
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		err := it.Item().Value(func(val []byte) error {
			ids = append(ids, string(val))
			return nil
		})
		if err != nil {
			return nil, err
		}
		if limit > 0 && len(ids) >= limit {
			break
		}
	}
	return ids, nil
}
