// Package node defines the persistence contract for Wiretap node records.
//
// A node store holds one record per node of a served hierarchy: its ID,
// parent, display name, type and, for clips, the clip format and frame count.
// The store knows nothing about Wiretap semantics beyond the tree shape:
// which node types may live under which parents is enforced by the service
// layer (package local).
//
// Implementations:
//   - memory: maps guarded by a mutex, lost on restart
//   - badger: BadgerDB-backed, XDR-encoded records
package node

import (
	"context"

	"github.com/marmos91/stonify/pkg/wiretap"
)

// Record is the stored state of one node.
type Record struct {
	ID     string
	Parent string
	Name   string
	Type   wiretap.NodeType

	// Format is set for clips only.
	Format *wiretap.ClipFormat

	NumFrames int

	// Seq is assigned by the store on Create and orders siblings by
	// creation time.
	Seq uint64
}

// Info returns the public view of the record.
func (r *Record) Info() wiretap.NodeInfo {
	return wiretap.NodeInfo{ID: r.ID, DisplayName: r.Name, Type: r.Type}
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := *r
	if r.Format != nil {
		f := *r.Format
		c.Format = &f
	}
	return &c
}

// Store persists node records.
//
// All implementations must be safe for concurrent use.
type Store interface {
	// Get returns the record with the given ID.
	// Returns ErrNotFound if it does not exist.
	Get(ctx context.Context, id string) (*Record, error)

	// Children returns the direct children of parent in creation order.
	// Returns ErrNotFound if parent does not exist.
	Children(ctx context.Context, parent string) ([]*Record, error)

	// Create stores a new record and assigns its Seq. The parent must exist,
	// except for the root record whose Parent is empty.
	// Returns ErrAlreadyExists if the ID is taken.
	Create(ctx context.Context, rec *Record) error

	// Update replaces the mutable fields (Name, Format, NumFrames) of an
	// existing record. ID, Parent, Type and Seq are left unchanged.
	Update(ctx context.Context, rec *Record) error

	// Delete removes a record without children.
	// Returns ErrNotEmpty if the record has children.
	Delete(ctx context.Context, id string) error

	Close() error
}
