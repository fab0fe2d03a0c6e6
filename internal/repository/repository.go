// Package repository defines the storage contract consumed by the inventory
// services. Drivers live in subpackages (mongodb, memory); services depend on
// this package only.
package repository

import (
	"context"
	"errors"

	"github.com/jdsmith2004/stockroom/internal/domain/models"
)

// ErrConflict indicates a transaction lost an isolation race and may be retried.
var ErrConflict = errors.New("storage: transaction conflict")

// ErrUnavailable indicates the underlying store could not be reached.
var ErrUnavailable = errors.New("storage: unavailable")

// ChangeKind classifies a document change relative to a watched result set.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "ADDED"
	ChangeModified ChangeKind = "MODIFIED"
	ChangeRemoved  ChangeKind = "REMOVED"
)

// Change is one per-document diff within a watch batch.
type Change struct {
	Kind ChangeKind
	Name string
}

// Cursor iterates lazily over a query result set. It is not restartable; issue
// the query again for a fresh pass.
type Cursor interface {
	// Next advances the cursor and reports whether an item is available.
	Next(ctx context.Context) bool
	// Item returns the current item. Valid only after Next reports true.
	Item() models.Item
	// Err returns the first error encountered during iteration.
	Err() error
	// Close releases the cursor's resources.
	Close(ctx context.Context) error
}

// Tx is the view of the store inside one isolated read-modify-write unit.
// Reads are validated and writes applied atomically at commit; a concurrent
// commit touching the same record surfaces as ErrConflict.
type Tx interface {
	Get(name string) (models.Item, bool, error)
	Put(name string, item models.Item) error
	Delete(name string) error
}

// Store is the persistence surface for items, the audit log, and live queries.
type Store interface {
	// GetItem fetches a single item by name.
	GetItem(ctx context.Context, name string) (models.Item, bool, error)
	// PutItem writes an item with full-overwrite semantics. Callers needing
	// isolation must go through RunTransaction instead.
	PutItem(ctx context.Context, name string, item models.Item) error
	// DeleteItem removes an item record. Absent names are not an error.
	DeleteItem(ctx context.Context, name string) error
	// RunQuery executes a filter and returns a lazy cursor over the matches.
	RunQuery(ctx context.Context, filter models.Filter) (Cursor, error)
	// Watch streams batches of diffs against the filter's result set. The
	// channel closes when ctx is canceled or the stream terminally fails.
	Watch(ctx context.Context, filter models.Filter) (<-chan []Change, error)
	// AppendLog appends an audit message with a store-assigned timestamp.
	AppendLog(ctx context.Context, message string) error
	// ReadLog returns all audit entries in append order.
	ReadLog(ctx context.Context) ([]models.LogEntry, error)
	// RunTransaction executes fn inside an isolation boundary. fn errors abort
	// the transaction with no effect; commit races return ErrConflict.
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error
	// Close releases the store's resources.
	Close(ctx context.Context) error
}
