// Package memory provides an in-memory Store implementation with per-record
// optimistic versioning. It backs the test suite and single-process
// deployments (STORAGE_DRIVER=memory).
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jdsmith2004/stockroom/internal/domain/models"
	"github.com/jdsmith2004/stockroom/internal/repository"
)

// Store keeps items, the audit log, and watch subscriptions in process memory.
// versions outlive their records so a deleted-then-recreated name can never
// satisfy a stale transaction's version check.
type Store struct {
	mu       sync.Mutex
	records  map[string]models.Item
	versions map[string]uint64
	log      []models.LogEntry
	watchers map[*watcher]struct{}
	lastTS   time.Time
	now      func() time.Time
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{
		records:  make(map[string]models.Item),
		versions: make(map[string]uint64),
		watchers: make(map[*watcher]struct{}),
		now:      time.Now,
	}
}

// GetItem fetches a single item by name.
func (s *Store) GetItem(_ context.Context, name string) (models.Item, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.records[name]
	return it, ok, nil
}

// PutItem writes an item with last-write-wins semantics.
func (s *Store) PutItem(_ context.Context, name string, item models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(name, &item)
	return nil
}

// DeleteItem removes an item record if present.
func (s *Store) DeleteItem(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[name]; ok {
		s.apply(name, nil)
	}
	return nil
}

// RunQuery returns a cursor over a point-in-time snapshot of the matches.
func (s *Store) RunQuery(_ context.Context, filter models.Filter) (repository.Cursor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &sliceCursor{items: s.snapshotLocked(filter)}, nil
}

// AppendLog appends an audit entry with a non-decreasing store timestamp.
func (s *Store) AppendLog(_ context.Context, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := s.now().UTC()
	if ts.Before(s.lastTS) {
		ts = s.lastTS
	}
	s.lastTS = ts
	s.log = append(s.log, models.LogEntry{Message: message, Timestamp: ts})
	return nil
}

// ReadLog returns a copy of the audit log in append order.
func (s *Store) ReadLog(_ context.Context) ([]models.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.LogEntry, len(s.log))
	copy(out, s.log)
	return out, nil
}

// Close cancels nothing; watcher lifetimes are bound to their contexts.
func (s *Store) Close(context.Context) error { return nil }

// apply mutates one record, bumps its version and fans the change out to
// watchers. Callers must hold s.mu. item == nil means delete.
func (s *Store) apply(name string, item *models.Item) {
	old, existed := s.records[name]
	s.versions[name]++
	if item == nil {
		delete(s.records, name)
	} else {
		it := *item
		it.Name = name
		s.records[name] = it
	}
	for w := range s.watchers {
		w.observe(name, s.records[name], item != nil, old, existed)
	}
}

func (s *Store) snapshotLocked(filter models.Filter) []models.Item {
	var items []models.Item
	for _, it := range s.records {
		if filter.Matches(it) {
			items = append(items, it)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items
}

type sliceCursor struct {
	items []models.Item
	pos   int
}

func (c *sliceCursor) Next(context.Context) bool {
	if c.pos >= len(c.items) {
		return false
	}
	c.pos++
	return true
}

func (c *sliceCursor) Item() models.Item           { return c.items[c.pos-1] }
func (c *sliceCursor) Err() error                  { return nil }
func (c *sliceCursor) Close(context.Context) error { return nil }
