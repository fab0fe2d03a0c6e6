package memory

import (
	"context"

	"github.com/jdsmith2004/stockroom/internal/domain/models"
	"github.com/jdsmith2004/stockroom/internal/repository"
)

// tx buffers reads and writes; nothing touches the store until commit.
type tx struct {
	store *Store
	// reads maps each name read to the version observed (0 = absent).
	reads map[string]uint64
	// writes maps names to their pending state; nil means delete.
	writes map[string]*models.Item
}

func (t *tx) Get(name string) (models.Item, bool, error) {
	if pending, ok := t.writes[name]; ok {
		if pending == nil {
			return models.Item{}, false, nil
		}
		return *pending, true, nil
	}

	t.store.mu.Lock()
	it, ok := t.store.records[name]
	version := t.store.versions[name]
	t.store.mu.Unlock()

	if _, seen := t.reads[name]; !seen {
		t.reads[name] = version
	}
	return it, ok, nil
}

func (t *tx) Put(name string, item models.Item) error {
	it := item
	it.Name = name
	t.writes[name] = &it
	return nil
}

func (t *tx) Delete(name string) error {
	t.writes[name] = nil
	return nil
}

// RunTransaction executes fn against a buffered view and commits atomically.
// Commit validates that every record read still carries the version observed;
// a mismatch means a concurrent commit won the race and yields ErrConflict.
func (s *Store) RunTransaction(ctx context.Context, fn func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t := &tx{
		store:  s,
		reads:  make(map[string]uint64),
		writes: make(map[string]*models.Item),
	}
	if err := fn(t); err != nil {
		return err
	}
	if len(t.writes) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for name, version := range t.reads {
		if s.versions[name] != version {
			return repository.ErrConflict
		}
	}
	for name, item := range t.writes {
		s.apply(name, item)
	}
	return nil
}
