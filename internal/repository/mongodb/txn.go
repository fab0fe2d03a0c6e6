package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jdsmith2004/stockroom/internal/domain/models"
	"github.com/jdsmith2004/stockroom/internal/repository"
)

// tx buffers reads and writes; commit applies each write through a
// version-conditional update. Conflict detection covers the read-modify-write
// cycle on a single record, which is the only shape the ledger issues.
type tx struct {
	store  *Store
	ctx    context.Context
	reads  map[string]uint64
	writes map[string]*models.Item
}

func (t *tx) Get(name string) (models.Item, bool, error) {
	if pending, ok := t.writes[name]; ok {
		if pending == nil {
			return models.Item{}, false, nil
		}
		return *pending, true, nil
	}

	it, version, ok, err := t.store.getVersioned(t.ctx, name)
	if err != nil {
		return models.Item{}, false, err
	}
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

// RunTransaction executes fn against a buffered view, then commits every
// buffered write keyed on the version observed at read time. A version that
// moved underneath us, or an insert racing another creator, returns
// repository.ErrConflict for the caller to retry.
func (s *Store) RunTransaction(ctx context.Context, fn func(tx repository.Tx) error) error {
	t := &tx{
		store:  s,
		ctx:    ctx,
		reads:  make(map[string]uint64),
		writes: make(map[string]*models.Item),
	}
	if err := fn(t); err != nil {
		return err
	}

	for name, item := range t.writes {
		version := t.reads[name]
		if err := s.commitOne(ctx, name, item, version); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) commitOne(ctx context.Context, name string, item *models.Item, version uint64) error {
	coll := s.items()

	if item == nil {
		if version == 0 {
			// Never read inside the transaction; plain delete.
			if _, err := coll.DeleteOne(ctx, bson.M{"_id": name}); err != nil {
				return unavailable("commit delete", err)
			}
			return nil
		}
		res, err := coll.DeleteOne(ctx, bson.M{"_id": name, "version": version})
		if err != nil {
			return unavailable("commit delete", err)
		}
		if res.DeletedCount == 0 {
			return fmt.Errorf("delete %q: %w", name, repository.ErrConflict)
		}
		return nil
	}

	if version == 0 {
		// The record was absent at read time; insertion races a concurrent
		// creator on the unique _id.
		if _, err := coll.InsertOne(ctx, docFromItem(name, *item, 1)); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return fmt.Errorf("insert %q: %w", name, repository.ErrConflict)
			}
			return unavailable("commit insert", err)
		}
		return nil
	}

	res, err := coll.ReplaceOne(ctx, bson.M{"_id": name, "version": version}, docFromItem(name, *item, version+1))
	if err != nil {
		return unavailable("commit replace", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("replace %q: %w", name, repository.ErrConflict)
	}
	return nil
}
