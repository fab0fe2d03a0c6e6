package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/jdsmith2004/stockroom/internal/domain/models"
	"github.com/jdsmith2004/stockroom/internal/repository"
)

const watchRetryBackoff = 2 * time.Second

// streamEvent is the subset of a change stream document the watch needs.
type streamEvent struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID string `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument *itemDoc `bson:"fullDocument"`
}

// Watch follows the collection's change stream and reports diffs against the
// filter's result set. Delivery is at-least-once: when the stream drops, the
// membership snapshot is re-seeded from a fresh query and the difference is
// replayed before resuming, so transitions can repeat but are never lost.
func (s *Store) Watch(ctx context.Context, filter models.Filter) (<-chan []repository.Change, error) {
	members, err := s.seedMembers(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := make(chan []repository.Change)
	go s.watchLoop(ctx, filter, members, out)
	return out, nil
}

func (s *Store) seedMembers(ctx context.Context, filter models.Filter) (map[string]models.Item, error) {
	cur, err := s.RunQuery(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()

	members := make(map[string]models.Item)
	for cur.Next(ctx) {
		it := cur.Item()
		members[it.Name] = it
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return members, nil
}

func (s *Store) watchLoop(ctx context.Context, filter models.Filter, members map[string]models.Item, out chan<- []repository.Change) {
	defer close(out)

	for {
		if err := s.followStream(ctx, filter, members, out); err != nil {
			s.logger.Warn("change stream interrupted", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(watchRetryBackoff):
		}

		// Re-seed and replay the membership delta accumulated while the
		// stream was down.
		fresh, err := s.seedMembers(ctx, filter)
		if err != nil {
			s.logger.Warn("watch re-seed failed", zap.Error(err))
			continue
		}
		if !deliver(ctx, out, diffMembers(members, fresh)) {
			return
		}
		members = fresh
	}
}

func (s *Store) followStream(ctx context.Context, filter models.Filter, members map[string]models.Item, out chan<- []repository.Change) error {
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := s.items().Watch(ctx, mongo.Pipeline{}, opts)
	if err != nil {
		return unavailable("open change stream", err)
	}
	defer func() { _ = stream.Close(context.Background()) }()

	for stream.Next(ctx) {
		var event streamEvent
		if err := stream.Decode(&event); err != nil {
			s.logger.Warn("undecodable change event", zap.Error(err))
			continue
		}
		batch := classify(filter, members, event)
		if len(batch) > 0 && !deliver(ctx, out, batch) {
			return nil
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	return unavailable("change stream", stream.Err())
}

// classify maps one document event to its diff against the watched set and
// updates the membership snapshot in place.
func classify(filter models.Filter, members map[string]models.Item, event streamEvent) []repository.Change {
	name := event.DocumentKey.ID
	old, oldIn := members[name]

	var current models.Item
	newIn := false
	if event.OperationType != "delete" && event.FullDocument != nil {
		it, err := event.FullDocument.toItem()
		if err == nil && filter.Matches(it) {
			current, newIn = it, true
		}
	}

	switch {
	case !oldIn && newIn:
		members[name] = current
		return []repository.Change{{Kind: repository.ChangeAdded, Name: name}}
	case oldIn && !newIn:
		delete(members, name)
		return []repository.Change{{Kind: repository.ChangeRemoved, Name: name}}
	case oldIn && newIn:
		if old.Equal(current) {
			return nil
		}
		members[name] = current
		return []repository.Change{{Kind: repository.ChangeModified, Name: name}}
	default:
		return nil
	}
}

func diffMembers(old, fresh map[string]models.Item) []repository.Change {
	var batch []repository.Change
	for name, it := range fresh {
		prev, ok := old[name]
		switch {
		case !ok:
			batch = append(batch, repository.Change{Kind: repository.ChangeAdded, Name: name})
		case !prev.Equal(it):
			batch = append(batch, repository.Change{Kind: repository.ChangeModified, Name: name})
		}
	}
	for name := range old {
		if _, ok := fresh[name]; !ok {
			batch = append(batch, repository.Change{Kind: repository.ChangeRemoved, Name: name})
		}
	}
	return batch
}

func deliver(ctx context.Context, out chan<- []repository.Change, batch []repository.Change) bool {
	if len(batch) == 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case out <- batch:
		return true
	}
}
