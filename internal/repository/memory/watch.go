package memory

import (
	"context"
	"sync"

	"github.com/jdsmith2004/stockroom/internal/domain/models"
	"github.com/jdsmith2004/stockroom/internal/repository"
)

// watcher delivers diff batches for one filter. Commits enqueue batches under
// the store lock; a pump goroutine drains the queue so a slow consumer never
// blocks a mutation.
type watcher struct {
	filter models.Filter

	mu    sync.Mutex
	queue [][]repository.Change
	kick  chan struct{}
	out   chan []repository.Change
}

// Watch registers a subscription for the filter's result set. The returned
// channel closes when ctx is canceled.
func (s *Store) Watch(ctx context.Context, filter models.Filter) (<-chan []repository.Change, error) {
	w := &watcher{
		filter: filter,
		kick:   make(chan struct{}, 1),
		out:    make(chan []repository.Change),
	}

	s.mu.Lock()
	s.watchers[w] = struct{}{}
	s.mu.Unlock()

	go w.pump(ctx, s)
	return w.out, nil
}

// observe classifies one committed record mutation against the filter and
// enqueues the resulting diff, if any. Called with the store lock held.
func (w *watcher) observe(name string, newItem models.Item, newExists bool, oldItem models.Item, oldExisted bool) {
	oldIn := oldExisted && w.filter.Matches(oldItem)
	newIn := newExists && w.filter.Matches(newItem)

	var kind repository.ChangeKind
	switch {
	case !oldIn && newIn:
		kind = repository.ChangeAdded
	case oldIn && !newIn:
		kind = repository.ChangeRemoved
	case oldIn && newIn:
		kind = repository.ChangeModified
	default:
		return
	}

	w.mu.Lock()
	w.queue = append(w.queue, []repository.Change{{Kind: kind, Name: name}})
	w.mu.Unlock()

	select {
	case w.kick <- struct{}{}:
	default:
	}
}

func (w *watcher) pump(ctx context.Context, s *Store) {
	defer func() {
		s.mu.Lock()
		delete(s.watchers, w)
		s.mu.Unlock()
		close(w.out)
	}()

	for {
		w.mu.Lock()
		var batch []repository.Change
		if len(w.queue) > 0 {
			batch = w.queue[0]
			w.queue = w.queue[1:]
		}
		w.mu.Unlock()

		if batch == nil {
			select {
			case <-ctx.Done():
				return
			case <-w.kick:
				continue
			}
		}

		select {
		case <-ctx.Done():
			return
		case w.out <- batch:
		}
	}
}
