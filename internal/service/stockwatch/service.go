// Package stockwatch runs the standing subscription over the zero-stock
// result set and classifies every observed change into a stock transition.
package stockwatch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jdsmith2004/stockroom/internal/domain/models"
	"github.com/jdsmith2004/stockroom/internal/repository"
)

// Notifier receives classified stock transitions.
type Notifier interface {
	Notify(ctx context.Context, alert models.StockAlert) error
}

// Service consumes the zero-stock watch stream for the life of the process.
type Service struct {
	store     repository.Store
	notifiers []Notifier
	logger    *zap.Logger
	now       func() time.Time
	done      chan struct{}
}

// NewService wires the watch service with its notification sinks.
func NewService(store repository.Store, notifiers []Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		notifiers: notifiers,
		logger:    logger,
		now:       time.Now,
		done:      make(chan struct{}),
	}
}

// Start subscribes to the zero-stock query and launches the consuming loop.
// The subscription is registered before Start returns; canceling ctx stops
// the loop and releases the underlying watch handle.
func (s *Service) Start(ctx context.Context) error {
	changes, err := s.store.Watch(ctx, models.FilterOutOfStock)
	if err != nil {
		return err
	}

	s.logger.Info("stock watch started")
	go s.loop(ctx, changes)
	return nil
}

// Done closes once the consuming loop has fully stopped.
func (s *Service) Done() <-chan struct{} { return s.done }

// loop emits transitions in arrival order; no reordering or deduplication
// across batches.
func (s *Service) loop(ctx context.Context, changes <-chan []repository.Change) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stock watch stopped")
			return
		case batch, ok := <-changes:
			if !ok {
				s.logger.Warn("stock watch stream closed")
				return
			}
			for _, change := range batch {
				s.emit(ctx, change)
			}
		}
	}
}

// Classify maps a zero-stock set diff to its transition. A document leaving
// the set means the quantity rose above zero; entering means it hit zero;
// changing in place means an edit on an already-empty item.
func Classify(kind repository.ChangeKind) (models.StockTransition, bool) {
	switch kind {
	case repository.ChangeRemoved:
		return models.TransitionRestocked, true
	case repository.ChangeAdded:
		return models.TransitionNowOutOfStock, true
	case repository.ChangeModified:
		return models.TransitionStillOutOfStock, true
	default:
		return "", false
	}
}

func (s *Service) emit(ctx context.Context, change repository.Change) {
	transition, ok := Classify(change.Kind)
	if !ok {
		s.logger.Warn("unknown change kind", zap.String("kind", string(change.Kind)))
		return
	}

	alert := models.StockAlert{
		EventID:    uuid.NewString(),
		Item:       change.Name,
		Transition: transition,
		ObservedAt: s.now().UTC(),
	}
	s.logger.Info("stock transition",
		zap.String("item", alert.Item),
		zap.String("transition", string(alert.Transition)))

	for _, n := range s.notifiers {
		if err := n.Notify(ctx, alert); err != nil {
			s.logger.Error("notifier failed", zap.String("item", alert.Item), zap.Error(err))
		}
	}
}
