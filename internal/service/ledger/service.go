// Package ledger owns the inventory invariants: quantities never go negative,
// concurrent mutations on one item serialize through the storage adapter's
// transaction boundary, and every successful mutation appends one audit entry.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jdsmith2004/stockroom/internal/domain/models"
	"github.com/jdsmith2004/stockroom/internal/repository"
	"github.com/jdsmith2004/stockroom/internal/service/audit"
)

// defaultMaxAttempts bounds the optimistic retry loop per operation.
const defaultMaxAttempts = 4

// Service implements the inventory ledger operations.
type Service struct {
	store       repository.Store
	audit       *audit.Recorder
	logger      *zap.Logger
	maxAttempts int
}

// NewService constructs the ledger. maxAttempts <= 0 selects the default
// retry budget.
func NewService(store repository.Store, recorder *audit.Recorder, maxAttempts int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &Service{store: store, audit: recorder, logger: logger, maxAttempts: maxAttempts}
}

// CreateItem persists a new item. The existence check and the insert share one
// isolation boundary, so a racing creator surfaces as ErrAlreadyExists on the
// retry rather than a silent overwrite.
func (s *Service) CreateItem(ctx context.Context, name string, price decimal.Decimal, qty int64, popular bool) (models.Item, error) {
	if name == "" {
		return models.Item{}, ErrInvalidName
	}
	if qty < 0 || price.IsNegative() {
		return models.Item{}, ErrInvalidAmount
	}

	item := models.Item{Name: name, Price: price, Popular: popular, Qty: qty}
	err := s.transact(ctx, func(tx repository.Tx) error {
		if _, exists, err := tx.Get(name); err != nil {
			return err
		} else if exists {
			return ErrAlreadyExists
		}
		return tx.Put(name, item)
	})
	if err != nil {
		return models.Item{}, err
	}

	s.logger.Info("item created", zap.String("item", name), zap.Int64("qty", qty))
	return item, s.record(ctx, fmt.Sprintf("Added %s with initial quantity %d", name, qty))
}

// AddQuantity atomically increments an item's quantity.
func (s *Service) AddQuantity(ctx context.Context, name string, amount int64) (models.Item, error) {
	if amount < 0 {
		return models.Item{}, ErrInvalidAmount
	}

	var updated models.Item
	err := s.transact(ctx, func(tx repository.Tx) error {
		it, exists, err := tx.Get(name)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		it.Qty += amount
		updated = it
		return tx.Put(name, it)
	})
	if err != nil {
		return models.Item{}, err
	}

	s.logger.Info("quantity added", zap.String("item", name), zap.Int64("amount", amount), zap.Int64("qty", updated.Qty))
	return updated, s.record(ctx, fmt.Sprintf("Added %d %s", amount, name))
}

// UseQuantity atomically decrements an item's quantity. The sufficiency check
// runs inside the transaction against the committed state, never a stale
// snapshot, so the quantity cannot be driven below zero.
func (s *Service) UseQuantity(ctx context.Context, name string, amount int64) (models.Item, error) {
	if amount < 0 {
		return models.Item{}, ErrInvalidAmount
	}

	var updated models.Item
	err := s.transact(ctx, func(tx repository.Tx) error {
		it, exists, err := tx.Get(name)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		if amount > it.Qty {
			return ErrInsufficientStock
		}
		it.Qty -= amount
		updated = it
		return tx.Put(name, it)
	})
	if err != nil {
		return models.Item{}, err
	}

	s.logger.Info("quantity used", zap.String("item", name), zap.Int64("amount", amount), zap.Int64("qty", updated.Qty))
	return updated, s.record(ctx, fmt.Sprintf("Used %d %s", amount, name))
}

// DeleteItem removes an item. The delete is version-guarded, so an in-flight
// add or use on the same name cannot resurrect the record.
func (s *Service) DeleteItem(ctx context.Context, name string) error {
	err := s.transact(ctx, func(tx repository.Tx) error {
		if _, exists, err := tx.Get(name); err != nil {
			return err
		} else if !exists {
			return ErrNotFound
		}
		return tx.Delete(name)
	})
	if err != nil {
		return err
	}

	s.logger.Info("item deleted", zap.String("item", name))
	return s.record(ctx, fmt.Sprintf("Removed %s from inventory database", name))
}

// GetItem returns the current state of a single item.
func (s *Service) GetItem(ctx context.Context, name string) (models.Item, error) {
	it, exists, err := s.store.GetItem(ctx, name)
	if err != nil {
		return models.Item{}, err
	}
	if !exists {
		return models.Item{}, ErrNotFound
	}
	return it, nil
}

// transact runs fn with bounded conflict retries. Precondition failures from
// fn abort immediately with no effect; only isolation conflicts retry.
func (s *Service) transact(ctx context.Context, fn func(tx repository.Tx) error) error {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err := s.store.RunTransaction(ctx, fn)
		if !errors.Is(err, repository.ErrConflict) {
			return err
		}
		s.logger.Debug("transaction conflict", zap.Int("attempt", attempt))
	}
	return fmt.Errorf("%w after %d attempts", ErrContention, s.maxAttempts)
}

// record appends the audit entry for a committed mutation. The returned error
// wraps audit.ErrLogWriteFailed; the mutation outcome itself stands.
func (s *Service) record(ctx context.Context, message string) error {
	if err := s.audit.Record(ctx, message); err != nil {
		s.logger.Error("audit append failed", zap.String("message", message), zap.Error(err))
		return err
	}
	return nil
}
