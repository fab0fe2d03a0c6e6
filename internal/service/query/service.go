// Package query executes the three supported inventory searches.
package query

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jdsmith2004/stockroom/internal/domain/models"
	"github.com/jdsmith2004/stockroom/internal/repository"
)

// ErrInvalidQuery indicates an unknown filter selector; nothing is executed.
var ErrInvalidQuery = errors.New("invalid query selector")

// Service is the stateless query engine.
type Service struct {
	store  repository.Store
	logger *zap.Logger
}

// NewService constructs a query engine over the given store.
func NewService(store repository.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// ParseFilter resolves a caller-supplied selector. Both the original numeric
// menu choices and readable names are accepted.
func ParseFilter(selector string) (models.Filter, error) {
	switch selector {
	case "1", "all", "":
		return models.FilterAll, nil
	case "2", "out-of-stock":
		return models.FilterOutOfStock, nil
	case "3", "popular-low-stock":
		return models.FilterPopularLowStock, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidQuery, selector)
	}
}

// Search parses the selector and returns a lazy cursor over the matches. The
// cursor is single-pass; call Search again for a fresh result set.
func (s *Service) Search(ctx context.Context, selector string) (repository.Cursor, error) {
	filter, err := ParseFilter(selector)
	if err != nil {
		return nil, err
	}
	return s.store.RunQuery(ctx, filter)
}

// SearchAll drains a search into a slice, for callers that need the full
// result set at once.
func (s *Service) SearchAll(ctx context.Context, selector string) ([]models.Item, error) {
	cur, err := s.Search(ctx, selector)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := cur.Close(ctx); err != nil {
			s.logger.Warn("cursor close failed", zap.Error(err))
		}
	}()

	items := make([]models.Item, 0)
	for cur.Next(ctx) {
		items = append(items, cur.Item())
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
