// Package audit appends the transaction trail for every successful inventory
// mutation. The primary sink is the storage adapter's log collection; an
// optional mirror (Google Sheets) receives a best-effort copy.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jdsmith2004/stockroom/internal/repository"
)

// ErrLogWriteFailed indicates the mutation itself committed but its audit
// entry could not be appended. Callers must treat the trail as incomplete.
var ErrLogWriteFailed = errors.New("audit log write failed")

// Mirror receives a secondary copy of every audit entry.
type Mirror interface {
	AppendRow(ctx context.Context, timestamp time.Time, message string) error
}

// Recorder writes audit entries through the storage adapter.
type Recorder struct {
	store  repository.Store
	mirror Mirror
	logger *zap.Logger
	now    func() time.Time
}

// NewRecorder wires a recorder. mirror may be nil.
func NewRecorder(store repository.Store, mirror Mirror, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: store, mirror: mirror, logger: logger, now: time.Now}
}

// Record appends a transaction description. A primary sink failure is
// returned wrapped in ErrLogWriteFailed; mirror failures are logged only and
// never affect the outcome.
func (r *Recorder) Record(ctx context.Context, message string) error {
	if err := r.store.AppendLog(ctx, message); err != nil {
		return fmt.Errorf("%w: %v", ErrLogWriteFailed, err)
	}

	if r.mirror != nil {
		if err := r.mirror.AppendRow(ctx, r.now().UTC(), message); err != nil {
			r.logger.Warn("audit mirror append failed", zap.Error(err))
		}
	}
	return nil
}
