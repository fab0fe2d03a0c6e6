package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/jdsmith2004/stockroom/internal/config"
	"github.com/jdsmith2004/stockroom/internal/domain/models"
	"github.com/jdsmith2004/stockroom/internal/service/query"
	"github.com/jdsmith2004/stockroom/pkg/clients/webhook"
)

// Scheduler periodically publishes the popular-low-stock reorder report.
type Scheduler struct {
	cron     *cron.Cron
	querySvc *query.Service
	client   *webhook.Client
	cfg      config.ReportingConfig
	logger   *zap.Logger
}

// NewScheduler creates a new scheduler instance. client may be nil, in which
// case reports are only logged.
func NewScheduler(cfg config.ReportingConfig, querySvc *query.Service, client *webhook.Client, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("unknown timezone, using local", zap.String("timezone", cfg.Timezone), zap.Error(err))
		loc = time.Local
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		querySvc: querySvc,
		client:   client,
		cfg:      cfg,
		logger:   logger,
	}
}

// Start registers the report job and starts the cron loop.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", zap.String("schedule", s.cfg.CronSchedule))

	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.sendLowStockReport); err != nil {
		s.logger.Error("failed to schedule low stock report", zap.Error(err))
	}

	s.cron.Start()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) sendLowStockReport() {
	s.logger.Info("generating low stock report")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	items, err := s.querySvc.SearchAll(ctx, string(models.FilterPopularLowStock))
	if err != nil {
		s.logger.Error("failed to generate low stock report", zap.Error(err))
		return
	}
	if len(items) == 0 {
		s.logger.Info("no popular items below the low stock threshold")
		return
	}

	report := models.LowStockReport{GeneratedAt: time.Now().UTC(), Items: items}
	s.logger.Info("low stock report ready", zap.Int("items", len(items)))

	if s.client == nil {
		return
	}
	if err := s.client.SendReport(ctx, report); err != nil {
		s.logger.Error("failed to send low stock report", zap.Error(err))
	} else {
		s.logger.Info("low stock report sent successfully")
	}
}
