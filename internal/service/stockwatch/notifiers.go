package stockwatch

import (
	"context"

	"go.uber.org/zap"

	"github.com/jdsmith2004/stockroom/internal/domain/models"
	"github.com/jdsmith2004/stockroom/pkg/clients/webhook"
)

// LogNotifier writes each transition to the structured log. Message wording
// follows the operator-facing alerts of the original console tool.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier returns a notifier backed by the given logger.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the alert.
func (n *LogNotifier) Notify(_ context.Context, alert models.StockAlert) error {
	switch alert.Transition {
	case models.TransitionNowOutOfStock:
		n.logger.Warn("OUT OF STOCK ALERT!! ORDER MORE", zap.String("item", alert.Item))
	case models.TransitionRestocked:
		n.logger.Info("ITEM HAS BEEN RE-STOCKED!! READY TO USE", zap.String("item", alert.Item))
	case models.TransitionStillOutOfStock:
		n.logger.Warn("ITEM IS STILL OUT OF STOCK!! NONE LEFT", zap.String("item", alert.Item))
	}
	return nil
}

// WebhookNotifier forwards each alert to the configured webhook endpoint.
type WebhookNotifier struct {
	client *webhook.Client
}

// NewWebhookNotifier returns a notifier posting through the webhook client.
func NewWebhookNotifier(client *webhook.Client) *WebhookNotifier {
	return &WebhookNotifier{client: client}
}

// Notify delivers the alert over HTTP.
func (n *WebhookNotifier) Notify(ctx context.Context, alert models.StockAlert) error {
	return n.client.SendAlert(ctx, alert)
}
