// Package webhook delivers stock alerts and reports to an operator-configured
// HTTP endpoint.
package webhook

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jdsmith2004/stockroom/internal/domain/models"
)

// Client is a resty-backed webhook publisher.
type Client struct {
	httpClient *resty.Client
}

// NewClient builds a webhook client targeting the given base URL.
func NewClient(baseURL string) *Client {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)

	return &Client{httpClient: restyClient}
}

// apiError is the error payload shape returned by the receiving endpoint.
type apiError struct {
	Error string `json:"error"`
}

// SendAlert posts a single stock transition.
func (c *Client) SendAlert(ctx context.Context, alert models.StockAlert) error {
	return c.post(ctx, "/alerts", alert)
}

// SendReport posts a low-stock report snapshot.
func (c *Client) SendReport(ctx context.Context, report models.LowStockReport) error {
	return c.post(ctx, "/reports", report)
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetError(apiErr).
		Post(path)
	if err != nil {
		return fmt.Errorf("post webhook %s: %w", path, err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("webhook error: code=%d, message=%s", resp.StatusCode(), apiErr.Error)
	}
	return nil
}
