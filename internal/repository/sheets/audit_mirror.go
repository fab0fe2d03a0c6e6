// Package sheets mirrors the audit trail into a Google Sheets spreadsheet so
// operators can review the transaction history without database access.
package sheets

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/jdsmith2004/stockroom/internal/config"
)

const (
	logWriteRange   = "Log!A:B"
	timestampFormat = time.RFC3339
)

// AuditMirror appends audit rows using the official Google Sheets API.
type AuditMirror struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewAuditMirror builds a Google Sheets backed audit mirror.
func NewAuditMirror(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*AuditMirror, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &AuditMirror{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		logger:        logger,
	}, nil
}

// AppendRow appends one audit entry as a (timestamp, message) row.
func (m *AuditMirror) AppendRow(ctx context.Context, timestamp time.Time, message string) error {
	payload := &sheetsapi.ValueRange{
		Values: [][]interface{}{{timestamp.Format(timestampFormat), message}},
	}

	call := m.service.Spreadsheets.Values.Append(m.spreadsheetID, logWriteRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append audit row into range %s: %w", logWriteRange, err)
	}

	m.logger.Debug("audit row mirrored", zap.String("message", message))
	return nil
}
