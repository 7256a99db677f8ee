package sheets

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/herdwise/internal/config"
)

// Repository publishes report tables to a spreadsheet.
type Repository interface {
	WriteTable(ctx context.Context, sheet string, rows [][]interface{}) error
	AppendRow(ctx context.Context, sheet string, values []interface{}) error
}

// GoogleSheetRepository implements Repository using the official Google Sheets API.
type GoogleSheetRepository struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewGoogleSheetRepository builds a Google Sheets backed repository instance.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*GoogleSheetRepository, error) {
	return newRepository(ctx, cfg.SpreadsheetID, logger,
		option.WithCredentialsFile(cfg.CredentialsPath),
		option.WithScopes(sheetsapi.SpreadsheetsScope))
}

func newRepository(ctx context.Context, spreadsheetID string, logger *zap.Logger, opts ...option.ClientOption) (*GoogleSheetRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheetRepository{
		service:       service,
		spreadsheetID: spreadsheetID,
		logger:        logger,
	}, nil
}

// WriteTable replaces the contents of sheet with rows, header first.
func (r *GoogleSheetRepository) WriteTable(ctx context.Context, sheet string, rows [][]interface{}) error {
	if sheet == "" {
		return fmt.Errorf("sheet must not be empty")
	}

	if _, err := r.service.Spreadsheets.Values.Clear(r.spreadsheetID, sheet, &sheetsapi.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet %s: %w", sheet, err)
	}

	if len(rows) == 0 {
		return nil
	}

	payload := &sheetsapi.ValueRange{Values: rows}
	call := r.service.Spreadsheets.Values.Update(r.spreadsheetID, sheet+"!A1", payload).
		ValueInputOption("RAW").
		Context(ctx)
	if _, err := call.Do(); err != nil {
		return fmt.Errorf("write sheet %s: %w", sheet, err)
	}

	r.logger.Info("sheet table written", zap.String("sheet", sheet), zap.Int("rows", len(rows)))
	return nil
}

// AppendRow appends the provided values below the existing rows of sheet.
func (r *GoogleSheetRepository) AppendRow(ctx context.Context, sheet string, values []interface{}) error {
	if sheet == "" {
		return fmt.Errorf("sheet must not be empty")
	}

	payload := &sheetsapi.ValueRange{Values: [][]interface{}{values}}
	call := r.service.Spreadsheets.Values.Append(r.spreadsheetID, sheet, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append row into %s: %w", sheet, err)
	}

	r.logger.Debug("row appended to sheet", zap.String("sheet", sheet))
	return nil
}
