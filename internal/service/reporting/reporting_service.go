package reporting

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/herdwise/internal/backup"
	"github.com/mamadbah2/herdwise/internal/domain/models"
	repo "github.com/mamadbah2/herdwise/internal/repository/sheets"
	"github.com/mamadbah2/herdwise/pkg/clients/whatsapp"
)

var (
	// ErrUnknownReport is returned for report kinds that do not exist.
	ErrUnknownReport = errors.New("unknown report")
	// ErrSheetsDisabled is returned when no spreadsheet is configured.
	ErrSheetsDisabled = errors.New("sheets export is not configured")
	// ErrNotifierDisabled is returned when no digest recipient is configured.
	ErrNotifierDisabled = errors.New("digest notifications are not configured")
)

// Kind names a tabular report.
type Kind string

const (
	KindAnimals      Kind = "animals"
	KindTransactions Kind = "transactions"
	KindInventory    Kind = "inventory"
)

// SnapshotSource exposes the current farm state.
type SnapshotSource interface {
	Snapshot() models.Snapshot
}

// Service builds reports, alerts and digests from the farm state.
type Service struct {
	source    SnapshotSource
	sheets    repo.Repository
	messenger whatsapp.Client
	recipient string
	logger    *zap.Logger
	now       func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithSheets enables spreadsheet export.
func WithSheets(r repo.Repository) Option {
	return func(s *Service) { s.sheets = r }
}

// WithDigest enables weekly digests sent to recipient.
func WithDigest(client whatsapp.Client, recipient string) Option {
	return func(s *Service) {
		s.messenger = client
		s.recipient = recipient
	}
}

// NewService wires a new reporting service instance.
func NewService(source SnapshotSource, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{source: source, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ParseKind validates a report name.
func ParseKind(value string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(value))); k {
	case KindAnimals, KindTransactions, KindInventory:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownReport, value)
	}
}

// Records renders one report as ordered rows.
func (s *Service) Records(kind Kind) ([]backup.Record, error) {
	snap := s.source.Snapshot()
	switch kind {
	case KindAnimals:
		return animalRecords(snap), nil
	case KindTransactions:
		return transactionRecords(snap), nil
	case KindInventory:
		return inventoryRecords(snap), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownReport, kind)
	}
}

// WriteCSV writes one report as CSV.
func (s *Service) WriteCSV(w io.Writer, kind Kind) error {
	records, err := s.Records(kind)
	if err != nil {
		return err
	}
	return backup.WriteCSV(w, records)
}

// ExportToSheets replaces the sheet named after kind with the report rows.
func (s *Service) ExportToSheets(ctx context.Context, kind Kind) (int, error) {
	if s.sheets == nil {
		return 0, ErrSheetsDisabled
	}

	records, err := s.Records(kind)
	if err != nil {
		return 0, err
	}

	rows := tableRows(records)
	if err := s.sheets.WriteTable(ctx, sheetName(kind), rows); err != nil {
		return 0, fmt.Errorf("export %s: %w", kind, err)
	}

	s.logger.Info("report exported to sheets", zap.String("report", string(kind)), zap.Int("records", len(records)))
	return len(records), nil
}

// Summary describes the farm activity between start and end inclusive,
// followed by the current herd and finance position.
func (s *Service) Summary(start, end time.Time) string {
	snap := s.source.Snapshot()
	from, to := models.FormatDate(start), models.FormatDate(end)
	inPeriod := func(date string) bool {
		d := date
		if len(d) > len(models.DateLayout) {
			d = d[:len(models.DateLayout)]
		}
		return d != "" && d >= from && d <= to
	}

	income, expenses := decimal.Zero, decimal.Zero
	var transactions int
	for _, t := range snap.Transactions {
		if !inPeriod(t.Date) {
			continue
		}
		transactions++
		switch t.Type {
		case models.TransactionIncome:
			income = income.Add(t.Amount)
		case models.TransactionExpense:
			expenses = expenses.Add(t.Amount)
		}
	}

	var sold, died int
	for _, a := range snap.Animals {
		if a.Status == models.AnimalSold && inPeriod(a.SaleDate) {
			sold++
		}
		if a.Status == models.AnimalDeceased && inPeriod(a.DeceasedDate) {
			died++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Farm summary (%s to %s)\n", from, to)
	if transactions == 0 {
		b.WriteString("Finances: no transactions recorded.\n")
	} else {
		fmt.Fprintf(&b, "Finances: income %s, expenses %s, net %s across %d transactions.\n",
			income.StringFixed(2), expenses.StringFixed(2), income.Sub(expenses).StringFixed(2), transactions)
	}
	fmt.Fprintf(&b, "Herd movements: %d sold, %d deceased.\n", sold, died)

	stats := snap.Stats
	fmt.Fprintf(&b, "Herd now: %d active, %d sold, %d deceased.\n", stats.Active, stats.Sold, stats.Deceased)
	fmt.Fprintf(&b, "Balance: %s. Pending tasks: %d. Low stock items: %d.", stats.Balance.StringFixed(2), stats.PendingTasks, stats.LowStockItems)
	return b.String()
}

// WeeklyDigest is the summary of the seven days ending at now plus current alerts.
func (s *Service) WeeklyDigest(now time.Time) string {
	digest := s.Summary(now.AddDate(0, 0, -6), now)

	alerts := s.Alerts(now)
	if len(alerts) == 0 {
		return digest + "\nNo alerts."
	}

	var b strings.Builder
	b.WriteString(digest)
	fmt.Fprintf(&b, "\nAlerts (%d):", len(alerts))
	for _, alert := range alerts {
		b.WriteString("\n- ")
		b.WriteString(alert.Message)
	}
	return b.String()
}

// SendWeeklyDigest sends the weekly digest to the configured recipient.
func (s *Service) SendWeeklyDigest(ctx context.Context) error {
	if s.messenger == nil || s.recipient == "" {
		return ErrNotifierDisabled
	}

	body := s.WeeklyDigest(s.now())
	ids, err := s.messenger.SendText(ctx, s.recipient, body)
	if err != nil {
		return fmt.Errorf("send weekly digest: %w", err)
	}

	messageID := ""
	if len(ids) > 0 {
		messageID = ids[0]
	}
	s.logger.Info("weekly digest sent", zap.String("message_id", messageID), zap.Int("parts", len(ids)))

	if s.sheets != nil {
		row := []interface{}{models.FormatDate(s.now()), s.recipient, messageID, body}
		if err := s.sheets.AppendRow(ctx, digestLogSheet, row); err != nil {
			s.logger.Warn("failed to log digest to sheets", zap.Error(err))
		}
	}
	return nil
}

const digestLogSheet = "Digests"

func sheetName(kind Kind) string {
	return strings.ToUpper(string(kind[:1])) + string(kind[1:])
}

func tableRows(records []backup.Record) [][]interface{} {
	if len(records) == 0 {
		return nil
	}

	header := make([]interface{}, len(records[0]))
	names := make([]string, len(records[0]))
	for i, f := range records[0] {
		header[i] = f.Name
		names[i] = f.Name
	}

	rows := [][]interface{}{header}
	for _, record := range records {
		values := make(map[string]string, len(record))
		for _, f := range record {
			values[f.Name] = f.Value
		}
		row := make([]interface{}, len(names))
		for i, name := range names {
			row[i] = values[name]
		}
		rows = append(rows, row)
	}
	return rows
}
