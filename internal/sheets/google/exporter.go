// Package google exports settlements to a Google Sheets spreadsheet using a
// service account.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"finboard/internal/finance"
	ports "finboard/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config selects the target spreadsheet and the service account used to reach it.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ ports.SettlementExporter = (*Exporter)(nil)

func NewExporter(ctx context.Context, cfg Config) (*Exporter, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName := strings.TrimSpace(cfg.SheetName)
	if sheetName == "" {
		sheetName = "Settlements"
	}

	credentialsJSON, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets exporter ready",
		"spreadsheet_id", spreadsheetID,
		"sheet", sheetName)

	return &Exporter{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

// loadCredentials prefers inline JSON over a credentials file.
func loadCredentials(cfg Config) ([]byte, error) {
	if inline := strings.TrimSpace(cfg.CredentialsJSON); inline != "" {
		return []byte(inline), nil
	}
	if path := strings.TrimSpace(cfg.CredentialsFile); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	}
	return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
}

// ExportSettlement appends one row per counterparty to the settlement sheet.
func (e *Exporter) ExportSettlement(ctx context.Context, base string, s finance.Settlement, when time.Time) (int, error) {
	if e.svc == nil {
		return 0, errors.New("sheets service not initialized")
	}

	rows := ports.SettlementRows(base, s, when)
	if len(rows) == 0 {
		return 0, nil
	}

	values := make([][]any, len(rows))
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, cell := range row {
			cells[j] = cell
		}
		values[i] = cells
	}

	rng := fmt.Sprintf("%s!A:F", e.sheetName)
	_, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return 0, fmt.Errorf("append to sheet %s: %w", e.sheetName, err)
	}

	slog.InfoContext(ctx, "Settlement exported to Google Sheets",
		"sheet", e.sheetName,
		"rows", len(rows))

	return len(rows), nil
}
