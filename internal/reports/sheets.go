// Package reports pushes committed transactions into the spreadsheet
// the treasury reports are built from. Formatting of the final
// PDF/Excel reports happens downstream and is not handled here.
package reports

import (
	"context"
	"fmt"
	"os"
	"time"

	"tesouraria/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Exporter appends transaction rows to one sheet of the report
// spreadsheet.
type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewExporter builds the Sheets client from a service account
// credentials file or inline JSON.
func NewExporter(ctx context.Context, credentialsFile, credentialsJSON, spreadsheetID, sheetName string) (*Exporter, error) {
	var opts []goption.ClientOption
	switch {
	case credentialsJSON != "":
		opts = append(opts, goption.WithCredentialsJSON([]byte(credentialsJSON)))
	case credentialsFile != "":
		raw, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		opts = append(opts, goption.WithCredentialsJSON(raw))
	default:
		return nil, fmt.Errorf("no Google credentials configured")
	}
	opts = append(opts, goption.WithScopes(gsheet.SpreadsheetsScope))

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Exporter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// AppendTransaction adds one row for the transaction. Rows are
// append-only; updates arrive as new rows and the report pipeline
// keeps the latest version per transaction id.
func (e *Exporter) AppendTransaction(ctx context.Context, t core.Transaction, op string) error {
	row := []any{
		t.ID,
		t.TenantID,
		string(t.Tipo),
		op,
		t.Version,
		t.OccurredAt.Format("2006-01-02"),
		t.Category,
		t.MainCategory,
		t.SubCategory,
		t.Amount.Reais(),
		t.Description,
		t.MemberName,
		t.PaymentMethod,
		time.Now().UTC().Format(time.RFC3339),
	}
	vr := &gsheet.ValueRange{Values: [][]any{row}}

	_, err := e.svc.Spreadsheets.Values.
		Append(e.spreadsheetID, e.sheetName+"!A:N", vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append report row: %w", err)
	}
	return nil
}
