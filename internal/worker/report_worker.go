package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tesouraria/internal/amqp"
	"tesouraria/internal/core"
	"tesouraria/internal/reports"
	"tesouraria/internal/storage"
)

// ReportWorker consumes change events and pushes the affected
// transaction into the report spreadsheet.
type ReportWorker struct {
	repo     *storage.Repository
	exporter *reports.Exporter
}

func NewReportWorker(repo *storage.Repository, exporter *reports.Exporter) *ReportWorker {
	return &ReportWorker{
		repo:     repo,
		exporter: exporter,
	}
}

// HandleChange processes one change event. The event carries only
// identifiers; the current transaction state is loaded from storage,
// so replays and reordering cannot export stale data as current.
func (w *ReportWorker) HandleChange(ctx context.Context, msg *amqp.TransactionChanged) error {
	slog.InfoContext(ctx, "Processing change event",
		"tenant_id", msg.TenantID,
		"transaction_id", msg.TransactionID,
		"op", msg.Op)

	if msg.Op == amqp.OpDeleted {
		// Nothing to load; the report pipeline tombstones the row.
		t := core.Transaction{ID: msg.TransactionID, TenantID: msg.TenantID}
		if err := w.exporter.AppendTransaction(ctx, t, msg.Op); err != nil {
			return fmt.Errorf("export delete marker: %w", err)
		}
		return nil
	}

	t, err := w.repo.GetTransaction(ctx, w.repo.DB(), msg.TenantID, msg.TransactionID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// Deleted between the event and now; the delete event will
			// follow.
			slog.WarnContext(ctx, "Transaction gone before export",
				"tenant_id", msg.TenantID, "transaction_id", msg.TransactionID)
			return nil
		}
		return fmt.Errorf("load transaction: %w", err)
	}

	if err := w.exporter.AppendTransaction(ctx, t, msg.Op); err != nil {
		return fmt.Errorf("export transaction: %w", err)
	}

	slog.InfoContext(ctx, "Exported transaction to report",
		"tenant_id", t.TenantID,
		"transaction_id", t.ID,
		"version", t.Version)
	return nil
}
