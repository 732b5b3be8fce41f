package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"tesouraria/internal/core"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleEntry(id string) core.Transaction {
	now := time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC)
	return core.Transaction{
		ID:            id,
		TenantID:      "t1",
		Tipo:          core.Entrada,
		Amount:        core.Money{Cents: 15000},
		OccurredAt:    core.NewDate(2025, 3, 9),
		Description:   "Culto de domingo",
		Settled:       true,
		Category:      core.CategoryDizimo,
		MemberID:      "m1",
		MemberName:    "Maria Souza",
		PaymentMethod: core.PaymentPix,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestInsertAndGetTransactionRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	want := sampleEntry("tx-1")

	if err := repo.InsertTransaction(ctx, repo.DB(), want); err != nil {
		t.Fatalf("InsertTransaction() error = %v", err)
	}

	got, err := repo.GetTransaction(ctx, repo.DB(), "t1", "tx-1")
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if got.Category != want.Category || got.MemberName != want.MemberName ||
		got.PaymentMethod != want.PaymentMethod || got.Amount != want.Amount {
		t.Errorf("GetTransaction() = %+v, want %+v", got, want)
	}
	if !got.OccurredAt.Equal(want.OccurredAt.Time) {
		t.Errorf("OccurredAt = %v, want %v", got.OccurredAt, want.OccurredAt)
	}
}

func TestGetTransactionNotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.GetTransaction(context.Background(), repo.DB(), "t1", "missing")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetTransaction() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateTransactionStaleVersion(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	stored := sampleEntry("tx-1")
	if err := repo.InsertTransaction(ctx, repo.DB(), stored); err != nil {
		t.Fatalf("InsertTransaction() error = %v", err)
	}

	updated := stored
	updated.Description = "Edição"
	updated.Version = 2
	if err := repo.UpdateTransaction(ctx, repo.DB(), updated, 1); err != nil {
		t.Fatalf("UpdateTransaction() error = %v", err)
	}

	// A second writer updating from the original read must lose.
	stale := stored
	stale.Description = "Edição perdida"
	stale.Version = 2
	if err := repo.UpdateTransaction(ctx, repo.DB(), stale, 1); !errors.Is(err, core.ErrConflict) {
		t.Errorf("UpdateTransaction() error = %v, want ErrConflict", err)
	}
}

func TestDeleteTransactionNotFound(t *testing.T) {
	repo := newTestRepository(t)

	err := repo.DeleteTransaction(context.Background(), repo.DB(), "t1", "missing")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("DeleteTransaction() error = %v, want ErrNotFound", err)
	}
}

func TestFindTransactionByIdempotencyKey(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	stored := sampleEntry("tx-1")
	stored.IdempotencyKey = "retry-abc"
	if err := repo.InsertTransaction(ctx, repo.DB(), stored); err != nil {
		t.Fatalf("InsertTransaction() error = %v", err)
	}

	got, err := repo.FindTransactionByIdempotencyKey(ctx, repo.DB(), "t1", "retry-abc")
	if err != nil {
		t.Fatalf("FindTransactionByIdempotencyKey() error = %v", err)
	}
	if got.ID != "tx-1" {
		t.Errorf("ID = %q, want tx-1", got.ID)
	}

	// The key is tenant scoped.
	if _, err := repo.FindTransactionByIdempotencyKey(ctx, repo.DB(), "t2", "retry-abc"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("other tenant lookup error = %v, want ErrNotFound", err)
	}

	// An empty key never collides: rows without a key may repeat.
	first := sampleEntry("tx-2")
	second := sampleEntry("tx-3")
	if err := repo.InsertTransaction(ctx, repo.DB(), first); err != nil {
		t.Fatalf("InsertTransaction() error = %v", err)
	}
	if err := repo.InsertTransaction(ctx, repo.DB(), second); err != nil {
		t.Fatalf("InsertTransaction() error = %v", err)
	}
}

func TestListTransactionsByPeriodOrdering(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	older := sampleEntry("tx-old")
	older.OccurredAt = core.NewDate(2025, 3, 2)
	newer := sampleEntry("tx-new")
	newer.OccurredAt = core.NewDate(2025, 3, 20)
	outside := sampleEntry("tx-april")
	outside.OccurredAt = core.NewDate(2025, 4, 2)

	for _, tx := range []core.Transaction{older, newer, outside} {
		if err := repo.InsertTransaction(ctx, repo.DB(), tx); err != nil {
			t.Fatalf("InsertTransaction(%s) error = %v", tx.ID, err)
		}
	}

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	got, err := repo.ListTransactionsByPeriod(ctx, repo.DB(), "t1", from, to)
	if err != nil {
		t.Fatalf("ListTransactionsByPeriod() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListTransactionsByPeriod() returned %d rows, want 2", len(got))
	}
	if got[0].ID != "tx-new" || got[1].ID != "tx-old" {
		t.Errorf("order = [%s %s], want [tx-new tx-old]", got[0].ID, got[1].ID)
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := repo.InTx(ctx, func(q DBTX) error {
		if err := repo.InsertTransaction(ctx, q, sampleEntry("tx-1")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx() error = %v, want boom", err)
	}

	if _, err := repo.GetTransaction(ctx, repo.DB(), "t1", "tx-1"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetTransaction() after rollback error = %v, want ErrNotFound", err)
	}
}

func TestScanTransactionRejectsCorruptRows(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		update string
	}{
		{
			name:   "bad occurred_at",
			update: `UPDATE transactions SET occurred_at = 'nao-e-data' WHERE id = 'tx-1'`,
		},
		{
			name:   "entrada without payment method",
			update: `UPDATE transactions SET payment_method = NULL WHERE id = 'tx-1'`,
		},
		{
			name:   "zero version",
			update: `UPDATE transactions SET version = 0 WHERE id = 'tx-1'`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := repo.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = 'tx-1'`); err != nil {
				t.Fatalf("reset row: %v", err)
			}
			if err := repo.InsertTransaction(ctx, repo.DB(), sampleEntry("tx-1")); err != nil {
				t.Fatalf("InsertTransaction() error = %v", err)
			}
			if _, err := repo.db.ExecContext(ctx, tt.update); err != nil {
				t.Fatalf("corrupt row: %v", err)
			}

			_, err := repo.GetTransaction(ctx, repo.DB(), "t1", "tx-1")
			var schemaErr *core.SchemaError
			if !errors.As(err, &schemaErr) {
				t.Errorf("GetTransaction() error = %v, want SchemaError", err)
			}
		})
	}
}

func TestTitheRecordLifecycle(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	entry := sampleEntry("tx-1")
	if err := repo.InsertTransaction(ctx, repo.DB(), entry); err != nil {
		t.Fatalf("InsertTransaction() error = %v", err)
	}

	rec := entry.TitheRecord()
	rec.ID = "rec-1"
	if err := repo.InsertTitheRecord(ctx, repo.DB(), rec); err != nil {
		t.Fatalf("InsertTitheRecord() error = %v", err)
	}

	got, err := repo.GetTitheRecordByTransaction(ctx, repo.DB(), "t1", "tx-1")
	if err != nil {
		t.Fatalf("GetTitheRecordByTransaction() error = %v", err)
	}
	if got.MemberID != "m1" || got.Amount.Cents != 15000 {
		t.Errorf("record = %+v, want member m1 with 15000 cents", got)
	}

	rec.Amount = core.Money{Cents: 20000}
	if err := repo.UpdateTitheRecordByTransaction(ctx, repo.DB(), rec); err != nil {
		t.Fatalf("UpdateTitheRecordByTransaction() error = %v", err)
	}
	got, err = repo.GetTitheRecordByTransaction(ctx, repo.DB(), "t1", "tx-1")
	if err != nil {
		t.Fatalf("GetTitheRecordByTransaction() error = %v", err)
	}
	if got.Amount.Cents != 20000 {
		t.Errorf("Amount = %d cents after update, want 20000", got.Amount.Cents)
	}

	if err := repo.DeleteTitheRecordByTransaction(ctx, repo.DB(), "t1", "tx-1"); err != nil {
		t.Fatalf("DeleteTitheRecordByTransaction() error = %v", err)
	}
	if _, err := repo.GetTitheRecordByTransaction(ctx, repo.DB(), "t1", "tx-1"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetTitheRecordByTransaction() after delete error = %v, want ErrNotFound", err)
	}
}

func TestMemberRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	m := core.Member{
		ID:        "m1",
		TenantID:  "t1",
		Name:      "Maria Souza",
		Tither:    true,
		Baptized:  true,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := repo.InsertMember(ctx, repo.DB(), m); err != nil {
		t.Fatalf("InsertMember() error = %v", err)
	}
	notTither := core.Member{ID: "m2", TenantID: "t1", Name: "Pedro Alves", CreatedAt: m.CreatedAt}
	if err := repo.InsertMember(ctx, repo.DB(), notTither); err != nil {
		t.Fatalf("InsertMember() error = %v", err)
	}

	got, err := repo.GetMember(ctx, repo.DB(), "t1", "m1")
	if err != nil {
		t.Fatalf("GetMember() error = %v", err)
	}
	if got.Name != "Maria Souza" || !got.Tither {
		t.Errorf("GetMember() = %+v, want tither Maria Souza", got)
	}

	tithers, err := repo.ListTithers(ctx, repo.DB(), "t1")
	if err != nil {
		t.Fatalf("ListTithers() error = %v", err)
	}
	if len(tithers) != 1 || tithers[0].ID != "m1" {
		t.Errorf("ListTithers() = %+v, want only m1", tithers)
	}
}
