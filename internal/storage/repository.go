// Package storage persists the ledger in SQLite. All mutations that
// must be visible together run inside one sql.Tx; the repository never
// commits partial batches.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tesouraria/internal/core"

	_ "modernc.org/sqlite"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so that every query
// can run standalone or as part of an atomic batch.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// DB exposes the connection for single-statement operations.
func (r *Repository) DB() DBTX {
	return r.db
}

// InTx runs fn inside one transaction. Either every write in fn
// becomes visible atomically or none does.
func (r *Repository) InTx(ctx context.Context, fn func(q DBTX) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &core.PersistenceError{Op: "begin batch", Err: err}
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("rollback batch after %w: %v", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return &core.PersistenceError{Op: "commit batch", Err: err}
	}
	return nil
}

const transactionColumns = `id, tenant_id, tipo, amount_cents, occurred_at, description, settled,
	category, member_id, member_name, payment_method, main_category, sub_category,
	idempotency_key, version, created_at, updated_at`

func (r *Repository) InsertTransaction(ctx context.Context, q DBTX, t core.Transaction) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.TenantID, string(t.Tipo), t.Amount.Cents, encodeTime(t.OccurredAt.Time),
		t.Description, boolToInt(t.Settled), t.Category,
		nullable(t.MemberID), nullable(t.MemberName), nullable(t.PaymentMethod),
		nullable(t.MainCategory), nullable(t.SubCategory), nullable(t.IdempotencyKey),
		t.Version, encodeTime(t.CreatedAt), encodeTime(t.UpdatedAt))
	if err != nil {
		return &core.PersistenceError{Op: "insert transaction", Err: err}
	}
	return nil
}

func (r *Repository) GetTransaction(ctx context.Context, q DBTX, tenantID, id string) (core.Transaction, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions WHERE tenant_id = ? AND id = ?`, tenantID, id)
	return scanTransaction(row)
}

func (r *Repository) FindTransactionByIdempotencyKey(ctx context.Context, q DBTX, tenantID, key string) (core.Transaction, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions WHERE tenant_id = ? AND idempotency_key = ?`, tenantID, key)
	return scanTransaction(row)
}

// UpdateTransaction writes the already-bumped transaction, guarded by
// the version the caller read. Zero rows affected means another
// session won the race.
func (r *Repository) UpdateTransaction(ctx context.Context, q DBTX, t core.Transaction, readVersion int64) error {
	res, err := q.ExecContext(ctx, `
		UPDATE transactions SET
			amount_cents = ?, occurred_at = ?, description = ?, settled = ?,
			category = ?, member_id = ?, member_name = ?, payment_method = ?,
			main_category = ?, sub_category = ?, version = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ? AND version = ?`,
		t.Amount.Cents, encodeTime(t.OccurredAt.Time), t.Description, boolToInt(t.Settled),
		t.Category, nullable(t.MemberID), nullable(t.MemberName), nullable(t.PaymentMethod),
		nullable(t.MainCategory), nullable(t.SubCategory), t.Version, encodeTime(t.UpdatedAt),
		t.TenantID, t.ID, readVersion)
	if err != nil {
		return &core.PersistenceError{Op: "update transaction", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &core.PersistenceError{Op: "update transaction", Err: err}
	}
	if n == 0 {
		return core.ErrConflict
	}
	return nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, q DBTX, tenantID, id string) error {
	res, err := q.ExecContext(ctx,
		`DELETE FROM transactions WHERE tenant_id = ? AND id = ?`, tenantID, id)
	if err != nil {
		return &core.PersistenceError{Op: "delete transaction", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &core.PersistenceError{Op: "delete transaction", Err: err}
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ListTransactionsByPeriod returns transactions with from <= occurred_at < to,
// newest first.
func (r *Repository) ListTransactionsByPeriod(ctx context.Context, q DBTX, tenantID string, from, to time.Time) ([]core.Transaction, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE tenant_id = ? AND occurred_at >= ? AND occurred_at < ?
		ORDER BY occurred_at DESC`, tenantID, encodeTime(from), encodeTime(to))
	if err != nil {
		return nil, &core.PersistenceError{Op: "list transactions by period", Err: err}
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (r *Repository) ListTransactions(ctx context.Context, q DBTX, tenantID string) ([]core.Transaction, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions WHERE tenant_id = ?
		ORDER BY occurred_at DESC`, tenantID)
	if err != nil {
		return nil, &core.PersistenceError{Op: "list transactions", Err: err}
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (r *Repository) InsertTitheRecord(ctx context.Context, q DBTX, rec core.TitheRecord) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO tithe_records
			(id, transaction_id, tenant_id, member_id, amount_cents, occurred_at, payment_method, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.TransactionID, rec.TenantID, rec.MemberID,
		rec.Amount.Cents, encodeTime(rec.OccurredAt.Time), rec.PaymentMethod, rec.Description)
	if err != nil {
		return &core.PersistenceError{Op: "insert tithe record", Err: err}
	}
	return nil
}

// UpdateTitheRecordByTransaction rewrites the sub-ledger entry that
// tracks the given transaction.
func (r *Repository) UpdateTitheRecordByTransaction(ctx context.Context, q DBTX, rec core.TitheRecord) error {
	res, err := q.ExecContext(ctx, `
		UPDATE tithe_records SET
			member_id = ?, amount_cents = ?, occurred_at = ?, payment_method = ?, description = ?
		WHERE tenant_id = ? AND transaction_id = ?`,
		rec.MemberID, rec.Amount.Cents, encodeTime(rec.OccurredAt.Time),
		rec.PaymentMethod, rec.Description, rec.TenantID, rec.TransactionID)
	if err != nil {
		return &core.PersistenceError{Op: "update tithe record", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &core.PersistenceError{Op: "update tithe record", Err: err}
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteTitheRecordByTransaction(ctx context.Context, q DBTX, tenantID, transactionID string) error {
	_, err := q.ExecContext(ctx,
		`DELETE FROM tithe_records WHERE tenant_id = ? AND transaction_id = ?`,
		tenantID, transactionID)
	if err != nil {
		return &core.PersistenceError{Op: "delete tithe record", Err: err}
	}
	return nil
}

func (r *Repository) GetTitheRecordByTransaction(ctx context.Context, q DBTX, tenantID, transactionID string) (core.TitheRecord, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, transaction_id, tenant_id, member_id, amount_cents, occurred_at, payment_method, description
		FROM tithe_records WHERE tenant_id = ? AND transaction_id = ?`, tenantID, transactionID)
	return scanTitheRecord(row)
}

func (r *Repository) ListTitheRecordsByMember(ctx context.Context, q DBTX, tenantID, memberID string) ([]core.TitheRecord, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, transaction_id, tenant_id, member_id, amount_cents, occurred_at, payment_method, description
		FROM tithe_records WHERE tenant_id = ? AND member_id = ?
		ORDER BY occurred_at DESC`, tenantID, memberID)
	if err != nil {
		return nil, &core.PersistenceError{Op: "list tithe records", Err: err}
	}
	defer rows.Close()

	var recs []core.TitheRecord
	for rows.Next() {
		rec, err := scanTitheRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.PersistenceError{Op: "list tithe records", Err: err}
	}
	return recs, nil
}

func (r *Repository) CountTitheRecords(ctx context.Context, q DBTX, tenantID string) (int64, error) {
	var n int64
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tithe_records WHERE tenant_id = ?`, tenantID).Scan(&n)
	if err != nil {
		return 0, &core.PersistenceError{Op: "count tithe records", Err: err}
	}
	return n, nil
}

func (r *Repository) InsertMember(ctx context.Context, q DBTX, m core.Member) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO members (id, tenant_id, name, tither, baptized, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.TenantID, m.Name, boolToInt(m.Tither), boolToInt(m.Baptized), encodeTime(m.CreatedAt))
	if err != nil {
		return &core.PersistenceError{Op: "insert member", Err: err}
	}
	return nil
}

func (r *Repository) GetMember(ctx context.Context, q DBTX, tenantID, id string) (core.Member, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, tither, baptized, created_at
		FROM members WHERE tenant_id = ? AND id = ?`, tenantID, id)
	return scanMember(row)
}

func (r *Repository) ListTithers(ctx context.Context, q DBTX, tenantID string) ([]core.Member, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, tenant_id, name, tither, baptized, created_at
		FROM members WHERE tenant_id = ? AND tither = 1
		ORDER BY name`, tenantID)
	if err != nil {
		return nil, &core.PersistenceError{Op: "list tithers", Err: err}
	}
	defer rows.Close()

	var members []core.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.PersistenceError{Op: "list tithers", Err: err}
	}
	return members, nil
}

func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// nullable stores empty strings as NULL so the partial unique index on
// idempotency_key only applies to keys that were actually supplied.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
