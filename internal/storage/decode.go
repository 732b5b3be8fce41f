package storage

import (
	"database/sql"
	"errors"
	"time"

	"tesouraria/internal/core"
)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Decoding is strict: a persisted row that cannot be mapped onto the
// domain type fails with core.SchemaError instead of being patched up
// with defaults.

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t                        core.Transaction
		tipo                     string
		occurredAt               string
		settled                  int64
		memberID, memberName     sql.NullString
		paymentMethod            sql.NullString
		mainCategory, subCat     sql.NullString
		idempotencyKey           sql.NullString
		createdAt, updatedAt     string
	)
	err := s.Scan(&t.ID, &t.TenantID, &tipo, &t.Amount.Cents, &occurredAt,
		&t.Description, &settled, &t.Category, &memberID, &memberName,
		&paymentMethod, &mainCategory, &subCat, &idempotencyKey,
		&t.Version, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, core.ErrNotFound
		}
		return core.Transaction{}, &core.PersistenceError{Op: "scan transaction", Err: err}
	}

	t.Tipo = core.Tipo(tipo)
	if !t.Tipo.IsValid() {
		return core.Transaction{}, &core.SchemaError{Entity: "transaction", Field: "tipo", Reason: "unknown kind " + tipo}
	}
	occurred, err := decodeTime("transaction", "occurred_at", occurredAt)
	if err != nil {
		return core.Transaction{}, err
	}
	t.OccurredAt = core.Date{Time: occurred}
	if t.CreatedAt, err = decodeTime("transaction", "created_at", createdAt); err != nil {
		return core.Transaction{}, err
	}
	if t.UpdatedAt, err = decodeTime("transaction", "updated_at", updatedAt); err != nil {
		return core.Transaction{}, err
	}
	if t.Version < 1 {
		return core.Transaction{}, &core.SchemaError{Entity: "transaction", Field: "version", Reason: "must be positive"}
	}
	t.Settled = settled != 0
	t.MemberID = memberID.String
	t.MemberName = memberName.String
	t.PaymentMethod = paymentMethod.String
	t.MainCategory = mainCategory.String
	t.SubCategory = subCat.String
	t.IdempotencyKey = idempotencyKey.String

	if t.Tipo == core.Entrada && t.PaymentMethod == "" {
		return core.Transaction{}, &core.SchemaError{Entity: "transaction", Field: "payment_method", Reason: "missing on entrada"}
	}
	return t, nil
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var txs []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.PersistenceError{Op: "iterate transactions", Err: err}
	}
	return txs, nil
}

func scanTitheRecord(s scanner) (core.TitheRecord, error) {
	var (
		rec        core.TitheRecord
		occurredAt string
	)
	err := s.Scan(&rec.ID, &rec.TransactionID, &rec.TenantID, &rec.MemberID,
		&rec.Amount.Cents, &occurredAt, &rec.PaymentMethod, &rec.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.TitheRecord{}, core.ErrNotFound
		}
		return core.TitheRecord{}, &core.PersistenceError{Op: "scan tithe record", Err: err}
	}
	occurred, err := decodeTime("tithe_record", "occurred_at", occurredAt)
	if err != nil {
		return core.TitheRecord{}, err
	}
	rec.OccurredAt = core.Date{Time: occurred}
	if rec.MemberID == "" {
		return core.TitheRecord{}, &core.SchemaError{Entity: "tithe_record", Field: "member_id", Reason: "empty"}
	}
	return rec, nil
}

func scanMember(s scanner) (core.Member, error) {
	var (
		m                core.Member
		tither, baptized int64
		createdAt        string
	)
	err := s.Scan(&m.ID, &m.TenantID, &m.Name, &tither, &baptized, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Member{}, core.ErrNotFound
		}
		return core.Member{}, &core.PersistenceError{Op: "scan member", Err: err}
	}
	if m.CreatedAt, err = decodeTime("member", "created_at", createdAt); err != nil {
		return core.Member{}, err
	}
	m.Tither = tither != 0
	m.Baptized = baptized != 0
	return m, nil
}

func decodeTime(entity, field, raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, &core.SchemaError{Entity: entity, Field: field, Reason: "bad timestamp " + raw}
	}
	return t, nil
}
