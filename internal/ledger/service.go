// Package ledger implements the transaction store: tenant-scoped CRUD
// over entries and expenses, with the tithe sub-ledger kept consistent
// inside the same atomic batch as the transaction write.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tesouraria/internal/amqp"
	"tesouraria/internal/auth"
	"tesouraria/internal/core"
	"tesouraria/internal/storage"

	"github.com/google/uuid"
)

// MemberResolver looks up the display name cached on tithe entries.
type MemberResolver interface {
	MemberName(ctx context.Context, tenantID, memberID string) (string, error)
}

type (
	EntryDraft struct {
		Amount         core.Money
		OccurredAt     core.Date
		Description    string
		Category       string
		MemberID       string
		PaymentMethod  string
		IdempotencyKey string
	}

	ExpenseDraft struct {
		Amount         core.Money
		OccurredAt     core.Date
		Description    string
		Category       string
		MainCategory   string
		SubCategory    string
		IdempotencyKey string
	}

	// EntryPatch carries the version the caller read; a stale version
	// is rejected with core.ErrConflict. Nil fields stay unchanged.
	EntryPatch struct {
		Version       int64
		Amount        *core.Money
		OccurredAt    *core.Date
		Description   *string
		Category      *string
		MemberID      *string
		PaymentMethod *string
	}

	ExpensePatch struct {
		Version      int64
		Amount       *core.Money
		OccurredAt   *core.Date
		Description  *string
		Category     *string
		MainCategory *string
		SubCategory  *string
	}
)

// Service orchestrates ledger operations across SQLite, the member
// directory and the change-event bus.
type Service struct {
	repo    *storage.Repository
	members MemberResolver
	bus     *amqp.Client
	hub     *Hub
}

func NewService(repo *storage.Repository, members MemberResolver, bus *amqp.Client) *Service {
	return &Service{
		repo:    repo,
		members: members,
		bus:     bus,
		hub:     NewHub(),
	}
}

// AddEntry normalizes, persists and, for tithe entries with a member,
// writes the sub-ledger record in the same batch. With an idempotency
// key, a repeated call returns the already-created transaction id
// instead of duplicating it.
func (s *Service) AddEntry(ctx context.Context, sess auth.Session, draft EntryDraft) (string, error) {
	if !sess.Authenticated() {
		return "", core.ErrUnauthenticated
	}

	now := time.Now().UTC()
	t := core.Transaction{
		ID:             uuid.NewString(),
		TenantID:       sess.TenantID,
		Tipo:           core.Entrada,
		Amount:         draft.Amount,
		OccurredAt:     draft.OccurredAt,
		Description:    draft.Description,
		Settled:        true,
		Category:       core.Normalize(draft.Category),
		MemberID:       draft.MemberID,
		PaymentMethod:  core.Normalize(draft.PaymentMethod),
		Version:        1,
		IdempotencyKey: draft.IdempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := t.Validate(); err != nil {
		return "", err
	}
	if t.MemberID != "" {
		t.MemberName = s.resolveMemberName(ctx, sess.TenantID, t.MemberID)
	}

	id := t.ID
	created := true
	err := s.repo.InTx(ctx, func(q storage.DBTX) error {
		if t.IdempotencyKey != "" {
			existing, err := s.repo.FindTransactionByIdempotencyKey(ctx, q, t.TenantID, t.IdempotencyKey)
			if err == nil {
				id = existing.ID
				created = false
				return nil
			}
			if !errors.Is(err, core.ErrNotFound) {
				return err
			}
		}
		if err := s.repo.InsertTransaction(ctx, q, t); err != nil {
			return err
		}
		if t.IsTitheWithMember() {
			rec := t.TitheRecord()
			rec.ID = uuid.NewString()
			if err := s.repo.InsertTitheRecord(ctx, q, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if created {
		slog.InfoContext(ctx, "Entry created",
			"tenant_id", t.TenantID,
			"transaction_id", id,
			"category", t.Category,
			"amount_cents", t.Amount.Cents,
			"tithe", t.IsTitheWithMember())
		s.notify(ctx, sess.TenantID, id, amqp.OpCreated, t.Version)
	} else {
		slog.InfoContext(ctx, "Entry create deduplicated by idempotency key",
			"tenant_id", t.TenantID,
			"transaction_id", id)
	}
	return id, nil
}

// AddExpense normalizes and persists an expense. No sub-ledger
// interaction.
func (s *Service) AddExpense(ctx context.Context, sess auth.Session, draft ExpenseDraft) (string, error) {
	if !sess.Authenticated() {
		return "", core.ErrUnauthenticated
	}

	now := time.Now().UTC()
	t := core.Transaction{
		ID:             uuid.NewString(),
		TenantID:       sess.TenantID,
		Tipo:           core.Saida,
		Amount:         draft.Amount,
		OccurredAt:     draft.OccurredAt,
		Description:    draft.Description,
		Settled:        true,
		Category:       core.Normalize(draft.Category),
		MainCategory:   core.Normalize(draft.MainCategory),
		SubCategory:    core.Normalize(draft.SubCategory),
		Version:        1,
		IdempotencyKey: draft.IdempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if t.SubCategory == "" {
		t.SubCategory = t.Category
	}
	if err := t.Validate(); err != nil {
		return "", err
	}

	id := t.ID
	created := true
	err := s.repo.InTx(ctx, func(q storage.DBTX) error {
		if t.IdempotencyKey != "" {
			existing, err := s.repo.FindTransactionByIdempotencyKey(ctx, q, t.TenantID, t.IdempotencyKey)
			if err == nil {
				id = existing.ID
				created = false
				return nil
			}
			if !errors.Is(err, core.ErrNotFound) {
				return err
			}
		}
		return s.repo.InsertTransaction(ctx, q, t)
	})
	if err != nil {
		return "", err
	}

	if created {
		slog.InfoContext(ctx, "Expense created",
			"tenant_id", t.TenantID,
			"transaction_id", id,
			"category", t.Category,
			"amount_cents", t.Amount.Cents)
		s.notify(ctx, sess.TenantID, id, amqp.OpCreated, t.Version)
	}
	return id, nil
}

// UpdateEntry applies the patch and recomputes sub-ledger membership.
// The transaction write and every sub-ledger write happen in one
// batch; a reader never sees a tithe entry without its record.
func (s *Service) UpdateEntry(ctx context.Context, sess auth.Session, id string, patch EntryPatch) error {
	if !sess.Authenticated() {
		return core.ErrUnauthenticated
	}

	// Resolve the new member's display name before the batch opens.
	newMemberName := ""
	if patch.MemberID != nil && *patch.MemberID != "" {
		newMemberName = s.resolveMemberName(ctx, sess.TenantID, *patch.MemberID)
	}

	var updated core.Transaction
	err := s.repo.InTx(ctx, func(q storage.DBTX) error {
		stored, err := s.repo.GetTransaction(ctx, q, sess.TenantID, id)
		if err != nil {
			return err
		}
		if stored.Tipo != core.Entrada {
			return core.ErrInvalidState
		}
		if patch.Version != stored.Version {
			return core.ErrConflict
		}

		updated = stored
		if patch.Amount != nil {
			updated.Amount = *patch.Amount
		}
		if patch.OccurredAt != nil {
			updated.OccurredAt = *patch.OccurredAt
		}
		if patch.Description != nil {
			updated.Description = *patch.Description
		}
		if patch.Category != nil {
			updated.Category = core.Normalize(*patch.Category)
		}
		if patch.PaymentMethod != nil {
			updated.PaymentMethod = core.Normalize(*patch.PaymentMethod)
		}
		if patch.MemberID != nil && *patch.MemberID != stored.MemberID {
			updated.MemberID = *patch.MemberID
			updated.MemberName = newMemberName
		}
		updated.Version = stored.Version + 1
		updated.UpdatedAt = time.Now().UTC()
		if err := updated.Validate(); err != nil {
			return err
		}

		plan := PlanTitheTransition(stored, updated)
		if err := s.applyTithePlan(ctx, q, plan, stored, updated); err != nil {
			return err
		}
		return s.repo.UpdateTransaction(ctx, q, updated, stored.Version)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Entry updated",
		"tenant_id", sess.TenantID,
		"transaction_id", id,
		"version", updated.Version)
	s.notify(ctx, sess.TenantID, id, amqp.OpUpdated, updated.Version)
	return nil
}

// UpdateExpense applies the patch to a stored expense.
func (s *Service) UpdateExpense(ctx context.Context, sess auth.Session, id string, patch ExpensePatch) error {
	if !sess.Authenticated() {
		return core.ErrUnauthenticated
	}

	var updated core.Transaction
	err := s.repo.InTx(ctx, func(q storage.DBTX) error {
		stored, err := s.repo.GetTransaction(ctx, q, sess.TenantID, id)
		if err != nil {
			return err
		}
		if stored.Tipo != core.Saida {
			return core.ErrInvalidState
		}
		if patch.Version != stored.Version {
			return core.ErrConflict
		}

		updated = stored
		if patch.Amount != nil {
			updated.Amount = *patch.Amount
		}
		if patch.OccurredAt != nil {
			updated.OccurredAt = *patch.OccurredAt
		}
		if patch.Description != nil {
			updated.Description = *patch.Description
		}
		if patch.Category != nil {
			updated.Category = core.Normalize(*patch.Category)
		}
		if patch.MainCategory != nil {
			updated.MainCategory = core.Normalize(*patch.MainCategory)
		}
		if patch.SubCategory != nil {
			updated.SubCategory = core.Normalize(*patch.SubCategory)
		}
		updated.Version = stored.Version + 1
		updated.UpdatedAt = time.Now().UTC()
		if err := updated.Validate(); err != nil {
			return err
		}
		return s.repo.UpdateTransaction(ctx, q, updated, stored.Version)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Expense updated",
		"tenant_id", sess.TenantID,
		"transaction_id", id,
		"version", updated.Version)
	s.notify(ctx, sess.TenantID, id, amqp.OpUpdated, updated.Version)
	return nil
}

// DeleteEntry removes the transaction and, for tithe entries with a
// member, the matching sub-ledger record in the same batch.
func (s *Service) DeleteEntry(ctx context.Context, sess auth.Session, id string) error {
	if !sess.Authenticated() {
		return core.ErrUnauthenticated
	}

	err := s.repo.InTx(ctx, func(q storage.DBTX) error {
		stored, err := s.repo.GetTransaction(ctx, q, sess.TenantID, id)
		if err != nil {
			return err
		}
		if stored.Tipo != core.Entrada {
			return core.ErrInvalidState
		}
		if stored.IsTitheWithMember() {
			if err := s.repo.DeleteTitheRecordByTransaction(ctx, q, sess.TenantID, id); err != nil {
				return err
			}
		}
		return s.repo.DeleteTransaction(ctx, q, sess.TenantID, id)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Entry deleted", "tenant_id", sess.TenantID, "transaction_id", id)
	s.notify(ctx, sess.TenantID, id, amqp.OpDeleted, 0)
	return nil
}

func (s *Service) DeleteExpense(ctx context.Context, sess auth.Session, id string) error {
	if !sess.Authenticated() {
		return core.ErrUnauthenticated
	}

	err := s.repo.InTx(ctx, func(q storage.DBTX) error {
		stored, err := s.repo.GetTransaction(ctx, q, sess.TenantID, id)
		if err != nil {
			return err
		}
		if stored.Tipo != core.Saida {
			return core.ErrInvalidState
		}
		return s.repo.DeleteTransaction(ctx, q, sess.TenantID, id)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Expense deleted", "tenant_id", sess.TenantID, "transaction_id", id)
	s.notify(ctx, sess.TenantID, id, amqp.OpDeleted, 0)
	return nil
}

// ListByPeriod returns the tenant's transactions for one calendar
// month, newest first.
func (s *Service) ListByPeriod(ctx context.Context, sess auth.Session, year, month int) ([]core.Transaction, error) {
	if !sess.Authenticated() {
		return nil, core.ErrUnauthenticated
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	return s.repo.ListTransactionsByPeriod(ctx, s.repo.DB(), sess.TenantID, from, to)
}

// ListAll returns the tenant's full transaction history, newest first.
func (s *Service) ListAll(ctx context.Context, sess auth.Session) ([]core.Transaction, error) {
	if !sess.Authenticated() {
		return nil, core.ErrUnauthenticated
	}
	return s.repo.ListTransactions(ctx, s.repo.DB(), sess.TenantID)
}

// MonthBalances combines the period listing with the balance
// computation for the dashboard.
func (s *Service) MonthBalances(ctx context.Context, sess auth.Session, year, month int) (core.Balances, []core.Transaction, error) {
	period, err := s.ListByPeriod(ctx, sess, year, month)
	if err != nil {
		return core.Balances{}, nil, err
	}
	all, err := s.ListAll(ctx, sess)
	if err != nil {
		return core.Balances{}, nil, err
	}
	return core.ComputeBalances(period, all), period, nil
}

// Subscribe registers a live feed for the session's tenant. Snapshots
// arrive after every local or remote change until the returned
// unsubscribe function is called.
func (s *Service) Subscribe(sess auth.Session, fn Snapshot) (func(), error) {
	if !sess.Authenticated() {
		return nil, core.ErrUnauthenticated
	}
	return s.hub.Subscribe(sess.TenantID, fn), nil
}

// HandleRemoteChange refreshes local subscribers after a change event
// published by another session arrived over the bus.
func (s *Service) HandleRemoteChange(ctx context.Context, msg *amqp.TransactionChanged) error {
	s.broadcast(ctx, msg.TenantID)
	return nil
}

func (s *Service) applyTithePlan(ctx context.Context, q storage.DBTX, plan TithePlan, before, after core.Transaction) error {
	if plan.IsNoop() {
		return nil
	}
	if plan.DeleteOld {
		if err := s.repo.DeleteTitheRecordByTransaction(ctx, q, before.TenantID, before.ID); err != nil {
			return err
		}
	}
	if plan.Create {
		rec := after.TitheRecord()
		rec.ID = uuid.NewString()
		return s.repo.InsertTitheRecord(ctx, q, rec)
	}
	if plan.UpdateInPlace {
		return s.repo.UpdateTitheRecordByTransaction(ctx, q, after.TitheRecord())
	}
	return nil
}

// resolveMemberName is best effort: a member that cannot be found
// leaves the cache empty and the write proceeds. Ledger writes do not
// enforce referential integrity against the member directory.
func (s *Service) resolveMemberName(ctx context.Context, tenantID, memberID string) string {
	if s.members == nil {
		return ""
	}
	name, err := s.members.MemberName(ctx, tenantID, memberID)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			slog.WarnContext(ctx, "Member name lookup failed",
				"tenant_id", tenantID, "member_id", memberID, "error", err)
		}
		return ""
	}
	return name
}

func (s *Service) notify(ctx context.Context, tenantID, transactionID, op string, version int64) {
	s.broadcast(ctx, tenantID)

	if s.bus == nil {
		return
	}
	msg := amqp.NewTransactionChanged(tenantID, transactionID, op, version)
	if err := s.bus.PublishTransactionChanged(ctx, msg); err != nil {
		// The transaction is committed; losing the event only delays
		// remote feeds and the report export backlog.
		slog.ErrorContext(ctx, "Failed to publish change event",
			"tenant_id", tenantID, "transaction_id", transactionID, "op", op, "error", err)
	}
}

func (s *Service) broadcast(ctx context.Context, tenantID string) {
	if !s.hub.HasSubscribers(tenantID) {
		return
	}
	snapshot, err := s.repo.ListTransactions(ctx, s.repo.DB(), tenantID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load feed snapshot", "tenant_id", tenantID, "error", err)
		return
	}
	s.hub.Broadcast(tenantID, snapshot)
}

// Close releases the repository and bus connections.
func (s *Service) Close() error {
	var errs []error
	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.bus != nil {
		if err := s.bus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}
	return nil
}
