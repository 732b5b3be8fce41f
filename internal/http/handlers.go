package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"tesouraria/internal/auth"
	"tesouraria/internal/core"
	"tesouraria/internal/ledger"
)

type (
	entryRequest struct {
		Amount         string `json:"amount"`
		OccurredAt     string `json:"occurred_at"`
		Description    string `json:"description"`
		Category       string `json:"category"`
		MemberID       string `json:"member_id"`
		PaymentMethod  string `json:"payment_method"`
		IdempotencyKey string `json:"idempotency_key"`
	}

	expenseRequest struct {
		Amount         string `json:"amount"`
		OccurredAt     string `json:"occurred_at"`
		Description    string `json:"description"`
		Category       string `json:"category"`
		MainCategory   string `json:"main_category"`
		SubCategory    string `json:"sub_category"`
		IdempotencyKey string `json:"idempotency_key"`
	}

	entryPatchRequest struct {
		Version       int64   `json:"version"`
		Amount        *string `json:"amount"`
		OccurredAt    *string `json:"occurred_at"`
		Description   *string `json:"description"`
		Category      *string `json:"category"`
		MemberID      *string `json:"member_id"`
		PaymentMethod *string `json:"payment_method"`
	}

	expensePatchRequest struct {
		Version      int64   `json:"version"`
		Amount       *string `json:"amount"`
		OccurredAt   *string `json:"occurred_at"`
		Description  *string `json:"description"`
		Category     *string `json:"category"`
		MainCategory *string `json:"main_category"`
		SubCategory  *string `json:"sub_category"`
	}

	transactionResponse struct {
		ID            string  `json:"id"`
		Tipo          string  `json:"tipo"`
		AmountCents   int64   `json:"amount_cents"`
		Amount        float64 `json:"amount"`
		OccurredAt    string  `json:"occurred_at"`
		Description   string  `json:"description,omitempty"`
		Settled       bool    `json:"settled"`
		Category      string  `json:"category"`
		MemberID      string  `json:"member_id,omitempty"`
		MemberName    string  `json:"member_name,omitempty"`
		PaymentMethod string  `json:"payment_method,omitempty"`
		MainCategory  string  `json:"main_category,omitempty"`
		SubCategory   string  `json:"sub_category,omitempty"`
		Version       int64   `json:"version"`
	}

	balancesResponse struct {
		PeriodIncomeCents     int64           `json:"period_income_cents"`
		PeriodExpenseCents    int64           `json:"period_expense_cents"`
		PeriodNetCents        int64           `json:"period_net_cents"`
		AggregateBalanceCents int64           `json:"aggregate_balance_cents"`
		IncomeDistribution    []shareResponse `json:"income_distribution"`
	}

	shareResponse struct {
		Category    string `json:"category"`
		AmountCents int64  `json:"amount_cents"`
		Percent     int    `json:"percent"`
	}

	memberRequest struct {
		Name     string `json:"name"`
		Tither   bool   `json:"tither"`
		Baptized bool   `json:"baptized"`
	}

	memberResponse struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Tither   bool   `json:"tither"`
		Baptized bool   `json:"baptized"`
	}
)

const dateLayout = "2006-01-02"

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:            t.ID,
		Tipo:          string(t.Tipo),
		AmountCents:   t.Amount.Cents,
		Amount:        t.Amount.Reais(),
		OccurredAt:    t.OccurredAt.Format(dateLayout),
		Description:   t.Description,
		Settled:       t.Settled,
		Category:      t.Category,
		MemberID:      t.MemberID,
		MemberName:    t.MemberName,
		PaymentMethod: t.PaymentMethod,
		MainCategory:  t.MainCategory,
		SubCategory:   t.SubCategory,
		Version:       t.Version,
	}
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func parseAmount(s string) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}

func parseDate(s string) (core.Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return core.Date{}, core.ErrInvalidDate
	}
	return core.Date{Time: t}, nil
}

// parsePeriod reads year/month query params, defaulting to the current
// month.
func parsePeriod(r *http.Request) (int, int, error) {
	now := time.Now()
	year, month := now.Year(), int(now.Month())

	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, core.ErrInvalidDate
		}
		year = y
	}
	if v := r.URL.Query().Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return 0, 0, core.ErrInvalidDate
		}
		month = m
	}
	return year, month, nil
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	occurredAt, err := parseDate(req.OccurredAt)
	if err != nil {
		writeError(w, r, err)
		return
	}

	sess := auth.SessionFromContext(r.Context())
	id, err := s.svc.AddEntry(r.Context(), sess, ledger.EntryDraft{
		Amount:         amount,
		OccurredAt:     occurredAt,
		Description:    req.Description,
		Category:       req.Category,
		MemberID:       req.MemberID,
		PaymentMethod:  req.PaymentMethod,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	occurredAt, err := parseDate(req.OccurredAt)
	if err != nil {
		writeError(w, r, err)
		return
	}

	sess := auth.SessionFromContext(r.Context())
	id, err := s.svc.AddExpense(r.Context(), sess, ledger.ExpenseDraft{
		Amount:         amount,
		OccurredAt:     occurredAt,
		Description:    req.Description,
		Category:       req.Category,
		MainCategory:   req.MainCategory,
		SubCategory:    req.SubCategory,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	var req entryPatchRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	patch := ledger.EntryPatch{
		Version:       req.Version,
		Description:   req.Description,
		Category:      req.Category,
		MemberID:      req.MemberID,
		PaymentMethod: req.PaymentMethod,
	}
	if req.Amount != nil {
		amount, err := parseAmount(*req.Amount)
		if err != nil {
			writeError(w, r, err)
			return
		}
		patch.Amount = &amount
	}
	if req.OccurredAt != nil {
		occurredAt, err := parseDate(*req.OccurredAt)
		if err != nil {
			writeError(w, r, err)
			return
		}
		patch.OccurredAt = &occurredAt
	}

	sess := auth.SessionFromContext(r.Context())
	if err := s.svc.UpdateEntry(r.Context(), sess, r.PathValue("id"), patch); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req expensePatchRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	patch := ledger.ExpensePatch{
		Version:      req.Version,
		Description:  req.Description,
		Category:     req.Category,
		MainCategory: req.MainCategory,
		SubCategory:  req.SubCategory,
	}
	if req.Amount != nil {
		amount, err := parseAmount(*req.Amount)
		if err != nil {
			writeError(w, r, err)
			return
		}
		patch.Amount = &amount
	}
	if req.OccurredAt != nil {
		occurredAt, err := parseDate(*req.OccurredAt)
		if err != nil {
			writeError(w, r, err)
			return
		}
		patch.OccurredAt = &occurredAt
	}

	sess := auth.SessionFromContext(r.Context())
	if err := s.svc.UpdateExpense(r.Context(), sess, r.PathValue("id"), patch); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	if err := s.svc.DeleteEntry(r.Context(), sess, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	if err := s.svc.DeleteExpense(r.Context(), sess, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	year, month, err := parsePeriod(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	sess := auth.SessionFromContext(r.Context())
	txs, err := s.svc.ListByPeriod(r.Context(), sess, year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		resp = append(resp, toTransactionResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	year, month, err := parsePeriod(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	sess := auth.SessionFromContext(r.Context())
	balances, _, err := s.svc.MonthBalances(r.Context(), sess, year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := balancesResponse{
		PeriodIncomeCents:     balances.PeriodIncome.Cents,
		PeriodExpenseCents:    balances.PeriodExpense.Cents,
		PeriodNetCents:        balances.PeriodNet.Cents,
		AggregateBalanceCents: balances.AggregateBalance.Cents,
		IncomeDistribution:    make([]shareResponse, 0, len(balances.IncomeDistribution)),
	}
	for _, share := range balances.IncomeDistribution {
		resp.IncomeDistribution = append(resp.IncomeDistribution, shareResponse{
			Category:    share.Category,
			AmountCents: share.Amount.Cents,
			Percent:     share.Percent,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleFeed streams the live transaction feed as server-sent events.
// Each event is the tenant's full transaction set after a change.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming unsupported"})
		return
	}

	sess := auth.SessionFromContext(r.Context())
	snapshots := make(chan []core.Transaction, 1)
	unsubscribe, err := s.svc.Subscribe(sess, func(txs []core.Transaction) {
		select {
		case snapshots <- txs:
		default:
			// Drop intermediate snapshots; the next one supersedes them.
		}
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	// Initial snapshot so clients do not wait for the first change.
	initial, err := s.svc.ListAll(r.Context(), sess)
	if err == nil {
		writeFeedEvent(w, initial)
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case txs := <-snapshots:
			writeFeedEvent(w, txs)
			flusher.Flush()
		}
	}
}

func writeFeedEvent(w http.ResponseWriter, txs []core.Transaction) {
	resp := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		resp = append(resp, toTransactionResponse(t))
	}
	body, err := json.Marshal(resp)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", body)
}

func (s *Server) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	sess := auth.SessionFromContext(r.Context())
	id, err := s.dir.CreateMember(r.Context(), sess.TenantID, core.Member{
		Name:     req.Name,
		Tither:   req.Tither,
		Baptized: req.Baptized,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleGetMember(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	m, err := s.dir.GetMemberByID(r.Context(), sess.TenantID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, memberResponse{ID: m.ID, Name: m.Name, Tither: m.Tither, Baptized: m.Baptized})
}

func (s *Server) handleListTithers(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	ms, err := s.dir.ListTithers(r.Context(), sess.TenantID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]memberResponse, 0, len(ms))
	for _, m := range ms {
		resp = append(resp, memberResponse{ID: m.ID, Name: m.Name, Tither: m.Tither, Baptized: m.Baptized})
	}
	writeJSON(w, http.StatusOK, resp)
}
