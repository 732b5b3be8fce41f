// Package http exposes the ledger as a JSON API. Everything under
// /api requires a bearer-token tenant session; the session's tenant
// scopes every call.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"tesouraria/internal/auth"
	"tesouraria/internal/core"
	"tesouraria/internal/ledger"
	"tesouraria/internal/members"
)

type Server struct {
	svc *ledger.Service
	dir members.Directory
}

// NewServer wires routes and middleware and returns the configured
// http.Server for the caller to run.
func NewServer(addr string, svc *ledger.Service, dir members.Directory, tokens *auth.TokenService) *http.Server {
	s := &Server{svc: svc, dir: dir}

	api := http.NewServeMux()
	api.HandleFunc("POST /api/entries", s.handleCreateEntry)
	api.HandleFunc("PATCH /api/entries/{id}", s.handleUpdateEntry)
	api.HandleFunc("DELETE /api/entries/{id}", s.handleDeleteEntry)
	api.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	api.HandleFunc("PATCH /api/expenses/{id}", s.handleUpdateExpense)
	api.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)
	api.HandleFunc("GET /api/transactions", s.handleListTransactions)
	api.HandleFunc("GET /api/dashboard", s.handleDashboard)
	api.HandleFunc("GET /api/feed", s.handleFeed)
	api.HandleFunc("POST /api/members", s.handleCreateMember)
	api.HandleFunc("GET /api/members/tithers", s.handleListTithers)
	api.HandleFunc("GET /api/members/{id}", s.handleGetMember)

	mux := http.NewServeMux()
	mux.Handle("/api/", auth.Middleware(tokens)(api))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return &http.Server{
		Addr:    addr,
		Handler: TraceMiddleware(mux),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps the ledger error taxonomy onto status codes. The
// body carries only the message text; kinds are not distinguished
// further for clients.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	var schemaErr *core.SchemaError
	switch {
	case errors.Is(err, core.ErrUnauthenticated):
		status, msg = http.StatusUnauthorized, err.Error()
	case errors.Is(err, core.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, core.ErrConflict), errors.Is(err, core.ErrInvalidState):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidTipo),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrEmptyPaymentMethod),
		errors.Is(err, core.ErrMissingMember),
		errors.Is(err, core.ErrEmptyMemberName),
		errors.Is(err, core.ErrDescriptionTooLong):
		status, msg = http.StatusUnprocessableEntity, err.Error()
	case errors.As(err, &schemaErr):
		slog.ErrorContext(r.Context(), "Schema error",
			"request_id", RequestID(r.Context()), "error", err)
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"request_id", RequestID(r.Context()), "error", err, "path", r.URL.Path)
	}

	writeJSON(w, status, errorResponse{Error: msg})
}
