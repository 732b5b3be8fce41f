package auth

import "context"

// Session identifies the authenticated principal and the tenant whose
// data partition every ledger call is scoped to. The ledger refuses
// mutating calls without one; it does not itself verify that the
// principal is authorized for the tenant (backend access rules do).
type Session struct {
	TenantID string
	Subject  string
}

func (s Session) Authenticated() bool {
	return s.TenantID != ""
}

type contextKey struct{}

// WithSession returns a context carrying the session.
func WithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

// SessionFromContext returns the session placed by the middleware, or
// a zero (unauthenticated) session.
func SessionFromContext(ctx context.Context) Session {
	sess, _ := ctx.Value(contextKey{}).(Session)
	return sess
}
