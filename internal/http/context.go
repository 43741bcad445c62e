package http

import (
	"context"

	"github.com/studymate/studymate/internal/domain"
)

type ctxKey int

const ctxKeyPrincipal ctxKey = iota

// withPrincipal returns a context carrying the authenticated user.
func withPrincipal(ctx context.Context, u domain.User) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal, u)
}

// PrincipalFromContext returns the authenticated user for this request.
// ok is false for anonymous requests.
func PrincipalFromContext(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(ctxKeyPrincipal).(domain.User)
	return u, ok
}
