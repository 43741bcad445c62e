package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/studymate/studymate/internal/service"
	"github.com/studymate/studymate/pkg/httpx"
	"github.com/studymate/studymate/pkg/slogx"
)

// bearerToken extracts the token from the Authorization header.
// Returns "" when the header is absent or not a Bearer scheme.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// resolvePrincipal runs the gate and classifies the outcome: a live principal,
// a clean rejection, or an infrastructure fault.
func resolvePrincipal(ctx context.Context, gate *service.AccessGate, token string) (context.Context, bool, error) {
	u, err := gate.Authenticate(ctx, token)
	if err != nil {
		if errors.Is(err, service.ErrTokenRevoked) {
			return ctx, false, nil
		}
		return ctx, false, err
	}

	ctx = withPrincipal(ctx, u)
	ctx = context.WithValue(ctx, httpx.CtxKeyUserID, u.ID)
	return ctx, true, nil
}

// Authenticate is the opportunistic policy: a valid token attaches the
// principal, anything else (absent, malformed, expired, revoked) lets the
// request through anonymously. Only a gate infrastructure fault stops the
// request, because "couldn't check" must never be read as "checked, nobody".
func Authenticate(gate *service.AccessGate) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx, ok, err := resolvePrincipal(r.Context(), gate, token)
			if err != nil {
				slogx.FromContext(r.Context()).Error("access gate unavailable", "error", err)
				httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal server error")
				return
			}
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth is the mandatory policy: every rejection collapses into the
// same 401 so a probing client learns nothing about which check failed.
func RequireAuth(gate *service.AccessGate) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeUnauthorized(w)
				return
			}

			ctx, ok, err := resolvePrincipal(r.Context(), gate, token)
			if err != nil {
				slogx.FromContext(r.Context()).Error("access gate unavailable", "error", err)
				httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal server error")
				return
			}
			if !ok {
				writeUnauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="studymate"`)
	httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "authentication required")
}
