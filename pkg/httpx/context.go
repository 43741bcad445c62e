package httpx

import "context"

type ctxKey string

// CtxKeyUserID holds the authenticated principal id (string form) when a
// request passed the access gate. Rate limiting keys off it; richer principal
// data lives in the transport layer's own context.
const CtxKeyUserID ctxKey = "user_id"

// UserIDFromContext returns the authenticated principal id, or "" for
// anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}
