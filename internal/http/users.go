package http

import (
	"errors"
	"net/http"

	"github.com/studymate/studymate/internal/service"
	"github.com/studymate/studymate/pkg/httpx"
	"github.com/studymate/studymate/pkg/slogx"
)

// UsersHandler serves the /api/users endpoints.
type UsersHandler struct {
	UserService *service.UserService
}

// HandleMe serves GET /api/users/me. Sits behind RequireAuth, so the
// principal is always present.
func (h *UsersHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	u, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"id":       u.ID,
		"username": u.Username,
		"email":    u.Email,
		"name":     u.Name,
	})
}

// HandleGet serves GET /api/users/{id}. Public: only the summary is exposed.
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	u, err := h.UserService.GetUserByID(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "user not found")
			return
		}
		slogx.FromContext(ctx).Error("user lookup failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, u.Summary())
}
