package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/studymate/studymate/internal/domain"
	"github.com/studymate/studymate/internal/service"
	"github.com/studymate/studymate/internal/store"
	"github.com/studymate/studymate/pkg/httpx"
	"github.com/studymate/studymate/pkg/slogx"
)

// AnnouncementsHandler serves the /api/announcements endpoints. The read
// endpoints sit behind the opportunistic gate: anonymous callers get the
// plain listing, authenticated callers additionally see which entries they
// own.
type AnnouncementsHandler struct {
	AnnouncementService *service.AnnouncementService
}

type announcementResponse struct {
	domain.Announcement
	Owned bool `json:"owned"`
}

func newAnnouncementResponse(a domain.Announcement, principalID string) announcementResponse {
	return announcementResponse{
		Announcement: a,
		Owned:        principalID != "" && a.OwnerID == principalID,
	}
}

// HandleList serves GET /api/announcements.
func (h *AnnouncementsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	list, err := h.AnnouncementService.List(ctx, limit, offset)
	if err != nil {
		slogx.FromContext(ctx).Error("announcement list failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal server error")
		return
	}

	var principalID string
	if u, ok := PrincipalFromContext(ctx); ok {
		principalID = u.ID
	}

	out := make([]announcementResponse, 0, len(list))
	for _, a := range list {
		out = append(out, newAnnouncementResponse(a, principalID))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleGet serves GET /api/announcements/{id}.
func (h *AnnouncementsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	a, err := h.AnnouncementService.Get(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "announcement not found")
			return
		}
		slogx.FromContext(ctx).Error("announcement lookup failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal server error")
		return
	}

	var principalID string
	if u, ok := PrincipalFromContext(ctx); ok {
		principalID = u.ID
	}
	httpx.WriteJSON(w, http.StatusOK, newAnnouncementResponse(a, principalID))
}

type createAnnouncementRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// HandleCreate serves POST /api/announcements. Mandatory auth.
func (h *AnnouncementsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	u, ok := PrincipalFromContext(ctx)
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req createAnnouncementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "title is required")
		return
	}

	a, err := h.AnnouncementService.Create(ctx, service.CreateAnnouncementParams{
		OwnerID:     u.ID,
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		slogx.FromContext(ctx).Error("announcement create failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, newAnnouncementResponse(a, u.ID))
}

// HandleDelete serves DELETE /api/announcements/{id}. Owner only.
func (h *AnnouncementsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	u, ok := PrincipalFromContext(ctx)
	if !ok {
		writeUnauthorized(w)
		return
	}

	err := h.AnnouncementService.Delete(ctx, r.PathValue("id"), u.ID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			httpx.WriteError(w, http.StatusNotFound, "not_found", "announcement not found")
		case errors.Is(err, service.ErrNotOwner):
			httpx.WriteError(w, http.StatusForbidden, "forbidden", "only the owner can delete an announcement")
		default:
			slogx.FromContext(ctx).Error("announcement delete failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal server error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
