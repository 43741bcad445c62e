package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/studymate/studymate/internal/domain"
	"github.com/studymate/studymate/internal/service"
	"github.com/studymate/studymate/pkg/httpx"
	"github.com/studymate/studymate/pkg/slogx"
)

// ChatsHandler serves the /api/chats endpoints. All mandatory auth.
type ChatsHandler struct {
	ChatService *service.ChatService
}

type createChatRequest struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"member_ids"`
}

// HandleCreate serves POST /api/chats. The principal becomes a member of the
// new chat along with everyone in member_ids.
func (h *ChatsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	u, ok := PrincipalFromContext(ctx)
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req createChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	c, err := h.ChatService.CreateChat(ctx, req.Name, u.ID, req.MemberIDs)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "unknown member id")
			return
		}
		slogx.FromContext(ctx).Error("chat create failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, c)
}

// HandleList serves GET /api/chats: the chats the principal belongs to.
func (h *ChatsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	u, ok := PrincipalFromContext(ctx)
	if !ok {
		writeUnauthorized(w)
		return
	}

	chats, err := h.ChatService.ListUserChats(ctx, u.ID)
	if err != nil {
		slogx.FromContext(ctx).Error("chat list failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal server error")
		return
	}
	if chats == nil {
		chats = []domain.Chat{}
	}

	httpx.WriteJSON(w, http.StatusOK, chats)
}

// HandleMessages serves GET /api/chats/{id}/messages. Members only.
func (h *ChatsHandler) HandleMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	u, ok := PrincipalFromContext(ctx)
	if !ok {
		writeUnauthorized(w)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	msgs, err := h.ChatService.ListMessages(ctx, r.PathValue("id"), u.ID, limit, offset)
	if err != nil {
		if errors.Is(err, service.ErrNotChatMember) {
			httpx.WriteError(w, http.StatusForbidden, "forbidden", "not a member of this chat")
			return
		}
		slogx.FromContext(ctx).Error("chat messages failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal server error")
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}

	httpx.WriteJSON(w, http.StatusOK, msgs)
}
