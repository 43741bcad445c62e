package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/studymate/studymate/internal/chat"
	"github.com/studymate/studymate/internal/service"
	"github.com/studymate/studymate/pkg/httpx"
	"github.com/studymate/studymate/pkg/slogx"
)

// WebsocketHandler serves GET /ws. Browsers cannot set an Authorization
// header on a websocket handshake, so the access token travels in the
// `token` query parameter. The policy is mandatory: the gate runs before the
// upgrade and there is no anonymous session.
type WebsocketHandler struct {
	Gate        *service.AccessGate
	ChatService *service.ChatService
	Registry    *chat.Registry

	upgrader websocket.Upgrader
}

type inboundMessage struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type wsError struct {
	Error string `json:"error"`
}

func (h *WebsocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	token := r.URL.Query().Get("token")
	if token == "" {
		writeUnauthorized(w)
		return
	}

	u, err := h.Gate.Authenticate(ctx, token)
	if err != nil {
		if errors.Is(err, service.ErrTokenRevoked) {
			writeUnauthorized(w)
			return
		}
		log.Error("access gate unavailable", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal server error")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the handshake failure response.
		log.Debug("websocket upgrade failed", "error", err)
		return
	}

	h.Registry.Add(u.ID, conn)
	defer func() {
		h.Registry.Remove(u.ID, conn)
		_ = conn.Close()
	}()

	log.Info("websocket session opened", slog.String("user_id", u.ID))

	for {
		var in inboundMessage
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("websocket read failed", "error", err)
			}
			return
		}

		if _, err := h.ChatService.SendMessage(ctx, in.ChatID, u.ID, in.Text); err != nil {
			// Error replies go through the registry too: fan-out writes from
			// other senders share this connection, so every write must take
			// the same per-connection lock.
			switch {
			case errors.Is(err, service.ErrNotChatMember):
				_, _ = h.Registry.Send(u.ID, wsError{Error: "not_chat_member"})
			case errors.Is(err, service.ErrEmptyMessage):
				_, _ = h.Registry.Send(u.ID, wsError{Error: "empty_message"})
			default:
				log.Error("chat message failed", "error", err)
				_, _ = h.Registry.Send(u.ID, wsError{Error: "server_error"})
			}
		}
	}
}
