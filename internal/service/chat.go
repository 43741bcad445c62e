package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/studymate/studymate/internal/chat"
	"github.com/studymate/studymate/internal/domain"
	"github.com/studymate/studymate/internal/store"
	"github.com/studymate/studymate/pkg/idx"
	"github.com/studymate/studymate/pkg/slogx"
)

var ErrEmptyMessage = errors.New("empty_message")

type ChatService struct {
	Store    store.Store
	Registry *chat.Registry
}

// CreateChat creates a chat containing the creator and the listed members.
// The creator is always a member, listed or not.
func (s *ChatService) CreateChat(ctx context.Context, name, creatorID string, memberIDs []string) (domain.Chat, error) {
	members := []string{creatorID}
	seen := map[string]bool{creatorID: true}
	for _, id := range memberIDs {
		if seen[id] {
			continue
		}
		if _, err := s.Store.Users().GetUserByID(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.Chat{}, ErrUserNotFound
			}
			return domain.Chat{}, err
		}
		seen[id] = true
		members = append(members, id)
	}

	c := domain.Chat{
		ID:        idx.New().String(),
		Name:      strings.TrimSpace(name),
		MemberIDs: members,
		CreatedAt: time.Now(),
	}
	if err := s.Store.Chats().CreateChat(ctx, c); err != nil {
		return domain.Chat{}, err
	}
	return c, nil
}

// ListUserChats returns the chats the principal belongs to.
func (s *ChatService) ListUserChats(ctx context.Context, userID string) ([]domain.Chat, error) {
	return s.Store.Chats().ListUserChats(ctx, userID)
}

// ListMessages returns a chat's message history, oldest first. The requester
// must be a member.
func (s *ChatService) ListMessages(ctx context.Context, chatID, requesterID string, limit, offset int) ([]domain.Message, error) {
	member, err := s.Store.Chats().IsChatMember(ctx, chatID, requesterID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotChatMember
	}

	if limit <= 0 || limit > 200 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.Store.Chats().ListChatMessages(ctx, chatID, limit, offset)
}

// SendMessage persists the message and fans it out to every member with a
// live connection. The sender must be a member of the chat; persistence
// happens before fan-out so a delivered message is always a stored message.
func (s *ChatService) SendMessage(ctx context.Context, chatID, senderID, text string) (domain.Message, error) {
	l := slogx.FromContext(ctx)

	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Message{}, ErrEmptyMessage
	}

	member, err := s.Store.Chats().IsChatMember(ctx, chatID, senderID)
	if err != nil {
		return domain.Message{}, err
	}
	if !member {
		return domain.Message{}, ErrNotChatMember
	}

	msg := domain.Message{
		ID:        idx.New().String(),
		ChatID:    chatID,
		SenderID:  senderID,
		Text:      text,
		CreatedAt: time.Now(),
	}
	if err := s.Store.Chats().CreateMessage(ctx, msg); err != nil {
		return domain.Message{}, err
	}

	members, err := s.Store.Chats().GetChatMemberIDs(ctx, chatID)
	if err != nil {
		return domain.Message{}, err
	}

	for _, memberID := range members {
		if memberID == senderID {
			continue
		}
		if _, err := s.Registry.Send(memberID, msg); err != nil {
			// A dead connection is the read loop's problem; delivery to
			// the rest of the chat continues.
			l.Debug("chat fan-out write failed",
				slog.String("chat_id", chatID),
				slog.String("member_id", memberID),
				slog.Any("error", err),
			)
		}
	}

	return msg, nil
}
