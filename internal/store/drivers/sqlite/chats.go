package sqlite

import (
	"context"

	"github.com/studymate/studymate/internal/domain"
)

type chatsRepo struct {
	db dbtx
}

func (r *chatsRepo) CreateChat(ctx context.Context, c domain.Chat) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO chats (id, name) VALUES (?, ?)`, c.ID, c.Name)
	if err != nil {
		return mapConstraint(err)
	}

	for _, userID := range c.MemberIDs {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO chat_users (chat_id, user_id) VALUES (?, ?)`, c.ID, userID)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *chatsRepo) ListUserChats(ctx context.Context, userID string) ([]domain.Chat, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.created_at
		FROM chats c
		JOIN chat_users cu ON cu.chat_id = c.id
		WHERE cu.user_id = ?
		ORDER BY c.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Chat
	for rows.Next() {
		var c domain.Chat
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		members, err := r.GetChatMemberIDs(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].MemberIDs = members
	}
	return out, nil
}

func (r *chatsRepo) GetChatMemberIDs(ctx context.Context, chatID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id FROM chat_users WHERE chat_id = ? ORDER BY user_id`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *chatsRepo) IsChatMember(ctx context.Context, chatID, userID string) (bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM chat_users WHERE chat_id = ? AND user_id = ?`, chatID, userID)

	var n int
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *chatsRepo) CreateMessage(ctx context.Context, m domain.Message) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, chat_id, sender_id, body)
		VALUES (?, ?, ?, ?)`,
		m.ID, m.ChatID, m.SenderID, m.Text)
	return mapConstraint(err)
}

func (r *chatsRepo) ListChatMessages(ctx context.Context, chatID string, limit, offset int) ([]domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, chat_id, sender_id, body, created_at
		FROM messages
		WHERE chat_id = ?
		ORDER BY created_at ASC, id ASC
		LIMIT ? OFFSET ?`, chatID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Text, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
