package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/studymate/studymate/internal/chat"
	"github.com/studymate/studymate/internal/domain"
	"github.com/studymate/studymate/pkg/idx"
	"github.com/stretchr/testify/require"
)

type recordingConn struct {
	writes []any
}

func (c *recordingConn) WriteJSON(v any) error { c.writes = append(c.writes, v); return nil }
func (c *recordingConn) Close() error          { return nil }

func newTestChatService(t *testing.T) (*ChatService, *AuthService) {
	t.Helper()

	authSvc := newTestAuthService(t)
	return &ChatService{
		Store:    authSvc.Store,
		Registry: chat.NewRegistry(),
	}, authSvc
}

func TestSendMessagePersistsAndFansOut(t *testing.T) {
	ctx := context.Background()
	svc, authSvc := newTestChatService(t)

	alice, err := authSvc.Register(ctx, RegisterParams{
		Email: "alice@example.com", Password: "pw", Name: "Alice", Username: "alice",
	})
	require.NoError(t, err)
	bob, err := authSvc.Register(ctx, RegisterParams{
		Email: "bob@example.com", Password: "pw", Name: "Bob", Username: "bob",
	})
	require.NoError(t, err)

	room := domain.Chat{
		ID:        idx.New().String(),
		Name:      "study group",
		MemberIDs: []string{alice.ID, bob.ID},
	}
	require.NoError(t, svc.Store.Chats().CreateChat(ctx, room))

	bobConn := &recordingConn{}
	svc.Registry.Add(bob.ID, bobConn)

	msg, err := svc.SendMessage(ctx, room.ID, alice.ID, "hello bob")
	require.NoError(t, err)
	require.Equal(t, "hello bob", msg.Text)

	// Bob received the fan-out; the sender did not get an echo.
	require.Len(t, bobConn.writes, 1)
	require.Equal(t, msg, bobConn.writes[0])

	// And the message is in the history.
	history, err := svc.ListMessages(ctx, room.ID, bob.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, msg.ID, history[0].ID)
}

// serializedConn fails the test if two fan-out writes ever overlap, the
// condition a real websocket connection cannot survive.
type serializedConn struct {
	active  atomic.Int32
	overlap atomic.Bool
	writes  atomic.Int32
}

func (c *serializedConn) WriteJSON(v any) error {
	if c.active.Add(1) != 1 {
		c.overlap.Store(true)
	}
	c.writes.Add(1)
	c.active.Add(-1)
	return nil
}

func (c *serializedConn) Close() error { return nil }

func TestConcurrentSendersShareRecipientConnection(t *testing.T) {
	ctx := context.Background()
	svc, authSvc := newTestChatService(t)

	alice, err := authSvc.Register(ctx, RegisterParams{
		Email: "alice@example.com", Password: "pw", Name: "Alice", Username: "alice",
	})
	require.NoError(t, err)
	bob, err := authSvc.Register(ctx, RegisterParams{
		Email: "bob@example.com", Password: "pw", Name: "Bob", Username: "bob",
	})
	require.NoError(t, err)
	carol, err := authSvc.Register(ctx, RegisterParams{
		Email: "carol@example.com", Password: "pw", Name: "Carol", Username: "carol",
	})
	require.NoError(t, err)

	room := domain.Chat{
		ID:        idx.New().String(),
		Name:      "busy group",
		MemberIDs: []string{alice.ID, bob.ID, carol.ID},
	}
	require.NoError(t, svc.Store.Chats().CreateChat(ctx, room))

	carolConn := &serializedConn{}
	svc.Registry.Add(carol.ID, carolConn)

	// Two members flood the chat at once; every message lands on carol's
	// single connection, so the writes must not interleave.
	const perSender = 50
	var wg sync.WaitGroup
	sendErrs := make([]error, 2)
	for i, sender := range []string{alice.ID, bob.ID} {
		wg.Add(1)
		go func(i int, senderID string) {
			defer wg.Done()
			for j := 0; j < perSender; j++ {
				if _, err := svc.SendMessage(ctx, room.ID, senderID, "ping"); err != nil {
					sendErrs[i] = err
					return
				}
			}
		}(i, sender)
	}
	wg.Wait()

	require.NoError(t, sendErrs[0])
	require.NoError(t, sendErrs[1])

	require.False(t, carolConn.overlap.Load(), "writes to one connection must not overlap")
	require.Equal(t, int32(2*perSender), carolConn.writes.Load())

	history, err := svc.ListMessages(ctx, room.ID, carol.ID, 200, 0)
	require.NoError(t, err)
	require.Len(t, history, 2*perSender)
}

func TestSendMessageRequiresMembership(t *testing.T) {
	ctx := context.Background()
	svc, authSvc := newTestChatService(t)

	alice, err := authSvc.Register(ctx, RegisterParams{
		Email: "alice@example.com", Password: "pw", Name: "Alice", Username: "alice",
	})
	require.NoError(t, err)
	outsider, err := authSvc.Register(ctx, RegisterParams{
		Email: "eve@example.com", Password: "pw", Name: "Eve", Username: "eve",
	})
	require.NoError(t, err)

	room := domain.Chat{
		ID:        idx.New().String(),
		Name:      "private",
		MemberIDs: []string{alice.ID},
	}
	require.NoError(t, svc.Store.Chats().CreateChat(ctx, room))

	_, err = svc.SendMessage(ctx, room.ID, outsider.ID, "let me in")
	require.ErrorIs(t, err, ErrNotChatMember)

	_, err = svc.ListMessages(ctx, room.ID, outsider.ID, 0, 0)
	require.ErrorIs(t, err, ErrNotChatMember)

	_, err = svc.SendMessage(ctx, room.ID, alice.ID, "   ")
	require.ErrorIs(t, err, ErrEmptyMessage)
}
