package store

import (
	"context"
	"errors"
	"time"

	"github.com/studymate/studymate/internal/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// TokenField selects which half of a credential pair a ledger lookup keys on.
type TokenField int

const (
	ByAccessToken TokenField = iota
	ByRefreshToken
)

// Store is the root data access interface. Concrete drivers (sqlite today)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and a transaction helper for the multi-step operations that must
// be atomic.
type Store interface {
	Users() Users
	Tokens() Tokens
	Announcements() Announcements
	Tags() Tags
	Chats() Chats

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction: rolled back when fn errors,
	// committed otherwise. Prefer this over Tx directly.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is used during login.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	// Returns ErrAlreadyExists when the email or username is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// ExistsByEmail reports whether any user has the email.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// ExistsByUsername reports whether any user has the username.
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

// Tokens is the credential ledger: every issued access/refresh pair lives
// here for its whole history. Absence and revocation are indistinguishable to
// callers, which is exactly the semantics the gate wants.
type Tokens interface {
	// CreateTokenRecord stores a freshly minted pair (revoked=false).
	CreateTokenRecord(ctx context.Context, t domain.TokenRecord) error

	// IsLive reports whether a record matching the fingerprint exists with
	// revoked=false. A missing record is false, not an error.
	IsLive(ctx context.Context, fingerprint string, by TokenField) (bool, error)

	// RevokeAllUserTokens flips revoked on every live record owned by the
	// user. Idempotent.
	RevokeAllUserTokens(ctx context.Context, userID string) error

	// RevokeByAccessHash flips revoked on the single matching record.
	// No-op when absent.
	RevokeByAccessHash(ctx context.Context, accessHash string) error

	// RevokeStaleTokens revokes live records created before the cutoff.
	// Housekeeping hygiene: rows old enough that both tokens have certainly
	// expired. Rows are never deleted.
	RevokeStaleTokens(ctx context.Context, before time.Time) error

	// CountLiveUserTokens returns the number of live records for a user.
	CountLiveUserTokens(ctx context.Context, userID string) (int, error)
}

type Announcements interface {
	// CreateAnnouncement inserts the announcement and its tag links.
	CreateAnnouncement(ctx context.Context, a domain.Announcement) error

	// GetAnnouncementByID returns the announcement with tags attached.
	GetAnnouncementByID(ctx context.Context, id string) (domain.Announcement, error)

	// ListAnnouncements returns announcements newest-first.
	ListAnnouncements(ctx context.Context, limit, offset int) ([]domain.Announcement, error)

	// DeleteAnnouncement removes the announcement and its tag links.
	DeleteAnnouncement(ctx context.Context, id string) error
}

type Tags interface {
	// GetOrCreateTag returns the tag with the given name, creating it with
	// the supplied colour when absent. Implemented as an insert-or-ignore
	// plus re-read so concurrent callers across processes converge on a
	// single row without an application-level lock.
	GetOrCreateTag(ctx context.Context, name, colour string) (domain.Tag, error)
}

type Chats interface {
	// CreateChat inserts a chat and its membership rows.
	CreateChat(ctx context.Context, c domain.Chat) error

	// ListUserChats returns the chats the user belongs to.
	ListUserChats(ctx context.Context, userID string) ([]domain.Chat, error)

	// GetChatMemberIDs returns the user ids in a chat.
	GetChatMemberIDs(ctx context.Context, chatID string) ([]string, error)

	// IsChatMember reports whether the user belongs to the chat.
	IsChatMember(ctx context.Context, chatID, userID string) (bool, error)

	// CreateMessage persists a chat message.
	CreateMessage(ctx context.Context, m domain.Message) error

	// ListChatMessages returns messages for a chat, oldest first.
	ListChatMessages(ctx context.Context, chatID string, limit, offset int) ([]domain.Message, error)
}
