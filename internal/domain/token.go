package domain

import "time"

// TokenPair is what login/refresh return: a short-lived access token and the
// refresh token that can trade itself in for the next pair. It is not a wire
// type; the HTTP layer maps it onto its own response shape.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string // typically "Bearer"
	ExpiresIn    time.Duration
}

// TokenRecord models the persisted credential ledger row. The ledger stores
// SHA-256 fingerprints of both token strings rather than the tokens
// themselves. Rows are flipped to revoked, never deleted: the ledger is the
// audit trail as well as the liveness source of truth.
type TokenRecord struct {
	ID          string
	UserID      string
	AccessHash  string // fingerprint of the access token (base64url SHA-256)
	RefreshHash string // fingerprint of the paired refresh token
	Revoked     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
