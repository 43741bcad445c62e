package domain

import "time"

// User is the identity record behind every credential. The password hash is
// opaque to the auth subsystem; only pkg/cryptox knows its shape.
type User struct {
	ID           string
	Username     string
	Email        string
	Name         string
	PasswordHash string // argon2id encoded
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Summary is the compact user shape embedded in auth responses and public
// profile reads. It never carries the email or hash.
type Summary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// Summary returns the public view of the user.
func (u User) Summary() Summary {
	return Summary{ID: u.ID, Name: u.Name, Username: u.Username}
}
