package domain

import "time"

// Announcement is a study-partner listing. Business rules live outside the
// auth subsystem; it exists here as the resource both gate policies are
// exercised against (public reads, owner-only writes).
type Announcement struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Tags        []Tag     `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Tag is a shared label across announcements. Tags are created on first use
// via a storage-level upsert, so concurrent writers converge on one row.
type Tag struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Colour string `json:"colour"` // HSL string assigned at creation
}
