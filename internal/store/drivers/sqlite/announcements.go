package sqlite

import (
	"context"

	"github.com/studymate/studymate/internal/domain"
	"github.com/studymate/studymate/internal/store"
)

type announcementsRepo struct {
	db dbtx
}

func (r *announcementsRepo) CreateAnnouncement(ctx context.Context, a domain.Announcement) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO announcements (id, owner_id, title, description)
		VALUES (?, ?, ?, ?)`,
		a.ID, a.OwnerID, a.Title, a.Description)
	if err != nil {
		return mapConstraint(err)
	}

	for _, tag := range a.Tags {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO announcement_tags (announcement_id, tag_id)
			VALUES (?, ?)`, a.ID, tag.ID)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *announcementsRepo) GetAnnouncementByID(ctx context.Context, id string) (domain.Announcement, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, description, created_at, updated_at
		FROM announcements WHERE id = ?`, id)

	var a domain.Announcement
	err := row.Scan(&a.ID, &a.OwnerID, &a.Title, &a.Description, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return domain.Announcement{}, mapNotFound(err)
	}

	tags, err := r.announcementTags(ctx, a.ID)
	if err != nil {
		return domain.Announcement{}, err
	}
	a.Tags = tags
	return a, nil
}

func (r *announcementsRepo) ListAnnouncements(ctx context.Context, limit, offset int) ([]domain.Announcement, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, title, description, created_at, updated_at
		FROM announcements
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Announcement
	for rows.Next() {
		var a domain.Announcement
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.Title, &a.Description, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		tags, err := r.announcementTags(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Tags = tags
	}
	return out, nil
}

func (r *announcementsRepo) DeleteAnnouncement(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM announcements WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *announcementsRepo) announcementTags(ctx context.Context, announcementID string) ([]domain.Tag, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.colour
		FROM tags t
		JOIN announcement_tags at ON at.tag_id = t.id
		WHERE at.announcement_id = ?
		ORDER BY t.name`, announcementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Colour); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
