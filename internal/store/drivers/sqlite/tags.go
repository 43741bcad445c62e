package sqlite

import (
	"context"

	"github.com/studymate/studymate/internal/domain"
	"github.com/studymate/studymate/pkg/idx"
)

type tagsRepo struct {
	db dbtx
}

// GetOrCreateTag converges concurrent callers onto a single row per name by
// relying on the UNIQUE index: insert-or-ignore, then re-read. The id and
// colour only stick for whichever caller won the insert.
func (r *tagsRepo) GetOrCreateTag(ctx context.Context, name, colour string) (domain.Tag, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tags (id, name, colour) VALUES (?, ?, ?)
		ON CONFLICT (name) DO NOTHING`,
		idx.New().String(), name, colour)
	if err != nil {
		return domain.Tag{}, err
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, colour FROM tags WHERE name = ?`, name)

	var t domain.Tag
	if err := row.Scan(&t.ID, &t.Name, &t.Colour); err != nil {
		return domain.Tag{}, mapNotFound(err)
	}
	return t, nil
}
