package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/studymate/studymate/internal/domain"
	"github.com/studymate/studymate/internal/store"
	"github.com/studymate/studymate/pkg/idx"
)

type AnnouncementService struct {
	Store store.Store
}

type CreateAnnouncementParams struct {
	OwnerID     string
	Title       string
	Description string
	Tags        []string
}

// Create stores a new announcement, resolving tag names through the
// get-or-create upsert. New tags get a random HSL colour; existing tags keep
// whatever colour they were first created with.
func (s *AnnouncementService) Create(ctx context.Context, p CreateAnnouncementParams) (domain.Announcement, error) {
	now := time.Now()
	a := domain.Announcement{
		ID:          idx.New().String(),
		OwnerID:     p.OwnerID,
		Title:       strings.TrimSpace(p.Title),
		Description: strings.TrimSpace(p.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	seen := map[string]struct{}{}
	for _, name := range p.Tags {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}

		tag, err := s.Store.Tags().GetOrCreateTag(ctx, name, randomColour())
		if err != nil {
			return domain.Announcement{}, err
		}
		a.Tags = append(a.Tags, tag)
	}

	if err := s.Store.Announcements().CreateAnnouncement(ctx, a); err != nil {
		return domain.Announcement{}, err
	}
	return a, nil
}

// Get returns a single announcement by id.
func (s *AnnouncementService) Get(ctx context.Context, id string) (domain.Announcement, error) {
	return s.Store.Announcements().GetAnnouncementByID(ctx, id)
}

// List returns announcements newest-first.
func (s *AnnouncementService) List(ctx context.Context, limit, offset int) ([]domain.Announcement, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.Store.Announcements().ListAnnouncements(ctx, limit, offset)
}

// Delete removes an announcement. Only the owner may delete it.
func (s *AnnouncementService) Delete(ctx context.Context, id, requesterID string) error {
	a, err := s.Store.Announcements().GetAnnouncementByID(ctx, id)
	if err != nil {
		return err
	}
	if a.OwnerID != requesterID {
		return ErrNotOwner
	}
	return s.Store.Announcements().DeleteAnnouncement(ctx, id)
}

// randomColour produces a saturated HSL colour for a freshly created tag.
func randomColour() string {
	return fmt.Sprintf("hsl(%d, 70%%, 50%%)", rand.Intn(360))
}
