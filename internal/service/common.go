package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/waste-dispatch/internal/model"
)

type unreadCounters struct {
	cache UnreadCache
	log   zerolog.Logger
}

// touch drops cached unread counters; the next read recounts from the database.
func (u unreadCounters) touch(ctx context.Context, userIDs []uuid.UUID) {
	if u.cache == nil || len(userIDs) == 0 {
		return
	}
	if err := u.cache.Invalidate(ctx, userIDs...); err != nil {
		u.log.Warn().Err(err).Int("users", len(userIDs)).Msg("failed to invalidate unread counters")
	}
}

func recipientsOf(notifications []model.Notification) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(notifications))
	for _, n := range notifications {
		ids = append(ids, n.RecipientID)
	}
	return ids
}

func requireAdmin(p model.Principal) error {
	if !p.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func unionIDs(groups ...[]uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	for _, group := range groups {
		for _, id := range group {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
