package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/waste-dispatch/internal/model"
)

type NotificationService struct {
	notifications NotificationStore
	users         UserStore
	cache         UnreadCache
	unread        unreadCounters
	log           zerolog.Logger
}

func NewNotificationService(notifications NotificationStore, users UserStore, cache UnreadCache, log zerolog.Logger) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		users:         users,
		cache:         cache,
		unread:        unreadCounters{cache: cache, log: log},
		log:           log,
	}
}

type CreateNotificationInput struct {
	RecipientID uuid.UUID
	Type        model.NotificationType
	Title       string
	Message     string
	Priority    model.Priority
	Related     model.RelatedEntity
	Metadata    map[string]interface{}
}

// Create stores a notification addressed by an admin to a single user.
func (s *NotificationService) Create(ctx context.Context, principal model.Principal, input CreateNotificationInput) (*model.Notification, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	if input.RecipientID == uuid.Nil {
		return nil, fmt.Errorf("%w: recipient_id is required", ErrValidation)
	}
	if input.Type == "" {
		input.Type = model.NotificationSystem
	}
	if !input.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown notification type %q", ErrValidation, input.Type)
	}
	if input.Priority != "" && !input.Priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, input.Priority)
	}
	title := strings.TrimSpace(input.Title)
	message := strings.TrimSpace(input.Message)
	if title == "" || message == "" {
		return nil, fmt.Errorf("%w: title and message are required", ErrValidation)
	}
	if (input.Related.Kind == model.EntityNone) != (input.Related.ID == nil) {
		return nil, fmt.Errorf("%w: related entity needs both kind and id", ErrValidation)
	}

	n := model.Notice{
		Type:     input.Type,
		Title:    title,
		Message:  message,
		Priority: input.Priority,
		Related:  input.Related,
		Metadata: input.Metadata,
	}.For(input.RecipientID, nowUTC())

	if err := s.notifications.CreateNotification(ctx, n); err != nil {
		return nil, mapStoreError(err)
	}
	s.unread.touch(ctx, []uuid.UUID{n.RecipientID})
	return &n, nil
}

func (s *NotificationService) List(
	ctx context.Context,
	principal model.Principal,
	filter model.NotificationFilter,
	page model.Page,
) (model.Paginated[model.Notification], error) {
	page = page.Normalize()
	if filter.Type != nil && !filter.Type.Valid() {
		return model.Paginated[model.Notification]{}, fmt.Errorf("%w: unknown notification type %q", ErrValidation, *filter.Type)
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return model.Paginated[model.Notification]{}, fmt.Errorf("%w: unknown status %q", ErrValidation, *filter.Status)
	}
	items, total, err := s.notifications.ListNotifications(ctx, principal.UserID, filter, page)
	if err != nil {
		return model.Paginated[model.Notification]{}, err
	}
	return model.NewPaginated(items, page, total), nil
}

// MarkRead is idempotent: an already read notification keeps its original read_at.
func (s *NotificationService) MarkRead(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Notification, error) {
	n, err := s.owned(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if n.IsRead {
		return n, nil
	}
	at := nowUTC()
	if err := s.notifications.MarkNotificationRead(ctx, id, at); err != nil {
		return nil, mapStoreError(err)
	}
	s.unread.touch(ctx, []uuid.UUID{n.RecipientID})
	n.IsRead = true
	n.ReadAt = &at
	return n, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, principal model.Principal) (int64, error) {
	count, err := s.notifications.MarkAllNotificationsRead(ctx, principal.UserID, nowUTC())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.unread.touch(ctx, []uuid.UUID{principal.UserID})
	}
	return count, nil
}

func (s *NotificationService) Archive(ctx context.Context, principal model.Principal, id uuid.UUID) error {
	return s.setStatus(ctx, principal, id, model.NotificationStatusArchived)
}

// Delete is a soft delete; the row stays but is hidden from every listing.
func (s *NotificationService) Delete(ctx context.Context, principal model.Principal, id uuid.UUID) error {
	return s.setStatus(ctx, principal, id, model.NotificationStatusDeleted)
}

// UnreadCount serves from the cache and recounts on a miss.
func (s *NotificationService) UnreadCount(ctx context.Context, principal model.Principal) (int64, error) {
	if s.cache != nil {
		count, ok, err := s.cache.GetUnread(ctx, principal.UserID)
		if err != nil {
			s.log.Warn().Err(err).Str("user_id", principal.UserID.String()).Msg("unread cache read failed")
		} else if ok {
			return count, nil
		}
	}
	count, err := s.notifications.CountUnread(ctx, principal.UserID)
	if err != nil {
		return 0, err
	}
	if s.cache != nil {
		if err := s.cache.SetUnread(ctx, principal.UserID, count); err != nil {
			s.log.Warn().Err(err).Str("user_id", principal.UserID.String()).Msg("unread cache write failed")
		}
	}
	return count, nil
}

func (s *NotificationService) setStatus(ctx context.Context, principal model.Principal, id uuid.UUID, status model.NotificationStatus) error {
	n, err := s.owned(ctx, principal, id)
	if err != nil {
		return err
	}
	if n.Status == status {
		return nil
	}
	if err := s.notifications.SetNotificationStatus(ctx, id, status); err != nil {
		return mapStoreError(err)
	}
	if !n.IsRead {
		s.unread.touch(ctx, []uuid.UUID{n.RecipientID})
	}
	return nil
}

func (s *NotificationService) owned(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Notification, error) {
	n, err := s.notifications.GetNotification(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if n.RecipientID != principal.UserID {
		return nil, ErrForbidden
	}
	return n, nil
}
