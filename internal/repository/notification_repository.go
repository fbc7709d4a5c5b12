package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/waste-dispatch/internal/model"
)

const notificationColumns = `
	id,
	recipient_id,
	type,
	title,
	message,
	is_read,
	read_at,
	priority,
	status,
	related_kind,
	related_id,
	metadata,
	created_at
`

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) CreateNotification(ctx context.Context, n model.Notification) error {
	err := insertNotifications(r.db.WithContext(ctx), []model.Notification{n})
	if errors.Is(err, ErrReferenced) {
		return gorm.ErrRecordNotFound
	}
	return err
}

func (r *NotificationRepository) GetNotification(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	var n model.Notification
	if err := r.db.WithContext(ctx).Raw(`
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE id = ? AND status <> 'deleted'
		LIMIT 1
	`, id).Scan(&n).Error; err != nil {
		return nil, err
	}
	if n.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &n, nil
}

func (r *NotificationRepository) ListNotifications(
	ctx context.Context,
	recipientID uuid.UUID,
	filter model.NotificationFilter,
	page model.Page,
) ([]model.Notification, int64, error) {
	conditions := []string{"recipient_id = ?"}
	args := []interface{}{recipientID}
	status := model.NotificationStatusActive
	if filter.Status != nil {
		status = *filter.Status
	}
	conditions = append(conditions, "status = ?")
	args = append(args, status)
	if filter.Type != nil {
		conditions = append(conditions, "type = ?")
		args = append(args, *filter.Type)
	}
	if filter.UnreadOnly {
		conditions = append(conditions, "is_read = FALSE")
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int64
	if err := r.db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM notifications`+where, args...).
		Scan(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []model.Notification
	args = append(args, page.PageSize, page.Offset())
	if err := r.db.WithContext(ctx).Raw(`
		SELECT `+notificationColumns+`
		FROM notifications`+where+`
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, args...).Scan(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// MarkNotificationRead flips the read flag once; already read rows are left untouched.
func (r *NotificationRepository) MarkNotificationRead(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE notifications
		SET is_read = TRUE, read_at = ?
		WHERE id = ? AND is_read = FALSE
	`, at, id).Error
}

func (r *NotificationRepository) MarkAllNotificationsRead(ctx context.Context, recipientID uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE notifications
		SET is_read = TRUE, read_at = ?
		WHERE recipient_id = ? AND is_read = FALSE AND status = 'active'
	`, at, recipientID)
	return result.RowsAffected, result.Error
}

func (r *NotificationRepository) SetNotificationStatus(
	ctx context.Context,
	id uuid.UUID,
	status model.NotificationStatus,
) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE notifications
		SET status = ?
		WHERE id = ?
	`, status, id).Error
}

func (r *NotificationRepository) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*)
		FROM notifications
		WHERE recipient_id = ? AND is_read = FALSE AND status = 'active'
	`, recipientID).Scan(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
