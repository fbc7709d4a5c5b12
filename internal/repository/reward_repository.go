package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/waste-dispatch/internal/model"
)

type RewardRepository struct {
	db *gorm.DB
}

func NewRewardRepository(db *gorm.DB) *RewardRepository {
	return &RewardRepository{db: db}
}

func (r *RewardRepository) ApplyLedgerEntry(
	ctx context.Context,
	entry model.LedgerEntry,
	notifications []model.Notification,
) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := appendLedger(tx, entry); err != nil {
			return err
		}
		return insertNotifications(tx, notifications)
	})
}

func (r *RewardRepository) ListLedger(
	ctx context.Context,
	userID uuid.UUID,
	page model.Page,
) ([]model.LedgerEntry, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM reward_ledger WHERE user_id = ?
	`, userID).Scan(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []model.LedgerEntry
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id, user_id, waste_report_id, points, reason, transaction_type, created_at
		FROM reward_ledger
		WHERE user_id = ?
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, userID, page.PageSize, page.Offset()).Scan(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// LedgerTotals returns the cached balance next to the balance recomputed from the ledger.
func (r *RewardRepository) LedgerTotals(ctx context.Context, userID uuid.UUID) (cached int64, ledger int64, err error) {
	var row struct {
		ID     uuid.UUID
		Cached int64
		Ledger int64
	}
	if err := r.db.WithContext(ctx).Raw(`
		SELECT
			u.id,
			u.points AS cached,
			COALESCE(SUM(CASE WHEN l.transaction_type = 'credit' THEN l.points ELSE -l.points END), 0) AS ledger
		FROM users u
		LEFT JOIN reward_ledger l ON l.user_id = u.id
		WHERE u.id = ?
		GROUP BY u.id, u.points
	`, userID).Scan(&row).Error; err != nil {
		return 0, 0, err
	}
	if row.ID == uuid.Nil {
		return 0, 0, gorm.ErrRecordNotFound
	}
	return row.Cached, row.Ledger, nil
}
