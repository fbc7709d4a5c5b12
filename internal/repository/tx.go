package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/waste-dispatch/internal/model"
)

func insertNotifications(tx *gorm.DB, notifications []model.Notification) error {
	for _, n := range notifications {
		if err := tx.Exec(`
			INSERT INTO notifications (
				id, recipient_id, type, title, message, is_read, read_at,
				priority, status, related_kind, related_id, metadata, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			n.ID,
			n.RecipientID,
			n.Type,
			n.Title,
			n.Message,
			n.IsRead,
			n.ReadAt,
			n.Priority,
			n.Status,
			n.RelatedKind,
			n.RelatedID,
			n.Metadata,
			n.CreatedAt,
		).Error; err != nil {
			return translate(err)
		}
	}
	return nil
}

// appendLedger moves the cached balance and records the entry.
// Debits only apply while the balance covers them.
func appendLedger(tx *gorm.DB, entry model.LedgerEntry) error {
	var result *gorm.DB
	if entry.TransactionType == model.TransactionDebit {
		result = tx.Exec(`
			UPDATE users
			SET points = points - ?, updated_at = ?
			WHERE id = ? AND points >= ?
		`, entry.Points, entry.CreatedAt, entry.UserID, entry.Points)
	} else {
		result = tx.Exec(`
			UPDATE users
			SET points = points + ?, updated_at = ?
			WHERE id = ?
		`, entry.Points, entry.CreatedAt, entry.UserID)
	}
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if entry.TransactionType != model.TransactionDebit {
			return gorm.ErrRecordNotFound
		}
		exists, err := userExists(tx, entry.UserID)
		if err != nil {
			return err
		}
		if !exists {
			return gorm.ErrRecordNotFound
		}
		return ErrInsufficientBalance
	}

	return tx.Exec(`
		INSERT INTO reward_ledger (id, user_id, waste_report_id, points, reason, transaction_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID,
		entry.UserID,
		entry.WasteReportID,
		entry.Points,
		entry.Reason,
		entry.TransactionType,
		entry.CreatedAt,
	).Error
}

func userExists(tx *gorm.DB, id uuid.UUID) (bool, error) {
	var count int64
	if err := tx.Raw(`SELECT COUNT(*) FROM users WHERE id = ?`, id).Scan(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func teamMemberIDs(tx *gorm.DB, teamID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := tx.Raw(`
		SELECT user_id
		FROM team_members
		WHERE team_id = ?
		ORDER BY user_id
	`, teamID).Scan(&ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
