package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/nurpe/waste-dispatch/internal/model"
)

const dispatchColumns = `
	d.id,
	d.waste_report_id,
	d.team_id,
	d.truck_id,
	d.pickup_longitude,
	d.pickup_latitude,
	d.pickup_address,
	d.status,
	d.priority,
	d.mode,
	d.scheduled_date,
	d.estimated_arrival,
	d.actual_collection_date,
	d.collection_verified,
	d.collection_notes,
	d.collection_images,
	d.points_awarded,
	d.created_at,
	d.updated_at
`

const dispatchDetailColumns = dispatchColumns + `,
	COALESCE(t.name, '') AS team_name,
	COALESCE(tr.registration_number, '') AS registration_number,
	wr.dominant_waste_type,
	wr.volume_value,
	wr.volume_unit
`

const dispatchDetailFrom = `
	FROM dispatches d
	JOIN waste_reports wr ON wr.id = d.waste_report_id
	LEFT JOIN teams t ON t.id = d.team_id
	LEFT JOIN trucks tr ON tr.id = d.truck_id
`

type DispatchRepository struct {
	db *gorm.DB
}

func NewDispatchRepository(db *gorm.DB) *DispatchRepository {
	return &DispatchRepository{db: db}
}

// CreateDispatch claims the report and the truck, stores the dispatch and notifies the crew.
// It returns the notified user ids.
func (r *DispatchRepository) CreateDispatch(
	ctx context.Context,
	dispatch model.Dispatch,
	notice model.Notice,
) ([]uuid.UUID, error) {
	var recipients []uuid.UUID
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Exec(`
			UPDATE waste_reports
			SET status = 'dispatched', updated_at = ?
			WHERE id = ? AND status = 'pending_dispatch'
		`, dispatch.CreatedAt, dispatch.WasteReportID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrReportNotPending
		}

		result = tx.Exec(`
			UPDATE trucks
			SET status = 'in_use', updated_at = ?
			WHERE id = ?
				AND status = 'available'
				AND assigned_team_id = ?
				AND EXISTS (SELECT 1 FROM teams WHERE id = ? AND status = 'active')
		`, dispatch.CreatedAt, dispatch.TruckID, dispatch.TeamID, dispatch.TeamID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrCrewUnavailable
		}

		if err := tx.Exec(`
			INSERT INTO dispatches (
				id, waste_report_id, team_id, truck_id,
				pickup_longitude, pickup_latitude, pickup_address,
				status, priority, mode, scheduled_date,
				estimated_arrival, actual_collection_date, collection_verified,
				collection_notes, collection_images, points_awarded,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			dispatch.ID,
			dispatch.WasteReportID,
			dispatch.TeamID,
			dispatch.TruckID,
			dispatch.PickupLongitude,
			dispatch.PickupLatitude,
			dispatch.PickupAddress,
			dispatch.Status,
			dispatch.Priority,
			dispatch.Mode,
			dispatch.ScheduledDate,
			dispatch.EstimatedArrival,
			dispatch.ActualCollectionDate,
			dispatch.CollectionVerified,
			dispatch.CollectionNotes,
			dispatch.CollectionImages,
			dispatch.PointsAwarded,
			dispatch.CreatedAt,
			dispatch.UpdatedAt,
		).Error; err != nil {
			if errors.Is(translate(err), ErrUniqueViolation) {
				return ErrReportNotPending
			}
			return err
		}

		members, err := teamMemberIDs(tx, *dispatch.TeamID)
		if err != nil {
			return err
		}
		if err := insertNotifications(tx, notice.Fanout(members, dispatch.CreatedAt)); err != nil {
			return err
		}
		recipients = members
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recipients, nil
}

// UpdateDispatchStatus applies a transition guarded by the expected current status,
// keeping the report, truck, ledger and notifications in step. It returns the notified user ids.
func (r *DispatchRepository) UpdateDispatchStatus(ctx context.Context, t model.DispatchTransition) ([]uuid.UUID, error) {
	var recipients []uuid.UUID
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		images := t.CollectionImages
		if images == nil {
			images = []string{}
		}
		result := tx.Exec(`
			UPDATE dispatches
			SET
				status = ?,
				estimated_arrival = COALESCE(?, estimated_arrival),
				actual_collection_date = COALESCE(?, actual_collection_date),
				collection_verified = collection_verified OR ?,
				collection_notes = COALESCE(?, collection_notes),
				collection_images = ?,
				points_awarded = points_awarded + ?,
				updated_at = ?
			WHERE id = ? AND status = ?
		`,
			t.Status,
			t.EstimatedArrival,
			t.ActualCollectionDate,
			t.CollectionVerified,
			t.CollectionNotes,
			datatypes.JSONSlice[string](images),
			t.PointsAwarded,
			t.UpdatedAt,
			t.DispatchID,
			t.ExpectedStatus,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStaleStatus
		}

		if err := tx.Exec(`
			UPDATE waste_reports
			SET status = ?, updated_at = ?
			WHERE id = ?
		`, t.ReportStatus, t.UpdatedAt, t.ReportID).Error; err != nil {
			return err
		}

		if t.ReleaseTruck != nil {
			if err := tx.Exec(`
				UPDATE trucks
				SET status = 'available', updated_at = ?
				WHERE id = ? AND status = 'in_use'
			`, t.UpdatedAt, *t.ReleaseTruck).Error; err != nil {
				return err
			}
		}

		if t.Award != nil {
			if err := appendLedger(tx, *t.Award); err != nil {
				return err
			}
		}

		notifications := append([]model.Notification(nil), t.Notices...)
		if t.TeamNotice != nil && t.TeamID != nil {
			members, err := teamMemberIDs(tx, *t.TeamID)
			if err != nil {
				return err
			}
			notifications = append(notifications, t.TeamNotice.Fanout(members, t.UpdatedAt)...)
		}
		if err := insertNotifications(tx, notifications); err != nil {
			return err
		}
		for _, n := range notifications {
			recipients = append(recipients, n.RecipientID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recipients, nil
}

func (r *DispatchRepository) GetDispatch(ctx context.Context, id uuid.UUID) (*model.DispatchDetail, error) {
	var detail model.DispatchDetail
	if err := r.db.WithContext(ctx).Raw(`
		SELECT `+dispatchDetailColumns+dispatchDetailFrom+`
		WHERE d.id = ?
		LIMIT 1
	`, id).Scan(&detail).Error; err != nil {
		return nil, err
	}
	if detail.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &detail, nil
}

// GetDispatchByReport prefers the active dispatch of the report, else its most recent one.
func (r *DispatchRepository) GetDispatchByReport(ctx context.Context, reportID uuid.UUID) (*model.DispatchDetail, error) {
	var detail model.DispatchDetail
	if err := r.db.WithContext(ctx).Raw(`
		SELECT `+dispatchDetailColumns+dispatchDetailFrom+`
		WHERE d.waste_report_id = ?
		ORDER BY (d.status NOT IN ('completed', 'cancelled')) DESC, d.created_at DESC
		LIMIT 1
	`, reportID).Scan(&detail).Error; err != nil {
		return nil, err
	}
	if detail.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &detail, nil
}

func (r *DispatchRepository) ListDispatches(
	ctx context.Context,
	filter model.DispatchFilter,
	page model.Page,
) ([]model.DispatchDetail, int64, error) {
	where, args := dispatchFilterClause(filter)

	var total int64
	if err := r.db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM dispatches d`+where, args...).
		Scan(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []model.DispatchDetail
	args = append(args, page.PageSize, page.Offset())
	if err := r.db.WithContext(ctx).Raw(`
		SELECT `+dispatchDetailColumns+dispatchDetailFrom+where+`
		ORDER BY d.created_at DESC, d.id
		LIMIT ? OFFSET ?
	`, args...).Scan(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListDispatchRegister returns every dispatch scheduled in [from, to) ordered by team then date.
func (r *DispatchRepository) ListDispatchRegister(ctx context.Context, from, to time.Time) ([]model.DispatchDetail, error) {
	var rows []model.DispatchDetail
	if err := r.db.WithContext(ctx).Raw(`
		SELECT `+dispatchDetailColumns+dispatchDetailFrom+`
		WHERE d.scheduled_date >= ? AND d.scheduled_date < ?
		ORDER BY team_name ASC, d.scheduled_date ASC, d.id
	`, from, to).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func dispatchFilterClause(filter model.DispatchFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	if filter.Status != nil {
		conditions = append(conditions, "d.status = ?")
		args = append(args, *filter.Status)
	}
	if filter.TeamID != nil {
		conditions = append(conditions, "d.team_id = ?")
		args = append(args, *filter.TeamID)
	}
	if filter.From != nil {
		conditions = append(conditions, "d.scheduled_date >= ?")
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, "d.scheduled_date < ?")
		args = append(args, *filter.To)
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
