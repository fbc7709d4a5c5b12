package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/waste-dispatch/internal/model"
)

const reportColumns = `
	id,
	submitter_id,
	image_url,
	contains_waste,
	waste_categories,
	dominant_waste_type,
	volume_value,
	volume_unit,
	possible_source,
	environmental_impact,
	confidence_level,
	longitude,
	latitude,
	address,
	status,
	error_message,
	created_at,
	updated_at
`

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// CreateReport stores the report together with the submission award and its notifications.
func (r *ReportRepository) CreateReport(
	ctx context.Context,
	report model.WasteReport,
	award *model.LedgerEntry,
	notifications []model.Notification,
) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`
			INSERT INTO waste_reports (`+reportColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			report.ID,
			report.SubmitterID,
			report.ImageURL,
			report.ContainsWaste,
			report.WasteCategories,
			report.DominantWasteType,
			report.VolumeValue,
			report.VolumeUnit,
			report.PossibleSource,
			report.EnvironmentalImpact,
			report.ConfidenceLevel,
			report.Longitude,
			report.Latitude,
			report.Address,
			report.Status,
			report.ErrorMessage,
			report.CreatedAt,
			report.UpdatedAt,
		).Error; err != nil {
			if err = translate(err); errors.Is(err, ErrReferenced) {
				return gorm.ErrRecordNotFound
			}
			return err
		}

		if award != nil {
			if err := appendLedger(tx, *award); err != nil {
				return err
			}
		}
		return insertNotifications(tx, notifications)
	})
}

func (r *ReportRepository) GetReport(ctx context.Context, id uuid.UUID) (*model.WasteReport, error) {
	var report model.WasteReport
	if err := r.db.WithContext(ctx).Raw(`
		SELECT `+reportColumns+`
		FROM waste_reports
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&report).Error; err != nil {
		return nil, err
	}
	if report.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &report, nil
}

func (r *ReportRepository) ListReports(
	ctx context.Context,
	filter model.ReportFilter,
	page model.Page,
) ([]model.WasteReport, int64, error) {
	where, args := reportFilterClause(filter)

	var total int64
	if err := r.db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM waste_reports`+where, args...).
		Scan(&total).Error; err != nil {
		return nil, 0, err
	}

	var reports []model.WasteReport
	args = append(args, page.PageSize, page.Offset())
	if err := r.db.WithContext(ctx).Raw(`
		SELECT `+reportColumns+`
		FROM waste_reports`+where+`
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, args...).Scan(&reports).Error; err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

func reportFilterClause(filter model.ReportFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.SubmitterID != nil {
		conditions = append(conditions, "submitter_id = ?")
		args = append(args, *filter.SubmitterID)
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
