package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/waste-dispatch/internal/model"
)

type ReportService struct {
	reports       ReportStore
	users         UserStore
	images        ImageStore
	classifier    Classifier
	metrics       Metrics
	unread        unreadCounters
	reportPoints  int64
	maxImageBytes int64
	log           zerolog.Logger
}

type ReportServiceConfig struct {
	ReportPoints  int64
	MaxImageBytes int64
}

func NewReportService(
	reports ReportStore,
	users UserStore,
	images ImageStore,
	classifier Classifier,
	cache UnreadCache,
	metrics Metrics,
	cfg ReportServiceConfig,
	log zerolog.Logger,
) *ReportService {
	return &ReportService{
		reports:       reports,
		users:         users,
		images:        images,
		classifier:    classifier,
		metrics:       metrics,
		unread:        unreadCounters{cache: cache, log: log},
		reportPoints:  cfg.ReportPoints,
		maxImageBytes: cfg.MaxImageBytes,
		log:           log,
	}
}

type SubmitReportInput struct {
	Principal   model.Principal
	Image       []byte
	ContentType string
	Location    model.Location
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
	"image/heic": ".heic",
}

// SubmitReport uploads the image, classifies it and stores the resulting report.
// A classification failure is still stored, with status error, and reported as ErrExternalService.
func (s *ReportService) SubmitReport(ctx context.Context, input SubmitReportInput) (*model.WasteReport, error) {
	contentType := strings.ToLower(strings.TrimSpace(input.ContentType))
	if len(input.Image) == 0 {
		return nil, fmt.Errorf("%w: image is required", ErrValidation)
	}
	if s.maxImageBytes > 0 && int64(len(input.Image)) > s.maxImageBytes {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", ErrValidation, s.maxImageBytes)
	}
	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported image type %q", ErrValidation, input.ContentType)
	}
	if !input.Location.Valid() {
		return nil, fmt.Errorf("%w: coordinates out of range", ErrValidation)
	}
	if _, err := s.users.GetUser(ctx, input.Principal.UserID); err != nil {
		return nil, mapStoreError(err)
	}

	now := nowUTC()
	report := model.WasteReport{
		ID:              uuid.New(),
		SubmitterID:     input.Principal.UserID,
		WasteCategories: []model.WasteCategory{},
		VolumeUnit:      model.VolumeUnitKg,
		Longitude:       input.Location.Longitude,
		Latitude:        input.Location.Latitude,
		Address:         strings.TrimSpace(input.Location.Address),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	objectName := fmt.Sprintf("reports/%s/%s%s", now.Format("2006/01/02"), report.ID, ext)
	url, err := s.images.Put(ctx, objectName, input.Image, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: image upload: %v", ErrExternalService, err)
	}
	report.ImageURL = url

	classification, classifyErr := s.classifier.Classify(ctx, input.Image, contentType)
	var award *model.LedgerEntry
	var notifications []model.Notification
	switch {
	case classifyErr != nil:
		msg := classifyErr.Error()
		report.Status = model.ReportStatusError
		report.ErrorMessage = &msg
	case classification.ErrorMessage != nil && strings.TrimSpace(*classification.ErrorMessage) != "":
		report.ApplyClassification(classification)
		report.Status = model.ReportStatusError
		report.ErrorMessage = classification.ErrorMessage
	default:
		report.ApplyClassification(classification)
		if report.WasteCategories == nil {
			report.WasteCategories = []model.WasteCategory{}
		}
		if report.Status == model.ReportStatusPendingDispatch {
			award, notifications = s.submissionRewards(report, now)
		}
	}

	if err := s.reports.CreateReport(ctx, report, award, notifications); err != nil {
		if removeErr := s.images.Remove(ctx, objectName); removeErr != nil {
			s.log.Warn().Err(removeErr).Str("object", objectName).Msg("failed to remove orphaned image")
		}
		return nil, mapStoreError(err)
	}

	s.unread.touch(ctx, recipientsOf(notifications))
	s.metrics.ReportSubmitted(report.Status)

	if classifyErr != nil {
		return &report, fmt.Errorf("%w: classification: %v", ErrExternalService, classifyErr)
	}
	return &report, nil
}

func (s *ReportService) submissionRewards(report model.WasteReport, now time.Time) (*model.LedgerEntry, []model.Notification) {
	reportRef := model.WasteReportRef(report.ID)
	notifications := []model.Notification{
		model.Notice{
			Type:    model.NotificationWasteReport,
			Title:   "Waste report received",
			Message: fmt.Sprintf("Your report of %s waste is waiting for a collection crew.", displayMaterial(report.DominantWasteType)),
			Related: reportRef,
		}.For(report.SubmitterID, now),
	}
	if s.reportPoints <= 0 {
		return nil, notifications
	}

	reportID := report.ID
	entry := model.NewCredit(report.SubmitterID, s.reportPoints, model.RewardReasonWasteReport, &reportID, now)
	notifications = append(notifications, model.Notice{
		Type:     model.NotificationRewardEarned,
		Title:    "Points earned",
		Message:  fmt.Sprintf("You earned %d points for reporting waste.", s.reportPoints),
		Related:  reportRef,
		Metadata: map[string]interface{}{"points": s.reportPoints},
	}.For(report.SubmitterID, now))
	return &entry, notifications
}

func (s *ReportService) GetReport(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.WasteReport, error) {
	report, err := s.reports.GetReport(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if principal.IsUser() && report.SubmitterID != principal.UserID {
		return nil, ErrForbidden
	}
	return report, nil
}

// ListReports lists newest first. Plain users only ever see their own reports.
func (s *ReportService) ListReports(
	ctx context.Context,
	principal model.Principal,
	filter model.ReportFilter,
	page model.Page,
) (model.Paginated[model.WasteReport], error) {
	page = page.Normalize()
	if principal.IsUser() {
		own := principal.UserID
		filter.SubmitterID = &own
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return model.Paginated[model.WasteReport]{}, fmt.Errorf("%w: unknown status %q", ErrValidation, *filter.Status)
	}
	reports, total, err := s.reports.ListReports(ctx, filter, page)
	if err != nil {
		return model.Paginated[model.WasteReport]{}, err
	}
	return model.NewPaginated(reports, page, total), nil
}

func displayMaterial(material string) string {
	material = strings.TrimSpace(material)
	if material == "" {
		return "unclassified"
	}
	return material
}
