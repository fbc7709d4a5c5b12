package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/nurpe/waste-dispatch/internal/geo"
	"github.com/nurpe/waste-dispatch/internal/model"
	"github.com/nurpe/waste-dispatch/internal/repository"
)

const pickupCellLevel = 13

type DispatchService struct {
	dispatches       DispatchStore
	reports          ReportStore
	fleet            FleetStore
	users            UserStore
	excel            ExcelGenerator
	pdf              PDFGenerator
	metrics          Metrics
	unread           unreadCounters
	completionPoints int64
	log              zerolog.Logger
}

func NewDispatchService(
	dispatches DispatchStore,
	reports ReportStore,
	fleet FleetStore,
	users UserStore,
	excel ExcelGenerator,
	pdf PDFGenerator,
	cache UnreadCache,
	metrics Metrics,
	completionPoints int64,
	log zerolog.Logger,
) *DispatchService {
	return &DispatchService{
		dispatches:       dispatches,
		reports:          reports,
		fleet:            fleet,
		users:            users,
		excel:            excel,
		pdf:              pdf,
		metrics:          metrics,
		unread:           unreadCounters{cache: cache, log: log},
		completionPoints: completionPoints,
		log:              log,
	}
}

type CreateAutoDispatchInput struct {
	Principal     model.Principal
	ReportID      uuid.UUID
	Priority      model.Priority
	ScheduledDate *time.Time
}

type CreateManualDispatchInput struct {
	Principal     model.Principal
	ReportID      uuid.UUID
	TeamID        uuid.UUID
	TruckID       uuid.UUID
	Priority      model.Priority
	ScheduledDate *time.Time
}

type UpdateDispatchStatusInput struct {
	Principal        model.Principal
	DispatchID       uuid.UUID
	Status           model.DispatchStatus
	Notes            *string
	Images           []string
	EstimatedArrival *time.Time
}

// CreateAutoDispatch picks the best available crew for the report and dispatches it.
// Candidates taken by a concurrent request are skipped in favour of the next one.
func (s *DispatchService) CreateAutoDispatch(ctx context.Context, input CreateAutoDispatchInput) (*model.DispatchDetail, error) {
	if err := requireAdmin(input.Principal); err != nil {
		return nil, err
	}
	priority, err := resolvePriority(input.Priority)
	if err != nil {
		return nil, err
	}
	report, err := s.pendingReport(ctx, input.ReportID)
	if err != nil {
		return nil, err
	}

	specializations := model.CompatibleSpecializations(report.DominantWasteType)
	candidates, err := s.fleet.ListCandidates(ctx, specializations)
	if err != nil {
		return nil, err
	}
	candidates = rankCandidates(candidates, specializations[0], report.Location())

	for _, candidate := range candidates {
		dispatch := newDispatch(*report, candidate.TeamID, candidate.TruckID, priority, input.ScheduledDate, model.DispatchModeAuto)
		detail, err := s.create(ctx, dispatch, *report, candidate.TeamName, candidate.RegistrationNumber)
		if errors.Is(err, repository.ErrCrewUnavailable) {
			s.log.Debug().
				Str("truck_id", candidate.TruckID.String()).
				Str("report_id", report.ID.String()).
				Msg("candidate taken, trying next")
			continue
		}
		if err != nil {
			return nil, err
		}
		return detail, nil
	}
	return nil, fmt.Errorf("%w: no active %s team with an available truck", ErrNoCapacity, joinSpecializations(specializations))
}

// CreateManualDispatch dispatches the caller's choice of team and truck.
func (s *DispatchService) CreateManualDispatch(ctx context.Context, input CreateManualDispatchInput) (*model.DispatchDetail, error) {
	if err := requireAdmin(input.Principal); err != nil {
		return nil, err
	}
	if input.TeamID == uuid.Nil {
		return nil, fmt.Errorf("%w: team_id is required", ErrValidation)
	}
	if input.TruckID == uuid.Nil {
		return nil, fmt.Errorf("%w: truck_id is required", ErrValidation)
	}
	priority, err := resolvePriority(input.Priority)
	if err != nil {
		return nil, err
	}
	report, err := s.pendingReport(ctx, input.ReportID)
	if err != nil {
		return nil, err
	}

	team, err := s.fleet.GetTeam(ctx, input.TeamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: team_id: team not found", ErrValidation)
		}
		return nil, err
	}
	truck, err := s.fleet.GetTruck(ctx, input.TruckID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: truck_id: truck not found", ErrValidation)
		}
		return nil, err
	}
	if truck.AssignedTeamID == nil || *truck.AssignedTeamID != team.ID {
		return nil, fmt.Errorf("%w: truck_id: truck does not belong to team", ErrValidation)
	}
	if truck.Status != model.TruckStatusAvailable {
		return nil, fmt.Errorf("%w: truck_id: truck is %s", ErrValidation, truck.Status)
	}
	if team.Status != model.TeamStatusActive {
		return nil, fmt.Errorf("%w: team_id: team is %s", ErrValidation, team.Status)
	}

	dispatch := newDispatch(*report, team.ID, truck.ID, priority, input.ScheduledDate, model.DispatchModeManual)
	detail, err := s.create(ctx, dispatch, *report, team.Name, truck.RegistrationNumber)
	if errors.Is(err, repository.ErrCrewUnavailable) {
		return nil, fmt.Errorf("%w: truck_id: truck is no longer available", ErrValidation)
	}
	return detail, err
}

func (s *DispatchService) pendingReport(ctx context.Context, reportID uuid.UUID) (*model.WasteReport, error) {
	if reportID == uuid.Nil {
		return nil, fmt.Errorf("%w: waste_report_id is required", ErrValidation)
	}
	report, err := s.reports.GetReport(ctx, reportID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if report.Status != model.ReportStatusPendingDispatch {
		return nil, fmt.Errorf("%w: report is %s, not pending dispatch", ErrNotFound, report.Status)
	}
	return report, nil
}

func (s *DispatchService) create(
	ctx context.Context,
	dispatch model.Dispatch,
	report model.WasteReport,
	teamName string,
	registration string,
) (*model.DispatchDetail, error) {
	notice := model.Notice{
		Type:     model.NotificationDispatchAssigned,
		Title:    "New collection assigned",
		Message:  fmt.Sprintf("Truck %s is assigned to collect %s waste at %s.", registration, displayMaterial(report.DominantWasteType), displayAddress(report)),
		Priority: dispatch.Priority,
		Related:  model.DispatchRef(dispatch.ID),
		Metadata: map[string]interface{}{
			"waste_report_id": report.ID.String(),
			"scheduled_date":  dispatch.ScheduledDate.Format(time.RFC3339),
			"pickup_cell":     geo.CellToken(report.Latitude, report.Longitude, pickupCellLevel),
		},
	}

	recipients, err := s.dispatches.CreateDispatch(ctx, dispatch, notice)
	if err != nil {
		if errors.Is(err, repository.ErrReportNotPending) {
			return nil, fmt.Errorf("%w: report is no longer pending dispatch", ErrNotFound)
		}
		return nil, err
	}

	s.unread.touch(ctx, recipients)
	s.metrics.DispatchCreated(dispatch.Mode)
	s.log.Info().
		Str("dispatch_id", dispatch.ID.String()).
		Str("report_id", report.ID.String()).
		Str("mode", string(dispatch.Mode)).
		Msg("dispatch created")

	return &model.DispatchDetail{
		Dispatch:           dispatch,
		TeamName:           teamName,
		RegistrationNumber: registration,
		DominantWasteType:  report.DominantWasteType,
		VolumeValue:        report.VolumeValue,
		VolumeUnit:         string(report.VolumeUnit),
	}, nil
}

// UpdateDispatchStatus advances a dispatch along its lifecycle.
func (s *DispatchService) UpdateDispatchStatus(ctx context.Context, input UpdateDispatchStatusInput) (*model.DispatchDetail, error) {
	if !input.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, input.Status)
	}
	current, err := s.dispatches.GetDispatch(ctx, input.DispatchID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if err := s.authorizeCrew(ctx, input.Principal, current.Dispatch); err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(input.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, input.Status)
	}

	now := nowUTC()
	notes := trimmed(input.Notes)
	transition := model.DispatchTransition{
		DispatchID:       current.ID,
		ExpectedStatus:   current.Status,
		Status:           input.Status,
		CollectionNotes:  notes,
		CollectionImages: mergeImages(current.CollectionImages, input.Images),
		UpdatedAt:        now,
		ReportID:         current.WasteReportID,
		ReportStatus:     model.ReportStatusFor(current.Status, input.Status),
		TeamID:           current.TeamID,
	}

	switch input.Status {
	case model.DispatchStatusEnRoute:
		transition.EstimatedArrival = input.EstimatedArrival
	case model.DispatchStatusCollected:
		transition.ActualCollectionDate = &now
		transition.CollectionVerified = notes != nil || len(input.Images) > 0
	case model.DispatchStatusCompleted:
		if err := s.completionAward(ctx, current, &transition); err != nil {
			return nil, err
		}
	}
	if model.ReleasesTruck(current.Status, input.Status) && current.TruckID != nil {
		truckID := *current.TruckID
		transition.ReleaseTruck = &truckID
	}

	transition.TeamNotice = &model.Notice{
		Type:     model.NotificationDispatchUpdate,
		Title:    "Dispatch updated",
		Message:  fmt.Sprintf("Dispatch for %s moved from %s to %s.", displayAddressOf(current), current.Status, input.Status),
		Priority: current.Priority,
		Related:  model.DispatchRef(current.ID),
		Metadata: map[string]interface{}{"from": string(current.Status), "to": string(input.Status)},
	}

	recipients, err := s.dispatches.UpdateDispatchStatus(ctx, transition)
	if err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, fmt.Errorf("%w: dispatch is no longer %s", ErrInvalidTransition, current.Status)
		}
		return nil, mapStoreError(err)
	}

	s.unread.touch(ctx, recipients)
	s.metrics.DispatchTransitioned(input.Status)

	updated, err := s.dispatches.GetDispatch(ctx, current.ID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return updated, nil
}

// completionAward credits the reporter when completion points are configured.
func (s *DispatchService) completionAward(ctx context.Context, current *model.DispatchDetail, t *model.DispatchTransition) error {
	if s.completionPoints <= 0 {
		return nil
	}
	report, err := s.reports.GetReport(ctx, current.WasteReportID)
	if err != nil {
		return mapStoreError(err)
	}
	reportID := report.ID
	award := model.NewCredit(report.SubmitterID, s.completionPoints, model.RewardReasonCleanupVerified, &reportID, t.UpdatedAt)
	t.Award = &award
	t.PointsAwarded = s.completionPoints
	t.Notices = append(t.Notices, model.Notice{
		Type:     model.NotificationCleanupVerified,
		Title:    "Cleanup verified",
		Message:  fmt.Sprintf("The waste you reported was collected. You earned %d points.", s.completionPoints),
		Related:  model.WasteReportRef(report.ID),
		Metadata: map[string]interface{}{"points": s.completionPoints, "dispatch_id": current.ID.String()},
	}.For(report.SubmitterID, t.UpdatedAt))
	return nil
}

// authorizeCrew lets admins through and limits collectors to dispatches of their own teams.
func (s *DispatchService) authorizeCrew(ctx context.Context, principal model.Principal, dispatch model.Dispatch) error {
	if principal.IsAdmin() {
		return nil
	}
	if !principal.IsCollector() || dispatch.TeamID == nil {
		return ErrForbidden
	}
	members, err := s.fleet.ListTeamMemberIDs(ctx, *dispatch.TeamID)
	if err != nil {
		return err
	}
	for _, id := range members {
		if id == principal.UserID {
			return nil
		}
	}
	return ErrForbidden
}

func (s *DispatchService) GetDispatch(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.DispatchDetail, error) {
	detail, err := s.dispatches.GetDispatch(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if err := s.authorizeView(ctx, principal, detail); err != nil {
		return nil, err
	}
	return detail, nil
}

// GetDispatchByReport returns the report's active dispatch, else its latest one.
func (s *DispatchService) GetDispatchByReport(ctx context.Context, principal model.Principal, reportID uuid.UUID) (*model.DispatchDetail, error) {
	detail, err := s.dispatches.GetDispatchByReport(ctx, reportID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if err := s.authorizeView(ctx, principal, detail); err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *DispatchService) authorizeView(ctx context.Context, principal model.Principal, detail *model.DispatchDetail) error {
	if !principal.IsUser() {
		return nil
	}
	report, err := s.reports.GetReport(ctx, detail.WasteReportID)
	if err != nil {
		return mapStoreError(err)
	}
	if report.SubmitterID != principal.UserID {
		return ErrForbidden
	}
	return nil
}

func (s *DispatchService) ListDispatches(
	ctx context.Context,
	principal model.Principal,
	filter model.DispatchFilter,
	page model.Page,
) (model.Paginated[model.DispatchDetail], error) {
	if principal.IsUser() {
		return model.Paginated[model.DispatchDetail]{}, ErrForbidden
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return model.Paginated[model.DispatchDetail]{}, fmt.Errorf("%w: unknown status %q", ErrValidation, *filter.Status)
	}
	page = page.Normalize()
	rows, total, err := s.dispatches.ListDispatches(ctx, filter, page)
	if err != nil {
		return model.Paginated[model.DispatchDetail]{}, err
	}
	return model.NewPaginated(rows, page, total), nil
}

// ExportDispatches renders the register of dispatches scheduled between the two dates inclusive.
func (s *DispatchService) ExportDispatches(ctx context.Context, principal model.Principal, from, to time.Time) (*FileResult, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	if from.IsZero() || to.IsZero() {
		return nil, fmt.Errorf("%w: period dates are required", ErrValidation)
	}
	periodStart := dateOnly(from)
	periodEnd := dateOnly(to)
	if periodStart.After(periodEnd) {
		return nil, fmt.Errorf("%w: from must be before or equal to to", ErrValidation)
	}

	rows, err := s.dispatches.ListDispatchRegister(ctx, periodStart, periodEnd.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	content, err := s.excel.DispatchRegister(model.DispatchRegister{
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Rows:        rows,
	})
	if err != nil {
		return nil, err
	}
	return &FileResult{
		FileName: fmt.Sprintf("dispatches-%s-%s.xlsx", periodStart.Format("20060102"), periodEnd.Format("20060102")),
		Content:  content,
	}, nil
}

// CollectionSheet renders the printable sheet a crew takes to the pickup point.
func (s *DispatchService) CollectionSheet(ctx context.Context, principal model.Principal, id uuid.UUID) (*FileResult, error) {
	detail, err := s.dispatches.GetDispatch(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if err := s.authorizeCrew(ctx, principal, detail.Dispatch); err != nil {
		return nil, err
	}
	report, err := s.reports.GetReport(ctx, detail.WasteReportID)
	if err != nil {
		return nil, mapStoreError(err)
	}

	var members []model.User
	if detail.TeamID != nil {
		ids, err := s.fleet.ListTeamMemberIDs(ctx, *detail.TeamID)
		if err != nil {
			return nil, err
		}
		if members, err = s.users.ListUsersByIDs(ctx, ids); err != nil {
			return nil, err
		}
	}

	content, err := s.pdf.CollectionSheet(model.CollectionSheet{
		Detail:  *detail,
		Members: members,
		Report:  *report,
	})
	if err != nil {
		return nil, err
	}
	return &FileResult{
		FileName: fmt.Sprintf("collection-sheet-%s.pdf", detail.ID),
		Content:  content,
	}, nil
}

func newDispatch(
	report model.WasteReport,
	teamID, truckID uuid.UUID,
	priority model.Priority,
	scheduled *time.Time,
	mode model.DispatchMode,
) model.Dispatch {
	now := nowUTC()
	scheduledDate := now
	if scheduled != nil && !scheduled.IsZero() {
		scheduledDate = scheduled.UTC()
	}
	return model.Dispatch{
		ID:               uuid.New(),
		WasteReportID:    report.ID,
		TeamID:           &teamID,
		TruckID:          &truckID,
		PickupLongitude:  report.Longitude,
		PickupLatitude:   report.Latitude,
		PickupAddress:    report.Address,
		Status:           model.DispatchStatusAssigned,
		Priority:         priority,
		Mode:             mode,
		ScheduledDate:    scheduledDate,
		CollectionImages: []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// rankCandidates orders specialists first, then by distance to the pickup point.
// Trucks without a known position sort after located ones.
func rankCandidates(candidates []model.CrewCandidate, preferred model.Specialization, pickup model.Location) []model.CrewCandidate {
	type ranked struct {
		candidate  model.CrewCandidate
		specialist bool
		located    bool
		distance   float64
	}
	items := make([]ranked, len(candidates))
	for i, c := range candidates {
		item := ranked{candidate: c, specialist: c.Specialization == preferred}
		if c.Longitude != nil && c.Latitude != nil {
			item.located = true
			item.distance = geo.DistanceMeters(*c.Latitude, *c.Longitude, pickup.Latitude, pickup.Longitude)
		}
		items[i] = item
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.specialist != b.specialist {
			return a.specialist
		}
		if a.located != b.located {
			return a.located
		}
		if a.distance != b.distance {
			return a.distance < b.distance
		}
		return a.candidate.RegistrationNumber < b.candidate.RegistrationNumber
	})
	out := make([]model.CrewCandidate, len(items))
	for i, item := range items {
		out[i] = item.candidate
	}
	return out
}

func resolvePriority(p model.Priority) (model.Priority, error) {
	if p == "" {
		return model.PriorityNormal, nil
	}
	p = model.Priority(strings.ToLower(string(p)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: priority must be one of low, normal, high, urgent", ErrValidation)
	}
	return p, nil
}

func mergeImages(existing []string, added []string) []string {
	out := make([]string, 0, len(existing)+len(added))
	seen := make(map[string]struct{}, len(existing)+len(added))
	for _, list := range [][]string{existing, added} {
		for _, img := range list {
			img = strings.TrimSpace(img)
			if img == "" {
				continue
			}
			if _, ok := seen[img]; ok {
				continue
			}
			seen[img] = struct{}{}
			out = append(out, img)
		}
	}
	return out
}

func joinSpecializations(specs []model.Specialization) string {
	parts := make([]string, len(specs))
	for i, s := range specs {
		parts[i] = string(s)
	}
	return strings.Join(parts, "/")
}

func displayAddress(report model.WasteReport) string {
	if report.Address != "" {
		return report.Address
	}
	return fmt.Sprintf("%.5f, %.5f", report.Latitude, report.Longitude)
}

func displayAddressOf(detail *model.DispatchDetail) string {
	if detail.PickupAddress != "" {
		return detail.PickupAddress
	}
	return fmt.Sprintf("%.5f, %.5f", detail.PickupLatitude, detail.PickupLongitude)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
