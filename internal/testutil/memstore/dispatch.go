package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/waste-dispatch/internal/model"
	"github.com/nurpe/waste-dispatch/internal/repository"
)

// ---- reports ----

func (s *Store) CreateReport(_ context.Context, report model.WasteReport, award *model.LedgerEntry, notifications []model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("CreateReport"); err != nil {
		return err
	}
	if _, ok := s.users[report.SubmitterID]; !ok {
		return gorm.ErrRecordNotFound
	}
	if award != nil {
		if err := s.checkLedger(*award); err != nil {
			return err
		}
	}
	if err := s.checkNotifications(notifications); err != nil {
		return err
	}
	s.reports[report.ID] = stamped[model.WasteReport]{seq: s.next(), value: report}
	if award != nil {
		s.putLedger(*award)
	}
	s.putNotifications(notifications)
	return nil
}

func (s *Store) GetReport(_ context.Context, id uuid.UUID) (*model.WasteReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	report := r.value
	return &report, nil
}

func (s *Store) ListReports(_ context.Context, filter model.ReportFilter, page model.Page) ([]model.WasteReport, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []stamped[model.WasteReport]
	for _, r := range s.reports {
		if filter.Status != nil && r.value.Status != *filter.Status {
			continue
		}
		if filter.SubmitterID != nil && r.value.SubmitterID != *filter.SubmitterID {
			continue
		}
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })
	out := make([]model.WasteReport, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.value)
	}
	return paginate(out, page), int64(len(out)), nil
}

// ---- dispatches ----

func (s *Store) CreateDispatch(_ context.Context, dispatch model.Dispatch, notice model.Notice) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("CreateDispatch"); err != nil {
		return nil, err
	}
	report, ok := s.reports[dispatch.WasteReportID]
	if !ok || report.value.Status != model.ReportStatusPendingDispatch {
		return nil, repository.ErrReportNotPending
	}
	if dispatch.TruckID == nil || dispatch.TeamID == nil {
		return nil, repository.ErrCrewUnavailable
	}
	truck, ok := s.trucks[*dispatch.TruckID]
	team, teamOK := s.teams[*dispatch.TeamID]
	if !ok || !teamOK ||
		truck.Status != model.TruckStatusAvailable ||
		truck.AssignedTeamID == nil || *truck.AssignedTeamID != team.ID ||
		team.Status != model.TeamStatusActive {
		return nil, repository.ErrCrewUnavailable
	}
	if s.hasActiveDispatch(func(d model.Dispatch) bool { return d.WasteReportID == dispatch.WasteReportID }) {
		return nil, repository.ErrReportNotPending
	}
	recipients := append([]uuid.UUID(nil), s.members[team.ID]...)
	sortIDs(recipients)
	notifications := notice.Fanout(recipients, dispatch.CreatedAt)
	if err := s.checkNotifications(notifications); err != nil {
		return nil, err
	}

	report.value.Status = model.ReportStatusDispatched
	report.value.UpdatedAt = dispatch.CreatedAt
	s.reports[report.value.ID] = report
	truck.Status = model.TruckStatusInUse
	truck.UpdatedAt = dispatch.CreatedAt
	s.trucks[truck.ID] = truck
	s.dispatches[dispatch.ID] = stamped[model.Dispatch]{seq: s.next(), value: dispatch}
	s.putNotifications(notifications)
	return recipients, nil
}

func (s *Store) UpdateDispatchStatus(_ context.Context, t model.DispatchTransition) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("UpdateDispatchStatus"); err != nil {
		return nil, err
	}
	row, ok := s.dispatches[t.DispatchID]
	if !ok || row.value.Status != t.ExpectedStatus {
		return nil, repository.ErrStaleStatus
	}
	if t.Award != nil {
		if err := s.checkLedger(*t.Award); err != nil {
			return nil, err
		}
	}
	notifications := append([]model.Notification(nil), t.Notices...)
	if t.TeamNotice != nil && t.TeamID != nil {
		members := append([]uuid.UUID(nil), s.members[*t.TeamID]...)
		sortIDs(members)
		notifications = append(notifications, t.TeamNotice.Fanout(members, t.UpdatedAt)...)
	}
	if err := s.checkNotifications(notifications); err != nil {
		return nil, err
	}

	d := row.value
	d.Status = t.Status
	if t.EstimatedArrival != nil {
		d.EstimatedArrival = t.EstimatedArrival
	}
	if t.ActualCollectionDate != nil {
		d.ActualCollectionDate = t.ActualCollectionDate
	}
	d.CollectionVerified = d.CollectionVerified || t.CollectionVerified
	if t.CollectionNotes != nil {
		d.CollectionNotes = t.CollectionNotes
	}
	d.CollectionImages = append([]string{}, t.CollectionImages...)
	d.PointsAwarded += t.PointsAwarded
	d.UpdatedAt = t.UpdatedAt
	row.value = d
	s.dispatches[d.ID] = row

	if report, ok := s.reports[t.ReportID]; ok {
		report.value.Status = t.ReportStatus
		report.value.UpdatedAt = t.UpdatedAt
		s.reports[t.ReportID] = report
	}
	if t.ReleaseTruck != nil {
		if truck, ok := s.trucks[*t.ReleaseTruck]; ok && truck.Status == model.TruckStatusInUse {
			truck.Status = model.TruckStatusAvailable
			truck.UpdatedAt = t.UpdatedAt
			s.trucks[truck.ID] = truck
		}
	}
	if t.Award != nil {
		s.putLedger(*t.Award)
	}
	s.putNotifications(notifications)

	recipients := make([]uuid.UUID, 0, len(notifications))
	for _, n := range notifications {
		recipients = append(recipients, n.RecipientID)
	}
	return recipients, nil
}

func (s *Store) detailLocked(d model.Dispatch) model.DispatchDetail {
	detail := model.DispatchDetail{Dispatch: d}
	if d.TeamID != nil {
		detail.TeamName = s.teams[*d.TeamID].Name
	}
	if d.TruckID != nil {
		detail.RegistrationNumber = s.trucks[*d.TruckID].RegistrationNumber
	}
	if r, ok := s.reports[d.WasteReportID]; ok {
		detail.DominantWasteType = r.value.DominantWasteType
		detail.VolumeValue = r.value.VolumeValue
		detail.VolumeUnit = string(r.value.VolumeUnit)
	}
	return detail
}

func (s *Store) GetDispatch(_ context.Context, id uuid.UUID) (*model.DispatchDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.dispatches[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	detail := s.detailLocked(row.value)
	return &detail, nil
}

func (s *Store) GetDispatchByReport(_ context.Context, reportID uuid.UUID) (*model.DispatchDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *stamped[model.Dispatch]
	for _, row := range s.dispatches {
		if row.value.WasteReportID != reportID {
			continue
		}
		row := row
		switch {
		case best == nil:
			best = &row
		case row.value.Status.IsActive() != best.value.Status.IsActive():
			if row.value.Status.IsActive() {
				best = &row
			}
		case row.seq > best.seq:
			best = &row
		}
	}
	if best == nil {
		return nil, gorm.ErrRecordNotFound
	}
	detail := s.detailLocked(best.value)
	return &detail, nil
}

func (s *Store) ListDispatches(_ context.Context, filter model.DispatchFilter, page model.Page) ([]model.DispatchDetail, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []stamped[model.Dispatch]
	for _, row := range s.dispatches {
		d := row.value
		if filter.Status != nil && d.Status != *filter.Status {
			continue
		}
		if filter.TeamID != nil && (d.TeamID == nil || *d.TeamID != *filter.TeamID) {
			continue
		}
		if filter.From != nil && d.ScheduledDate.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !d.ScheduledDate.Before(*filter.To) {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })
	out := make([]model.DispatchDetail, 0, len(rows))
	for _, row := range rows {
		out = append(out, s.detailLocked(row.value))
	}
	return paginate(out, page), int64(len(out)), nil
}

func (s *Store) ListDispatchRegister(_ context.Context, from, to time.Time) ([]model.DispatchDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.DispatchDetail
	for _, row := range s.dispatches {
		d := row.value
		if d.ScheduledDate.Before(from) || !d.ScheduledDate.Before(to) {
			continue
		}
		out = append(out, s.detailLocked(d))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TeamName != out[j].TeamName {
			return out[i].TeamName < out[j].TeamName
		}
		return out[i].ScheduledDate.Before(out[j].ScheduledDate)
	})
	return out, nil
}
