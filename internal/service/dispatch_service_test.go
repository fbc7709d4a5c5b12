package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/waste-dispatch/internal/model"
)

func autoDispatch(t *testing.T, f *fixture, svc *DispatchService, reportID uuid.UUID) *model.DispatchDetail {
	t.Helper()
	detail, err := svc.CreateAutoDispatch(context.Background(), CreateAutoDispatchInput{
		Principal: principalOf(f.admin),
		ReportID:  reportID,
	})
	require.NoError(t, err)
	return detail
}

func advance(t *testing.T, f *fixture, svc *DispatchService, dispatchID uuid.UUID, path ...model.DispatchStatus) {
	t.Helper()
	for _, status := range path {
		_, err := svc.UpdateDispatchStatus(context.Background(), UpdateDispatchStatusInput{
			Principal:  principalOf(f.admin),
			DispatchID: dispatchID,
			Status:     status,
		})
		require.NoError(t, err, "advance to %s", status)
	}
}

func TestAutoDispatchAssignsMatchingCrew(t *testing.T) {
	f := newFixture(t)
	team, truck := f.crew(model.SpecializationEWaste, "EW001", 43.24, 76.89)
	report := f.pendingReport("e-waste")
	svc := f.dispatchService(0)

	detail := autoDispatch(t, f, svc, report.ID)

	assert.Equal(t, model.DispatchStatusAssigned, detail.Status)
	assert.Equal(t, model.DispatchModeAuto, detail.Mode)
	assert.Equal(t, model.PriorityNormal, detail.Priority)
	assert.Equal(t, team.ID, *detail.TeamID)
	assert.Equal(t, truck.ID, *detail.TruckID)
	assert.Equal(t, "EW001", detail.RegistrationNumber)
	assert.Equal(t, report.Address, detail.PickupAddress)

	stored, err := f.store.GetReport(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReportStatusDispatched, stored.Status)

	gotTruck, err := f.store.GetTruck(context.Background(), truck.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TruckStatusInUse, gotTruck.Status)

	notes := f.store.NotificationsOf(f.collector.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, model.NotificationDispatchAssigned, notes[0].Type)
	assert.Equal(t, model.EntityDispatch, notes[0].RelatedKind)
	assert.Equal(t, detail.ID, *notes[0].RelatedID)
	assert.Contains(t, f.cache.invalidated, f.collector.ID)
	assert.Equal(t, 1, f.metrics.created[model.DispatchModeAuto])
}

func TestAutoDispatchWithoutCapacity(t *testing.T) {
	f := newFixture(t)
	f.crew(model.SpecializationOrganic, "OR001", 43.24, 76.89)
	report := f.pendingReport("e-waste")
	svc := f.dispatchService(0)

	_, err := svc.CreateAutoDispatch(context.Background(), CreateAutoDispatchInput{
		Principal: principalOf(f.admin),
		ReportID:  report.ID,
	})
	require.ErrorIs(t, err, ErrNoCapacity)

	stored, err := f.store.GetReport(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReportStatusPendingDispatch, stored.Status)
	assert.Empty(t, f.store.DispatchesOf(report.ID))
}

func TestAutoDispatchPrefersSpecialistThenDistance(t *testing.T) {
	f := newFixture(t)
	f.crew(model.SpecializationGeneral, "GEN01", 43.2389, 76.8897)
	_, far := f.crew(model.SpecializationRecyclables, "REC01", 43.30, 76.95)
	_, near := f.crew(model.SpecializationRecyclables, "REC02", 43.25, 76.90)
	report := f.pendingReport("plastic")
	svc := f.dispatchService(0)

	detail := autoDispatch(t, f, svc, report.ID)
	assert.Equal(t, near.ID, *detail.TruckID)
	assert.NotEqual(t, far.ID, *detail.TruckID)
}

func TestAutoDispatchFallsBackToGeneralCrew(t *testing.T) {
	f := newFixture(t)
	_, general := f.crew(model.SpecializationGeneral, "GEN01", 43.2389, 76.8897)
	report := f.pendingReport("cardboard")

	detail := autoDispatch(t, f, f.dispatchService(0), report.ID)
	assert.Equal(t, general.ID, *detail.TruckID)
}

func TestAutoDispatchRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	report := f.pendingReport("plastic")

	_, err := f.dispatchService(0).CreateAutoDispatch(context.Background(), CreateAutoDispatchInput{
		Principal: principalOf(f.collector),
		ReportID:  report.ID,
	})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAutoDispatchRejectsUnknownPriority(t *testing.T) {
	f := newFixture(t)
	report := f.pendingReport("plastic")

	_, err := f.dispatchService(0).CreateAutoDispatch(context.Background(), CreateAutoDispatchInput{
		Principal: principalOf(f.admin),
		ReportID:  report.ID,
		Priority:  "critical",
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestConcurrentDispatchCreatesOne(t *testing.T) {
	f := newFixture(t)
	f.crew(model.SpecializationGeneral, "GEN01", 43.24, 76.89)
	f.crew(model.SpecializationGeneral, "GEN02", 43.25, 76.90)
	report := f.pendingReport("mixed")
	svc := f.dispatchService(0)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateAutoDispatch(context.Background(), CreateAutoDispatchInput{
				Principal: principalOf(f.admin),
				ReportID:  report.ID,
			})
		}(i)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, ErrNotFound)
			failures++
		}
	}
	assert.Equal(t, 1, failures)
	assert.Len(t, f.store.DispatchesOf(report.ID), 1)

	available, err := f.store.ListTrucks(context.Background(), model.TruckFilter{Status: ptr(model.TruckStatusAvailable)})
	require.NoError(t, err)
	assert.Len(t, available, 1)
}

func TestManualDispatch(t *testing.T) {
	f := newFixture(t)
	team, truck := f.crew(model.SpecializationHazardous, "HZ001", 43.24, 76.89)
	otherTeam, otherTruck := f.crew(model.SpecializationGeneral, "GEN01", 43.24, 76.89)
	svc := f.dispatchService(0)
	scheduled := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	t.Run("truck from another team", func(t *testing.T) {
		report := f.pendingReport("paint")
		_, err := svc.CreateManualDispatch(context.Background(), CreateManualDispatchInput{
			Principal: principalOf(f.admin),
			ReportID:  report.ID,
			TeamID:    team.ID,
			TruckID:   otherTruck.ID,
		})
		require.ErrorIs(t, err, ErrValidation)
		assert.Contains(t, err.Error(), "truck_id")
	})

	t.Run("missing team", func(t *testing.T) {
		report := f.pendingReport("paint")
		_, err := svc.CreateManualDispatch(context.Background(), CreateManualDispatchInput{
			Principal: principalOf(f.admin),
			ReportID:  report.ID,
			TruckID:   truck.ID,
		})
		require.ErrorIs(t, err, ErrValidation)
		assert.Contains(t, err.Error(), "team_id")
	})

	t.Run("off duty team", func(t *testing.T) {
		report := f.pendingReport("mixed")
		_, err := f.fleetService().UpdateTeam(context.Background(), principalOf(f.admin), otherTeam.ID, UpdateTeamInput{
			Status: ptr(model.TeamStatusOffDuty),
		})
		require.NoError(t, err)
		_, err = svc.CreateManualDispatch(context.Background(), CreateManualDispatchInput{
			Principal: principalOf(f.admin),
			ReportID:  report.ID,
			TeamID:    otherTeam.ID,
			TruckID:   otherTruck.ID,
		})
		require.ErrorIs(t, err, ErrValidation)
		assert.Contains(t, err.Error(), "team_id")
	})

	t.Run("assigned with chosen crew", func(t *testing.T) {
		report := f.pendingReport("paint")
		detail, err := svc.CreateManualDispatch(context.Background(), CreateManualDispatchInput{
			Principal:     principalOf(f.admin),
			ReportID:      report.ID,
			TeamID:        team.ID,
			TruckID:       truck.ID,
			Priority:      "URGENT",
			ScheduledDate: &scheduled,
		})
		require.NoError(t, err)
		assert.Equal(t, model.DispatchModeManual, detail.Mode)
		assert.Equal(t, model.PriorityUrgent, detail.Priority)
		assert.Equal(t, scheduled, detail.ScheduledDate)

		again := f.pendingReport("paint")
		_, err = svc.CreateManualDispatch(context.Background(), CreateManualDispatchInput{
			Principal: principalOf(f.admin),
			ReportID:  again.ID,
			TeamID:    team.ID,
			TruckID:   truck.ID,
		})
		require.ErrorIs(t, err, ErrValidation)
		assert.Contains(t, err.Error(), "in_use")
	})

	t.Run("report already dispatched", func(t *testing.T) {
		report := f.store.AddReport(model.WasteReport{SubmitterID: f.citizen.ID, Status: model.ReportStatusNoWaste})
		_, err := svc.CreateManualDispatch(context.Background(), CreateManualDispatchInput{
			Principal: principalOf(f.admin),
			ReportID:  report.ID,
			TeamID:    team.ID,
			TruckID:   truck.ID,
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestDispatchTransitionGrid(t *testing.T) {
	allowed := map[model.DispatchStatus][]model.DispatchStatus{
		model.DispatchStatusAssigned:  {model.DispatchStatusEnRoute, model.DispatchStatusCancelled},
		model.DispatchStatusEnRoute:   {model.DispatchStatusCollected, model.DispatchStatusCancelled},
		model.DispatchStatusCollected: {model.DispatchStatusCompleted, model.DispatchStatusCancelled},
	}
	paths := map[model.DispatchStatus][]model.DispatchStatus{
		model.DispatchStatusAssigned:  nil,
		model.DispatchStatusEnRoute:   {model.DispatchStatusEnRoute},
		model.DispatchStatusCollected: {model.DispatchStatusEnRoute, model.DispatchStatusCollected},
		model.DispatchStatusCompleted: {model.DispatchStatusEnRoute, model.DispatchStatusCollected, model.DispatchStatusCompleted},
		model.DispatchStatusCancelled: {model.DispatchStatusCancelled},
	}
	targets := []model.DispatchStatus{
		model.DispatchStatusPending, model.DispatchStatusAssigned, model.DispatchStatusEnRoute,
		model.DispatchStatusCollected, model.DispatchStatusCompleted, model.DispatchStatusCancelled,
	}

	for from, path := range paths {
		for _, to := range targets {
			from, path, to := from, path, to
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				f := newFixture(t)
				f.crew(model.SpecializationGeneral, "GEN01", 43.24, 76.89)
				report := f.pendingReport("mixed")
				svc := f.dispatchService(0)
				detail := autoDispatch(t, f, svc, report.ID)
				advance(t, f, svc, detail.ID, path...)

				_, err := svc.UpdateDispatchStatus(context.Background(), UpdateDispatchStatusInput{
					Principal:  principalOf(f.admin),
					DispatchID: detail.ID,
					Status:     to,
				})

				want := false
				for _, next := range allowed[from] {
					if next == to {
						want = true
					}
				}
				got, getErr := f.store.GetDispatch(context.Background(), detail.ID)
				require.NoError(t, getErr)
				if want {
					require.NoError(t, err)
					assert.Equal(t, to, got.Status)
					stored, reportErr := f.store.GetReport(context.Background(), report.ID)
					require.NoError(t, reportErr)
					assert.Equal(t, model.ReportStatusFor(from, to), stored.Status)
					return
				}
				require.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, from, got.Status)
			})
		}
	}
}

func TestDispatchAssignedStraightToCompletedFails(t *testing.T) {
	f := newFixture(t)
	f.crew(model.SpecializationGeneral, "GEN01", 43.24, 76.89)
	report := f.pendingReport("mixed")
	svc := f.dispatchService(50)
	detail := autoDispatch(t, f, svc, report.ID)

	_, err := svc.UpdateDispatchStatus(context.Background(), UpdateDispatchStatusInput{
		Principal:  principalOf(f.admin),
		DispatchID: detail.ID,
		Status:     model.DispatchStatusCompleted,
	})
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Zero(t, f.store.Points(f.citizen.ID))
}

func TestDispatchLifecycleKeepsReportCoherent(t *testing.T) {
	f := newFixture(t)
	_, truck := f.crew(model.SpecializationGeneral, "GEN01", 43.24, 76.89)
	report := f.pendingReport("mixed")
	svc := f.dispatchService(25)
	ctx := context.Background()
	detail := autoDispatch(t, f, svc, report.ID)

	eta := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	steps := []struct {
		status       model.DispatchStatus
		reportStatus model.ReportStatus
		truckStatus  model.TruckStatus
		input        UpdateDispatchStatusInput
	}{
		{
			status:       model.DispatchStatusEnRoute,
			reportStatus: model.ReportStatusDispatched,
			truckStatus:  model.TruckStatusInUse,
			input:        UpdateDispatchStatusInput{EstimatedArrival: &eta},
		},
		{
			status:       model.DispatchStatusCollected,
			reportStatus: model.ReportStatusCollected,
			truckStatus:  model.TruckStatusAvailable,
			input:        UpdateDispatchStatusInput{Notes: ptr("  bagged and loaded "), Images: []string{"a.jpg", "a.jpg", " "}},
		},
		{
			status:       model.DispatchStatusCompleted,
			reportStatus: model.ReportStatusCollected,
			truckStatus:  model.TruckStatusAvailable,
			input:        UpdateDispatchStatusInput{Images: []string{"b.jpg"}},
		},
	}
	for _, step := range steps {
		input := step.input
		input.Principal = principalOf(f.collector)
		input.DispatchID = detail.ID
		input.Status = step.status
		updated, err := svc.UpdateDispatchStatus(ctx, input)
		require.NoError(t, err, step.status)
		assert.Equal(t, step.status, updated.Status)

		stored, err := f.store.GetReport(ctx, report.ID)
		require.NoError(t, err)
		assert.Equal(t, step.reportStatus, stored.Status, step.status)

		gotTruck, err := f.store.GetTruck(ctx, truck.ID)
		require.NoError(t, err)
		assert.Equal(t, step.truckStatus, gotTruck.Status, step.status)
	}

	final, err := f.store.GetDispatch(ctx, detail.ID)
	require.NoError(t, err)
	assert.Equal(t, eta, *final.EstimatedArrival)
	require.NotNil(t, final.ActualCollectionDate)
	assert.True(t, final.CollectionVerified)
	assert.Equal(t, "bagged and loaded", *final.CollectionNotes)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, []string(final.CollectionImages))
	assert.EqualValues(t, 25, final.PointsAwarded)

	assert.EqualValues(t, 25, f.store.Points(f.citizen.ID))
	ledger := f.store.LedgerOf(f.citizen.ID)
	require.Len(t, ledger, 1)
	assert.Equal(t, model.RewardReasonCleanupVerified, ledger[0].Reason)
	assert.Equal(t, report.ID, *ledger[0].WasteReportID)

	var verified int
	for _, n := range f.store.NotificationsOf(f.citizen.ID) {
		if n.Type == model.NotificationCleanupVerified {
			verified++
		}
	}
	assert.Equal(t, 1, verified)
	assert.Equal(t, 1, f.metrics.transitions[model.DispatchStatusCompleted])
}

func TestCancelReturnsReportToPending(t *testing.T) {
	f := newFixture(t)
	_, truck := f.crew(model.SpecializationGeneral, "GEN01", 43.24, 76.89)
	report := f.pendingReport("mixed")
	svc := f.dispatchService(0)
	ctx := context.Background()
	first := autoDispatch(t, f, svc, report.ID)
	advance(t, f, svc, first.ID, model.DispatchStatusEnRoute, model.DispatchStatusCancelled)

	stored, err := f.store.GetReport(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReportStatusPendingDispatch, stored.Status)
	gotTruck, err := f.store.GetTruck(ctx, truck.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TruckStatusAvailable, gotTruck.Status)

	second := autoDispatch(t, f, svc, report.ID)
	current, err := svc.GetDispatchByReport(ctx, principalOf(f.citizen), report.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID)

	advance(t, f, svc, second.ID, model.DispatchStatusCancelled)
	latest, err := svc.GetDispatchByReport(ctx, principalOf(f.admin), report.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
}

func TestCancelAfterCollectionKeepsReportAndTruck(t *testing.T) {
	f := newFixture(t)
	_, truck := f.crew(model.SpecializationGeneral, "GEN01", 43.24, 76.89)
	collected := f.pendingReport("mixed")
	next := f.pendingReport("mixed")
	svc := f.dispatchService(0)
	ctx := context.Background()

	first := autoDispatch(t, f, svc, collected.ID)
	advance(t, f, svc, first.ID, model.DispatchStatusEnRoute, model.DispatchStatusCollected)
	second := autoDispatch(t, f, svc, next.ID)
	require.Equal(t, truck.ID, *second.TruckID)

	advance(t, f, svc, first.ID, model.DispatchStatusCancelled)

	stored, err := f.store.GetReport(ctx, collected.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReportStatusCollected, stored.Status)
	gotTruck, err := f.store.GetTruck(ctx, truck.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TruckStatusInUse, gotTruck.Status)
	busy, err := f.store.GetDispatch(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DispatchStatusAssigned, busy.Status)

	_, err = svc.CreateAutoDispatch(ctx, CreateAutoDispatchInput{
		Principal: principalOf(f.admin),
		ReportID:  collected.ID,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDispatchStatusRequiresTeamMembership(t *testing.T) {
	f := newFixture(t)
	f.crew(model.SpecializationGeneral, "GEN01", 43.24, 76.89)
	outsider := f.store.AddUser(model.User{Name: "Dana", Email: "dana@example.com", Role: model.UserRoleCollector})
	report := f.pendingReport("mixed")
	svc := f.dispatchService(0)
	detail := autoDispatch(t, f, svc, report.ID)

	for _, p := range []model.Principal{principalOf(outsider), principalOf(f.citizen)} {
		_, err := svc.UpdateDispatchStatus(context.Background(), UpdateDispatchStatusInput{
			Principal:  p,
			DispatchID: detail.ID,
			Status:     model.DispatchStatusEnRoute,
		})
		assert.ErrorIs(t, err, ErrForbidden)
	}

	_, err := svc.UpdateDispatchStatus(context.Background(), UpdateDispatchStatusInput{
		Principal:  principalOf(f.admin),
		DispatchID: detail.ID,
		Status:     "teleported",
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDispatchViewPermissions(t *testing.T) {
	f := newFixture(t)
	f.crew(model.SpecializationGeneral, "GEN01", 43.24, 76.89)
	stranger := f.store.AddUser(model.User{Name: "Erlan", Email: "erlan@example.com"})
	report := f.pendingReport("mixed")
	svc := f.dispatchService(0)
	ctx := context.Background()
	detail := autoDispatch(t, f, svc, report.ID)

	got, err := svc.GetDispatch(ctx, principalOf(f.citizen), detail.ID)
	require.NoError(t, err)
	assert.Equal(t, "GEN01", got.RegistrationNumber)

	_, err = svc.GetDispatch(ctx, principalOf(stranger), detail.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.GetDispatch(ctx, principalOf(f.admin), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.ListDispatches(ctx, principalOf(f.citizen), model.DispatchFilter{}, model.Page{})
	assert.ErrorIs(t, err, ErrForbidden)

	page, err := svc.ListDispatches(ctx, principalOf(f.collector), model.DispatchFilter{}, model.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
	assert.Equal(t, model.DefaultPageSize, page.PageSize)
}

func TestExportDispatches(t *testing.T) {
	f := newFixture(t)
	team, truck := f.crew(model.SpecializationGeneral, "GEN01", 43.24, 76.89)
	svc := f.dispatchService(0)
	ctx := context.Background()

	inside := time.Date(2026, 5, 1, 22, 30, 0, 0, time.UTC)
	_, err := svc.CreateManualDispatch(ctx, CreateManualDispatchInput{
		Principal:     principalOf(f.admin),
		ReportID:      f.pendingReport("mixed").ID,
		TeamID:        team.ID,
		TruckID:       truck.ID,
		ScheduledDate: &inside,
	})
	require.NoError(t, err)

	_, err = svc.ExportDispatches(ctx, principalOf(f.collector), inside, inside)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.ExportDispatches(ctx, principalOf(f.admin), inside, inside.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, ErrValidation)

	file, err := svc.ExportDispatches(ctx, principalOf(f.admin), inside, inside)
	require.NoError(t, err)
	assert.Equal(t, "dispatches-20260501-20260501.xlsx", file.FileName)
	assert.Equal(t, []byte("xlsx"), file.Content)
	require.Len(t, f.excel.got.Rows, 1)
	assert.Equal(t, team.Name, f.excel.got.Rows[0].TeamName)

	file, err = svc.ExportDispatches(ctx, principalOf(f.admin), inside.AddDate(0, 0, 1), inside.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.NotNil(t, file)
	assert.Empty(t, f.excel.got.Rows)
}

func TestCollectionSheet(t *testing.T) {
	f := newFixture(t)
	f.crew(model.SpecializationGeneral, "GEN01", 43.24, 76.89)
	report := f.pendingReport("mixed")
	svc := f.dispatchService(0)
	ctx := context.Background()
	detail := autoDispatch(t, f, svc, report.ID)

	file, err := svc.CollectionSheet(ctx, principalOf(f.collector), detail.ID)
	require.NoError(t, err)
	assert.Equal(t, "collection-sheet-"+detail.ID.String()+".pdf", file.FileName)
	require.Len(t, f.pdf.got.Members, 1)
	assert.Equal(t, f.collector.Name, f.pdf.got.Members[0].Name)
	assert.Equal(t, report.ID, f.pdf.got.Report.ID)

	_, err = svc.CollectionSheet(ctx, principalOf(f.citizen), detail.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRankCandidates(t *testing.T) {
	lat := func(v float64) *float64 { return &v }
	pickup := model.Location{Latitude: 43.0, Longitude: 76.0}
	candidates := []model.CrewCandidate{
		{RegistrationNumber: "G-NEAR", Specialization: model.SpecializationGeneral, Latitude: lat(43.0), Longitude: lat(76.0)},
		{RegistrationNumber: "R-NOWHERE", Specialization: model.SpecializationRecyclables},
		{RegistrationNumber: "R-FAR", Specialization: model.SpecializationRecyclables, Latitude: lat(43.5), Longitude: lat(76.5)},
		{RegistrationNumber: "R-NEAR", Specialization: model.SpecializationRecyclables, Latitude: lat(43.01), Longitude: lat(76.01)},
	}

	ranked := rankCandidates(candidates, model.SpecializationRecyclables, pickup)

	var order []string
	for _, c := range ranked {
		order = append(order, c.RegistrationNumber)
	}
	assert.Equal(t, []string{"R-NEAR", "R-FAR", "R-NOWHERE", "G-NEAR"}, order)
}

func TestMergeImages(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, mergeImages([]string{"a", "b"}, []string{" b ", "", "c"}))
	assert.Equal(t, []string{}, mergeImages(nil, nil))
}
