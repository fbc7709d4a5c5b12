package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/waste-dispatch/internal/model"
	"github.com/nurpe/waste-dispatch/internal/testutil/memstore"
)

// snapshotTrucks serves truck reads from a copy taken earlier, the way a read
// that raced with a dispatch would see them.
type snapshotTrucks struct {
	*memstore.Store
	snapshot model.Truck
}

func (s snapshotTrucks) GetTruck(context.Context, uuid.UUID) (*model.Truck, error) {
	truck := s.snapshot
	return &truck, nil
}

func TestCreateTeam(t *testing.T) {
	f := newFixture(t)
	svc := f.fleetService()
	ctx := context.Background()

	team, err := svc.CreateTeam(ctx, principalOf(f.admin), CreateTeamInput{
		Name:           "  North  ",
		Specialization: model.SpecializationOrganic,
		Members:        []uuid.UUID{f.collector.ID, f.collector.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "North", team.Name)
	assert.Equal(t, model.TeamStatusActive, team.Status)
	assert.Equal(t, []uuid.UUID{f.collector.ID}, team.Members)

	notes := f.store.NotificationsOf(f.admin.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, model.NotificationTeamUpdate, notes[0].Type)

	user, err := f.store.GetUser(ctx, f.collector.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{team.ID}, user.Teams)

	_, err = svc.CreateTeam(ctx, principalOf(f.admin), CreateTeamInput{Name: "North", Specialization: model.SpecializationGeneral})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestCreateTeamValidation(t *testing.T) {
	f := newFixture(t)
	svc := f.fleetService()
	ctx := context.Background()

	_, err := svc.CreateTeam(ctx, principalOf(f.collector), CreateTeamInput{Name: "A", Specialization: model.SpecializationGeneral})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.CreateTeam(ctx, principalOf(f.admin), CreateTeamInput{Name: " ", Specialization: model.SpecializationGeneral})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateTeam(ctx, principalOf(f.admin), CreateTeamInput{Name: "A", Specialization: "nuclear"})
	assert.ErrorIs(t, err, ErrValidation)

	missing := uuid.New()
	_, err = svc.CreateTeam(ctx, principalOf(f.admin), CreateTeamInput{
		Name:           "A",
		Specialization: model.SpecializationGeneral,
		Members:        []uuid.UUID{missing},
	})
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), missing.String())
}

func TestUpdateTeamNotifiesOldAndNewMembers(t *testing.T) {
	f := newFixture(t)
	newcomer := f.store.AddUser(model.User{Name: "Dana", Email: "dana@example.com", Role: model.UserRoleCollector})
	team, _ := f.crew(model.SpecializationGeneral, "GEN01", 43.24, 76.89)
	svc := f.fleetService()
	ctx := context.Background()

	updated, err := svc.UpdateTeam(ctx, principalOf(f.admin), team.ID, UpdateTeamInput{
		Name:    ptr("Night shift"),
		Members: &[]uuid.UUID{newcomer.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "Night shift", updated.Name)

	stored, err := f.store.GetTeam(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{newcomer.ID}, stored.Members)
	assert.Len(t, stored.Trucks, 1)

	for _, id := range []uuid.UUID{f.collector.ID, newcomer.ID} {
		notes := f.store.NotificationsOf(id)
		require.Len(t, notes, 1)
		assert.Equal(t, model.NotificationTeamUpdate, notes[0].Type)
		assert.Contains(t, notes[0].Message, "name: ")
		assert.Contains(t, notes[0].Message, "members: Bolat -> Dana")
		assert.NotNil(t, notes[0].Metadata["changes"])
	}
}

func TestUpdateTeamWithoutChangesIsSilent(t *testing.T) {
	f := newFixture(t)
	team, _ := f.crew(model.SpecializationGeneral, "GEN01", 43.24, 76.89)
	svc := f.fleetService()

	got, err := svc.UpdateTeam(context.Background(), principalOf(f.admin), team.ID, UpdateTeamInput{
		Name:    ptr(team.Name),
		Members: &[]uuid.UUID{f.collector.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, team.Name, got.Name)
	assert.Empty(t, f.store.NotificationsOf(f.collector.ID))
}

func TestDeleteTeamUnlinksTrucks(t *testing.T) {
	f := newFixture(t)
	team, first := f.crew(model.SpecializationGeneral, "GEN01", 43.24, 76.89)
	teamID := team.ID
	second := f.store.AddTruck(model.Truck{RegistrationNumber: "GEN02", Type: model.SpecializationGeneral, Capacity: 500, AssignedTeamID: &teamID})
	svc := f.fleetService()
	ctx := context.Background()

	require.NoError(t, svc.DeleteTeam(ctx, principalOf(f.admin), team.ID))

	for _, id := range []uuid.UUID{first.ID, second.ID} {
		truck, err := f.store.GetTruck(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, truck.AssignedTeamID)
	}
	_, err := svc.GetTeam(ctx, team.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	notes := f.store.NotificationsOf(f.collector.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, model.PriorityHigh, notes[0].Priority)

	user, err := f.store.GetUser(ctx, f.collector.ID)
	require.NoError(t, err)
	assert.Empty(t, user.Teams)
}

func TestDeleteTeamWithActiveDispatch(t *testing.T) {
	f := newFixture(t)
	team, truck := f.crew(model.SpecializationGeneral, "GEN01", 43.24, 76.89)
	report := f.pendingReport("mixed")
	detail := autoDispatch(t, f, f.dispatchService(0), report.ID)
	svc := f.fleetService()
	ctx := context.Background()

	err := svc.DeleteTeam(ctx, principalOf(f.admin), team.ID)
	assert.ErrorIs(t, err, ErrValidation)
	err = svc.DeleteTruck(ctx, principalOf(f.admin), truck.ID)
	assert.ErrorIs(t, err, ErrValidation)

	advance(t, f, f.dispatchService(0), detail.ID, model.DispatchStatusCancelled)
	require.NoError(t, svc.DeleteTruck(ctx, principalOf(f.admin), truck.ID))
	require.NoError(t, svc.DeleteTeam(ctx, principalOf(f.admin), team.ID))

	history, err := f.store.GetDispatch(ctx, detail.ID)
	require.NoError(t, err)
	assert.Nil(t, history.TeamID)
	assert.Nil(t, history.TruckID)
	assert.Equal(t, model.DispatchStatusCancelled, history.Status)
}

func TestCreateTruck(t *testing.T) {
	f := newFixture(t)
	team, _ := f.crew(model.SpecializationGeneral, "GEN01", 43.24, 76.89)
	svc := f.fleetService()
	ctx := context.Background()

	truck, err := svc.CreateTruck(ctx, principalOf(f.admin), CreateTruckInput{
		RegistrationNumber: " kz 123 abc ",
		Type:               model.SpecializationGeneral,
		Capacity:           3.5,
		CapacityUnit:       model.CapacityUnitCubicMeters,
		AssignedTeamID:     &team.ID,
		Latitude:           ptr(43.2),
		Longitude:          ptr(76.9),
	})
	require.NoError(t, err)
	assert.Equal(t, "KZ123ABC", truck.RegistrationNumber)
	assert.Equal(t, model.TruckStatusAvailable, truck.Status)

	stored, err := f.store.GetTeam(ctx, team.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.Trucks, truck.ID)

	for _, id := range []uuid.UUID{f.admin.ID, f.collector.ID} {
		notes := f.store.NotificationsOf(id)
		require.NotEmpty(t, notes)
		assert.Equal(t, model.NotificationTruckStatus, notes[len(notes)-1].Type)
	}
	assert.Empty(t, f.store.NotificationsOf(f.citizen.ID))

	_, err = svc.CreateTruck(ctx, principalOf(f.admin), CreateTruckInput{
		RegistrationNumber: "KZ123ABC",
		Type:               model.SpecializationGeneral,
		Capacity:           1,
	})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestCreateTruckValidation(t *testing.T) {
	f := newFixture(t)
	svc := f.fleetService()
	ctx := context.Background()
	unknownTeam := uuid.New()

	tests := []struct {
		name  string
		input CreateTruckInput
		want  error
	}{
		{name: "no registration", input: CreateTruckInput{Type: model.SpecializationGeneral, Capacity: 1}, want: ErrValidation},
		{name: "bad type", input: CreateTruckInput{RegistrationNumber: "A1", Type: "tank", Capacity: 1}, want: ErrValidation},
		{name: "zero capacity", input: CreateTruckInput{RegistrationNumber: "A1", Type: model.SpecializationGeneral}, want: ErrValidation},
		{name: "bad unit", input: CreateTruckInput{RegistrationNumber: "A1", Type: model.SpecializationGeneral, Capacity: 1, CapacityUnit: "tons"}, want: ErrValidation},
		{name: "half position", input: CreateTruckInput{RegistrationNumber: "A1", Type: model.SpecializationGeneral, Capacity: 1, Latitude: ptr(1.0)}, want: ErrValidation},
		{name: "unknown team", input: CreateTruckInput{RegistrationNumber: "A1", Type: model.SpecializationGeneral, Capacity: 1, AssignedTeamID: &unknownTeam}, want: ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTruck(ctx, principalOf(f.admin), tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUpdateTruck(t *testing.T) {
	f := newFixture(t)
	fromTeam, truck := f.crew(model.SpecializationGeneral, "GEN01", 43.24, 76.89)
	otherCollector := f.store.AddUser(model.User{Name: "Dana", Email: "dana@example.com", Role: model.UserRoleCollector})
	toTeam := f.store.AddTeam(model.Team{Name: "South", Specialization: model.SpecializationGeneral, Members: []uuid.UUID{otherCollector.ID}})
	svc := f.fleetService()
	ctx := context.Background()

	_, err := svc.UpdateTruck(ctx, principalOf(f.admin), truck.ID, UpdateTruckInput{Status: ptr(model.TruckStatusInUse)})
	assert.ErrorIs(t, err, ErrValidation)

	updated, err := svc.UpdateTruck(ctx, principalOf(f.admin), truck.ID, UpdateTruckInput{
		Status:         ptr(model.TruckStatusMaintenance),
		AssignedTeamID: &toTeam.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, model.TruckStatusMaintenance, updated.Status)
	assert.Equal(t, toTeam.ID, *updated.AssignedTeamID)

	from, err := f.store.GetTeam(ctx, fromTeam.ID)
	require.NoError(t, err)
	assert.Empty(t, from.Trucks)

	for _, id := range []uuid.UUID{f.admin.ID, f.collector.ID, otherCollector.ID} {
		notes := f.store.NotificationsOf(id)
		require.Len(t, notes, 1, id)
		assert.Contains(t, notes[0].Message, "status: available -> maintenance")
	}

	cleared, err := svc.UpdateTruck(ctx, principalOf(f.admin), truck.ID, UpdateTruckInput{ClearTeam: true})
	require.NoError(t, err)
	assert.Nil(t, cleared.AssignedTeamID)
}

func TestUpdateTruckOnActiveDispatch(t *testing.T) {
	f := newFixture(t)
	_, truck := f.crew(model.SpecializationGeneral, "GEN01", 43.24, 76.89)
	autoDispatch(t, f, f.dispatchService(0), f.pendingReport("mixed").ID)
	svc := f.fleetService()
	ctx := context.Background()

	_, err := svc.UpdateTruck(ctx, principalOf(f.admin), truck.ID, UpdateTruckInput{Status: ptr(model.TruckStatusMaintenance)})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.UpdateTruck(ctx, principalOf(f.admin), truck.ID, UpdateTruckInput{ClearTeam: true})
	assert.ErrorIs(t, err, ErrValidation)

	moved, err := svc.UpdateTruck(ctx, principalOf(f.admin), truck.ID, UpdateTruckInput{Latitude: ptr(43.3), Longitude: ptr(76.95)})
	require.NoError(t, err)
	assert.Equal(t, 43.3, *moved.Latitude)
	assert.Equal(t, model.TruckStatusInUse, moved.Status)
}

func TestUpdateTruckKeepsStatusClaimedMeanwhile(t *testing.T) {
	f := newFixture(t)
	_, truck := f.crew(model.SpecializationGeneral, "GEN01", 43.24, 76.89)
	ctx := context.Background()
	before, err := f.store.GetTruck(ctx, truck.ID)
	require.NoError(t, err)
	autoDispatch(t, f, f.dispatchService(0), f.pendingReport("mixed").ID)

	svc := NewFleetService(snapshotTrucks{Store: f.store, snapshot: *before}, f.store, f.cache, zerolog.Nop())
	_, err = svc.UpdateTruck(ctx, principalOf(f.admin), truck.ID, UpdateTruckInput{Latitude: ptr(43.3), Longitude: ptr(76.95)})
	assert.ErrorIs(t, err, ErrValidation)

	stored, err := f.store.GetTruck(ctx, truck.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TruckStatusInUse, stored.Status)
	assert.Equal(t, 43.24, *stored.Latitude)
}

func TestListFleetFilters(t *testing.T) {
	f := newFixture(t)
	team, _ := f.crew(model.SpecializationOrganic, "OR001", 43.24, 76.89)
	f.crew(model.SpecializationGeneral, "GEN01", 43.24, 76.89)
	svc := f.fleetService()
	ctx := context.Background()

	teams, err := svc.ListTeams(ctx, model.TeamFilter{Specialization: ptr(model.SpecializationOrganic)})
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, team.ID, teams[0].ID)

	trucks, err := svc.ListTrucks(ctx, model.TruckFilter{TeamID: &team.ID})
	require.NoError(t, err)
	require.Len(t, trucks, 1)
	assert.Equal(t, "OR001", trucks[0].RegistrationNumber)

	_, err = svc.ListTeams(ctx, model.TeamFilter{Status: ptr(model.TeamStatus("asleep"))})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.ListTrucks(ctx, model.TruckFilter{Status: ptr(model.TruckStatus("flying"))})
	assert.ErrorIs(t, err, ErrValidation)
}
