package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/nurpe/waste-dispatch/internal/model"
	"github.com/nurpe/waste-dispatch/internal/repository"
)

type FleetService struct {
	fleet  FleetStore
	users  UserStore
	unread unreadCounters
	log    zerolog.Logger
}

func NewFleetService(fleet FleetStore, users UserStore, cache UnreadCache, log zerolog.Logger) *FleetService {
	return &FleetService{
		fleet:  fleet,
		users:  users,
		unread: unreadCounters{cache: cache, log: log},
		log:    log,
	}
}

type CreateTeamInput struct {
	Name           string
	Specialization model.Specialization
	Members        []uuid.UUID
}

type UpdateTeamInput struct {
	Name           *string
	Specialization *model.Specialization
	Status         *model.TeamStatus
	Members        *[]uuid.UUID
}

type CreateTruckInput struct {
	RegistrationNumber string
	Type               model.Specialization
	Capacity           float64
	CapacityUnit       model.CapacityUnit
	AssignedTeamID     *uuid.UUID
	Longitude          *float64
	Latitude           *float64
}

type UpdateTruckInput struct {
	RegistrationNumber *string
	Type               *model.Specialization
	Capacity           *float64
	CapacityUnit       *model.CapacityUnit
	Status             *model.TruckStatus
	AssignedTeamID     *uuid.UUID
	ClearTeam          bool
	Longitude          *float64
	Latitude           *float64
}

func (s *FleetService) CreateTeam(ctx context.Context, principal model.Principal, input CreateTeamInput) (*model.Team, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !input.Specialization.Valid() {
		return nil, fmt.Errorf("%w: unknown specialization %q", ErrValidation, input.Specialization)
	}
	members := unionIDs(input.Members)
	if err := s.checkMembers(ctx, members); err != nil {
		return nil, err
	}

	now := nowUTC()
	team := model.Team{
		ID:             uuid.New(),
		Name:           name,
		Specialization: input.Specialization,
		Status:         model.TeamStatusActive,
		Members:        members,
		Trucks:         []uuid.UUID{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	notifications := []model.Notification{
		model.Notice{
			Type:    model.NotificationTeamUpdate,
			Title:   "Team created",
			Message: fmt.Sprintf("Team %s (%s) was created with %d members.", team.Name, team.Specialization, len(members)),
			Related: model.TeamRef(team.ID),
		}.For(principal.UserID, now),
	}

	if err := s.fleet.CreateTeam(ctx, team, notifications); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, fmt.Errorf("%w: team %q", ErrDuplicate, name)
		}
		return nil, mapStoreError(err)
	}
	s.unread.touch(ctx, recipientsOf(notifications))
	return &team, nil
}

// UpdateTeam applies a partial update and tells old and new members what changed.
func (s *FleetService) UpdateTeam(ctx context.Context, principal model.Principal, id uuid.UUID, input UpdateTeamInput) (*model.Team, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	current, err := s.fleet.GetTeam(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}

	updated := *current
	var changes model.ChangeSet
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be empty", ErrValidation)
		}
		changes.Add("name", current.Name, name)
		updated.Name = name
	}
	if input.Specialization != nil {
		if !input.Specialization.Valid() {
			return nil, fmt.Errorf("%w: unknown specialization %q", ErrValidation, *input.Specialization)
		}
		changes.Add("specialization", string(current.Specialization), string(*input.Specialization))
		updated.Specialization = *input.Specialization
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *input.Status)
		}
		changes.Add("status", string(current.Status), string(*input.Status))
		updated.Status = *input.Status
	}
	replaceRoster := false
	if input.Members != nil {
		members := unionIDs(*input.Members)
		if err := s.checkMembers(ctx, members); err != nil {
			return nil, err
		}
		if !sameIDs(current.Members, members) {
			before, err := s.memberNames(ctx, current.Members)
			if err != nil {
				return nil, err
			}
			after, err := s.memberNames(ctx, members)
			if err != nil {
				return nil, err
			}
			changes.Add("members", before, after)
			replaceRoster = true
		}
		updated.Members = members
	}
	if changes.Empty() && !replaceRoster {
		return current, nil
	}

	now := nowUTC()
	updated.UpdatedAt = now
	notifications := model.Notice{
		Type:     model.NotificationTeamUpdate,
		Title:    "Team updated",
		Message:  fmt.Sprintf("Team %s changed: %s.", updated.Name, changes.Summary()),
		Related:  model.TeamRef(updated.ID),
		Metadata: changes.Metadata(),
	}.Fanout(unionIDs(current.Members, updated.Members), now)

	if err := s.fleet.UpdateTeam(ctx, updated, replaceRoster, notifications); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, fmt.Errorf("%w: team %q", ErrDuplicate, updated.Name)
		}
		return nil, mapStoreError(err)
	}
	s.unread.touch(ctx, recipientsOf(notifications))
	return &updated, nil
}

// DeleteTeam notifies the roster, then removes the team and unlinks its trucks.
func (s *FleetService) DeleteTeam(ctx context.Context, principal model.Principal, id uuid.UUID) error {
	if err := requireAdmin(principal); err != nil {
		return err
	}
	team, err := s.fleet.GetTeam(ctx, id)
	if err != nil {
		return mapStoreError(err)
	}
	notifications := model.Notice{
		Type:     model.NotificationTeamUpdate,
		Title:    "Team removed",
		Message:  fmt.Sprintf("Team %s was removed. You are no longer a member.", team.Name),
		Priority: model.PriorityHigh,
	}.Fanout(team.Members, nowUTC())

	if err := s.fleet.DeleteTeam(ctx, id, notifications); err != nil {
		if errors.Is(err, repository.ErrActiveDispatch) {
			return fmt.Errorf("%w: team has an active dispatch", ErrValidation)
		}
		return mapStoreError(err)
	}
	s.unread.touch(ctx, recipientsOf(notifications))
	s.log.Info().Str("team_id", id.String()).Int("trucks_unlinked", len(team.Trucks)).Msg("team deleted")
	return nil
}

func (s *FleetService) GetTeam(ctx context.Context, id uuid.UUID) (*model.Team, error) {
	team, err := s.fleet.GetTeam(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return team, nil
}

func (s *FleetService) ListTeams(ctx context.Context, filter model.TeamFilter) ([]model.Team, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *filter.Status)
	}
	if filter.Specialization != nil && !filter.Specialization.Valid() {
		return nil, fmt.Errorf("%w: unknown specialization %q", ErrValidation, *filter.Specialization)
	}
	return s.fleet.ListTeams(ctx, filter)
}

func (s *FleetService) CreateTruck(ctx context.Context, principal model.Principal, input CreateTruckInput) (*model.Truck, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	registration := model.NormalizeRegistration(input.RegistrationNumber)
	if registration == "" {
		return nil, fmt.Errorf("%w: registration_number is required", ErrValidation)
	}
	if !input.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown truck type %q", ErrValidation, input.Type)
	}
	if input.Capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be positive", ErrValidation)
	}
	unit := input.CapacityUnit
	if unit == "" {
		unit = model.CapacityUnitKg
	}
	if !unit.Valid() {
		return nil, fmt.Errorf("%w: unknown capacity unit %q", ErrValidation, unit)
	}
	if err := checkPosition(input.Latitude, input.Longitude); err != nil {
		return nil, err
	}

	var teamMembers []uuid.UUID
	if input.AssignedTeamID != nil {
		team, err := s.fleet.GetTeam(ctx, *input.AssignedTeamID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: assigned team", ErrNotFound)
			}
			return nil, err
		}
		teamMembers = team.Members
	}

	now := nowUTC()
	truck := model.Truck{
		ID:                 uuid.New(),
		RegistrationNumber: registration,
		Type:               input.Type,
		Capacity:           input.Capacity,
		CapacityUnit:       unit,
		Status:             model.TruckStatusAvailable,
		AssignedTeamID:     input.AssignedTeamID,
		Longitude:          input.Longitude,
		Latitude:           input.Latitude,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	admins, err := s.users.ListUserIDsByRole(ctx, model.UserRoleAdmin)
	if err != nil {
		return nil, err
	}
	notifications := model.Notice{
		Type:    model.NotificationTruckStatus,
		Title:   "Truck registered",
		Message: fmt.Sprintf("Truck %s (%s, %g %s) was added to the fleet.", truck.RegistrationNumber, truck.Type, truck.Capacity, truck.CapacityUnit),
		Related: model.TruckRef(truck.ID),
	}.Fanout(unionIDs(admins, teamMembers), now)

	if err := s.fleet.CreateTruck(ctx, truck, notifications); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, fmt.Errorf("%w: registration number %s", ErrDuplicate, registration)
		}
		return nil, mapStoreError(err)
	}
	s.unread.touch(ctx, recipientsOf(notifications))
	return &truck, nil
}

// UpdateTruck applies a partial update. A truck on an active dispatch keeps its status and team.
func (s *FleetService) UpdateTruck(ctx context.Context, principal model.Principal, id uuid.UUID, input UpdateTruckInput) (*model.Truck, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	current, err := s.fleet.GetTruck(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}

	updated := *current
	var changes model.ChangeSet
	if input.RegistrationNumber != nil {
		registration := model.NormalizeRegistration(*input.RegistrationNumber)
		if registration == "" {
			return nil, fmt.Errorf("%w: registration_number must not be empty", ErrValidation)
		}
		changes.Add("registration_number", current.RegistrationNumber, registration)
		updated.RegistrationNumber = registration
	}
	if input.Type != nil {
		if !input.Type.Valid() {
			return nil, fmt.Errorf("%w: unknown truck type %q", ErrValidation, *input.Type)
		}
		changes.Add("type", string(current.Type), string(*input.Type))
		updated.Type = *input.Type
	}
	if input.Capacity != nil {
		if *input.Capacity <= 0 {
			return nil, fmt.Errorf("%w: capacity must be positive", ErrValidation)
		}
		changes.Add("capacity", formatFloat(current.Capacity), formatFloat(*input.Capacity))
		updated.Capacity = *input.Capacity
	}
	if input.CapacityUnit != nil {
		if !input.CapacityUnit.Valid() {
			return nil, fmt.Errorf("%w: unknown capacity unit %q", ErrValidation, *input.CapacityUnit)
		}
		changes.Add("capacity_unit", string(current.CapacityUnit), string(*input.CapacityUnit))
		updated.CapacityUnit = *input.CapacityUnit
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *input.Status)
		}
		if *input.Status == model.TruckStatusInUse && current.Status != model.TruckStatusInUse {
			return nil, fmt.Errorf("%w: status in_use is set by dispatching", ErrValidation)
		}
		changes.Add("status", string(current.Status), string(*input.Status))
		updated.Status = *input.Status
	}
	switch {
	case input.ClearTeam:
		changes.Add("assigned_team", idString(current.AssignedTeamID), "")
		updated.AssignedTeamID = nil
	case input.AssignedTeamID != nil:
		if _, err := s.fleet.GetTeam(ctx, *input.AssignedTeamID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: assigned team", ErrNotFound)
			}
			return nil, err
		}
		changes.Add("assigned_team", idString(current.AssignedTeamID), input.AssignedTeamID.String())
		teamID := *input.AssignedTeamID
		updated.AssignedTeamID = &teamID
	}
	if input.Latitude != nil || input.Longitude != nil {
		if err := checkPosition(input.Latitude, input.Longitude); err != nil {
			return nil, err
		}
		changes.Add("location", formatPosition(current.Latitude, current.Longitude), formatPosition(input.Latitude, input.Longitude))
		updated.Latitude = input.Latitude
		updated.Longitude = input.Longitude
	}
	if changes.Empty() {
		return current, nil
	}
	if current.Status == model.TruckStatusInUse && (changes.Has("status") || changes.Has("assigned_team")) {
		return nil, fmt.Errorf("%w: truck is on an active dispatch", ErrValidation)
	}

	now := nowUTC()
	updated.UpdatedAt = now
	recipients, err := s.truckAudience(ctx, current.AssignedTeamID, updated.AssignedTeamID)
	if err != nil {
		return nil, err
	}
	notifications := model.Notice{
		Type:     model.NotificationTruckStatus,
		Title:    "Truck updated",
		Message:  fmt.Sprintf("Truck %s changed: %s.", updated.RegistrationNumber, changes.Summary()),
		Related:  model.TruckRef(updated.ID),
		Metadata: changes.Metadata(),
	}.Fanout(recipients, now)

	if err := s.fleet.UpdateTruck(ctx, updated, current.Status, notifications); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, fmt.Errorf("%w: registration number %s", ErrDuplicate, updated.RegistrationNumber)
		}
		if errors.Is(err, repository.ErrTruckStatusChanged) {
			return nil, fmt.Errorf("%w: truck status changed while editing, reload and retry", ErrValidation)
		}
		return nil, mapStoreError(err)
	}
	s.unread.touch(ctx, recipientsOf(notifications))
	return &updated, nil
}

func (s *FleetService) DeleteTruck(ctx context.Context, principal model.Principal, id uuid.UUID) error {
	if err := requireAdmin(principal); err != nil {
		return err
	}
	truck, err := s.fleet.GetTruck(ctx, id)
	if err != nil {
		return mapStoreError(err)
	}
	recipients, err := s.truckAudience(ctx, truck.AssignedTeamID, nil)
	if err != nil {
		return err
	}
	notifications := model.Notice{
		Type:    model.NotificationTruckStatus,
		Title:   "Truck removed",
		Message: fmt.Sprintf("Truck %s was removed from the fleet.", truck.RegistrationNumber),
	}.Fanout(recipients, nowUTC())

	if err := s.fleet.DeleteTruck(ctx, id, notifications); err != nil {
		if errors.Is(err, repository.ErrActiveDispatch) {
			return fmt.Errorf("%w: truck has an active dispatch", ErrValidation)
		}
		return mapStoreError(err)
	}
	s.unread.touch(ctx, recipientsOf(notifications))
	return nil
}

func (s *FleetService) GetTruck(ctx context.Context, id uuid.UUID) (*model.Truck, error) {
	truck, err := s.fleet.GetTruck(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return truck, nil
}

func (s *FleetService) ListTrucks(ctx context.Context, filter model.TruckFilter) ([]model.Truck, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *filter.Status)
	}
	return s.fleet.ListTrucks(ctx, filter)
}

// truckAudience is every admin plus the members of the teams the truck moves between.
func (s *FleetService) truckAudience(ctx context.Context, teams ...*uuid.UUID) ([]uuid.UUID, error) {
	admins, err := s.users.ListUserIDsByRole(ctx, model.UserRoleAdmin)
	if err != nil {
		return nil, err
	}
	groups := [][]uuid.UUID{admins}
	for _, teamID := range teams {
		if teamID == nil {
			continue
		}
		members, err := s.fleet.ListTeamMemberIDs(ctx, *teamID)
		if err != nil {
			return nil, err
		}
		groups = append(groups, members)
	}
	return unionIDs(groups...), nil
}

func (s *FleetService) checkMembers(ctx context.Context, members []uuid.UUID) error {
	if len(members) == 0 {
		return nil
	}
	users, err := s.users.ListUsersByIDs(ctx, members)
	if err != nil {
		return err
	}
	found := make(map[uuid.UUID]struct{}, len(users))
	for _, u := range users {
		found[u.ID] = struct{}{}
	}
	for _, id := range members {
		if _, ok := found[id]; !ok {
			return fmt.Errorf("%w: members: user %s not found", ErrValidation, id)
		}
	}
	return nil
}

// memberNames renders a roster as sorted user names for change messages.
func (s *FleetService) memberNames(ctx context.Context, ids []uuid.UUID) (string, error) {
	if len(ids) == 0 {
		return "", nil
	}
	users, err := s.users.ListUsersByIDs(ctx, ids)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Name)
	}
	sort.Strings(names)
	return strings.Join(names, ", "), nil
}

func checkPosition(lat, lon *float64) error {
	if (lat == nil) != (lon == nil) {
		return fmt.Errorf("%w: latitude and longitude must be set together", ErrValidation)
	}
	if lat == nil {
		return nil
	}
	if !(model.Location{Latitude: *lat, Longitude: *lon}).Valid() {
		return fmt.Errorf("%w: coordinates out of range", ErrValidation)
	}
	return nil
}

func sameIDs(a, b []uuid.UUID) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[uuid.UUID]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}

func idString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatPosition(lat, lon *float64) string {
	if lat == nil || lon == nil {
		return ""
	}
	return formatFloat(*lat) + "," + formatFloat(*lon)
}
