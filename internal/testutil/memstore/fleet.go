package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/waste-dispatch/internal/model"
	"github.com/nurpe/waste-dispatch/internal/repository"
)

func (s *Store) teamLocked(id uuid.UUID) model.Team {
	t := s.teams[id]
	t.Members = append([]uuid.UUID{}, s.members[id]...)
	sortIDs(t.Members)
	t.Trucks = []uuid.UUID{}
	var trucks []model.Truck
	for _, tr := range s.trucks {
		if tr.AssignedTeamID != nil && *tr.AssignedTeamID == id {
			trucks = append(trucks, tr)
		}
	}
	sort.Slice(trucks, func(i, j int) bool { return trucks[i].RegistrationNumber < trucks[j].RegistrationNumber })
	for _, tr := range trucks {
		t.Trucks = append(t.Trucks, tr.ID)
	}
	return t
}

func (s *Store) teamsOfLocked(userID uuid.UUID) []uuid.UUID {
	teams := []uuid.UUID{}
	for teamID, roster := range s.members {
		for _, id := range roster {
			if id == userID {
				teams = append(teams, teamID)
				break
			}
		}
	}
	sortIDs(teams)
	return teams
}

func (s *Store) teamNameTaken(name string, except uuid.UUID) bool {
	for id, t := range s.teams {
		if id != except && t.Name == name {
			return true
		}
	}
	return false
}

func (s *Store) registrationTaken(reg string, except uuid.UUID) bool {
	for id, t := range s.trucks {
		if id != except && t.RegistrationNumber == reg {
			return true
		}
	}
	return false
}

func (s *Store) CreateTeam(_ context.Context, team model.Team, notifications []model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("CreateTeam"); err != nil {
		return err
	}
	if s.teamNameTaken(team.Name, team.ID) {
		return repository.ErrUniqueViolation
	}
	for _, id := range team.Members {
		if _, ok := s.users[id]; !ok {
			return repository.ErrReferenced
		}
	}
	if err := s.checkNotifications(notifications); err != nil {
		return err
	}
	s.members[team.ID] = append([]uuid.UUID(nil), team.Members...)
	team.Members, team.Trucks = nil, nil
	s.teams[team.ID] = team
	s.putNotifications(notifications)
	return nil
}

func (s *Store) GetTeam(_ context.Context, id uuid.UUID) (*model.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[id]; !ok {
		return nil, gorm.ErrRecordNotFound
	}
	t := s.teamLocked(id)
	return &t, nil
}

func (s *Store) ListTeams(_ context.Context, filter model.TeamFilter) ([]model.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Team
	for id, t := range s.teams {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.Specialization != nil && t.Specialization != *filter.Specialization {
			continue
		}
		out = append(out, s.teamLocked(id))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateTeam(_ context.Context, team model.Team, replaceRoster bool, notifications []model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("UpdateTeam"); err != nil {
		return err
	}
	current, ok := s.teams[team.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if s.teamNameTaken(team.Name, team.ID) {
		return repository.ErrUniqueViolation
	}
	if err := s.checkNotifications(notifications); err != nil {
		return err
	}
	current.Name = team.Name
	current.Specialization = team.Specialization
	current.Status = team.Status
	current.UpdatedAt = team.UpdatedAt
	s.teams[team.ID] = current
	if replaceRoster {
		s.members[team.ID] = append([]uuid.UUID(nil), team.Members...)
	}
	s.putNotifications(notifications)
	return nil
}

func (s *Store) DeleteTeam(_ context.Context, id uuid.UUID, notifications []model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("DeleteTeam"); err != nil {
		return err
	}
	if _, ok := s.teams[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	if s.hasActiveDispatch(func(d model.Dispatch) bool { return d.TeamID != nil && *d.TeamID == id }) {
		return repository.ErrActiveDispatch
	}
	if err := s.checkNotifications(notifications); err != nil {
		return err
	}
	s.putNotifications(notifications)
	for truckID, tr := range s.trucks {
		if tr.AssignedTeamID != nil && *tr.AssignedTeamID == id {
			tr.AssignedTeamID = nil
			s.trucks[truckID] = tr
		}
	}
	for dispatchID, d := range s.dispatches {
		if d.value.TeamID != nil && *d.value.TeamID == id {
			d.value.TeamID = nil
			s.dispatches[dispatchID] = d
		}
	}
	delete(s.members, id)
	delete(s.teams, id)
	return nil
}

func (s *Store) ListTeamMemberIDs(_ context.Context, teamID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := append([]uuid.UUID(nil), s.members[teamID]...)
	sortIDs(ids)
	return ids, nil
}

func (s *Store) CreateTruck(_ context.Context, truck model.Truck, notifications []model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("CreateTruck"); err != nil {
		return err
	}
	if s.registrationTaken(truck.RegistrationNumber, truck.ID) {
		return repository.ErrUniqueViolation
	}
	if truck.AssignedTeamID != nil {
		if _, ok := s.teams[*truck.AssignedTeamID]; !ok {
			return gorm.ErrRecordNotFound
		}
	}
	if err := s.checkNotifications(notifications); err != nil {
		return err
	}
	s.trucks[truck.ID] = truck
	s.putNotifications(notifications)
	return nil
}

func (s *Store) GetTruck(_ context.Context, id uuid.UUID) (*model.Truck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trucks[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

func (s *Store) ListTrucks(_ context.Context, filter model.TruckFilter) ([]model.Truck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Truck
	for _, t := range s.trucks {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.TeamID != nil && (t.AssignedTeamID == nil || *t.AssignedTeamID != *filter.TeamID) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegistrationNumber < out[j].RegistrationNumber })
	return out, nil
}

func (s *Store) UpdateTruck(_ context.Context, truck model.Truck, expected model.TruckStatus, notifications []model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("UpdateTruck"); err != nil {
		return err
	}
	current, ok := s.trucks[truck.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if current.Status != expected {
		return repository.ErrTruckStatusChanged
	}
	if s.registrationTaken(truck.RegistrationNumber, truck.ID) {
		return repository.ErrUniqueViolation
	}
	if truck.AssignedTeamID != nil {
		if _, ok := s.teams[*truck.AssignedTeamID]; !ok {
			return gorm.ErrRecordNotFound
		}
	}
	if err := s.checkNotifications(notifications); err != nil {
		return err
	}
	truck.CreatedAt = current.CreatedAt
	s.trucks[truck.ID] = truck
	s.putNotifications(notifications)
	return nil
}

func (s *Store) DeleteTruck(_ context.Context, id uuid.UUID, notifications []model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("DeleteTruck"); err != nil {
		return err
	}
	if _, ok := s.trucks[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	if s.hasActiveDispatch(func(d model.Dispatch) bool { return d.TruckID != nil && *d.TruckID == id }) {
		return repository.ErrActiveDispatch
	}
	if err := s.checkNotifications(notifications); err != nil {
		return err
	}
	s.putNotifications(notifications)
	for dispatchID, d := range s.dispatches {
		if d.value.TruckID != nil && *d.value.TruckID == id {
			d.value.TruckID = nil
			s.dispatches[dispatchID] = d
		}
	}
	delete(s.trucks, id)
	return nil
}

func (s *Store) ListCandidates(_ context.Context, specializations []model.Specialization) ([]model.CrewCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	allowed := make(map[model.Specialization]bool, len(specializations))
	for _, spec := range specializations {
		allowed[spec] = true
	}
	var out []model.CrewCandidate
	for _, tr := range s.trucks {
		if tr.Status != model.TruckStatusAvailable || tr.AssignedTeamID == nil {
			continue
		}
		team, ok := s.teams[*tr.AssignedTeamID]
		if !ok || team.Status != model.TeamStatusActive || !allowed[team.Specialization] {
			continue
		}
		out = append(out, model.CrewCandidate{
			TruckID:            tr.ID,
			RegistrationNumber: tr.RegistrationNumber,
			TeamID:             team.ID,
			TeamName:           team.Name,
			Specialization:     team.Specialization,
			Longitude:          tr.Longitude,
			Latitude:           tr.Latitude,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegistrationNumber < out[j].RegistrationNumber })
	return out, nil
}
