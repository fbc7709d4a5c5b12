package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/waste-dispatch/internal/model"
)

const truckColumns = `
	id,
	registration_number,
	type,
	capacity,
	capacity_unit,
	status,
	assigned_team_id,
	longitude,
	latitude,
	created_at,
	updated_at
`

type FleetRepository struct {
	db *gorm.DB
}

func NewFleetRepository(db *gorm.DB) *FleetRepository {
	return &FleetRepository{db: db}
}

func (r *FleetRepository) CreateTeam(ctx context.Context, team model.Team, notifications []model.Notification) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`
			INSERT INTO teams (id, name, specialization, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, team.ID, team.Name, team.Specialization, team.Status, team.CreatedAt, team.UpdatedAt).Error; err != nil {
			return translate(err)
		}
		if err := replaceMembers(tx, team.ID, team.Members); err != nil {
			return err
		}
		return insertNotifications(tx, notifications)
	})
}

func (r *FleetRepository) GetTeam(ctx context.Context, id uuid.UUID) (*model.Team, error) {
	var team model.Team
	db := r.db.WithContext(ctx)
	if err := db.Raw(`
		SELECT id, name, specialization, status, created_at, updated_at
		FROM teams
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&team).Error; err != nil {
		return nil, err
	}
	if team.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}

	members, err := teamMemberIDs(db, id)
	if err != nil {
		return nil, err
	}
	team.Members = members

	if err := db.Raw(`
		SELECT id
		FROM trucks
		WHERE assigned_team_id = ?
		ORDER BY registration_number
	`, id).Scan(&team.Trucks).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *FleetRepository) ListTeams(ctx context.Context, filter model.TeamFilter) ([]model.Team, error) {
	var conditions []string
	var args []interface{}
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.Specialization != nil {
		conditions = append(conditions, "specialization = ?")
		args = append(args, *filter.Specialization)
	}
	query := `
		SELECT id, name, specialization, status, created_at, updated_at
		FROM teams
	`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY name ASC"

	var teams []model.Team
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&teams).Error; err != nil {
		return nil, err
	}
	if len(teams) == 0 {
		return teams, nil
	}

	ids := make([]uuid.UUID, len(teams))
	index := make(map[uuid.UUID]int, len(teams))
	for i, team := range teams {
		ids[i] = team.ID
		index[team.ID] = i
	}

	var members []struct {
		TeamID uuid.UUID
		UserID uuid.UUID
	}
	if err := r.db.WithContext(ctx).Raw(`
		SELECT team_id, user_id
		FROM team_members
		WHERE team_id IN ?
		ORDER BY user_id
	`, ids).Scan(&members).Error; err != nil {
		return nil, err
	}
	for _, m := range members {
		teams[index[m.TeamID]].Members = append(teams[index[m.TeamID]].Members, m.UserID)
	}

	var trucks []struct {
		ID             uuid.UUID
		AssignedTeamID uuid.UUID
	}
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id, assigned_team_id
		FROM trucks
		WHERE assigned_team_id IN ?
		ORDER BY registration_number
	`, ids).Scan(&trucks).Error; err != nil {
		return nil, err
	}
	for _, t := range trucks {
		teams[index[t.AssignedTeamID]].Trucks = append(teams[index[t.AssignedTeamID]].Trucks, t.ID)
	}
	return teams, nil
}

// UpdateTeam writes the team row and, when replaceRoster is set, its member list.
func (r *FleetRepository) UpdateTeam(
	ctx context.Context,
	team model.Team,
	replaceRoster bool,
	notifications []model.Notification,
) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Exec(`
			UPDATE teams
			SET name = ?, specialization = ?, status = ?, updated_at = ?
			WHERE id = ?
		`, team.Name, team.Specialization, team.Status, team.UpdatedAt, team.ID)
		if result.Error != nil {
			return translate(result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if replaceRoster {
			if err := replaceMembers(tx, team.ID, team.Members); err != nil {
				return err
			}
		}
		return insertNotifications(tx, notifications)
	})
}

// DeleteTeam notifies the roster, unlinks trucks and members, then removes the team.
func (r *FleetRepository) DeleteTeam(ctx context.Context, id uuid.UUID, notifications []model.Notification) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockTeam(tx, id); err != nil {
			return err
		}
		active, err := hasActiveDispatch(tx, "team_id", id)
		if err != nil {
			return err
		}
		if active {
			return ErrActiveDispatch
		}
		if err := insertNotifications(tx, notifications); err != nil {
			return err
		}
		if err := tx.Exec(`
			UPDATE trucks
			SET assigned_team_id = NULL, updated_at = NOW()
			WHERE assigned_team_id = ?
		`, id).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM team_members WHERE team_id = ?`, id).Error; err != nil {
			return err
		}
		return tx.Exec(`DELETE FROM teams WHERE id = ?`, id).Error
	})
}

func (r *FleetRepository) ListTeamMemberIDs(ctx context.Context, teamID uuid.UUID) ([]uuid.UUID, error) {
	return teamMemberIDs(r.db.WithContext(ctx), teamID)
}

func (r *FleetRepository) CreateTruck(ctx context.Context, truck model.Truck, notifications []model.Notification) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`
			INSERT INTO trucks (`+truckColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			truck.ID,
			truck.RegistrationNumber,
			truck.Type,
			truck.Capacity,
			truck.CapacityUnit,
			truck.Status,
			truck.AssignedTeamID,
			truck.Longitude,
			truck.Latitude,
			truck.CreatedAt,
			truck.UpdatedAt,
		).Error; err != nil {
			if err = translate(err); errors.Is(err, ErrReferenced) {
				return gorm.ErrRecordNotFound
			}
			return err
		}
		return insertNotifications(tx, notifications)
	})
}

func (r *FleetRepository) GetTruck(ctx context.Context, id uuid.UUID) (*model.Truck, error) {
	var truck model.Truck
	if err := r.db.WithContext(ctx).Raw(`
		SELECT `+truckColumns+`
		FROM trucks
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&truck).Error; err != nil {
		return nil, err
	}
	if truck.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &truck, nil
}

func (r *FleetRepository) ListTrucks(ctx context.Context, filter model.TruckFilter) ([]model.Truck, error) {
	var conditions []string
	var args []interface{}
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.TeamID != nil {
		conditions = append(conditions, "assigned_team_id = ?")
		args = append(args, *filter.TeamID)
	}
	query := `SELECT ` + truckColumns + ` FROM trucks`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY registration_number ASC"

	var trucks []model.Truck
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&trucks).Error; err != nil {
		return nil, err
	}
	return trucks, nil
}

// UpdateTruck writes the truck only while its status is still expected, so an edit
// cannot undo a dispatch that claimed the truck after it was read.
func (r *FleetRepository) UpdateTruck(
	ctx context.Context,
	truck model.Truck,
	expected model.TruckStatus,
	notifications []model.Notification,
) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Exec(`
			UPDATE trucks
			SET
				registration_number = ?,
				type = ?,
				capacity = ?,
				capacity_unit = ?,
				status = ?,
				assigned_team_id = ?,
				longitude = ?,
				latitude = ?,
				updated_at = ?
			WHERE id = ? AND status = ?
		`,
			truck.RegistrationNumber,
			truck.Type,
			truck.Capacity,
			truck.CapacityUnit,
			truck.Status,
			truck.AssignedTeamID,
			truck.Longitude,
			truck.Latitude,
			truck.UpdatedAt,
			truck.ID,
			expected,
		)
		if result.Error != nil {
			err := translate(result.Error)
			if errors.Is(err, ErrReferenced) {
				return gorm.ErrRecordNotFound
			}
			return err
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Raw(`SELECT COUNT(*) FROM trucks WHERE id = ?`, truck.ID).Scan(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return gorm.ErrRecordNotFound
			}
			return ErrTruckStatusChanged
		}
		return insertNotifications(tx, notifications)
	})
}

func (r *FleetRepository) DeleteTruck(ctx context.Context, id uuid.UUID, notifications []model.Notification) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		active, err := hasActiveDispatch(tx, "truck_id", id)
		if err != nil {
			return err
		}
		if active {
			return ErrActiveDispatch
		}
		if err := insertNotifications(tx, notifications); err != nil {
			return err
		}
		result := tx.Exec(`DELETE FROM trucks WHERE id = ?`, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// ListCandidates returns available trucks of active teams with one of the given specializations.
func (r *FleetRepository) ListCandidates(
	ctx context.Context,
	specializations []model.Specialization,
) ([]model.CrewCandidate, error) {
	if len(specializations) == 0 {
		return nil, nil
	}
	var rows []model.CrewCandidate
	if err := r.db.WithContext(ctx).Raw(`
		SELECT
			tr.id AS truck_id,
			tr.registration_number,
			t.id AS team_id,
			t.name AS team_name,
			t.specialization,
			tr.longitude,
			tr.latitude
		FROM trucks tr
		JOIN teams t ON t.id = tr.assigned_team_id
		WHERE tr.status = 'available'
			AND t.status = 'active'
			AND t.specialization IN ?
		ORDER BY tr.registration_number ASC
	`, specializations).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func replaceMembers(tx *gorm.DB, teamID uuid.UUID, members []uuid.UUID) error {
	if err := tx.Exec(`DELETE FROM team_members WHERE team_id = ?`, teamID).Error; err != nil {
		return err
	}
	for _, userID := range members {
		if err := tx.Exec(`
			INSERT INTO team_members (team_id, user_id)
			VALUES (?, ?)
			ON CONFLICT DO NOTHING
		`, teamID, userID).Error; err != nil {
			return translate(err)
		}
	}
	return nil
}

func lockTeam(tx *gorm.DB, id uuid.UUID) error {
	var found uuid.UUID
	if err := tx.Raw(`SELECT id FROM teams WHERE id = ? FOR UPDATE`, id).Scan(&found).Error; err != nil {
		return err
	}
	if found == uuid.Nil {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func hasActiveDispatch(tx *gorm.DB, column string, id uuid.UUID) (bool, error) {
	var count int64
	if err := tx.Raw(`
		SELECT COUNT(*)
		FROM dispatches
		WHERE `+column+` = ? AND status NOT IN ('completed', 'cancelled')
	`, id).Scan(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
