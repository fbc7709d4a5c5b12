package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/waste-dispatch/internal/model"
)

const userColumns = `id, name, email, role, points, created_at, updated_at`

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) CreateUser(ctx context.Context, u model.User) error {
	return translate(r.db.WithContext(ctx).Exec(`
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.Name, u.Email, u.Role, u.Points, u.CreatedAt, u.UpdatedAt).Error)
}

func (r *UserRepository) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var u model.User
	db := r.db.WithContext(ctx)
	if err := db.Raw(`
		SELECT `+userColumns+`
		FROM users
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&u).Error; err != nil {
		return nil, err
	}
	if u.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	if err := db.Raw(`
		SELECT team_id
		FROM team_members
		WHERE user_id = ?
		ORDER BY team_id
	`, id).Scan(&u.Teams).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) ListUsers(ctx context.Context, role *model.UserRole, page model.Page) ([]model.User, int64, error) {
	where := ""
	var args []interface{}
	if role != nil {
		where = " WHERE role = ?"
		args = append(args, *role)
	}

	var total int64
	if err := r.db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM users`+where, args...).Scan(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []model.User
	args = append(args, page.PageSize, page.Offset())
	if err := r.db.WithContext(ctx).Raw(`
		SELECT `+userColumns+`
		FROM users`+where+`
		ORDER BY name ASC, id
		LIMIT ? OFFSET ?
	`, args...).Scan(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *UserRepository) ListUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []model.User
	if err := r.db.WithContext(ctx).Raw(`
		SELECT `+userColumns+`
		FROM users
		WHERE id IN ?
		ORDER BY name ASC
	`, ids).Scan(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) ListUserIDsByRole(ctx context.Context, role model.UserRole) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id FROM users WHERE role = ? ORDER BY id
	`, role).Scan(&ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *UserRepository) UpdateUserRole(ctx context.Context, id uuid.UUID, role model.UserRole) error {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE users SET role = ?, updated_at = NOW() WHERE id = ?
	`, role, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
