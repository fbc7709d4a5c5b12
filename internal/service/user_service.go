package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/waste-dispatch/internal/model"
	"github.com/nurpe/waste-dispatch/internal/repository"
)

type UserService struct {
	users UserStore
	log   zerolog.Logger
}

func NewUserService(users UserStore, log zerolog.Logger) *UserService {
	return &UserService{users: users, log: log}
}

type CreateUserInput struct {
	Name  string
	Email string
	Role  model.UserRole
}

func (s *UserService) CreateUser(ctx context.Context, principal model.Principal, input CreateUserInput) (*model.User, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(input.Email))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid email", ErrValidation)
	}
	role := input.Role
	if role == "" {
		role = model.UserRoleUser
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}

	now := nowUTC()
	user := model.User{
		ID:        uuid.New(),
		Name:      name,
		Email:     strings.ToLower(addr.Address),
		Role:      role,
		Teams:     []uuid.UUID{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, fmt.Errorf("%w: email %s", ErrDuplicate, user.Email)
		}
		return nil, mapStoreError(err)
	}
	return &user, nil
}

func (s *UserService) GetUser(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.User, error) {
	if id != principal.UserID && !principal.IsAdmin() {
		return nil, ErrForbidden
	}
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return user, nil
}

func (s *UserService) Me(ctx context.Context, principal model.Principal) (*model.User, error) {
	return s.GetUser(ctx, principal, principal.UserID)
}

func (s *UserService) ListUsers(
	ctx context.Context,
	principal model.Principal,
	role *model.UserRole,
	page model.Page,
) (model.Paginated[model.User], error) {
	if err := requireAdmin(principal); err != nil {
		return model.Paginated[model.User]{}, err
	}
	if role != nil && !role.Valid() {
		return model.Paginated[model.User]{}, fmt.Errorf("%w: unknown role %q", ErrValidation, *role)
	}
	page = page.Normalize()
	users, total, err := s.users.ListUsers(ctx, role, page)
	if err != nil {
		return model.Paginated[model.User]{}, err
	}
	return model.NewPaginated(users, page, total), nil
}

func (s *UserService) UpdateRole(ctx context.Context, principal model.Principal, id uuid.UUID, role model.UserRole) (*model.User, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	if id == principal.UserID && role != model.UserRoleAdmin {
		return nil, fmt.Errorf("%w: admins cannot demote themselves", ErrValidation)
	}
	if err := s.users.UpdateUserRole(ctx, id, role); err != nil {
		return nil, mapStoreError(err)
	}
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	s.log.Info().Str("user_id", id.String()).Str("role", string(role)).Msg("user role changed")
	return user, nil
}
