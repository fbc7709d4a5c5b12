package service

import (
	"errors"

	"gorm.io/gorm"

	"github.com/nurpe/waste-dispatch/internal/repository"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrDuplicate          = errors.New("already exists")
	ErrForbidden          = errors.New("forbidden")
	ErrNoCapacity         = errors.New("no eligible team and truck")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrExternalService    = errors.New("external service failure")
)

// mapStoreError converts storage sentinels that have a single meaning everywhere.
func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrUniqueViolation):
		return ErrDuplicate
	case errors.Is(err, repository.ErrInsufficientBalance):
		return ErrInsufficientPoints
	default:
		return err
	}
}
