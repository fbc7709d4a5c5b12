package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrReportNotPending    = errors.New("report is not pending dispatch")
	ErrCrewUnavailable     = errors.New("truck or team is no longer available")
	ErrStaleStatus         = errors.New("dispatch status changed concurrently")
	ErrTruckStatusChanged  = errors.New("truck status changed concurrently")
	ErrInsufficientBalance = errors.New("insufficient points balance")
	ErrOutOfStock          = errors.New("product out of stock")
	ErrUniqueViolation     = errors.New("unique constraint violation")
	ErrActiveDispatch      = errors.New("referenced by an active dispatch")
	ErrReferenced          = errors.New("referenced by other records")
)

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrUniqueViolation
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrReferenced
	default:
		return err
	}
}
