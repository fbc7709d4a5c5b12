package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type DispatchStatus string

const (
	DispatchStatusPending   DispatchStatus = "pending"
	DispatchStatusAssigned  DispatchStatus = "assigned"
	DispatchStatusEnRoute   DispatchStatus = "en_route"
	DispatchStatusCollected DispatchStatus = "collected"
	DispatchStatusCompleted DispatchStatus = "completed"
	DispatchStatusCancelled DispatchStatus = "cancelled"
)

var dispatchTransitions = map[DispatchStatus][]DispatchStatus{
	DispatchStatusPending:   {DispatchStatusAssigned, DispatchStatusCancelled},
	DispatchStatusAssigned:  {DispatchStatusEnRoute, DispatchStatusCancelled},
	DispatchStatusEnRoute:   {DispatchStatusCollected, DispatchStatusCancelled},
	DispatchStatusCollected: {DispatchStatusCompleted, DispatchStatusCancelled},
}

func (s DispatchStatus) Valid() bool {
	switch s {
	case DispatchStatusPending, DispatchStatusAssigned, DispatchStatusEnRoute,
		DispatchStatusCollected, DispatchStatusCompleted, DispatchStatusCancelled:
		return true
	}
	return false
}

func (s DispatchStatus) IsTerminal() bool {
	return s == DispatchStatusCompleted || s == DispatchStatusCancelled
}

func (s DispatchStatus) IsActive() bool {
	return s.Valid() && !s.IsTerminal()
}

func (s DispatchStatus) CanTransitionTo(next DispatchStatus) bool {
	for _, allowed := range dispatchTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ReportStatusFor returns the waste report status implied by moving a dispatch from one status to another.
// Cancelling before collection hands the report back to pending_dispatch so it can be dispatched again;
// once the waste is collected the report stays collected.
func ReportStatusFor(from, to DispatchStatus) ReportStatus {
	switch to {
	case DispatchStatusCollected, DispatchStatusCompleted:
		return ReportStatusCollected
	case DispatchStatusCancelled:
		if from == DispatchStatusCollected {
			return ReportStatusCollected
		}
		return ReportStatusPendingDispatch
	default:
		return ReportStatusDispatched
	}
}

// ReleasesTruck reports whether moving from one status to another frees the dispatched truck.
// The truck is already free after collection, so a later cancel leaves it alone.
func ReleasesTruck(from, to DispatchStatus) bool {
	switch to {
	case DispatchStatusCollected:
		return true
	case DispatchStatusCancelled:
		return from != DispatchStatusCollected
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type DispatchMode string

const (
	DispatchModeAuto   DispatchMode = "auto"
	DispatchModeManual DispatchMode = "manual"
)

type Dispatch struct {
	ID                   uuid.UUID                   `json:"id"`
	WasteReportID        uuid.UUID                   `json:"waste_report_id"`
	TeamID               *uuid.UUID                  `json:"team_id"`
	TruckID              *uuid.UUID                  `json:"truck_id"`
	PickupLongitude      float64                     `json:"pickup_longitude"`
	PickupLatitude       float64                     `json:"pickup_latitude"`
	PickupAddress        string                      `json:"pickup_address"`
	Status               DispatchStatus              `json:"status"`
	Priority             Priority                    `json:"priority"`
	Mode                 DispatchMode                `json:"mode"`
	ScheduledDate        time.Time                   `json:"scheduled_date"`
	EstimatedArrival     *time.Time                  `json:"estimated_arrival"`
	ActualCollectionDate *time.Time                  `json:"actual_collection_date"`
	CollectionVerified   bool                        `json:"collection_verified"`
	CollectionNotes      *string                     `json:"collection_notes"`
	CollectionImages     datatypes.JSONSlice[string] `json:"collection_images"`
	PointsAwarded        int64                       `json:"points_awarded"`
	CreatedAt            time.Time                   `json:"created_at"`
	UpdatedAt            time.Time                   `json:"updated_at"`
}

// DispatchTransition carries every column a status change may touch.
// ExpectedStatus guards the update so concurrent writers cannot both win.
type DispatchTransition struct {
	DispatchID           uuid.UUID
	ExpectedStatus       DispatchStatus
	Status               DispatchStatus
	EstimatedArrival     *time.Time
	ActualCollectionDate *time.Time
	CollectionVerified   bool
	CollectionNotes      *string
	CollectionImages     []string
	PointsAwarded        int64
	UpdatedAt            time.Time

	ReportID     uuid.UUID
	ReportStatus ReportStatus
	ReleaseTruck *uuid.UUID
	Award        *LedgerEntry

	// TeamNotice is fanned out to the roster of TeamID inside the same transaction.
	TeamID     *uuid.UUID
	TeamNotice *Notice
	Notices    []Notification
}

type DispatchFilter struct {
	Status *DispatchStatus
	TeamID *uuid.UUID
	From   *time.Time
	To     *time.Time
}

// DispatchDetail is a dispatch joined with the names used on exports.
type DispatchDetail struct {
	Dispatch
	TeamName           string  `json:"team_name"`
	RegistrationNumber string  `json:"registration_number"`
	DominantWasteType  string  `json:"dominant_waste_type"`
	VolumeValue        float64 `json:"volume_value"`
	VolumeUnit         string  `json:"volume_unit"`
}

type DispatchRegister struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	Rows        []DispatchDetail
}

type CollectionSheet struct {
	Detail  DispatchDetail
	Members []User
	Report  WasteReport
}
