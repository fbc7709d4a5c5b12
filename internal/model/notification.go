package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type NotificationType string

const (
	NotificationLogin            NotificationType = "login"
	NotificationWasteReport      NotificationType = "waste_report"
	NotificationRewardEarned     NotificationType = "reward_earned"
	NotificationBonusAwarded     NotificationType = "bonus_awarded"
	NotificationCleanupVerified  NotificationType = "cleanup_verified"
	NotificationDispatchAssigned NotificationType = "dispatch_assigned"
	NotificationDispatchUpdate   NotificationType = "dispatch_update"
	NotificationTruckStatus      NotificationType = "truck_status"
	NotificationTeamUpdate       NotificationType = "team_update"
	NotificationSystem           NotificationType = "system"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationLogin, NotificationWasteReport, NotificationRewardEarned, NotificationBonusAwarded,
		NotificationCleanupVerified, NotificationDispatchAssigned, NotificationDispatchUpdate,
		NotificationTruckStatus, NotificationTeamUpdate, NotificationSystem:
		return true
	}
	return false
}

type NotificationStatus string

const (
	NotificationStatusActive   NotificationStatus = "active"
	NotificationStatusArchived NotificationStatus = "archived"
	NotificationStatusDeleted  NotificationStatus = "deleted"
)

func (s NotificationStatus) Valid() bool {
	switch s {
	case NotificationStatusActive, NotificationStatusArchived, NotificationStatusDeleted:
		return true
	}
	return false
}

type EntityKind string

const (
	EntityNone        EntityKind = ""
	EntityWasteReport EntityKind = "waste_report"
	EntityDispatch    EntityKind = "dispatch"
	EntityTeam        EntityKind = "team"
	EntityTruck       EntityKind = "truck"
	EntityUser        EntityKind = "user"
	EntityProduct     EntityKind = "product"
)

// RelatedEntity points a notification at the record it is about.
// The zero value refers to nothing.
type RelatedEntity struct {
	Kind EntityKind `json:"kind,omitempty"`
	ID   *uuid.UUID `json:"id,omitempty"`
}

func related(kind EntityKind, id uuid.UUID) RelatedEntity {
	return RelatedEntity{Kind: kind, ID: &id}
}

func WasteReportRef(id uuid.UUID) RelatedEntity { return related(EntityWasteReport, id) }
func DispatchRef(id uuid.UUID) RelatedEntity    { return related(EntityDispatch, id) }
func TeamRef(id uuid.UUID) RelatedEntity        { return related(EntityTeam, id) }
func TruckRef(id uuid.UUID) RelatedEntity       { return related(EntityTruck, id) }
func UserRef(id uuid.UUID) RelatedEntity        { return related(EntityUser, id) }
func ProductRef(id uuid.UUID) RelatedEntity     { return related(EntityProduct, id) }

func (r RelatedEntity) IsNone() bool {
	return r.Kind == EntityNone || r.ID == nil
}

type Notification struct {
	ID          uuid.UUID          `json:"id"`
	RecipientID uuid.UUID          `json:"recipient_id"`
	Type        NotificationType   `json:"type"`
	Title       string             `json:"title"`
	Message     string             `json:"message"`
	IsRead      bool               `json:"is_read"`
	ReadAt      *time.Time         `json:"read_at,omitempty"`
	Priority    Priority           `json:"priority"`
	Status      NotificationStatus `json:"status"`
	RelatedKind EntityKind         `json:"related_kind,omitempty"`
	RelatedID   *uuid.UUID         `json:"related_id,omitempty"`
	Metadata    datatypes.JSONMap  `json:"metadata,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

func (n Notification) Related() RelatedEntity {
	if n.RelatedKind == EntityNone || n.RelatedID == nil {
		return RelatedEntity{}
	}
	return RelatedEntity{Kind: n.RelatedKind, ID: n.RelatedID}
}

// Notice is a notification template addressed to many recipients.
type Notice struct {
	Type     NotificationType
	Title    string
	Message  string
	Priority Priority
	Related  RelatedEntity
	Metadata map[string]interface{}
}

func (n Notice) For(recipient uuid.UUID, now time.Time) Notification {
	out := Notification{
		ID:          uuid.New(),
		RecipientID: recipient,
		Type:        n.Type,
		Title:       n.Title,
		Message:     n.Message,
		Priority:    n.Priority,
		Status:      NotificationStatusActive,
		CreatedAt:   now,
	}
	if out.Priority == "" {
		out.Priority = PriorityNormal
	}
	if !n.Related.IsNone() {
		out.RelatedKind = n.Related.Kind
		id := *n.Related.ID
		out.RelatedID = &id
	}
	if len(n.Metadata) > 0 {
		out.Metadata = datatypes.JSONMap(n.Metadata)
	}
	return out
}

// Fanout addresses the notice to every recipient, skipping duplicates.
func (n Notice) Fanout(recipients []uuid.UUID, now time.Time) []Notification {
	seen := make(map[uuid.UUID]struct{}, len(recipients))
	out := make([]Notification, 0, len(recipients))
	for _, id := range recipients {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, n.For(id, now))
	}
	return out
}

type NotificationFilter struct {
	Type       *NotificationType
	Status     *NotificationStatus
	UnreadOnly bool
}
