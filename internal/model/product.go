package model

import (
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PointsCost  int64     `json:"points_cost"`
	Stock       int64     `json:"stock"`
	ImageURL    string    `json:"image_url"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type RedemptionOrder struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	ProductID   uuid.UUID `json:"product_id"`
	Quantity    int64     `json:"quantity"`
	PointsSpent int64     `json:"points_spent"`
	CreatedAt   time.Time `json:"created_at"`
}

// Redemption bundles every row a product redemption writes.
type Redemption struct {
	Order        RedemptionOrder
	Entry        LedgerEntry
	Notification Notification
}
