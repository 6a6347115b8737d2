package types

import "time"

type PickupStatus string

const (
	PickupStatusOpen      PickupStatus = "open"
	PickupStatusAccepted  PickupStatus = "accepted"
	PickupStatusEnRoute   PickupStatus = "en_route"
	PickupStatusCollected PickupStatus = "collected"
)

type PickupRequest struct {
	ID             string       `db:"id"`
	ResidentID     string       `db:"resident_id"`
	NeighborhoodID string       `db:"neighborhood_id"`
	Status         PickupStatus `db:"status"`
	Materials      []string     `db:"materials"`
	Notes          *string      `db:"notes"`
	CreatedAt      time.Time    `db:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at"`
}

type PickupForm struct {
	Materials []string `form:"materials"`
	Notes     string   `form:"notes"`
}

type Receipt struct {
	ID              string    `db:"id"`
	PickupRequestID string    `db:"pickup_request_id"`
	CooperadoID     string    `db:"cooperado_id"`
	WeightGrams     int64     `db:"weight_grams"`
	CreatedAt       time.Time `db:"created_at"`
}

type RecurrenceSubscription struct {
	UserID    string    `db:"user_id"`
	Weekday   int       `db:"weekday"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
