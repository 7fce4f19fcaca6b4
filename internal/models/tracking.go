package models

import "time"

// TrackingUpdate is one entry of a parcel's append-only delivery history.
type TrackingUpdate struct {
	ID          int64        `json:"id"`
	ParcelID    string       `json:"parcel_id"`
	Status      ParcelStatus `json:"status"`
	Description string       `json:"description,omitempty"`
	Latitude    *float64     `json:"latitude,omitempty"`
	Longitude   *float64     `json:"longitude,omitempty"`
	ActorID     string       `json:"actor_id"`
	ActorRole   Role         `json:"actor_role"`
	CreatedAt   time.Time    `json:"created_at"`
}
