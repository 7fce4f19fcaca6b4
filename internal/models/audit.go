package models

import "time"

type EntityType string

const (
	EntityParcel      EntityType = "parcel"
	EntityTrip        EntityType = "trip"
	EntityTransaction EntityType = "transaction"
	EntityMessage     EntityType = "message"
)

// AuditEntry is an append-only record of one mutating call. Exactly one of
// UserID and AdminID is set.
type AuditEntry struct {
	ID         int64          `json:"id"`
	UserID     *string        `json:"user_id,omitempty"`
	AdminID    *string        `json:"admin_id,omitempty"`
	EntityType EntityType     `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Action     string         `json:"action"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
