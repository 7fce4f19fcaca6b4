package models

import "time"

// StatusEvent is published whenever a parcel changes status.
type StatusEvent struct {
	ParcelID   string       `json:"parcel_id"`
	TripID     string       `json:"trip_id,omitempty"`
	Status     ParcelStatus `json:"status"`
	ActorID    string       `json:"actor_id"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// PaymentEvent is what the payment collaborator reports for a transaction.
type PaymentEvent struct {
	TransactionID string        `json:"transaction_id"`
	PaymentStatus PaymentStatus `json:"payment_status"`
}
