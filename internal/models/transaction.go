package models

import "time"

type Transaction struct {
	ID             string        `json:"id"`
	ParcelID       string        `json:"parcel_id"`
	SenderID       string        `json:"sender_id"`
	TravelerID     string        `json:"traveler_id"`
	SenderPaid     float64       `json:"sender_paid"`
	PlatformFee    float64       `json:"platform_fee"`
	TravelerPayout float64       `json:"traveler_payout"`
	Insurance      float64       `json:"insurance"`
	PaymentStatus  PaymentStatus `json:"payment_status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}
