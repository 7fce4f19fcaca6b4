package models

import "time"

type Parcel struct {
	ID               string       `json:"id"`
	SenderID         string       `json:"sender_id"`
	TripID           *string      `json:"trip_id,omitempty"`
	FromCity         string       `json:"from_city"`
	ToCity           string       `json:"to_city"`
	Type             ParcelType   `json:"parcel_type"`
	WeightKg         float64      `json:"weight_kg"`
	Price            float64      `json:"price"`
	PlatformFee      float64      `json:"platform_fee"`
	IncludeInsurance bool         `json:"include_insurance"`
	Insurance        float64      `json:"insurance"`
	Status           ParcelStatus `json:"status"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

type ParcelType string

const (
	ParcelDocuments   ParcelType = "documents"
	ParcelClothes     ParcelType = "clothes"
	ParcelElectronics ParcelType = "electronics"
	ParcelCosmetics   ParcelType = "cosmetics"
	ParcelFood        ParcelType = "food"
	ParcelOther       ParcelType = "other"
)

func (t ParcelType) Valid() bool {
	switch t {
	case ParcelDocuments, ParcelClothes, ParcelElectronics, ParcelCosmetics, ParcelFood, ParcelOther:
		return true
	}
	return false
}

// ParcelStatus is one of the canonical delivery lifecycle states.
type ParcelStatus string

const (
	StatusCreated   ParcelStatus = "created"
	StatusMatched   ParcelStatus = "matched"
	StatusPickedUp  ParcelStatus = "picked_up"
	StatusInTransit ParcelStatus = "in_transit"
	StatusDelivered ParcelStatus = "delivered"
)

// MaxParcelWeightKg is the heaviest parcel a sender may post.
const MaxParcelWeightKg = 20.0
