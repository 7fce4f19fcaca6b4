package models

import (
	"math"
	"time"
)

type Trip struct {
	ID          string     `json:"id"`
	TravelerID  string     `json:"traveler_id"`
	FromCity    string     `json:"from_city"`
	ToCity      string     `json:"to_city"`
	DepartureAt time.Time  `json:"departure_at"`
	AvailableKg float64    `json:"available_kg"`
	UsedKg      float64    `json:"used_kg"`
	Status      TripStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// RemainingKg is the capacity still free for new matches.
func (t *Trip) RemainingKg() float64 {
	return GramsToKg(t.RemainingGrams())
}

// RemainingGrams is RemainingKg in whole grams, the unit capacity is
// accounted in.
func (t *Trip) RemainingGrams() int64 {
	return KgToGrams(t.AvailableKg) - KgToGrams(t.UsedKg)
}

// KgToGrams rounds kg to the nearest gram.
func KgToGrams(kg float64) int64 {
	return int64(math.Round(kg * 1000))
}

func GramsToKg(g int64) float64 {
	return float64(g) / 1000
}

type TripStatus string

const (
	TripActive    TripStatus = "active"
	TripCompleted TripStatus = "completed"
	TripCancelled TripStatus = "cancelled"
)

func (s TripStatus) Valid() bool {
	return s == TripActive || s == TripCompleted || s == TripCancelled
}

// CapacityReservation records the kilograms one parcel holds on a trip.
// A parcel has at most one reservation.
type CapacityReservation struct {
	ParcelID  string    `json:"parcel_id"`
	TripID    string    `json:"trip_id"`
	WeightKg  float64   `json:"weight_kg"`
	CreatedAt time.Time `json:"created_at"`
}
