package repository

import (
	"context"

	"github.com/honeynil/ParcelMatchService/internal/models"
)

// Transactor runs fn inside one storage transaction. Repository calls made
// with the ctx passed to fn join that transaction; an error returned by fn
// rolls every write back.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type ParcelRepository interface {
	Create(ctx context.Context, parcel *models.Parcel) error
	GetByID(ctx context.Context, id string) (*models.Parcel, error)
	// GetForUpdate locks the parcel row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*models.Parcel, error)
	AssignTrip(ctx context.Context, parcelID, tripID string) error
	UpdateStatus(ctx context.Context, parcelID string, from, to models.ParcelStatus) error
	ListBySender(ctx context.Context, senderID string) ([]models.Parcel, error)
}

type TripRepository interface {
	Create(ctx context.Context, trip *models.Trip) error
	GetByID(ctx context.Context, id string) (*models.Trip, error)
	// ReserveCapacity adds the parcel's weight to used_kg only if the trip is
	// active and the result stays within available_kg, and records the
	// reservation. A parcel can hold at most one reservation.
	ReserveCapacity(ctx context.Context, r models.CapacityReservation) (*models.Trip, error)
	// UpdateStatus closes an active trip; a trip that is no longer active
	// yields ErrInvalidTransition.
	UpdateStatus(ctx context.Context, tripID string, status models.TripStatus) error
	ListAvailable(ctx context.Context, fromCity, toCity string, minKg float64) ([]models.Trip, error)
}

type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
	GetByParcelID(ctx context.Context, parcelID string) (*models.Transaction, error)
	UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) (*models.Transaction, error)
}

type TrackingRepository interface {
	Append(ctx context.Context, update *models.TrackingUpdate) error
	ListByParcel(ctx context.Context, parcelID string) ([]models.TrackingUpdate, error)
}

type AuditRepository interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
	ListByEntity(ctx context.Context, entityType models.EntityType, entityID string) ([]models.AuditEntry, error)
}

type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error)
}

// Store bundles every repository of one storage backend.
type Store struct {
	Transactor   Transactor
	Parcels      ParcelRepository
	Trips        TripRepository
	Transactions TransactionRepository
	Tracking     TrackingRepository
	Audit        AuditRepository
	Messages     MessageRepository
}
