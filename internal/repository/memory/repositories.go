package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/honeynil/ParcelMatchService/internal/models"
	pkgerrors "github.com/honeynil/ParcelMatchService/pkg/errors"
)

type ParcelRepository struct {
	db *DB
}

func (r *ParcelRepository) Create(ctx context.Context, parcel *models.Parcel) error {
	if parcel == nil {
		return pkgerrors.ErrNilParcel
	}
	return r.db.write(ctx, func(j *journal) error {
		if parcel.ID == "" {
			parcel.ID = uuid.NewString()
		}
		if _, ok := r.db.parcels[parcel.ID]; ok {
			return fmt.Errorf("failed to create parcel: duplicate id %s", parcel.ID)
		}
		if parcel.Status == "" {
			parcel.Status = models.StatusCreated
		}
		now := time.Now().UTC()
		parcel.CreatedAt, parcel.UpdatedAt = now, now

		r.db.parcels[parcel.ID] = *parcel
		id := parcel.ID
		j.onRollback(func() { delete(r.db.parcels, id) })
		slog.Info("parcel created", "method", "Create", "parcel_id", id, "sender_id", parcel.SenderID)
		return nil
	})
}

func (r *ParcelRepository) GetByID(_ context.Context, id string) (*models.Parcel, error) {
	var p models.Parcel
	var ok bool
	r.db.read(func() { p, ok = r.db.parcels[id] })
	if !ok {
		return nil, pkgerrors.ErrParcelNotFound
	}
	return &p, nil
}

// GetForUpdate needs no extra locking: transactions already run one at a time.
func (r *ParcelRepository) GetForUpdate(ctx context.Context, id string) (*models.Parcel, error) {
	return r.GetByID(ctx, id)
}

func (r *ParcelRepository) AssignTrip(ctx context.Context, parcelID, tripID string) error {
	return r.db.write(ctx, func(j *journal) error {
		p, ok := r.db.parcels[parcelID]
		if !ok {
			return pkgerrors.ErrParcelNotFound
		}
		if p.Status != models.StatusCreated || p.TripID != nil {
			return pkgerrors.ErrAlreadyMatched
		}
		prev := p
		p.TripID = &tripID
		p.Status = models.StatusMatched
		p.UpdatedAt = time.Now().UTC()
		r.db.parcels[parcelID] = p
		j.onRollback(func() { r.db.parcels[parcelID] = prev })
		return nil
	})
}

func (r *ParcelRepository) UpdateStatus(ctx context.Context, parcelID string, from, to models.ParcelStatus) error {
	return r.db.write(ctx, func(j *journal) error {
		p, ok := r.db.parcels[parcelID]
		if !ok {
			return pkgerrors.ErrParcelNotFound
		}
		if p.Status != from {
			return fmt.Errorf("%w: parcel %s is not %s", pkgerrors.ErrInvalidTransition, parcelID, from)
		}
		prev := p
		p.Status = to
		p.UpdatedAt = time.Now().UTC()
		r.db.parcels[parcelID] = p
		j.onRollback(func() { r.db.parcels[parcelID] = prev })
		return nil
	})
}

func (r *ParcelRepository) ListBySender(_ context.Context, senderID string) ([]models.Parcel, error) {
	parcels := make([]models.Parcel, 0)
	r.db.read(func() {
		for _, p := range r.db.parcels {
			if p.SenderID == senderID {
				parcels = append(parcels, p)
			}
		}
	})
	sort.Slice(parcels, func(i, k int) bool {
		if parcels[i].CreatedAt.Equal(parcels[k].CreatedAt) {
			return parcels[i].ID < parcels[k].ID
		}
		return parcels[i].CreatedAt.Before(parcels[k].CreatedAt)
	})
	return parcels, nil
}

type TripRepository struct {
	db *DB
}

func (r *TripRepository) Create(ctx context.Context, trip *models.Trip) error {
	if trip == nil {
		return pkgerrors.ErrNilTrip
	}
	return r.db.write(ctx, func(j *journal) error {
		if trip.ID == "" {
			trip.ID = uuid.NewString()
		}
		if _, ok := r.db.trips[trip.ID]; ok {
			return fmt.Errorf("failed to create trip: duplicate id %s", trip.ID)
		}
		if trip.Status == "" {
			trip.Status = models.TripActive
		}
		now := time.Now().UTC()
		trip.CreatedAt, trip.UpdatedAt = now, now

		r.db.trips[trip.ID] = *trip
		id := trip.ID
		j.onRollback(func() { delete(r.db.trips, id) })
		slog.Info("trip created", "method", "Create", "trip_id", id, "traveler_id", trip.TravelerID)
		return nil
	})
}

func (r *TripRepository) GetByID(_ context.Context, id string) (*models.Trip, error) {
	var t models.Trip
	var ok bool
	r.db.read(func() { t, ok = r.db.trips[id] })
	if !ok {
		return nil, pkgerrors.ErrTripNotFound
	}
	return &t, nil
}

func (r *TripRepository) ReserveCapacity(ctx context.Context, res models.CapacityReservation) (*models.Trip, error) {
	grams := models.KgToGrams(res.WeightKg)
	if grams <= 0 {
		return nil, pkgerrors.Validationf("reserved weight must be at least 1 g, got %v kg", res.WeightKg)
	}
	res.WeightKg = models.GramsToKg(grams)
	var out models.Trip
	err := r.db.write(ctx, func(j *journal) error {
		t, ok := r.db.trips[res.TripID]
		if !ok {
			return pkgerrors.ErrTripNotFound
		}
		if t.Status != models.TripActive {
			return fmt.Errorf("%w: trip %s is %s", pkgerrors.ErrTripNotActive, res.TripID, t.Status)
		}
		if grams > t.RemainingGrams() {
			return fmt.Errorf("%w: requested %v kg, remaining %v kg", pkgerrors.ErrInsufficientCapacity, res.WeightKg, t.RemainingKg())
		}
		if _, dup := r.db.reservations[res.ParcelID]; dup {
			return pkgerrors.ErrAlreadyMatched
		}

		prev := t
		t.UsedKg = models.GramsToKg(models.KgToGrams(t.UsedKg) + grams)
		t.UpdatedAt = time.Now().UTC()
		res.CreatedAt = t.UpdatedAt
		r.db.trips[t.ID] = t
		r.db.reservations[res.ParcelID] = res
		j.onRollback(func() {
			r.db.trips[prev.ID] = prev
			delete(r.db.reservations, res.ParcelID)
		})
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *TripRepository) UpdateStatus(ctx context.Context, tripID string, status models.TripStatus) error {
	return r.db.write(ctx, func(j *journal) error {
		t, ok := r.db.trips[tripID]
		if !ok {
			return pkgerrors.ErrTripNotFound
		}
		if t.Status != models.TripActive {
			return fmt.Errorf("%w: trip %s is already %s", pkgerrors.ErrInvalidTransition, tripID, t.Status)
		}
		prev := t
		t.Status = status
		t.UpdatedAt = time.Now().UTC()
		r.db.trips[tripID] = t
		j.onRollback(func() { r.db.trips[tripID] = prev })
		return nil
	})
}

func (r *TripRepository) ListAvailable(_ context.Context, fromCity, toCity string, minKg float64) ([]models.Trip, error) {
	trips := make([]models.Trip, 0)
	r.db.read(func() {
		for _, t := range r.db.trips {
			if t.Status == models.TripActive &&
				strings.EqualFold(t.FromCity, fromCity) &&
				strings.EqualFold(t.ToCity, toCity) &&
				t.RemainingGrams() >= models.KgToGrams(minKg) {
				trips = append(trips, t)
			}
		}
	})
	sort.Slice(trips, func(i, k int) bool {
		if trips[i].DepartureAt.Equal(trips[k].DepartureAt) {
			return trips[i].ID < trips[k].ID
		}
		return trips[i].DepartureAt.Before(trips[k].DepartureAt)
	})
	return trips, nil
}

type TransactionRepository struct {
	db *DB
}

func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	if tx == nil {
		return pkgerrors.ErrNilTransaction
	}
	if tx.PaymentStatus == "" {
		tx.PaymentStatus = models.PaymentPending
	}
	if !tx.PaymentStatus.Valid() {
		return pkgerrors.Validationf("unknown payment status %q", tx.PaymentStatus)
	}
	return r.db.write(ctx, func(j *journal) error {
		for _, existing := range r.db.transactions {
			if existing.ParcelID == tx.ParcelID {
				return pkgerrors.ErrAlreadyMatched
			}
		}
		if tx.ID == "" {
			tx.ID = uuid.NewString()
		}
		now := time.Now().UTC()
		tx.CreatedAt, tx.UpdatedAt = now, now
		r.db.transactions[tx.ID] = *tx
		id := tx.ID
		j.onRollback(func() { delete(r.db.transactions, id) })
		return nil
	})
}

func (r *TransactionRepository) GetByID(_ context.Context, id string) (*models.Transaction, error) {
	var tx models.Transaction
	var ok bool
	r.db.read(func() { tx, ok = r.db.transactions[id] })
	if !ok {
		return nil, pkgerrors.ErrTransactionNotFound
	}
	return &tx, nil
}

func (r *TransactionRepository) GetByParcelID(_ context.Context, parcelID string) (*models.Transaction, error) {
	var out *models.Transaction
	r.db.read(func() {
		for _, tx := range r.db.transactions {
			if tx.ParcelID == parcelID {
				found := tx
				out = &found
				return
			}
		}
	})
	if out == nil {
		return nil, pkgerrors.ErrTransactionNotFound
	}
	return out, nil
}

func (r *TransactionRepository) UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) (*models.Transaction, error) {
	if !status.Valid() {
		return nil, pkgerrors.Validationf("unknown payment status %q", status)
	}
	var out models.Transaction
	err := r.db.write(ctx, func(j *journal) error {
		tx, ok := r.db.transactions[id]
		if !ok {
			return pkgerrors.ErrTransactionNotFound
		}
		if tx.PaymentStatus == models.PaymentCompleted {
			return pkgerrors.ErrTransactionCompleted
		}
		prev := tx
		tx.PaymentStatus = status
		tx.UpdatedAt = time.Now().UTC()
		r.db.transactions[id] = tx
		j.onRollback(func() { r.db.transactions[id] = prev })
		out = tx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type TrackingRepository struct {
	db *DB
}

func (r *TrackingRepository) Append(ctx context.Context, u *models.TrackingUpdate) error {
	if u == nil {
		return pkgerrors.Validationf("tracking update is nil")
	}
	return r.db.write(ctx, func(j *journal) error {
		r.db.trackingSeq++
		u.ID = r.db.trackingSeq
		u.CreatedAt = time.Now().UTC()
		parcelID := u.ParcelID
		r.db.tracking[parcelID] = append(r.db.tracking[parcelID], *u)
		j.onRollback(func() {
			list := r.db.tracking[parcelID]
			r.db.tracking[parcelID] = list[:len(list)-1]
		})
		return nil
	})
}

func (r *TrackingRepository) ListByParcel(_ context.Context, parcelID string) ([]models.TrackingUpdate, error) {
	updates := make([]models.TrackingUpdate, 0)
	r.db.read(func() { updates = append(updates, r.db.tracking[parcelID]...) })
	return updates, nil
}

type AuditRepository struct {
	db *DB
}

// Append is not undone by a rollback: audit entries are written after the
// audited change commits.
func (r *AuditRepository) Append(ctx context.Context, e *models.AuditEntry) error {
	if e == nil {
		return pkgerrors.Validationf("audit entry is nil")
	}
	if (e.UserID == nil) == (e.AdminID == nil) {
		return pkgerrors.Validationf("audit entry needs exactly one of user_id and admin_id")
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	e.ID = int64(len(r.db.audit) + 1)
	e.CreatedAt = time.Now().UTC()
	r.db.audit = append(r.db.audit, *e)
	return nil
}

func (r *AuditRepository) ListByEntity(_ context.Context, entityType models.EntityType, entityID string) ([]models.AuditEntry, error) {
	entries := make([]models.AuditEntry, 0)
	r.db.read(func() {
		for _, e := range r.db.audit {
			if e.EntityType == entityType && e.EntityID == entityID {
				entries = append(entries, e)
			}
		}
	})
	return entries, nil
}

type MessageRepository struct {
	db *DB
}

func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	if msg == nil {
		return pkgerrors.Validationf("message is nil")
	}
	return r.db.write(ctx, func(j *journal) error {
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}
		msg.CreatedAt = time.Now().UTC()
		conv := msg.ConversationID
		r.db.messages[conv] = append(r.db.messages[conv], *msg)
		j.onRollback(func() {
			list := r.db.messages[conv]
			r.db.messages[conv] = list[:len(list)-1]
		})
		return nil
	})
}

func (r *MessageRepository) ListByConversation(_ context.Context, conversationID string) ([]models.Message, error) {
	msgs := make([]models.Message, 0)
	r.db.read(func() { msgs = append(msgs, r.db.messages[conversationID]...) })
	return msgs, nil
}
