package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/honeynil/ParcelMatchService/internal/models"
	pkgerrors "github.com/honeynil/ParcelMatchService/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

const tripColumns = `id, traveler_id, from_city, to_city, departure_at, available_kg, used_kg, status, created_at, updated_at`

type TripRepository struct {
	db *sql.DB
	tm *TxManager
}

func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{db: db, tm: NewTxManager(db)}
}

func scanTrip(row rowScanner) (*models.Trip, error) {
	var t models.Trip
	if err := row.Scan(&t.ID, &t.TravelerID, &t.FromCity, &t.ToCity, &t.DepartureAt,
		&t.AvailableKg, &t.UsedKg, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TripRepository) Create(ctx context.Context, trip *models.Trip) (err error) {
	ctx, span, finish := startCall(ctx, "trip-repository", "CreateTrip")
	defer func() { finish(err) }()

	if trip == nil {
		err = pkgerrors.ErrNilTrip
		slog.Error("failed to create trip", "method", "Create", "error", err)
		return err
	}
	if trip.ID == "" {
		trip.ID = uuid.NewString()
	}
	if trip.Status == "" {
		trip.Status = models.TripActive
	}
	span.SetAttributes(
		attribute.String("trip_id", trip.ID),
		attribute.String("traveler_id", trip.TravelerID),
		attribute.Float64("available_kg", trip.AvailableKg),
	)

	query := `INSERT INTO trips (id, traveler_id, from_city, to_city, departure_at, available_kg, used_kg, status) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING created_at, updated_at`
	err = conn(ctx, r.db).QueryRowContext(ctx, query, trip.ID, trip.TravelerID, trip.FromCity, trip.ToCity,
		trip.DepartureAt, trip.AvailableKg, trip.UsedKg, trip.Status).Scan(&trip.CreatedAt, &trip.UpdatedAt)
	if err != nil {
		slog.Error("failed to create trip", "method", "Create", "traveler_id", trip.TravelerID, "error", err)
		return fmt.Errorf("failed to create trip: %w", err)
	}

	slog.Info("trip created", "method", "Create", "trip_id", trip.ID, "traveler_id", trip.TravelerID, "available_kg", trip.AvailableKg)
	return nil
}

func (r *TripRepository) GetByID(ctx context.Context, id string) (_ *models.Trip, err error) {
	ctx, span, finish := startCall(ctx, "trip-repository", "GetTripByID")
	defer func() { finish(err) }()
	span.SetAttributes(attribute.String("trip_id", id))

	if !validID(id) {
		slog.Warn("trip not found", "method", "GetByID", "trip_id", id)
		return nil, pkgerrors.ErrTripNotFound
	}

	t, err := scanTrip(conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1`, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		slog.Warn("trip not found", "method", "GetByID", "trip_id", id)
		return nil, pkgerrors.ErrTripNotFound
	}
	if err != nil {
		slog.Error("failed to get trip", "method", "GetByID", "trip_id", id, "error", err)
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return t, nil
}

// ReserveCapacity consumes res.WeightKg of the trip's capacity and records
// the reservation. The check and the increment are one conditional UPDATE,
// so concurrent reservations on a trip are serialized by its row lock.
func (r *TripRepository) ReserveCapacity(ctx context.Context, res models.CapacityReservation) (_ *models.Trip, err error) {
	ctx, span, finish := startCall(ctx, "trip-repository", "ReserveCapacity")
	defer func() { finish(err) }()
	span.SetAttributes(
		attribute.String("trip_id", res.TripID),
		attribute.String("parcel_id", res.ParcelID),
		attribute.Float64("weight_kg", res.WeightKg),
	)

	// kg columns are NUMERIC(8,3): the weight is bound at gram precision and
	// the capacity comparison is exact decimal arithmetic.
	grams := models.KgToGrams(res.WeightKg)
	if grams <= 0 {
		err = pkgerrors.Validationf("reserved weight must be at least 1 g, got %v kg", res.WeightKg)
		return nil, err
	}
	res.WeightKg = models.GramsToKg(grams)
	if !validID(res.TripID) {
		err = pkgerrors.ErrTripNotFound
		return nil, err
	}

	var trip *models.Trip
	err = r.tm.WithinTransaction(ctx, func(ctx context.Context) error {
		db := conn(ctx, r.db)

		query := `UPDATE trips SET used_kg = used_kg + $2, updated_at = NOW() WHERE id = $1 AND status = 'active' AND used_kg + $2 <= available_kg RETURNING ` + tripColumns
		t, err := scanTrip(db.QueryRowContext(ctx, query, res.TripID, res.WeightKg))
		if stderrors.Is(err, sql.ErrNoRows) {
			return r.classifyRejected(ctx, db, res)
		}
		if err != nil {
			slog.Error("failed to reserve capacity", "method", "ReserveCapacity", "trip_id", res.TripID, "error", err)
			return fmt.Errorf("failed to reserve capacity: %w", err)
		}

		insert := `INSERT INTO capacity_reservations (parcel_id, trip_id, weight_kg) VALUES ($1, $2, $3) RETURNING created_at`
		if err := db.QueryRowContext(ctx, insert, res.ParcelID, res.TripID, res.WeightKg).Scan(&res.CreatedAt); err != nil {
			if isUniqueViolation(err) {
				slog.Warn("parcel already holds a reservation", "method", "ReserveCapacity", "parcel_id", res.ParcelID)
				return pkgerrors.ErrAlreadyMatched
			}
			slog.Error("failed to record reservation", "method", "ReserveCapacity", "parcel_id", res.ParcelID, "error", err)
			return fmt.Errorf("failed to record reservation: %w", err)
		}
		trip = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("capacity reserved", "method", "ReserveCapacity", "trip_id", trip.ID, "parcel_id", res.ParcelID,
		"weight_kg", res.WeightKg, "used_kg", trip.UsedKg, "available_kg", trip.AvailableKg)
	return trip, nil
}

// classifyRejected explains why the conditional capacity update matched no row.
func (r *TripRepository) classifyRejected(ctx context.Context, db executor, res models.CapacityReservation) error {
	var status models.TripStatus
	var t models.Trip
	err := db.QueryRowContext(ctx, `SELECT status, available_kg, used_kg FROM trips WHERE id = $1`, res.TripID).
		Scan(&status, &t.AvailableKg, &t.UsedKg)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		slog.Warn("trip not found", "method", "ReserveCapacity", "trip_id", res.TripID)
		return pkgerrors.ErrTripNotFound
	case err != nil:
		slog.Error("failed to get trip", "method", "ReserveCapacity", "trip_id", res.TripID, "error", err)
		return fmt.Errorf("failed to get trip: %w", err)
	case status != models.TripActive:
		slog.Warn("trip not active", "method", "ReserveCapacity", "trip_id", res.TripID, "status", status)
		return fmt.Errorf("%w: trip %s is %s", pkgerrors.ErrTripNotActive, res.TripID, status)
	default:
		slog.Warn("insufficient capacity", "method", "ReserveCapacity", "trip_id", res.TripID,
			"requested_kg", res.WeightKg, "remaining_kg", t.RemainingKg())
		return fmt.Errorf("%w: requested %v kg, remaining %v kg", pkgerrors.ErrInsufficientCapacity, res.WeightKg, t.RemainingKg())
	}
}

func (r *TripRepository) UpdateStatus(ctx context.Context, tripID string, status models.TripStatus) (err error) {
	ctx, span, finish := startCall(ctx, "trip-repository", "UpdateTripStatus")
	defer func() { finish(err) }()
	span.SetAttributes(attribute.String("trip_id", tripID), attribute.String("status", string(status)))

	if !validID(tripID) {
		err = pkgerrors.ErrTripNotFound
		return err
	}

	query := `UPDATE trips SET status = $2, updated_at = NOW() WHERE id = $1 AND status = 'active'`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, tripID, status)
	if err != nil {
		slog.Error("failed to update trip status", "method", "UpdateStatus", "trip_id", tripID, "error", err)
		return fmt.Errorf("failed to update trip status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update trip status: %w", err)
	}
	if n == 0 {
		// the trip is gone or another close won the race
		err = fmt.Errorf("%w: trip %s is no longer active", pkgerrors.ErrInvalidTransition, tripID)
		slog.Warn("trip status update rejected", "method", "UpdateStatus", "trip_id", tripID, "status", status)
		return err
	}

	slog.Info("trip status updated", "method", "UpdateStatus", "trip_id", tripID, "status", status)
	return nil
}

// ListAvailable returns active trips on the route with at least minKg
// remaining, earliest departure first. City names match case-insensitively.
func (r *TripRepository) ListAvailable(ctx context.Context, fromCity, toCity string, minKg float64) (_ []models.Trip, err error) {
	ctx, span, finish := startCall(ctx, "trip-repository", "ListAvailableTrips")
	defer func() { finish(err) }()
	span.SetAttributes(
		attribute.String("from_city", fromCity),
		attribute.String("to_city", toCity),
		attribute.Float64("min_kg", minKg),
	)

	query := `SELECT ` + tripColumns + ` FROM trips WHERE status = 'active' AND lower(from_city) = lower($1) AND lower(to_city) = lower($2) AND available_kg - used_kg >= $3 ORDER BY departure_at, id`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, fromCity, toCity, minKg)
	if err != nil {
		slog.Error("failed to list trips", "method", "ListAvailable", "from_city", fromCity, "to_city", toCity, "error", err)
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	defer rows.Close()

	trips := make([]models.Trip, 0)
	for rows.Next() {
		t, scanErr := scanTrip(rows)
		if scanErr != nil {
			err = scanErr
			slog.Error("failed to scan trip", "method", "ListAvailable", "error", err)
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, *t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}

	slog.Info("trips listed", "method", "ListAvailable", "from_city", fromCity, "to_city", toCity, "count", len(trips))
	return trips, nil
}
