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

const parcelColumns = `id, sender_id, trip_id, from_city, to_city, parcel_type, weight_kg, price, platform_fee, include_insurance, insurance, status, created_at, updated_at`

type ParcelRepository struct {
	db *sql.DB
}

func NewParcelRepository(db *sql.DB) *ParcelRepository {
	return &ParcelRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParcel(row rowScanner) (*models.Parcel, error) {
	var p models.Parcel
	var tripID sql.NullString
	if err := row.Scan(&p.ID, &p.SenderID, &tripID, &p.FromCity, &p.ToCity, &p.Type, &p.WeightKg,
		&p.Price, &p.PlatformFee, &p.IncludeInsurance, &p.Insurance, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if tripID.Valid {
		p.TripID = &tripID.String
	}
	return &p, nil
}

func (r *ParcelRepository) Create(ctx context.Context, parcel *models.Parcel) (err error) {
	ctx, span, finish := startCall(ctx, "parcel-repository", "CreateParcel")
	defer func() { finish(err) }()

	if parcel == nil {
		err = pkgerrors.ErrNilParcel
		slog.Error("failed to create parcel", "method", "Create", "error", err)
		return err
	}
	if parcel.ID == "" {
		parcel.ID = uuid.NewString()
	}
	if parcel.Status == "" {
		parcel.Status = models.StatusCreated
	}
	span.SetAttributes(
		attribute.String("parcel_id", parcel.ID),
		attribute.String("sender_id", parcel.SenderID),
		attribute.Float64("weight_kg", parcel.WeightKg),
	)

	query := `INSERT INTO parcels (id, sender_id, from_city, to_city, parcel_type, weight_kg, price, platform_fee, include_insurance, insurance, status) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING created_at, updated_at`
	err = conn(ctx, r.db).QueryRowContext(ctx, query, parcel.ID, parcel.SenderID, parcel.FromCity, parcel.ToCity,
		parcel.Type, parcel.WeightKg, parcel.Price, parcel.PlatformFee, parcel.IncludeInsurance, parcel.Insurance,
		parcel.Status).Scan(&parcel.CreatedAt, &parcel.UpdatedAt)
	if err != nil {
		slog.Error("failed to create parcel", "method", "Create", "sender_id", parcel.SenderID, "error", err)
		return fmt.Errorf("failed to create parcel: %w", err)
	}

	slog.Info("parcel created", "method", "Create", "parcel_id", parcel.ID, "sender_id", parcel.SenderID, "weight_kg", parcel.WeightKg)
	return nil
}

func (r *ParcelRepository) GetByID(ctx context.Context, id string) (_ *models.Parcel, err error) {
	ctx, span, finish := startCall(ctx, "parcel-repository", "GetParcelByID")
	defer func() { finish(err) }()
	span.SetAttributes(attribute.String("parcel_id", id))

	return r.get(ctx, "GetByID", `SELECT `+parcelColumns+` FROM parcels WHERE id = $1`, id)
}

func (r *ParcelRepository) GetForUpdate(ctx context.Context, id string) (_ *models.Parcel, err error) {
	ctx, span, finish := startCall(ctx, "parcel-repository", "GetParcelForUpdate")
	defer func() { finish(err) }()
	span.SetAttributes(attribute.String("parcel_id", id))

	return r.get(ctx, "GetForUpdate", `SELECT `+parcelColumns+` FROM parcels WHERE id = $1 FOR UPDATE`, id)
}

func (r *ParcelRepository) get(ctx context.Context, method, query, id string) (*models.Parcel, error) {
	if !validID(id) {
		slog.Warn("parcel not found", "method", method, "parcel_id", id)
		return nil, pkgerrors.ErrParcelNotFound
	}

	p, err := scanParcel(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		slog.Warn("parcel not found", "method", method, "parcel_id", id)
		return nil, pkgerrors.ErrParcelNotFound
	}
	if err != nil {
		slog.Error("failed to get parcel", "method", method, "parcel_id", id, "error", err)
		return nil, fmt.Errorf("failed to get parcel: %w", err)
	}
	return p, nil
}

// AssignTrip binds an unmatched parcel to a trip and moves it to matched.
func (r *ParcelRepository) AssignTrip(ctx context.Context, parcelID, tripID string) (err error) {
	ctx, span, finish := startCall(ctx, "parcel-repository", "AssignTrip")
	defer func() { finish(err) }()
	span.SetAttributes(attribute.String("parcel_id", parcelID), attribute.String("trip_id", tripID))

	query := `UPDATE parcels SET trip_id = $2, status = 'matched', updated_at = NOW() WHERE id = $1 AND status = 'created' AND trip_id IS NULL`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, parcelID, tripID)
	if err != nil {
		slog.Error("failed to assign trip", "method", "AssignTrip", "parcel_id", parcelID, "trip_id", tripID, "error", err)
		return fmt.Errorf("failed to assign trip: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to assign trip: %w", err)
	}
	if n == 0 {
		err = pkgerrors.ErrAlreadyMatched
		slog.Warn("parcel already matched", "method", "AssignTrip", "parcel_id", parcelID, "trip_id", tripID)
		return err
	}

	slog.Info("trip assigned", "method", "AssignTrip", "parcel_id", parcelID, "trip_id", tripID)
	return nil
}

// UpdateStatus moves the parcel from one status to another. It fails with
// ErrInvalidTransition when the parcel is no longer in from.
func (r *ParcelRepository) UpdateStatus(ctx context.Context, parcelID string, from, to models.ParcelStatus) (err error) {
	ctx, span, finish := startCall(ctx, "parcel-repository", "UpdateParcelStatus")
	defer func() { finish(err) }()
	span.SetAttributes(
		attribute.String("parcel_id", parcelID),
		attribute.String("from", string(from)),
		attribute.String("to", string(to)),
	)

	query := `UPDATE parcels SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, parcelID, from, to)
	if err != nil {
		slog.Error("failed to update parcel status", "method", "UpdateStatus", "parcel_id", parcelID, "error", err)
		return fmt.Errorf("failed to update parcel status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update parcel status: %w", err)
	}
	if n == 0 {
		err = fmt.Errorf("%w: parcel %s is not %s", pkgerrors.ErrInvalidTransition, parcelID, from)
		slog.Warn("parcel status changed concurrently", "method", "UpdateStatus", "parcel_id", parcelID, "from", from, "to", to)
		return err
	}

	slog.Info("parcel status updated", "method", "UpdateStatus", "parcel_id", parcelID, "from", from, "to", to)
	return nil
}

func (r *ParcelRepository) ListBySender(ctx context.Context, senderID string) (_ []models.Parcel, err error) {
	ctx, span, finish := startCall(ctx, "parcel-repository", "ListParcelsBySender")
	defer func() { finish(err) }()
	span.SetAttributes(attribute.String("sender_id", senderID))

	query := `SELECT ` + parcelColumns + ` FROM parcels WHERE sender_id = $1 ORDER BY created_at, id`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, senderID)
	if err != nil {
		slog.Error("failed to list parcels", "method", "ListBySender", "sender_id", senderID, "error", err)
		return nil, fmt.Errorf("failed to list parcels: %w", err)
	}
	defer rows.Close()

	parcels := make([]models.Parcel, 0)
	for rows.Next() {
		p, scanErr := scanParcel(rows)
		if scanErr != nil {
			err = scanErr
			slog.Error("failed to scan parcel", "method", "ListBySender", "sender_id", senderID, "error", err)
			return nil, fmt.Errorf("failed to scan parcel: %w", err)
		}
		parcels = append(parcels, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list parcels: %w", err)
	}

	slog.Info("parcels listed", "method", "ListBySender", "sender_id", senderID, "count", len(parcels))
	return parcels, nil
}
