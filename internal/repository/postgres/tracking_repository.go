package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/honeynil/ParcelMatchService/internal/models"
	pkgerrors "github.com/honeynil/ParcelMatchService/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

type TrackingRepository struct {
	db *sql.DB
}

func NewTrackingRepository(db *sql.DB) *TrackingRepository {
	return &TrackingRepository{db: db}
}

func (r *TrackingRepository) Append(ctx context.Context, u *models.TrackingUpdate) (err error) {
	ctx, span, finish := startCall(ctx, "tracking-repository", "AppendTrackingUpdate")
	defer func() { finish(err) }()

	if u == nil {
		err = pkgerrors.Validationf("tracking update is nil")
		return err
	}
	span.SetAttributes(attribute.String("parcel_id", u.ParcelID), attribute.String("status", string(u.Status)))

	query := `INSERT INTO tracking_updates (parcel_id, status, description, latitude, longitude, actor_id, actor_role) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`
	err = conn(ctx, r.db).QueryRowContext(ctx, query, u.ParcelID, u.Status, u.Description,
		nullFloat(u.Latitude), nullFloat(u.Longitude), u.ActorID, u.ActorRole).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		slog.Error("failed to append tracking update", "method", "Append", "parcel_id", u.ParcelID, "error", err)
		return fmt.Errorf("failed to append tracking update: %w", err)
	}

	slog.Info("tracking update appended", "method", "Append", "parcel_id", u.ParcelID, "status", u.Status, "id", u.ID)
	return nil
}

func (r *TrackingRepository) ListByParcel(ctx context.Context, parcelID string) (_ []models.TrackingUpdate, err error) {
	ctx, span, finish := startCall(ctx, "tracking-repository", "ListTrackingUpdates")
	defer func() { finish(err) }()
	span.SetAttributes(attribute.String("parcel_id", parcelID))

	updates := make([]models.TrackingUpdate, 0)
	if !validID(parcelID) {
		return updates, nil
	}

	query := `SELECT id, parcel_id, status, description, latitude, longitude, actor_id, actor_role, created_at FROM tracking_updates WHERE parcel_id = $1 ORDER BY created_at, id`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, parcelID)
	if err != nil {
		slog.Error("failed to list tracking updates", "method", "ListByParcel", "parcel_id", parcelID, "error", err)
		return nil, fmt.Errorf("failed to list tracking updates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u models.TrackingUpdate
		var lat, lon sql.NullFloat64
		if err = rows.Scan(&u.ID, &u.ParcelID, &u.Status, &u.Description, &lat, &lon, &u.ActorID, &u.ActorRole, &u.CreatedAt); err != nil {
			slog.Error("failed to scan tracking update", "method", "ListByParcel", "parcel_id", parcelID, "error", err)
			return nil, fmt.Errorf("failed to scan tracking update: %w", err)
		}
		if lat.Valid {
			u.Latitude = &lat.Float64
		}
		if lon.Valid {
			u.Longitude = &lon.Float64
		}
		updates = append(updates, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list tracking updates: %w", err)
	}

	slog.Info("tracking updates listed", "method", "ListByParcel", "parcel_id", parcelID, "count", len(updates))
	return updates, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
