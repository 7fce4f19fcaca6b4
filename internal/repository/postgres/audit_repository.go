package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/honeynil/ParcelMatchService/internal/models"
	pkgerrors "github.com/honeynil/ParcelMatchService/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, e *models.AuditEntry) (err error) {
	ctx, span, finish := startCall(ctx, "audit-repository", "AppendAuditEntry")
	defer func() { finish(err) }()

	if e == nil {
		err = pkgerrors.Validationf("audit entry is nil")
		return err
	}
	if (e.UserID == nil) == (e.AdminID == nil) {
		err = pkgerrors.Validationf("audit entry needs exactly one of user_id and admin_id")
		return err
	}
	span.SetAttributes(
		attribute.String("entity_type", string(e.EntityType)),
		attribute.String("entity_id", e.EntityID),
		attribute.String("action", e.Action),
	)

	details := e.Details
	if details == nil {
		details = map[string]any{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		slog.Error("failed to encode audit details", "method", "Append", "entity_id", e.EntityID, "error", err)
		return fmt.Errorf("failed to encode audit details: %w", err)
	}

	query := `INSERT INTO audit_log (user_id, admin_id, entity_type, entity_id, action, details) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`
	err = conn(ctx, r.db).QueryRowContext(ctx, query, nullString(e.UserID), nullString(e.AdminID),
		e.EntityType, e.EntityID, e.Action, raw).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		slog.Error("failed to append audit entry", "method", "Append", "entity_type", e.EntityType, "entity_id", e.EntityID, "error", err)
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepository) ListByEntity(ctx context.Context, entityType models.EntityType, entityID string) (_ []models.AuditEntry, err error) {
	ctx, span, finish := startCall(ctx, "audit-repository", "ListAuditEntries")
	defer func() { finish(err) }()
	span.SetAttributes(attribute.String("entity_type", string(entityType)), attribute.String("entity_id", entityID))

	query := `SELECT id, user_id, admin_id, entity_type, entity_id, action, details, created_at FROM audit_log WHERE entity_type = $1 AND entity_id = $2 ORDER BY id`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, entityType, entityID)
	if err != nil {
		slog.Error("failed to list audit entries", "method", "ListByEntity", "entity_id", entityID, "error", err)
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]models.AuditEntry, 0)
	for rows.Next() {
		var e models.AuditEntry
		var userID, adminID sql.NullString
		var raw []byte
		if err = rows.Scan(&e.ID, &userID, &adminID, &e.EntityType, &e.EntityID, &e.Action, &raw, &e.CreatedAt); err != nil {
			slog.Error("failed to scan audit entry", "method", "ListByEntity", "entity_id", entityID, "error", err)
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if userID.Valid {
			e.UserID = &userID.String
		}
		if adminID.Valid {
			e.AdminID = &adminID.String
		}
		if len(raw) > 0 {
			if err = json.Unmarshal(raw, &e.Details); err != nil {
				return nil, fmt.Errorf("failed to decode audit details: %w", err)
			}
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return entries, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
