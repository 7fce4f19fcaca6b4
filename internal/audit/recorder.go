// Package audit writes the append-only trail of mutating calls.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/honeynil/ParcelMatchService/internal/infrastructure/observability"
	"github.com/honeynil/ParcelMatchService/internal/models"
	"github.com/honeynil/ParcelMatchService/internal/repository"
	pkgerrors "github.com/honeynil/ParcelMatchService/pkg/errors"
)

const writeTimeout = 5 * time.Second

type Recorder struct {
	repo repository.AuditRepository
}

func NewRecorder(repo repository.AuditRepository) *Recorder {
	return &Recorder{repo: repo}
}

// Record appends one entry attributed to actor. Admins are stored as
// admin_id, everyone else as user_id. A failed write is logged and counted
// but never returned: the audited change has already happened.
func (r *Recorder) Record(ctx context.Context, actor models.Actor, entityType models.EntityType, entityID, action string, details map[string]any) {
	entry := &models.AuditEntry{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Details:    details,
	}
	id := actor.ID
	if actor.IsAdmin() {
		entry.AdminID = &id
	} else {
		entry.UserID = &id
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	if err := r.repo.Append(ctx, entry); err != nil {
		observability.AuditWriteFailures.Inc()
		observability.Logger(ctx).Warn("failed to write audit entry",
			"method", "Record",
			"actor_id", actor.ID,
			"actor_role", actor.Role,
			"entity_type", entityType,
			"entity_id", entityID,
			"action", action,
			"details", details,
			"error", pkgerrors.ErrAuditWrite,
			"cause", err,
		)
		return
	}
	slog.Debug("audit entry written", "method", "Record", "entity_type", entityType, "entity_id", entityID, "action", action)
}

// Trail lists the entries of one entity in the order they were written.
func (r *Recorder) Trail(ctx context.Context, entityType models.EntityType, entityID string) ([]models.AuditEntry, error) {
	switch entityType {
	case models.EntityParcel, models.EntityTrip, models.EntityTransaction, models.EntityMessage:
	default:
		return nil, pkgerrors.Validationf("unknown entity type %q", entityType)
	}
	return r.repo.ListByEntity(ctx, entityType, entityID)
}
