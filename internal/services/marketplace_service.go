package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	stderrors "errors"

	"github.com/honeynil/ParcelMatchService/internal/audit"
	"github.com/honeynil/ParcelMatchService/internal/infrastructure/observability"
	"github.com/honeynil/ParcelMatchService/internal/lifecycle"
	"github.com/honeynil/ParcelMatchService/internal/models"
	"github.com/honeynil/ParcelMatchService/internal/pricing"
	"github.com/honeynil/ParcelMatchService/internal/repository"
	pkgerrors "github.com/honeynil/ParcelMatchService/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// PaymentGateway is the actor payment status changes are attributed to.
var PaymentGateway = models.Actor{ID: "payment-gateway", Role: models.RoleAdmin}

// Notifier is told about parcel status changes. Delivery is best effort.
type Notifier interface {
	NotifyStatusChange(ctx context.Context, event models.StatusEvent)
}

type CreateParcelInput struct {
	FromCity         string            `json:"from_city"`
	ToCity           string            `json:"to_city"`
	Type             models.ParcelType `json:"parcel_type"`
	WeightKg         float64           `json:"weight_kg"`
	IncludeInsurance bool              `json:"include_insurance"`
}

type CreateTripInput struct {
	FromCity    string    `json:"from_city"`
	ToCity      string    `json:"to_city"`
	DepartureAt time.Time `json:"departure_at"`
	AvailableKg float64   `json:"available_kg"`
}

// StatusUpdateInput carries a requested status, which may be a canonical
// status or one of the presentation aliases.
type StatusUpdateInput struct {
	Status      string   `json:"status"`
	Description string   `json:"description"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
}

type MatchResult struct {
	Parcel      *models.Parcel      `json:"parcel"`
	Trip        *models.Trip        `json:"trip"`
	Transaction *models.Transaction `json:"transaction"`
}

type MarketplaceService interface {
	CreateParcel(ctx context.Context, actor models.Actor, in CreateParcelInput) (*models.Parcel, error)
	GetParcel(ctx context.Context, id string) (*models.Parcel, error)
	ListParcels(ctx context.Context, actor models.Actor) ([]models.Parcel, error)
	GetTracking(ctx context.Context, parcelID string) ([]models.TrackingUpdate, error)
	CreateTrip(ctx context.Context, actor models.Actor, in CreateTripInput) (*models.Trip, error)
	GetTrip(ctx context.Context, id string) (*models.Trip, error)
	ListAvailableTrips(ctx context.Context, fromCity, toCity string, minKg float64) ([]models.Trip, error)
	UpdateTripStatus(ctx context.Context, actor models.Actor, tripID string, status models.TripStatus) (*models.Trip, error)
	Match(ctx context.Context, actor models.Actor, parcelID, tripID string) (*MatchResult, error)
	UpdateParcelStatus(ctx context.Context, actor models.Actor, parcelID string, in StatusUpdateInput) (*models.Parcel, error)
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	GetParcelTransaction(ctx context.Context, parcelID string) (*models.Transaction, error)
	ApplyPaymentStatus(ctx context.Context, event models.PaymentEvent) (*models.Transaction, error)
	CalculatePrice(weightKg float64, includeInsurance bool) (pricing.Breakdown, error)
	AuditTrail(ctx context.Context, entityType models.EntityType, entityID string) ([]models.AuditEntry, error)
}

type marketplaceService struct {
	store    *repository.Store
	pricing  *pricing.Calculator
	audit    *audit.Recorder
	notifier Notifier
	tracer   trace.Tracer
}

func NewMarketplaceService(
	store *repository.Store,
	calculator *pricing.Calculator,
	recorder *audit.Recorder,
	notifier Notifier,
) *marketplaceService {
	return &marketplaceService{
		store:    store,
		pricing:  calculator,
		audit:    recorder,
		notifier: notifier,
		tracer:   otel.Tracer("marketplace-service"),
	}
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// isBusinessError reports whether err is a rejection the caller can act on
// rather than an infrastructure failure.
func isBusinessError(err error) bool {
	for _, target := range []error{
		pkgerrors.ErrValidation,
		pkgerrors.ErrNotFound,
		pkgerrors.ErrForbidden,
		pkgerrors.ErrInsufficientCapacity,
		pkgerrors.ErrAlreadyMatched,
		pkgerrors.ErrInvalidTransition,
		pkgerrors.ErrTripNotActive,
		pkgerrors.ErrTransactionCompleted,
	} {
		if stderrors.Is(err, target) {
			return true
		}
	}
	return false
}

func validateRoute(fromCity, toCity string) (string, string, error) {
	from, to := strings.TrimSpace(fromCity), strings.TrimSpace(toCity)
	if from == "" || to == "" {
		return "", "", pkgerrors.Validationf("from_city and to_city are required")
	}
	if strings.EqualFold(from, to) {
		return "", "", pkgerrors.Validationf("route must connect two different cities")
	}
	return from, to, nil
}

func (s *marketplaceService) CreateParcel(ctx context.Context, actor models.Actor, in CreateParcelInput) (*models.Parcel, error) {
	ctx, span := s.tracer.Start(ctx, "CreateParcel")
	defer span.End()

	if actor.Role != models.RoleSender {
		err := fmt.Errorf("%w: only senders post parcels", pkgerrors.ErrForbidden)
		failSpan(span, err)
		slog.Warn("parcel creation rejected", "method", "CreateParcel", "actor_id", actor.ID, "role", actor.Role)
		return nil, err
	}
	from, to, err := validateRoute(in.FromCity, in.ToCity)
	if err != nil {
		failSpan(span, err)
		return nil, err
	}
	if !in.Type.Valid() {
		err := pkgerrors.Validationf("unknown parcel type %q", in.Type)
		failSpan(span, err)
		return nil, err
	}
	quote, err := s.pricing.Calculate(in.WeightKg, in.IncludeInsurance)
	if err != nil {
		failSpan(span, err)
		slog.Warn("parcel creation rejected", "method", "CreateParcel", "actor_id", actor.ID, "weight_kg", in.WeightKg, "error", err)
		return nil, err
	}

	parcel := &models.Parcel{
		SenderID:         actor.ID,
		FromCity:         from,
		ToCity:           to,
		Type:             in.Type,
		WeightKg:         in.WeightKg,
		Price:            quote.BasePrice,
		PlatformFee:      quote.PlatformFee,
		IncludeInsurance: in.IncludeInsurance,
		Insurance:        quote.Insurance,
		Status:           models.StatusCreated,
	}
	if err := s.store.Parcels.Create(ctx, parcel); err != nil {
		failSpan(span, err)
		slog.Error("failed to create parcel", "method", "CreateParcel", "actor_id", actor.ID, "error", err)
		return nil, err
	}
	span.SetAttributes(attribute.String("parcel_id", parcel.ID))

	s.audit.Record(ctx, actor, models.EntityParcel, parcel.ID, "created", map[string]any{
		"from_city": parcel.FromCity,
		"to_city":   parcel.ToCity,
		"weight_kg": parcel.WeightKg,
		"price":     parcel.Price,
	})
	slog.Info("parcel created", "method", "CreateParcel", "parcel_id", parcel.ID, "sender_id", actor.ID)
	return parcel, nil
}

func (s *marketplaceService) GetParcel(ctx context.Context, id string) (*models.Parcel, error) {
	ctx, span := s.tracer.Start(ctx, "GetParcel")
	defer span.End()
	span.SetAttributes(attribute.String("parcel_id", id))

	parcel, err := s.store.Parcels.GetByID(ctx, id)
	if err != nil {
		failSpan(span, err)
		return nil, err
	}
	return parcel, nil
}

func (s *marketplaceService) ListParcels(ctx context.Context, actor models.Actor) ([]models.Parcel, error) {
	ctx, span := s.tracer.Start(ctx, "ListParcels")
	defer span.End()

	parcels, err := s.store.Parcels.ListBySender(ctx, actor.ID)
	if err != nil {
		failSpan(span, err)
		return nil, err
	}
	return parcels, nil
}

func (s *marketplaceService) GetTracking(ctx context.Context, parcelID string) ([]models.TrackingUpdate, error) {
	ctx, span := s.tracer.Start(ctx, "GetTracking")
	defer span.End()
	span.SetAttributes(attribute.String("parcel_id", parcelID))

	if _, err := s.store.Parcels.GetByID(ctx, parcelID); err != nil {
		failSpan(span, err)
		return nil, err
	}
	updates, err := s.store.Tracking.ListByParcel(ctx, parcelID)
	if err != nil {
		failSpan(span, err)
		return nil, err
	}
	return updates, nil
}

func (s *marketplaceService) CreateTrip(ctx context.Context, actor models.Actor, in CreateTripInput) (*models.Trip, error) {
	ctx, span := s.tracer.Start(ctx, "CreateTrip")
	defer span.End()

	if actor.Role != models.RoleTraveler {
		err := fmt.Errorf("%w: only travelers post trips", pkgerrors.ErrForbidden)
		failSpan(span, err)
		slog.Warn("trip creation rejected", "method", "CreateTrip", "actor_id", actor.ID, "role", actor.Role)
		return nil, err
	}
	from, to, err := validateRoute(in.FromCity, in.ToCity)
	if err != nil {
		failSpan(span, err)
		return nil, err
	}
	if in.DepartureAt.IsZero() {
		err := pkgerrors.Validationf("departure_at is required")
		failSpan(span, err)
		return nil, err
	}
	if math.IsNaN(in.AvailableKg) || math.IsInf(in.AvailableKg, 0) || in.AvailableKg <= 0 {
		err := pkgerrors.Validationf("available_kg must be a positive number, got %v", in.AvailableKg)
		failSpan(span, err)
		return nil, err
	}

	trip := &models.Trip{
		TravelerID:  actor.ID,
		FromCity:    from,
		ToCity:      to,
		DepartureAt: in.DepartureAt.UTC(),
		AvailableKg: in.AvailableKg,
		Status:      models.TripActive,
	}
	if err := s.store.Trips.Create(ctx, trip); err != nil {
		failSpan(span, err)
		slog.Error("failed to create trip", "method", "CreateTrip", "actor_id", actor.ID, "error", err)
		return nil, err
	}
	span.SetAttributes(attribute.String("trip_id", trip.ID))

	s.audit.Record(ctx, actor, models.EntityTrip, trip.ID, "created", map[string]any{
		"from_city":    trip.FromCity,
		"to_city":      trip.ToCity,
		"departure_at": trip.DepartureAt,
		"available_kg": trip.AvailableKg,
	})
	slog.Info("trip created", "method", "CreateTrip", "trip_id", trip.ID, "traveler_id", actor.ID)
	return trip, nil
}

func (s *marketplaceService) GetTrip(ctx context.Context, id string) (*models.Trip, error) {
	ctx, span := s.tracer.Start(ctx, "GetTrip")
	defer span.End()
	span.SetAttributes(attribute.String("trip_id", id))

	trip, err := s.store.Trips.GetByID(ctx, id)
	if err != nil {
		failSpan(span, err)
		return nil, err
	}
	return trip, nil
}

func (s *marketplaceService) ListAvailableTrips(ctx context.Context, fromCity, toCity string, minKg float64) ([]models.Trip, error) {
	ctx, span := s.tracer.Start(ctx, "ListAvailableTrips")
	defer span.End()

	from, to, err := validateRoute(fromCity, toCity)
	if err != nil {
		failSpan(span, err)
		return nil, err
	}
	if math.IsNaN(minKg) || minKg < 0 {
		err := pkgerrors.Validationf("min_kg must not be negative")
		failSpan(span, err)
		return nil, err
	}
	trips, err := s.store.Trips.ListAvailable(ctx, from, to, minKg)
	if err != nil {
		failSpan(span, err)
		return nil, err
	}
	return trips, nil
}

// UpdateTripStatus closes an active trip. Capacity already reserved on it is
// kept as is.
func (s *marketplaceService) UpdateTripStatus(ctx context.Context, actor models.Actor, tripID string, status models.TripStatus) (*models.Trip, error) {
	ctx, span := s.tracer.Start(ctx, "UpdateTripStatus")
	defer span.End()
	span.SetAttributes(attribute.String("trip_id", tripID), attribute.String("status", string(status)))

	if !actor.IsAdmin() {
		err := fmt.Errorf("%w: trip status is administrative", pkgerrors.ErrForbidden)
		failSpan(span, err)
		return nil, err
	}
	if status != models.TripCompleted && status != models.TripCancelled {
		err := pkgerrors.Validationf("trip status must be %s or %s", models.TripCompleted, models.TripCancelled)
		failSpan(span, err)
		return nil, err
	}

	var trip *models.Trip
	var from models.TripStatus
	err := s.store.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.store.Trips.GetByID(ctx, tripID)
		if err != nil {
			return err
		}
		if current.Status != models.TripActive {
			return fmt.Errorf("%w: trip %s is already %s", pkgerrors.ErrInvalidTransition, tripID, current.Status)
		}
		if err := s.store.Trips.UpdateStatus(ctx, tripID, status); err != nil {
			return err
		}
		from = current.Status
		current.Status = status
		trip = current
		return nil
	})
	if err != nil {
		failSpan(span, err)
		slog.Warn("trip status update rejected", "method", "UpdateTripStatus", "trip_id", tripID, "status", status, "error", err)
		return nil, err
	}

	s.audit.Record(ctx, actor, models.EntityTrip, tripID, "status_updated", map[string]any{
		"from": from,
		"to":   status,
	})
	slog.Info("trip status updated", "method", "UpdateTripStatus", "trip_id", tripID, "status", status, "admin_id", actor.ID)
	return trip, nil
}

// Match binds a parcel to a trip. Reservation, assignment, transaction and
// first tracking entry commit together or not at all.
func (s *marketplaceService) Match(ctx context.Context, actor models.Actor, parcelID, tripID string) (*MatchResult, error) {
	ctx, span := s.tracer.Start(ctx, "Match")
	defer span.End()
	span.SetAttributes(attribute.String("parcel_id", parcelID), attribute.String("trip_id", tripID))

	var result MatchResult
	err := s.store.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		parcel, err := s.store.Parcels.GetForUpdate(ctx, parcelID)
		if err != nil {
			return err
		}
		if parcel.Status != models.StatusCreated || parcel.TripID != nil {
			return fmt.Errorf("%w: parcel %s is %s", pkgerrors.ErrAlreadyMatched, parcelID, parcel.Status)
		}

		trip, err := s.store.Trips.GetByID(ctx, tripID)
		if err != nil {
			return err
		}
		if !mayMatch(actor, parcel, trip) {
			return fmt.Errorf("%w: %s may not match parcel %s to trip %s", pkgerrors.ErrForbidden, actor.ID, parcelID, tripID)
		}

		quote, err := s.pricing.Calculate(parcel.WeightKg, parcel.IncludeInsurance)
		if err != nil {
			return err
		}

		trip, err = s.store.Trips.ReserveCapacity(ctx, models.CapacityReservation{
			ParcelID: parcel.ID,
			TripID:   trip.ID,
			WeightKg: parcel.WeightKg,
		})
		if err != nil {
			return err
		}
		if err := s.store.Parcels.AssignTrip(ctx, parcel.ID, trip.ID); err != nil {
			return err
		}

		tx := &models.Transaction{
			ParcelID:       parcel.ID,
			SenderID:       parcel.SenderID,
			TravelerID:     trip.TravelerID,
			SenderPaid:     quote.Total,
			PlatformFee:    quote.PlatformFee,
			TravelerPayout: quote.TravelerPayout,
			Insurance:      quote.Insurance,
			PaymentStatus:  models.PaymentPending,
		}
		if err := s.store.Transactions.Create(ctx, tx); err != nil {
			return err
		}

		if err := s.store.Tracking.Append(ctx, &models.TrackingUpdate{
			ParcelID:    parcel.ID,
			Status:      models.StatusMatched,
			Description: fmt.Sprintf("matched to trip %s", trip.ID),
			ActorID:     actor.ID,
			ActorRole:   actor.Role,
		}); err != nil {
			return err
		}

		tripRef := trip.ID
		parcel.TripID = &tripRef
		parcel.Status = models.StatusMatched
		result = MatchResult{Parcel: parcel, Trip: trip, Transaction: tx}
		return nil
	})
	if err != nil {
		failSpan(span, err)
		observability.Matches.WithLabelValues(matchResultLabel(err)).Inc()
		if isBusinessError(err) {
			slog.Warn("match rejected", "method", "Match", "parcel_id", parcelID, "trip_id", tripID, "actor_id", actor.ID, "error", err)
		} else {
			slog.Error("match failed", "method", "Match", "parcel_id", parcelID, "trip_id", tripID, "actor_id", actor.ID, "error", err)
		}
		return nil, err
	}
	observability.Matches.WithLabelValues("success").Inc()

	s.audit.Record(ctx, actor, models.EntityParcel, parcelID, "matched", map[string]any{
		"trip_id":        tripID,
		"weight_kg":      result.Parcel.WeightKg,
		"transaction_id": result.Transaction.ID,
		"used_kg":        result.Trip.UsedKg,
	})
	s.notify(ctx, result.Parcel, actor)

	slog.Info("parcel matched", "method", "Match", "parcel_id", parcelID, "trip_id", tripID,
		"used_kg", result.Trip.UsedKg, "available_kg", result.Trip.AvailableKg)
	return &result, nil
}

// mayMatch allows the parcel's sender, the traveler who owns the trip, and
// admins.
func mayMatch(actor models.Actor, parcel *models.Parcel, trip *models.Trip) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleSender:
		return parcel.SenderID == actor.ID
	case models.RoleTraveler:
		return trip.TravelerID == actor.ID
	}
	return false
}

func matchResultLabel(err error) string {
	switch {
	case stderrors.Is(err, pkgerrors.ErrInsufficientCapacity):
		return "insufficient_capacity"
	case stderrors.Is(err, pkgerrors.ErrAlreadyMatched):
		return "already_matched"
	case stderrors.Is(err, pkgerrors.ErrTripNotActive):
		return "trip_not_active"
	case stderrors.Is(err, pkgerrors.ErrNotFound):
		return "not_found"
	case stderrors.Is(err, pkgerrors.ErrForbidden):
		return "forbidden"
	default:
		return "error"
	}
}

// UpdateParcelStatus advances a parcel by one step of the delivery lifecycle.
func (s *marketplaceService) UpdateParcelStatus(ctx context.Context, actor models.Actor, parcelID string, in StatusUpdateInput) (*models.Parcel, error) {
	ctx, span := s.tracer.Start(ctx, "UpdateParcelStatus")
	defer span.End()
	span.SetAttributes(attribute.String("parcel_id", parcelID), attribute.String("requested", in.Status))

	to, err := lifecycle.Parse(in.Status)
	if err != nil {
		failSpan(span, err)
		return nil, err
	}

	var parcel *models.Parcel
	var from models.ParcelStatus
	err = s.store.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		// senders are refused before anything about the parcel is revealed
		if actor.Role == models.RoleSender {
			return lifecycle.CheckTransition("", to, actor.Role)
		}

		p, err := s.store.Parcels.GetForUpdate(ctx, parcelID)
		if err != nil {
			return err
		}
		if err := lifecycle.CheckTransition(p.Status, to, actor.Role); err != nil {
			return err
		}
		if actor.Role == models.RoleTraveler {
			if p.TripID == nil {
				return fmt.Errorf("%w: parcel %s has no trip", pkgerrors.ErrForbidden, parcelID)
			}
			trip, err := s.store.Trips.GetByID(ctx, *p.TripID)
			if err != nil {
				return err
			}
			if trip.TravelerID != actor.ID {
				return fmt.Errorf("%w: parcel %s is carried by another traveler", pkgerrors.ErrForbidden, parcelID)
			}
		}

		if err := s.store.Parcels.UpdateStatus(ctx, p.ID, p.Status, to); err != nil {
			return err
		}
		if err := s.store.Tracking.Append(ctx, &models.TrackingUpdate{
			ParcelID:    p.ID,
			Status:      to,
			Description: strings.TrimSpace(in.Description),
			Latitude:    in.Latitude,
			Longitude:   in.Longitude,
			ActorID:     actor.ID,
			ActorRole:   actor.Role,
		}); err != nil {
			return err
		}

		from = p.Status
		p.Status = to
		parcel = p
		return nil
	})
	if err != nil {
		failSpan(span, err)
		observability.StatusTransitions.WithLabelValues(string(to), "rejected").Inc()
		if isBusinessError(err) {
			slog.Warn("status update rejected", "method", "UpdateParcelStatus", "parcel_id", parcelID, "to", to, "actor_id", actor.ID, "role", actor.Role, "error", err)
		} else {
			slog.Error("status update failed", "method", "UpdateParcelStatus", "parcel_id", parcelID, "to", to, "actor_id", actor.ID, "error", err)
		}
		return nil, err
	}
	observability.StatusTransitions.WithLabelValues(string(to), "success").Inc()

	details := map[string]any{"from": from, "to": to}
	if d := strings.TrimSpace(in.Description); d != "" {
		details["description"] = d
	}
	s.audit.Record(ctx, actor, models.EntityParcel, parcelID, "status_updated", details)
	s.notify(ctx, parcel, actor)

	slog.Info("parcel status updated", "method", "UpdateParcelStatus", "parcel_id", parcelID, "from", from, "to", to, "actor_id", actor.ID)
	return parcel, nil
}

func (s *marketplaceService) notify(ctx context.Context, parcel *models.Parcel, actor models.Actor) {
	if s.notifier == nil {
		return
	}
	event := models.StatusEvent{
		ParcelID:   parcel.ID,
		Status:     parcel.Status,
		ActorID:    actor.ID,
		OccurredAt: time.Now().UTC(),
	}
	if parcel.TripID != nil {
		event.TripID = *parcel.TripID
	}
	s.notifier.NotifyStatusChange(ctx, event)
}

func (s *marketplaceService) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "GetTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction_id", id))

	tx, err := s.store.Transactions.GetByID(ctx, id)
	if err != nil {
		failSpan(span, err)
		return nil, err
	}
	return tx, nil
}

// GetParcelTransaction returns the transaction created when the parcel was
// matched. An unmatched parcel has none.
func (s *marketplaceService) GetParcelTransaction(ctx context.Context, parcelID string) (*models.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "GetParcelTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("parcel_id", parcelID))

	if _, err := s.store.Parcels.GetByID(ctx, parcelID); err != nil {
		failSpan(span, err)
		return nil, err
	}
	tx, err := s.store.Transactions.GetByParcelID(ctx, parcelID)
	if err != nil {
		failSpan(span, err)
		return nil, err
	}
	return tx, nil
}

// ApplyPaymentStatus records what the payment collaborator reports.
func (s *marketplaceService) ApplyPaymentStatus(ctx context.Context, event models.PaymentEvent) (*models.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "ApplyPaymentStatus")
	defer span.End()
	span.SetAttributes(
		attribute.String("transaction_id", event.TransactionID),
		attribute.String("status", string(event.PaymentStatus)),
	)

	tx, err := s.store.Transactions.UpdatePaymentStatus(ctx, event.TransactionID, event.PaymentStatus)
	if err != nil {
		failSpan(span, err)
		slog.Warn("payment status not applied", "method", "ApplyPaymentStatus", "transaction_id", event.TransactionID,
			"status", event.PaymentStatus, "error", err)
		return nil, err
	}

	s.audit.Record(ctx, PaymentGateway, models.EntityTransaction, tx.ID, "payment_status_updated", map[string]any{
		"payment_status": tx.PaymentStatus,
		"parcel_id":      tx.ParcelID,
	})
	slog.Info("payment status applied", "method", "ApplyPaymentStatus", "transaction_id", tx.ID, "status", tx.PaymentStatus)
	return tx, nil
}

func (s *marketplaceService) CalculatePrice(weightKg float64, includeInsurance bool) (pricing.Breakdown, error) {
	return s.pricing.Calculate(weightKg, includeInsurance)
}

func (s *marketplaceService) AuditTrail(ctx context.Context, entityType models.EntityType, entityID string) ([]models.AuditEntry, error) {
	ctx, span := s.tracer.Start(ctx, "AuditTrail")
	defer span.End()

	entries, err := s.audit.Trail(ctx, entityType, entityID)
	if err != nil {
		failSpan(span, err)
		return nil, err
	}
	return entries, nil
}
