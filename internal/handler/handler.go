package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/honeynil/ParcelMatchService/internal/infrastructure/auth"
	"github.com/honeynil/ParcelMatchService/internal/infrastructure/observability"
	"github.com/honeynil/ParcelMatchService/internal/models"
	"github.com/honeynil/ParcelMatchService/internal/moderation"
	service "github.com/honeynil/ParcelMatchService/internal/services"
	pkgerrors "github.com/honeynil/ParcelMatchService/pkg/errors"
)

type Handler struct {
	market service.MarketplaceService
	chat   service.ChatService
}

func NewHandler(market service.MarketplaceService, chat service.ChatService) *Handler {
	return &Handler{market: market, chat: chat}
}

type errorResponse struct {
	Error   string              `json:"error"`
	Verdict *moderation.Verdict `json:"verdict,omitempty"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusFor maps a service error onto its HTTP status. Anything unknown is
// an internal error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pkgerrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, pkgerrors.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, pkgerrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, pkgerrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pkgerrors.ErrInsufficientCapacity),
		errors.Is(err, pkgerrors.ErrAlreadyMatched),
		errors.Is(err, pkgerrors.ErrInvalidTransition),
		errors.Is(err, pkgerrors.ErrTripNotActive),
		errors.Is(err, pkgerrors.ErrTransactionCompleted):
		return http.StatusConflict
	case errors.Is(err, pkgerrors.ErrFlaggedContent):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		observability.Logger(r.Context()).Error("request failed", "error", err)
		h.writeError(w, status, pkgerrors.ErrInternal)
		return
	}
	h.writeError(w, status, err)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, http.StatusBadRequest, pkgerrors.Validationf("malformed request body: %v", err))
		return false
	}
	return true
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (models.Actor, bool) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, pkgerrors.ErrUnauthorized)
	}
	return actor, ok
}

func (h *Handler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/pricing/quote", h.Quote).Methods("POST")
	r.HandleFunc("/moderation/check", h.CheckMessage).Methods("POST")
}

func (h *Handler) RegisterProtectedRoutes(r *mux.Router) {
	r.HandleFunc("/parcels", h.CreateParcel).Methods("POST")
	r.HandleFunc("/parcels", h.ListParcels).Methods("GET")
	r.HandleFunc("/parcels/{id}", h.GetParcel).Methods("GET")
	r.HandleFunc("/parcels/{id}/tracking", h.GetTracking).Methods("GET")
	r.HandleFunc("/parcels/{id}/match", h.Match).Methods("POST")
	r.HandleFunc("/parcels/{id}/status", h.UpdateParcelStatus).Methods("POST")
	r.HandleFunc("/parcels/{id}/transaction", h.GetParcelTransaction).Methods("GET")

	r.HandleFunc("/trips", h.CreateTrip).Methods("POST")
	r.HandleFunc("/trips", h.ListAvailableTrips).Methods("GET")
	r.HandleFunc("/trips/{id}", h.GetTrip).Methods("GET")
	r.HandleFunc("/trips/{id}/status", h.UpdateTripStatus).Methods("POST")

	r.HandleFunc("/transactions/{id}", h.GetTransaction).Methods("GET")

	r.HandleFunc("/conversations/{id}/messages", h.SendMessage).Methods("POST")
	r.HandleFunc("/conversations/{id}/messages", h.ListMessages).Methods("GET")

	r.HandleFunc("/audit/{entity_type}/{id}", h.AuditTrail).Methods("GET")
}
