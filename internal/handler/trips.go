package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/honeynil/ParcelMatchService/internal/models"
	service "github.com/honeynil/ParcelMatchService/internal/services"
	pkgerrors "github.com/honeynil/ParcelMatchService/pkg/errors"
)

func (h *Handler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req service.CreateTripInput
	if !h.decode(w, r, &req) {
		return
	}

	trip, err := h.market.CreateTrip(r.Context(), actor, req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, trip)
}

func (h *Handler) GetTrip(w http.ResponseWriter, r *http.Request) {
	trip, err := h.market.GetTrip(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, trip)
}

// ListAvailableTrips serves GET /trips?from=&to=&min_kg=.
func (h *Handler) ListAvailableTrips(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var minKg float64
	if raw := q.Get("min_kg"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, pkgerrors.Validationf("min_kg must be a number"))
			return
		}
		minKg = v
	}

	trips, err := h.market.ListAvailableTrips(r.Context(), q.Get("from"), q.Get("to"), minKg)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if trips == nil {
		trips = []models.Trip{}
	}
	h.writeJSON(w, http.StatusOK, trips)
}

func (h *Handler) UpdateTripStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req struct {
		Status models.TripStatus `json:"status"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	trip, err := h.market.UpdateTripStatus(r.Context(), actor, mux.Vars(r)["id"], req.Status)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, trip)
}

func (h *Handler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if !actor.IsAdmin() {
		h.writeError(w, http.StatusForbidden, pkgerrors.ErrForbidden)
		return
	}

	vars := mux.Vars(r)
	entries, err := h.market.AuditTrail(r.Context(), models.EntityType(vars["entity_type"]), vars["id"])
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	h.writeJSON(w, http.StatusOK, entries)
}
