package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/honeynil/ParcelMatchService/internal/lifecycle"
	"github.com/honeynil/ParcelMatchService/internal/models"
	"github.com/honeynil/ParcelMatchService/internal/pricing"
	service "github.com/honeynil/ParcelMatchService/internal/services"
)

// parcelResponse adds the app-facing stage label and cent-rounded amounts.
type parcelResponse struct {
	models.Parcel
	Stage string `json:"stage"`
}

func newParcelResponse(p *models.Parcel) parcelResponse {
	out := *p
	out.Price = pricing.Round2(out.Price)
	out.PlatformFee = pricing.Round2(out.PlatformFee)
	out.Insurance = pricing.Round2(out.Insurance)
	return parcelResponse{Parcel: out, Stage: lifecycle.Stage(p.Status)}
}

func roundTransaction(tx *models.Transaction) *models.Transaction {
	out := *tx
	out.SenderPaid = pricing.Round2(out.SenderPaid)
	out.PlatformFee = pricing.Round2(out.PlatformFee)
	out.TravelerPayout = pricing.Round2(out.TravelerPayout)
	out.Insurance = pricing.Round2(out.Insurance)
	return &out
}

func (h *Handler) CreateParcel(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req service.CreateParcelInput
	if !h.decode(w, r, &req) {
		return
	}

	parcel, err := h.market.CreateParcel(r.Context(), actor, req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, newParcelResponse(parcel))
}

func (h *Handler) ListParcels(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	parcels, err := h.market.ListParcels(r.Context(), actor)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	out := make([]parcelResponse, 0, len(parcels))
	for i := range parcels {
		out = append(out, newParcelResponse(&parcels[i]))
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetParcel(w http.ResponseWriter, r *http.Request) {
	parcel, err := h.market.GetParcel(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newParcelResponse(parcel))
}

func (h *Handler) GetTracking(w http.ResponseWriter, r *http.Request) {
	updates, err := h.market.GetTracking(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if updates == nil {
		updates = []models.TrackingUpdate{}
	}
	h.writeJSON(w, http.StatusOK, updates)
}

func (h *Handler) Match(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req struct {
		TripID string `json:"trip_id"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.market.Match(r.Context(), actor, mux.Vars(r)["id"], req.TripID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, struct {
		Parcel      parcelResponse      `json:"parcel"`
		Trip        *models.Trip        `json:"trip"`
		Transaction *models.Transaction `json:"transaction"`
	}{
		Parcel:      newParcelResponse(res.Parcel),
		Trip:        res.Trip,
		Transaction: roundTransaction(res.Transaction),
	})
}

func (h *Handler) UpdateParcelStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req service.StatusUpdateInput
	if !h.decode(w, r, &req) {
		return
	}

	parcel, err := h.market.UpdateParcelStatus(r.Context(), actor, mux.Vars(r)["id"], req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newParcelResponse(parcel))
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.market.GetTransaction(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, roundTransaction(tx))
}

func (h *Handler) GetParcelTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.market.GetParcelTransaction(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, roundTransaction(tx))
}

func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WeightKg         float64 `json:"weight_kg"`
		IncludeInsurance bool    `json:"include_insurance"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	quote, err := h.market.CalculatePrice(req.WeightKg, req.IncludeInsurance)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, quote.Rounded())
}
