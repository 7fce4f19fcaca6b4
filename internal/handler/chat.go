package handler

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/honeynil/ParcelMatchService/internal/models"
	pkgerrors "github.com/honeynil/ParcelMatchService/pkg/errors"
)

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.chat.SendMessage(r.Context(), actor, mux.Vars(r)["id"], req.Text)
	if errors.Is(err, pkgerrors.ErrFlaggedContent) && res != nil {
		h.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Verdict: &res.Verdict})
		return
	}
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, res.Message)
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.chat.ListMessages(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	h.writeJSON(w, http.StatusOK, msgs)
}

func (h *Handler) CheckMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	h.writeJSON(w, http.StatusOK, h.chat.CheckMessage(req.Text))
}
