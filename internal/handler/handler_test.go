package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/honeynil/ParcelMatchService/internal/audit"
	"github.com/honeynil/ParcelMatchService/internal/infrastructure/auth"
	"github.com/honeynil/ParcelMatchService/internal/models"
	"github.com/honeynil/ParcelMatchService/internal/moderation"
	"github.com/honeynil/ParcelMatchService/internal/pricing"
	"github.com/honeynil/ParcelMatchService/internal/repository/memory"
	service "github.com/honeynil/ParcelMatchService/internal/services"
	pkgerrors "github.com/honeynil/ParcelMatchService/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	sender   = models.Actor{ID: "sender-1", Role: models.RoleSender}
	traveler = models.Actor{ID: "traveler-1", Role: models.RoleTraveler}
	admin    = models.Actor{ID: "admin-1", Role: models.RoleAdmin}
)

func newRouter(t *testing.T) *mux.Router {
	t.Helper()
	store := memory.NewStore()
	calc, err := pricing.NewCalculator(pricing.DefaultRates())
	require.NoError(t, err)
	recorder := audit.NewRecorder(store.Audit)

	h := NewHandler(
		service.NewMarketplaceService(store, calc, recorder, nil),
		service.NewChatService(store.Messages, moderation.Default(), recorder),
	)
	r := mux.NewRouter()
	h.RegisterPublicRoutes(r)
	h.RegisterProtectedRoutes(r)
	return r
}

func do(t *testing.T, r http.Handler, actor *models.Actor, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if actor != nil {
		req = req.WithContext(auth.WithActor(req.Context(), *actor))
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	return v
}

func createParcel(t *testing.T, r http.Handler, weight float64) parcelResponse {
	t.Helper()
	rr := do(t, r, &sender, http.MethodPost, "/parcels", map[string]any{
		"from_city":   "Lagos",
		"to_city":     "Accra",
		"parcel_type": "documents",
		"weight_kg":   weight,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decodeBody[parcelResponse](t, rr)
}

func createTrip(t *testing.T, r http.Handler, capacity float64) models.Trip {
	t.Helper()
	rr := do(t, r, &traveler, http.MethodPost, "/trips", map[string]any{
		"from_city":    "Lagos",
		"to_city":      "Accra",
		"departure_at": time.Now().Add(24 * time.Hour).UTC(),
		"available_kg": capacity,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decodeBody[models.Trip](t, rr)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{pkgerrors.Validationf("bad"), http.StatusBadRequest},
		{pkgerrors.ErrParcelNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: x", pkgerrors.ErrInsufficientCapacity), http.StatusConflict},
		{pkgerrors.ErrAlreadyMatched, http.StatusConflict},
		{pkgerrors.ErrInvalidTransition, http.StatusConflict},
		{pkgerrors.ErrTripNotActive, http.StatusConflict},
		{pkgerrors.ErrTransactionCompleted, http.StatusConflict},
		{pkgerrors.ErrForbidden, http.StatusForbidden},
		{pkgerrors.ErrUnauthorized, http.StatusUnauthorized},
		{pkgerrors.ErrFlaggedContent, http.StatusUnprocessableEntity},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestQuote(t *testing.T) {
	r := newRouter(t)

	rr := do(t, r, nil, http.MethodPost, "/pricing/quote", map[string]any{"weight_kg": 2.5, "include_insurance": true})

	require.Equal(t, http.StatusOK, rr.Code)
	quote := decodeBody[pricing.Breakdown](t, rr)
	assert.Equal(t, 20.0, quote.BasePrice)
	assert.Equal(t, 12.5, quote.TravelerPayout)
	assert.Equal(t, 7.5, quote.PlatformFee)
	assert.Equal(t, 5.0, quote.Insurance)
	assert.Equal(t, 25.0, quote.Total)
}

func TestQuote_InvalidWeight(t *testing.T) {
	r := newRouter(t)

	rr := do(t, r, nil, http.MethodPost, "/pricing/quote", map[string]any{"weight_kg": 21})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, r, nil, http.MethodPost, "/pricing/quote", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateParcel(t *testing.T) {
	r := newRouter(t)

	p := createParcel(t, r, 2.5)
	assert.Equal(t, models.StatusCreated, p.Status)
	assert.Equal(t, "pending", p.Stage)
	assert.Equal(t, 20.0, p.Price)

	rr := do(t, r, &traveler, http.MethodPost, "/parcels", map[string]any{
		"from_city": "Lagos", "to_city": "Accra", "parcel_type": "documents", "weight_kg": 1,
	})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, r, nil, http.MethodPost, "/parcels", map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGetParcel_NotFound(t *testing.T) {
	r := newRouter(t)

	rr := do(t, r, &sender, http.MethodGet, "/parcels/missing", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMatchAndAdvance(t *testing.T) {
	r := newRouter(t)
	parcel := createParcel(t, r, 3)
	trip := createTrip(t, r, 5)

	rr := do(t, r, &traveler, http.MethodPost, "/parcels/"+parcel.ID+"/match", map[string]string{"trip_id": trip.ID})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var matched struct {
		Parcel      parcelResponse     `json:"parcel"`
		Trip        models.Trip        `json:"trip"`
		Transaction models.Transaction `json:"transaction"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &matched))
	assert.Equal(t, models.StatusMatched, matched.Parcel.Status)
	assert.Equal(t, "accepted", matched.Parcel.Stage)
	assert.Equal(t, 3.0, matched.Trip.UsedKg)
	assert.Equal(t, 24.0, matched.Transaction.SenderPaid)

	second := createParcel(t, r, 3)
	rr = do(t, r, &traveler, http.MethodPost, "/parcels/"+second.ID+"/match", map[string]string{"trip_id": trip.ID})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, r, &traveler, http.MethodPost, "/parcels/"+parcel.ID+"/match", map[string]string{"trip_id": trip.ID})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, r, &sender, http.MethodPost, "/parcels/"+parcel.ID+"/status", map[string]string{"status": "picked_up"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, r, &traveler, http.MethodPost, "/parcels/"+parcel.ID+"/status", map[string]string{"status": "in_transit"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, r, &traveler, http.MethodPost, "/parcels/"+parcel.ID+"/status", map[string]string{"status": "picked_up", "description": "collected"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, models.StatusPickedUp, decodeBody[parcelResponse](t, rr).Status)

	rr = do(t, r, &sender, http.MethodGet, "/parcels/"+parcel.ID+"/tracking", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	updates := decodeBody[[]models.TrackingUpdate](t, rr)
	require.Len(t, updates, 2)
	assert.Equal(t, models.StatusMatched, updates[0].Status)
	assert.Equal(t, models.StatusPickedUp, updates[1].Status)

	rr = do(t, r, &sender, http.MethodGet, "/transactions/"+matched.Transaction.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, models.PaymentPending, decodeBody[models.Transaction](t, rr).PaymentStatus)

	rr = do(t, r, &sender, http.MethodGet, "/parcels/"+parcel.ID+"/transaction", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, matched.Transaction.ID, decodeBody[models.Transaction](t, rr).ID)

	rr = do(t, r, &sender, http.MethodGet, "/parcels/"+second.ID+"/transaction", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, r, &sender, http.MethodGet, "/parcels/missing/transaction", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListAvailableTrips(t *testing.T) {
	r := newRouter(t)
	small := createTrip(t, r, 2)
	big := createTrip(t, r, 10)

	rr := do(t, r, &sender, http.MethodGet, "/trips?from=lagos&to=ACCRA&min_kg=5", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	trips := decodeBody[[]models.Trip](t, rr)
	require.Len(t, trips, 1)
	assert.Equal(t, big.ID, trips[0].ID)
	assert.NotEqual(t, small.ID, trips[0].ID)

	rr = do(t, r, &sender, http.MethodGet, "/trips?from=Lagos&to=Accra&min_kg=lots", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpdateTripStatus(t *testing.T) {
	r := newRouter(t)
	trip := createTrip(t, r, 5)

	rr := do(t, r, &traveler, http.MethodPost, "/trips/"+trip.ID+"/status", map[string]string{"status": "cancelled"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, r, &admin, http.MethodPost, "/trips/"+trip.ID+"/status", map[string]string{"status": "cancelled"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, models.TripCancelled, decodeBody[models.Trip](t, rr).Status)

	parcel := createParcel(t, r, 1)
	rr = do(t, r, &sender, http.MethodPost, "/parcels/"+parcel.ID+"/match", map[string]string{"trip_id": trip.ID})
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestMessages(t *testing.T) {
	r := newRouter(t)

	rr := do(t, r, &sender, http.MethodPost, "/conversations/c-1/messages", map[string]string{"text": "Is the parcel fragile?"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = do(t, r, &sender, http.MethodPost, "/conversations/c-1/messages", map[string]string{"text": "add me on WhatsApp"})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	body := decodeBody[errorResponse](t, rr)
	require.NotNil(t, body.Verdict)
	assert.True(t, body.Verdict.Flagged)
	assert.Contains(t, body.Verdict.Redacted, moderation.RedactionMarker)

	rr = do(t, r, &traveler, http.MethodGet, "/conversations/c-1/messages", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	msgs := decodeBody[[]models.Message](t, rr)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Is the parcel fragile?", msgs[0].Body)
}

func TestCheckMessage(t *testing.T) {
	r := newRouter(t)

	rr := do(t, r, nil, http.MethodPost, "/moderation/check", map[string]string{"text": "call me later"})

	require.Equal(t, http.StatusOK, rr.Code)
	verdict := decodeBody[moderation.Verdict](t, rr)
	assert.True(t, verdict.Flagged)
	assert.NotEmpty(t, verdict.Keywords)
}

func TestAuditTrail(t *testing.T) {
	r := newRouter(t)
	parcel := createParcel(t, r, 1)

	rr := do(t, r, &sender, http.MethodGet, "/audit/parcel/"+parcel.ID, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, r, &admin, http.MethodGet, "/audit/parcel/"+parcel.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	entries := decodeBody[[]models.AuditEntry](t, rr)
	require.Len(t, entries, 1)
	assert.Equal(t, "created", entries[0].Action)
	assert.Equal(t, sender.ID, *entries[0].UserID)

	rr = do(t, r, &admin, http.MethodGet, "/audit/planet/"+parcel.ID, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
