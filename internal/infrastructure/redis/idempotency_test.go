package redis

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/honeynil/ParcelMatchService/internal/infrastructure/auth"
	"github.com/honeynil/ParcelMatchService/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu     sync.Mutex
	data   map[string]string
	setErr error
}

func newFakeClient() *fakeClient {
	return &fakeClient{data: make(map[string]string)}
}

func (f *fakeClient) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return v, nil
}

func (f *fakeClient) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = toString(value)
	return nil
}

func (f *fakeClient) SetNX(_ context.Context, key string, value interface{}, _ time.Duration) (bool, error) {
	if f.setErr != nil {
		return false, f.setErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = toString(value)
	return true, nil
}

func (f *fakeClient) Del(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func (f *fakeClient) Close() error { return nil }

func toString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	}
	return ""
}

type countingHandler struct {
	calls  int
	status int
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.calls++
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(h.status)
	_, _ = w.Write([]byte(`{"id":"p-1"}`))
}

func post(path, key string, actor *models.Actor) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	if actor != nil {
		req = req.WithContext(auth.WithActor(req.Context(), *actor))
	}
	return req
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	client := newFakeClient()
	next := &countingHandler{status: http.StatusCreated}
	h := IdempotencyMiddleware(client)(next)
	sender := &models.Actor{ID: "sender-1", Role: models.RoleSender}

	first := httptest.NewRecorder()
	h.ServeHTTP(first, post("/parcels", "k-1", sender))
	second := httptest.NewRecorder()
	h.ServeHTTP(second, post("/parcels", "k-1", sender))

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get(ReplayedHeader))

	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(ReplayedHeader))
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":"p-1"}`, second.Body.String())
}

func TestIdempotency_KeysAreScopedPerActor(t *testing.T) {
	client := newFakeClient()
	next := &countingHandler{status: http.StatusCreated}
	h := IdempotencyMiddleware(client)(next)

	h.ServeHTTP(httptest.NewRecorder(), post("/parcels", "k-1", &models.Actor{ID: "a", Role: models.RoleSender}))
	h.ServeHTTP(httptest.NewRecorder(), post("/parcels", "k-1", &models.Actor{ID: "b", Role: models.RoleSender}))

	assert.Equal(t, 2, next.calls)
}

func TestIdempotency_InFlightConflict(t *testing.T) {
	client := newFakeClient()
	client.data["idempotency:anonymous:POST:/parcels:k-1"] = pendingMarker
	next := &countingHandler{status: http.StatusCreated}

	rr := httptest.NewRecorder()
	IdempotencyMiddleware(client)(next).ServeHTTP(rr, post("/parcels", "k-1", nil))

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Zero(t, next.calls)
}

func TestIdempotency_ServerErrorsAreNotStored(t *testing.T) {
	client := newFakeClient()
	next := &countingHandler{status: http.StatusInternalServerError}
	h := IdempotencyMiddleware(client)(next)

	h.ServeHTTP(httptest.NewRecorder(), post("/parcels", "k-1", nil))
	h.ServeHTTP(httptest.NewRecorder(), post("/parcels", "k-1", nil))

	assert.Equal(t, 2, next.calls)
	assert.Empty(t, client.data)
}

func TestIdempotency_PassThrough(t *testing.T) {
	client := newFakeClient()
	next := &countingHandler{status: http.StatusOK}
	h := IdempotencyMiddleware(client)(next)

	h.ServeHTTP(httptest.NewRecorder(), post("/parcels", "", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/parcels", nil))

	assert.Equal(t, 2, next.calls)
	assert.Empty(t, client.data)
}

func TestIdempotency_StoreUnavailable(t *testing.T) {
	client := newFakeClient()
	client.setErr = errors.New("connection refused")
	next := &countingHandler{status: http.StatusCreated}

	rr := httptest.NewRecorder()
	IdempotencyMiddleware(client)(next).ServeHTTP(rr, post("/parcels", "k-1", nil))

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, 1, next.calls)
}
