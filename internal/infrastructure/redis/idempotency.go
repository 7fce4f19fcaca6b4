package redis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/honeynil/ParcelMatchService/internal/infrastructure/auth"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	ReplayedHeader    = "Idempotent-Replayed"

	idempotencyTTL = 24 * time.Hour
	pendingMarker  = "pending"
)

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
}

type responseRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// IdempotencyMiddleware replays the stored response of a POST that was
// already served for the same actor, path and Idempotency-Key header.
// Requests without the header pass through untouched.
func IdempotencyMiddleware(client RedisClient) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			idemKey := r.Header.Get(IdempotencyHeader)
			if r.Method != http.MethodPost || idemKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			actorID := "anonymous"
			if actor, ok := auth.ActorFromContext(ctx); ok {
				actorID = actor.ID
			}
			key := fmt.Sprintf("idempotency:%s:%s:%s:%s", actorID, r.Method, r.URL.Path, idemKey)

			acquired, err := client.SetNX(ctx, key, pendingMarker, idempotencyTTL)
			if err != nil {
				slog.Warn("idempotency store unavailable, serving request", "key", key, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			if !acquired {
				replay(w, r, client, key)
				return
			}

			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status >= http.StatusInternalServerError {
				if err := client.Del(ctx, key); err != nil {
					slog.Warn("failed to release idempotency key", "key", key, "error", err)
				}
				return
			}

			data, err := json.Marshal(storedResponse{
				Status:      rec.status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			})
			if err == nil {
				err = client.Set(ctx, key, data, idempotencyTTL)
			}
			if err != nil {
				slog.Warn("failed to store idempotent response", "key", key, "error", err)
			}
		})
	}
}

func replay(w http.ResponseWriter, r *http.Request, client RedisClient, key string) {
	val, err := client.Get(r.Context(), key)
	if err != nil {
		slog.Warn("failed to read idempotent response", "key", key, "error", err)
		http.Error(w, "request with this idempotency key is in progress", http.StatusConflict)
		return
	}
	if val == pendingMarker {
		http.Error(w, "request with this idempotency key is in progress", http.StatusConflict)
		return
	}

	var stored storedResponse
	if err := json.Unmarshal([]byte(val), &stored); err != nil {
		slog.Error("corrupt idempotent response", "key", key, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if stored.ContentType != "" {
		w.Header().Set("Content-Type", stored.ContentType)
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
}
