package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/honeynil/ParcelMatchService/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func signed(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return tok
}

func echoActor() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		_, _ = w.Write([]byte(actor.ID + "/" + string(actor.Role)))
	})
}

func TestAuthMiddleware(t *testing.T) {
	valid, err := NewToken(models.Actor{ID: "user-1", Role: models.RoleTraveler}, secret)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "valid sub claim",
			header:     "Bearer " + valid,
			wantStatus: http.StatusOK,
			wantBody:   "user-1/traveler",
		},
		{
			name: "user_id claim",
			header: "Bearer " + signed(t, jwt.SigningMethodHS256, []byte(secret),
				jwt.MapClaims{"user_id": "admin-1", "role": "admin"}),
			wantStatus: http.StatusOK,
			wantBody:   "admin-1/admin",
		},
		{
			name:       "missing header",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "not bearer",
			header:     "Basic abc",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "wrong secret",
			header: "Bearer " + signed(t, jwt.SigningMethodHS256, []byte("other"),
				jwt.MapClaims{"sub": "user-1", "role": "sender"}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "unknown role",
			header: "Bearer " + signed(t, jwt.SigningMethodHS256, []byte(secret),
				jwt.MapClaims{"sub": "user-1", "role": "root"}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "no subject",
			header: "Bearer " + signed(t, jwt.SigningMethodHS256, []byte(secret),
				jwt.MapClaims{"role": "sender"}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "expired",
			header: "Bearer " + signed(t, jwt.SigningMethodHS256, []byte(secret),
				jwt.MapClaims{"sub": "user-1", "role": "sender", "exp": time.Now().Add(-time.Hour).Unix()}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "other hmac algorithm",
			header: "Bearer " + signed(t, jwt.SigningMethodHS512, []byte(secret),
				jwt.MapClaims{"sub": "user-1", "role": "sender"}),
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/parcels", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			AuthMiddleware(secret)(echoActor()).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rr.Body.String())
			}
		})
	}
}
