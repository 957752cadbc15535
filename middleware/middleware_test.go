package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sg-explorer/models"
	"sg-explorer/utils/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func whoAmI() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{
			"user_id":  UserID(r.Context()),
			"username": Username(r.Context()),
			"role":     Role(r.Context()),
		})
	})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errors.APIError {
	t.Helper()
	var apiErr errors.APIError
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&apiErr))
	return apiErr
}

func TestJWTMiddleware(t *testing.T) {
	valid := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
		"userID":   "u-1",
		"username": "alice",
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	expired := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
		"userID": "u-1",
		"exp":    time.Now().Add(-time.Hour).Unix(),
	})
	wrongKey := signToken(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"userID": "u-1"})
	noUser := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"username": "x"})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "valid", header: "Bearer " + valid, status: http.StatusOK},
		{name: "missing header", header: "", status: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + expired, status: http.StatusUnauthorized},
		{name: "wrong key", header: "Bearer " + wrongKey, status: http.StatusUnauthorized},
		{name: "no user claim", header: "Bearer " + noUser, status: http.StatusUnauthorized},
	}

	h := JWTMiddleware(testSecret)(whoAmI())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/user/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestJWTMiddlewareSetsIdentity(t *testing.T) {
	token := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
		"userID":   "u-1",
		"username": "alice",
		"role":     models.RoleAdmin,
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	JWTMiddleware(testSecret)(whoAmI()).ServeHTTP(rec, req)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, map[string]string{"user_id": "u-1", "username": "alice", "role": "admin"}, body)
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(models.RoleAdmin)(whoAmI())

	req := httptest.NewRequest(http.MethodPost, "/pois", nil)
	req = req.WithContext(WithUser(req.Context(), "u-1", "alice", models.RoleUser))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", decodeError(t, rec).Code)

	req = req.WithContext(WithUser(req.Context(), "u-2", "root", models.RoleAdmin))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSMiddleware(t *testing.T) {
	h := CORSMiddleware([]string{"http://localhost:3000"})(whoAmI())

	req := httptest.NewRequest(http.MethodOptions, "/pois", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/pois", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWildcard(t *testing.T) {
	h := CORSMiddleware([]string{"*"})(whoAmI())
	req := httptest.NewRequest(http.MethodGet, "/pois", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestErrorMiddlewareRecoversPanics(t *testing.T) {
	h := ErrorMiddleware()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", decodeError(t, rec).Code)
}

func TestWriteErrorHidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteError(rec, errors.NewAPIError("DB_ERROR", "Failed", http.StatusInternalServerError, "mongo: connection refused"))

	apiErr := decodeError(t, rec)
	assert.Equal(t, "DB_ERROR", apiErr.Code)
	assert.Empty(t, apiErr.Details)
}

func TestWriteErrorKeepsClientDetails(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteError(rec, errors.ErrInvalidInput.WithDetails("lat is required"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "lat is required", decodeError(t, rec).Details)
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	r := mux.NewRouter()
	r.Use(RequestLogger())
	r.Handle("/pois/{id}", whoAmI())
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pois/abc", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
