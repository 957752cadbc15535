package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sg-explorer/config"
	"sg-explorer/handlers"
	"sg-explorer/models"
	"sg-explorer/services"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "router-secret"

type stubPOIs struct {
	handlers.POIService
	nearbyCalls int
}

func (s *stubPOIs) FindNearbyPOIs(context.Context, float64, float64, float64, string, int) ([]models.POIWithDistance, error) {
	s.nearbyCalls++
	return []models.POIWithDistance{}, nil
}

func (s *stubPOIs) CreatePOI(_ context.Context, in services.POIInput) (models.POI, error) {
	return models.POI{ID: "new", Name: in.Name}, nil
}

type stubUsers struct {
	handlers.UserService
}

func (stubUsers) Login(context.Context, string, string) (string, error) { return "tok", nil }

type stubItineraries struct {
	handlers.ItineraryService
}

func (stubItineraries) List(context.Context, string) ([]models.Itinerary, error) {
	return []models.Itinerary{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		HTTP: config.HTTPConfig{CORSOrigins: "http://localhost:5173"},
		Auth: config.AuthConfig{JWTSecret: secret, RateLimit: 2},
	}
}

func token(t *testing.T, role string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userID":   "u-1",
		"username": "alice",
		"role":     role,
		"exp":      time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func do(h http.Handler, method, target, body, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	ok := NewRouter(testConfig(), Services{Checks: map[string]func(context.Context) error{
		"mongo": func(context.Context) error { return nil },
	}})
	rec := do(ok, "GET", "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"mongo":"ok"}}`, rec.Body.String())

	failing := NewRouter(testConfig(), Services{Checks: map[string]func(context.Context) error{
		"redis": func(context.Context) error { return fmt.Errorf("connection refused") },
	}})
	rec = do(failing, "GET", "/healthz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestNearbyIsNotTreatedAsPOIID(t *testing.T) {
	pois := &stubPOIs{}
	r := NewRouter(testConfig(), Services{POIs: pois})
	rec := do(r, "GET", "/pois/nearby?lat=1.3&lon=103.8", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, pois.nearbyCalls)
}

func TestPOIWritesRequireAdmin(t *testing.T) {
	r := NewRouter(testConfig(), Services{POIs: &stubPOIs{}})
	body := `{"name":"Jewel","lat":1.36,"lon":103.99}`

	assert.Equal(t, http.StatusUnauthorized, do(r, "POST", "/pois", body, "").Code)
	assert.Equal(t, http.StatusForbidden, do(r, "POST", "/pois", body, token(t, models.RoleUser)).Code)
	assert.Equal(t, http.StatusCreated, do(r, "POST", "/pois", body, token(t, models.RoleAdmin)).Code)
}

func TestUserRoutesRequireToken(t *testing.T) {
	r := NewRouter(testConfig(), Services{Itineraries: stubItineraries{}})
	for _, path := range []string{"/itineraries", "/user/me", "/survey/preferences", "/recommendations"} {
		assert.Equal(t, http.StatusUnauthorized, do(r, "GET", path, "", "").Code, path)
	}
	assert.Equal(t, http.StatusOK, do(r, "GET", "/itineraries", "", token(t, models.RoleUser)).Code)
}

func TestPreflightSkipsAuth(t *testing.T) {
	r := NewRouter(testConfig(), Services{})
	req := httptest.NewRequest("OPTIONS", "/itineraries", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAuthIsRateLimited(t *testing.T) {
	r := NewRouter(testConfig(), Services{Users: stubUsers{}})
	body := `{"username":"alice","password":"hunter2hunter2"}`
	assert.Equal(t, http.StatusOK, do(r, "POST", "/auth/login", body, "").Code)
	assert.Equal(t, http.StatusOK, do(r, "POST", "/auth/login", body, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, "POST", "/auth/login", body, "").Code)
}

func TestUnknownRoutes(t *testing.T) {
	r := NewRouter(testConfig(), Services{})

	rec := do(r, "GET", "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ROUTE_NOT_FOUND", body["code"])

	assert.Equal(t, http.StatusMethodNotAllowed, do(r, "POST", "/tags", "", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	r := NewRouter(testConfig(), Services{})
	rec := do(r, "GET", "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
