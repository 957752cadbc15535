package server

import (
	"context"
	"net/http"
	"sg-explorer/logging"
	"sg-explorer/middleware"
	"sg-explorer/utils/errors"
	"time"
)

const healthTimeout = 2 * time.Second

var (
	errNoRoute          = errors.NewAPIError("ROUTE_NOT_FOUND", "No such route", http.StatusNotFound)
	errMethodNotAllowed = errors.NewAPIError("METHOD_NOT_ALLOWED", "Method not allowed", http.StatusMethodNotAllowed)
)

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// healthHandler reports "ok" when every check passes and 503 otherwise.
func healthHandler(checks map[string]func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logging.Ctx(r.Context()).Warn().Err(err).Str("check", name).Msg("Health check failed")
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		middleware.WriteJSON(w, status, resp)
	}
}
