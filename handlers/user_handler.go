package handlers

import (
	"net/http"
	"sg-explorer/middleware"
)

type UserHandler struct {
	userService UserService
}

type PingRequest struct {
	Lat *float64 `json:"lat" validate:"required,latitude"`
	Lon *float64 `json:"lon" validate:"required,longitude"`
}

func NewUserHandler(userService UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// PingLocation accepts the position either as a JSON body or as lat/lon
// query parameters.
func (h *UserHandler) PingLocation(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var req PingRequest
	point, err := queryPoint(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if point != nil {
		req = PingRequest{Lat: &point.Lat, Lon: &point.Lon}
	} else if err := decodeBody(w, r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}

	if err := h.userService.UserLocationPing(r.Context(), userID, *req.Lat, *req.Lon); err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Location updated", "user_id": userID})
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetUser(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, user)
}
