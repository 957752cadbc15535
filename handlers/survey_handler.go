package handlers

import (
	"net/http"
	"sg-explorer/geo"
	"sg-explorer/middleware"
	"sg-explorer/models"
	"sg-explorer/utils/errors"
)

type SurveyHandler struct {
	survey SurveyService
}

// DeckRequest asks for a deck around lat/lon. Without coordinates the deck
// is dealt around the city centre.
type DeckRequest struct {
	Lat  *float64 `json:"lat" validate:"omitempty,latitude"`
	Lon  *float64 `json:"lon" validate:"omitempty,longitude"`
	Size int      `json:"size" validate:"omitempty,min=1,max=50"`
}

type SwipeRequest struct {
	POIID string `json:"poi_id" validate:"required"`
	Liked *bool  `json:"liked" validate:"required"`
}

type DeckResponse struct {
	Cards  []models.POIWithDistance `json:"cards"`
	Count  int                      `json:"count"`
	Origin geo.Point                `json:"origin"`
}

func NewSurveyHandler(survey SurveyService) *SurveyHandler {
	return &SurveyHandler{survey: survey}
}

func (h *SurveyHandler) Deck(w http.ResponseWriter, r *http.Request) {
	var req DeckRequest
	if err := decodeBody(w, r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}
	origin := geo.SingaporeCenter
	switch {
	case req.Lat != nil && req.Lon != nil:
		origin = geo.Point{Lat: *req.Lat, Lon: *req.Lon}
	case req.Lat != nil || req.Lon != nil:
		middleware.WriteError(w, errors.ErrInvalidInput.WithDetails("lat and lon must be given together"))
		return
	}

	cards, err := h.survey.Deck(r.Context(), middleware.UserID(r.Context()), origin, req.Size)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, DeckResponse{Cards: cards, Count: len(cards), Origin: origin})
}

func (h *SurveyHandler) Swipe(w http.ResponseWriter, r *http.Request) {
	var req SwipeRequest
	if err := decodeBody(w, r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}
	swipe, err := h.survey.Swipe(r.Context(), middleware.UserID(r.Context()), req.POIID, *req.Liked)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, swipe)
}

func (h *SurveyHandler) Preferences(w http.ResponseWriter, r *http.Request) {
	weights, err := h.survey.Preferences(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"weights": weights, "top_tags": weights.Top(5)})
}

func (h *SurveyHandler) Reset(w http.ResponseWriter, r *http.Request) {
	n, err := h.survey.Reset(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
