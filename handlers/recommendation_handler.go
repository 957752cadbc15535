package handlers

import (
	"net/http"
	"sg-explorer/middleware"
	"sg-explorer/services"
	"sg-explorer/utils/errors"
	"strconv"
)

type RecommendationHandler struct {
	recommender RecommendationService
}

func NewRecommendationHandler(recommender RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{recommender: recommender}
}

// Recommend accepts optional lat, lon, radius, limit and include_seen
// query parameters.
func (h *RecommendationHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	origin, err := queryPoint(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	radius, _, err := queryFloat(r, "radius")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if radius < 0 {
		middleware.WriteError(w, errors.ErrInvalidInput.WithDetails("radius must not be negative"))
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if limit < 0 || limit > 100 {
		middleware.WriteError(w, errors.ErrInvalidInput.WithDetails("limit must be between 1 and 100"))
		return
	}
	var includeSeen bool
	if raw := r.URL.Query().Get("include_seen"); raw != "" {
		if includeSeen, err = strconv.ParseBool(raw); err != nil {
			middleware.WriteError(w, errors.ErrInvalidInput.WithDetails("include_seen must be a boolean"))
			return
		}
	}

	res, err := h.recommender.Recommend(r.Context(), middleware.UserID(r.Context()), services.RecommendQuery{
		Origin:      origin,
		Radius:      radius,
		Limit:       limit,
		IncludeSeen: includeSeen,
	})
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}
