package handlers

import (
	"net/http"
	"sg-explorer/middleware"
	"sg-explorer/models"
	"sg-explorer/services"

	"github.com/gorilla/mux"
)

type ReviewHandler struct {
	reviews ReviewService
}

type ReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

type ReviewListResponse struct {
	Reviews []models.Review `json:"reviews"`
	Total   int64           `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

func NewReviewHandler(reviews ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	page := services.Paging{Limit: limit, Offset: offset}.Normalize()

	reviews, total, err := h.reviews.List(r.Context(), mux.Vars(r)["id"], page)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, ReviewListResponse{Reviews: reviews, Total: total, Limit: page.Limit, Offset: page.Offset})
}

// Upsert writes the caller's review of the POI, replacing any earlier one.
func (h *ReviewHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if err := decodeBody(w, r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}
	ctx := r.Context()
	review, err := h.reviews.Upsert(ctx, middleware.UserID(ctx), middleware.Username(ctx), mux.Vars(r)["id"], req.Rating, req.Comment)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, review)
}

func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.reviews.Delete(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["id"]); err != nil {
		middleware.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
