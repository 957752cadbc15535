package handlers

import (
	"net/http"
	"sg-explorer/middleware"

	"github.com/gorilla/mux"
)

type ItineraryHandler struct {
	itineraries ItineraryService
}

type ItineraryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type AddItemRequest struct {
	POIID string `json:"poi_id" validate:"required"`
}

// UpdateItemRequest changes an item's position, its checked state, or both.
// Positions outside the list are clamped to its ends.
type UpdateItemRequest struct {
	Position *int  `json:"position"`
	Checked  *bool `json:"checked"`
}

func NewItineraryHandler(itineraries ItineraryService) *ItineraryHandler {
	return &ItineraryHandler{itineraries: itineraries}
}

func (h *ItineraryHandler) List(w http.ResponseWriter, r *http.Request) {
	its, err := h.itineraries.List(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"itineraries": its, "count": len(its)})
}

func (h *ItineraryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ItineraryRequest
	if err := decodeBody(w, r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}
	it, err := h.itineraries.Create(r.Context(), middleware.UserID(r.Context()), req.Name)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, it)
}

func (h *ItineraryHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.itineraries.Get(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, view)
}

func (h *ItineraryHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req ItineraryRequest
	if err := decodeBody(w, r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}
	view, err := h.itineraries.Rename(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["id"], req.Name)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, view)
}

func (h *ItineraryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.itineraries.Delete(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["id"]); err != nil {
		middleware.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ItineraryHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := decodeBody(w, r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}
	view, err := h.itineraries.AddPOI(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["id"], req.POIID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, view)
}

func (h *ItineraryHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	view, err := h.itineraries.RemovePOI(r.Context(), middleware.UserID(r.Context()), vars["id"], vars["poiID"])
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, view)
}

func (h *ItineraryHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateItemRequest
	if err := decodeBody(w, r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}
	vars := mux.Vars(r)
	view, err := h.itineraries.UpdateItem(r.Context(), middleware.UserID(r.Context()), vars["id"], vars["poiID"], req.Position, req.Checked)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, view)
}
