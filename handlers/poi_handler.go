package handlers

import (
	"net/http"
	"sg-explorer/middleware"
	"sg-explorer/models"
	"sg-explorer/services"
	"sg-explorer/utils/errors"

	"github.com/gorilla/mux"
)

const defaultNearbyRadius = 3000 // meters

type POIHandler struct {
	geoService POIService
}

type NearbyPOIResponse struct {
	NearbyPOIs []models.POIWithDistance `json:"nearby_pois"`
	Count      int                      `json:"count"`
	Lat        float64                  `json:"lat"`
	Lon        float64                  `json:"lon"`
	Radius     float64                  `json:"radius"`
}

type POIListResponse struct {
	POIs   []models.POI `json:"pois"`
	Total  int64        `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

type POIRequest struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	Type        string   `json:"type" validate:"max=100"`
	Lat         *float64 `json:"lat" validate:"required,latitude"`
	Lon         *float64 `json:"lon" validate:"required,longitude"`
	Tags        []string `json:"tags" validate:"max=20,dive,required,max=50"`
	Address     string   `json:"address" validate:"max=500"`
	Images      []string `json:"images" validate:"max=10,dive,url"`
}

func (p POIRequest) input() services.POIInput {
	return services.POIInput{
		Name:        p.Name,
		Description: p.Description,
		Type:        p.Type,
		Lat:         *p.Lat,
		Lon:         *p.Lon,
		Tags:        p.Tags,
		Address:     p.Address,
		Images:      p.Images,
	}
}

func NewPOIHandler(geoService POIService) *POIHandler {
	return &POIHandler{geoService: geoService}
}

func (h *POIHandler) GetNearbyPOIs(w http.ResponseWriter, r *http.Request) {
	origin, err := queryPoint(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if origin == nil {
		middleware.WriteError(w, errors.ErrInvalidInput.WithDetails("lat and lon are required"))
		return
	}
	radius, _, err := queryFloat(r, "radius")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if radius <= 0 {
		radius = defaultNearbyRadius
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	poiType := r.URL.Query().Get("type")

	pois, err := h.geoService.FindNearbyPOIs(r.Context(), origin.Lat, origin.Lon, radius, poiType, limit)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, NearbyPOIResponse{
		NearbyPOIs: pois,
		Count:      len(pois),
		Lat:        origin.Lat,
		Lon:        origin.Lon,
		Radius:     radius,
	})
}

func (h *POIHandler) ListPOIs(w http.ResponseWriter, r *http.Request) {
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
	filter := services.POIFilter{
		Tags:   queryList(r, "tags"),
		Type:   r.URL.Query().Get("type"),
		Query:  r.URL.Query().Get("q"),
		Paging: page,
	}

	pois, total, err := h.geoService.ListPOIs(r.Context(), filter)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, POIListResponse{POIs: pois, Total: total, Limit: page.Limit, Offset: page.Offset})
}

func (h *POIHandler) GetPOI(w http.ResponseWriter, r *http.Request) {
	poi, err := h.geoService.GetPOI(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, poi)
}

func (h *POIHandler) CreatePOI(w http.ResponseWriter, r *http.Request) {
	var req POIRequest
	if err := decodeBody(w, r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}
	poi, err := h.geoService.CreatePOI(r.Context(), req.input())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, poi)
}

func (h *POIHandler) UpdatePOI(w http.ResponseWriter, r *http.Request) {
	var req POIRequest
	if err := decodeBody(w, r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}
	poi, err := h.geoService.UpdatePOI(r.Context(), mux.Vars(r)["id"], req.input())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, poi)
}

func (h *POIHandler) DeletePOI(w http.ResponseWriter, r *http.Request) {
	if err := h.geoService.DeletePOI(r.Context(), mux.Vars(r)["id"]); err != nil {
		middleware.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *POIHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.geoService.ListTags(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"tags": tags, "count": len(tags)})
}
