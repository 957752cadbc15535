package handlers

import (
	"context"
	"sg-explorer/geo"
	"sg-explorer/models"
	"sg-explorer/recommend"
	"sg-explorer/services"
)

// The handlers depend on these narrow views of the services so they can be
// exercised against in-memory fakes.

type POIService interface {
	FindNearbyPOIs(ctx context.Context, lat, lon, radius float64, poiType string, limit int) ([]models.POIWithDistance, error)
	ListPOIs(ctx context.Context, f services.POIFilter) ([]models.POI, int64, error)
	GetPOI(ctx context.Context, id string) (models.POI, error)
	CreatePOI(ctx context.Context, in services.POIInput) (models.POI, error)
	UpdatePOI(ctx context.Context, id string, in services.POIInput) (models.POI, error)
	DeletePOI(ctx context.Context, id string) error
	ListTags(ctx context.Context) ([]models.TagCount, error)
}

type UserService interface {
	Register(ctx context.Context, username, email, password string) (string, error)
	Login(ctx context.Context, username, password string) (string, error)
	GetUser(ctx context.Context, userID string) (models.User, error)
	UserLocationPing(ctx context.Context, userID string, lat, lon float64) error
}

type ItineraryService interface {
	Create(ctx context.Context, ownerID, name string) (models.Itinerary, error)
	List(ctx context.Context, ownerID string) ([]models.Itinerary, error)
	Get(ctx context.Context, ownerID, id string) (services.ItineraryView, error)
	Rename(ctx context.Context, ownerID, id, name string) (services.ItineraryView, error)
	Delete(ctx context.Context, ownerID, id string) error
	AddPOI(ctx context.Context, ownerID, id, poiID string) (services.ItineraryView, error)
	RemovePOI(ctx context.Context, ownerID, id, poiID string) (services.ItineraryView, error)
	UpdateItem(ctx context.Context, ownerID, id, poiID string, position *int, checked *bool) (services.ItineraryView, error)
}

type ReviewService interface {
	Upsert(ctx context.Context, userID, username, poiID string, rating int, comment string) (models.Review, error)
	List(ctx context.Context, poiID string, paging services.Paging) ([]models.Review, int64, error)
	Delete(ctx context.Context, userID, poiID string) error
}

type SurveyService interface {
	Deck(ctx context.Context, userID string, origin geo.Point, size int) ([]models.POIWithDistance, error)
	Swipe(ctx context.Context, userID, poiID string, liked bool) (models.Swipe, error)
	Preferences(ctx context.Context, userID string) (recommend.Weights, error)
	Reset(ctx context.Context, userID string) (int64, error)
}

type RecommendationService interface {
	Recommend(ctx context.Context, userID string, q services.RecommendQuery) (services.RecommendResult, error)
}

var (
	_ POIService            = (*services.GeoService)(nil)
	_ UserService           = (*services.UserService)(nil)
	_ ItineraryService      = (*services.ItineraryService)(nil)
	_ ReviewService         = (*services.ReviewService)(nil)
	_ SurveyService         = (*services.SurveyService)(nil)
	_ RecommendationService = (*services.RecommendationService)(nil)
)
