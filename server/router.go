package server

import (
	"context"
	"net/http"
	"sg-explorer/config"
	"sg-explorer/handlers"
	"sg-explorer/middleware"
	"sg-explorer/models"
	"time"

	"github.com/go-chi/httprate"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services are the backends the HTTP layer talks to.
type Services struct {
	POIs        handlers.POIService
	Users       handlers.UserService
	Itineraries handlers.ItineraryService
	Reviews     handlers.ReviewService
	Survey      handlers.SurveyService
	Recommender handlers.RecommendationService

	// Checks are run by /healthz, keyed by dependency name.
	Checks map[string]func(context.Context) error
}

// NewRouter builds the full route table.
func NewRouter(cfg *config.Config, svc Services) *mux.Router {
	poiHandler := handlers.NewPOIHandler(svc.POIs)
	authHandler := handlers.NewAuthHandler(svc.Users)
	userHandler := handlers.NewUserHandler(svc.Users)
	itineraryHandler := handlers.NewItineraryHandler(svc.Itineraries)
	reviewHandler := handlers.NewReviewHandler(svc.Reviews)
	surveyHandler := handlers.NewSurveyHandler(svc.Survey)
	recommendationHandler := handlers.NewRecommendationHandler(svc.Recommender)

	authenticated := middleware.JWTMiddleware(cfg.Auth.JWTSecret)
	adminOnly := func(h http.HandlerFunc) http.Handler {
		return authenticated(middleware.RequireRole(models.RoleAdmin)(h))
	}
	userOnly := func(h http.HandlerFunc) http.Handler {
		return authenticated(h)
	}

	r := mux.NewRouter()
	r.Use(middleware.RequestLogger())
	r.Use(middleware.ErrorMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.HTTP.Origins()))
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteError(w, errNoRoute)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteError(w, errMethodNotAllowed)
	})

	r.HandleFunc("/healthz", healthHandler(svc.Checks)).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Auth routes
	authRouter := r.PathPrefix("/auth").Subrouter()
	authRouter.Use(httprate.LimitByIP(cfg.Auth.RateLimit, time.Minute))
	authRouter.HandleFunc("/register", authHandler.RegisterUser).Methods("POST", "OPTIONS")
	authRouter.HandleFunc("/login", authHandler.LoginUser).Methods("POST", "OPTIONS")

	// POI routes. /pois/nearby must be registered before /pois/{id}.
	r.HandleFunc("/pois", poiHandler.ListPOIs).Methods("GET", "OPTIONS")
	r.Handle("/pois", adminOnly(poiHandler.CreatePOI)).Methods("POST")
	r.HandleFunc("/pois/nearby", poiHandler.GetNearbyPOIs).Methods("GET", "OPTIONS")
	r.HandleFunc("/pois/{id}", poiHandler.GetPOI).Methods("GET", "OPTIONS")
	r.Handle("/pois/{id}", adminOnly(poiHandler.UpdatePOI)).Methods("PUT")
	r.Handle("/pois/{id}", adminOnly(poiHandler.DeletePOI)).Methods("DELETE")
	r.HandleFunc("/pois/{id}/reviews", reviewHandler.List).Methods("GET", "OPTIONS")
	r.Handle("/pois/{id}/reviews", userOnly(reviewHandler.Upsert)).Methods("PUT")
	r.Handle("/pois/{id}/reviews", userOnly(reviewHandler.Delete)).Methods("DELETE")
	r.HandleFunc("/tags", poiHandler.ListTags).Methods("GET", "OPTIONS")

	// User routes
	userRouter := r.PathPrefix("/user").Subrouter()
	userRouter.Use(authenticated)
	userRouter.HandleFunc("/ping", userHandler.PingLocation).Methods("POST", "OPTIONS")
	userRouter.HandleFunc("/me", userHandler.Me).Methods("GET", "OPTIONS")

	itineraryRouter := r.PathPrefix("/itineraries").Subrouter()
	itineraryRouter.Use(authenticated)
	itineraryRouter.HandleFunc("", itineraryHandler.List).Methods("GET", "OPTIONS")
	itineraryRouter.HandleFunc("", itineraryHandler.Create).Methods("POST")
	itineraryRouter.HandleFunc("/{id}", itineraryHandler.Get).Methods("GET", "OPTIONS")
	itineraryRouter.HandleFunc("/{id}", itineraryHandler.Rename).Methods("PATCH")
	itineraryRouter.HandleFunc("/{id}", itineraryHandler.Delete).Methods("DELETE")
	itineraryRouter.HandleFunc("/{id}/items", itineraryHandler.AddItem).Methods("POST", "OPTIONS")
	itineraryRouter.HandleFunc("/{id}/items/{poiID}", itineraryHandler.UpdateItem).Methods("PATCH", "OPTIONS")
	itineraryRouter.HandleFunc("/{id}/items/{poiID}", itineraryHandler.RemoveItem).Methods("DELETE")

	surveyRouter := r.PathPrefix("/survey").Subrouter()
	surveyRouter.Use(authenticated)
	surveyRouter.HandleFunc("", surveyHandler.Reset).Methods("DELETE", "OPTIONS")
	surveyRouter.HandleFunc("/deck", surveyHandler.Deck).Methods("POST", "OPTIONS")
	surveyRouter.HandleFunc("/swipes", surveyHandler.Swipe).Methods("POST", "OPTIONS")
	surveyRouter.HandleFunc("/preferences", surveyHandler.Preferences).Methods("GET", "OPTIONS")

	r.Handle("/recommendations", userOnly(recommendationHandler.Recommend)).Methods("GET", "OPTIONS")

	return r
}
