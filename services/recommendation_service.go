package services

import (
	"context"
	"sg-explorer/config"
	"sg-explorer/geo"
	"sg-explorer/logging"
	"sg-explorer/metrics"
	"sg-explorer/models"
	"sg-explorer/recommend"
)

const (
	OriginRequest      = "request"
	OriginLastLocation = "last_location"
	OriginDefault      = "default"
)

// locator resolves a user's last known position.
type locator interface {
	LastLocation(ctx context.Context, userID string) (geo.Point, bool, error)
}

type RecommendationService struct {
	geo      *GeoService
	users    locator
	survey   *SurveyService
	defaults recommend.Options
}

func NewRecommendationService(geo *GeoService, users *UserService, survey *SurveyService, cfg config.RecommendConfig) *RecommendationService {
	return &RecommendationService{
		geo:    geo,
		users:  users,
		survey: survey,
		defaults: recommend.Options{
			Radius:     cfg.Radius,
			MaxRadius:  cfg.MaxRadius,
			MinResults: cfg.MinResults,
			Limit:      cfg.Limit,
		}.WithDefaults(),
	}
}

type RecommendQuery struct {
	// Origin overrides the user's last known location when set.
	Origin      *geo.Point
	Radius      float64
	Limit       int
	IncludeSeen bool
}

type RecommendResult struct {
	recommend.Result
	Origin       geo.Point `json:"origin"`
	OriginSource string    `json:"origin_source"`
	TopTags      []string  `json:"top_tags"`
}

// Recommend ranks POIs around the query origin, the user's last location or
// the city centre, in that order of preference.
func (s *RecommendationService) Recommend(ctx context.Context, userID string, q RecommendQuery) (RecommendResult, error) {
	origin, source, err := s.resolveOrigin(ctx, userID, q.Origin)
	if err != nil {
		return RecommendResult{}, err
	}

	opts := s.defaults
	if q.Radius > 0 {
		opts.Radius = q.Radius
		opts.MaxRadius = max(opts.MaxRadius, q.Radius)
	}
	if q.Limit > 0 {
		opts.Limit = q.Limit
	}

	var keep func(models.POI) bool
	if !q.IncludeSeen {
		if opts.Exclude, err = s.survey.SwipedIDs(ctx, userID); err != nil {
			return RecommendResult{}, err
		}
		keep = func(p models.POI) bool {
			_, seen := opts.Exclude[p.ID]
			return !seen
		}
	}
	nearby, err := s.geo.FindNearbyMatching(ctx, origin.Lat, origin.Lon, opts.MaxRadius, 0, keep)
	if err != nil {
		return RecommendResult{}, err
	}
	candidates := make([]recommend.Candidate, len(nearby))
	for i, p := range nearby {
		candidates[i] = recommend.Candidate{POI: p.POI, Distance: p.Distance}
	}

	weights, err := s.survey.Preferences(ctx, userID)
	if err != nil {
		return RecommendResult{}, err
	}

	res := recommend.Rank(candidates, weights, opts)
	metrics.RecommendationResults.Observe(float64(len(res.Recommendations)))
	if res.Radius > opts.Radius {
		metrics.RecommendationRadiusExpansions.Inc()
	}
	logging.Ctx(ctx).Debug().
		Str("user", userID).
		Str("origin", source).
		Int("candidates", len(candidates)).
		Int("results", len(res.Recommendations)).
		Float64("radius", res.Radius).
		Msg("Recommendations computed")

	return RecommendResult{
		Result:       res,
		Origin:       origin,
		OriginSource: source,
		TopTags:      weights.Top(5),
	}, nil
}

func (s *RecommendationService) resolveOrigin(ctx context.Context, userID string, requested *geo.Point) (geo.Point, string, error) {
	if requested != nil {
		return *requested, OriginRequest, nil
	}
	p, ok, err := s.users.LastLocation(ctx, userID)
	if err != nil {
		return geo.Point{}, "", err
	}
	if ok {
		return p, OriginLastLocation, nil
	}
	return geo.SingaporeCenter, OriginDefault, nil
}
