package services

import (
	"context"
	"math/rand/v2"
	"net/http"
	"sg-explorer/geo"
	"sg-explorer/logging"
	"sg-explorer/metrics"
	"sg-explorer/models"
	"sg-explorer/recommend"
	"sg-explorer/utils/errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultDeckSize = 10
	MaxDeckSize     = 50

	deckRadius     = 5000.0
	deckWideRadius = 25000.0
	weightsTTL     = 24 * time.Hour
)

// stampField holds the cache stamp inside the weights hash. Normalized tags
// never start with a space, so it cannot collide with a tag.
const stampField = " stamp"

func weightsKey(userID string) string { return "survey:" + userID + ":weights" }
func versionKey(userID string) string { return "survey:" + userID + ":version" }

// SurveyService runs the Surprise Me flow: it deals a deck of nearby POIs,
// records likes and dislikes, and turns them into tag weights.
type SurveyService struct {
	collection  *mongo.Collection
	redisClient *redis.Client
	geo         *GeoService
	shuffle     func(n int, swap func(i, j int))
}

func NewSurveyService(db *mongo.Database, redisClient *redis.Client, geo *GeoService) *SurveyService {
	return &SurveyService{
		collection:  db.Collection("swipes"),
		redisClient: redisClient,
		geo:         geo,
		shuffle:     rand.Shuffle,
	}
}

func (s *SurveyService) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "poi_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return errors.Wrap(err, "DB_ERROR", "Failed to create swipe indexes", http.StatusInternalServerError)
	}
	return nil
}

// Deck deals up to size POIs near origin that the user has not swiped yet,
// in random order. The search widens once if the neighbourhood is exhausted.
func (s *SurveyService) Deck(ctx context.Context, userID string, origin geo.Point, size int) ([]models.POIWithDistance, error) {
	if size <= 0 {
		size = DefaultDeckSize
	}
	size = min(size, MaxDeckSize)

	seen, err := s.SwipedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	var deck []models.POIWithDistance
	for _, radius := range []float64{deckRadius, deckWideRadius} {
		deck, err = s.geo.FindNearbyMatching(ctx, origin.Lat, origin.Lon, radius, 0, func(p models.POI) bool {
			_, swiped := seen[p.ID]
			return !swiped
		})
		if err != nil {
			return nil, err
		}
		if len(deck) >= size {
			break
		}
	}

	s.shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	if len(deck) > size {
		deck = deck[:size]
	}
	return deck, nil
}

// Swipe records a like or dislike, replacing any earlier choice for the
// same POI.
func (s *SurveyService) Swipe(ctx context.Context, userID, poiID string, liked bool) (models.Swipe, error) {
	if _, err := s.geo.GetPOI(ctx, poiID); err != nil {
		return models.Swipe{}, err
	}
	swipe := models.Swipe{UserID: userID, POIID: poiID, Liked: liked, CreatedAt: time.Now().UTC()}
	_, err := s.collection.UpdateOne(ctx,
		bson.M{"user_id": userID, "poi_id": poiID},
		bson.M{"$set": bson.M{"liked": liked, "created_at": swipe.CreatedAt}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return models.Swipe{}, errors.Wrap(err, "DB_ERROR", "Failed to record swipe", http.StatusInternalServerError)
	}
	s.invalidate(ctx, userID)
	metrics.RecordSwipe(liked)
	return swipe, nil
}

func (s *SurveyService) swipes(ctx context.Context, userID string) ([]models.Swipe, error) {
	cursor, err := s.collection.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "Failed to load swipes", http.StatusInternalServerError)
	}
	defer cursor.Close(ctx)

	var swipes []models.Swipe
	if err := cursor.All(ctx, &swipes); err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "Failed to decode swipes", http.StatusInternalServerError)
	}
	return swipes, nil
}

// SwipedIDs returns the POIs the user has swiped on, either way.
func (s *SurveyService) SwipedIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	swipes, err := s.swipes(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(swipes))
	for _, sw := range swipes {
		ids[sw.POIID] = struct{}{}
	}
	return ids, nil
}

// Preferences returns the user's tag weights, from Redis when cached.
func (s *SurveyService) Preferences(ctx context.Context, userID string) (recommend.Weights, error) {
	// The stamp is read before the swipes so that a swipe or retag landing
	// in between leaves the cached copy stale rather than wrong.
	stamp, stampErr := s.cacheStamp(ctx, userID)
	if stampErr == nil {
		if w, ok := s.cachedWeights(ctx, userID, stamp); ok {
			metrics.RecordCache("weights", true)
			return w, nil
		}
	}
	metrics.RecordCache("weights", false)

	w, err := s.buildWeights(ctx, userID)
	if err != nil {
		return nil, err
	}
	if stampErr == nil {
		s.cacheWeights(ctx, userID, w, stamp)
	}
	return w, nil
}

func (s *SurveyService) buildWeights(ctx context.Context, userID string) (recommend.Weights, error) {
	swipes, err := s.swipes(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(swipes))
	for i, sw := range swipes {
		ids[i] = sw.POIID
	}
	pois, err := s.geo.GetPOIs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return recommend.BuildWeights(swipes, func(id string) ([]string, bool) {
		p, ok := pois[id]
		return p.Tags, ok
	}), nil
}

// cacheStamp combines the user's swipe version with the global tag
// generation. Either one moving invalidates cached weights.
func (s *SurveyService) cacheStamp(ctx context.Context, userID string) (string, error) {
	vals, err := s.redisClient.MGet(ctx, versionKey(userID), poiTagGenKey).Result()
	if err != nil {
		return "", err
	}
	part := func(v any) string {
		if str, ok := v.(string); ok {
			return str
		}
		return "0"
	}
	return part(vals[0]) + ":" + part(vals[1]), nil
}

func (s *SurveyService) cachedWeights(ctx context.Context, userID, stamp string) (recommend.Weights, bool) {
	cached, err := s.redisClient.HGetAll(ctx, weightsKey(userID)).Result()
	if err != nil || cached[stampField] != stamp {
		return nil, false
	}
	w := make(recommend.Weights, len(cached)-1)
	for tag, v := range cached {
		if tag == stampField {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, false
		}
		w[tag] = f
	}
	return w, true
}

// cacheWeights stores w under stamp unless the stamp has already moved on.
func (s *SurveyService) cacheWeights(ctx context.Context, userID string, w recommend.Weights, stamp string) {
	if current, err := s.cacheStamp(ctx, userID); err != nil || current != stamp {
		return
	}
	fields := make(map[string]any, len(w)+1)
	for tag, v := range w {
		fields[tag] = v
	}
	fields[stampField] = stamp
	_, err := s.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, weightsKey(userID))
		pipe.HSet(ctx, weightsKey(userID), fields)
		pipe.Expire(ctx, weightsKey(userID), weightsTTL)
		return nil
	})
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("user", userID).Msg("Failed to cache tag weights")
	}
}

// Reset forgets every swipe the user made.
func (s *SurveyService) Reset(ctx context.Context, userID string) (int64, error) {
	res, err := s.collection.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, errors.Wrap(err, "DB_ERROR", "Failed to reset survey", http.StatusInternalServerError)
	}
	s.invalidate(ctx, userID)
	return res.DeletedCount, nil
}

// invalidate runs after the swipes collection changed. Bumping the version
// also defeats a concurrent Preferences call that read the old swipes.
func (s *SurveyService) invalidate(ctx context.Context, userID string) {
	_, err := s.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(userID))
		pipe.Del(ctx, weightsKey(userID))
		return nil
	})
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("user", userID).Msg("Failed to drop cached tag weights")
	}
}
