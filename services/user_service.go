package services

import (
	"context"
	"encoding/json"
	"net/http"
	"sg-explorer/geo"
	"sg-explorer/logging"
	"sg-explorer/metrics"
	"sg-explorer/models"
	"sg-explorer/utils/errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersGeoKey  = "users:geo"
	userCacheTTL = 24 * time.Hour
)

func userKey(publicID string) string { return "user:" + publicID }

type UserService struct {
	collection  *mongo.Collection
	redisClient *redis.Client
	jwtSecret   string
	tokenTTL    time.Duration
}

func NewUserService(db *mongo.Database, redisClient *redis.Client, jwtSecret string) *UserService {
	return &UserService{
		collection:  db.Collection("users"),
		redisClient: redisClient,
		jwtSecret:   jwtSecret,
		tokenTTL:    24 * time.Hour,
	}
}

// EnsureIndexes makes username, email and public_id unique.
func (s *UserService) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "public_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return errors.Wrap(err, "DB_ERROR", "Failed to create user indexes", http.StatusInternalServerError)
	}
	return nil
}

// GetUser retrieves a user from Redis or MongoDB
func (s *UserService) GetUser(ctx context.Context, userID string) (models.User, error) {
	var user models.User

	// Check Redis first
	userJSON, err := s.redisClient.Get(ctx, userKey(userID)).Result()
	if err == nil {
		if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
			logging.Warn().Err(err).Str("user", userID).Msg("Failed to unmarshal cached user")
		} else {
			metrics.RecordCache("user", true)
			return user, nil
		}
	}
	metrics.RecordCache("user", false)

	err = s.collection.FindOne(ctx, bson.M{"public_id": userID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return models.User{}, errors.ErrNotFound.WithDetails("user %s not found", userID)
	}
	if err != nil {
		return models.User{}, errors.Wrap(err, "DB_ERROR", "Failed to load user", http.StatusInternalServerError)
	}

	s.cacheUser(ctx, user)
	return user, nil
}

func (s *UserService) cacheUser(ctx context.Context, user models.User) {
	userJSON, err := json.Marshal(user)
	if err != nil {
		logging.Warn().Err(err).Str("user", user.PublicID).Msg("Failed to marshal user")
		return
	}
	if err := s.redisClient.Set(ctx, userKey(user.PublicID), userJSON, userCacheTTL).Err(); err != nil {
		logging.Warn().Err(err).Str("user", user.PublicID).Msg("Failed to cache user")
	}
}

// UserLocationPing records the user's current position. It becomes the
// default reference point for their recommendations.
func (s *UserService) UserLocationPing(ctx context.Context, userID string, lat, lon float64) error {
	if userID == "" {
		return errors.ErrUnauthorized
	}
	if !geo.ValidCoordinates(lat, lon) {
		return errors.ErrInvalidInput.WithDetails("invalid coordinates: lat=%f, lon=%f", lat, lon)
	}

	var user models.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{"last_location": models.NewGeoPoint(lat, lon)}}
	err := s.collection.FindOneAndUpdate(ctx, bson.M{"public_id": userID}, update, opts).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return errors.ErrNotFound.WithDetails("user %s not found", userID)
	}
	if err != nil {
		return errors.Wrap(err, "DB_ERROR", "Failed to update location", http.StatusInternalServerError)
	}
	s.cacheUser(ctx, user)

	// Store in Redis geospatial index
	err = s.redisClient.GeoAdd(ctx, usersGeoKey, &redis.GeoLocation{
		Name:      user.PublicID,
		Longitude: lon,
		Latitude:  lat,
	}).Err()
	if err != nil {
		return errors.Wrap(err, "CACHE_ERROR", "Failed to update location index", http.StatusInternalServerError)
	}

	logging.Ctx(ctx).Debug().Str("user", userID).Float64("lat", lat).Float64("lon", lon).Msg("Updated user location")
	return nil
}

// LastLocation returns the user's last pinged position, reporting false if
// they never sent one.
func (s *UserService) LastLocation(ctx context.Context, userID string) (geo.Point, bool, error) {
	positions, err := s.redisClient.GeoPos(ctx, usersGeoKey, userID).Result()
	if err == nil && len(positions) == 1 && positions[0] != nil {
		return geo.Point{Lat: positions[0].Latitude, Lon: positions[0].Longitude}, true, nil
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return geo.Point{}, false, err
	}
	if !user.HasLocation() {
		return geo.Point{}, false, nil
	}
	return geo.Point{Lat: user.LastLocation.Lat(), Lon: user.LastLocation.Lon()}, true, nil
}
