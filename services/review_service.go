package services

import (
	"context"
	"math"
	"net/http"
	"sg-explorer/logging"
	"sg-explorer/models"
	"sg-explorer/utils/errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ReviewService struct {
	collection *mongo.Collection
	geo        *GeoService
}

func NewReviewService(db *mongo.Database, geo *GeoService) *ReviewService {
	return &ReviewService{collection: db.Collection("reviews"), geo: geo}
}

// EnsureIndexes enforces one review per user per POI.
func (s *ReviewService) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "poi_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "poi_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return errors.Wrap(err, "DB_ERROR", "Failed to create review indexes", http.StatusInternalServerError)
	}
	return nil
}

// Upsert creates or replaces the user's review of a POI and refreshes the
// POI's rating summary.
func (s *ReviewService) Upsert(ctx context.Context, userID, username, poiID string, rating int, comment string) (models.Review, error) {
	if rating < 1 || rating > 5 {
		return models.Review{}, errors.ErrInvalidInput.WithDetails("rating must be between 1 and 5")
	}
	if _, err := s.geo.GetPOI(ctx, poiID); err != nil {
		return models.Review{}, err
	}

	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"rating":     rating,
			"comment":    comment,
			"username":   username,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"_id":        uuid.New().String(),
			"created_at": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var review models.Review
	err := s.collection.FindOneAndUpdate(ctx, bson.M{"poi_id": poiID, "user_id": userID}, update, opts).Decode(&review)
	if err != nil {
		return models.Review{}, errors.Wrap(err, "DB_ERROR", "Failed to save review", http.StatusInternalServerError)
	}

	if err := s.refreshRating(ctx, poiID); err != nil {
		return review, err
	}
	return review, nil
}

// List returns a page of a POI's reviews, newest first, and the total.
func (s *ReviewService) List(ctx context.Context, poiID string, paging Paging) ([]models.Review, int64, error) {
	page := paging.Normalize()
	filter := bson.M{"poi_id": poiID}

	total, err := s.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, errors.Wrap(err, "DB_ERROR", "Failed to count reviews", http.StatusInternalServerError)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(page.Offset)).
		SetLimit(int64(page.Limit))
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, errors.Wrap(err, "DB_ERROR", "Failed to list reviews", http.StatusInternalServerError)
	}
	defer cursor.Close(ctx)

	reviews := []models.Review{}
	if err := cursor.All(ctx, &reviews); err != nil {
		return nil, 0, errors.Wrap(err, "DB_ERROR", "Failed to decode reviews", http.StatusInternalServerError)
	}
	return reviews, total, nil
}

func (s *ReviewService) Delete(ctx context.Context, userID, poiID string) error {
	res, err := s.collection.DeleteOne(ctx, bson.M{"poi_id": poiID, "user_id": userID})
	if err != nil {
		return errors.Wrap(err, "DB_ERROR", "Failed to delete review", http.StatusInternalServerError)
	}
	if res.DeletedCount == 0 {
		return errors.ErrNotFound.WithDetails("no review of poi %s", poiID)
	}
	return s.refreshRating(ctx, poiID)
}

func (s *ReviewService) refreshRating(ctx context.Context, poiID string) error {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "poi_id", Value: poiID}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "avg", Value: bson.D{{Key: "$avg", Value: "$rating"}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return errors.Wrap(err, "DB_ERROR", "Failed to aggregate ratings", http.StatusInternalServerError)
	}
	defer cursor.Close(ctx)

	var rows []models.RatingSummary
	if err := cursor.All(ctx, &rows); err != nil {
		return errors.Wrap(err, "DB_ERROR", "Failed to decode ratings", http.StatusInternalServerError)
	}
	summary := models.RatingSummary{}
	if len(rows) == 1 {
		summary = rows[0]
		summary.Average = math.Round(summary.Average*100) / 100
	}

	if _, err := s.geo.SetRating(ctx, poiID, summary); err != nil {
		// The POI may have been deleted since the review was written.
		if errors.Is(err, errors.ErrNotFound) {
			logging.Ctx(ctx).Warn().Str("poi", poiID).Msg("Rating refresh for missing POI")
			return nil
		}
		return err
	}
	return nil
}
