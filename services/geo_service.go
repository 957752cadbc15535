package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"sg-explorer/logging"
	"sg-explorer/metrics"
	"sg-explorer/models"
	"sg-explorer/tagger"
	"sg-explorer/utils/errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	poiGeoKey       = "pois:geo"
	poiKeyPrefix    = "poi:"
	poiTagGenKey    = "pois:tags:gen"
	maxNearbyResult = 500
)

func poiKey(id string) string { return poiKeyPrefix + id }

type GeoService struct {
	collection  *mongo.Collection
	RedisClient *redis.Client // Redis client for geo queries
	tagger      *tagger.Tagger
}

func NewGeoService(db *mongo.Database, redisClient *redis.Client) *GeoService {
	return &GeoService{
		collection:  db.Collection("pois"),
		RedisClient: redisClient,
		tagger:      tagger.New(tagger.DefaultRules),
	}
}

// EnsureIndexes creates the query indexes on the pois collection.
func (s *GeoService) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
		{Keys: bson.D{{Key: "tags", Value: 1}}},
		{Keys: bson.D{{Key: "type", Value: 1}}},
		{Keys: bson.D{{Key: "name", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("creating poi indexes: %w", err)
	}
	return nil
}

// FindNearbyPOIs returns up to limit POIs within radius meters of lat/lon,
// closest first, using the Redis geo index.
func (s *GeoService) FindNearbyPOIs(ctx context.Context, lat, lon, radius float64, poiType string, limit int) ([]models.POIWithDistance, error) {
	var keep func(models.POI) bool
	if poiType != "" {
		keep = func(p models.POI) bool { return p.Type == poiType }
	}
	return s.FindNearbyMatching(ctx, lat, lon, radius, limit, keep)
}

// FindNearbyMatching is FindNearbyPOIs with an arbitrary filter. The limit
// applies to POIs keep accepts, so a selective filter scans the whole
// radius instead of the closest maxNearbyResult hits.
func (s *GeoService) FindNearbyMatching(ctx context.Context, lat, lon, radius float64, limit int, keep func(models.POI) bool) ([]models.POIWithDistance, error) {
	if limit <= 0 || limit > maxNearbyResult {
		limit = maxNearbyResult
	}
	query := &redis.GeoRadiusQuery{
		Radius:   radius,
		Unit:     "m",
		WithDist: true,
		Sort:     "ASC",
	}
	if keep == nil {
		query.Count = limit
	}
	geoResults, err := s.RedisClient.GeoRadius(ctx, poiGeoKey, lon, lat, query).Result()
	if err != nil {
		return nil, errors.Wrap(err, "CACHE_ERROR", "Failed to query geo index", http.StatusInternalServerError)
	}
	if len(geoResults) == 0 {
		return []models.POIWithDistance{}, nil
	}

	// Hydrate every hit in one round trip.
	pipe := s.RedisClient.Pipeline()
	cmds := make([]*redis.StringCmd, len(geoResults))
	for i, gr := range geoResults {
		cmds[i] = pipe.HGet(ctx, poiKey(gr.Name), "data")
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, errors.Wrap(err, "CACHE_ERROR", "Failed to load POIs", http.StatusInternalServerError)
	}

	results := make([]models.POIWithDistance, 0, min(limit, len(geoResults)))
	for i, geoResult := range geoResults {
		poiJSON, err := cmds[i].Result()
		if err != nil {
			logging.Warn().Err(err).Str("poi", geoResult.Name).Msg("POI in geo index without data")
			continue
		}
		var poi models.POI
		if err := json.Unmarshal([]byte(poiJSON), &poi); err != nil {
			logging.Warn().Err(err).Str("poi", geoResult.Name).Msg("Failed to unmarshal POI")
			continue
		}
		if keep != nil && !keep(poi) {
			continue
		}
		results = append(results, models.POIWithDistance{POI: poi, Distance: geoResult.Dist})
		if len(results) == limit {
			break
		}
	}

	logging.Debug().Int("count", len(results)).Float64("radius", radius).Msg("Found nearby POIs")
	return results, nil
}

type POIFilter struct {
	Tags   []string
	Type   string
	Query  string
	Paging Paging
}

// ListPOIs pages through POIs matching every tag in the filter, sorted by
// name. Tags match case-insensitively.
func (s *GeoService) ListPOIs(ctx context.Context, f POIFilter) ([]models.POI, int64, error) {
	filter := bson.M{}
	if len(f.Tags) > 0 {
		all := make(bson.A, 0, len(f.Tags))
		for _, tag := range f.Tags {
			all = append(all, primitive.Regex{Pattern: "^" + regexp.QuoteMeta(strings.TrimSpace(tag)) + "$", Options: "i"})
		}
		filter["tags"] = bson.M{"$all": all}
	}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	if f.Query != "" {
		filter["name"] = bson.M{"$regex": regexp.QuoteMeta(f.Query), "$options": "i"}
	}
	page := f.Paging.Normalize()

	total, err := s.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, errors.Wrap(err, "DB_ERROR", "Failed to count POIs", http.StatusInternalServerError)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(page.Offset)).
		SetLimit(int64(page.Limit))
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, errors.Wrap(err, "DB_ERROR", "Failed to list POIs", http.StatusInternalServerError)
	}
	defer cursor.Close(ctx)

	pois := []models.POI{}
	if err := cursor.All(ctx, &pois); err != nil {
		return nil, 0, errors.Wrap(err, "DB_ERROR", "Failed to decode POIs", http.StatusInternalServerError)
	}
	return pois, total, nil
}

// GetPOI reads through the Redis copy before falling back to MongoDB.
func (s *GeoService) GetPOI(ctx context.Context, id string) (models.POI, error) {
	var poi models.POI
	if data, err := s.RedisClient.HGet(ctx, poiKey(id), "data").Result(); err == nil {
		if err := json.Unmarshal([]byte(data), &poi); err == nil {
			metrics.RecordCache("poi", true)
			return poi, nil
		}
	}
	metrics.RecordCache("poi", false)

	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&poi)
	if err == mongo.ErrNoDocuments {
		return models.POI{}, errors.ErrNotFound.WithDetails("poi %s not found", id)
	}
	if err != nil {
		return models.POI{}, errors.Wrap(err, "DB_ERROR", "Failed to load POI", http.StatusInternalServerError)
	}
	return poi, nil
}

// GetPOIs loads the given POIs keyed by id. Unknown ids are absent.
func (s *GeoService) GetPOIs(ctx context.Context, ids []string) (map[string]models.POI, error) {
	out := make(map[string]models.POI, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cursor, err := s.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "Failed to load POIs", http.StatusInternalServerError)
	}
	defer cursor.Close(ctx)

	var pois []models.POI
	if err := cursor.All(ctx, &pois); err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "Failed to decode POIs", http.StatusInternalServerError)
	}
	for _, p := range pois {
		out[p.ID] = p
	}
	return out, nil
}

// POIInput carries the writable fields of a POI.
type POIInput struct {
	Name        string
	Description string
	Type        string
	Lat, Lon    float64
	Tags        []string
	Address     string
	Images      []string
}

// CreatePOI stores a new POI. When no tags are given they are derived from
// the POI's text.
func (s *GeoService) CreatePOI(ctx context.Context, in POIInput) (models.POI, error) {
	now := time.Now().UTC()
	poi := models.POI{
		ID:          uuid.New().String(),
		Name:        in.Name,
		Description: in.Description,
		Type:        in.Type,
		Location:    models.NewGeoPoint(in.Lat, in.Lon),
		Tags:        tagger.Merge(in.Tags),
		Address:     in.Address,
		Images:      in.Images,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if len(poi.Tags) == 0 {
		s.tagger.Apply(&poi)
	}

	if _, err := s.collection.InsertOne(ctx, poi); err != nil {
		return models.POI{}, errors.Wrap(err, "DB_ERROR", "Failed to create POI", http.StatusInternalServerError)
	}
	// The document is stored; a reindex picks it up if Redis missed it.
	if err := s.IndexPOI(ctx, poi); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("poi", poi.ID).Msg("Created POI is not indexed, run reindex")
	}
	logging.Info().Str("poi", poi.ID).Str("name", poi.Name).Msg("Created POI")
	return poi, nil
}

func (s *GeoService) UpdatePOI(ctx context.Context, id string, in POIInput) (models.POI, error) {
	update := bson.M{"$set": bson.M{
		"name":        in.Name,
		"description": in.Description,
		"type":        in.Type,
		"location":    models.NewGeoPoint(in.Lat, in.Lon),
		"tags":        tagger.Merge(in.Tags),
		"address":     in.Address,
		"images":      in.Images,
		"updated_at":  time.Now().UTC(),
	}}
	poi, err := s.updateAndIndex(ctx, id, update)
	if err == nil {
		s.bumpTagGeneration(ctx)
	}
	return poi, err
}

// SetTags replaces a POI's tags.
func (s *GeoService) SetTags(ctx context.Context, id string, tags []string) (models.POI, error) {
	poi, err := s.updateAndIndex(ctx, id, bson.M{"$set": bson.M{"tags": tags, "updated_at": time.Now().UTC()}})
	if err == nil {
		s.bumpTagGeneration(ctx)
	}
	return poi, err
}

// SetRating stores a recomputed rating summary on the POI.
func (s *GeoService) SetRating(ctx context.Context, id string, summary models.RatingSummary) (models.POI, error) {
	return s.updateAndIndex(ctx, id, bson.M{"$set": bson.M{
		"rating_avg":   summary.Average,
		"rating_count": summary.Count,
	}})
}

func (s *GeoService) updateAndIndex(ctx context.Context, id string, update bson.M) (models.POI, error) {
	var poi models.POI
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&poi)
	if err == mongo.ErrNoDocuments {
		return models.POI{}, errors.ErrNotFound.WithDetails("poi %s not found", id)
	}
	if err != nil {
		return models.POI{}, errors.Wrap(err, "DB_ERROR", "Failed to update POI", http.StatusInternalServerError)
	}
	if err := s.IndexPOI(ctx, poi); err != nil {
		return models.POI{}, err
	}
	return poi, nil
}

func (s *GeoService) DeletePOI(ctx context.Context, id string) error {
	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "DB_ERROR", "Failed to delete POI", http.StatusInternalServerError)
	}
	if res.DeletedCount == 0 {
		return errors.ErrNotFound.WithDetails("poi %s not found", id)
	}
	s.bumpTagGeneration(ctx)
	if err := s.UnindexPOI(ctx, id); err != nil {
		return err
	}
	logging.Info().Str("poi", id).Msg("Deleted POI")
	return nil
}

// ListTags counts POIs per tag, most used first.
func (s *GeoService) ListTags(ctx context.Context) ([]models.TagCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$unwind", Value: "$tags"}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$tags"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "Failed to aggregate tags", http.StatusInternalServerError)
	}
	defer cursor.Close(ctx)

	tags := []models.TagCount{}
	if err := cursor.All(ctx, &tags); err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "Failed to decode tags", http.StatusInternalServerError)
	}
	return tags, nil
}

// IndexPOI writes the POI's cached copy and geo entry.
func (s *GeoService) IndexPOI(ctx context.Context, poi models.POI) error {
	if !poi.Location.Valid() {
		return errors.ErrInvalidInput.WithDetails("poi %s has no coordinates", poi.ID)
	}
	poiJSON, err := json.Marshal(poi)
	if err != nil {
		return errors.Wrap(err, "ENCODE_ERROR", "Failed to marshal POI", http.StatusInternalServerError)
	}
	_, err = s.RedisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, poiKey(poi.ID), "data", poiJSON)
		pipe.GeoAdd(ctx, poiGeoKey, &redis.GeoLocation{
			Name:      poi.ID,
			Longitude: poi.Location.Lon(),
			Latitude:  poi.Location.Lat(),
		})
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "CACHE_ERROR", "Failed to index POI", http.StatusInternalServerError)
	}
	return nil
}

// bumpTagGeneration marks every cached set of tag weights as stale. It is
// called whenever a POI's tags change or the POI goes away.
func (s *GeoService) bumpTagGeneration(ctx context.Context) {
	if err := s.RedisClient.Incr(ctx, poiTagGenKey).Err(); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to bump tag generation")
	}
}

func (s *GeoService) UnindexPOI(ctx context.Context, id string) error {
	_, err := s.RedisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, poiGeoKey, id)
		pipe.Del(ctx, poiKey(id))
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "CACHE_ERROR", "Failed to unindex POI", http.StatusInternalServerError)
	}
	return nil
}

// Reindex rebuilds the Redis geo index and POI copies from MongoDB. Only
// POI keys are touched; other data in the Redis DB survives.
func (s *GeoService) Reindex(ctx context.Context) (int, error) {
	if err := s.clearIndex(ctx); err != nil {
		return 0, err
	}

	count := 0
	err := s.ForEachPOI(ctx, func(poi *models.POI) error {
		if err := s.IndexPOI(ctx, *poi); err != nil {
			logging.Warn().Err(err).Str("poi", poi.ID).Msg("Skipping POI")
			return nil
		}
		count++
		return nil
	})
	if err != nil {
		return count, err
	}
	metrics.GeoIndexSize.Set(float64(count))
	logging.Info().Int("count", count).Msg("Reindexed POIs into Redis")
	return count, nil
}

func (s *GeoService) clearIndex(ctx context.Context) error {
	if err := s.RedisClient.Del(ctx, poiGeoKey).Err(); err != nil {
		return errors.Wrap(err, "CACHE_ERROR", "Failed to clear geo index", http.StatusInternalServerError)
	}
	iter := s.RedisClient.Scan(ctx, 0, poiKeyPrefix+"*", 500).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 500 {
			if err := s.RedisClient.Del(ctx, batch...).Err(); err != nil {
				return errors.Wrap(err, "CACHE_ERROR", "Failed to clear POI cache", http.StatusInternalServerError)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return errors.Wrap(err, "CACHE_ERROR", "Failed to scan POI cache", http.StatusInternalServerError)
	}
	if len(batch) > 0 {
		if err := s.RedisClient.Del(ctx, batch...).Err(); err != nil {
			return errors.Wrap(err, "CACHE_ERROR", "Failed to clear POI cache", http.StatusInternalServerError)
		}
	}
	return nil
}

// ForEachPOI streams every POI in MongoDB through fn, stopping on the
// first error fn returns.
func (s *GeoService) ForEachPOI(ctx context.Context, fn func(*models.POI) error) error {
	cursor, err := s.collection.Find(ctx, bson.M{})
	if err != nil {
		return errors.Wrap(err, "DB_ERROR", "Failed to load POIs", http.StatusInternalServerError)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var poi models.POI
		if err := cursor.Decode(&poi); err != nil {
			logging.Warn().Err(err).Msg("Failed to decode POI")
			continue
		}
		if err := fn(&poi); err != nil {
			return err
		}
	}
	if err := cursor.Err(); err != nil {
		return errors.Wrap(err, "DB_ERROR", "Failed to iterate POIs", http.StatusInternalServerError)
	}
	return nil
}

func (s *GeoService) CountPOIs(ctx context.Context) (int64, error) {
	n, err := s.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, errors.Wrap(err, "DB_ERROR", "Failed to count POIs", http.StatusInternalServerError)
	}
	return n, nil
}

// LoadPOIFile decodes a JSON array of POIs.
func LoadPOIFile(path string) ([]models.POI, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening POI file: %w", err)
	}
	defer file.Close()

	var pois []models.POI
	if err := json.NewDecoder(file).Decode(&pois); err != nil {
		return nil, fmt.Errorf("decoding POI file %s: %w", path, err)
	}
	return pois, nil
}

// ImportPOIs upserts pois by id, assigning ids and tags where missing.
// onEach, if set, is called after every POI.
func (s *GeoService) ImportPOIs(ctx context.Context, pois []models.POI, onEach func()) (int, error) {
	now := time.Now().UTC()
	imported := 0
	for i := range pois {
		poi := pois[i]
		if poi.ID == "" {
			poi.ID = uuid.New().String()
		}
		if poi.Location.Type == "" {
			poi.Location.Type = "Point"
		}
		if !poi.Location.Valid() {
			logging.Warn().Str("name", poi.Name).Msg("Skipping POI without coordinates")
			if onEach != nil {
				onEach()
			}
			continue
		}
		poi.Tags = tagger.Merge(poi.Tags)
		if len(poi.Tags) == 0 {
			s.tagger.Apply(&poi)
		}
		if poi.CreatedAt.IsZero() {
			poi.CreatedAt = now
		}
		poi.UpdatedAt = now

		_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": poi.ID}, poi, options.Replace().SetUpsert(true))
		if err != nil {
			return imported, errors.Wrap(err, "DB_ERROR", "Failed to import POI "+poi.Name, http.StatusInternalServerError)
		}
		imported++
		if onEach != nil {
			onEach()
		}
	}
	if imported > 0 {
		s.bumpTagGeneration(ctx)
	}
	return imported, nil
}

// SeedIfEmpty imports path when the pois collection is empty, then
// rebuilds the Redis index either way.
func (s *GeoService) SeedIfEmpty(ctx context.Context, path string) error {
	count, err := s.CountPOIs(ctx)
	if err != nil {
		return err
	}
	if count == 0 && path != "" {
		logging.Info().Str("file", path).Msg("No POIs found in MongoDB, seeding sample data")
		pois, err := LoadPOIFile(path)
		if err != nil {
			return err
		}
		n, err := s.ImportPOIs(ctx, pois, nil)
		if err != nil {
			return err
		}
		logging.Info().Int("count", n).Msg("Inserted POIs into MongoDB")
	}
	_, err = s.Reindex(ctx)
	return err
}
