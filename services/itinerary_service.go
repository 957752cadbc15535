package services

import (
	"context"
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

// maxMutationAttempts bounds retries when a concurrent write bumps the
// itinerary version between our read and write.
const maxMutationAttempts = 3

type ItineraryService struct {
	collection *mongo.Collection
	geo        *GeoService
	now        func() time.Time
}

func NewItineraryService(db *mongo.Database, geo *GeoService) *ItineraryService {
	return &ItineraryService{
		collection: db.Collection("itineraries"),
		geo:        geo,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *ItineraryService) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "updated_at", Value: -1}},
	})
	if err != nil {
		return errors.Wrap(err, "DB_ERROR", "Failed to create itinerary indexes", http.StatusInternalServerError)
	}
	return nil
}

// ItineraryView is an itinerary with its POIs resolved.
type ItineraryView struct {
	models.Itinerary
	Progress models.ItineraryProgress `json:"progress"`
}

func (s *ItineraryService) Create(ctx context.Context, ownerID, name string) (models.Itinerary, error) {
	now := s.now()
	it := models.Itinerary{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Name:      name,
		Items:     []models.ItineraryItem{},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.collection.InsertOne(ctx, it); err != nil {
		return models.Itinerary{}, errors.Wrap(err, "DB_ERROR", "Failed to create itinerary", http.StatusInternalServerError)
	}
	logging.Ctx(ctx).Info().Str("itinerary", it.ID).Str("owner", ownerID).Msg("Created itinerary")
	return it, nil
}

// List returns the owner's itineraries, most recently changed first.
func (s *ItineraryService) List(ctx context.Context, ownerID string) ([]models.Itinerary, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cursor, err := s.collection.Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "Failed to list itineraries", http.StatusInternalServerError)
	}
	defer cursor.Close(ctx)

	its := []models.Itinerary{}
	if err := cursor.All(ctx, &its); err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "Failed to decode itineraries", http.StatusInternalServerError)
	}
	return its, nil
}

// load fetches an itinerary the owner can see. Other owners' itineraries
// are reported as not found.
func (s *ItineraryService) load(ctx context.Context, ownerID, id string) (models.Itinerary, error) {
	var it models.Itinerary
	err := s.collection.FindOne(ctx, bson.M{"_id": id, "owner_id": ownerID}).Decode(&it)
	if err == mongo.ErrNoDocuments {
		return models.Itinerary{}, errors.ErrNotFound.WithDetails("itinerary %s not found", id)
	}
	if err != nil {
		return models.Itinerary{}, errors.Wrap(err, "DB_ERROR", "Failed to load itinerary", http.StatusInternalServerError)
	}
	return it, nil
}

func (s *ItineraryService) Get(ctx context.Context, ownerID, id string) (ItineraryView, error) {
	it, err := s.load(ctx, ownerID, id)
	if err != nil {
		return ItineraryView{}, err
	}
	return s.view(ctx, it)
}

func (s *ItineraryService) view(ctx context.Context, it models.Itinerary) (ItineraryView, error) {
	pois, err := s.geo.GetPOIs(ctx, it.POIIDs())
	if err != nil {
		return ItineraryView{}, err
	}
	for i := range it.Items {
		if poi, ok := pois[it.Items[i].POIID]; ok {
			it.Items[i].POI = &poi
		}
	}
	return ItineraryView{Itinerary: it, Progress: it.Progress()}, nil
}

func (s *ItineraryService) Rename(ctx context.Context, ownerID, id, name string) (ItineraryView, error) {
	return s.mutate(ctx, ownerID, id, func(it *models.Itinerary) error {
		it.Name = name
		return nil
	})
}

func (s *ItineraryService) Delete(ctx context.Context, ownerID, id string) error {
	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": id, "owner_id": ownerID})
	if err != nil {
		return errors.Wrap(err, "DB_ERROR", "Failed to delete itinerary", http.StatusInternalServerError)
	}
	if res.DeletedCount == 0 {
		return errors.ErrNotFound.WithDetails("itinerary %s not found", id)
	}
	return nil
}

// AddPOI appends an existing POI to the itinerary.
func (s *ItineraryService) AddPOI(ctx context.Context, ownerID, id, poiID string) (ItineraryView, error) {
	if _, err := s.geo.GetPOI(ctx, poiID); err != nil {
		return ItineraryView{}, err
	}
	return s.mutate(ctx, ownerID, id, func(it *models.Itinerary) error {
		return it.AddItem(poiID, s.now())
	})
}

func (s *ItineraryService) RemovePOI(ctx context.Context, ownerID, id, poiID string) (ItineraryView, error) {
	return s.mutate(ctx, ownerID, id, func(it *models.Itinerary) error {
		return it.RemoveItem(poiID)
	})
}

// UpdateItem applies a move and/or a checked change to one item. A nil
// argument leaves that aspect unchanged.
func (s *ItineraryService) UpdateItem(ctx context.Context, ownerID, id, poiID string, position *int, checked *bool) (ItineraryView, error) {
	if position == nil && checked == nil {
		return ItineraryView{}, errors.ErrInvalidInput.WithDetails("position or checked is required")
	}
	return s.mutate(ctx, ownerID, id, func(it *models.Itinerary) error {
		if checked != nil {
			if err := it.SetChecked(poiID, *checked); err != nil {
				return err
			}
		}
		if position != nil {
			if err := it.MoveItem(poiID, *position); err != nil {
				return err
			}
		}
		return nil
	})
}

// mutate runs fn against the stored itinerary and writes the result back
// only if nobody else changed it in between, retrying a few times.
func (s *ItineraryService) mutate(ctx context.Context, ownerID, id string, fn func(*models.Itinerary) error) (ItineraryView, error) {
	for attempt := 0; attempt < maxMutationAttempts; attempt++ {
		it, err := s.load(ctx, ownerID, id)
		if err != nil {
			return ItineraryView{}, err
		}
		if err := fn(&it); err != nil {
			return ItineraryView{}, err
		}

		version := it.Version
		it.Version++
		it.UpdatedAt = s.now()
		if it.Items == nil {
			it.Items = []models.ItineraryItem{}
		}
		res, err := s.collection.UpdateOne(ctx,
			bson.M{"_id": id, "owner_id": ownerID, "version": version},
			bson.M{"$set": bson.M{
				"name":       it.Name,
				"items":      it.Items,
				"version":    it.Version,
				"updated_at": it.UpdatedAt,
			}},
		)
		if err != nil {
			return ItineraryView{}, errors.Wrap(err, "DB_ERROR", "Failed to update itinerary", http.StatusInternalServerError)
		}
		if res.MatchedCount == 1 {
			return s.view(ctx, it)
		}
		logging.Ctx(ctx).Debug().Str("itinerary", id).Int("attempt", attempt+1).Msg("Itinerary version moved, retrying")
	}
	return ItineraryView{}, errors.ErrConflict.WithDetails("itinerary %s was modified concurrently", id)
}
