package models

import "time"

type POI struct {
	ID          string    `json:"id" bson:"_id,omitempty"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description" bson:"description"`
	Type        string    `json:"type" bson:"type"`
	Location    GeoPoint  `json:"location" bson:"location"`
	Tags        []string  `json:"tags" bson:"tags"`
	Address     string    `json:"address" bson:"address"`
	Images      []string  `json:"images,omitempty" bson:"images,omitempty"`
	RatingAvg   float64   `json:"rating_avg" bson:"rating_avg"`
	RatingCount int       `json:"rating_count" bson:"rating_count"`
	CreatedAt   time.Time `json:"created_at,omitzero" bson:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitzero" bson:"updated_at,omitempty"`
}

// POIWithDistance is a POI annotated with its distance in meters from the
// point a query was made against.
type POIWithDistance struct {
	POI
	Distance float64 `json:"distance"`
}

type GeoPoint struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates"`
}

// NewGeoPoint builds a GeoJSON point. Note the GeoJSON lon, lat order.
func NewGeoPoint(lat, lon float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: []float64{lon, lat}}
}

func (g GeoPoint) Lat() float64 {
	if len(g.Coordinates) < 2 {
		return 0
	}
	return g.Coordinates[1]
}

func (g GeoPoint) Lon() float64 {
	if len(g.Coordinates) < 2 {
		return 0
	}
	return g.Coordinates[0]
}

// Valid reports whether the point carries a lon, lat pair.
func (g GeoPoint) Valid() bool {
	return len(g.Coordinates) == 2
}

type TagCount struct {
	Tag   string `json:"tag" bson:"_id"`
	Count int    `json:"count" bson:"count"`
}
