package models

import "time"

type Review struct {
	ID        string    `json:"id" bson:"_id,omitempty"`
	POIID     string    `json:"poi_id" bson:"poi_id"`
	UserID    string    `json:"user_id" bson:"user_id"`
	Username  string    `json:"username" bson:"username"`
	Rating    int       `json:"rating" bson:"rating"`
	Comment   string    `json:"comment" bson:"comment"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// RatingSummary is the aggregate written back onto a POI.
type RatingSummary struct {
	Average float64 `json:"average" bson:"avg"`
	Count   int     `json:"count" bson:"count"`
}
