package models

import "time"

// Swipe records a like or dislike of a POI during the Surprise Me survey.
type Swipe struct {
	UserID    string    `json:"user_id" bson:"user_id"`
	POIID     string    `json:"poi_id" bson:"poi_id"`
	Liked     bool      `json:"liked" bson:"liked"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
