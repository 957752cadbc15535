package models

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           string   `json:"id" bson:"_id,omitempty"`
	PublicID     string   `json:"public_id" bson:"public_id"`
	Username     string   `json:"username" bson:"username"`
	Email        string   `json:"email" bson:"email"`
	PasswordHash string   `json:"-" bson:"password_hash"`
	Role         string   `json:"role" bson:"role"`
	LastLocation GeoPoint `json:"last_location" bson:"last_location"`
}

// HasLocation is false until the user has pinged a location at least once.
func (u User) HasLocation() bool {
	return u.LastLocation.Valid() && (u.LastLocation.Lat() != 0 || u.LastLocation.Lon() != 0)
}
