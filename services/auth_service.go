package services

import (
	"context"
	"net/http"
	"sg-explorer/logging"
	"sg-explorer/models"
	"sg-explorer/utils/errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// Register creates a new user and returns its public id
func (s *UserService) Register(ctx context.Context, username, email, password string) (string, error) {
	// Hash password
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "HASH_ERROR", "failed to hash password", http.StatusInternalServerError)
	}

	user := models.User{
		PublicID:     uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: string(passwordHash),
		Role:         models.RoleUser,
	}

	if _, err := s.collection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", errors.ErrConflict.WithDetails("username or email already registered")
		}
		return "", errors.Wrap(err, "DB_ERROR", "failed to create user in database", http.StatusInternalServerError)
	}

	logging.Ctx(ctx).Info().Str("user", user.PublicID).Str("username", username).Msg("Registered user")
	return user.PublicID, nil
}

var errInvalidCredentials = errors.NewAPIError("INVALID_CREDENTIALS", "Invalid username or password", http.StatusUnauthorized)

// Login authenticates a user and returns a JWT
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	var user models.User
	err := s.collection.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return "", errInvalidCredentials
	}
	if err != nil {
		return "", errors.Wrap(err, "DB_ERROR", "Failed to load user", http.StatusInternalServerError)
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", errInvalidCredentials
	}

	tokenString, err := s.issueToken(user, time.Now())
	if err != nil {
		return "", err
	}

	s.cacheUser(ctx, user)
	return tokenString, nil
}

func (s *UserService) issueToken(user models.User, now time.Time) (string, error) {
	role := user.Role
	if role == "" {
		role = models.RoleUser
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userID":   user.PublicID,
		"username": user.Username,
		"role":     role,
		"iat":      now.Unix(),
		"exp":      now.Add(s.tokenTTL).Unix(),
	})
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", errors.Wrap(err, "JWT_ERROR", "Failed to generate token", http.StatusInternalServerError)
	}
	return tokenString, nil
}

// PromoteToAdmin grants the admin role; used by the CLI.
func (s *UserService) PromoteToAdmin(ctx context.Context, username string) error {
	res, err := s.collection.UpdateOne(ctx, bson.M{"username": username}, bson.M{"$set": bson.M{"role": models.RoleAdmin}})
	if err != nil {
		return errors.Wrap(err, "DB_ERROR", "Failed to update role", http.StatusInternalServerError)
	}
	if res.MatchedCount == 0 {
		return errors.ErrNotFound.WithDetails("user %s not found", username)
	}
	var user models.User
	if err := s.collection.FindOne(ctx, bson.M{"username": username}).Decode(&user); err == nil {
		s.cacheUser(ctx, user)
	}
	return nil
}
