package validation

import (
	"testing"

	"sg-explorer/utils/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingRequest struct {
	Lat    float64 `json:"lat" validate:"latitude"`
	Lon    float64 `json:"lon" validate:"longitude"`
	Rating int     `json:"rating" validate:"min=1,max=5"`
	Email  string  `json:"email" validate:"required,email"`
}

func TestStructValid(t *testing.T) {
	err := Struct(pingRequest{Lat: 1.35, Lon: 103.8, Rating: 4, Email: "a@b.sg"})

	assert.NoError(t, err)
}

func TestStructReportsJSONNames(t *testing.T) {
	err := Struct(pingRequest{Lat: 123, Lon: 103.8, Rating: 9})

	require.Error(t, err)
	apiErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, "INVALID_INPUT", apiErr.Code)
	assert.Contains(t, apiErr.Details, "lat must be a valid latitude")
	assert.Contains(t, apiErr.Details, "rating must be at most 5")
	assert.Contains(t, apiErr.Details, "email is required")
}
