package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPagingNormalize(t *testing.T) {
	tests := []struct {
		in, want Paging
	}{
		{Paging{}, Paging{Limit: 20}},
		{Paging{Limit: 5, Offset: 10}, Paging{Limit: 5, Offset: 10}},
		{Paging{Limit: 1000}, Paging{Limit: 100}},
		{Paging{Limit: -1, Offset: -5}, Paging{Limit: 20}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.in.Normalize())
	}
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "poi:abc", poiKey("abc"))
	assert.Equal(t, "user:u-1", userKey("u-1"))
	assert.Equal(t, "survey:u-1:weights", weightsKey("u-1"))
}
