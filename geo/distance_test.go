package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	marinaBaySands := Point{Lat: 1.2834, Lon: 103.8607}
	gardensByTheBay := Point{Lat: 1.2816, Lon: 103.8636}
	changiAirport := Point{Lat: 1.3644, Lon: 103.9915}

	tests := []struct {
		name      string
		a, b      Point
		want      float64
		tolerance float64
	}{
		{name: "same point", a: marinaBaySands, b: marinaBaySands, want: 0, tolerance: 0.001},
		{name: "neighbours", a: marinaBaySands, b: gardensByTheBay, want: 380, tolerance: 20},
		{name: "across the island", a: marinaBaySands, b: changiAirport, want: 17100, tolerance: 300},
		{name: "one degree of latitude", a: Point{0, 0}, b: Point{1, 0}, want: 111195, tolerance: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.a, tt.b)
			assert.InDelta(t, tt.want, got, tt.tolerance)
			assert.InDelta(t, got, Distance(tt.b, tt.a), 1e-6, "distance must be symmetric")
		})
	}
}

func TestValidCoordinates(t *testing.T) {
	assert.True(t, ValidCoordinates(1.3521, 103.8198))
	assert.True(t, ValidCoordinates(-90, 180))
	assert.False(t, ValidCoordinates(91, 0))
	assert.False(t, ValidCoordinates(0, -180.5))
	assert.False(t, ValidCoordinates(math.NaN(), 0))
}
