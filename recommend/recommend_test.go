package recommend

import (
	"testing"

	"sg-explorer/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func poi(id string, tags ...string) models.POI {
	return models.POI{ID: id, Name: "POI " + id, Tags: tags}
}

func tagIndex(pois ...models.POI) func(string) ([]string, bool) {
	byID := map[string][]string{}
	for _, p := range pois {
		byID[p.ID] = p.Tags
	}
	return func(id string) ([]string, bool) {
		tags, ok := byID[id]
		return tags, ok
	}
}

func ids(recs []Recommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.POI.ID
	}
	return out
}

func TestBuildWeights(t *testing.T) {
	museum := poi("m", "Museum", "Heritage")
	park := poi("p", "Nature", "park")
	gallery := poi("g", "museum", " Art ")

	swipes := []models.Swipe{
		{POIID: "m", Liked: true},
		{POIID: "g", Liked: true},
		{POIID: "p", Liked: false},
		{POIID: "deleted", Liked: true},
	}

	w := BuildWeights(swipes, tagIndex(museum, park, gallery))

	assert.Equal(t, Weights{
		"museum":   2,
		"heritage": 1,
		"art":      1,
		"nature":   -1,
		"park":     -1,
	}, w)
}

func TestBuildWeightsCountsDuplicateTagsOnce(t *testing.T) {
	p := poi("x", "Food", "food", "FOOD")

	w := BuildWeights([]models.Swipe{{POIID: "x", Liked: true}}, tagIndex(p))

	assert.Equal(t, Weights{"food": 1}, w)
}

func TestPreference(t *testing.T) {
	w := Weights{"museum": 2, "nature": -1}

	assert.Equal(t, 2.0, w.Preference([]string{"Museum"}))
	assert.Equal(t, 1.0, w.Preference([]string{"museum", "nature", "unknown"}))
	assert.Zero(t, w.Preference(nil))
}

func TestTop(t *testing.T) {
	w := Weights{"museum": 2, "food": 2, "nature": -1, "art": 1}

	assert.Equal(t, []string{"food", "museum", "art"}, w.Top(10))
	assert.Equal(t, []string{"food"}, w.Top(1))
}

func TestRankPrefersLikedTags(t *testing.T) {
	candidates := []Candidate{
		{POI: poi("near-park", "Nature"), Distance: 100},
		{POI: poi("far-museum", "Museum"), Distance: 1500},
		{POI: poi("mid-food", "Food"), Distance: 800},
	}
	w := Weights{"museum": 1, "nature": -1}

	res := Rank(candidates, w, Options{Radius: 2000, MinResults: 1})

	assert.Equal(t, []string{"far-museum", "mid-food", "near-park"}, ids(res.Recommendations))
	assert.Equal(t, 2000.0, res.Radius)
	assert.InDelta(t, 1+(1-1500.0/2000), res.Recommendations[0].Score, 1e-9)
	assert.Equal(t, 1.0, res.Recommendations[0].Preference)
}

func TestRankWithoutPreferencesIsProximity(t *testing.T) {
	candidates := []Candidate{
		{POI: poi("c"), Distance: 900},
		{POI: poi("a"), Distance: 100},
		{POI: poi("b"), Distance: 500},
	}

	res := Rank(candidates, nil, Options{Radius: 1000, MinResults: 1})

	assert.Equal(t, []string{"a", "b", "c"}, ids(res.Recommendations))
}

func TestRankExcludesSeen(t *testing.T) {
	candidates := []Candidate{
		{POI: poi("a"), Distance: 100},
		{POI: poi("b"), Distance: 200},
	}

	res := Rank(candidates, nil, Options{
		MinResults: 1,
		Exclude:    map[string]struct{}{"a": {}},
	})

	assert.Equal(t, []string{"b"}, ids(res.Recommendations))
}

func TestRankExpandsRadius(t *testing.T) {
	candidates := []Candidate{
		{POI: poi("a"), Distance: 500},
		{POI: poi("b"), Distance: 3000},
		{POI: poi("c"), Distance: 7000},
		{POI: poi("d"), Distance: 30000},
	}

	res := Rank(candidates, nil, Options{Radius: 1000, MaxRadius: 10000, MinResults: 3})

	// 1000 -> 2000 -> 4000 -> 8000
	assert.Equal(t, 8000.0, res.Radius)
	assert.Equal(t, []string{"a", "b", "c"}, ids(res.Recommendations))
}

func TestRankRadiusCappedAtMax(t *testing.T) {
	candidates := []Candidate{
		{POI: poi("a"), Distance: 500},
		{POI: poi("far"), Distance: 5500},
	}

	res := Rank(candidates, nil, Options{Radius: 1000, MaxRadius: 5000, MinResults: 5})

	assert.Equal(t, 5000.0, res.Radius)
	assert.Equal(t, []string{"a"}, ids(res.Recommendations))
}

func TestRankLimitAndTieBreak(t *testing.T) {
	candidates := []Candidate{
		{POI: models.POI{ID: "2", Name: "Bukit Timah"}, Distance: 400},
		{POI: models.POI{ID: "1", Name: "Apple Store"}, Distance: 400},
		{POI: models.POI{ID: "3", Name: "Chinatown"}, Distance: 400},
	}

	res := Rank(candidates, nil, Options{Radius: 1000, MinResults: 1, Limit: 2})

	require.Len(t, res.Recommendations, 2)
	assert.Equal(t, []string{"1", "2"}, ids(res.Recommendations))
}

func TestOptionsWithDefaults(t *testing.T) {
	o := Options{}.WithDefaults()

	assert.Equal(t, DefaultRadius, o.Radius)
	assert.Equal(t, DefaultMaxRadius, o.MaxRadius)
	assert.Equal(t, DefaultMinResults, o.MinResults)
	assert.Equal(t, DefaultLimit, o.Limit)
	assert.Equal(t, DefaultProximityWeight, o.ProximityWeight)

	o = Options{Radius: 50000}.WithDefaults()
	assert.Equal(t, 50000.0, o.MaxRadius, "max radius never below radius")
}
