// Package recommend ranks POIs for a user from two signals: how close each
// POI is to a reference point, and tag weights accumulated from the likes
// and dislikes the user gave during the Surprise Me survey.
//
// Weights are net counts: every liked POI adds one to each of its tags and
// every disliked POI subtracts one. A candidate's preference is the sum of
// the weights of its tags, and its final score adds a proximity bonus in
// [0, ProximityWeight] that falls linearly to zero at the search radius.
//
// When too few candidates fall inside the requested radius, the radius is
// doubled until MinResults are found or MaxRadius is reached.
package recommend

import (
	"cmp"
	"slices"
	"strings"

	"sg-explorer/models"
)

const (
	DefaultRadius          = 2000.0
	DefaultMaxRadius       = 16000.0
	DefaultMinResults      = 5
	DefaultLimit           = 10
	DefaultProximityWeight = 1.0
)

// Weights maps a normalised tag to its accumulated preference.
type Weights map[string]float64

// NormalizeTag lower-cases and trims a tag so "Museum " and "museum" count
// as the same preference.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// BuildWeights folds swipes into tag weights. tagsOf resolves a POI id to
// its tags; swipes for POIs it does not know are skipped.
func BuildWeights(swipes []models.Swipe, tagsOf func(poiID string) ([]string, bool)) Weights {
	w := Weights{}
	for _, s := range swipes {
		tags, ok := tagsOf(s.POIID)
		if !ok {
			continue
		}
		delta := -1.0
		if s.Liked {
			delta = 1.0
		}
		for _, tag := range uniqueTags(tags) {
			w[tag] += delta
		}
	}
	return w
}

// Preference is the sum of the weights of the distinct tags given.
func (w Weights) Preference(tags []string) float64 {
	var total float64
	for _, tag := range uniqueTags(tags) {
		total += w[tag]
	}
	return total
}

// Top returns the n highest-weighted tags, positive weights only.
func (w Weights) Top(n int) []string {
	tags := make([]string, 0, len(w))
	for tag, weight := range w {
		if weight > 0 {
			tags = append(tags, tag)
		}
	}
	slices.SortFunc(tags, func(a, b string) int {
		if c := cmp.Compare(w[b], w[a]); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	if n >= 0 && len(tags) > n {
		tags = tags[:n]
	}
	return tags
}

func uniqueTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		n := NormalizeTag(t)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Candidate is a POI with its distance in meters from the reference point.
type Candidate struct {
	POI      models.POI
	Distance float64
}

type Options struct {
	Radius          float64
	MaxRadius       float64
	MinResults      int
	Limit           int
	ProximityWeight float64
	// Exclude holds POI ids that must never be returned, typically the ones
	// the user has already swiped on.
	Exclude map[string]struct{}
}

// WithDefaults fills zero or negative fields with the package defaults.
func (o Options) WithDefaults() Options {
	if o.Radius <= 0 {
		o.Radius = DefaultRadius
	}
	if o.MaxRadius <= 0 {
		o.MaxRadius = DefaultMaxRadius
	}
	if o.MaxRadius < o.Radius {
		o.MaxRadius = o.Radius
	}
	if o.MinResults <= 0 {
		o.MinResults = DefaultMinResults
	}
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.ProximityWeight <= 0 {
		o.ProximityWeight = DefaultProximityWeight
	}
	return o
}

type Recommendation struct {
	POI        models.POI `json:"poi"`
	Distance   float64    `json:"distance"`
	Preference float64    `json:"preference"`
	Score      float64    `json:"score"`
}

type Result struct {
	Recommendations []Recommendation `json:"recommendations"`
	// Radius is the radius the results were finally taken from, which is
	// larger than requested when the search had to widen.
	Radius float64 `json:"radius"`
}

// Rank filters candidates by radius, scores them against w and returns the
// best opts.Limit of them. opts is passed through WithDefaults.
func Rank(candidates []Candidate, w Weights, opts Options) Result {
	opts = opts.WithDefaults()

	pool := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, skip := opts.Exclude[c.POI.ID]; skip {
			continue
		}
		pool = append(pool, c)
	}

	radius := opts.Radius
	inRange := withinRadius(pool, radius)
	for len(inRange) < opts.MinResults && radius < opts.MaxRadius {
		radius = min(radius*2, opts.MaxRadius)
		inRange = withinRadius(pool, radius)
	}

	recs := make([]Recommendation, 0, len(inRange))
	for _, c := range inRange {
		pref := w.Preference(c.POI.Tags)
		proximity := 1 - c.Distance/radius
		recs = append(recs, Recommendation{
			POI:        c.POI,
			Distance:   c.Distance,
			Preference: pref,
			Score:      pref + opts.ProximityWeight*proximity,
		})
	}

	slices.SortFunc(recs, func(a, b Recommendation) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return strings.Compare(a.POI.Name, b.POI.Name)
	})

	if len(recs) > opts.Limit {
		recs = recs[:opts.Limit]
	}
	return Result{Recommendations: recs, Radius: radius}
}

func withinRadius(pool []Candidate, radius float64) []Candidate {
	out := make([]Candidate, 0, len(pool))
	for _, c := range pool {
		if c.Distance <= radius {
			out = append(out, c)
		}
	}
	return out
}
