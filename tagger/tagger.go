// Package tagger assigns category tags to POIs from keywords found in their
// name, type and description.
package tagger

import (
	"regexp"
	"slices"
	"strings"

	"sg-explorer/models"
)

// Rule gives Tag to any POI mentioning one of Keywords.
type Rule struct {
	Tag      string
	Keywords []string
}

var DefaultRules = []Rule{
	{Tag: "Museum", Keywords: []string{"museum", "gallery", "exhibition", "art science"}},
	{Tag: "Nature", Keywords: []string{"nature", "reserve", "forest", "wetland", "garden", "gardens", "trail", "mangrove"}},
	{Tag: "Park", Keywords: []string{"park", "playground", "reservoir"}},
	{Tag: "Food", Keywords: []string{"hawker", "food", "restaurant", "cafe", "eatery", "market", "kopitiam"}},
	{Tag: "Shopping", Keywords: []string{"mall", "shopping", "boutique", "orchard road", "bazaar"}},
	{Tag: "Heritage", Keywords: []string{"heritage", "historic", "colonial", "conservation", "chinatown", "kampong", "little india"}},
	{Tag: "Religious", Keywords: []string{"temple", "mosque", "church", "cathedral", "shrine"}},
	{Tag: "Nightlife", Keywords: []string{"bar", "club", "night", "rooftop", "pub"}},
	{Tag: "Family", Keywords: []string{"zoo", "aquarium", "family", "kids", "theme park", "safari"}},
	{Tag: "Beach", Keywords: []string{"beach", "island", "coast", "sentosa"}},
	{Tag: "Viewpoint", Keywords: []string{"view", "observation", "skyline", "lookout", "hill"}},
}

type Tagger struct {
	rules []compiledRule
}

type compiledRule struct {
	tag string
	re  *regexp.Regexp
}

// New compiles rules into a Tagger. Keywords match as whole words,
// case-insensitively.
func New(rules []Rule) *Tagger {
	t := &Tagger{}
	for _, r := range rules {
		if len(r.Keywords) == 0 {
			continue
		}
		quoted := make([]string, len(r.Keywords))
		for i, kw := range r.Keywords {
			quoted[i] = regexp.QuoteMeta(strings.ToLower(kw))
		}
		re := regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
		t.rules = append(t.rules, compiledRule{tag: r.Tag, re: re})
	}
	return t
}

// Suggest returns the tags whose keywords occur in the POI's text.
func (t *Tagger) Suggest(poi models.POI) []string {
	text := strings.ToLower(strings.Join([]string{poi.Name, poi.Type, poi.Description}, " "))
	var tags []string
	for _, r := range t.rules {
		if r.re.MatchString(text) {
			tags = append(tags, r.tag)
		}
	}
	return tags
}

// Apply merges suggested tags into the POI's existing ones. The result is
// sorted and de-duplicated case-insensitively, keeping the first spelling
// seen. It reports whether the tag set changed.
func (t *Tagger) Apply(poi *models.POI) bool {
	merged := Merge(poi.Tags, t.Suggest(*poi))
	if slices.Equal(merged, poi.Tags) {
		return false
	}
	poi.Tags = merged
	return true
}

// Merge unions tag lists case-insensitively and sorts the result.
func Merge(lists ...[]string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, list := range lists {
		for _, tag := range list {
			tag = strings.TrimSpace(tag)
			key := strings.ToLower(tag)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, tag)
		}
	}
	slices.SortFunc(out, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	return out
}
