package normalize

import (
	"strings"

	"event-radar/ingester/internal/model"
)

// categoryRules is an ordered table: first match wins, so the more
// specific buckets sit above the broad ones (a "comedy night at the
// club" is comedy, not nightlife).
var categoryRules = []struct {
	category model.Category
	keywords []string
}{
	{model.CategoryComedy, []string{"comedy", "stand-up", "standup", "improv", "open mic"}},
	// "tech " keeps "techno" out of this bucket.
	{model.CategoryTech, []string{"tech ", "hackathon", "startup", "coding", "developer", "ai ", "demo day"}},
	{model.CategoryWellness, []string{"yoga", "meditation", "wellness", "fitness", "run club", "breathwork"}},
	{model.CategoryFoodDrink, []string{"food", "dinner", "tasting", "brunch", "wine", "beer", "cocktail", "pop-up kitchen"}},
	{model.CategoryArts, []string{"art ", "gallery", "theater", "theatre", "museum", "exhibit", "film", "poetry"}},
	{model.CategoryMusic, []string{"concert", "dj", "rave", "festival", "live music", "band", "album", "techno", "house music", "hip hop", "jazz"}},
	{model.CategoryNightlife, []string{"party", "nightclub", "club night", "bar crawl", "happy hour", "rooftop"}},
}

// Categorize infers a category from title plus description via
// case-insensitive keyword match. No match means UNTAGGED, never
// empty.
func Categorize(title, description string) model.Category {
	haystack := strings.ToLower(title + " " + description)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(haystack, kw) {
				return rule.category
			}
		}
	}
	return model.CategoryUntagged
}
