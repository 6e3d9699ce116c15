package classifier

import "github.com/dtnitsch/lunch-bot/pkg/weekday"

// DefaultMinDishLength is the shortest text, in runes, accepted as a dish.
const DefaultMinDishLength = 5

// Rules is the one rule set every extraction strategy shares.
// All keyword matching is case-insensitive.
type Rules struct {
	DayNames      []string // Monday first
	TodayBadges   []string
	MinDishLength int

	NoisePrefixes   []string
	NoiseSubstrings []string
	NoisePatterns   []string // regular expressions, matched case-insensitively

	// Terminators close an open segment in a header scan.
	Terminators []string

	VegetarianMarkers []string
}

// DefaultRules returns the rule set for a locale. Keyword lists carry both
// Swedish and English entries since the sites mix them freely.
func DefaultRules(locale string) Rules {
	return Rules{
		DayNames:      weekday.Names(locale),
		TodayBadges:   []string{"idag", "i dag", "today"},
		MinDishLength: DefaultMinDishLength,
		NoisePrefixes: []string{
			"dagens lunch", "dagens rätt", "dagens:",
			"daily special", "dish of the day", "today's special",
			"veckans", "week ", "vecka ",
			"lunchmeny", "lunch menu", "meny:", "menu:",
			"klimatpåverkan", "climate impact", "co2e",
			"allergi", "allergen",
			"ingår i priset", "included in the price",
		},
		NoiseSubstrings: []string{
			"salladsbuffé", "salladsbuffe", "salad bar", "salladsbar",
			"betala per vikt", "pay by weight", "vägs i kassan",
			"öppettider", "opening hours",
			"lunch serveras", "served between",
		},
		NoisePatterns: []string{
			`^(?:pris|price)\b[\s:]*(?:fr\.?\s*|från\s*|from\s*)?\d`,
			`^\d+(?:[.,]\d+)?\s*(?:kr|sek|:-|€|eur)\.?$`,
		},
		Terminators: []string{
			"öppettider", "opening hours", "vi har öppet", "we are open",
		},
		VegetarianMarkers: []string{
			"veg/", "veg:", "vegan", "vegetari", "vego", "veggo", "veggie",
			"grönt", "växtbaserad", "plant-based", "plant based",
		},
	}
}

// WithExtraNoise returns a copy of r with more noise substrings.
func (r Rules) WithExtraNoise(extra ...string) Rules {
	out := r
	out.NoiseSubstrings = append(append([]string{}, r.NoiseSubstrings...), extra...)
	return out
}
