// Package classifier decides what a single line of menu text is: a day
// marker, noise, an ordinary dish or a vegetarian alternative.
package classifier

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Kind is the classification of one text unit.
type Kind int

const (
	Noise Kind = iota
	DayMarker
	Dish
	Vegetarian
)

func (k Kind) String() string {
	switch k {
	case DayMarker:
		return "day-marker"
	case Dish:
		return "dish"
	case Vegetarian:
		return "vegetarian-dish"
	default:
		return "noise"
	}
}

// Line is one classified text unit. Day is the weekday index of a day
// marker and -1 otherwise. Label marks a noise line that only announces the
// vegetarian dish, like "Vegetariskt:".
type Line struct {
	Kind  Kind
	Text  string
	Day   int
	Label bool
}

// dateFragment matches what may trail a weekday name in a heading:
// a colon, "19/10", "19 okt", "2026-10-19", "(21.10)".
var dateFragment = regexp.MustCompile(`^[\s:.,\-–(]*(?:(?:den\s+)?\d{1,4}(?:[./\-]\d{1,2}(?:[./\-]\d{1,4})?)?(?:\s+[a-zåäöé]{3,10}\.?)?(?:\s+\d{4})?)?[\s:.)]*$`)

// Inline notes trailing a dish: "(allergener: selleri)", "0,4 kg CO2e".
var (
	notePattern    = regexp.MustCompile(`(?i)\s*\([^()]*(?:allergen|allergi|co2|klimat|climate)[^()]*\)`)
	climatePattern = regexp.MustCompile(`(?i)[\s,;|–\-]*(?:klimatpåverkan|climate impact|co2e?)?[\s:]*\d+(?:[.,]\d+)?\s*k?g\s*co2e?\b.*$`)
)

const decoration = "•·◦▪‣●-*–—»>"

// Classifier applies Rules to text units.
type Classifier struct {
	rules     Rules
	days      []string
	badges    []string
	prefixes  []string
	substr    []string
	patterns  []*regexp.Regexp
	terminate []string
	veg       []string
}

// New prepares a Classifier; keyword lists are lower-cased once here.
func New(rules Rules) *Classifier {
	if rules.MinDishLength <= 0 {
		rules.MinDishLength = DefaultMinDishLength
	}
	patterns := make([]*regexp.Regexp, 0, len(rules.NoisePatterns))
	for _, p := range rules.NoisePatterns {
		patterns = append(patterns, regexp.MustCompile(`(?i)`+p))
	}
	return &Classifier{
		rules:     rules,
		patterns:  patterns,
		days:      lowerAll(rules.DayNames),
		badges:    lowerAll(rules.TodayBadges),
		prefixes:  lowerAll(rules.NoisePrefixes),
		substr:    lowerAll(rules.NoiseSubstrings),
		terminate: lowerAll(rules.Terminators),
		veg:       lowerAll(rules.VegetarianMarkers),
	}
}

// Rules returns the rule set the classifier was built from.
func (c *Classifier) Rules() Rules {
	return c.rules
}

// DayName returns the configured name for a weekday index.
func (c *Classifier) DayName(index int) string {
	if index < 0 || index >= len(c.rules.DayNames) {
		return ""
	}
	return c.rules.DayNames[index]
}

// Classify runs the full rule chain on text. capturing tells whether a
// segment is currently open; target is the weekday index being extracted.
func (c *Classifier) Classify(text string, target int, capturing bool) Line {
	if day, ok := c.DayOf(text); ok {
		return Line{Kind: DayMarker, Text: TrimDecoration(text), Day: day}
	}
	if !capturing {
		return Line{Kind: Noise, Text: text, Day: -1}
	}
	return c.Content(text, target)
}

// DayOf reports whether text is a weekday heading and which day it names.
func (c *Classifier) DayOf(text string) (int, bool) {
	lower := strings.ToLower(TrimDecoration(text))
	for i, name := range c.days {
		if name == "" || !strings.HasPrefix(lower, name) {
			continue
		}
		if dateFragment.MatchString(lower[len(name):]) {
			return i, true
		}
	}
	return -1, false
}

// Content classifies text as noise, dish or vegetarian dish without any
// day-marker detection.
func (c *Classifier) Content(text string, target int) Line {
	t := TrimDecoration(text)
	noise := Line{Kind: Noise, Text: t, Day: -1}

	lower := strings.ToLower(t)
	for _, p := range c.prefixes {
		if strings.HasPrefix(lower, p) {
			return noise
		}
	}
	if c.isVegLabel(t) {
		noise.Label = true
		return noise
	}

	t = StripNotes(t)
	lower = strings.ToLower(t)
	if utf8.RuneCountInString(t) < c.rules.MinDishLength {
		return noise
	}
	if target >= 0 && target < len(c.days) && lower == c.days[target] {
		return noise
	}
	for _, b := range c.badges {
		if lower == b {
			return noise
		}
	}
	if containsAny(lower, c.substr) {
		return noise
	}
	for _, p := range c.patterns {
		if p.MatchString(t) {
			return noise
		}
	}
	if containsAny(lower, c.veg) {
		return Line{Kind: Vegetarian, Text: c.stripVegLabel(t), Day: -1}
	}
	return Line{Kind: Dish, Text: t, Day: -1}
}

// IsVegetarian reports whether any of the texts carries a vegetarian marker.
func (c *Classifier) IsVegetarian(texts ...string) bool {
	for _, t := range texts {
		if containsAny(strings.ToLower(t), c.veg) {
			return true
		}
	}
	return false
}

// StripVegetarianLabel removes a leading "Veg/vegan:" style label.
func (c *Classifier) StripVegetarianLabel(text string) string {
	return c.stripVegLabel(TrimDecoration(text))
}

// isVegLabel reports a line that is nothing but a vegetarian label.
func (c *Classifier) isVegLabel(t string) bool {
	idx := strings.Index(t, ":")
	if idx <= 0 || strings.TrimSpace(t[idx+1:]) != "" {
		return false
	}
	return containsAny(strings.ToLower(t[:idx+1]), c.veg)
}

func (c *Classifier) stripVegLabel(t string) string {
	idx := strings.Index(t, ":")
	if idx <= 0 {
		return t
	}
	if !containsAny(strings.ToLower(t[:idx+1]), c.veg) {
		return t
	}
	if rest := strings.TrimSpace(t[idx+1:]); rest != "" {
		return rest
	}
	return t
}

// IsTerminator reports whether text ends a day's section, like an
// opening-hours notice.
func (c *Classifier) IsTerminator(text string) bool {
	return containsAny(strings.ToLower(text), c.terminate)
}

// StripNotes removes allergen and climate annotations from a dish line.
func StripNotes(text string) string {
	t := notePattern.ReplaceAllString(text, "")
	t = climatePattern.ReplaceAllString(t, "")
	return strings.TrimSpace(t)
}

// TrimDecoration strips bullet glyphs and leading angle brackets, then
// collapses whitespace.
func TrimDecoration(text string) string {
	t := strings.TrimLeft(strings.TrimSpace(text), decoration+" \t\u00a0")
	return strings.Join(strings.Fields(t), " ")
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
