// Package weekday resolves the serving day the menu is built for.
package weekday

import (
	"strings"
	"time"
)

var names = map[string][]string{
	"sv": {"Måndag", "Tisdag", "Onsdag", "Torsdag", "Fredag", "Lördag", "Söndag"},
	"en": {"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"},
}

// Day identifies the target day of a run.
type Day struct {
	Index int // 0=Monday..6=Sunday
	Name  string
	Date  time.Time
}

// IsServingDay reports whether lunch is served on this day.
func (d Day) IsServingDay() bool {
	return IsServingDay(d.Index)
}

// Names returns the seven weekday names for a locale, Monday first.
// Unknown locales fall back to Swedish.
func Names(locale string) []string {
	n, ok := names[strings.ToLower(locale)]
	if !ok {
		n = names["sv"]
	}
	out := make([]string, len(n))
	copy(out, n)
	return out
}

// CurrentDayIndex returns 0 for Monday through 6 for Sunday.
func CurrentDayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// CurrentDayName returns the localized name of t's weekday.
func CurrentDayName(t time.Time, locale string) string {
	return Names(locale)[CurrentDayIndex(t)]
}

// IsServingDay is false on Saturday (5) and Sunday (6).
func IsServingDay(index int) bool {
	return index >= 0 && index < 5
}

// Resolve builds the Day for t.
func Resolve(t time.Time, locale string) Day {
	y, m, d := t.Date()
	return Day{
		Index: CurrentDayIndex(t),
		Name:  CurrentDayName(t, locale),
		Date:  time.Date(y, m, d, 0, 0, 0, 0, t.Location()),
	}
}

// SameDate compares only the calendar date of a and b.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Lookup finds a weekday index by localized name, ignoring case.
func Lookup(name, locale string) (int, bool) {
	name = strings.TrimSpace(name)
	for i, n := range Names(locale) {
		if strings.EqualFold(n, name) {
			return i, true
		}
	}
	return -1, false
}
