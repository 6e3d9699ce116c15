// Package assembler turns extraction results into chat text.
//
// Output uses Telegram's legacy Markdown (*bold*, _italic_). It must stay
// readable when the markers are stripped, see StripEmphasis.
package assembler

import (
	"strings"

	"github.com/dtnitsch/lunch-bot/models"
)

// Texts holds the fixed strings of one locale.
type Texts struct {
	FetchFailed string
	ParseFailed string
	Empty       string
	Vegetarian  string
	Header      string
	SignOff     string
}

var locales = map[string]Texts{
	"en": {
		FetchFailed: "could not reach source",
		ParseFailed: "today's section was not found",
		Empty:       "no dishes found for today",
		Vegetarian:  "Veg:",
		Header:      "LUNCH",
		SignOff:     "Enjoy your meal!",
	},
	"sv": {
		FetchFailed: "kunde inte nå källan",
		ParseFailed: "dagens meny hittades inte",
		Empty:       "inga rätter hittades för idag",
		Vegetarian:  "Vegetariskt:",
		Header:      "LUNCH",
		SignOff:     "Smaklig måltid!",
	},
}

// TextsFor returns the strings for locale, falling back to Swedish.
func TextsFor(locale string) Texts {
	if t, ok := locales[strings.ToLower(locale)]; ok {
		return t
	}
	return locales["sv"]
}

// Placeholder returns the fixed text shown instead of a menu. It is
// never empty.
func Placeholder(status models.Status, locale string) string {
	t := TextsFor(locale)
	switch status {
	case models.StatusFetchFailed:
		return t.FetchFailed
	case models.StatusParseFailed:
		return t.ParseFailed
	default:
		return t.Empty
	}
}

// Assemble renders one restaurant's dishes, vegetarian line last after a
// blank line, or a placeholder when there is nothing to show.
func Assemble(r models.MenuResult, locale string) string {
	if !r.OK() {
		return Placeholder(r.Status, locale)
	}

	var lines []string
	for _, d := range r.Dishes {
		lines = append(lines, "• "+EscapeMarkdown(d))
	}
	if r.Vegetarian != "" {
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, "_"+TextsFor(locale).Vegetarian+"_ "+EscapeMarkdown(r.Vegetarian))
	}
	return strings.Join(lines, "\n")
}

// FormatReport renders the full daily message.
func FormatReport(report *models.DailyReport, locale string) string {
	t := TextsFor(locale)

	var sb strings.Builder
	sb.WriteString("🍴 *")
	sb.WriteString(t.Header)
	sb.WriteString(" ")
	sb.WriteString(EscapeMarkdown(strings.ToUpper(report.Day)))
	sb.WriteString("* 🍴\n\n")

	for _, r := range report.Restaurants {
		sb.WriteString("📍 *")
		sb.WriteString(EscapeMarkdown(r.Name))
		sb.WriteString("*\n")
		sb.WriteString(r.Text)
		sb.WriteString("\n\n")
	}
	sb.WriteString(t.SignOff)
	return sb.String()
}

const markdownSpecial = "_*`["

// EscapeMarkdown escapes characters that legacy Markdown treats as markup.
func EscapeMarkdown(s string) string {
	if !strings.ContainsAny(s, markdownSpecial) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s) + 4)
	for _, r := range s {
		if strings.ContainsRune(markdownSpecial, r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// StripEmphasis removes emphasis markers and unescapes escaped characters,
// giving plain text for clients without Markdown support.
func StripEmphasis(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			sb.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '*' || r == '_':
		default:
			sb.WriteRune(r)
		}
	}
	if escaped {
		sb.WriteByte('\\')
	}
	return sb.String()
}
