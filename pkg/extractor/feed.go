package extractor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dtnitsch/lunch-bot/models"
	"github.com/dtnitsch/lunch-bot/pkg/classifier"
	"github.com/dtnitsch/lunch-bot/pkg/weekday"
)

// FeedEntry is one day of a structured menu feed.
type FeedEntry struct {
	Date  string     `json:"date"`
	Items []FeedItem `json:"items"`
}

// FeedItem is one menu record.
type FeedItem struct {
	Description string `json:"description"`
	Category    string `json:"category"`
}

type feedEnvelope struct {
	Days []FeedEntry `json:"days"`
}

var feedDateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// FeedDecoded picks today's entry out of a date-keyed JSON feed.
type FeedDecoded struct {
	c *classifier.Classifier
}

func NewFeedDecoded(c *classifier.Classifier) *FeedDecoded {
	return &FeedDecoded{c: c}
}

func (f *FeedDecoded) Name() string { return string(StrategyFeed) }

func (f *FeedDecoded) Extract(doc *models.Document, day weekday.Day) models.MenuResult {
	entries, err := DecodeFeed(doc.Content)
	if err != nil {
		return parseFailed(f.Name(), err)
	}

	var today *FeedEntry
	for i := range entries {
		d, ok := ParseFeedDate(entries[i].Date)
		if ok && weekday.SameDate(d, day.Date) {
			today = &entries[i]
			break
		}
	}
	if today == nil {
		return parseFailed(f.Name(), fmt.Errorf("no feed entry dated %s", day.Date.Format("2006-01-02")))
	}

	coll := classifier.NewCollector()
	for _, item := range today.Items {
		desc := strings.Join(strings.Fields(item.Description), " ")
		if desc == "" {
			continue
		}
		if f.c.IsVegetarian(item.Category, desc) {
			coll.Add(classifier.Line{Kind: classifier.Vegetarian, Text: f.c.StripVegetarianLabel(desc), Day: -1})
			continue
		}
		coll.Add(classifier.Line{Kind: classifier.Dish, Text: desc, Day: -1})
	}
	return finish(f.Name(), coll)
}

// DecodeFeed accepts either a bare array of entries or {"days": [...]}.
func DecodeFeed(data []byte) ([]FeedEntry, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty feed")
	}
	if data[0] == '[' {
		var entries []FeedEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("failed to decode feed: %w", err)
		}
		return entries, nil
	}
	var env feedEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode feed: %w", err)
	}
	return env.Days, nil
}

// ParseFeedDate reads the date of an entry; only the date component matters.
func ParseFeedDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range feedDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
