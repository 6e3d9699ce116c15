package extractor

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/lunch-bot/models"
	"github.com/dtnitsch/lunch-bot/pkg/classifier"
	"github.com/dtnitsch/lunch-bot/pkg/weekday"
)

// CardLookup reads the per-day container tagged with a numeric day
// identifier (1=Monday..5=Friday). The container bounds the day, so no
// day-marker detection runs inside it.
type CardLookup struct {
	c    *classifier.Classifier
	attr string
	list string
}

// NewCardLookup builds a CardLookup; empty arguments use the defaults.
func NewCardLookup(c *classifier.Classifier, attr, listSelector string) *CardLookup {
	if attr == "" {
		attr = DefaultCardAttr
	}
	if listSelector == "" {
		listSelector = DefaultListSelector
	}
	return &CardLookup{c: c, attr: attr, list: listSelector}
}

func (l *CardLookup) Name() string { return string(StrategyCard) }

func (l *CardLookup) Extract(doc *models.Document, day weekday.Day) models.MenuResult {
	root, err := goquery.NewDocumentFromReader(bytes.NewReader(doc.Content))
	if err != nil {
		return parseFailed(l.Name(), fmt.Errorf("failed to parse HTML: %w", err))
	}

	id := strconv.Itoa(day.Index + 1)
	card := root.Find(fmt.Sprintf("[%s=%q]", l.attr, id)).First()
	if card.Length() == 0 {
		return parseFailed(l.Name(), fmt.Errorf("no card with %s=%s", l.attr, id))
	}

	list := card.Find(l.list).First()
	if list.Length() == 0 {
		return parseFailed(l.Name(), fmt.Errorf("card %s=%s has no %q", l.attr, id, l.list))
	}

	coll := classifier.NewCollector()
	Walk(list, func(u Unit) bool {
		coll.Add(l.c.Content(u.Text, day.Index))
		return true
	})
	return finish(l.Name(), coll)
}
