package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/lunch-bot/models"
	"github.com/dtnitsch/lunch-bot/pkg/classifier"
	"github.com/dtnitsch/lunch-bot/pkg/weekday"
)

// HeaderScan finds today's heading in the flow of text and captures lines
// until the next day's heading.
type HeaderScan struct {
	c          *classifier.Classifier
	markerTags map[string]bool
}

// NewHeaderScan builds a HeaderScan. markerTags restricts which elements may
// carry a day marker; empty allows any.
func NewHeaderScan(c *classifier.Classifier, markerTags []string) *HeaderScan {
	h := &HeaderScan{c: c}
	if len(markerTags) > 0 {
		h.markerTags = make(map[string]bool, len(markerTags))
		for _, t := range markerTags {
			h.markerTags[strings.ToLower(strings.TrimSpace(t))] = true
		}
	}
	return h
}

func (h *HeaderScan) Name() string { return string(StrategyHeader) }

func (h *HeaderScan) Extract(doc *models.Document, day weekday.Day) models.MenuResult {
	root, err := goquery.NewDocumentFromReader(bytes.NewReader(doc.Content))
	if err != nil {
		return parseFailed(h.Name(), fmt.Errorf("failed to parse HTML: %w", err))
	}

	sel := root.Find("body")
	if sel.Length() == 0 {
		sel = root.Selection
	}

	seg := h.c.NewSegment(day.Index)
	coll := classifier.NewCollector()
	walkSplit(sel, h.splitMarker, func(u Unit) bool {
		coll.Add(seg.Feed(u.Text, h.markerAllowed(u)))
		return !seg.Done()
	})

	if !seg.Found() {
		return parseFailed(h.Name(), fmt.Errorf("no %q heading", h.c.DayName(day.Index)))
	}
	return finish(h.Name(), coll)
}

// splitMarker detaches an inline day name from the dish text that follows it.
func (h *HeaderScan) splitMarker(tag, text string) bool {
	if h.markerTags != nil && !h.markerTags[tag] {
		return false
	}
	_, ok := h.c.DayOf(text)
	return ok
}

func (h *HeaderScan) markerAllowed(u Unit) bool {
	return h.markerTags == nil || u.HasTag(h.markerTags)
}
