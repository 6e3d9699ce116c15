// Package extractor isolates today's dishes from a fetched document.
//
// Three strategies share one contract and one classifier: a header-bounded
// scan over rendered text, a lookup of a per-day card container, and
// decoding of a date-keyed JSON feed.
package extractor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dtnitsch/lunch-bot/models"
	"github.com/dtnitsch/lunch-bot/pkg/classifier"
	"github.com/dtnitsch/lunch-bot/pkg/weekday"
)

var (
	// ErrParseFailed means the structural anchor for today was absent.
	ErrParseFailed = errors.New("today's section not found")
	// ErrEmpty means the anchor was found but held no dishes.
	ErrEmpty = errors.New("no dishes found")
)

// Strategy names an extraction variant.
type Strategy string

const (
	StrategyHeader Strategy = "header"
	StrategyCard   Strategy = "card"
	StrategyFeed   Strategy = "feed"
)

// ParseStrategy validates a strategy name from config or flags.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case StrategyHeader, StrategyCard, StrategyFeed:
		return st, nil
	default:
		return "", fmt.Errorf("unknown strategy: %q (want header, card or feed)", s)
	}
}

// Extractor turns one document into a MenuResult for the given day.
// Implementations never return errors; failures are carried in the result.
type Extractor interface {
	Extract(doc *models.Document, day weekday.Day) models.MenuResult
	Name() string
}

// Options tune the markup strategies per site.
type Options struct {
	MarkerTags   []string
	CardAttr     string
	ListSelector string
}

const (
	DefaultCardAttr     = "data-day"
	DefaultListSelector = ".dish-list"
)

// OptionsFor reads extraction options from a restaurant config.
func OptionsFor(r models.Restaurant) Options {
	return Options{
		MarkerTags:   r.MarkerTags,
		CardAttr:     r.CardAttr,
		ListSelector: r.ListSelector,
	}
}

// New builds the extractor for strategy.
func New(strategy Strategy, c *classifier.Classifier, opts Options) (Extractor, error) {
	switch strategy {
	case StrategyHeader:
		return NewHeaderScan(c, opts.MarkerTags), nil
	case StrategyCard:
		return NewCardLookup(c, opts.CardAttr, opts.ListSelector), nil
	case StrategyFeed:
		return NewFeedDecoded(c), nil
	default:
		return nil, fmt.Errorf("unknown strategy: %q", strategy)
	}
}

// Safe runs e and maps a nil document or a panic to parse-failed, so one
// broken page can never take down the whole run.
func Safe(e Extractor, doc *models.Document, day weekday.Day) (res models.MenuResult) {
	defer func() {
		if r := recover(); r != nil {
			res = parseFailed(e.Name(), fmt.Errorf("%s extractor panicked: %v", e.Name(), r))
		}
	}()
	if doc == nil {
		return parseFailed(e.Name(), errors.New("no document"))
	}
	return e.Extract(doc, day)
}

func parseFailed(strategy string, cause error) models.MenuResult {
	return models.MenuResult{
		Strategy: strategy,
		Status:   models.StatusParseFailed,
		Err:      fmt.Errorf("%w: %w", ErrParseFailed, cause),
	}
}

func finish(strategy string, coll *classifier.Collector) models.MenuResult {
	res := models.MenuResult{
		Strategy:   strategy,
		Dishes:     coll.Dishes(),
		Vegetarian: coll.Vegetarian(),
		Status:     models.StatusOK,
	}
	if coll.Len() == 0 {
		res.Status = models.StatusEmpty
		res.Err = ErrEmpty
	}
	return res
}
