// Package report runs the daily pipeline: resolve the day, then fetch and
// extract every restaurant concurrently and assemble the texts.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dtnitsch/lunch-bot/models"
	"github.com/dtnitsch/lunch-bot/pkg/assembler"
	"github.com/dtnitsch/lunch-bot/pkg/classifier"
	"github.com/dtnitsch/lunch-bot/pkg/extractor"
	"github.com/dtnitsch/lunch-bot/pkg/weekday"
)

// ErrNotServingDay is returned on weekends, before anything is fetched.
var ErrNotServingDay = errors.New("not a serving day")

// Fetcher retrieves a source document.
type Fetcher interface {
	Fetch(ctx context.Context, src models.Source, format models.Format) (*models.Document, error)
}

// Observer sees every restaurant's document and result. It is called from
// the per-restaurant goroutines and must be safe for concurrent use. doc is
// nil when the fetch failed.
type Observer func(r models.Restaurant, day weekday.Day, doc *models.Document, res models.MenuResult)

type restaurant struct {
	cfg models.Restaurant
	ext extractor.Extractor
}

type Builder struct {
	restaurants  []restaurant
	fetcher      Fetcher
	locale       string
	location     *time.Location
	fetchTimeout time.Duration
	now          func() time.Time
	observer     Observer
	logger       *slog.Logger
}

// NewBuilder prepares one extractor per restaurant, all sharing a single
// classifier built from the config's rules.
func NewBuilder(cfg *models.Config, f Fetcher, logger *slog.Logger) (*Builder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rules := classifier.DefaultRules(cfg.Locale).WithExtraNoise(cfg.ExtraNoise...)
	c := classifier.New(rules)

	b := &Builder{
		fetcher:      f,
		locale:       cfg.Locale,
		location:     cfg.Location(),
		fetchTimeout: cfg.FetchTimeout,
		now:          time.Now,
		logger:       logger,
	}
	for _, r := range cfg.Restaurants {
		strategy, err := extractor.ParseStrategy(r.Strategy)
		if err != nil {
			return nil, fmt.Errorf("restaurant %q: %w", r.Name, err)
		}
		ext, err := extractor.New(strategy, c, extractor.OptionsFor(r))
		if err != nil {
			return nil, fmt.Errorf("restaurant %q: %w", r.Name, err)
		}
		b.restaurants = append(b.restaurants, restaurant{cfg: r, ext: ext})
	}
	return b, nil
}

// WithClock replaces time.Now.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithObserver registers a hook run after each restaurant is extracted.
func (b *Builder) WithObserver(o Observer) *Builder {
	b.observer = o
	return b
}

// Today resolves the target day in the configured time zone.
func (b *Builder) Today() weekday.Day {
	return weekday.Resolve(b.now().In(b.location), b.locale)
}

// BuildDailyReport fetches and extracts every restaurant. One restaurant's
// failure never affects another's; each ends up with a presentable text.
func (b *Builder) BuildDailyReport(ctx context.Context) (*models.DailyReport, error) {
	day := b.Today()
	if !day.IsServingDay() {
		return nil, fmt.Errorf("%w: %s", ErrNotServingDay, day.Name)
	}

	b.logger.Info("building daily report", "day", day.Name, "date", day.Date.Format("2006-01-02"), "restaurants", len(b.restaurants))

	reports := make([]models.RestaurantReport, len(b.restaurants))
	var wg sync.WaitGroup
	for i, r := range b.restaurants {
		wg.Add(1)
		go func(i int, r restaurant) {
			defer wg.Done()
			reports[i] = b.build(ctx, r, day)
		}(i, r)
	}
	wg.Wait()

	return &models.DailyReport{Day: day.Name, Date: day.Date, Restaurants: reports}, nil
}

func (b *Builder) build(ctx context.Context, r restaurant, day weekday.Day) models.RestaurantReport {
	start := time.Now()
	if b.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.fetchTimeout)
		defer cancel()
	}

	var res models.MenuResult
	doc, err := b.fetcher.Fetch(ctx, r.cfg.Source(), models.FormatForStrategy(r.cfg.Strategy))
	if err != nil {
		res = models.FetchFailed(r.cfg.Name, err)
	} else {
		res = extractor.Safe(r.ext, doc, day)
	}
	res.Restaurant = r.cfg.Name
	res.Strategy = r.ext.Name()

	log := b.logger.With("restaurant", r.cfg.Name, "strategy", res.Strategy, "status", res.Status, "duration_ms", time.Since(start).Milliseconds())
	if res.Err != nil && res.Status != models.StatusOK {
		log.Warn("menu extraction incomplete", "error", res.Err)
	} else {
		log.Info("menu extracted", "dishes", len(res.Dishes), "vegetarian", res.Vegetarian != "")
	}

	if b.observer != nil {
		b.observer(r.cfg, day, doc, res)
	}

	return models.RestaurantReport{
		Name:   r.cfg.Name,
		Text:   assembler.Assemble(res, b.locale),
		Result: res,
	}
}
