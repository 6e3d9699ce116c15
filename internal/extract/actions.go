// Package extract implements the offline `extract` command: run one
// strategy against a saved document without fetching or sending anything.
package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dtnitsch/lunch-bot/internal/lunch"
	"github.com/dtnitsch/lunch-bot/models"
	"github.com/dtnitsch/lunch-bot/pkg/assembler"
	"github.com/dtnitsch/lunch-bot/pkg/classifier"
	"github.com/dtnitsch/lunch-bot/pkg/extractor"
	"github.com/dtnitsch/lunch-bot/pkg/storage"
	"github.com/dtnitsch/lunch-bot/pkg/weekday"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

func ExtractAction(c *cli.Context) error {
	logger := lunch.NewLogger(c)

	path := c.String("file")
	if path == "" {
		fmt.Fprintln(os.Stderr, "Error: No file provided")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, `  lunch-bot extract --file snapshots/2026-10-21-sodra-porten.html --strategy header --day onsdag`)
		fmt.Fprintln(os.Stderr, `  lunch-bot extract --file menu.json --strategy feed --date 2026-10-21`)
		os.Exit(1)
	}

	locale := c.String("locale")
	opts := extractor.Options{
		MarkerTags:   splitList(c.String("marker-tags")),
		CardAttr:     c.String("card-attr"),
		ListSelector: c.String("list-selector"),
	}
	strategyName := c.String("strategy")
	var extraNoise []string

	// --restaurant takes strategy and options from the config file
	if name := c.String("restaurant"); name != "" {
		cfg, err := models.LoadConfig(c.String("config"))
		if err != nil {
			logger.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		r, ok := findRestaurant(cfg, name)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: restaurant %q not found in %s\n", name, c.String("config"))
			os.Exit(1)
		}
		if !c.IsSet("strategy") {
			strategyName = r.Strategy
		}
		if !c.IsSet("locale") {
			locale = cfg.Locale
		}
		opts = extractor.OptionsFor(r)
		extraNoise = cfg.ExtraNoise
	}
	if locale == "" {
		locale = models.DefaultLocale
	}

	strategy, err := extractor.ParseStrategy(strategyName)
	if err != nil {
		logger.Error("invalid strategy", "error", err)
		os.Exit(1)
	}

	day, err := resolveDay(c.String("date"), c.String("day"), locale, time.Now())
	if err != nil {
		logger.Error("invalid day", "error", err)
		os.Exit(1)
	}

	st := &storage.Storage{Dir: filepath.Dir(path)}
	if !st.HasFile(path) {
		logger.Error("document not found", "path", path)
		os.Exit(1)
	}
	content, err := st.ReadFile(path)
	if err != nil {
		logger.Error("failed to read document", "path", path, "error", err)
		os.Exit(2)
	}

	cl := classifier.New(classifier.DefaultRules(locale).WithExtraNoise(extraNoise...))
	ext, err := extractor.New(strategy, cl, opts)
	if err != nil {
		logger.Error("failed to build extractor", "error", err)
		os.Exit(1)
	}

	doc := &models.Document{
		URL:     path,
		Content: content,
		Format:  models.FormatForStrategy(string(strategy)),
	}
	res := extractor.Safe(ext, doc, day)
	res.Restaurant = c.String("restaurant")
	logger.Info("extracted", "strategy", res.Strategy, "day", day.Name, "status", res.Status, "dishes", len(res.Dishes))
	if res.Err != nil {
		logger.Warn("extraction detail", "error", res.Err)
	}

	return writeResult(res, locale, c.String("output"))
}

func writeResult(res models.MenuResult, locale, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		fmt.Println(string(data))
	case "yaml":
		data, err := yaml.Marshal(res)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		fmt.Print(string(data))
	default:
		fmt.Println(assembler.StripEmphasis(assembler.Assemble(res, locale)))
	}
	return nil
}

// resolveDay prefers an explicit date, then a day name (on the current
// week's date for that day), then today.
func resolveDay(date, name, locale string, now time.Time) (weekday.Day, error) {
	if date != "" {
		t, err := time.ParseInLocation("2006-01-02", date, time.Local)
		if err != nil {
			return weekday.Day{}, fmt.Errorf("invalid --date %q (want YYYY-MM-DD): %w", date, err)
		}
		return weekday.Resolve(t, locale), nil
	}
	if name != "" {
		idx, ok := weekday.Lookup(name, locale)
		if !ok {
			return weekday.Day{}, fmt.Errorf("unknown day %q for locale %s (want one of %s)",
				name, locale, strings.Join(weekday.Names(locale), ", "))
		}
		monday := now.AddDate(0, 0, -weekday.CurrentDayIndex(now))
		return weekday.Resolve(monday.AddDate(0, 0, idx), locale), nil
	}
	return weekday.Resolve(now, locale), nil
}

func findRestaurant(cfg *models.Config, name string) (models.Restaurant, bool) {
	for _, r := range cfg.Restaurants {
		if strings.EqualFold(r.Name, name) || storage.Slug(r.Name) == name {
			return r, true
		}
	}
	return models.Restaurant{}, false
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
