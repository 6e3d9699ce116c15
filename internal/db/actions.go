package db

import (
	"fmt"
	"os"
	"strings"

	"github.com/dtnitsch/lunch-bot/internal/lunch"
	"github.com/dtnitsch/lunch-bot/models"
	dbpkg "github.com/dtnitsch/lunch-bot/pkg/db"
	"github.com/urfave/cli/v2"
)

func openDatabase(c *cli.Context) (*dbpkg.DB, error) {
	path := c.String("database")
	if path == "" {
		logger := lunch.NewLogger(c)
		cfg, err := models.LoadConfig(c.String("config"))
		if err != nil {
			logger.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		path = cfg.Database
	}
	return dbpkg.Open(path)
}

// HistoryAction lists recent runs.
func HistoryAction(c *cli.Context) error {
	database, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	runs, err := database.RecentRuns(c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	w := c.App.Writer
	if len(runs) == 0 {
		fmt.Fprintf(w, "No runs found in %s\n", database.Path())
		return nil
	}

	fmt.Fprintf(w, "%-6s %-12s %-10s %-20s %-10s %-6s %-8s %s\n",
		"ID", "Date", "Day", "Created", "Delivered", "OK", "Failed", "Error")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, r := range runs {
		ok, failed := 0, 0
		for _, res := range r.Results {
			if res.Status == string(models.StatusOK) {
				ok++
			} else {
				failed++
			}
		}
		delivered := "no"
		if r.Delivered {
			delivered = "yes"
		}
		fmt.Fprintf(w, "%-6d %-12s %-10s %-20s %-10s %-6d %-8d %s\n",
			r.RunID,
			r.RunDate,
			r.DayName,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			delivered,
			ok,
			failed,
			r.DeliveryError,
		)
	}

	fmt.Fprintf(w, "\nTotal: %d runs (%s)\n", len(runs), database.Path())
	fmt.Fprintf(w, "\nTip: Use 'lunch-bot history show <id>' to see per-restaurant results\n")

	return nil
}

// ShowRunAction shows details for a specific run
func ShowRunAction(c *cli.Context) error {
	database, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	runID, err := GetRunIDOrLatest(c, database)
	if err != nil {
		return err
	}
	w := c.App.Writer

	run, err := database.GetRun(runID)
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}

	fmt.Fprintf(w, "Run %d\n", run.RunID)
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Date:       %s (%s)\n", run.RunDate, run.DayName)
	fmt.Fprintf(w, "Created:    %s\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
	if run.FinishedAt != nil {
		fmt.Fprintf(w, "Finished:   %s\n", run.FinishedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(w, "Delivered:  %t\n", run.Delivered)
	if run.DeliveryError != "" {
		fmt.Fprintf(w, "Error:      %s\n", run.DeliveryError)
	}

	fmt.Fprintf(w, "\nRestaurants (%d):\n", len(run.Results))
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for i, r := range run.Results {
		fmt.Fprintf(w, "%2d. [%s] %s (%s)\n", i+1, r.Status, r.Restaurant, r.Strategy)
		fmt.Fprintf(w, "    Dishes: %d | Vegetarian: %t\n", r.DishCount, r.HasVegetarian)
		if r.Detail != "" {
			fmt.Fprintf(w, "    Detail: %s\n", r.Detail)
		}
	}

	return nil
}
