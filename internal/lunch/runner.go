// Package lunch wires the daily pipeline to delivery, run history and the
// cron schedule for the run and serve commands.
package lunch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dtnitsch/lunch-bot/models"
	"github.com/dtnitsch/lunch-bot/pkg/assembler"
	"github.com/dtnitsch/lunch-bot/pkg/db"
	"github.com/dtnitsch/lunch-bot/pkg/notifier"
	"github.com/dtnitsch/lunch-bot/pkg/report"
	"github.com/dtnitsch/lunch-bot/pkg/storage"
	"github.com/dtnitsch/lunch-bot/pkg/weekday"
)

// Runner performs one complete run: build the report, send it, record it.
type Runner struct {
	Builder  *report.Builder
	Notifier notifier.Notifier
	Locale   string

	// History is optional. Without it nothing is recorded and
	// OncePerDay has no effect.
	History    *db.DB
	OncePerDay bool

	Logger *slog.Logger
}

// Outcome summarizes a run for the caller.
type Outcome struct {
	Skipped bool
	Reason  string
	RunID   int64
	Report  *models.DailyReport
}

// RunOnce never fails because of a single restaurant. It returns an error
// only when the message could not be delivered or history is unusable.
func (r *Runner) RunOnce(ctx context.Context) (*Outcome, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	day := r.Builder.Today()
	if !day.IsServingDay() {
		logger.Info("skipping run", "reason", "not a serving day", "day", day.Name)
		return &Outcome{Skipped: true, Reason: "not a serving day"}, nil
	}

	if r.OncePerDay && r.History != nil {
		delivered, err := r.History.DeliveredOn(day.Date)
		if err != nil {
			return nil, fmt.Errorf("failed to check run history: %w", err)
		}
		if delivered {
			logger.Info("skipping run", "reason", "already delivered", "date", day.Date.Format("2006-01-02"))
			return &Outcome{Skipped: true, Reason: "already delivered"}, nil
		}
	}

	rep, err := r.Builder.BuildDailyReport(ctx)
	if errors.Is(err, report.ErrNotServingDay) {
		return &Outcome{Skipped: true, Reason: "not a serving day"}, nil
	}
	if err != nil {
		return nil, err
	}
	out := &Outcome{Report: rep}

	if r.History != nil {
		runID, err := r.History.RecordReport(rep)
		if err != nil {
			logger.Warn("failed to record run", "error", err)
		}
		out.RunID = runID
	}

	sendErr := r.Notifier.Send(ctx, assembler.FormatReport(rep, r.Locale))
	if sendErr != nil {
		logger.Error("delivery failed", "error", sendErr)
	} else {
		logger.Info("report delivered", "day", rep.Day, "restaurants", len(rep.Restaurants))
	}

	if r.History != nil && out.RunID != 0 {
		if err := r.History.FinishRun(out.RunID, sendErr); err != nil {
			logger.Warn("failed to finish run", "run_id", out.RunID, "error", err)
		}
	}

	if sendErr != nil {
		return out, fmt.Errorf("failed to deliver report: %w", sendErr)
	}
	return out, nil
}

// SnapshotObserver keeps the raw document of every empty or parse-failed
// restaurant so it can be replayed with `extract --file`.
func SnapshotObserver(st *storage.Storage, logger *slog.Logger) report.Observer {
	return func(r models.Restaurant, day weekday.Day, doc *models.Document, res models.MenuResult) {
		if doc == nil || !storage.ShouldSnapshot(res) {
			return
		}
		path, err := st.Snapshot(r.Name, day.Date, doc)
		if err != nil {
			logger.Warn("failed to write snapshot", "restaurant", r.Name, "error", err)
			return
		}
		logger.Info("snapshot written", "restaurant", r.Name, "status", res.Status, "path", path)
	}
}
