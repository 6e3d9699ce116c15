// Package scheduler triggers the daily job on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is the work run on every tick.
type Job func(ctx context.Context) error

// Scheduler wraps a cron instance running a single job in a fixed time zone.
type Scheduler struct {
	cron     *cron.Cron
	schedule cron.Schedule
	spec     string
	location *time.Location
	logger   *slog.Logger
}

// Parser accepts the standard 5-field format: minute hour dom month dow.
func Parser() cron.Parser {
	return cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
}

// New validates spec and prepares a scheduler. Nothing runs until Run.
func New(spec string, loc *time.Location, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	parser := Parser()
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cron expression %q: %w", spec, err)
	}

	cl := cronLogger{logger: logger}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return &Scheduler{
		cron:     c,
		schedule: schedule,
		spec:     spec,
		location: loc,
		logger:   logger,
	}, nil
}

// Next returns the first trigger time after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.location))
}

// Run registers job and blocks until ctx is done. A job in flight when ctx is
// cancelled is waited for before Run returns.
func (s *Scheduler) Run(ctx context.Context, job Job) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		triggered := time.Now()
		s.logger.Info("cron triggered", "schedule", s.spec, "triggered_at", triggered.In(s.location).Format("2006-01-02 15:04:05"))
		if err := job(ctx); err != nil {
			s.logger.Error("scheduled job failed", "error", err, "duration_ms", time.Since(triggered).Milliseconds())
			return
		}
		s.logger.Info("scheduled job finished", "duration_ms", time.Since(triggered).Milliseconds())
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "schedule", s.spec, "location", s.location.String(), "next_run", s.Next(time.Now()).Format(time.RFC3339))

	<-ctx.Done()

	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
