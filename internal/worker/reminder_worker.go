// Package worker schedules the background jobs run by finboard-worker.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ReminderRunner sends due-date reminders as of now.
type ReminderRunner interface {
	ProcessDueReminders(ctx context.Context, now time.Time) (int, error)
}

// ReminderWorker runs a ReminderRunner on a cron schedule. A run that is
// still in progress when the next one fires causes that next run to be skipped.
type ReminderWorker struct {
	runner   ReminderRunner
	schedule string
	cron     *cron.Cron
	now      func() time.Time

	mu      sync.Mutex
	running bool
}

// NewReminderWorker validates schedule (standard five-field cron or a
// descriptor such as "@daily") and returns a stopped worker.
func NewReminderWorker(runner ReminderRunner, schedule string) (*ReminderWorker, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("parse reminder schedule %q: %w", schedule, err)
	}
	return &ReminderWorker{
		runner:   runner,
		schedule: schedule,
		cron:     cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		now:      time.Now,
	}, nil
}

// Start schedules the job. Runs use ctx and stop being scheduled once Stop
// is called.
func (w *ReminderWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("reminder worker is already running")
	}

	_, err := w.cron.AddFunc(w.schedule, func() {
		if _, err := w.RunOnce(ctx); err != nil {
			slog.ErrorContext(ctx, "Scheduled reminder run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule reminders: %w", err)
	}

	w.cron.Start()
	w.running = true
	slog.InfoContext(ctx, "Reminder worker started", "schedule", w.schedule)
	return nil
}

// RunOnce runs the reminder job immediately.
func (w *ReminderWorker) RunOnce(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return w.runner.ProcessDueReminders(ctx, w.now().UTC())
}

// Stop stops scheduling and waits for a running job to finish or ctx to end.
func (w *ReminderWorker) Stop(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.running = false

	select {
	case <-w.cron.Stop().Done():
		slog.InfoContext(ctx, "Reminder worker stopped")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Reminder worker stop timed out")
	}
}
