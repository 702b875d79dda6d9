package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finboard/internal/amqp"
)

// ReminderPublisher delivers due-date reminders.
type ReminderPublisher interface {
	PublishDueReminder(ctx context.Context, msg *amqp.DueReminderMessage) error
}

// ReminderProcessor announces liabilities that fall due within a window of days.
type ReminderProcessor struct {
	liabilities *LiabilityService
	publisher   ReminderPublisher // optional
	windowDays  int
}

func NewReminderProcessor(liabilities *LiabilityService, publisher ReminderPublisher, windowDays int) *ReminderProcessor {
	return &ReminderProcessor{
		liabilities: liabilities,
		publisher:   publisher,
		windowDays:  windowDays,
	}
}

// ProcessDueReminders publishes one reminder per liability due within the
// window from now and returns how many were published. A failed publish is
// logged and does not stop the run.
func (p *ReminderProcessor) ProcessDueReminders(ctx context.Context, now time.Time) (int, error) {
	if p.liabilities == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	upcoming, err := p.liabilities.UpcomingDue(ctx, now, p.windowDays)
	if err != nil {
		return 0, fmt.Errorf("find upcoming due dates: %w", err)
	}

	slog.InfoContext(ctx, "Processing due reminders",
		"upcoming", len(upcoming),
		"window_days", p.windowDays,
		"processing_date", now.Format("2006-01-02"))

	published := 0
	for _, sc := range upcoming {
		if p.publisher == nil {
			slog.WarnContext(ctx, "Reminder publisher not available, logging only",
				"liability_id", sc.Liability.ID,
				"name", sc.Liability.Name,
				"due_date", sc.Dates.DueDate,
				"days_left", sc.DaysLeft)
			continue
		}

		msg := &amqp.DueReminderMessage{
			LiabilityID:   sc.Liability.ID,
			Name:          sc.Liability.Name,
			Currency:      sc.Liability.Currency,
			Balance:       sc.Liability.Balance.StringFixed(2),
			StatementDate: sc.Dates.StatementDate,
			DueDate:       sc.Dates.DueDate,
			DaysLeft:      sc.DaysLeft,
			Timestamp:     now,
		}
		if err := p.publisher.PublishDueReminder(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "Failed to publish due reminder",
				"liability_id", sc.Liability.ID,
				"error", err)
			continue
		}
		published++
	}

	slog.InfoContext(ctx, "Due reminder processing complete",
		"published", published,
		"total_checked", len(upcoming))

	return published, nil
}
