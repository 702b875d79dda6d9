package services

import (
	"context"
	"testing"
	"time"
)

func TestReminderProcessor_PublishesUpcoming(t *testing.T) {
	liabilities := NewLiabilityService(&fakeLiabilityStore{})
	seedLiabilities(t, liabilities)
	pub := &fakePublisher{}
	p := NewReminderProcessor(liabilities, pub, 22)
	now := time.Date(2024, 5, 29, 8, 0, 0, 0, time.UTC)

	n, err := p.ProcessDueReminders(context.Background(), now)
	if err != nil {
		t.Fatalf("ProcessDueReminders() error = %v", err)
	}
	if n != 2 || len(pub.sent) != 2 {
		t.Fatalf("published %d (%d sent), want 2", n, len(pub.sent))
	}

	first := pub.sent[0]
	if first.Name != "Mortgage" || first.DueDate != "01/06/2024" || first.DaysLeft != 3 {
		t.Errorf("unexpected first reminder: %+v", first)
	}
	if first.StatementDate != "" {
		t.Errorf("Mortgage has no statement day, got %q", first.StatementDate)
	}
	if first.Balance != "900.00" {
		t.Errorf("Balance = %q, want 900.00", first.Balance)
	}
	if second := pub.sent[1]; second.Name != "Amex" || second.StatementDate != "05/06/2024" {
		t.Errorf("unexpected second reminder: %+v", second)
	}
}

func TestReminderProcessor_PublishFailureContinues(t *testing.T) {
	liabilities := NewLiabilityService(&fakeLiabilityStore{})
	seedLiabilities(t, liabilities)
	pub := &fakePublisher{failFor: "l2"} // Mortgage
	p := NewReminderProcessor(liabilities, pub, 22)

	n, err := p.ProcessDueReminders(context.Background(), time.Date(2024, 5, 29, 8, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ProcessDueReminders() error = %v", err)
	}
	if n != 1 || pub.sent[0].Name != "Amex" {
		t.Errorf("published %d, sent %+v", n, pub.sent)
	}
}

func TestReminderProcessor_NoPublisher(t *testing.T) {
	liabilities := NewLiabilityService(&fakeLiabilityStore{})
	seedLiabilities(t, liabilities)
	p := NewReminderProcessor(liabilities, nil, 30)

	n, err := p.ProcessDueReminders(context.Background(), time.Date(2024, 5, 29, 8, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ProcessDueReminders() error = %v", err)
	}
	if n != 0 {
		t.Errorf("published = %d, want 0 without a publisher", n)
	}
}

func TestReminderProcessor_NotInitialized(t *testing.T) {
	p := &ReminderProcessor{}
	if _, err := p.ProcessDueReminders(context.Background(), time.Now()); err == nil {
		t.Error("expected error for uninitialized processor")
	}
}
