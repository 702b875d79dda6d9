package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"finboard/internal/core"
	"finboard/internal/finance"
)

// LiabilityStore persists liabilities.
type LiabilityStore interface {
	CreateLiability(ctx context.Context, l core.Liability) (string, error)
	GetLiability(ctx context.Context, id string) (core.Liability, error)
	ListLiabilities(ctx context.Context) ([]core.Liability, error)
	DeleteLiability(ctx context.Context, id string) error
}

// LiabilitySchedule is a liability with its next statement and due dates.
type LiabilitySchedule struct {
	Liability core.Liability
	Dates     finance.LiabilityDates
	DaysLeft  int // whole days from the reference date to the due date
}

type LiabilityService struct {
	store LiabilityStore
}

func NewLiabilityService(store LiabilityStore) *LiabilityService {
	return &LiabilityService{store: store}
}

func (s *LiabilityService) Create(ctx context.Context, l core.Liability) (core.Liability, error) {
	l.Name = strings.TrimSpace(l.Name)
	l.Currency = core.NormalizeCurrency(l.Currency)
	if err := l.Validate(); err != nil {
		return core.Liability{}, err
	}

	id, err := s.store.CreateLiability(ctx, l)
	if err != nil {
		return core.Liability{}, fmt.Errorf("create liability: %w", err)
	}
	l.ID = id
	return l, nil
}

func (s *LiabilityService) Get(ctx context.Context, id string) (core.Liability, error) {
	return s.store.GetLiability(ctx, id)
}

func (s *LiabilityService) List(ctx context.Context) ([]core.Liability, error) {
	return s.store.ListLiabilities(ctx)
}

func (s *LiabilityService) Delete(ctx context.Context, id string) error {
	return s.store.DeleteLiability(ctx, id)
}

// Schedule computes the billing dates of one liability as seen from ref.
func (s *LiabilityService) Schedule(ctx context.Context, id string, ref time.Time) (LiabilitySchedule, error) {
	l, err := s.store.GetLiability(ctx, id)
	if err != nil {
		return LiabilitySchedule{}, err
	}
	return scheduleFor(l, ref), nil
}

// Schedules computes the billing dates of every liability, ordered by due date.
func (s *LiabilityService) Schedules(ctx context.Context, ref time.Time) ([]LiabilitySchedule, error) {
	liabilities, err := s.store.ListLiabilities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list liabilities: %w", err)
	}

	schedules := make([]LiabilitySchedule, 0, len(liabilities))
	for _, l := range liabilities {
		schedules = append(schedules, scheduleFor(l, ref))
	}
	sort.SliceStable(schedules, func(i, j int) bool {
		return schedules[i].Dates.Due.Before(schedules[j].Dates.Due)
	})
	return schedules, nil
}

// UpcomingDue returns the liabilities whose due date falls within windowDays
// of now, today included.
func (s *LiabilityService) UpcomingDue(ctx context.Context, now time.Time, windowDays int) ([]LiabilitySchedule, error) {
	all, err := s.Schedules(ctx, now)
	if err != nil {
		return nil, err
	}

	var upcoming []LiabilitySchedule
	for _, sc := range all {
		if sc.DaysLeft >= 0 && sc.DaysLeft <= windowDays {
			upcoming = append(upcoming, sc)
		}
	}
	return upcoming, nil
}

func scheduleFor(l core.Liability, ref time.Time) LiabilitySchedule {
	dates := finance.CalculateLiabilityDates(ref, l.DueDay, l.StatementDay)
	today := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	return LiabilitySchedule{
		Liability: l,
		Dates:     dates,
		DaysLeft:  int(dates.Due.Sub(today).Hours() / 24),
	}
}
