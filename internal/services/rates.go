package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"finboard/internal/amqp"
	"finboard/internal/core"
	"finboard/internal/finance"
)

// RateStore persists exchange rates.
type RateStore interface {
	UpsertExchangeRate(ctx context.Context, rate core.ExchangeRate) error
	ListExchangeRates(ctx context.Context, base string) ([]core.ExchangeRate, error)
}

// RateCache is a read-through cache in front of the RateStore.
type RateCache interface {
	GetRates(ctx context.Context, base string) (map[string]decimal.Decimal, bool, error)
	SetRates(ctx context.Context, base string, rates map[string]decimal.Decimal) error
	InvalidateRates(ctx context.Context, base string) error
}

// RateChangeSubscriber is implemented by caches shared between processes
// that announce rate changes made elsewhere.
type RateChangeSubscriber interface {
	SubscribeRateChanges(ctx context.Context, fn func(base string)) error
}

// RateService serves exchange rates against a base currency. The base itself
// is always present with rate 1.
type RateService struct {
	store RateStore
	cache RateCache // optional
	base  string

	mu        sync.Mutex
	listeners []func(base string)
}

func NewRateService(store RateStore, cache RateCache, base string) *RateService {
	return &RateService{
		store: store,
		cache: cache,
		base:  core.NormalizeCurrency(base),
	}
}

// Base returns the default base currency.
func (s *RateService) Base() string {
	return s.base
}

// OnChange registers fn to be called after a rate against base changes.
func (s *RateService) OnChange(fn func(base string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *RateService) notify(base string) {
	s.mu.Lock()
	listeners := append([]func(string){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(base)
	}
}

// WatchRemoteChanges runs OnChange listeners for rate changes applied by
// other processes sharing the cache. It blocks until ctx is done and returns
// nil at once when the cache cannot announce changes.
func (s *RateService) WatchRemoteChanges(ctx context.Context) error {
	sub, ok := s.cache.(RateChangeSubscriber)
	if !ok {
		return nil
	}
	return sub.SubscribeRateChanges(ctx, func(base string) {
		slog.DebugContext(ctx, "Remote exchange rate change", "base_currency", base)
		s.notify(core.NormalizeCurrency(base))
	})
}

func (s *RateService) resolveBase(base string) (string, error) {
	if base == "" {
		return s.base, nil
	}
	base = core.NormalizeCurrency(base)
	if err := core.ValidateCurrency(base); err != nil {
		return "", err
	}
	return base, nil
}

// Rates returns the rates against base (the default base when empty).
func (s *RateService) Rates(ctx context.Context, base string) (finance.ExchangeRates, error) {
	base, err := s.resolveBase(base)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached, ok, err := s.cache.GetRates(ctx, base)
		if err != nil {
			slog.WarnContext(ctx, "Rate cache read failed, falling back to storage",
				"base_currency", base, "error", err)
		} else if ok {
			return withBase(cached, base), nil
		}
	}

	stored, err := s.store.ListExchangeRates(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("load rates for %s: %w", base, err)
	}

	rates := make(map[string]decimal.Decimal, len(stored)+1)
	for _, r := range stored {
		rates[r.Currency] = r.Rate
	}

	if s.cache != nil {
		if err := s.cache.SetRates(ctx, base, rates); err != nil {
			slog.WarnContext(ctx, "Rate cache write failed", "base_currency", base, "error", err)
		}
	}

	return withBase(rates, base), nil
}

// List returns the stored rates against base, without the implicit base entry.
func (s *RateService) List(ctx context.Context, base string) ([]core.ExchangeRate, error) {
	base, err := s.resolveBase(base)
	if err != nil {
		return nil, err
	}
	rates, err := s.store.ListExchangeRates(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("list rates for %s: %w", base, err)
	}
	return rates, nil
}

// ApplyUpdate validates and persists rate, then drops cached rates for its base.
func (s *RateService) ApplyUpdate(ctx context.Context, rate core.ExchangeRate) error {
	if rate.Base == "" {
		rate.Base = s.base
	}
	rate.Base = core.NormalizeCurrency(rate.Base)
	rate.Currency = core.NormalizeCurrency(rate.Currency)
	if err := rate.Validate(); err != nil {
		return err
	}
	if rate.Currency == rate.Base && !rate.Rate.Equal(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: base currency rate must be 1", core.ErrInvalidRate)
	}
	if rate.UpdatedAt.IsZero() {
		rate.UpdatedAt = time.Now().UTC()
	}

	if err := s.store.UpsertExchangeRate(ctx, rate); err != nil {
		return fmt.Errorf("save rate %s/%s: %w", rate.Base, rate.Currency, err)
	}

	if s.cache != nil {
		if err := s.cache.InvalidateRates(ctx, rate.Base); err != nil {
			slog.WarnContext(ctx, "Rate cache invalidation failed", "base_currency", rate.Base, "error", err)
		}
	}

	s.notify(rate.Base)

	slog.InfoContext(ctx, "Exchange rate updated",
		"base_currency", rate.Base,
		"currency", rate.Currency,
		"rate", rate.Rate.String())

	return nil
}

func withBase(rates map[string]decimal.Decimal, base string) finance.ExchangeRates {
	out := make(finance.ExchangeRates, len(rates)+1)
	for code, rate := range rates {
		out[code] = rate
	}
	out[base] = decimal.NewFromInt(1)
	return out
}

// HandleRateUpdate applies a rate received from the message broker. Malformed
// updates are logged and dropped; storage failures are returned so the
// message is redelivered.
func (s *RateService) HandleRateUpdate(ctx context.Context, msg *amqp.ExchangeRateUpdateMessage) error {
	rate, err := core.ParseRate(msg.Rate)
	if err != nil {
		slog.WarnContext(ctx, "Dropping rate update with invalid rate",
			"base_currency", msg.Base,
			"currency", msg.Currency,
			"rate", msg.Rate)
		return nil
	}

	update := core.ExchangeRate{
		Base:      msg.Base,
		Currency:  msg.Currency,
		Rate:      rate,
		UpdatedAt: msg.Timestamp,
	}
	err = s.ApplyUpdate(ctx, update)
	if isValidationError(err) {
		slog.WarnContext(ctx, "Dropping invalid rate update",
			"base_currency", msg.Base,
			"currency", msg.Currency,
			"error", err)
		return nil
	}
	return err
}

func isValidationError(err error) bool {
	return errors.Is(err, core.ErrInvalidCurrency) || errors.Is(err, core.ErrInvalidRate)
}
