package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"finboard/internal/amqp"
	"finboard/internal/core"
)

func TestRateService_RatesIncludeBase(t *testing.T) {
	store := newFakeRateStore()
	svc := NewRateService(store, nil, "eur")

	rates, err := svc.Rates(context.Background(), "")
	if err != nil {
		t.Fatalf("Rates() error = %v", err)
	}
	if len(rates) != 1 || !rates["EUR"].Equal(d("1")) {
		t.Errorf("rates = %v, want only EUR=1", rates)
	}
}

func TestRateService_ReadThroughCache(t *testing.T) {
	ctx := context.Background()
	store := newFakeRateStore()
	cache := newFakeRateCache()
	svc := NewRateService(store, cache, "EUR")

	if err := svc.ApplyUpdate(ctx, core.ExchangeRate{Currency: "usd", Rate: d("1.1")}); err != nil {
		t.Fatalf("ApplyUpdate() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		rates, err := svc.Rates(ctx, "EUR")
		if err != nil {
			t.Fatalf("Rates() error = %v", err)
		}
		if !rates["USD"].Equal(d("1.1")) {
			t.Errorf("USD = %s, want 1.1", rates["USD"])
		}
	}
	if store.lists != 1 {
		t.Errorf("store hit %d times, want 1", store.lists)
	}

	if err := svc.ApplyUpdate(ctx, core.ExchangeRate{Base: "EUR", Currency: "USD", Rate: d("1.2")}); err != nil {
		t.Fatal(err)
	}
	rates, _ := svc.Rates(ctx, "EUR")
	if !rates["USD"].Equal(d("1.2")) {
		t.Errorf("USD after update = %s, want 1.2", rates["USD"])
	}
	if len(cache.invalidated) != 2 {
		t.Errorf("invalidations = %v, want 2", cache.invalidated)
	}
}

func TestRateService_CacheErrorFallsBackToStore(t *testing.T) {
	store := newFakeRateStore()
	cache := newFakeRateCache()
	cache.getErr = errors.New("redis down")
	svc := NewRateService(store, cache, "EUR")
	_ = store.UpsertExchangeRate(context.Background(), core.ExchangeRate{Base: "EUR", Currency: "GBP", Rate: d("0.85")})

	rates, err := svc.Rates(context.Background(), "EUR")
	if err != nil {
		t.Fatalf("Rates() error = %v", err)
	}
	if !rates["GBP"].Equal(d("0.85")) {
		t.Errorf("GBP = %s, want 0.85", rates["GBP"])
	}
}

func TestRateService_ApplyUpdateValidation(t *testing.T) {
	svc := NewRateService(newFakeRateStore(), nil, "EUR")

	tests := []struct {
		name string
		rate core.ExchangeRate
		want error
	}{
		{"bad currency", core.ExchangeRate{Currency: "US", Rate: d("1")}, core.ErrInvalidCurrency},
		{"zero rate", core.ExchangeRate{Currency: "USD", Rate: d("0")}, core.ErrInvalidRate},
		{"base not one", core.ExchangeRate{Currency: "EUR", Rate: d("2")}, core.ErrInvalidRate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.ApplyUpdate(context.Background(), tt.rate); !errors.Is(err, tt.want) {
				t.Errorf("ApplyUpdate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRateService_OnChange(t *testing.T) {
	svc := NewRateService(newFakeRateStore(), nil, "EUR")
	var got []string
	svc.OnChange(func(base string) { got = append(got, base) })

	if err := svc.ApplyUpdate(context.Background(), core.ExchangeRate{Base: "usd", Currency: "JPY", Rate: d("150")}); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "USD" {
		t.Errorf("listeners saw %v, want [USD]", got)
	}
}

func TestRateService_WatchRemoteChanges(t *testing.T) {
	rateCache := newFakeRateCache()
	svc := NewRateService(newFakeRateStore(), rateCache, "EUR")
	seen := make(chan string, 1)
	svc.OnChange(func(base string) { seen <- base })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.WatchRemoteChanges(ctx) }()

	rateCache.changes <- "usd"
	select {
	case base := <-seen:
		if base != "USD" {
			t.Errorf("listener saw %q, want USD", base)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("listener not called for remote change")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("WatchRemoteChanges() error = %v, want context.Canceled", err)
	}
}

func TestRateService_WatchRemoteChangesWithoutSharedCache(t *testing.T) {
	svc := NewRateService(newFakeRateStore(), nil, "EUR")
	if err := svc.WatchRemoteChanges(context.Background()); err != nil {
		t.Errorf("WatchRemoteChanges() error = %v, want nil", err)
	}
}

func TestRateService_HandleRateUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("applies valid update", func(t *testing.T) {
		store := newFakeRateStore()
		svc := NewRateService(store, nil, "EUR")
		msg := &amqp.ExchangeRateUpdateMessage{Base: "EUR", Currency: "CHF", Rate: "0,95", Timestamp: time.Now()}
		if err := svc.HandleRateUpdate(ctx, msg); err != nil {
			t.Fatalf("HandleRateUpdate() error = %v", err)
		}
		if r := store.rates["EUR"]["CHF"]; !r.Rate.Equal(d("0.95")) {
			t.Errorf("stored rate = %s, want 0.95", r.Rate)
		}
	})

	t.Run("drops malformed update", func(t *testing.T) {
		store := newFakeRateStore()
		svc := NewRateService(store, nil, "EUR")
		for _, msg := range []*amqp.ExchangeRateUpdateMessage{
			{Base: "EUR", Currency: "CHF", Rate: "abc"},
			{Base: "EUR", Currency: "C", Rate: "1"},
		} {
			if err := svc.HandleRateUpdate(ctx, msg); err != nil {
				t.Errorf("HandleRateUpdate(%+v) error = %v, want nil", msg, err)
			}
		}
		if len(store.rates) != 0 {
			t.Errorf("nothing should be stored, got %v", store.rates)
		}
	})

	t.Run("returns storage failure for redelivery", func(t *testing.T) {
		store := newFakeRateStore()
		store.errOut = errors.New("disk full")
		svc := NewRateService(store, nil, "EUR")
		err := svc.HandleRateUpdate(ctx, &amqp.ExchangeRateUpdateMessage{Base: "EUR", Currency: "USD", Rate: "1.1"})
		if err == nil {
			t.Error("expected storage error")
		}
	})
}
