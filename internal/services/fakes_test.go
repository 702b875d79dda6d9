package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"finboard/internal/amqp"
	"finboard/internal/core"
	"finboard/internal/finance"
	"finboard/internal/storage"
)

type fakeRateStore struct {
	mu     sync.Mutex
	rates  map[string]map[string]core.ExchangeRate
	lists  int
	errOut error
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{rates: make(map[string]map[string]core.ExchangeRate)}
}

func (f *fakeRateStore) UpsertExchangeRate(_ context.Context, rate core.ExchangeRate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errOut != nil {
		return f.errOut
	}
	if f.rates[rate.Base] == nil {
		f.rates[rate.Base] = make(map[string]core.ExchangeRate)
	}
	f.rates[rate.Base][rate.Currency] = rate
	return nil
}

func (f *fakeRateStore) ListExchangeRates(_ context.Context, base string) ([]core.ExchangeRate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.errOut != nil {
		return nil, f.errOut
	}
	var out []core.ExchangeRate
	for _, r := range f.rates[base] {
		out = append(out, r)
	}
	return out, nil
}

type fakeRateCache struct {
	mu          sync.Mutex
	entries     map[string]map[string]decimal.Decimal
	invalidated []string
	getErr      error
	changes     chan string
}

func newFakeRateCache() *fakeRateCache {
	return &fakeRateCache{
		entries: make(map[string]map[string]decimal.Decimal),
		changes: make(chan string, 4),
	}
}

func (f *fakeRateCache) SubscribeRateChanges(ctx context.Context, fn func(base string)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case base := <-f.changes:
			fn(base)
		}
	}
}

func (f *fakeRateCache) GetRates(_ context.Context, base string) (map[string]decimal.Decimal, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	r, ok := f.entries[base]
	return r, ok, nil
}

func (f *fakeRateCache) SetRates(_ context.Context, base string, rates map[string]decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[base] = rates
	return nil
}

func (f *fakeRateCache) InvalidateRates(_ context.Context, base string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, base)
	f.invalidated = append(f.invalidated, base)
	return nil
}

type fakeLiabilityStore struct {
	items []core.Liability
	next  int
}

func (f *fakeLiabilityStore) CreateLiability(_ context.Context, l core.Liability) (string, error) {
	f.next++
	l.ID = fmt.Sprintf("l%d", f.next)
	f.items = append(f.items, l)
	return l.ID, nil
}

func (f *fakeLiabilityStore) GetLiability(_ context.Context, id string) (core.Liability, error) {
	for _, l := range f.items {
		if l.ID == id {
			return l, nil
		}
	}
	return core.Liability{}, fmt.Errorf("liability %s: %w", id, storage.ErrNotFound)
}

func (f *fakeLiabilityStore) ListLiabilities(context.Context) ([]core.Liability, error) {
	return append([]core.Liability(nil), f.items...), nil
}

func (f *fakeLiabilityStore) DeleteLiability(_ context.Context, id string) error {
	for i, l := range f.items {
		if l.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

type fakeObligationStore struct {
	mu          sync.Mutex
	obligations []core.Obligation
	lists       int
	next        int
}

func (f *fakeObligationStore) CreateTransaction(_ context.Context, t core.SharedTransaction) (core.SharedTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	t.ID = fmt.Sprintf("t%d", f.next)
	for i := range t.Obligations {
		t.Obligations[i].ID = fmt.Sprintf("%s-o%d", t.ID, i)
		t.Obligations[i].TransactionID = t.ID
		f.obligations = append(f.obligations, t.Obligations[i])
	}
	return t, nil
}

func (f *fakeObligationStore) ListObligations(_ context.Context, ids []string) ([]core.Obligation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []core.Obligation
	for _, o := range f.obligations {
		if len(ids) == 0 || want[o.TransactionID] {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeObligationStore) RecordPayment(_ context.Context, id string, amount decimal.Decimal) (core.Obligation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, o := range f.obligations {
		if o.ID == id {
			o.Paid = o.Paid.Add(amount)
			o.Settled = o.Paid.GreaterThanOrEqual(o.Share)
			f.obligations[i] = o
			return o, nil
		}
	}
	return core.Obligation{}, storage.ErrNotFound
}

type staticRates finance.ExchangeRates

func (r staticRates) Rates(_ context.Context, base string) (finance.ExchangeRates, error) {
	if base == "XXX" {
		return nil, errors.New("rates unavailable")
	}
	return finance.ExchangeRates(r), nil
}

type fakePublisher struct {
	sent    []*amqp.DueReminderMessage
	failFor string
}

func (f *fakePublisher) PublishDueReminder(_ context.Context, msg *amqp.DueReminderMessage) error {
	if msg.LiabilityID == f.failFor {
		return errors.New("broker down")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
