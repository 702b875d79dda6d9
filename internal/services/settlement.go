package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"finboard/internal/cache"
	"finboard/internal/core"
	"finboard/internal/finance"
	"finboard/internal/sheets"
)

// ErrExportDisabled is returned by Export when no exporter is configured.
var ErrExportDisabled = errors.New("settlement export not configured")

// ObligationStore persists shared transactions and their obligations.
type ObligationStore interface {
	CreateTransaction(ctx context.Context, t core.SharedTransaction) (core.SharedTransaction, error)
	ListObligations(ctx context.Context, transactionIDs []string) ([]core.Obligation, error)
	RecordPayment(ctx context.Context, obligationID string, amount decimal.Decimal) (core.Obligation, error)
}

// RateProvider returns exchange rates against a base currency.
type RateProvider interface {
	Rates(ctx context.Context, base string) (finance.ExchangeRates, error)
}

// SettlementReport is a computed settlement together with its inputs.
type SettlementReport struct {
	Base           string
	TransactionIDs []string // empty means every transaction
	Settlement     finance.Settlement
	GeneratedAt    time.Time
}

type SettlementService struct {
	store    ObligationStore
	rates    RateProvider
	base     string
	cache    *cache.LRUCache[SettlementReport]
	exporter sheets.SettlementExporter // optional
	now      func() time.Time

	// generation counts invalidations; a report loaded before the latest
	// one is not cached.
	genMu      sync.Mutex
	generation uint64
}

func NewSettlementService(
	store ObligationStore,
	rates RateProvider,
	base string,
	reports *cache.LRUCache[SettlementReport],
	exporter sheets.SettlementExporter,
) *SettlementService {
	return &SettlementService{
		store:    store,
		rates:    rates,
		base:     core.NormalizeCurrency(base),
		cache:    reports,
		exporter: exporter,
		now:      time.Now,
	}
}

// CreateTransaction validates and stores a shared transaction.
func (s *SettlementService) CreateTransaction(ctx context.Context, t core.SharedTransaction) (core.SharedTransaction, error) {
	t.Description = strings.TrimSpace(t.Description)
	t.Currency = core.NormalizeCurrency(t.Currency)
	for i := range t.Obligations {
		t.Obligations[i].Counterparty = strings.TrimSpace(t.Obligations[i].Counterparty)
		if t.Obligations[i].Currency == "" {
			t.Obligations[i].Currency = t.Currency
		}
		t.Obligations[i].Currency = core.NormalizeCurrency(t.Obligations[i].Currency)
	}
	if err := t.Validate(); err != nil {
		return core.SharedTransaction{}, err
	}

	saved, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.SharedTransaction{}, fmt.Errorf("create shared transaction: %w", err)
	}
	s.Invalidate()
	return saved, nil
}

// RecordPayment adds a payment towards one obligation.
func (s *SettlementService) RecordPayment(ctx context.Context, obligationID string, amount decimal.Decimal) (core.Obligation, error) {
	if !amount.IsPositive() {
		return core.Obligation{}, core.ErrInvalidAmount
	}
	o, err := s.store.RecordPayment(ctx, obligationID, amount)
	if err != nil {
		return core.Obligation{}, err
	}
	s.Invalidate()
	return o, nil
}

// Summary computes the settlement of the given transactions (all of them
// when none are given) in base currency (the default base when empty).
func (s *SettlementService) Summary(ctx context.Context, transactionIDs []string, base string) (SettlementReport, error) {
	if base == "" {
		base = s.base
	}
	base = core.NormalizeCurrency(base)
	if err := core.ValidateCurrency(base); err != nil {
		return SettlementReport{}, err
	}
	ids := normalizeIDs(transactionIDs)

	key := reportKey(base, ids)
	if s.cache != nil {
		if report, ok := s.cache.Get(key); ok {
			return report, nil
		}
	}

	gen := s.currentGeneration()

	var (
		obligations []core.Obligation
		rates       finance.ExchangeRates
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		obligations, err = s.store.ListObligations(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		rates, err = s.rates.Rates(gctx, base)
		return err
	})
	if err := g.Wait(); err != nil {
		return SettlementReport{}, fmt.Errorf("load settlement inputs: %w", err)
	}

	report := SettlementReport{
		Base:           base,
		TransactionIDs: ids,
		Settlement:     finance.Summarize(toShared(obligations), rates),
		GeneratedAt:    s.now(),
	}
	if len(report.Settlement.Missing) > 0 {
		slog.WarnContext(ctx, "Currencies without exchange rate left out of settlement",
			"base_currency", base,
			"missing_rates", report.Settlement.Missing)
	}

	s.cacheReport(key, gen, report)
	return report, nil
}

// Export writes the settlement of the given transactions, dated when, to the
// configured exporter and returns the number of rows written.
func (s *SettlementService) Export(ctx context.Context, transactionIDs []string, base string, when time.Time) (int, error) {
	if s.exporter == nil {
		return 0, ErrExportDisabled
	}
	report, err := s.Summary(ctx, transactionIDs, base)
	if err != nil {
		return 0, err
	}
	n, err := s.exporter.ExportSettlement(ctx, report.Base, report.Settlement, when)
	if err != nil {
		return 0, fmt.Errorf("export settlement: %w", err)
	}
	return n, nil
}

// Invalidate drops every cached settlement. Summaries still loading keep
// their result out of the cache.
func (s *SettlementService) Invalidate() {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.generation++
	if s.cache != nil {
		s.cache.Clear()
	}
}

func (s *SettlementService) currentGeneration() uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generation
}

func (s *SettlementService) cacheReport(key string, gen uint64, report SettlementReport) {
	if s.cache == nil {
		return
	}
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if gen != s.generation {
		return
	}
	s.cache.Set(key, report)
}

func toShared(obligations []core.Obligation) []finance.SharedObligation {
	out := make([]finance.SharedObligation, len(obligations))
	for i, o := range obligations {
		out[i] = finance.SharedObligation{
			TransactionID: o.TransactionID,
			Counterparty:  o.Counterparty,
			Currency:      o.Currency,
			Share:         o.Share,
			Remaining:     o.Remaining(),
			Settled:       o.Settled,
		}
	}
	return out
}

func normalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func reportKey(base string, ids []string) string {
	return base + "|" + strings.Join(ids, ",")
}
