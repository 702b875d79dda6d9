package finance

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

type (
	// SharedObligation is one counterparty's part of a shared transaction.
	SharedObligation struct {
		TransactionID string
		Counterparty  string
		Currency      string
		Share         decimal.Decimal // total agreed obligation
		Remaining     decimal.Decimal // share minus what was already paid
		Settled       bool
	}

	// CounterpartyAmounts holds one counterparty's shares and dues per currency.
	CounterpartyAmounts struct {
		Share CurrencyAmounts
		Due   CurrencyAmounts
	}

	// Settlement is the base-currency view of a set of shared obligations.
	Settlement struct {
		ByCounterparty map[string]CounterpartyAmounts
		ShareTotals    map[string]decimal.Decimal
		DueTotals      map[string]decimal.Decimal
		// Payable is only filled when exactly two counterparties are involved.
		Payable map[string]decimal.Decimal
		// Missing lists the currencies left out for lack of an exchange rate.
		Missing []string
	}
)

// GroupByCounterparty partitions obligations by counterparty and then by
// currency, summing shares and remaining amounts independently. Settled
// obligations keep their share but owe nothing.
func GroupByCounterparty(obligations []SharedObligation) map[string]CounterpartyAmounts {
	groups := make(map[string]CounterpartyAmounts)
	for _, o := range obligations {
		g, ok := groups[o.Counterparty]
		if !ok {
			g = CounterpartyAmounts{Share: CurrencyAmounts{}, Due: CurrencyAmounts{}}
			groups[o.Counterparty] = g
		}
		currency := strings.ToUpper(strings.TrimSpace(o.Currency))
		g.Share.Add(currency, o.Share)
		due := o.Remaining
		if o.Settled {
			due = decimal.Zero
		}
		g.Due.Add(currency, due)
	}
	return groups
}

// Summarize groups obligations per counterparty and converts their share and
// due totals into the base currency described by rates.
func Summarize(obligations []SharedObligation, rates ExchangeRates) Settlement {
	groups := GroupByCounterparty(obligations)
	s := Settlement{
		ByCounterparty: groups,
		ShareTotals:    make(map[string]decimal.Decimal, len(groups)),
		DueTotals:      make(map[string]decimal.Decimal, len(groups)),
	}

	missing := make(map[string]struct{})
	for who, g := range groups {
		share := ConvertToBase(g.Share, rates)
		due := ConvertToBase(g.Due, rates)
		s.ShareTotals[who] = share.Total
		s.DueTotals[who] = due.Total
		for _, code := range share.Missing {
			missing[code] = struct{}{}
		}
	}
	for code := range missing {
		s.Missing = append(s.Missing, code)
	}
	sort.Strings(s.Missing)

	s.Payable = PairwisePayable(s.DueTotals)
	return s
}

// Counterparties returns the counterparties of s in lexicographic order.
func (s Settlement) Counterparties() []string {
	names := make([]string, 0, len(s.DueTotals))
	for who := range s.DueTotals {
		names = append(names, who)
	}
	sort.Strings(names)
	return names
}

// PairwisePayable nets the dues of exactly two counterparties against each
// other. A positive value means that counterparty is owed money overall.
// For any other number of counterparties the result is empty.
func PairwisePayable(dueTotals map[string]decimal.Decimal) map[string]decimal.Decimal {
	payable := make(map[string]decimal.Decimal, 2)
	if len(dueTotals) != 2 {
		return payable
	}

	names := make([]string, 0, 2)
	for who := range dueTotals {
		names = append(names, who)
	}
	sort.Strings(names)
	a, b := names[0], names[1]

	payable[a] = dueTotals[a].Sub(dueTotals[b])
	payable[b] = dueTotals[b].Sub(dueTotals[a])
	return payable
}
