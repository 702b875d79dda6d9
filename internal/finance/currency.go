package finance

import (
	"sort"

	"github.com/shopspring/decimal"
)

type (
	// CurrencyAmounts maps a currency code to an amount in that currency.
	CurrencyAmounts map[string]decimal.Decimal

	// ExchangeRates maps a currency code to the number of its units that buy
	// one unit of the base currency.
	ExchangeRates map[string]decimal.Decimal

	// Conversion is a base-currency total together with the currencies that
	// could not be converted.
	Conversion struct {
		Total   decimal.Decimal
		Missing []string
	}
)

// Add accumulates amount under currency.
func (a CurrencyAmounts) Add(currency string, amount decimal.Decimal) {
	a[currency] = a[currency].Add(amount)
}

// Currencies returns the currency codes in lexicographic order.
func (a CurrencyAmounts) Currencies() []string {
	codes := make([]string, 0, len(a))
	for code := range a {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// TotalInBaseCurrency converts every amount with a known rate into the base
// currency and sums them. Amounts without a usable rate are left out.
func TotalInBaseCurrency(amounts CurrencyAmounts, rates ExchangeRates) decimal.Decimal {
	return ConvertToBase(amounts, rates).Total
}

// ConvertToBase behaves like TotalInBaseCurrency and also reports, in sorted
// order, the currencies that were dropped. A zero rate counts as missing;
// any other rate, negative included, is divided through as given.
func ConvertToBase(amounts CurrencyAmounts, rates ExchangeRates) Conversion {
	conv := Conversion{Total: decimal.Zero}
	for _, code := range amounts.Currencies() {
		rate, ok := rates[code]
		if !ok || rate.IsZero() {
			conv.Missing = append(conv.Missing, code)
			continue
		}
		conv.Total = conv.Total.Add(amounts[code].Div(rate))
	}
	return conv
}
