package finance

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestTotalInBaseCurrency(t *testing.T) {
	tests := []struct {
		name    string
		amounts CurrencyAmounts
		rates   ExchangeRates
		want    string // rounded to 2 places
	}{
		{
			name:    "two currencies",
			amounts: CurrencyAmounts{"USD": d("100"), "EUR": d("50")},
			rates:   ExchangeRates{"USD": d("1"), "EUR": d("0.9")},
			want:    "155.56",
		},
		{
			name:    "missing rate skipped",
			amounts: CurrencyAmounts{"USD": d("100"), "GBP": d("10")},
			rates:   ExchangeRates{"USD": d("1")},
			want:    "100",
		},
		{
			name:    "zero rate skipped",
			amounts: CurrencyAmounts{"USD": d("100"), "JPY": d("1000")},
			rates:   ExchangeRates{"USD": d("1"), "JPY": decimal.Zero},
			want:    "100",
		},
		{
			name:    "negative rate converted as given",
			amounts: CurrencyAmounts{"USD": d("100"), "XTS": d("10")},
			rates:   ExchangeRates{"USD": d("1"), "XTS": d("-2")},
			want:    "95",
		},
		{
			name:    "no matching currency",
			amounts: CurrencyAmounts{"GBP": d("10")},
			rates:   ExchangeRates{"USD": d("1")},
			want:    "0",
		},
		{
			name:    "empty amounts",
			amounts: CurrencyAmounts{},
			rates:   ExchangeRates{"USD": d("1")},
			want:    "0",
		},
		{
			name:    "nil maps",
			amounts: nil,
			rates:   nil,
			want:    "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TotalInBaseCurrency(tt.amounts, tt.rates)
			if got.Round(2).String() != tt.want {
				t.Errorf("TotalInBaseCurrency() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestConvertToBase_ReportsMissing(t *testing.T) {
	conv := ConvertToBase(
		CurrencyAmounts{"USD": d("100"), "GBP": d("10"), "CHF": d("5"), "JPY": d("1")},
		ExchangeRates{"USD": d("1"), "JPY": decimal.Zero},
	)
	if !conv.Total.Equal(d("100")) {
		t.Errorf("Total = %s, want 100", conv.Total)
	}
	want := []string{"CHF", "GBP", "JPY"}
	if !reflect.DeepEqual(conv.Missing, want) {
		t.Errorf("Missing = %v, want %v", conv.Missing, want)
	}
}

func TestTotalInBaseCurrency_Idempotent(t *testing.T) {
	amounts := CurrencyAmounts{"USD": d("100"), "EUR": d("50"), "GBP": d("7.33")}
	rates := ExchangeRates{"USD": d("1.08"), "EUR": d("1"), "GBP": d("0.86")}

	first := TotalInBaseCurrency(amounts, rates)
	for i := 0; i < 10; i++ {
		if got := TotalInBaseCurrency(amounts, rates); !got.Equal(first) {
			t.Fatalf("call %d = %s, want %s", i, got, first)
		}
	}
}

func TestCurrencyAmounts_AddAndCurrencies(t *testing.T) {
	a := CurrencyAmounts{}
	a.Add("USD", d("1.5"))
	a.Add("EUR", d("2"))
	a.Add("USD", d("2.5"))

	if !a["USD"].Equal(d("4")) {
		t.Errorf("USD = %s, want 4", a["USD"])
	}
	if got := a.Currencies(); !reflect.DeepEqual(got, []string{"EUR", "USD"}) {
		t.Errorf("Currencies() = %v", got)
	}
}
