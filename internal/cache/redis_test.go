package cache

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestRatesEncoding(t *testing.T) {
	in := map[string]decimal.Decimal{
		"USD": decimal.RequireFromString("1.0812345678901234"),
		"JPY": decimal.RequireFromString("161.2"),
	}

	raw, err := encodeRates(in)
	if err != nil {
		t.Fatalf("encodeRates() error = %v", err)
	}
	out, err := decodeRates(raw)
	if err != nil {
		t.Fatalf("decodeRates() error = %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("decoded %d rates, want %d", len(out), len(in))
	}
	for code, rate := range in {
		if !out[code].Equal(rate) {
			t.Errorf("rate %s = %s, want %s", code, out[code], rate)
		}
	}
}

func TestDecodeRates_Invalid(t *testing.T) {
	if _, err := decodeRates([]byte(`{"USD":"abc"}`)); err == nil {
		t.Error("decodeRates() expected error for non-numeric rate")
	}
	if _, err := decodeRates([]byte(`not json`)); err == nil {
		t.Error("decodeRates() expected error for malformed payload")
	}
}
