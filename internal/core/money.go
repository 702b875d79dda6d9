// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts and exchange
// rates typed by users, where both dot and comma decimal separators occur.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// AmountPlaces is the number of decimal places kept for monetary amounts.
const AmountPlaces = 2

// ParseAmount converts a decimal string to a positive amount rounded to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place.
// Returns an error for invalid formats, negative values, or zero amounts.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("12.345") -> 12.35, nil (half-up)
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := parsePositiveDecimal(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(AmountPlaces)
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseRate parses an exchange rate without rounding.
func ParseRate(s string) (decimal.Decimal, error) {
	d, err := parsePositiveDecimal(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, ErrInvalidRate
	}
	return d, nil
}

func parsePositiveDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			// Rejects signs and exponents too
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if s == "." {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	return decimal.NewFromString(s)
}
