package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DMYLayout is the display format used for billing dates.
const DMYLayout = "02/01/2006"

type (
	Date struct {
		time.Time
	}

	// Liability is a credit-type account with a recurring billing cycle.
	Liability struct {
		ID           string
		Name         string
		Currency     string
		Balance      decimal.Decimal
		DueDay       int
		StatementDay int // 0 when the liability has no statement date
	}

	SharedTransaction struct {
		ID          string
		Description string
		Date        Date
		Currency    string
		Amount      decimal.Decimal
		Obligations []Obligation
	}

	// Obligation is the portion of a shared transaction owed by one counterparty.
	Obligation struct {
		ID            string
		TransactionID string
		Counterparty  string
		Currency      string
		Share         decimal.Decimal
		Paid          decimal.Decimal
		Settled       bool
	}

	// ExchangeRate expresses how many units of Currency buy one unit of Base.
	ExchangeRate struct {
		Base      string
		Currency  string
		Rate      decimal.Decimal
		UpdatedAt time.Time
	}
)

var (
	ErrInvalidDay         = errors.New("invalid day")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidCurrency    = errors.New("invalid currency code")
	ErrInvalidRate        = errors.New("invalid exchange rate")
	ErrEmptyName          = errors.New("empty name")
	ErrEmptyDescription   = errors.New("empty description")
	ErrEmptyCounterparty  = errors.New("empty counterparty")
	ErrNoObligations      = errors.New("shared transaction has no obligations")
	ErrSharesExceedAmount = errors.New("obligation shares exceed transaction amount")
	ErrCurrencyMismatch   = errors.New("obligation currency differs from transaction currency")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// FormatDMY returns the date as dd/mm/yyyy.
func (d Date) FormatDMY() string {
	return d.Format(DMYLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// NormalizeCurrency upper-cases and trims a currency code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateCurrency accepts three-letter alphabetic codes. The code is not
// checked against any registry.
func ValidateCurrency(code string) error {
	if len(code) != 3 {
		return ErrInvalidCurrency
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return ErrInvalidCurrency
		}
	}
	return nil
}

func validDay(day int) bool {
	return day >= 1 && day <= 31
}

func (l Liability) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return ErrEmptyName
	}
	if len(l.Name) > 100 {
		return errors.New("name too long (max 100 characters)")
	}
	if err := ValidateCurrency(l.Currency); err != nil {
		return err
	}
	if !validDay(l.DueDay) {
		return ErrInvalidDay
	}
	if l.StatementDay != 0 && !validDay(l.StatementDay) {
		return ErrInvalidDay
	}
	return nil
}

// Remaining is the unpaid part of the share, never negative.
func (o Obligation) Remaining() decimal.Decimal {
	if o.Settled {
		return decimal.Zero
	}
	r := o.Share.Sub(o.Paid)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

func (o Obligation) Validate() error {
	if strings.TrimSpace(o.Counterparty) == "" {
		return ErrEmptyCounterparty
	}
	if err := ValidateCurrency(o.Currency); err != nil {
		return err
	}
	if !o.Share.IsPositive() {
		return ErrInvalidAmount
	}
	if o.Paid.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (t SharedTransaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := ValidateCurrency(t.Currency); err != nil {
		return err
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if len(t.Obligations) == 0 {
		return ErrNoObligations
	}

	total := decimal.Zero
	for _, o := range t.Obligations {
		if err := o.Validate(); err != nil {
			return err
		}
		if o.Currency != t.Currency {
			return ErrCurrencyMismatch
		}
		total = total.Add(o.Share)
	}
	if total.GreaterThan(t.Amount) {
		return ErrSharesExceedAmount
	}
	return nil
}

func (r ExchangeRate) Validate() error {
	if err := ValidateCurrency(r.Base); err != nil {
		return err
	}
	if err := ValidateCurrency(r.Currency); err != nil {
		return err
	}
	if !r.Rate.IsPositive() {
		return ErrInvalidRate
	}
	return nil
}
