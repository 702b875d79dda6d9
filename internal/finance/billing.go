// Package finance holds the pure calculations behind the dashboard: billing
// cycle rollover for liabilities, conversion of multi-currency totals into a
// base currency and settlement of shared obligations.
//
// Nothing in this package performs I/O or keeps state between calls, so every
// function is safe for concurrent use.
package finance

import (
	"time"

	"finboard/internal/core"
)

// LiabilityDates is the next statement and due date of a liability.
type LiabilityDates struct {
	StatementDate string `json:"statementDate,omitempty"`
	DueDate       string `json:"dueDate"`

	Statement time.Time `json:"-"` // zero when no statement day was given
	Due       time.Time `json:"-"`
}

// HasStatement reports whether a statement date was computed.
func (d LiabilityDates) HasStatement() bool {
	return !d.Statement.IsZero()
}

// CalculateLiabilityDates returns the next statement and due dates for a
// liability billed on statementDay and due on dueDay, seen from current.
//
// A statementDay of 0 means the liability has no statement date; only the due
// date is computed then. Days past the end of a month are clamped to its last
// day (31 in February gives the 28th or 29th).
func CalculateLiabilityDates(current time.Time, dueDay, statementDay int) LiabilityDates {
	day := current.Day()

	if statementDay == 0 {
		offset := 0
		if day > dueDay {
			offset = 1
		}
		return newLiabilityDates(time.Time{}, dayInMonth(current, offset, dueDay))
	}

	// Due date lands in the month after the statement when the statement day
	// does not precede the due day (e.g. statement on the 28th, due on the 5th).
	dueLag := 0
	if statementDay >= dueDay {
		dueLag = 1
	}

	// The statement rolls over only once the whole cycle has elapsed. Between
	// statement and due day the statement stays in the current month since
	// its payment is still pending.
	stmtOffset := 0
	if day > statementDay && day > dueDay {
		stmtOffset = 1
	}

	return newLiabilityDates(
		dayInMonth(current, stmtOffset, statementDay),
		dayInMonth(current, stmtOffset+dueLag, dueDay),
	)
}

func newLiabilityDates(statement, due time.Time) LiabilityDates {
	d := LiabilityDates{
		Statement: statement,
		Due:       due,
		DueDate:   due.Format(core.DMYLayout),
	}
	if !statement.IsZero() {
		d.StatementDate = statement.Format(core.DMYLayout)
	}
	return d
}

// dayInMonth returns the given day of the month offset months after ref's
// month, clamped to that month's last day. Days below 1 are left to
// time.Date, so day 0 is the last day of the previous month.
func dayInMonth(ref time.Time, offset, day int) time.Time {
	first := time.Date(ref.Year(), ref.Month()+time.Month(offset), 1, 0, 0, 0, 0, time.UTC)
	lastDay := time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}
