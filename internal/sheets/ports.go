// Package sheets defines the outbound ports for spreadsheet exports.
package sheets

import (
	"context"
	"time"

	"finboard/internal/finance"
)

// SettlementExporter writes a settlement summary somewhere a human can read
// it. Implementations append one row per counterparty.
type SettlementExporter interface {
	ExportSettlement(ctx context.Context, base string, s finance.Settlement, when time.Time) (rows int, err error)
}

// SettlementRows flattens s into export rows of
// [date, counterparty, base, share total, due total, payable].
// Payable is left blank when the settlement is not two-party.
func SettlementRows(base string, s finance.Settlement, when time.Time) [][]string {
	date := when.Format("02/01/2006")
	rows := make([][]string, 0, len(s.DueTotals))
	for _, who := range s.Counterparties() {
		payable := ""
		if p, ok := s.Payable[who]; ok {
			payable = p.StringFixed(2)
		}
		rows = append(rows, []string{
			date,
			who,
			base,
			s.ShareTotals[who].StringFixed(2),
			s.DueTotals[who].StringFixed(2),
			payable,
		})
	}
	return rows
}
