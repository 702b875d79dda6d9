package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finboard/internal/finance"
)

func TestStore_ExportSettlementAccumulates(t *testing.T) {
	s := New()
	settlement := finance.Summarize([]finance.SharedObligation{
		{Counterparty: "alice", Currency: "EUR", Share: decimal.NewFromInt(10), Remaining: decimal.NewFromInt(10)},
	}, finance.ExchangeRates{"EUR": decimal.NewFromInt(1)})

	for i := 0; i < 2; i++ {
		n, err := s.ExportSettlement(context.Background(), "EUR", settlement, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
		if err != nil {
			t.Fatalf("ExportSettlement() error = %v", err)
		}
		if n != 1 {
			t.Errorf("rows written = %d, want 1", n)
		}
	}

	rows := s.Rows()
	if len(rows) != 2 {
		t.Fatalf("stored rows = %d, want 2", len(rows))
	}
	if rows[0][1] != "alice" || rows[0][4] != "10.00" {
		t.Errorf("unexpected row: %v", rows[0])
	}

	rows[0][1] = "mutated"
	if s.Rows()[0][1] != "alice" {
		t.Error("Rows() must return a copy")
	}
}
