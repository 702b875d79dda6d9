package http

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/shopspring/decimal"

	"finboard/internal/core"
	"finboard/internal/finance"
)

type liabilityDatesRequest struct {
	Date         string `json:"date"` // YYYY-MM-DD, today when empty
	DueDay       int    `json:"dueDay"`
	StatementDay int    `json:"statementDay"`
}

type totalRequest struct {
	Amounts map[string]decimal.Decimal `json:"amounts"`
	Rates   map[string]decimal.Decimal `json:"rates"`
}

type totalResponse struct {
	Total   decimal.Decimal `json:"total"`
	Missing []string        `json:"missing"`
}

type pairwiseRequest struct {
	DueTotals map[string]decimal.Decimal `json:"dueTotals"`
}

type pairwiseResponse struct {
	Payable map[string]decimal.Decimal `json:"payable"`
}

func (s *Server) handleCalcLiabilityDates(w http.ResponseWriter, r *http.Request) {
	var req liabilityDatesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ref := s.now()
	if req.Date != "" {
		d, err := core.ParseDate(req.Date)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: date must be YYYY-MM-DD", errBadRequest))
			return
		}
		ref = d.Time
	}
	if req.DueDay < 1 || req.DueDay > 31 || req.StatementDay < 0 || req.StatementDay > 31 {
		writeError(w, r, core.ErrInvalidDay)
		return
	}

	writeJSON(w, http.StatusOK, finance.CalculateLiabilityDates(ref, req.DueDay, req.StatementDay))
}

func (s *Server) handleCalcTotal(w http.ResponseWriter, r *http.Request) {
	var req totalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	amounts := make(finance.CurrencyAmounts, len(req.Amounts))
	for code, amount := range req.Amounts {
		amounts.Add(core.NormalizeCurrency(code), amount)
	}
	rates := make(finance.ExchangeRates, len(req.Rates))
	for _, code := range sortedKeys(req.Rates) {
		rates[core.NormalizeCurrency(code)] = req.Rates[code]
	}

	conv := finance.ConvertToBase(amounts, rates)
	missing := conv.Missing
	if missing == nil {
		missing = []string{}
	}
	writeJSON(w, http.StatusOK, totalResponse{Total: conv.Total.Round(core.AmountPlaces), Missing: missing})
}

func (s *Server) handleCalcPairwise(w http.ResponseWriter, r *http.Request) {
	var req pairwiseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pairwiseResponse{Payable: finance.PairwisePayable(req.DueTotals)})
}

func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
