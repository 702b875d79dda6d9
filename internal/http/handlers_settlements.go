package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"finboard/internal/core"
	"finboard/internal/services"
)

type obligationJSON struct {
	ID            string          `json:"id,omitempty"`
	TransactionID string          `json:"transactionId,omitempty"`
	Counterparty  string          `json:"counterparty"`
	Currency      string          `json:"currency,omitempty"`
	Share         decimal.Decimal `json:"share"`
	Paid          decimal.Decimal `json:"paid"`
	Remaining     decimal.Decimal `json:"remaining"`
	Settled       bool            `json:"settled"`
}

type transactionRequest struct {
	Description string          `json:"description"`
	Date        string          `json:"date"` // YYYY-MM-DD
	Currency    string          `json:"currency"`
	Amount      decimal.Decimal `json:"amount"`
	Obligations []struct {
		Counterparty string          `json:"counterparty"`
		Currency     string          `json:"currency"`
		Share        decimal.Decimal `json:"share"`
		Paid         decimal.Decimal `json:"paid"`
	} `json:"obligations"`
}

type transactionResponse struct {
	ID          string           `json:"id"`
	Description string           `json:"description"`
	Date        string           `json:"date"`
	Currency    string           `json:"currency"`
	Amount      decimal.Decimal  `json:"amount"`
	Obligations []obligationJSON `json:"obligations"`
}

type paymentRequest struct {
	Amount string `json:"amount"`
}

type counterpartyJSON struct {
	Name       string                     `json:"name"`
	ShareTotal decimal.Decimal            `json:"shareTotal"`
	DueTotal   decimal.Decimal            `json:"dueTotal"`
	Payable    *decimal.Decimal           `json:"payable,omitempty"`
	Shares     map[string]decimal.Decimal `json:"shares"`
	Dues       map[string]decimal.Decimal `json:"dues"`
}

type settlementResponse struct {
	Base           string             `json:"base"`
	TransactionIDs []string           `json:"transactionIds"`
	Counterparties []counterpartyJSON `json:"counterparties"`
	Missing        []string           `json:"missing"`
	GeneratedAt    time.Time          `json:"generatedAt"`
}

type exportRequest struct {
	TransactionIDs []string `json:"transactionIds"`
	Base           string   `json:"base"`
}

func toObligationJSON(o core.Obligation) obligationJSON {
	return obligationJSON{
		ID:            o.ID,
		TransactionID: o.TransactionID,
		Counterparty:  o.Counterparty,
		Currency:      o.Currency,
		Share:         o.Share,
		Paid:          o.Paid,
		Remaining:     o.Remaining(),
		Settled:       o.Settled,
	}
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	date := core.Date{Time: s.now()}
	if req.Date != "" {
		d, err := core.ParseDate(req.Date)
		if err != nil {
			writeError(w, r, errBadRequest)
			return
		}
		date = d
	}

	t := core.SharedTransaction{
		Description: req.Description,
		Date:        date,
		Currency:    req.Currency,
		Amount:      req.Amount.Round(core.AmountPlaces),
	}
	for _, o := range req.Obligations {
		t.Obligations = append(t.Obligations, core.Obligation{
			Counterparty: o.Counterparty,
			Currency:     o.Currency,
			Share:        o.Share.Round(core.AmountPlaces),
			Paid:         o.Paid.Round(core.AmountPlaces),
		})
	}

	saved, err := s.settlements.CreateTransaction(r.Context(), t)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := transactionResponse{
		ID:          saved.ID,
		Description: saved.Description,
		Date:        saved.Date.Format("2006-01-02"),
		Currency:    saved.Currency,
		Amount:      saved.Amount,
		Obligations: make([]obligationJSON, 0, len(saved.Obligations)),
	}
	for _, o := range saved.Obligations {
		resp.Obligations = append(resp.Obligations, toObligationJSON(o))
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	o, err := s.settlements.RecordPayment(r.Context(), mux.Vars(r)["id"], amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toObligationJSON(o))
}

func (s *Server) handleSettlement(w http.ResponseWriter, r *http.Request) {
	report, err := s.settlements.Summary(r.Context(), transactionIDs(r), r.URL.Query().Get("base"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSettlementResponse(report))
}

func (s *Server) handleExportSettlement(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}

	rows, err := s.settlements.Export(r.Context(), req.TransactionIDs, req.Base, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"rows": rows})
}

func toSettlementResponse(report services.SettlementReport) settlementResponse {
	st := report.Settlement
	resp := settlementResponse{
		Base:           report.Base,
		TransactionIDs: report.TransactionIDs,
		Counterparties: make([]counterpartyJSON, 0, len(st.DueTotals)),
		Missing:        st.Missing,
		GeneratedAt:    report.GeneratedAt,
	}
	if resp.TransactionIDs == nil {
		resp.TransactionIDs = []string{}
	}
	if resp.Missing == nil {
		resp.Missing = []string{}
	}

	for _, who := range st.Counterparties() {
		cp := counterpartyJSON{
			Name:       who,
			ShareTotal: st.ShareTotals[who].Round(core.AmountPlaces),
			DueTotal:   st.DueTotals[who].Round(core.AmountPlaces),
			Shares:     st.ByCounterparty[who].Share,
			Dues:       st.ByCounterparty[who].Due,
		}
		if p, ok := st.Payable[who]; ok {
			p = p.Round(core.AmountPlaces)
			cp.Payable = &p
		}
		resp.Counterparties = append(resp.Counterparties, cp)
	}
	return resp
}
