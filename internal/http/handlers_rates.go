package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"finboard/internal/core"
)

type rateJSON struct {
	Currency  string          `json:"currency"`
	Rate      decimal.Decimal `json:"rate"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type ratesResponse struct {
	Base  string     `json:"base"`
	Rates []rateJSON `json:"rates"`
}

type putRateRequest struct {
	Base string `json:"base"`
	Rate string `json:"rate"`
}

func (s *Server) handleListRates(w http.ResponseWriter, r *http.Request) {
	base := r.URL.Query().Get("base")
	rates, err := s.rates.List(r.Context(), base)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if base == "" {
		base = s.rates.Base()
	}
	resp := ratesResponse{Base: core.NormalizeCurrency(base), Rates: make([]rateJSON, 0, len(rates))}
	for _, rate := range rates {
		resp.Rates = append(resp.Rates, rateJSON{Currency: rate.Currency, Rate: rate.Rate, UpdatedAt: rate.UpdatedAt})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePutRate(w http.ResponseWriter, r *http.Request) {
	var req putRateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rate, err := core.ParseRate(req.Rate)
	if err != nil {
		writeError(w, r, err)
		return
	}

	update := core.ExchangeRate{
		Base:      req.Base,
		Currency:  mux.Vars(r)["currency"],
		Rate:      rate,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.rates.ApplyUpdate(r.Context(), update); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rateJSON{
		Currency:  core.NormalizeCurrency(update.Currency),
		Rate:      rate,
		UpdatedAt: update.UpdatedAt,
	})
}
