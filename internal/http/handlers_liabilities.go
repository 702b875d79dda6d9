package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"finboard/internal/core"
	"finboard/internal/services"
)

type liabilityJSON struct {
	ID           string          `json:"id,omitempty"`
	Name         string          `json:"name"`
	Currency     string          `json:"currency"`
	Balance      decimal.Decimal `json:"balance"`
	DueDay       int             `json:"dueDay"`
	StatementDay int             `json:"statementDay,omitempty"`
}

type scheduleJSON struct {
	liabilityJSON
	StatementDate string `json:"statementDate,omitempty"`
	DueDate       string `json:"dueDate"`
	DaysLeft      int    `json:"daysLeft"`
}

func toLiabilityJSON(l core.Liability) liabilityJSON {
	return liabilityJSON{
		ID:           l.ID,
		Name:         l.Name,
		Currency:     l.Currency,
		Balance:      l.Balance,
		DueDay:       l.DueDay,
		StatementDay: l.StatementDay,
	}
}

func toScheduleJSON(sc services.LiabilitySchedule) scheduleJSON {
	return scheduleJSON{
		liabilityJSON: toLiabilityJSON(sc.Liability),
		StatementDate: sc.Dates.StatementDate,
		DueDate:       sc.Dates.DueDate,
		DaysLeft:      sc.DaysLeft,
	}
}

// handleListLiabilities lists every liability with its schedule at ?date=.
func (s *Server) handleListLiabilities(w http.ResponseWriter, r *http.Request) {
	ref, err := s.referenceDate(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	schedules, err := s.liabilities.Schedules(r.Context(), ref)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]scheduleJSON, 0, len(schedules))
	for _, sc := range schedules {
		out = append(out, toScheduleJSON(sc))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateLiability(w http.ResponseWriter, r *http.Request) {
	var req liabilityJSON
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	l, err := s.liabilities.Create(r.Context(), core.Liability{
		Name:         req.Name,
		Currency:     req.Currency,
		Balance:      req.Balance,
		DueDay:       req.DueDay,
		StatementDay: req.StatementDay,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLiabilityJSON(l))
}

func (s *Server) handleGetLiability(w http.ResponseWriter, r *http.Request) {
	l, err := s.liabilities.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLiabilityJSON(l))
}

func (s *Server) handleDeleteLiability(w http.ResponseWriter, r *http.Request) {
	if err := s.liabilities.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLiabilityDates(w http.ResponseWriter, r *http.Request) {
	ref, err := s.referenceDate(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sc, err := s.liabilities.Schedule(r.Context(), mux.Vars(r)["id"], ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleJSON(sc))
}
