// Package http exposes the finance calculations and stored data as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	applog "finboard/internal/log"
	"finboard/internal/services"
)

// Dependencies are the services behind the API.
type Dependencies struct {
	Liabilities *services.LiabilityService
	Settlements *services.SettlementService
	Rates       *services.RateService
}

type Server struct {
	http.Server
	liabilities *services.LiabilityService
	settlements *services.SettlementService
	rates       *services.RateService

	rateLimiter  *rateLimiter
	metrics      securityMetrics
	now          func() time.Time
	shutdownOnce sync.Once
}

// NewServer wires the routes and middleware into a ready-to-run http.Server.
func NewServer(addr string, deps Dependencies, logger *applog.Logger) *Server {
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		liabilities: deps.Liabilities,
		settlements: deps.Settlements,
		rates:       deps.Rates,
		rateLimiter: newRateLimiter(60),
		now:         time.Now,
	}
	go s.rateLimiter.startCleanup()

	r := mux.NewRouter()
	r.Use(applog.RequestLogger(logger, generateRequestID))
	r.Use(s.withSecurity)

	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/calc/liability-dates", s.handleCalcLiabilityDates).Methods(http.MethodPost)
	api.HandleFunc("/calc/total", s.handleCalcTotal).Methods(http.MethodPost)
	api.HandleFunc("/calc/pairwise", s.handleCalcPairwise).Methods(http.MethodPost)

	api.HandleFunc("/liabilities", s.handleListLiabilities).Methods(http.MethodGet)
	api.HandleFunc("/liabilities", s.handleCreateLiability).Methods(http.MethodPost)
	api.HandleFunc("/liabilities/{id}", s.handleGetLiability).Methods(http.MethodGet)
	api.HandleFunc("/liabilities/{id}", s.handleDeleteLiability).Methods(http.MethodDelete)
	api.HandleFunc("/liabilities/{id}/dates", s.handleLiabilityDates).Methods(http.MethodGet)

	api.HandleFunc("/transactions", s.handleCreateTransaction).Methods(http.MethodPost)
	api.HandleFunc("/obligations/{id}/payments", s.handleRecordPayment).Methods(http.MethodPost)

	api.HandleFunc("/rates", s.handleListRates).Methods(http.MethodGet)
	api.HandleFunc("/rates/{currency}", s.handlePutRate).Methods(http.MethodPut)

	api.HandleFunc("/settlements", s.handleSettlement).Methods(http.MethodGet)
	api.HandleFunc("/settlements/export", s.handleExportSettlement).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})

	s.Handler = r
	return s
}

// Shutdown stops background cleanup and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
