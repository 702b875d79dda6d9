package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finboard/internal/cache"
	"finboard/internal/cli"
	apphttp "finboard/internal/http"
	applog "finboard/internal/log"
	"finboard/internal/services"
	"finboard/internal/sheets"
	gsheet "finboard/internal/sheets/google"
)

func main() {
	cfg, logger := cli.LoadConfig(applog.ComponentApp)
	logger.Info("Starting finboard", "port", cfg.Port, applog.FieldBaseCurrency, cfg.BaseCurrency)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	rates, closeRedis := cli.InitRateService(ctx, logger, cfg, repo)
	defer closeRedis()

	cacheManager := cache.NewManager()
	reports := cache.NewLRUCache[services.SettlementReport](cfg.SummaryCacheSize, cfg.SummaryCacheTTL)
	cacheManager.Register(reports)
	cacheManager.StartCleanup(time.Minute)
	defer cacheManager.Stop()

	var exporter sheets.SettlementExporter
	if cfg.SheetsEnabled() {
		e, err := gsheet.NewExporter(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSettlementSheet,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets exporter", applog.FieldError, err)
			os.Exit(1)
		}
		exporter = e
	} else {
		logger.Info("Settlement export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	settlements := services.NewSettlementService(repo, rates, cfg.BaseCurrency, reports, exporter)
	rates.OnChange(func(base string) {
		settlements.Invalidate()
		logger.Debug("Settlement cache invalidated", applog.FieldBaseCurrency, base)
	})
	go func() {
		if err := rates.WatchRemoteChanges(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("Stopped watching remote rate changes; settlements refresh on SUMMARY_CACHE_TTL only",
				applog.FieldError, err)
		}
	}()

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Dependencies{
		Liabilities: services.NewLiabilityService(repo),
		Settlements: settlements,
		Rates:       rates,
	}, logger)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		logger.Error("HTTP server failed", applog.FieldError, err)
	}

	logger.Info("Shutting down server...", applog.FieldOperation, applog.OpShutdown)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", applog.FieldError, err)
	}
	logger.Info("Server stopped")
}
