package cli

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"finboard/internal/config"
	applog "finboard/internal/log"
)

func testConfig(t *testing.T) *config.Config {
	t.Setenv("SQLITE_DB_PATH", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("AMQP_URL", "")
	return config.Load()
}

func TestSetupLogger_JSON(t *testing.T) {
	cfg := testConfig(t)
	cfg.LogFormat = "json"
	logger := SetupLogger(cfg, applog.ComponentWorker)
	if logger.Component() != applog.ComponentWorker {
		t.Errorf("component = %q, want %q", logger.Component(), applog.ComponentWorker)
	}
}

func TestInitRateService_WithoutRedis(t *testing.T) {
	cfg := testConfig(t)
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Output: &buf})

	repo := InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	rates, cleanup := InitRateService(context.Background(), logger, cfg, repo)
	defer cleanup()

	got, err := rates.Rates(context.Background(), "")
	if err != nil {
		t.Fatalf("Rates() error = %v", err)
	}
	if len(got) != 1 || !got[cfg.BaseCurrency].Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected only the base currency at rate 1, got %v", got)
	}
	if !bytes.Contains(buf.Bytes(), []byte("Redis rate cache disabled")) {
		t.Errorf("expected disabled message in log, got %s", buf.String())
	}
}

func TestInitAMQP_Disabled(t *testing.T) {
	cfg := testConfig(t)
	logger := applog.New(applog.Config{Output: io.Discard})
	if client := InitAMQP(logger, cfg, true); client != nil {
		t.Error("expected nil client without AMQP_URL")
	}
}

func TestSignalContext_Cancel(t *testing.T) {
	logger := applog.New(applog.Config{Output: io.Discard})
	ctx, cancel := SignalContext(logger)
	cancel()
	<-ctx.Done()
}
