// Package main provides a standalone HTTP server for E2E testing.
// It serves the same routes as cmd/server, with OpenAI, Alpaca market data
// and Alpha Vantage replaced by an in-process mock, so no API keys or
// network access are needed.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"stock-agent/config"
	"stock-agent/e2e/mocks"
	"stock-agent/internal/api"
	"stock-agent/internal/app"
	"stock-agent/observability"
)

func main() {
	observability.InitFromConfig("text", "debug")
	observability.InitMetrics()

	port := 9090
	if v := os.Getenv("E2E_SERVER_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			observability.Fatal("invalid E2E_SERVER_PORT", "value", v, "error", err)
		}
		port = p
	}

	mock := mocks.NewMockServer()
	defer mock.Close()
	observability.Info("mock upstreams started", "url", mock.URL())

	cfg := config.NewTestConfig()
	cfg.HTTP.Port = port
	cfg.OpenAI.BaseURL = mock.URL() + "/v1/"
	cfg.MarketData.Provider = config.MarketDataAlpaca
	cfg.Alpaca.APIKey = "e2e-key"
	cfg.Alpaca.APISecret = "e2e-secret"
	cfg.Alpaca.DataURL = mock.URL()
	cfg.AlphaVantage.APIKey = "e2e-av-key"
	cfg.AlphaVantage.BaseURL = mock.URL() + "/query"
	cfg.Agent.TimeoutSeconds = 30

	application, err := app.NewFromConfig(context.Background(), cfg)
	if err != nil {
		observability.Fatal("failed to initialize application", "error", err)
	}

	handler := api.NewHandler(application, cfg)
	router := api.NewRouter(handler, cfg)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.AgentTimeout() + 10*time.Second,
	}

	go func() {
		observability.Info("starting E2E test server", "addr", cfg.Addr(), "url", fmt.Sprintf("http://localhost:%d", port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			observability.Fatal("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	observability.Info("shutting down E2E test server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		observability.Fatal("server forced to shutdown", "error", err)
	}
	observability.Info("E2E test server stopped")
}
