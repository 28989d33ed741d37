// Package main runs the stock recommendation HTTP API.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stock-agent/config"
	"stock-agent/internal/api"
	"stock-agent/internal/app"
	"stock-agent/observability"

	"github.com/joho/godotenv"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		observability.Fatal("failed to load config", "error", err)
	}

	observability.InitFromConfig(cfg.Log.Format, cfg.Log.Level)
	observability.InitMetrics()
	if envErr != nil {
		observability.Info("no .env file found, using environment variables")
	}

	application, err := app.NewFromConfig(context.Background(), cfg)
	if err != nil {
		observability.Fatal("failed to initialize application", "provider", cfg.LLM.Provider, "error", err)
	}

	handler := api.NewHandler(application, cfg)
	router := api.NewRouter(handler, cfg)

	// Write timeout leaves room for a full agent episode
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.AgentTimeout() + 10*time.Second,
	}

	go func() {
		observability.Info("starting server",
			"addr", cfg.Addr(),
			"llm_provider", cfg.LLM.Provider,
			"default_model", cfg.LLM.DefaultModel,
			"market_data", cfg.MarketData.Provider)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			observability.Fatal("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	observability.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		observability.Fatal("server forced to shutdown", "error", err)
	}
	observability.Info("server stopped")
}
