// Package e2e provides end-to-end testing infrastructure for stock-agent.
// The harness runs the real router, agent and upstream clients against a
// local mock of OpenAI, Alpaca market data and Alpha Vantage.
package e2e

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stock-agent/config"
	"stock-agent/e2e/mocks"
	"stock-agent/internal/api"
	"stock-agent/internal/app"
	"stock-agent/services"
)

// TestHarness provides the infrastructure for running E2E tests.
type TestHarness struct {
	t          *testing.T
	ctx        context.Context
	cancel     context.CancelFunc
	mockServer *mocks.MockServer
	app        *app.App
	router     http.Handler
	config     *config.Config
}

// NewTestHarness creates a new test harness. Configure the mock server and
// config overrides before calling Setup.
func NewTestHarness(t *testing.T) *TestHarness {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)

	h := &TestHarness{
		t:          t,
		ctx:        ctx,
		cancel:     cancel,
		mockServer: mocks.NewMockServer(),
	}
	h.config = h.createTestConfig()

	return h
}

// Setup wires the application against the mock server.
func (h *TestHarness) Setup() error {
	// Breaker state must not leak between scenarios
	services.SetGlobalRegistry(services.NewDefaultCircuitBreakerRegistry())

	var err error
	h.app, err = app.NewFromConfig(h.ctx, h.config)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	handler := api.NewHandler(h.app, h.config)
	h.router = api.NewRouter(handler, h.config)

	return nil
}

// Teardown cleans up all test resources.
func (h *TestHarness) Teardown() {
	if h.cancel != nil {
		h.cancel()
	}

	if h.mockServer != nil {
		h.mockServer.Close()
	}
}

// Context returns the test context.
func (h *TestHarness) Context() context.Context {
	return h.ctx
}

// MockServer returns the mock server for configuring responses.
func (h *TestHarness) MockServer() *mocks.MockServer {
	return h.mockServer
}

// App returns the application instance.
func (h *TestHarness) App() *app.App {
	return h.app
}

// Router returns the HTTP router for making requests.
func (h *TestHarness) Router() http.Handler {
	return h.router
}

// Config returns the test configuration. Changes take effect on Setup.
func (h *TestHarness) Config() *config.Config {
	return h.config
}

// DoRequest performs an HTTP request and returns the response.
func (h *TestHarness) DoRequest(method, path string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req = req.WithContext(h.ctx)

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *TestHarness) createTestConfig() *config.Config {
	mockURL := h.mockServer.URL()

	cfg := config.NewTestConfig()

	// Point every upstream at the mock server
	cfg.OpenAI.BaseURL = mockURL + "/v1/"
	cfg.MarketData.Provider = config.MarketDataAlpaca
	cfg.Alpaca.APIKey = "e2e-key"
	cfg.Alpaca.APISecret = "e2e-secret"
	cfg.Alpaca.DataURL = mockURL
	cfg.AlphaVantage.APIKey = "e2e-av-key"
	cfg.AlphaVantage.BaseURL = mockURL + "/query"
	cfg.Agent.TimeoutSeconds = 30

	return cfg
}
