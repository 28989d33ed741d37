// Package mocks provides HTTP mock servers for external APIs used in E2E tests.
package mocks

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// MockServer provides configurable mock responses for all external APIs.
type MockServer struct {
	mu     sync.RWMutex
	server *httptest.Server

	// Response configurations
	chatReplies []ChatReply
	chatCalls   int
	alpacaBars  []AlpacaBar
	overview    *AlphaVantageOverview
	quote       *AlphaVantageQuote

	// Error injection
	chatError         *APIError
	alpacaError       *APIError
	alphaVantageError string

	// Request tracking for assertions
	requestLog []RequestLog
}

// RequestLog records incoming requests for test assertions.
type RequestLog struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// NewMockServer creates a new mock server with default responses.
func NewMockServer() *MockServer {
	m := &MockServer{
		requestLog: make([]RequestLog, 0),
	}
	m.setDefaults()
	m.server = httptest.NewServer(m)
	return m
}

// URL returns the mock server's base URL.
func (m *MockServer) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockServer) Close() {
	m.server.Close()
}

// ServeHTTP implements http.Handler to route requests to appropriate mock handlers.
func (m *MockServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body := ""
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
	}

	m.mu.Lock()
	m.requestLog = append(m.requestLog, RequestLog{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Body:   body,
	})
	m.mu.Unlock()

	path := r.URL.Path

	// Route to appropriate handler based on path
	switch {
	case strings.HasSuffix(path, "/chat/completions"):
		m.handleChatCompletion(w, body)
	case strings.HasPrefix(path, "/v2/stocks") && strings.HasSuffix(path, "/bars"):
		m.handleAlpacaBars(w, r)
	case path == "/query":
		m.handleAlphaVantage(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// GetRequestLog returns all logged requests for assertions.
func (m *MockServer) GetRequestLog() []RequestLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RequestLog{}, m.requestLog...)
}

// RequestsTo returns the logged requests whose path ends with suffix.
func (m *MockServer) RequestsTo(suffix string) []RequestLog {
	var out []RequestLog
	for _, r := range m.GetRequestLog() {
		if strings.HasSuffix(r.Path, suffix) {
			out = append(out, r)
		}
	}
	return out
}

// ClearRequestLog clears the request log.
func (m *MockServer) ClearRequestLog() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestLog = make([]RequestLog, 0)
}

// SetChatReplies scripts the model's turns. The last reply repeats once the
// script runs out.
func (m *MockServer) SetChatReplies(replies ...ChatReply) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chatReplies = replies
	m.chatCalls = 0
}

// SetChatError makes every chat completion fail with the given status.
func (m *MockServer) SetChatError(err *APIError) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chatError = err
}

// SetAlpacaBars configures the daily bars response.
func (m *MockServer) SetAlpacaBars(bars []AlpacaBar) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alpacaBars = bars
}

// SetAlpacaError configures Alpaca to return an error.
func (m *MockServer) SetAlpacaError(err *APIError) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alpacaError = err
}

// SetAlphaVantage configures the overview and quote responses.
func (m *MockServer) SetAlphaVantage(overview *AlphaVantageOverview, quote *AlphaVantageQuote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overview = overview
	m.quote = quote
}

// SetAlphaVantageRateLimit makes Alpha Vantage answer with a rate limit note.
func (m *MockServer) SetAlphaVantageRateLimit(note string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alphaVantageError = note
}

func (m *MockServer) setDefaults() {
	m.chatReplies = []ChatReply{
		{ToolCalls: []ToolCall{{ID: "call_1", Name: "get_stock_price", Arguments: `{"ticker":"AAPL"}`}}},
		{Content: "AAPL closed at $172.10, near the top of its 30 day range. Recommendation: BUY."},
	}

	start := time.Date(2024, 5, 1, 4, 0, 0, 0, time.UTC)
	closes := []float64{168.2, 169.9, 170.4, 171.3, 172.1}
	m.alpacaBars = make([]AlpacaBar, len(closes))
	for i, c := range closes {
		m.alpacaBars[i] = AlpacaBar{
			Timestamp:  start.AddDate(0, 0, i).Format(time.RFC3339),
			Open:       c - 0.5,
			High:       c + 1.0,
			Low:        c - 1.5,
			Close:      c,
			Volume:     50_000_000,
			TradeCount: 600_000,
			VWAP:       c,
		}
	}

	m.overview = &AlphaVantageOverview{
		Symbol:        "AAPL",
		Name:          "Apple Inc",
		Currency:      "USD",
		MarketCap:     "2650000000000",
		PERatio:       "28.5",
		DividendYield: "0.0055",
		Week52High:    "199.62",
		Week52Low:     "164.08",
	}
	m.quote = &AlphaVantageQuote{
		Symbol:    "AAPL",
		Price:     "172.10",
		Volume:    "52000000",
		PrevClose: "171.30",
	}
}

func (m *MockServer) handleChatCompletion(w http.ResponseWriter, body string) {
	m.mu.Lock()
	apiErr := m.chatError
	var reply ChatReply
	if len(m.chatReplies) > 0 {
		idx := m.chatCalls
		if idx >= len(m.chatReplies) {
			idx = len(m.chatReplies) - 1
		}
		reply = m.chatReplies[idx]
	}
	m.chatCalls++
	call := m.chatCalls
	m.mu.Unlock()

	if apiErr != nil {
		writeJSON(w, apiErr.Status, map[string]any{
			"error": map[string]any{
				"message": apiErr.Message,
				"type":    "invalid_request_error",
				"code":    nil,
			},
		})
		return
	}

	var req struct {
		Model string `json:"model"`
	}
	_ = json.Unmarshal([]byte(body), &req)

	message := map[string]any{"role": "assistant", "content": reply.Content}
	finishReason := "stop"
	if len(reply.ToolCalls) > 0 {
		calls := make([]map[string]any, len(reply.ToolCalls))
		for i, tc := range reply.ToolCalls {
			calls[i] = map[string]any{
				"id":   tc.ID,
				"type": "function",
				"function": map[string]any{
					"name":      tc.Name,
					"arguments": tc.Arguments,
				},
			}
		}
		message["content"] = nil
		message["tool_calls"] = calls
		finishReason = "tool_calls"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":      fmt.Sprintf("chatcmpl-%d", call),
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   req.Model,
		"choices": []map[string]any{{
			"index":         0,
			"message":       message,
			"finish_reason": finishReason,
		}},
		"usage": map[string]any{
			"prompt_tokens":     100,
			"completion_tokens": 20,
			"total_tokens":      120,
		},
	})
}

func (m *MockServer) handleAlpacaBars(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	apiErr := m.alpacaError
	bars := m.alpacaBars
	m.mu.RUnlock()

	if apiErr != nil {
		writeJSON(w, apiErr.Status, map[string]any{"message": apiErr.Message})
		return
	}

	symbol, multi := alpacaSymbol(r)
	if multi {
		writeJSON(w, http.StatusOK, map[string]any{
			"bars":            map[string]any{symbol: bars},
			"next_page_token": nil,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":          symbol,
		"bars":            bars,
		"next_page_token": nil,
	})
}

func (m *MockServer) handleAlphaVantage(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	note := m.alphaVantageError
	overview := m.overview
	quote := m.quote
	m.mu.RUnlock()

	if note != "" {
		writeJSON(w, http.StatusOK, map[string]any{"Note": note})
		return
	}

	switch r.URL.Query().Get("function") {
	case "OVERVIEW":
		if overview == nil {
			writeJSON(w, http.StatusOK, map[string]any{})
			return
		}
		writeJSON(w, http.StatusOK, overview)
	case "GLOBAL_QUOTE":
		if quote == nil {
			writeJSON(w, http.StatusOK, map[string]any{"Global Quote": map[string]any{}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"Global Quote": quote})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"Error Message": "Invalid API call."})
	}
}

// alpacaSymbol extracts the symbol from either the multi-symbol endpoint
// (/v2/stocks/bars?symbols=X) or the single-symbol one (/v2/stocks/X/bars).
func alpacaSymbol(r *http.Request) (string, bool) {
	if symbols := r.URL.Query().Get("symbols"); symbols != "" {
		return strings.Split(symbols, ",")[0], true
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// v2 stocks {symbol} bars
	if len(parts) >= 4 && parts[2] != "bars" {
		return parts[2], false
	}
	return "AAPL", true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
