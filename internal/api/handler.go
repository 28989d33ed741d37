package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"stock-agent/config"
	"stock-agent/observability"
	"stock-agent/services"
)

// maxBodyBytes caps the request body for POST /stock-info
const maxBodyBytes = 1 << 20

// RecommendationService is the application surface the handlers need
type RecommendationService interface {
	GetStockRecommendation(ctx context.Context, ticker, model string) (string, error)
	BreakerStatus() map[string]services.CircuitBreakerStatus
}

// Handler handles HTTP API requests
type Handler struct {
	app RecommendationService
	cfg *config.Config
}

// NewHandler creates a new Handler
func NewHandler(application RecommendationService, cfg *config.Config) *Handler {
	return &Handler{app: application, cfg: cfg}
}

// StockRequest is the body of POST /stock-info
type StockRequest struct {
	Ticker string  `json:"ticker"`
	Model  *string `json:"model,omitempty"`
}

// StockResponse is the success body of POST /stock-info
type StockResponse struct {
	Response string `json:"response"`
}

// ValidationError is one entry of a 422 response
type ValidationError struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

// HandleIndex describes the API
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	example := fmt.Sprintf(`curl -X POST "http://localhost:%d/stock-info" -H "Content-Type: application/json" -d '{"ticker": "AAPL"}'`, h.cfg.HTTP.Port)

	h.jsonResponse(w, http.StatusOK, map[string]any{
		"message": "Welcome to the Stock Market AI Agent API",
		"endpoints": map[string]string{
			"/stock-info": "POST - Get stock information and recommendation",
		},
		"example": map[string]any{
			"request": map[string]string{"ticker": "AAPL", "model": "gpt-3.5-turbo"},
			"curl":    example,
		},
	})
}

// HandleStockInfo runs the recommendation agent for the requested ticker
func (h *Handler) HandleStockInfo(w http.ResponseWriter, r *http.Request) {
	req, problems := decodeStockRequest(io.LimitReader(r.Body, maxBodyBytes))
	if len(problems) > 0 {
		h.jsonResponse(w, http.StatusUnprocessableEntity, map[string]any{"detail": problems})
		return
	}

	model := ""
	if req.Model != nil {
		model = *req.Model
	}

	logger := observability.WithContext(r.Context())
	logger.Info("stock info requested", "ticker", req.Ticker, "model", model)

	result, err := h.app.GetStockRecommendation(r.Context(), req.Ticker, model)
	if err != nil {
		logger.Error("stock info failed", "ticker", req.Ticker, "error", err)
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, http.StatusOK, StockResponse{Response: result})
}

// decodeStockRequest parses and type-checks the body, collecting every problem.
// Only types are checked; an empty ticker is passed through.
func decodeStockRequest(body io.Reader) (*StockRequest, []ValidationError) {
	dec := json.NewDecoder(body)

	var fields map[string]json.RawMessage
	if err := dec.Decode(&fields); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, []ValidationError{{Loc: []any{"body"}, Msg: "value is not a valid dict", Type: "type_error.dict"}}
		}
		return nil, []ValidationError{{Loc: []any{"body"}, Msg: err.Error(), Type: "value_error.jsondecode"}}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, []ValidationError{{Loc: []any{"body"}, Msg: "unexpected data after JSON object", Type: "value_error.jsondecode"}}
	}
	if fields == nil {
		return nil, []ValidationError{{Loc: []any{"body"}, Msg: "value is not a valid dict", Type: "type_error.dict"}}
	}

	req := &StockRequest{}
	var problems []ValidationError

	raw, ok := fields["ticker"]
	switch {
	case !ok || isJSONNull(raw):
		problems = append(problems, ValidationError{Loc: []any{"body", "ticker"}, Msg: "field required", Type: "value_error.missing"})
	case json.Unmarshal(raw, &req.Ticker) != nil:
		problems = append(problems, ValidationError{Loc: []any{"body", "ticker"}, Msg: "str type expected", Type: "type_error.str"})
	}

	if raw, ok := fields["model"]; ok && !isJSONNull(raw) {
		var model string
		if err := json.Unmarshal(raw, &model); err != nil {
			problems = append(problems, ValidationError{Loc: []any{"body", "model"}, Msg: "str type expected", Type: "type_error.str"})
		} else {
			req.Model = &model
		}
	}

	if len(problems) > 0 {
		return nil, problems
	}
	return req, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

// HandleHealth returns the health status of the application
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	cbStatus := h.app.BreakerStatus()

	status := "ok"
	for _, cb := range cbStatus {
		if cb.State == "open" {
			status = "degraded"
			break
		}
	}

	h.jsonResponse(w, http.StatusOK, map[string]any{
		"status":           status,
		"circuit_breakers": cbStatus,
	})
}

func (h *Handler) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	h.jsonResponse(w, status, map[string]string{"detail": message})
}
