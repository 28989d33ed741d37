package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/form"
)

const (
	yahooHTTPTimeout = 30 * time.Second
	yahooUserAgent   = "Mozilla/5.0 (compatible; stock-agent/1.0)"
	maxYahooBody     = 4 << 20
)

// YahooStatusError is a failed Yahoo response that carried no error envelope
// we pass through
type YahooStatusError struct {
	StatusCode int
	Body       string
}

func (e *YahooStatusError) Error() string {
	return fmt.Sprintf("yahoo: HTTP %d: %s", e.StatusCode, e.Body)
}

// yahooBackend is a finance.Backend over our own HTTP client. Unlike the
// stock backend it keeps the body of a 404 so the chart client can surface
// Yahoo's "Not Found" error for unknown symbols.
type yahooBackend struct {
	config *finance.BackendConfiguration
}

func newYahooBackend(baseURL string, client *http.Client) *yahooBackend {
	if baseURL == "" {
		baseURL = finance.YFinURL
	}
	if client == nil {
		client = &http.Client{Timeout: yahooHTTPTimeout}
	}
	return &yahooBackend{
		config: &finance.BackendConfiguration{
			Type:       finance.YFinBackend,
			URL:        strings.TrimRight(baseURL, "/"),
			HTTPClient: client,
		},
	}
}

// yahooEnvelope matches the {"<api>": {"result": ..., "error": ...}} shape
// every Yahoo endpoint answers with
type yahooEnvelope map[string]struct {
	Result json.RawMessage     `json:"result"`
	Error  *finance.YfinError `json:"error"`
}

// Call implements finance.Backend
func (b *yahooBackend) Call(path string, body *form.Values, ctx *context.Context, v interface{}) error {
	if body != nil && !body.Empty() {
		path += "?" + body.Encode()
	}

	req, err := b.config.NewRequest(http.MethodGet, path, ctx)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", yahooUserAgent)
	req.Header.Set("Accept", "application/json")

	res, err := b.config.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxYahooBody))
	if err != nil {
		return err
	}

	var env yahooEnvelope
	envErr := json.Unmarshal(data, &env)

	if res.StatusCode >= 400 {
		if res.StatusCode == http.StatusNotFound && envErr == nil && env.yfinError() != nil {
			return decodeInto(data, v)
		}
		return &YahooStatusError{StatusCode: res.StatusCode, Body: snippet(data)}
	}

	// The chart client indexes the first result without a length check
	if chart, ok := env["chart"]; ok && chart.Error == nil && isEmptyJSONList(chart.Result) {
		return &finance.YfinError{Code: "Not Found", Description: "No data found"}
	}

	return decodeInto(data, v)
}

func (env yahooEnvelope) yfinError() *finance.YfinError {
	for _, inner := range env {
		if inner.Error != nil {
			return inner.Error
		}
	}
	return nil
}

func decodeInto(data []byte, v interface{}) error {
	if v == nil {
		return nil
	}
	return json.Unmarshal(data, v)
}

func isEmptyJSONList(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null" || s == "[]"
}

func snippet(data []byte) string {
	s := strings.TrimSpace(string(data))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// isYahooNotFound reports whether err is Yahoo saying it has no data for the symbol
func isYahooNotFound(err error) bool {
	yfinErr, ok := asYfinError(err)
	if !ok {
		return false
	}
	return strings.EqualFold(yfinErr.Code, "Not Found") ||
		strings.Contains(strings.ToLower(yfinErr.Description), "no data found")
}
