package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/openai/openai-go"
	"github.com/sony/gobreaker/v2"

	"stock-agent/observability"
)

// Circuit breaker names for external services
const (
	BreakerOpenAI       = "openai"
	BreakerBedrock      = "bedrock"
	BreakerYahoo        = "yahoo"
	BreakerAlpaca       = "alpaca"
	BreakerAlphaVantage = "alphavantage"
)

// BreakerPolicy tunes the breaker in front of one upstream
type BreakerPolicy struct {
	MaxRequests  uint32        // trial calls allowed while half-open
	Interval     time.Duration // closed-state window after which counts reset
	Timeout      time.Duration // how long the breaker stays open before letting trial calls through
	MinRequests  uint32        // window size below which the breaker never trips
	FailureRatio float64       // share of upstream failures that trips the breaker
}

// DefaultBreakerPolicy applies to upstreams without an entry in DefaultBreakerPolicies
var DefaultBreakerPolicy = BreakerPolicy{
	MaxRequests:  3,
	Interval:     time.Minute,
	Timeout:      30 * time.Second,
	MinRequests:  5,
	FailureRatio: 0.5,
}

// DefaultBreakerPolicies holds per-upstream policies.
// Yahoo is an unofficial endpoint with bursty transient errors, so it needs a
// larger window. Alpha Vantage rate limits per minute, so it stays open longer.
var DefaultBreakerPolicies = map[string]BreakerPolicy{
	BreakerOpenAI:  {MaxRequests: 2, Interval: time.Minute, Timeout: 30 * time.Second, MinRequests: 5, FailureRatio: 0.5},
	BreakerBedrock: {MaxRequests: 2, Interval: time.Minute, Timeout: 30 * time.Second, MinRequests: 5, FailureRatio: 0.5},
	BreakerYahoo:   {MaxRequests: 3, Interval: 2 * time.Minute, Timeout: time.Minute, MinRequests: 10, FailureRatio: 0.6},
	BreakerAlpaca:  {MaxRequests: 3, Interval: time.Minute, Timeout: 30 * time.Second, MinRequests: 5, FailureRatio: 0.5},
	BreakerAlphaVantage: {MaxRequests: 1, Interval: 5 * time.Minute, Timeout: time.Minute, MinRequests: 3, FailureRatio: 0.5},
}

// CircuitBreakerRegistry holds one breaker per upstream, created on first use
type CircuitBreakerRegistry struct {
	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
	fallback BreakerPolicy
	policies map[string]BreakerPolicy
}

// NewCircuitBreakerRegistry creates a registry. Upstreams missing from
// policies use fallback.
func NewCircuitBreakerRegistry(fallback BreakerPolicy, policies map[string]BreakerPolicy) *CircuitBreakerRegistry {
	return &CircuitBreakerRegistry{
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
		fallback: fallback,
		policies: policies,
	}
}

// NewDefaultCircuitBreakerRegistry creates a registry with the default policies
func NewDefaultCircuitBreakerRegistry() *CircuitBreakerRegistry {
	return NewCircuitBreakerRegistry(DefaultBreakerPolicy, DefaultBreakerPolicies)
}

// Policy returns the policy applied to the named upstream
func (r *CircuitBreakerRegistry) Policy(name string) BreakerPolicy {
	if p, ok := r.policies[name]; ok {
		return p
	}
	return r.fallback
}

// GetBreaker returns (or creates) the breaker for the named upstream
func (r *CircuitBreakerRegistry) GetBreaker(name string) *gobreaker.CircuitBreaker[any] {
	r.mu.RLock()
	cb, exists := r.breakers[name]
	r.mu.RUnlock()
	if exists {
		return cb
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, exists = r.breakers[name]; exists {
		return cb
	}

	policy := r.Policy(name)
	cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: policy.MaxRequests,
		Interval:    policy.Interval,
		Timeout:     policy.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			counted := counts.Requests - counts.TotalExclusions
			if counted < policy.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counted) >= policy.FailureRatio
		},
		IsExcluded: IsRequestError,
		OnStateChange: func(name string, from, to gobreaker.State) {
			observability.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String())

			metrics := observability.GetMetrics()
			metrics.SetCircuitBreakerState(name, stateToInt(to))
			if to == gobreaker.StateOpen {
				metrics.RecordCircuitBreakerTrip(name)
			}
		},
	})
	r.breakers[name] = cb

	return cb
}

// IsRequestError reports whether err was caused by the request rather than by
// the upstream: an unknown model or symbol, rejected input, or a caller that
// gave up. Such errors say nothing about upstream health and are not counted
// by the breakers.
func IsRequestError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return true
	}

	var oaErr *openai.Error
	if errors.As(err, &oaErr) {
		return isRequestStatus(oaErr.StatusCode)
	}

	var alpacaErr *alpaca.APIError
	if errors.As(err, &alpacaErr) {
		return isRequestStatus(alpacaErr.StatusCode)
	}

	var validation *brtypes.ValidationException
	var notFound *brtypes.ResourceNotFoundException
	if errors.As(err, &validation) || errors.As(err, &notFound) {
		return true
	}

	var yahooErr *YahooStatusError
	if errors.As(err, &yahooErr) {
		return isRequestStatus(yahooErr.StatusCode)
	}

	_, ok := asYfinError(err)
	return ok
}

// isRequestStatus is true for 4xx statuses that blame the request.
// Auth failures and throttling still count against the upstream.
func isRequestStatus(status int) bool {
	switch status {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
		return true
	default:
		return false
	}
}

// Execute runs fn through the named breaker. A canceled or expired ctx fails
// fast without reaching the upstream.
func (r *CircuitBreakerRegistry) Execute(ctx context.Context, name string, fn func() (any, error)) (any, error) {
	cb := r.GetBreaker(name)

	result, err := cb.Execute(func() (any, error) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return fn()
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState):
		observability.Warn("circuit breaker open, rejecting request", "breaker", name)
		return nil, fmt.Errorf("service %s unavailable: circuit breaker open", name)
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		observability.Warn("circuit breaker half-open, too many requests", "breaker", name)
		return nil, fmt.Errorf("service %s unavailable: too many requests in half-open state", name)
	}

	return result, err
}

// CircuitBreakerStatus is the /health view of one breaker
type CircuitBreakerStatus struct {
	Name             string `json:"name"`
	State            string `json:"state"`
	Requests         uint32 `json:"requests"`
	TotalSuccesses   uint32 `json:"total_successes"`
	TotalFailures    uint32 `json:"total_failures"`
	TotalExclusions  uint32 `json:"total_exclusions"`
	ConsecutiveFails uint32 `json:"consecutive_failures"`
}

// Status returns the current state of every breaker created so far
func (r *CircuitBreakerRegistry) Status() map[string]CircuitBreakerStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := make(map[string]CircuitBreakerStatus, len(r.breakers))
	for name, cb := range r.breakers {
		counts := cb.Counts()
		status[name] = CircuitBreakerStatus{
			Name:             name,
			State:            cb.State().String(),
			Requests:         counts.Requests,
			TotalSuccesses:   counts.TotalSuccesses,
			TotalFailures:    counts.TotalFailures,
			TotalExclusions:  counts.TotalExclusions,
			ConsecutiveFails: counts.ConsecutiveFailures,
		}
	}
	return status
}

var (
	globalMu       sync.RWMutex
	globalRegistry *CircuitBreakerRegistry
)

// GetGlobalRegistry returns the process-wide registry, creating it with the
// default policies on first use
func GetGlobalRegistry() *CircuitBreakerRegistry {
	globalMu.RLock()
	r := globalRegistry
	globalMu.RUnlock()
	if r != nil {
		return r
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalRegistry == nil {
		globalRegistry = NewDefaultCircuitBreakerRegistry()
	}
	return globalRegistry
}

// SetGlobalRegistry replaces the process-wide registry (tests)
func SetGlobalRegistry(r *CircuitBreakerRegistry) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalRegistry = r
}

// WithCircuitBreaker runs fn through the named breaker of the global registry
func WithCircuitBreaker[T any](ctx context.Context, name string, fn func() (T, error)) (T, error) {
	result, err := GetGlobalRegistry().Execute(ctx, name, func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

// stateToInt maps breaker state to the gauge value: 0=closed, 1=half-open, 2=open
func stateToInt(state gobreaker.State) int {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
