package services

import (
	"context"
	"errors"
	"strings"

	"stock-agent/observability"
)

// callUpstream runs fn through the named circuit breaker and records request,
// duration and error metrics for the service/operation pair
func callUpstream[T any](ctx context.Context, service, operation string, fn func() (T, error)) (T, error) {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(service, operation)
	timer := metrics.NewTimer()

	result, err := WithCircuitBreaker(ctx, service, fn)

	timer.ObserveExternalAPI(service, operation)
	if err != nil {
		metrics.RecordExternalAPIError(service, operation, categorizeAPIError(err))
	}
	return result, err
}

// categorizeAPIError categorizes an error for metrics purposes
func categorizeAPIError(err error) string {
	if err == nil {
		return "none"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	if IsRequestError(err) {
		return "request_error"
	}
	errStr := strings.ToLower(err.Error())
	switch {
	case containsAny(errStr, "circuit breaker", "too many requests in half-open"):
		return "circuit_open"
	case containsAny(errStr, "timeout", "deadline"):
		return "timeout"
	case containsAny(errStr, "rate limit", "429"):
		return "rate_limit"
	case containsAny(errStr, "unauthorized", "401", "403", "forbidden"):
		return "auth_error"
	case containsAny(errStr, "connection", "network", "no such host"):
		return "connection_error"
	default:
		return "unknown"
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
