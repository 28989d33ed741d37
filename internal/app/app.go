package app

import (
	"context"
	"fmt"

	"stock-agent/agents"
	"stock-agent/config"
	"stock-agent/services"
)

// Recommender runs one recommendation episode
type Recommender interface {
	Recommend(ctx context.Context, ticker string) (string, error)
}

// App struct holds application dependencies using interfaces for testability
type App struct {
	cfg      *config.Config
	newAgent func(model string) Recommender
	breakers *services.CircuitBreakerRegistry
}

// New creates a new App that builds a fresh agent per request
func New(cfg *config.Config, factory *agents.Factory) *App {
	if factory == nil {
		return newWithAgentFunc(cfg, nil)
	}
	return newWithAgentFunc(cfg, func(model string) Recommender {
		return factory.New(model)
	})
}

// newWithAgentFunc creates an App with a custom agent constructor (for testing)
func newWithAgentFunc(cfg *config.Config, newAgent func(model string) Recommender) *App {
	return &App{
		cfg:      cfg,
		newAgent: newAgent,
		breakers: services.GetGlobalRegistry(),
	}
}

// GetStockRecommendation asks a new agent for a recommendation on ticker.
// An empty model selects the configured default.
func (a *App) GetStockRecommendation(ctx context.Context, ticker, model string) (string, error) {
	if a.newAgent == nil {
		return "", fmt.Errorf("agent factory not initialized")
	}

	return a.newAgent(model).Recommend(ctx, ticker)
}

// DefaultModel returns the model used when a request names none
func (a *App) DefaultModel() string {
	return a.cfg.LLM.DefaultModel
}

// BreakerStatus reports the state of every upstream circuit breaker
func (a *App) BreakerStatus() map[string]services.CircuitBreakerStatus {
	return a.breakers.Status()
}
