package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stock-agent/config"
	"stock-agent/models"
	"stock-agent/observability"

	"github.com/google/uuid"
)

// Factory builds recommendation agents that share a backend and tool set
type Factory struct {
	model         ChatModel
	tools         []Tool
	defaultModel  string
	maxIterations int
	timeout       time.Duration
}

// NewFactory creates a Factory from config
func NewFactory(model ChatModel, tools []Tool, cfg *config.Config) *Factory {
	return &Factory{
		model:         model,
		tools:         tools,
		defaultModel:  cfg.LLM.DefaultModel,
		maxIterations: cfg.Agent.MaxIterations,
		timeout:       cfg.AgentTimeout(),
	}
}

// New builds an agent with its own memory. An empty model selects the configured default.
func (f *Factory) New(model string) *RecommendationAgent {
	if model == "" {
		model = f.defaultModel
	}
	return &RecommendationAgent{
		model:    model,
		executor: NewExecutor(f.model, model, f.tools, f.maxIterations),
		memory:   NewConversationMemory(),
		timeout:  f.timeout,
	}
}

// RecommendationAgent answers buy/sell/hold questions for one ticker at a time
type RecommendationAgent struct {
	model    string
	executor *Executor
	memory   *ConversationMemory
	timeout  time.Duration
}

// Model returns the model name the agent requests
func (a *RecommendationAgent) Model() string {
	return a.model
}

// Memory returns the agent's conversation memory
func (a *RecommendationAgent) Memory() *ConversationMemory {
	return a.memory
}

// Recommend runs one episode and returns the model's free-text answer
func (a *RecommendationAgent) Recommend(ctx context.Context, ticker string) (string, error) {
	runID := uuid.NewString()
	logger := observability.WithRun(runID, ticker, a.model)
	metrics := observability.GetMetrics()
	metrics.RecordRecommendationRequest(a.model)
	timer := metrics.NewTimer()

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	input := recommendationInput(ticker)
	messages := make([]models.Message, 0, a.memory.Len()+2)
	messages = append(messages, models.SystemMessage(systemPrompt))
	messages = append(messages, a.memory.Messages()...)
	messages = append(messages, models.UserMessage(input))

	logger.Info("agent episode started")

	result, err := a.executor.Run(ctx, messages, logger)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
			err = fmt.Errorf("agent timed out after %s: %w", a.timeout, err)
		}
		timer.ObserveAgent("error")
		metrics.RecordAgentError(categorizeError(err))
		logger.Error("agent episode failed", "error", err, "duration", timer.Duration())
		return "", err
	}

	a.memory.SaveTurn(input, result.Output)

	outcome := "answered"
	if result.Stopped {
		outcome = "iteration_limit"
	}
	verdict := models.DetectVerdict(result.Output)
	timer.ObserveAgent(outcome)
	metrics.RecordAgentIterations(outcome, result.Iterations)
	metrics.RecordVerdict(string(verdict))

	logger.Info("agent episode finished",
		"outcome", outcome,
		"iterations", result.Iterations,
		"tool_calls", result.ToolCalls,
		"verdict", verdict,
		"duration", timer.Duration())

	return result.Output, nil
}

// categorizeError categorizes an episode failure for metrics
func categorizeError(err error) string {
	if err == nil {
		return "none"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "circuit breaker"):
		return "circuit_breaker"
	case strings.Contains(errStr, "rate limit"), strings.Contains(errStr, "too many requests"), strings.Contains(errStr, "429"):
		return "rate_limit"
	case strings.Contains(errStr, "401"), strings.Contains(errStr, "unauthorized"), strings.Contains(errStr, "accessdenied"):
		return "auth"
	case strings.Contains(errStr, "connection"), strings.Contains(errStr, "network"):
		return "network"
	default:
		return "other"
	}
}
