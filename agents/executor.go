package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"stock-agent/models"
	"stock-agent/observability"
)

// IterationLimitMessage is returned as the answer when the model never stops calling tools
const IterationLimitMessage = "Agent stopped due to iteration limit or time limit."

// DefaultMaxIterations bounds model turns per episode when none is configured
const DefaultMaxIterations = 10

// RunResult describes a finished episode
type RunResult struct {
	Output     string
	Iterations int
	ToolCalls  int
	Stopped    bool // hit the iteration limit
}

// Executor runs the model/tool loop until the model answers in plain text
type Executor struct {
	model         ChatModel
	modelName     string
	tools         map[string]Tool
	toolNames     []string
	definitions   []models.ToolDefinition
	maxIterations int
}

// NewExecutor creates an executor. An empty modelName uses the backend default.
func NewExecutor(model ChatModel, modelName string, tools []Tool, maxIterations int) *Executor {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	e := &Executor{
		model:         model,
		modelName:     modelName,
		tools:         make(map[string]Tool, len(tools)),
		maxIterations: maxIterations,
	}
	for _, tool := range tools {
		e.tools[tool.Name()] = tool
		e.toolNames = append(e.toolNames, tool.Name())
		e.definitions = append(e.definitions, tool.Definition())
	}
	return e
}

// Run drives the loop starting from messages. Model errors end the episode;
// tool errors are fed back to the model as observations.
func (e *Executor) Run(ctx context.Context, messages []models.Message, logger *slog.Logger) (*RunResult, error) {
	conversation := make([]models.Message, len(messages))
	copy(conversation, messages)

	result := &RunResult{}
	for result.Iterations < e.maxIterations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.Iterations++

		resp, err := e.model.Complete(ctx, models.ChatRequest{
			Model:    e.modelName,
			Messages: conversation,
			Tools:    e.definitions,
		})
		if err != nil {
			return nil, err
		}

		if !resp.HasToolCalls() {
			result.Output = resp.Message.Content
			return result, nil
		}

		conversation = append(conversation, resp.Message)
		for _, call := range resp.Message.ToolCalls {
			result.ToolCalls++
			observation := e.invoke(ctx, call, logger)
			conversation = append(conversation, models.ToolMessage(call.ID, observation))
		}
	}

	logger.Warn("agent hit iteration limit", "iterations", result.Iterations, "tool_calls", result.ToolCalls)
	result.Output = IterationLimitMessage
	result.Stopped = true
	return result, nil
}

func (e *Executor) invoke(ctx context.Context, call models.ToolCall, logger *slog.Logger) string {
	metrics := observability.GetMetrics()

	tool, ok := e.tools[call.Name]
	if !ok {
		logger.Warn("model called unknown tool", "tool", call.Name)
		metrics.RecordToolCall(call.Name, "unknown_tool")
		return fmt.Sprintf("%s is not a valid tool, try one of [%s].", call.Name, strings.Join(e.toolNames, ", "))
	}

	logger.Info("calling tool", "tool", call.Name, "arguments", call.Arguments)
	out, err := tool.Call(ctx, call.Arguments)
	if err != nil {
		logger.Warn("tool input rejected", "tool", call.Name, "error", err)
		metrics.RecordToolCall(call.Name, "invalid_input")
		return fmt.Sprintf("Invalid or incomplete tool input: %s", err.Error())
	}
	return out
}
