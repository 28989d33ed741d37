package agents

import (
	"context"
	"sync"

	"stock-agent/models"
)

// mockChatModel replays scripted responses and records every request
type mockChatModel struct {
	mu        sync.Mutex
	responses []*models.ChatResponse
	err       error
	requests  []models.ChatRequest
	completeF func(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
}

func (m *mockChatModel) Complete(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if m.completeF != nil {
		return m.completeF(ctx, req)
	}
	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return &models.ChatResponse{Message: models.AssistantMessage("")}, nil
	}
	resp := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return resp, nil
}

type mockTool struct {
	name  string
	callF func(ctx context.Context, arguments string) (string, error)
	calls []string
}

func (m *mockTool) Name() string { return m.name }

func (m *mockTool) Definition() models.ToolDefinition {
	return models.ToolDefinition{
		Name:        m.name,
		Description: "test tool",
		Parameters:  map[string]any{"type": "object"},
	}
}

func (m *mockTool) Call(ctx context.Context, arguments string) (string, error) {
	m.calls = append(m.calls, arguments)
	return m.callF(ctx, arguments)
}

func textResponse(content string) *models.ChatResponse {
	return &models.ChatResponse{Message: models.AssistantMessage(content), FinishReason: "stop"}
}

func toolCallResponse(calls ...models.ToolCall) *models.ChatResponse {
	msg := models.AssistantMessage("")
	msg.ToolCalls = calls
	return &models.ChatResponse{Message: msg, FinishReason: "tool_calls"}
}
