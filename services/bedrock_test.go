package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"stock-agent/config"
	"stock-agent/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// mockBedrockClient implements bedrockClient for testing
type mockBedrockClient struct {
	converseFunc func(ctx context.Context, params *bedrockruntime.ConverseInput) (*bedrockruntime.ConverseOutput, error)
}

func (m *mockBedrockClient) Converse(ctx context.Context, params *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	return m.converseFunc(ctx, params)
}

func newTestBedrockService(client bedrockClient) *BedrockService {
	return &BedrockService{
		client:      client,
		model:       "anthropic.claude-3-haiku-20240307-v1:0",
		temperature: 0.1,
		maxTokens:   1024,
	}
}

func bedrockText(text string) *bedrockruntime.ConverseOutput {
	return &bedrockruntime.ConverseOutput{
		StopReason: types.StopReasonEndTurn,
		Output: &types.ConverseOutputMemberMessage{Value: types.Message{
			Role:    types.ConversationRoleAssistant,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: text}},
		}},
	}
}

func TestBedrockComplete_TextAnswer(t *testing.T) {
	SetGlobalRegistry(NewDefaultCircuitBreakerRegistry())

	service := newTestBedrockService(&mockBedrockClient{
		converseFunc: func(ctx context.Context, params *bedrockruntime.ConverseInput) (*bedrockruntime.ConverseOutput, error) {
			if aws.ToString(params.ModelId) != "anthropic.claude-3-haiku-20240307-v1:0" {
				t.Errorf("unexpected model %s", aws.ToString(params.ModelId))
			}
			if len(params.System) != 1 {
				t.Errorf("expected system prompt to be lifted out, got %d blocks", len(params.System))
			}
			if len(params.Messages) != 1 || params.Messages[0].Role != types.ConversationRoleUser {
				t.Errorf("unexpected messages: %+v", params.Messages)
			}
			if params.InferenceConfig == nil || aws.ToInt32(params.InferenceConfig.MaxTokens) != 1024 {
				t.Errorf("inference config not set: %+v", params.InferenceConfig)
			}
			return bedrockText("SELL. Momentum is fading."), nil
		},
	})

	resp, err := service.Complete(context.Background(), models.ChatRequest{
		Messages: []models.Message{models.SystemMessage("system"), models.UserMessage("user")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Message.Content != "SELL. Momentum is fading." {
		t.Errorf("unexpected content %q", resp.Message.Content)
	}
	if resp.FinishReason != "end_turn" {
		t.Errorf("FinishReason = %q, want end_turn", resp.FinishReason)
	}
}

func TestBedrockComplete_ToolUse(t *testing.T) {
	SetGlobalRegistry(NewDefaultCircuitBreakerRegistry())

	service := newTestBedrockService(&mockBedrockClient{
		converseFunc: func(ctx context.Context, params *bedrockruntime.ConverseInput) (*bedrockruntime.ConverseOutput, error) {
			if params.ToolConfig == nil || len(params.ToolConfig.Tools) != 1 {
				t.Fatalf("tool config not forwarded")
			}
			spec, ok := params.ToolConfig.Tools[0].(*types.ToolMemberToolSpec)
			if !ok || aws.ToString(spec.Value.Name) != "get_stock_price" {
				t.Errorf("unexpected tool spec: %+v", params.ToolConfig.Tools[0])
			}
			return &bedrockruntime.ConverseOutput{
				StopReason: types.StopReasonToolUse,
				Output: &types.ConverseOutputMemberMessage{Value: types.Message{
					Role: types.ConversationRoleAssistant,
					Content: []types.ContentBlock{
						&types.ContentBlockMemberText{Value: "Let me look that up."},
						&types.ContentBlockMemberToolUse{Value: types.ToolUseBlock{
							ToolUseId: aws.String("tooluse_1"),
							Name:      aws.String("get_stock_price"),
							Input:     document.NewLazyDocument(map[string]any{"ticker": "AAPL"}),
						}},
					},
				}},
			}, nil
		},
	})

	resp, err := service.Complete(context.Background(), models.ChatRequest{
		Messages: []models.Message{models.UserMessage("price of AAPL")},
		Tools:    []models.ToolDefinition{testStockTool},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.HasToolCalls() {
		t.Fatal("expected tool calls")
	}
	call := resp.Message.ToolCalls[0]
	if call.ID != "tooluse_1" || call.Name != "get_stock_price" {
		t.Errorf("unexpected call: %+v", call)
	}
	var args map[string]string
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		t.Fatalf("arguments are not JSON: %v", err)
	}
	if args["ticker"] != "AAPL" {
		t.Errorf("ticker = %q, want AAPL", args["ticker"])
	}
	if resp.Message.Content != "Let me look that up." {
		t.Errorf("unexpected content %q", resp.Message.Content)
	}
}

func TestToBedrockMessages_MergesToolResults(t *testing.T) {
	assistant := models.AssistantMessage("")
	assistant.ToolCalls = []models.ToolCall{
		{ID: "a", Name: "get_stock_price", Arguments: `{"ticker":"AAPL"}`},
		{ID: "b", Name: "get_stock_price", Arguments: `{"ticker":"MSFT"}`},
	}

	system, messages, err := toBedrockMessages([]models.Message{
		models.SystemMessage("system"),
		models.UserMessage("compare"),
		assistant,
		models.ToolMessage("a", `{"ticker":"AAPL"}`),
		models.ToolMessage("b", `{"ticker":"MSFT"}`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(system) != 1 {
		t.Errorf("expected 1 system block, got %d", len(system))
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	if len(messages[1].Content) != 2 {
		t.Errorf("assistant turn should carry 2 tool uses, got %d", len(messages[1].Content))
	}
	last := messages[2]
	if last.Role != types.ConversationRoleUser || len(last.Content) != 2 {
		t.Errorf("tool results should merge into one user turn: %+v", last)
	}
}

func TestToBedrockMessages_UnknownRole(t *testing.T) {
	_, _, err := toBedrockMessages([]models.Message{{Role: "narrator", Content: "x"}})
	if err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestBedrockComplete_APIError(t *testing.T) {
	SetGlobalRegistry(NewDefaultCircuitBreakerRegistry())

	service := newTestBedrockService(&mockBedrockClient{
		converseFunc: func(ctx context.Context, params *bedrockruntime.ConverseInput) (*bedrockruntime.ConverseOutput, error) {
			return nil, errors.New("AccessDeniedException")
		},
	})

	_, err := service.Complete(context.Background(), models.ChatRequest{Messages: []models.Message{models.UserMessage("u")}})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "failed to invoke model") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestBedrockComplete_EmptyOutput(t *testing.T) {
	SetGlobalRegistry(NewDefaultCircuitBreakerRegistry())

	service := newTestBedrockService(&mockBedrockClient{
		converseFunc: func(ctx context.Context, params *bedrockruntime.ConverseInput) (*bedrockruntime.ConverseOutput, error) {
			return &bedrockruntime.ConverseOutput{}, nil
		},
	})

	_, err := service.Complete(context.Background(), models.ChatRequest{Messages: []models.Message{models.UserMessage("u")}})
	if err == nil || !strings.Contains(err.Error(), "empty response from model") {
		t.Errorf("expected empty response error, got %v", err)
	}
}

func TestNewBedrockService_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	cfg := config.NewTestConfig()
	cfg.Bedrock.Region = "us-west-2"
	cfg.Bedrock.ModelID = "anthropic.claude-3-5-sonnet-20241022-v2:0"

	service, err := NewBedrockService(context.Background(), cfg)
	if err != nil {
		// expected if AWS credentials are not configured
		t.Logf("NewBedrockService returned error (expected if no AWS creds): %v", err)
		return
	}
	if service.model != cfg.Bedrock.ModelID {
		t.Errorf("model = %v, want %v", service.model, cfg.Bedrock.ModelID)
	}
}
