package services

import (
	"context"
	"fmt"

	appconfig "stock-agent/config"
	"stock-agent/models"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// openaiClient defines the interface for OpenAI API calls (for testing)
type openaiClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// openaiClientWrapper wraps the openai.Client to implement our interface
type openaiClientWrapper struct {
	client openai.Client
}

func (w *openaiClientWrapper) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return w.client.Chat.Completions.New(ctx, params)
}

// OpenAIService handles communication with OpenAI API
type OpenAIService struct {
	client      openaiClient
	model       string
	temperature float64
	maxTokens   int
}

// NewOpenAIService creates a new OpenAIService instance
func NewOpenAIService(cfg *appconfig.Config) (*OpenAIService, error) {
	if cfg.OpenAI.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.OpenAI.APIKey)}
	if cfg.OpenAI.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.OpenAI.BaseURL))
	}
	client := openai.NewClient(opts...)

	return &OpenAIService{
		client:      &openaiClientWrapper{client: client},
		model:       cfg.LLM.DefaultModel,
		temperature: cfg.LLM.Temperature,
		maxTokens:   cfg.LLM.MaxTokens,
	}, nil
}

// newOpenAIServiceWithClient creates an OpenAIService with a custom client (for testing)
func newOpenAIServiceWithClient(client openaiClient, model string, maxTokens int) *OpenAIService {
	return &OpenAIService{
		client:      client,
		model:       model,
		temperature: 0.1,
		maxTokens:   maxTokens,
	}
}

// Complete sends one chat turn with the given tools. req.Model overrides the
// configured default model when set.
func (s *OpenAIService) Complete(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	return callUpstream(ctx, BreakerOpenAI, "chat", func() (*models.ChatResponse, error) {
		model := req.Model
		if model == "" {
			model = s.model
		}

		params := openai.ChatCompletionNewParams{
			Model:       shared.ChatModel(model),
			Messages:    toOpenAIMessages(req.Messages),
			Temperature: openai.Float(s.temperature),
			MaxTokens:   openai.Int(int64(s.maxTokens)),
		}
		if len(req.Tools) > 0 {
			params.Tools = toOpenAITools(req.Tools)
		}

		completion, err := s.client.CreateChatCompletion(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("failed to invoke OpenAI: %w", err)
		}

		if len(completion.Choices) == 0 {
			return nil, fmt.Errorf("empty response from OpenAI")
		}

		choice := completion.Choices[0]
		msg := models.AssistantMessage(choice.Message.Content)
		for _, tc := range choice.Message.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, models.ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}

		return &models.ChatResponse{Message: msg, FinishReason: choice.FinishReason}, nil
	})
}

func toOpenAIMessages(messages []models.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case models.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case models.RoleUser:
			out = append(out, openai.UserMessage(msg.Content))
		case models.RoleTool:
			out = append(out, openai.ToolMessage(msg.Content, msg.ToolCallID))
		case models.RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(msg.Content))
				continue
			}
			assistant := openai.ChatCompletionAssistantMessageParam{}
			if msg.Content != "" {
				assistant.Content.OfString = openai.String(msg.Content)
			}
			for _, tc := range msg.ToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		}
	}
	return out
}

func toOpenAITools(tools []models.ToolDefinition) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, tool := range tools {
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        tool.Name,
				Description: openai.String(tool.Description),
				Parameters:  openai.FunctionParameters(tool.Parameters),
			},
		})
	}
	return out
}
