package services

import (
	"context"
	"encoding/json"
	"fmt"

	appconfig "stock-agent/config"
	"stock-agent/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// bedrockClient defines the subset of the Bedrock runtime API we use (for testing)
type bedrockClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockService handles communication with AWS Bedrock through the Converse API
type BedrockService struct {
	client      bedrockClient
	model       string
	temperature float64
	maxTokens   int
}

// NewBedrockService creates a new BedrockService instance
func NewBedrockService(ctx context.Context, cfg *appconfig.Config) (*BedrockService, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Bedrock.Region))
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}

	return &BedrockService{
		client:      bedrockruntime.NewFromConfig(awsCfg),
		model:       cfg.Bedrock.ModelID,
		temperature: cfg.LLM.Temperature,
		maxTokens:   cfg.LLM.MaxTokens,
	}, nil
}

// Complete sends one chat turn with the given tools. req.Model overrides the
// configured model ID when set.
func (s *BedrockService) Complete(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	return callUpstream(ctx, BreakerBedrock, "converse", func() (*models.ChatResponse, error) {
		modelID := req.Model
		if modelID == "" {
			modelID = s.model
		}

		system, messages, err := toBedrockMessages(req.Messages)
		if err != nil {
			return nil, err
		}

		input := &bedrockruntime.ConverseInput{
			ModelId:  aws.String(modelID),
			Messages: messages,
			System:   system,
			InferenceConfig: &types.InferenceConfiguration{
				MaxTokens:   aws.Int32(int32(s.maxTokens)),
				Temperature: aws.Float32(float32(s.temperature)),
			},
		}
		if len(req.Tools) > 0 {
			input.ToolConfig = toBedrockTools(req.Tools)
		}

		output, err := s.client.Converse(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to invoke model: %w", err)
		}

		msgOutput, ok := output.Output.(*types.ConverseOutputMemberMessage)
		if !ok {
			return nil, fmt.Errorf("empty response from model")
		}

		msg, err := fromBedrockMessage(msgOutput.Value)
		if err != nil {
			return nil, err
		}
		return &models.ChatResponse{Message: msg, FinishReason: string(output.StopReason)}, nil
	})
}

// toBedrockMessages splits out system prompts and merges consecutive tool
// results into a single user turn, which Converse requires.
func toBedrockMessages(messages []models.Message) ([]types.SystemContentBlock, []types.Message, error) {
	var system []types.SystemContentBlock
	var out []types.Message

	for _, msg := range messages {
		switch msg.Role {
		case models.RoleSystem:
			system = append(system, &types.SystemContentBlockMemberText{Value: msg.Content})

		case models.RoleUser:
			out = append(out, types.Message{
				Role:    types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: msg.Content}},
			})

		case models.RoleAssistant:
			var content []types.ContentBlock
			if msg.Content != "" {
				content = append(content, &types.ContentBlockMemberText{Value: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				var input any
				if err := json.Unmarshal([]byte(tc.Arguments), &input); err != nil {
					input = map[string]any{}
				}
				content = append(content, &types.ContentBlockMemberToolUse{Value: types.ToolUseBlock{
					ToolUseId: aws.String(tc.ID),
					Name:      aws.String(tc.Name),
					Input:     document.NewLazyDocument(input),
				}})
			}
			out = append(out, types.Message{Role: types.ConversationRoleAssistant, Content: content})

		case models.RoleTool:
			block := &types.ContentBlockMemberToolResult{Value: types.ToolResultBlock{
				ToolUseId: aws.String(msg.ToolCallID),
				Content:   []types.ToolResultContentBlock{&types.ToolResultContentBlockMemberText{Value: msg.Content}},
			}}
			if n := len(out); n > 0 && out[n-1].Role == types.ConversationRoleUser && isToolResultTurn(out[n-1]) {
				out[n-1].Content = append(out[n-1].Content, block)
				continue
			}
			out = append(out, types.Message{Role: types.ConversationRoleUser, Content: []types.ContentBlock{block}})

		default:
			return nil, nil, fmt.Errorf("unsupported message role %q", msg.Role)
		}
	}

	return system, out, nil
}

func isToolResultTurn(msg types.Message) bool {
	for _, block := range msg.Content {
		if _, ok := block.(*types.ContentBlockMemberToolResult); !ok {
			return false
		}
	}
	return len(msg.Content) > 0
}

func fromBedrockMessage(msg types.Message) (models.Message, error) {
	out := models.AssistantMessage("")
	for _, block := range msg.Content {
		switch b := block.(type) {
		case *types.ContentBlockMemberText:
			out.Content += b.Value
		case *types.ContentBlockMemberToolUse:
			args := "{}"
			if b.Value.Input != nil {
				raw, err := b.Value.Input.MarshalSmithyDocument()
				if err != nil {
					return models.Message{}, fmt.Errorf("failed to decode tool input: %w", err)
				}
				args = string(raw)
			}
			out.ToolCalls = append(out.ToolCalls, models.ToolCall{
				ID:        aws.ToString(b.Value.ToolUseId),
				Name:      aws.ToString(b.Value.Name),
				Arguments: args,
			})
		}
	}
	return out, nil
}

func toBedrockTools(tools []models.ToolDefinition) *types.ToolConfiguration {
	specs := make([]types.Tool, 0, len(tools))
	for _, tool := range tools {
		specs = append(specs, &types.ToolMemberToolSpec{Value: types.ToolSpecification{
			Name:        aws.String(tool.Name),
			Description: aws.String(tool.Description),
			InputSchema: &types.ToolInputSchemaMemberJson{Value: document.NewLazyDocument(tool.Parameters)},
		}})
	}
	return &types.ToolConfiguration{Tools: specs}
}
