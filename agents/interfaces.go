package agents

import (
	"context"

	"stock-agent/models"
	"stock-agent/services"
)

// ChatModel is the completion backend an agent drives
type ChatModel = services.ChatModel

// Tool is a function the model may call during an episode.
// Call receives the raw JSON arguments and returns the observation text.
type Tool interface {
	Name() string
	Definition() models.ToolDefinition
	Call(ctx context.Context, arguments string) (string, error)
}
