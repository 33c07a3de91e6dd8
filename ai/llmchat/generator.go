package llmchat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/earningsrag/ai"
	"github.com/tmc/langchaingo/llms"
)

// Generator implements ai.Generator using a chat model.
type Generator struct {
	client      llms.Model
	temperature float64
	logger      *slog.Logger
}

// NewGenerator wraps a chat model. Returns the concrete type so providers can
// keep it; callers should hold it as ai.Generator.
func NewGenerator(client llms.Model, temperature float64) *Generator {
	return &Generator{
		client:      client,
		temperature: temperature,
		logger:      slog.Default().With("component", "llm-generator"),
	}
}

// Generate sends the system instructions and user message and returns the
// trimmed text of the first choice.
func (g *Generator) Generate(ctx context.Context, system, user string) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}

	g.logger.Debug("generating answer", "prompt_chars", len(system)+len(user))
	response, err := g.client.GenerateContent(ctx, content, llms.WithTemperature(g.temperature))
	if err != nil {
		g.logger.Error("failed to generate content", "err", err)
		return "", ai.UpstreamError("generate", err)
	}
	if len(response.Choices) < 1 {
		return "", fmt.Errorf("generate: %w: model returned no choices", ai.ErrUpstream)
	}
	return strings.TrimSpace(response.Choices[0].Content), nil
}
