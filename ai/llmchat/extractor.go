// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package llmchat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/earningsrag/ai"
	"github.com/tmc/langchaingo/llms"
)

// DefaultWindowChars bounds the excerpt sent to the model per request.
const DefaultWindowChars = 6000

const maxAttempts = 3

// EntityExtractor implements ai.EntityExtractor using JSON-mode chat completions.
type EntityExtractor struct {
	client      llms.Model
	windowChars int
	logger      *slog.Logger
}

// entity is an internal type used for JSON unmarshaling.
// It matches the structure expected from the LLM.
type entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// extraction is the wrapper structure for the LLM's JSON response.
type extraction struct {
	Entities []entity `json:"entities"`
}

// NewEntityExtractor wraps a chat model. Long texts are sent in windows of
// windowChars; zero selects DefaultWindowChars.
func NewEntityExtractor(client llms.Model, windowChars int) *EntityExtractor {
	if windowChars <= 0 {
		windowChars = DefaultWindowChars
	}
	return &EntityExtractor{
		client:      client,
		windowChars: windowChars,
		logger:      slog.Default().With("component", "llm-extractor"),
	}
}

// ExtractEntities extracts entity mentions from text window by window and
// concatenates the results in order.
func (e *EntityExtractor) ExtractEntities(ctx context.Context, text string) ([]ai.Entity, error) {
	out := make([]ai.Entity, 0)
	for i, window := range windows(text, e.windowChars) {
		found, err := e.extractWindow(ctx, window)
		if err != nil {
			return nil, fmt.Errorf("window %d: %w", i, err)
		}
		out = append(out, found...)
	}
	e.logger.Debug("extracted entities", "count", len(out))
	return out, nil
}

func (e *EntityExtractor) extractWindow(ctx context.Context, text string) ([]ai.Entity, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, buildEntityPrompt()),
		llms.TextParts(llms.ChatMessageTypeHuman, text),
	}

	// Try up to maxAttempts times in case of malformed JSON
	var result extraction
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			e.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, ai.UpstreamError("extract entities", err)
		}

		if len(response.Choices) < 1 {
			e.logger.Debug("no choices returned from model")
			return []ai.Entity{}, nil
		}

		responseText := repairJSON(stripFences(response.Choices[0].Content))

		result = extraction{}
		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			e.logger.Warn("error parsing extractor response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		e.logger.Error("failed to parse extractor response after retries", "err", lastErr)
		return nil, fmt.Errorf("extract entities: %w: unparseable reply: %w", ai.ErrUpstream, lastErr)
	}

	entities := make([]ai.Entity, 0, len(result.Entities))
	for _, en := range result.Entities {
		label := strings.ToUpper(strings.TrimSpace(en.Label))
		name := strings.TrimSpace(en.Text)
		if name == "" || !slices.Contains(entityLabels, label) {
			continue
		}
		entities = append(entities, ai.Entity{Text: name, Label: label})
	}
	return entities, nil
}
