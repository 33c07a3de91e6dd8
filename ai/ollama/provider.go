// Package ollama provides AI service implementations using the native Ollama API.
//
// Embeddings go through /api/embed and answers through /api/chat, both via
// the langchaingo Ollama client.
package ollama

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/poiesic/earningsrag/ai"
	"github.com/poiesic/earningsrag/ai/llmchat"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

// Provider implements ai.AIProvider against an Ollama server.
type Provider struct {
	embedder  *Embedder
	generator *llmchat.Generator
	extractor *llmchat.EntityExtractor
	logger    *slog.Logger
}

// NewProvider creates a provider for the server at config.EmbeddingHost and
// config.ChatHost.
//
// Returns ai.AIProvider interface to enforce abstraction.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	httpClient := &http.Client{Timeout: config.Timeout}

	embedClient, err := ollama.New(
		ollama.WithServerURL(config.EmbeddingHost),
		ollama.WithModel(config.EmbeddingModel),
		ollama.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, err
	}
	embedder, err := newEmbedder(embedClient, config)
	if err != nil {
		return nil, err
	}

	chat, err := ollama.New(
		ollama.WithServerURL(config.ChatHost),
		ollama.WithModel(config.ChatModel),
		ollama.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, err
	}

	return &Provider{
		embedder:  embedder,
		generator: llmchat.NewGenerator(chat, config.Temperature),
		extractor: llmchat.NewEntityExtractor(chat, 0),
		logger:    slog.Default().With("component", "ollama-provider"),
	}, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Generator returns the answer generation service.
func (p *Provider) Generator() ai.Generator {
	return p.generator
}

// EntityExtractor returns the entity extraction service.
func (p *Provider) EntityExtractor() ai.EntityExtractor {
	return p.extractor
}

// Close is a no-op; the HTTP clients hold no long-lived resources.
func (p *Provider) Close() error {
	p.logger.Debug("closing Ollama provider")
	return nil
}

// Embedder implements ai.Embedder with an Ollama embedding model.
type Embedder struct {
	embedder embeddings.Embedder
	model    string
	dims     int
	logger   *slog.Logger
}

func newEmbedder(client embeddings.EmbedderClient, config *ai.Config) (*Embedder, error) {
	embedder, err := embeddings.NewEmbedder(client,
		embeddings.WithStripNewLines(true),
		embeddings.WithBatchSize(64),
	)
	if err != nil {
		return nil, err
	}
	return &Embedder{
		embedder: embedder,
		model:    config.EmbeddingModel,
		dims:     config.EmbeddingDimensions,
		logger:   slog.Default().With("component", "ollama-embedder"),
	}, nil
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts generates vector embeddings for multiple texts.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, ai.UpstreamError("embed", err)
	}
	if err := ai.CheckEmbeddings(vectors, len(texts), e.dims); err != nil {
		return nil, err
	}
	return vectors, nil
}

// Model returns the embedding model name.
func (e *Embedder) Model() string {
	return e.model
}

// Dimensions returns the configured vector length.
func (e *Embedder) Dimensions() int {
	return e.dims
}
