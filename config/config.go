// Package config loads earningsrag settings from a YAML file, an optional
// .env file and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/poiesic/earningsrag/ai"
	"github.com/poiesic/earningsrag/chunking"
	"github.com/poiesic/earningsrag/core"
	"github.com/poiesic/earningsrag/qa"
	"github.com/poiesic/earningsrag/search"
)

// ErrInvalidConfig is returned for settings that cannot be used.
var ErrInvalidConfig = fmt.Errorf("config: %w", core.ErrConfiguration)

// Storage backends.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

// FileName is the config file looked up in the working directory.
const FileName = "earningsrag.yaml"

// ChunkingConfig selects the chunking strategy.
type ChunkingConfig struct {
	Strategy          string  `yaml:"strategy"`
	ChunkSize         int     `yaml:"chunk_size"`
	SemanticThreshold float64 `yaml:"semantic_threshold"`
	SemanticMaxTokens int     `yaml:"semantic_max_tokens"`
}

// EmbeddingConfig describes the embedding model chunks are stored with.
type EmbeddingConfig struct {
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// RetrievalConfig controls retrieval and context assembly.
type RetrievalConfig struct {
	UseHybridFTS      bool    `yaml:"use_hybrid_fts"`
	FTSCandidateLimit int     `yaml:"fts_candidate_limit"`
	TopK              int     `yaml:"top_k"`
	MinScore          float32 `yaml:"min_score"`
	MaxContextChars   int     `yaml:"max_context_chars"`
}

// ServerConfig is a model server.
type ServerConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key,omitempty"`
}

// LLMConfig selects the model provider.
type LLMConfig struct {
	Provider          string       `yaml:"provider"`
	RequestTimeoutSec int          `yaml:"request_timeout_sec"`
	Ollama            ServerConfig `yaml:"ollama"`
	OpenAI            ServerConfig `yaml:"openai"`
}

// OpenFIGIConfig configures company resolution. When CompaniesFile is set
// companies are resolved from that file instead of the OpenFIGI API.
type OpenFIGIConfig struct {
	BaseURL       string `yaml:"base_url"`
	APIKey        string `yaml:"api_key,omitempty"`
	CompaniesFile string `yaml:"companies_file,omitempty"`
}

// StorageConfig selects the storage backend.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// IngestionConfig controls the ingestion pipeline.
type IngestionConfig struct {
	TranscriptsDir   string `yaml:"transcripts_dir"`
	Workers          int    `yaml:"workers"`
	DeferEmbeddings  bool   `yaml:"defer_embeddings"`
	ExtractEntities  bool   `yaml:"extract_entities"`
	ReembedBatchSize int    `yaml:"reembed_batch_size"`
}

// Config is the root configuration.
type Config struct {
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	LLM       LLMConfig       `yaml:"llm"`
	OpenFIGI  OpenFIGIConfig  `yaml:"openfigi"`
	Storage   StorageConfig   `yaml:"storage"`
	Ingestion IngestionConfig `yaml:"ingestion"`
}

// Default returns the built-in settings: paragraph chunking, a local Ollama
// server and a BadgerDB store in ./data.
func Default() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			Strategy:          string(chunking.StrategyParagraph),
			ChunkSize:         chunking.DefaultChunkSize,
			SemanticThreshold: chunking.DefaultSimilarityThreshold,
			SemanticMaxTokens: chunking.DefaultMaxTokens,
		},
		Embedding: EmbeddingConfig{
			Model:      "all-minilm",
			Dimensions: 384,
		},
		Retrieval: RetrievalConfig{
			FTSCandidateLimit: search.DefaultFTSCandidateLimit,
			TopK:              search.DefaultTopK,
			MinScore:          search.DefaultMinScore,
			MaxContextChars:   qa.DefaultMaxContextChars,
		},
		LLM: LLMConfig{
			Provider:          ai.ProviderOllama,
			RequestTimeoutSec: 60,
			Ollama:            ServerConfig{BaseURL: "http://localhost:11434", Model: "llama3"},
			OpenAI:            ServerConfig{BaseURL: "https://api.openai.com/v1", Model: "gpt-4o-mini"},
		},
		OpenFIGI: OpenFIGIConfig{BaseURL: "https://api.openfigi.com"},
		Storage:  StorageConfig{Backend: BackendBadger, Path: "data"},
		Ingestion: IngestionConfig{
			TranscriptsDir:   "transcripts",
			ExtractEntities:  true,
			ReembedBatchSize: 64,
		},
	}
}

// Load reads the YAML file at path over the defaults and applies
// environment overrides. A missing file yields the defaults. An empty path
// skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("%w: parsing %s: %w", ErrInvalidConfig, path, err)
			}
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault loads .env from the working directory when present, then
// tries ./earningsrag.yaml and ~/.config/earningsrag/config.yaml. If neither
// exists, it writes the defaults to the user config path. The path the
// configuration was read from is returned.
func LoadDefault() (*Config, string, error) {
	if err := LoadEnvFiles(); err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(FileName); err == nil {
		cfg, err := Load(FileName)
		return cfg, FileName, err
	}
	userPath, err := DefaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	if err := Save(userPath, Default()); err != nil {
		return nil, "", err
	}
	cfg, err := Load(userPath)
	return cfg, userPath, err
}

// LoadEnvFiles loads environment files without overriding variables that
// are already set. With no arguments it loads .env; a missing .env is not
// an error, but a missing named file is.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("loading env file: %w", err)
	}
	return nil
}

// Save writes cfg to path, creating directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// DefaultUserConfigPath returns ~/.config/earningsrag/config.yaml.
func DefaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "earningsrag", "config.yaml"), nil
}

// Validate checks every setting. Names are normalized to lower case.
func (c *Config) Validate() error {
	c.Chunking.Strategy = strings.ToLower(strings.TrimSpace(c.Chunking.Strategy))
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))

	if err := c.ChunkingOptions().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	var problems []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Errorf(format, args...))
		}
	}
	check(c.Embedding.Dimensions > 0, "embedding dimensions must be positive, got %d", c.Embedding.Dimensions)
	check(c.Embedding.Model != "" || c.LLM.Provider == ai.ProviderLocal, "embedding model is required")
	check(c.Retrieval.FTSCandidateLimit > 0, "fts candidate limit must be positive, got %d", c.Retrieval.FTSCandidateLimit)
	check(c.Retrieval.TopK > 0, "top k must be positive, got %d", c.Retrieval.TopK)
	check(c.Retrieval.MinScore >= -1 && c.Retrieval.MinScore <= 1, "min score must be in [-1,1], got %g", c.Retrieval.MinScore)
	check(c.Retrieval.MaxContextChars > 0, "max context chars must be positive, got %d", c.Retrieval.MaxContextChars)
	check(c.LLM.RequestTimeoutSec > 0, "request timeout must be positive, got %d", c.LLM.RequestTimeoutSec)
	switch c.LLM.Provider {
	case ai.ProviderOllama, ai.ProviderOpenAI, ai.ProviderLocal:
	default:
		problems = append(problems, fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
	}
	switch c.Storage.Backend {
	case BackendBadger, BackendSQLite:
	default:
		problems = append(problems, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}
	check(c.Storage.Path != "", "storage path is required")
	check(c.Ingestion.Workers >= 0, "workers must not be negative, got %d", c.Ingestion.Workers)
	check(c.Ingestion.ReembedBatchSize > 0, "reembed batch size must be positive, got %d", c.Ingestion.ReembedBatchSize)

	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(problems...))
	}
	return nil
}

// ChunkingOptions returns the chunker settings.
func (c *Config) ChunkingOptions() chunking.Options {
	return chunking.Options{
		Strategy:            chunking.Strategy(c.Chunking.Strategy),
		ChunkSize:           c.Chunking.ChunkSize,
		SimilarityThreshold: c.Chunking.SemanticThreshold,
		MaxTokens:           c.Chunking.SemanticMaxTokens,
	}
}

// QAOptions returns the context assembly settings.
func (c *Config) QAOptions() qa.Options {
	return qa.Options{
		Strategy:        chunking.Strategy(c.Chunking.Strategy),
		MaxContextChars: c.Retrieval.MaxContextChars,
	}
}

// RetrieverOptions returns the retrieval settings as search options.
func (c *Config) RetrieverOptions() []search.Option {
	opts := []search.Option{
		search.WithTopK(c.Retrieval.TopK),
		search.WithMinScore(c.Retrieval.MinScore),
	}
	if c.Retrieval.UseHybridFTS {
		opts = append(opts, search.WithLexicalPrefilter(c.Retrieval.FTSCandidateLimit))
	}
	return opts
}

// AIConfig returns the model provider settings. Embeddings and answers are
// served by the same server.
func (c *Config) AIConfig() *ai.Config {
	server := c.LLM.Ollama
	if c.LLM.Provider == ai.ProviderOpenAI {
		server = c.LLM.OpenAI
	}
	return ai.NewConfig(
		ai.WithProvider(c.LLM.Provider),
		ai.WithHost(server.BaseURL),
		ai.WithAPIKey(server.APIKey),
		ai.WithChatModel(server.Model),
		ai.WithEmbeddingModel(c.Embedding.Model),
		ai.WithEmbeddingDimensions(c.Embedding.Dimensions),
		ai.WithTimeout(time.Duration(c.LLM.RequestTimeoutSec)*time.Second),
	)
}
