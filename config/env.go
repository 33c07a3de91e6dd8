package config

import (
	"fmt"
	"strconv"
	"strings"
)

// LookupFunc reads an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

type envVar struct {
	name  string
	apply func(c *Config, value string) error
}

func stringVar(name string, field func(*Config) *string) envVar {
	return envVar{name, func(c *Config, v string) error {
		*field(c) = v
		return nil
	}}
}

func intVar(name string, field func(*Config) *int) envVar {
	return envVar{name, func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}}
}

func floatVar(name string, field func(*Config) *float64) envVar {
	return envVar{name, func(c *Config, v string) error {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return err
		}
		*field(c) = f
		return nil
	}}
}

func boolVar(name string, field func(*Config) *bool) envVar {
	return envVar{name, func(c *Config, v string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}}
}

var envVars = []envVar{
	stringVar("CHUNK_STRATEGY", func(c *Config) *string { return &c.Chunking.Strategy }),
	intVar("CHUNK_SIZE", func(c *Config) *int { return &c.Chunking.ChunkSize }),
	floatVar("SEMANTIC_THRESHOLD", func(c *Config) *float64 { return &c.Chunking.SemanticThreshold }),
	intVar("SEMANTIC_MAX_TOKENS", func(c *Config) *int { return &c.Chunking.SemanticMaxTokens }),
	stringVar("EMBEDDING_MODEL", func(c *Config) *string { return &c.Embedding.Model }),
	intVar("EMBEDDING_DIMENSIONS", func(c *Config) *int { return &c.Embedding.Dimensions }),
	boolVar("USE_HYBRID_FTS", func(c *Config) *bool { return &c.Retrieval.UseHybridFTS }),
	intVar("FTS_CANDIDATE_LIMIT", func(c *Config) *int { return &c.Retrieval.FTSCandidateLimit }),
	intVar("TOP_K", func(c *Config) *int { return &c.Retrieval.TopK }),
	{"MIN_SCORE", func(c *Config, v string) error {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 32)
		if err != nil {
			return err
		}
		c.Retrieval.MinScore = float32(f)
		return nil
	}},
	intVar("MAX_CONTEXT_CHARS", func(c *Config) *int { return &c.Retrieval.MaxContextChars }),
	intVar("REQUEST_TIMEOUT_SEC", func(c *Config) *int { return &c.LLM.RequestTimeoutSec }),
	stringVar("LLM_PROVIDER", func(c *Config) *string { return &c.LLM.Provider }),
	stringVar("OLLAMA_BASE_URL", func(c *Config) *string { return &c.LLM.Ollama.BaseURL }),
	stringVar("OLLAMA_MODEL", func(c *Config) *string { return &c.LLM.Ollama.Model }),
	stringVar("OPENAI_BASE_URL", func(c *Config) *string { return &c.LLM.OpenAI.BaseURL }),
	stringVar("OPENAI_MODEL", func(c *Config) *string { return &c.LLM.OpenAI.Model }),
	stringVar("OPENAI_API_KEY", func(c *Config) *string { return &c.LLM.OpenAI.APIKey }),
	stringVar("OPENFIGI_API_BASE_URL", func(c *Config) *string { return &c.OpenFIGI.BaseURL }),
	stringVar("OPENFIGI_API_KEY", func(c *Config) *string { return &c.OpenFIGI.APIKey }),
	stringVar("COMPANIES_FILE", func(c *Config) *string { return &c.OpenFIGI.CompaniesFile }),
	stringVar("STORAGE_BACKEND", func(c *Config) *string { return &c.Storage.Backend }),
	stringVar("STORAGE_PATH", func(c *Config) *string { return &c.Storage.Path }),
	stringVar("TRANSCRIPTS_DIR", func(c *Config) *string { return &c.Ingestion.TranscriptsDir }),
	intVar("INGEST_WORKERS", func(c *Config) *int { return &c.Ingestion.Workers }),
	boolVar("DEFER_EMBEDDINGS", func(c *Config) *bool { return &c.Ingestion.DeferEmbeddings }),
}

// EnvNames lists the environment variables ApplyEnv reads.
func EnvNames() []string {
	names := make([]string, len(envVars))
	for i, v := range envVars {
		names[i] = v.name
	}
	return names
}

// ApplyEnv overrides settings with the environment variables that lookup
// finds. Unparsable values are reported together.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	var bad []string
	for _, v := range envVars {
		value, ok := lookup(v.name)
		if !ok {
			continue
		}
		if err := v.apply(c, value); err != nil {
			bad = append(bad, fmt.Sprintf("%s=%q", v.name, value))
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: invalid environment values %s", ErrInvalidConfig, strings.Join(bad, ", "))
	}
	return nil
}
