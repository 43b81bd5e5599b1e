// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full environment-driven configuration. Zero-value
// WeaviateURL enables lightweight mode (no retrieval, no ingestion).
type Config struct {
	Port  string `env:"MEDASSIST_PORT" envDefault:"8080"`
	UIDir string `env:"MEDASSIST_UI_DIR" envDefault:"./ui"`

	WeaviateURL string `env:"WEAVIATE_URL"`

	// LLMBackend selects the completion provider: groq, openai or ollama.
	LLMBackend string `env:"LLM_BACKEND" envDefault:"groq"`

	GroqAPIKey string `env:"GROQ_API_KEY"`
	GroqModel  string `env:"GROQ_MODEL" envDefault:"llama-3.3-70b-versatile"`

	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	OpenAIModel  string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`

	OllamaBaseURL string `env:"OLLAMA_BASE_URL" envDefault:"http://localhost:11434"`
	OllamaModel   string `env:"OLLAMA_MODEL" envDefault:"llama3"`

	RetrievalTopK    int           `env:"RETRIEVAL_TOP_K" envDefault:"4"`
	HistoryWindow    int           `env:"HISTORY_WINDOW" envDefault:"6"`
	RetrievalTimeout time.Duration `env:"RETRIEVAL_TIMEOUT" envDefault:"10s"`
	LLMTimeout       time.Duration `env:"LLM_TIMEOUT" envDefault:"5m"`

	OTELEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// groqSecretPath is where container secrets mount the Groq key when the
// environment variable is absent.
const groqSecretPath = "/run/secrets/groq_api_key"

// Load parses the environment into a Config and applies the container
// secret fallback for the Groq API key.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.GroqAPIKey == "" {
		if keyBytes, err := os.ReadFile(groqSecretPath); err == nil {
			cfg.GroqAPIKey = strings.TrimSpace(string(keyBytes))
			slog.Info("Read the Groq API key from container secrets")
		}
	}
	return cfg, nil
}
