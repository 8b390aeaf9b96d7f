// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Storage drivers accepted by STORE_DRIVER and VECTOR_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Provider names accepted by LLM_PROVIDER and EMBEDDING_PROVIDER.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Training launchers accepted by TRAINING_LAUNCHER.
const (
	LauncherProcess = "process"
	LauncherDocker  = "docker"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	CORSOrigins []string
	DataDir     string
	DBPath      string
	StoreDriver string
	DatabaseURL string

	LLM        LLMConfig
	Embedding  EmbeddingConfig
	Retrieval  RetrievalConfig
	Chat       ChatConfig
	Transcript TranscriptConfig
	Training   TrainingConfig

	DocumentsFile string
	AgentsFile    string
}

// LLMConfig selects and configures the chat completion provider.
type LLMConfig struct {
	Provider      string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	GeminiAPIKey  string
	Timeout       time.Duration
}

// EmbeddingConfig selects the embedding engine. A missing credential for the
// selected provider falls back to the placeholder engine.
type EmbeddingConfig struct {
	Provider   string
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// RetrievalConfig controls the vector index.
type RetrievalConfig struct {
	Driver string
	K      int
}

// ChatConfig controls orchestrator behaviour.
type ChatConfig struct {
	Temperature            float32
	RateLimit              int
	RateLimitWindow        time.Duration
	StrictSessionOwnership bool
	ScopeToAgentDocuments  bool
}

// TranscriptConfig controls the fine-tuning transcript corpus.
type TranscriptConfig struct {
	Enabled   bool
	Path      string
	QueueSize int
}

// TrainingConfig controls how fine-tuning workers are launched.
type TrainingConfig struct {
	OutputDir    string
	WorkerBin    string
	Launcher     string
	Image        string
	StepInterval time.Duration
	DefaultModel string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	dataDir := getEnv("DATA_DIR", "./data")

	queueSize := getEnvInt("TRANSCRIPT_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	llmProvider := strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI))

	cfg := &Config{
		Port:        getEnv("PORT", "8000"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"*"}),
		DataDir:     dataDir,
		DBPath:      getEnv("DB_PATH", filepath.Join(dataDir, "agentforge.db")),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", DriverSQLite)),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		LLM: LLMConfig{
			Provider:      llmProvider,
			OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
			Timeout:       getEnvDuration("PROVIDER_TIMEOUT", 60*time.Second),
		},
		Embedding: EmbeddingConfig{
			Provider:   strings.ToLower(getEnv("EMBEDDING_PROVIDER", llmProvider)),
			Model:      getEnv("EMBEDDING_MODEL", ""),
			Dimensions: getEnvInt("EMBEDDING_DIMENSIONS", 1536),
			Timeout:    getEnvDuration("EMBEDDING_TIMEOUT", 30*time.Second),
		},
		Retrieval: RetrievalConfig{
			Driver: strings.ToLower(getEnv("VECTOR_DRIVER", DriverSQLite)),
			K:      getEnvInt("RETRIEVAL_K", 3),
		},
		Chat: ChatConfig{
			Temperature:            getEnvFloat32("CHAT_TEMPERATURE", 0.7),
			RateLimit:              getEnvInt("CHAT_RATE_LIMIT", 30),
			RateLimitWindow:        getEnvDuration("CHAT_RATE_LIMIT_WINDOW", time.Minute),
			StrictSessionOwnership: getEnvBool("STRICT_SESSION_OWNERSHIP", false),
			ScopeToAgentDocuments:  getEnvBool("SCOPE_RETRIEVAL_TO_AGENT_DOCS", false),
		},
		Transcript: TranscriptConfig{
			Enabled:   getEnvBool("TRANSCRIPT_ENABLED", true),
			Path:      getEnv("TRANSCRIPT_PATH", filepath.Join(dataDir, "chat_logs.jsonl")),
			QueueSize: queueSize,
		},
		Training: TrainingConfig{
			OutputDir:    getEnv("TRAINING_OUTPUT_DIR", "./ml/output"),
			WorkerBin:    getEnv("TRAINER_BIN", "trainer"),
			Launcher:     strings.ToLower(getEnv("TRAINING_LAUNCHER", LauncherProcess)),
			Image:        getEnv("TRAINING_IMAGE", "agentforge-trainer:latest"),
			StepInterval: getEnvDuration("TRAINING_STEP_INTERVAL", time.Second),
			DefaultModel: getEnv("TRAINING_MODEL", "TinyLlama/TinyLlama-1.1B-Chat-v1.0"),
		},
		DocumentsFile: getEnv("DOCUMENTS_FILE", filepath.Join(dataDir, "documents.json")),
		AgentsFile:    getEnv("AGENTS_FILE", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	switch c.StoreDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH cannot be empty")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.Retrieval.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when VECTOR_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown VECTOR_DRIVER %q", c.Retrieval.Driver)
	}
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLM.Provider)
	}
	if c.Retrieval.K <= 0 {
		return fmt.Errorf("RETRIEVAL_K must be > 0")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("EMBEDDING_DIMENSIONS must be > 0")
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be > 0")
	}
	if c.Chat.RateLimit > 0 && c.Chat.RateLimitWindow <= 0 {
		return fmt.Errorf("CHAT_RATE_LIMIT_WINDOW must be > 0")
	}
	if c.Transcript.Path == "" {
		return fmt.Errorf("TRANSCRIPT_PATH cannot be empty")
	}
	if c.Transcript.QueueSize <= 0 {
		return fmt.Errorf("TRANSCRIPT_QUEUE_SIZE must be > 0")
	}
	if c.Training.OutputDir == "" {
		return fmt.Errorf("TRAINING_OUTPUT_DIR cannot be empty")
	}
	switch c.Training.Launcher {
	case LauncherProcess, LauncherDocker:
	default:
		return fmt.Errorf("unknown TRAINING_LAUNCHER %q", c.Training.Launcher)
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// ProviderConfigured reports whether the selected chat provider has a credential.
func (c *Config) ProviderConfigured() bool {
	switch c.LLM.Provider {
	case ProviderGemini:
		return c.LLM.GeminiAPIKey != ""
	default:
		return c.LLM.OpenAIAPIKey != ""
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat32(key string, fallback float32) float32 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 32)
	if err != nil {
		return fallback
	}
	return float32(f)
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
