// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.liftwise/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - AI: Provider selection, model name, fallback models, embedder
//   - Storage: PostgreSQL connection (see storage.go)
//   - Retrieval: Query fan-out and context assembly limits
//   - Hevy: Workout-log MCP server (see hevy.go)
//   - Telemetry: OTLP trace export
//
// Security: Sensitive data (passwords, API keys) are never logged.
// Validation: Range checks in validation.go with sentinel errors for errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidOllamaHost indicates the Ollama host is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidRetrievalTopK indicates the retrieval top-k value is out of range.
	ErrInvalidRetrievalTopK = errors.New("invalid retrieval top-k")

	// ErrInvalidQueryLimit indicates the query fan-out limit is out of range.
	ErrInvalidQueryLimit = errors.New("invalid query limit")

	// ErrInvalidChunkLimit indicates the context chunk limit is out of range.
	ErrInvalidChunkLimit = errors.New("invalid chunk limit")

	// ErrInvalidPlanRevisions indicates the plan revision limit is out of range.
	ErrInvalidPlanRevisions = errors.New("invalid plan revision limit")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderOllama   = "ollama"
	ProviderOpenAI   = "openai"
	ProviderGoogleAI = "googleai"
)

const (
	// DefaultModel is the default coaching model when nothing is configured.
	DefaultModel = "llama3.2:3b"

	// DefaultOllamaEmbedderModel is the default local embedder model.
	// nomic-embed-text outputs 768 dimensions, matching the pgvector schema.
	DefaultOllamaEmbedderModel = "nomic-embed-text"
)

// HevyConfig holds the workout-log MCP server settings.
//
// The server is launched as a stdio subprocess; APIKey is passed to it
// via the HEVY_API_KEY environment variable and never sent anywhere else.
type HevyConfig struct {
	// Command is the executable that starts the MCP server.
	Command string `mapstructure:"command" json:"command"`
	// Args are passed verbatim to Command.
	Args []string `mapstructure:"args" json:"args"`
	// APIKey authenticates against the Hevy API (SENSITIVE: masked in MarshalJSON).
	APIKey string `mapstructure:"api_key" json:"api_key"`
}

// MarshalJSON masks the API key.
func (h HevyConfig) MarshalJSON() ([]byte, error) {
	type alias HevyConfig
	a := alias(h)
	a.APIKey = maskSecret(a.APIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal hevy config: %w", err)
	}
	return data, nil
}

// TelemetryConfig holds OTLP trace export settings.
type TelemetryConfig struct {
	// Endpoint is the OTLP HTTP collector endpoint (default: localhost:4318).
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	// Environment is the deployment environment tag (default: dev).
	Environment string `mapstructure:"environment" json:"environment"`
	// ServiceName is the service name on exported spans (default: liftwise).
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys, tokens), update MarshalJSON.
type Config struct {
	// AI provider and model configuration
	Provider    string  `mapstructure:"provider" json:"provider"`     // "ollama" (default), "openai", "googleai"
	ModelName   string  `mapstructure:"model_name" json:"model_name"` // Model identifier (e.g., "llama3.2:3b", "gpt-4o-mini", "gemini-2.5-flash")
	Temperature float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens"`
	MaxTurns    int     `mapstructure:"max_turns" json:"max_turns"`

	// Ollama configuration (used for local models and the local fallback)
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// LocalModelPrefixes extends the built-in set of model-name prefixes
	// recognized as local-family models.
	LocalModelPrefixes []string `mapstructure:"local_model_prefixes" json:"local_model_prefixes"`

	// Fallback models per family, tried when the primary model fails.
	FallbackLocalModel  string `mapstructure:"fallback_local_model" json:"fallback_local_model"`
	FallbackOpenAIModel string `mapstructure:"fallback_openai_model" json:"fallback_openai_model"`
	FallbackGeminiModel string `mapstructure:"fallback_gemini_model" json:"fallback_gemini_model"`

	// Conversation history configuration
	MaxHistoryTurns int `mapstructure:"max_history_turns" json:"max_history_turns"`

	// Retrieval configuration
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`
	RetrievalTopK int    `mapstructure:"retrieval_top_k" json:"retrieval_top_k"`
	MaxQueries    int    `mapstructure:"max_queries" json:"max_queries"`
	MaxChunks     int    `mapstructure:"max_chunks" json:"max_chunks"`

	// KnowledgeDir is the default directory scanned by the index command.
	KnowledgeDir string `mapstructure:"knowledge_dir" json:"knowledge_dir"`

	// Planner configuration
	PlanMaxRevisions int `mapstructure:"plan_max_revisions" json:"plan_max_revisions"`

	// Storage configuration (see storage.go for documentation)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Response cache configuration
	CacheEnabled bool   `mapstructure:"cache_enabled" json:"cache_enabled"`
	CacheDir     string `mapstructure:"cache_dir" json:"cache_dir"`

	// Hevy workout-log MCP server (see HevyConfig)
	Hevy HevyConfig `mapstructure:"hevy" json:"hevy"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry" json:"telemetry"`

	// Security configuration (serve mode only)
	ServeAddr   string   `mapstructure:"serve_addr" json:"serve_addr"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"` // Trust X-Real-IP/X-Forwarded-For headers (set true behind reverse proxy)
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".liftwise")

	// Ensure directory exists (0750 keeps API keys in config.yaml private)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults(configDir)
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL has the highest priority for PostgreSQL settings
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(configDir string) {
	// AI defaults
	viper.SetDefault("provider", ProviderOllama)
	viper.SetDefault("model_name", DefaultModel)
	viper.SetDefault("temperature", 0.7)
	viper.SetDefault("max_tokens", 2048)
	viper.SetDefault("max_turns", 5)
	viper.SetDefault("max_history_turns", 6)

	// Ollama defaults
	viper.SetDefault("ollama_host", "http://localhost:11434")

	// Fallback model defaults, one per family
	viper.SetDefault("fallback_local_model", "llama3.2:3b")
	viper.SetDefault("fallback_openai_model", "gpt-4o-mini")
	viper.SetDefault("fallback_gemini_model", "gemini-2.5-flash")

	// Retrieval defaults
	viper.SetDefault("embedder_model", DefaultOllamaEmbedderModel)
	viper.SetDefault("retrieval_top_k", 4)
	viper.SetDefault("max_queries", 8)
	viper.SetDefault("max_chunks", 12)
	viper.SetDefault("knowledge_dir", "knowledge")

	// Planner defaults
	viper.SetDefault("plan_max_revisions", 10)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "liftwise")
	viper.SetDefault("postgres_password", "liftwise_dev_password")
	viper.SetDefault("postgres_db_name", "liftwise")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Response cache defaults
	viper.SetDefault("cache_enabled", true)
	viper.SetDefault("cache_dir", filepath.Join(configDir, "cache"))

	// Hevy MCP defaults (uvx runs the published server without a local install)
	viper.SetDefault("hevy.command", "uvx")
	viper.SetDefault("hevy.args", []string{"hevy-mcp"})

	// Serve defaults
	viper.SetDefault("serve_addr", ":8080")
	viper.SetDefault("cors_origins", []string{"http://localhost:4200"})
	viper.SetDefault("trust_proxy", false)

	// Telemetry defaults
	viper.SetDefault("telemetry.endpoint", "localhost:4318")
	viper.SetDefault("telemetry.environment", "dev")
	viper.SetDefault("telemetry.service_name", "liftwise")
}

// bindEnvVariables binds environment variables explicitly.
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail)
	// If this panics, it's a BUG in our code, not a runtime error
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	// AI provider and model overrides
	mustBind("provider", "LIFTWISE_PROVIDER")
	mustBind("model_name", "LIFTWISE_MODEL_NAME")
	mustBind("ollama_host", "LIFTWISE_OLLAMA_HOST")
	mustBind("embedder_model", "LIFTWISE_EMBEDDER_MODEL")

	// Hevy workout-log access
	mustBind("hevy.api_key", "HEVY_API_KEY")

	// Serve mode
	mustBind("serve_addr", "LIFTWISE_SERVE_ADDR")
	mustBind("cors_origins", "LIFTWISE_CORS_ORIGINS")
	mustBind("trust_proxy", "LIFTWISE_TRUST_PROXY")

	// Telemetry
	mustBind("telemetry.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")

	// NOTE: OPENAI_API_KEY is read directly by the Genkit OpenAI plugin, not via Viper
	// NOTE: GEMINI_API_KEY is read directly by the Genkit Google AI plugin, not via Viper
	// Validation checks their presence based on the selected provider in cfg.Validate()
}

// maskedValue is the placeholder for masked sensitive data.
// Using ████████ (full-width blocks U+2588) to avoid substring matching
// Previous attempts:
// - "****" failed: passwords with "*" leaked
// - "[REDACTED]" failed: passwords with "A", "D", "E", etc. leaked
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Shows first 2 and last 2 characters, masks the rest.
// SECURITY: For secrets <=8 chars, fully masks to prevent substring attacks.
//
// THREAT MODEL: This defends against accidental logging of real secrets.
// It is NOT cryptographically secure - if logs are compromised, rotate secrets.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	// Fully mask short secrets to prevent substring matching attacks
	// Example attack: input "00***" → output "00******" contains "00***"
	if len(s) <= 8 {
		return maskedValue
	}
	prefix := make([]byte, 2)
	suffix := make([]byte, 2)
	copy(prefix, s[:2])
	copy(suffix, s[len(s)-2:])
	return string(prefix) + "<" + maskedValue + ">" + string(suffix)
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - PostgresPassword
//   - Hevy.APIKey (via HevyConfig.MarshalJSON)
//
// When adding new sensitive fields, update this method or the nested struct's MarshalJSON.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// FullModelName returns the provider-qualified model name for Genkit.
// Examples: "ollama/llama3.2:3b", "openai/gpt-4o-mini", "googleai/gemini-2.5-flash".
// If ModelName already contains a "/", it is returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	switch c.Provider {
	case ProviderOpenAI:
		return ProviderOpenAI + "/" + c.ModelName
	case ProviderGoogleAI:
		return ProviderGoogleAI + "/" + c.ModelName
	default:
		return ProviderOllama + "/" + c.ModelName
	}
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
