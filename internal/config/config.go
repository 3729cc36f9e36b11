package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the chorussearch API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Qdrant   QdrantConfig   `yaml:"qdrant"`
	Ollama   OllamaConfig   `yaml:"ollama"`
	Cache    CacheConfig    `yaml:"cache"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// QdrantConfig holds vector store connection and collection settings.
type QdrantConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	APIKey         string `yaml:"api_key"`
	Collection     string `yaml:"collection"`
	VectorSize     int    `yaml:"vector_size"`
	ConnectRetries int    `yaml:"connect_retries"`
	RetryDelaySec  int    `yaml:"retry_delay_sec"`
}

// OllamaConfig holds the embedding/generation runtime settings.
// The runtime is reached through its OpenAI-compatible API.
type OllamaConfig struct {
	BaseURL        string `yaml:"base_url"`
	EmbeddingModel string `yaml:"embedding_model"`
	LLMModel       string `yaml:"llm_model"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	Backend  string   `yaml:"backend"` // memory, redis (default: memory)
	MaxSize  int      `yaml:"max_size"`
	TTLSec   int      `yaml:"ttl_sec"`
	Addrs    []string `yaml:"addrs"`    // redis backend only
	Password string   `yaml:"password"` // redis backend only
	Prefix   string   `yaml:"prefix"`
}

// PipelineConfig holds query pipeline tuning knobs.
type PipelineConfig struct {
	DefaultK      int   `yaml:"default_k"`
	RetrieveCount int   `yaml:"retrieve_count"` // neighbors fetched before dedup
	ContextSize   int   `yaml:"context_size"`   // deduplicated items fed to the LLM
	PerItemReason *bool `yaml:"per_item_reasons"`
	Analysis      *bool `yaml:"overall_analysis"`
}

// PerItemReasonsEnabled reports whether per-result rationale generation is on.
func (p PipelineConfig) PerItemReasonsEnabled() bool {
	return p.PerItemReason == nil || *p.PerItemReason
}

// AnalysisEnabled reports whether overall analysis generation is on.
func (p PipelineConfig) AnalysisEnabled() bool {
	return p.Analysis == nil || *p.Analysis
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Streamed responses hold the connection across several
		// generation calls, so the write window is generous.
		c.HTTP.WriteTimeoutSec = 300
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Qdrant.Host == "" {
		c.Qdrant.Host = "localhost"
	}
	if c.Qdrant.Port <= 0 {
		c.Qdrant.Port = 6334
	}
	if c.Qdrant.Collection == "" {
		c.Qdrant.Collection = "choruses"
	}
	if c.Qdrant.VectorSize <= 0 {
		c.Qdrant.VectorSize = 768 // nomic-embed-text embedding size
	}
	if c.Qdrant.ConnectRetries <= 0 {
		c.Qdrant.ConnectRetries = 5
	}
	if c.Qdrant.RetryDelaySec <= 0 {
		c.Qdrant.RetryDelaySec = 2
	}
	if c.Ollama.BaseURL == "" {
		c.Ollama.BaseURL = "http://localhost:11434/v1"
	}
	if c.Ollama.EmbeddingModel == "" {
		c.Ollama.EmbeddingModel = "nomic-embed-text"
	}
	if c.Ollama.LLMModel == "" {
		c.Ollama.LLMModel = "mistral"
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.MaxSize <= 0 {
		c.Cache.MaxSize = 256
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 600
	}
	if c.Cache.Prefix == "" {
		c.Cache.Prefix = "chorussearch:"
	}
	if c.Pipeline.DefaultK <= 0 {
		c.Pipeline.DefaultK = 5
	}
	if c.Pipeline.RetrieveCount <= 0 {
		c.Pipeline.RetrieveCount = 12
	}
	if c.Pipeline.ContextSize <= 0 {
		c.Pipeline.ContextSize = 8
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Cache.Backend {
	case "memory":
		// ok
	case "redis":
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend must be \"memory\" or \"redis\", got %q", c.Cache.Backend)
	}
	if c.Pipeline.ContextSize > c.Pipeline.RetrieveCount {
		return fmt.Errorf(
			"pipeline.context_size (%d) must not exceed pipeline.retrieve_count (%d)",
			c.Pipeline.ContextSize, c.Pipeline.RetrieveCount,
		)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
