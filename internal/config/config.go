// Package config loads application configuration from an optional
// config.yaml and KNIFE_-prefixed environment variables, and initializes
// the global logger.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/stardustx8/legalchat/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" mapstructure:"embeddings"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Prompts    PromptsConfig    `yaml:"prompts" mapstructure:"prompts"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// SearchConfig configures the vector index backend.
type SearchConfig struct {
	// Driver selects the index backend: "azure", "postgres", or "sqlite".
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Endpoint    string `yaml:"endpoint" mapstructure:"endpoint"`
	Key         string `yaml:"key" mapstructure:"key"`
	Index       string `yaml:"index" mapstructure:"index"`
	APIVersion  string `yaml:"api_version" mapstructure:"api_version"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Path        string `yaml:"path" mapstructure:"path"`
}

// LLMConfig holds the generative chat provider settings.
type LLMConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// EmbeddingsConfig holds the embedding provider settings.
type EmbeddingsConfig struct {
	Key        string  `yaml:"key" mapstructure:"key"`
	BaseURL    string  `yaml:"base_url" mapstructure:"base_url"`
	Model      string  `yaml:"model" mapstructure:"model"`
	Dimensions int     `yaml:"dimensions" mapstructure:"dimensions"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// PipelineConfig tunes the retrieval and answer pipeline.
type PipelineConfig struct {
	BaseK           int `yaml:"base_k" mapstructure:"base_k"`
	PerCountryK     int `yaml:"per_country_k" mapstructure:"per_country_k"`
	MaxK            int `yaml:"max_k" mapstructure:"max_k"`
	MinSearchK      int `yaml:"min_search_k" mapstructure:"min_search_k"`
	MaxContextChars int `yaml:"max_context_chars" mapstructure:"max_context_chars"`

	// OnRefineParseError selects what happens when the refiner returns
	// unparseable JSON: "fail" surfaces an error to the caller;
	// "fallback_to_draft" returns the unrefined draft instead.
	OnRefineParseError string `yaml:"on_refine_parse_error" mapstructure:"on_refine_parse_error"`

	// Debug includes the refiner's evaluation block in responses.
	Debug bool `yaml:"debug" mapstructure:"debug"`

	// IngestMaxChunkChars caps the size of one ingested chunk.
	IngestMaxChunkChars int `yaml:"ingest_max_chunk_chars" mapstructure:"ingest_max_chunk_chars"`
}

// PromptsConfig points at optional files overriding the built-in system
// prompts. Empty values keep the defaults.
type PromptsConfig struct {
	DetectFile string `yaml:"detect_file" mapstructure:"detect_file"`
	DraftFile  string `yaml:"draft_file" mapstructure:"draft_file"`
	RefineFile string `yaml:"refine_file" mapstructure:"refine_file"`
}

// RetryConfig configures the outbound-call retry policy.
type RetryConfig struct {
	Retries     int `yaml:"retries" mapstructure:"retries"`
	BaseDelayMS int `yaml:"base_delay_ms" mapstructure:"base_delay_ms"`
	MaxDelayMS  int `yaml:"max_delay_ms" mapstructure:"max_delay_ms"`
}

// Policy converts the config into a resilience.Policy.
func (r RetryConfig) Policy() resilience.Policy {
	p := resilience.DefaultPolicy()
	p.Retries = r.Retries
	if r.BaseDelayMS > 0 {
		p.BaseDelay = time.Duration(r.BaseDelayMS) * time.Millisecond
	}
	if r.MaxDelayMS > 0 {
		p.MaxDelay = time.Duration(r.MaxDelayMS) * time.Millisecond
	}
	return p
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// KNIFE_SEARCH_ENDPOINT, KNIFE_LLM_KEY, ...
	v.SetEnvPrefix("KNIFE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("search.driver", "azure")
	v.SetDefault("search.index", "knife-index")
	v.SetDefault("search.api_version", "2023-11-01")
	v.SetDefault("llm.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("embeddings.base_url", "https://api.jina.ai")
	v.SetDefault("embeddings.model", "jina-embeddings-v3")
	v.SetDefault("embeddings.dimensions", 1024)
	v.SetDefault("embeddings.rate_per_sec", 10)
	v.SetDefault("pipeline.base_k", 15)
	v.SetDefault("pipeline.per_country_k", 10)
	v.SetDefault("pipeline.max_k", 50)
	v.SetDefault("pipeline.min_search_k", 10)
	v.SetDefault("pipeline.max_context_chars", 12000)
	v.SetDefault("pipeline.on_refine_parse_error", "fail")
	v.SetDefault("pipeline.ingest_max_chunk_chars", 2000)
	v.SetDefault("retry.retries", 2)
	v.SetDefault("retry.base_delay_ms", 500)
	v.SetDefault("retry.max_delay_ms", 30000)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that every setting required by the selected backends is
// present. It reports all missing settings at once so the operator fixes
// them in one pass. Called before any pipeline stage runs.
func (c *Config) Validate() error {
	var missing []string

	switch c.Search.Driver {
	case "azure", "":
		if c.Search.Endpoint == "" {
			missing = append(missing, "search.endpoint (KNIFE_SEARCH_ENDPOINT)")
		}
		if c.Search.Key == "" {
			missing = append(missing, "search.key (KNIFE_SEARCH_KEY)")
		}
	case "postgres":
		if c.Search.DatabaseURL == "" {
			missing = append(missing, "search.database_url (KNIFE_SEARCH_DATABASE_URL)")
		}
	case "sqlite":
		if c.Search.Path == "" {
			missing = append(missing, "search.path (KNIFE_SEARCH_PATH)")
		}
	default:
		return eris.Errorf("config: unknown search driver %q", c.Search.Driver)
	}

	if c.LLM.Key == "" {
		missing = append(missing, "llm.key (KNIFE_LLM_KEY)")
	}
	if c.Embeddings.Key == "" {
		missing = append(missing, "embeddings.key (KNIFE_EMBEDDINGS_KEY)")
	}

	switch c.Pipeline.OnRefineParseError {
	case "fail", "fallback_to_draft":
	default:
		return eris.Errorf("config: pipeline.on_refine_parse_error must be %q or %q",
			"fail", "fallback_to_draft")
	}

	if len(missing) > 0 {
		return eris.New("config: missing required settings: " + strings.Join(missing, ", "))
	}
	return nil
}

// LoadPromptOverride reads a prompt override file, returning fallback when
// path is empty.
func LoadPromptOverride(path, fallback string) (string, error) {
	if path == "" {
		return fallback, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrap(err, fmt.Sprintf("config: read prompt file %s", path))
	}
	return string(data), nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
