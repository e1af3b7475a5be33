package common

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/ternarybob/respondeo/internal/models"
)

// Config represents the application configuration
type Config struct {
	Logging  LoggingConfig  `toml:"logging"`
	Storage  StorageConfig  `toml:"storage"`
	LLM      LLMConfig      `toml:"llm"`
	Claude   ClaudeConfig   `toml:"claude"`
	Gemini   GeminiConfig   `toml:"gemini"`
	Ask      AskConfig      `toml:"ask"`
	Chunking ChunkingConfig `toml:"chunking"`
	Ingest   IngestConfig   `toml:"ingest"`
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"omitempty,oneof=trace debug info warn error"` // "debug", "info", "warn", "error"
	Output []string `toml:"output"`                                                       // "stdout", "file"
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

// LLMConfig selects the provider stack and embedding model
type LLMConfig struct {
	DefaultProvider string `toml:"default_provider" validate:"oneof=claude gemini"` // Provider used when the model string carries no prefix
	Model           string `toml:"model"`                                           // Optional model override; provider detected by prefix ("claude-", "gemini-")
	EmbedModelName  string `toml:"embed_model_name"`
	EmbedDimension  int    `toml:"embed_dimension" validate:"gt=0"`
	RequestTimeout  string `toml:"request_timeout"` // e.g. "60s" - timeout applied to each responder/embedding call
	RatePerMinute   int    `toml:"rate_per_minute"` // Max LLM calls per minute, 0 disables limiting
}

// ClaudeConfig contains Anthropic API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
}

// AskConfig mirrors models.AskConfig for TOML loading
type AskConfig struct {
	TopK              int      `toml:"top_k" validate:"gt=0"`
	NeighborSpan      int      `toml:"neighbor_span" validate:"gte=0"`
	DedupeFields      []string `toml:"dedupe_fields"`
	MaxSubquestions   int      `toml:"max_subquestions" validate:"gt=0"`
	ReflectionEnabled bool     `toml:"reflection_enabled"`
	MaxReflections    int      `toml:"max_reflections" validate:"gte=0"`
	MinCitations      int      `toml:"min_citations" validate:"gte=0"`
}

// ChunkingConfig controls chunk size and overlap at ingest time.
// Values are clamped at load; the segmenter assumes clamped input.
type ChunkingConfig struct {
	ChunkSizeTokens      int `toml:"chunk_size_tokens"`
	ChunkOverlapTokens   int `toml:"chunk_overlap_tokens"`
	MergeThresholdTokens int `toml:"merge_threshold_tokens"`
}

// IngestConfig controls the markdown ingest path
type IngestConfig struct {
	SidecarSuffix string `toml:"sidecar_suffix"` // Appended to the source path for the chunk sidecar (default: ".parsed.json")
}

// DefaultConfig returns the baseline configuration before file and
// environment overrides are applied
func DefaultConfig() *Config {
	ask := models.DefaultAskConfig()
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{Path: "./data/index"},
		},
		LLM: LLMConfig{
			DefaultProvider: "claude",
			EmbedModelName:  "gemini-embedding-001",
			EmbedDimension:  768,
			RequestTimeout:  "60s",
			RatePerMinute:   30,
		},
		Claude: ClaudeConfig{
			Model:       "claude-sonnet-4-20250514",
			MaxTokens:   1024,
			Temperature: 0.0,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.0-flash",
			Temperature: 0.0,
		},
		Ask: AskConfig{
			TopK:              ask.TopK,
			NeighborSpan:      ask.NeighborSpan,
			DedupeFields:      ask.DedupeFields,
			MaxSubquestions:   ask.MaxSubquestions,
			ReflectionEnabled: ask.ReflectionEnabled,
			MaxReflections:    ask.MaxReflections,
			MinCitations:      ask.MinCitations,
		},
		Chunking: ChunkingConfig{
			ChunkSizeTokens:      700,
			ChunkOverlapTokens:   150,
			MergeThresholdTokens: 60,
		},
		Ingest: IngestConfig{
			SidecarSuffix: ".parsed.json",
		},
	}
}

// LoadFromFiles loads configuration with precedence:
// defaults -> file1 -> file2 -> ... -> environment
func LoadFromFiles(paths ...string) (*Config, error) {
	config := DefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	config.Chunking = config.Chunking.Clamp()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("RESPONDEO_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("RESPONDEO_BADGER_PATH"); v != "" {
		config.Storage.Badger.Path = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		config.Claude.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		config.Gemini.APIKey = v
	}
	if v := os.Getenv("RESPONDEO_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Ask.TopK = n
		}
	}
}

// Validate checks the configuration against its struct constraints
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Clamp returns a sanitized copy of the chunking configuration:
// size >= 1, 0 <= overlap <= size-1, threshold >= 0
func (c ChunkingConfig) Clamp() ChunkingConfig {
	size := c.ChunkSizeTokens
	if size < 1 {
		size = 1
	}
	overlap := c.ChunkOverlapTokens
	if overlap < 0 {
		overlap = 0
	}
	if overlap > size-1 {
		overlap = size - 1
	}
	threshold := c.MergeThresholdTokens
	if threshold < 0 {
		threshold = 0
	}
	return ChunkingConfig{
		ChunkSizeTokens:      size,
		ChunkOverlapTokens:   overlap,
		MergeThresholdTokens: threshold,
	}
}

// AskModel converts the TOML ask section into the per-run config consumed by
// the reasoning state machine
func (c *Config) AskModel() models.AskConfig {
	fields := c.Ask.DedupeFields
	if len(fields) == 0 {
		fields = []string{"source_path", "chunk_id"}
	}
	return models.AskConfig{
		TopK:              c.Ask.TopK,
		NeighborSpan:      c.Ask.NeighborSpan,
		DedupeFields:      fields,
		MaxSubquestions:   c.Ask.MaxSubquestions,
		ReflectionEnabled: c.Ask.ReflectionEnabled,
		MaxReflections:    c.Ask.MaxReflections,
		MinCitations:      c.Ask.MinCitations,
	}
}
