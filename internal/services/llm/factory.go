package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
)

// ProviderType represents the AI provider type
type ProviderType string

const (
	// ProviderClaude uses the Anthropic Claude API
	ProviderClaude ProviderType = "claude"
	// ProviderGemini uses the Google Gemini API
	ProviderGemini ProviderType = "gemini"
)

// DetectProvider determines the provider type from a model string.
// "claude-..." or "claude/..." selects Claude; "gemini-..." or "gemini/..."
// selects Gemini; anything else falls back to the configured default.
func DetectProvider(model, defaultProvider string) ProviderType {
	model = strings.ToLower(model)

	if strings.HasPrefix(model, "claude/") || strings.HasPrefix(model, "anthropic/") || strings.HasPrefix(model, "claude-") {
		return ProviderClaude
	}
	if strings.HasPrefix(model, "gemini/") || strings.HasPrefix(model, "google/") || strings.HasPrefix(model, "gemini-") {
		return ProviderGemini
	}
	return ProviderType(defaultProvider)
}

// NewResponder builds the production responder selected by configuration
func NewResponder(ctx context.Context, config *common.Config, logger arbor.ILogger) (interfaces.Responder, error) {
	timeout, err := time.ParseDuration(config.LLM.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid llm request_timeout %q: %w", config.LLM.RequestTimeout, err)
	}
	limiter := newLimiter(config.LLM.RatePerMinute)
	model := NormalizeModel(config.LLM.Model)

	switch DetectProvider(config.LLM.Model, config.LLM.DefaultProvider) {
	case ProviderGemini:
		geminiConfig := config.Gemini
		if model != "" {
			geminiConfig.Model = model
		}
		return NewGeminiResponder(ctx, &geminiConfig, limiter, timeout, logger)
	default:
		claudeConfig := config.Claude
		if model != "" {
			claudeConfig.Model = model
		}
		return NewClaudeResponder(&claudeConfig, limiter, timeout, logger), nil
	}
}

// NormalizeModel removes a provider prefix from the model name if present
func NormalizeModel(model string) string {
	for _, prefix := range []string{"claude/", "anthropic/", "gemini/", "google/"} {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return model[len(prefix):]
		}
	}
	return model
}

// NewEmbedder builds the embedding capability for the vector index
func NewEmbedder(ctx context.Context, config *common.Config, logger arbor.ILogger) (interfaces.Embedder, error) {
	return NewGeminiEmbedder(ctx, config.Gemini.APIKey, config.LLM.EmbedModelName, config.LLM.EmbedDimension, logger)
}
