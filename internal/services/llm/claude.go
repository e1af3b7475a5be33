package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
)

// ClaudeResponder drafts answers via the Anthropic API
type ClaudeResponder struct {
	client  anthropic.Client
	config  *common.ClaudeConfig
	limiter *rate.Limiter
	timeout time.Duration
	logger  arbor.ILogger
}

// NewClaudeResponder creates a responder backed by the Anthropic API
func NewClaudeResponder(config *common.ClaudeConfig, limiter *rate.Limiter, timeout time.Duration, logger arbor.ILogger) *ClaudeResponder {
	return &ClaudeResponder{
		client:  anthropic.NewClient(option.WithAPIKey(config.APIKey)),
		config:  config,
		limiter: limiter,
		timeout: timeout,
		logger:  logger,
	}
}

// Respond generates a draft answer from the question and context block
func (r *ClaudeResponder) Respond(ctx context.Context, req *interfaces.RespondRequest) (string, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	messages := make([]anthropic.MessageParam, 0, len(req.History)+1)
	for _, msg := range req.History {
		switch msg.Role {
		case "assistant":
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		case "system":
			// System content is carried in params.System
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt(req))))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(r.config.Model),
		MaxTokens: int64(r.config.MaxTokens),
		Messages:  messages,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
	}
	if r.config.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(r.config.Temperature))
	}

	start := time.Now()
	resp, err := r.client.Messages.New(timeoutCtx, params)
	if err != nil {
		return "", fmt.Errorf("Claude API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("empty response from Claude API")
	}

	r.logger.Debug().
		Str("model", r.config.Model).
		Int("history_len", len(req.History)).
		Dur("duration", time.Since(start)).
		Msg("Claude responder completed")

	return text.String(), nil
}
