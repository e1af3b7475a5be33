package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
)

// GeminiResponder drafts answers via the Google Gemini API
type GeminiResponder struct {
	client  *genai.Client
	config  *common.GeminiConfig
	limiter *rate.Limiter
	timeout time.Duration
	logger  arbor.ILogger
}

// NewGeminiResponder creates a responder backed by the Gemini API
func NewGeminiResponder(ctx context.Context, config *common.GeminiConfig, limiter *rate.Limiter, timeout time.Duration, logger arbor.ILogger) (*GeminiResponder, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiResponder{
		client:  client,
		config:  config,
		limiter: limiter,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Respond generates a draft answer from the question and context block
func (r *GeminiResponder) Respond(ctx context.Context, req *interfaces.RespondRequest) (string, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, msg := range req.History {
		role := genai.RoleUser
		if msg.Role == "assistant" {
			role = genai.RoleModel
		}
		if msg.Role == "system" {
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
		})
	}
	contents = append(contents, &genai.Content{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{genai.NewPartFromText(userPrompt(req))},
	})

	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(r.config.Temperature),
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}

	start := time.Now()
	resp, err := r.client.Models.GenerateContent(timeoutCtx, r.config.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("Gemini API call failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("empty response from Gemini API")
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty text in Gemini response")
	}

	r.logger.Debug().
		Str("model", r.config.Model).
		Int("history_len", len(req.History)).
		Dur("duration", time.Since(start)).
		Msg("Gemini responder completed")

	return text, nil
}

// GeminiEmbedder generates embeddings via the Gemini embedding models
type GeminiEmbedder struct {
	client    *genai.Client
	model     string
	dimension int
	logger    arbor.ILogger
}

// NewGeminiEmbedder creates an embedder backed by the Gemini API
func NewGeminiEmbedder(ctx context.Context, apiKey, model string, dimension int, logger arbor.ILogger) (*GeminiEmbedder, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiEmbedder{
		client:    client,
		model:     model,
		dimension: dimension,
		logger:    logger,
	}, nil
}

// Embed generates an embedding vector for the given text
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty for embedding generation")
	}

	outputDim := int32(e.dimension)
	config := &genai.EmbedContentConfig{
		OutputDimensionality: &outputDim,
	}

	result, err := e.client.Models.EmbedContent(ctx, e.model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, config)
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	var embedding []float32
	if result != nil && len(result.Embeddings) > 0 {
		embedding = result.Embeddings[0].Values
	}
	if embedding == nil {
		return nil, fmt.Errorf("no embedding returned from API")
	}
	if len(embedding) != e.dimension {
		return nil, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", e.dimension, len(embedding))
	}

	return embedding, nil
}

// Dimension returns the embedding dimension
func (e *GeminiEmbedder) Dimension() int {
	return e.dimension
}
