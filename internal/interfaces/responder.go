package interfaces

import (
	"context"

	"github.com/ternarybob/respondeo/internal/models"
)

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// RespondRequest carries everything a responder needs to draft an answer.
type RespondRequest struct {
	// The normalized user question
	Question string

	// Numbered context block rendered from the retrieved matches
	Context string

	// Style/length constraints, including reflection focus areas
	Instructions string

	// Conversation history in chronological order
	History []Message

	// The retrieved matches behind the context block. Production responders
	// ignore this; the offline responder uses it to build an extractive
	// summary.
	Matches []models.RetrievedMatch
}

// Responder drafts an answer from a question and retrieved context.
// Implementations may call out to an LLM; failures are tolerated by the
// caller, which falls back to a deterministic extractive summary.
type Responder interface {
	Respond(ctx context.Context, req *RespondRequest) (string, error)
}
