package llm

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/ternarybob/respondeo/internal/interfaces"
)

// systemPrompt constrains every production responder to cite the numbered
// context blocks.
const systemPrompt = "You are the Respondeo assistant. " +
	"Answer with concise paragraphs and cite supporting chunks using [n] " +
	"where n references the numbered context blocks."

// userPrompt renders the question, context block, and instructions into the
// final human message.
func userPrompt(req *interfaces.RespondRequest) string {
	return fmt.Sprintf("Question: %s\nContext:\n%s\nInstructions: %s",
		req.Question, req.Context, req.Instructions)
}

// newLimiter builds a per-process limiter for LLM calls. perMinute <= 0
// disables limiting.
func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}
