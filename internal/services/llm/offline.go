package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

const noInformationAnswer = "I do not have enough information to answer that yet."

// OfflineResponder is the deterministic responder used both as the runtime
// fallback when a production responder fails and as the test double. It
// never errors.
type OfflineResponder struct{}

// NewOfflineResponder creates the deterministic fallback responder
func NewOfflineResponder() *OfflineResponder {
	return &OfflineResponder{}
}

// Respond builds an extractive summary from the top retrieved snippets
func (r *OfflineResponder) Respond(_ context.Context, req *interfaces.RespondRequest) (string, error) {
	return FallbackAnswer(req.Matches), nil
}

// FallbackAnswer renders the first non-empty line of each of the top 3
// retrieved snippets with a page/location tag.
func FallbackAnswer(matches []models.RetrievedMatch) string {
	if len(matches) == 0 {
		return noInformationAnswer
	}

	limit := len(matches)
	if limit > 3 {
		limit = 3
	}

	var fragments []string
	for i := 0; i < limit; i++ {
		line := firstNonEmptyLine(matches[i].Text)
		if line == "" {
			continue
		}
		fragments = append(fragments, fmt.Sprintf("[%d] %s (%s)", i+1, line, locationTag(matches[i].Metadata)))
	}

	if len(fragments) == 0 {
		return noInformationAnswer
	}

	return fmt.Sprintf("Key context snippets: %s\nThis is a fallback response.", strings.Join(fragments, " "))
}

func firstNonEmptyLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func locationTag(metadata map[string]interface{}) string {
	pageStart, startOK := models.MetadataInt(metadata, "page_start")
	if !startOK {
		pageStart, startOK = models.MetadataInt(metadata, "page")
	}
	pageEnd, endOK := models.MetadataInt(metadata, "page_end")

	switch {
	case startOK && endOK && pageStart != pageEnd:
		return fmt.Sprintf("pages %d-%d", pageStart, pageEnd)
	case startOK:
		return fmt.Sprintf("page %d", pageStart)
	default:
		return "context"
	}
}
