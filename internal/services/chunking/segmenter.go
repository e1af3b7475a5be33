package chunking

import (
	"fmt"
	"strings"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/models"
)

// segment is a run of one or more paragraphs after the short-paragraph merge
// pass, tagged with the source paragraph index range.
type segment struct {
	text      string
	tokens    int
	indices   []int
	pageStart *int
	pageEnd   *int
}

// Segment converts an ordered sequence of paragraphs into token-bounded,
// overlapping chunks. Pure function, no I/O. The configuration must already
// be clamped (size >= 1, 0 <= overlap < size, threshold >= 0); see
// common.ChunkingConfig.Clamp.
//
// Tokens are whitespace-delimited words. Adjacent paragraphs below the merge
// threshold are coalesced first, then a greedy window walks the merged
// segments, backtracking by the overlap budget between windows.
func Segment(paragraphs []models.Paragraph, baseMetadata map[string]interface{}, cfg common.ChunkingConfig) []models.Chunk {
	if len(paragraphs) == 0 {
		return nil
	}

	segments := mergeShortParagraphs(paragraphs, cfg.MergeThresholdTokens)
	if len(segments) == 0 {
		return nil
	}

	fileName := "document"
	if baseMetadata != nil {
		if v, ok := baseMetadata["file_name"].(string); ok && v != "" {
			fileName = v
		}
	}

	var chunks []models.Chunk
	start := 0

	for start < len(segments) {
		tokenTotal := 0
		end := start
		var included []segment

		// Greedily add segments until the target size is reached. A window
		// always contains at least one segment, even if that segment alone
		// exceeds the target.
		for end < len(segments) && (tokenTotal < cfg.ChunkSizeTokens || len(included) == 0) {
			included = append(included, segments[end])
			tokenTotal += segments[end].tokens
			end++
		}

		ordinal := len(chunks)
		chunkID := fmt.Sprintf("%s-chunk-%04d", fileName, ordinal+1)

		paraStart := included[0].indices[0]
		paraEnd := included[len(included)-1].indices[len(included[len(included)-1].indices)-1]
		pageStart, pageEnd := windowPages(included)

		texts := make([]string, 0, len(included))
		for _, seg := range included {
			texts = append(texts, seg.text)
		}

		metadata := make(map[string]interface{}, len(baseMetadata)+6)
		for k, v := range baseMetadata {
			metadata[k] = v
		}
		metadata["chunk_id"] = chunkID
		metadata["chunk_index"] = ordinal
		metadata["paragraph_start"] = paraStart
		metadata["paragraph_end"] = paraEnd
		if pageStart != nil {
			metadata["page_start"] = *pageStart
		}
		if pageEnd != nil {
			metadata["page_end"] = *pageEnd
		}

		chunks = append(chunks, models.Chunk{
			ChunkID:        chunkID,
			Text:           strings.TrimSpace(strings.Join(texts, "\n\n")),
			TokenCount:     tokenTotal,
			ChunkIndex:     ordinal,
			ParagraphStart: paraStart,
			ParagraphEnd:   paraEnd,
			PageStart:      pageStart,
			PageEnd:        pageEnd,
			Metadata:       metadata,
		})

		if end >= len(segments) {
			break
		}

		if cfg.ChunkOverlapTokens <= 0 {
			start = end
			continue
		}

		// Backtrack from the window's last segment, spending the overlap
		// budget, so the next window re-includes the trailing segments.
		remaining := cfg.ChunkOverlapTokens
		backIndex := end - 1
		for backIndex > start && remaining > 0 {
			remaining -= segments[backIndex].tokens
			backIndex--
		}
		start = backIndex + 1
		if start >= end {
			start = end
		}
	}

	return chunks
}

// mergeShortParagraphs coalesces adjacent paragraphs while both the running
// buffer and the next paragraph fall below the threshold. Empty paragraphs
// are dropped.
func mergeShortParagraphs(paragraphs []models.Paragraph, threshold int) []segment {
	var merged []segment
	var buffer *segment

	flush := func() {
		if buffer != nil {
			merged = append(merged, *buffer)
			buffer = nil
		}
	}

	for index, paragraph := range paragraphs {
		text := strings.TrimSpace(paragraph.Text)
		if text == "" {
			continue
		}
		tokens := len(strings.Fields(text))

		if buffer == nil {
			buffer = &segment{
				text:      text,
				tokens:    tokens,
				indices:   []int{index},
				pageStart: paragraph.Page,
				pageEnd:   paragraphPageEnd(paragraph),
			}
			continue
		}

		if buffer.tokens < threshold && tokens < threshold {
			buffer.text = strings.TrimRight(buffer.text, " \t\n") + "\n\n" + text
			buffer.tokens += tokens
			buffer.indices = append(buffer.indices, index)
			buffer.pageStart, buffer.pageEnd = mergePageRange(buffer.pageStart, buffer.pageEnd, paragraph)
			continue
		}

		flush()
		buffer = &segment{
			text:      text,
			tokens:    tokens,
			indices:   []int{index},
			pageStart: paragraph.Page,
			pageEnd:   paragraphPageEnd(paragraph),
		}
	}
	flush()

	return merged
}

func paragraphPageEnd(p models.Paragraph) *int {
	if p.PageEnd != nil {
		return p.PageEnd
	}
	return p.Page
}

// mergePageRange extends a buffer's page range to [min(pages), max(pages)]
// across the buffer and the merged-in paragraph. Absent pages are skipped.
func mergePageRange(start, end *int, p models.Paragraph) (*int, *int) {
	var candidates []int
	for _, v := range []*int{start, end, p.Page, p.PageEnd} {
		if v != nil {
			candidates = append(candidates, *v)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	lo, hi := candidates[0], candidates[0]
	for _, v := range candidates[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return &lo, &hi
}

// windowPages derives a chunk's page range from the union of its segments:
// the first present page start and the last present page end.
func windowPages(included []segment) (*int, *int) {
	var pageStart, pageEnd *int
	for _, seg := range included {
		if seg.pageStart != nil && pageStart == nil {
			pageStart = seg.pageStart
		}
		if seg.pageEnd != nil {
			pageEnd = seg.pageEnd
		}
	}
	if pageEnd == nil {
		pageEnd = pageStart
	}
	return pageStart, pageEnd
}
