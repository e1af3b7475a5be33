package chunking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/models"
)

func paragraph(text string) models.Paragraph {
	return models.Paragraph{Text: text}
}

func pagedParagraph(text string, page int) models.Paragraph {
	return models.Paragraph{Text: text, Page: &page}
}

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "word"
	}
	return strings.Join(parts, " ")
}

func TestSegmentEmptyInput(t *testing.T) {
	cfg := common.ChunkingConfig{ChunkSizeTokens: 10}
	assert.Nil(t, Segment(nil, nil, cfg))
	assert.Nil(t, Segment([]models.Paragraph{paragraph("   ")}, nil, cfg))
}

func TestSegmentWindowingWithOverlap(t *testing.T) {
	// Three 5-token paragraphs with size 10 and overlap 2: the second window
	// re-includes the last paragraph of the first.
	paragraphs := []models.Paragraph{
		paragraph(words(5)),
		paragraph(words(5)),
		paragraph(words(5)),
	}
	cfg := common.ChunkingConfig{ChunkSizeTokens: 10, ChunkOverlapTokens: 2}

	chunks := Segment(paragraphs, map[string]interface{}{"file_name": "doc.md"}, cfg)
	require.Len(t, chunks, 2)

	assert.Equal(t, "doc.md-chunk-0001", chunks[0].ChunkID)
	assert.Equal(t, 0, chunks[0].ParagraphStart)
	assert.Equal(t, 1, chunks[0].ParagraphEnd)
	assert.Equal(t, 10, chunks[0].TokenCount)

	assert.Equal(t, "doc.md-chunk-0002", chunks[1].ChunkID)
	assert.Equal(t, 1, chunks[1].ParagraphStart)
	assert.Equal(t, 2, chunks[1].ParagraphEnd)

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.ChunkIndex)
		assert.Equal(t, chunk.ChunkID, chunk.Metadata["chunk_id"])
		assert.Equal(t, i, chunk.Metadata["chunk_index"])
		assert.Equal(t, "doc.md", chunk.Metadata["file_name"])
	}
}

func TestSegmentWindowOverlapWithMergeThreshold(t *testing.T) {
	// Three 5-token paragraphs, size 8, overlap 3, merge threshold 2: the
	// paragraphs stay unmerged (each is at or above the threshold), the first
	// window closes after two paragraphs, and the overlap pulls the shared
	// middle paragraph into the second window.
	paragraphs := []models.Paragraph{
		paragraph(words(5)),
		paragraph(words(5)),
		paragraph(words(5)),
	}
	cfg := common.ChunkingConfig{ChunkSizeTokens: 8, ChunkOverlapTokens: 3, MergeThresholdTokens: 2}

	chunks := Segment(paragraphs, nil, cfg)
	require.Len(t, chunks, 2)

	assert.Equal(t, 0, chunks[0].ParagraphStart)
	assert.Equal(t, 1, chunks[0].ParagraphEnd)
	assert.Equal(t, 1, chunks[1].ParagraphStart)
	assert.Equal(t, 2, chunks[1].ParagraphEnd)
}

func TestSegmentNoOverlapPartitions(t *testing.T) {
	paragraphs := []models.Paragraph{
		paragraph(words(5)),
		paragraph(words(5)),
		paragraph(words(5)),
		paragraph(words(5)),
	}
	cfg := common.ChunkingConfig{ChunkSizeTokens: 10}

	chunks := Segment(paragraphs, nil, cfg)
	require.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].ParagraphStart)
	assert.Equal(t, 1, chunks[0].ParagraphEnd)
	assert.Equal(t, 2, chunks[1].ParagraphStart)
	assert.Equal(t, 3, chunks[1].ParagraphEnd)
	// No file name in the base metadata falls back to "document"
	assert.Equal(t, "document-chunk-0001", chunks[0].ChunkID)
}

func TestSegmentMergesShortParagraphs(t *testing.T) {
	paragraphs := []models.Paragraph{
		paragraph("alpha beta"),
		paragraph("gamma delta"),
		paragraph("epsilon zeta"),
	}
	cfg := common.ChunkingConfig{ChunkSizeTokens: 100, MergeThresholdTokens: 10}

	chunks := Segment(paragraphs, nil, cfg)
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].ParagraphStart)
	assert.Equal(t, 2, chunks[0].ParagraphEnd)
	assert.Equal(t, 6, chunks[0].TokenCount)
	assert.Equal(t, "alpha beta\n\ngamma delta\n\nepsilon zeta", chunks[0].Text)
}

func TestSegmentOversizedParagraphStillChunks(t *testing.T) {
	// A single paragraph larger than the window must still produce one chunk.
	paragraphs := []models.Paragraph{paragraph(words(25))}
	cfg := common.ChunkingConfig{ChunkSizeTokens: 10, ChunkOverlapTokens: 2}

	chunks := Segment(paragraphs, nil, cfg)
	require.Len(t, chunks, 1)
	assert.Equal(t, 25, chunks[0].TokenCount)
}

func TestSegmentPagePropagation(t *testing.T) {
	paragraphs := []models.Paragraph{
		pagedParagraph(words(5), 3),
		pagedParagraph(words(5), 4),
	}
	cfg := common.ChunkingConfig{ChunkSizeTokens: 100}

	chunks := Segment(paragraphs, nil, cfg)
	require.Len(t, chunks, 1)
	require.NotNil(t, chunks[0].PageStart)
	require.NotNil(t, chunks[0].PageEnd)
	assert.Equal(t, 3, *chunks[0].PageStart)
	assert.Equal(t, 4, *chunks[0].PageEnd)
	assert.Equal(t, 3, chunks[0].Metadata["page_start"])
	assert.Equal(t, 4, chunks[0].Metadata["page_end"])
}

func TestSegmentChunkIndexMonotonic(t *testing.T) {
	var paragraphs []models.Paragraph
	for i := 0; i < 12; i++ {
		paragraphs = append(paragraphs, paragraph(words(7)))
	}
	cfg := common.ChunkingConfig{ChunkSizeTokens: 14, ChunkOverlapTokens: 3}

	chunks := Segment(paragraphs, nil, cfg)
	require.NotEmpty(t, chunks)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.ChunkIndex)
		if i > 0 {
			assert.GreaterOrEqual(t, chunk.ParagraphStart, chunks[i-1].ParagraphStart)
		}
	}
}
