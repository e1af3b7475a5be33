package badger

import (
	"context"
	"testing"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/models"
)

// tableEmbedder returns fixed vectors from a lookup table
type tableEmbedder struct {
	vectors map[string][]float32
}

func (e *tableEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func (e *tableEmbedder) Dimension() int { return 3 }

func testChunk(source, chunkID string, index int, text string) models.Chunk {
	return models.Chunk{
		ChunkID:    chunkID,
		Text:       text,
		ChunkIndex: index,
		Metadata: map[string]interface{}{
			"source_path": source,
			"file_name":   source,
			"chunk_id":    chunkID,
			"chunk_index": index,
		},
	}
}

func openTestIndex(t *testing.T, embedder *tableEmbedder) *VectorIndex {
	t.Helper()
	config := &common.BadgerConfig{Path: t.TempDir()}
	index, err := NewVectorIndex(arbor.NewLogger(), config, embedder)
	if err != nil {
		t.Fatalf("failed to open index: %v", err)
	}
	t.Cleanup(func() { index.Close() })
	return index
}

func TestVectorIndexQueryOrdering(t *testing.T) {
	embedder := &tableEmbedder{vectors: map[string][]float32{
		"exact match":   {1, 0, 0},
		"close match":   {0.9, 0.1, 0},
		"far match":     {0, 1, 0},
		"my query text": {1, 0, 0},
	}}
	index := openTestIndex(t, embedder)
	ctx := context.Background()

	chunks := []models.Chunk{
		testChunk("a.md", "a-chunk-0001", 0, "far match"),
		testChunk("a.md", "a-chunk-0002", 1, "exact match"),
		testChunk("b.md", "b-chunk-0001", 0, "close match"),
	}
	if err := index.Upsert(ctx, chunks); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	matches, err := index.Query(ctx, "my query text", 2)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Text != "exact match" {
		t.Errorf("expected exact match first, got %q", matches[0].Text)
	}
	if matches[1].Text != "close match" {
		t.Errorf("expected close match second, got %q", matches[1].Text)
	}
	if matches[0].Score > matches[1].Score {
		t.Errorf("scores not ascending: %f > %f", matches[0].Score, matches[1].Score)
	}
	if matches[0].ChunkID() != "a-chunk-0002" {
		t.Errorf("metadata lost: chunk_id = %q", matches[0].ChunkID())
	}
}

func TestVectorIndexUpsertReplaces(t *testing.T) {
	embedder := &tableEmbedder{vectors: map[string][]float32{}}
	index := openTestIndex(t, embedder)
	ctx := context.Background()

	chunk := testChunk("a.md", "a-chunk-0001", 0, "original text")
	if err := index.Upsert(ctx, []models.Chunk{chunk}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	chunk.Text = "replaced text"
	if err := index.Upsert(ctx, []models.Chunk{chunk}); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	stats, err := index.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.ChunkCount != 1 {
		t.Errorf("expected 1 chunk after replace, got %d", stats.ChunkCount)
	}

	matches, err := index.Query(ctx, "anything", 1)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(matches) != 1 || matches[0].Text != "replaced text" {
		t.Errorf("expected replaced text, got %+v", matches)
	}
}

func TestVectorIndexStats(t *testing.T) {
	embedder := &tableEmbedder{vectors: map[string][]float32{}}
	index := openTestIndex(t, embedder)
	ctx := context.Background()

	chunks := []models.Chunk{
		testChunk("a.md", "a-chunk-0001", 0, "alpha"),
		testChunk("a.md", "a-chunk-0002", 1, "beta"),
		testChunk("b.md", "b-chunk-0001", 0, "gamma"),
	}
	if err := index.Upsert(ctx, chunks); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	stats, err := index.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.ChunkCount != 3 {
		t.Errorf("expected 3 chunks, got %d", stats.ChunkCount)
	}
	if stats.DocumentCount != 2 {
		t.Errorf("expected 2 documents, got %d", stats.DocumentCount)
	}
	if stats.ChunksBySource["a.md"] != 2 {
		t.Errorf("expected 2 chunks for a.md, got %d", stats.ChunksBySource["a.md"])
	}
}

func TestVectorIndexSkipsEmptyChunks(t *testing.T) {
	embedder := &tableEmbedder{vectors: map[string][]float32{}}
	index := openTestIndex(t, embedder)
	ctx := context.Background()

	chunks := []models.Chunk{
		testChunk("a.md", "a-chunk-0001", 0, ""),
		testChunk("a.md", "a-chunk-0002", 1, "real content"),
	}
	if err := index.Upsert(ctx, chunks); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	stats, err := index.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.ChunkCount != 1 {
		t.Errorf("expected empty chunk to be skipped, got %d", stats.ChunkCount)
	}
}

func TestVectorIndexZeroTopK(t *testing.T) {
	embedder := &tableEmbedder{vectors: map[string][]float32{}}
	index := openTestIndex(t, embedder)

	matches, err := index.Query(context.Background(), "anything", 0)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if matches != nil {
		t.Errorf("expected nil matches for topK=0, got %v", matches)
	}
}
