package interfaces

import (
	"context"

	"github.com/ternarybob/respondeo/internal/models"
)

// VectorIndex is the narrow capability the retrieval layer consumes.
// Implementations must be safe for concurrent reads; upserts are assumed to
// originate from a separate, serialized ingest path.
type VectorIndex interface {
	// Query returns up to topK matches for the given text, ordered by
	// ascending score (lower = more relevant). Matches carry
	// metadata.source_path or metadata.file_name, and chunk_id/chunk_index
	// when chunk-aware.
	Query(ctx context.Context, text string, topK int) ([]models.RetrievedMatch, error)

	// Upsert embeds and stores the given chunks.
	Upsert(ctx context.Context, chunks []models.Chunk) error

	// Stats returns basic corpus statistics.
	Stats(ctx context.Context) (*models.IndexStats, error)

	// Close releases the underlying storage.
	Close() error
}

// Embedder generates vector embeddings for index and query text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the embedding dimension
	Dimension() int
}
