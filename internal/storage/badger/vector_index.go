package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// ChunkRecord is the stored form of an indexed chunk. Metadata is kept as
// JSON so arbitrary value types survive the round trip.
type ChunkRecord struct {
	Key        string `badgerhold:"key"`
	ChunkID    string `badgerhold:"index"`
	SourcePath string `badgerhold:"index"`
	Text       string
	Embedding  []float32
	Metadata   []byte
	UpdatedAt  time.Time
}

// VectorIndex is a Badger-backed brute-force vector index. Queries embed the
// text and scan all stored records; scores are cosine distance (1 - cosine
// similarity), so lower is more relevant.
type VectorIndex struct {
	db       *BadgerDB
	embedder interfaces.Embedder
	logger   arbor.ILogger
}

// NewVectorIndex opens the Badger store at the configured path and wraps it
// with the given embedder
func NewVectorIndex(logger arbor.ILogger, config *common.BadgerConfig, embedder interfaces.Embedder) (*VectorIndex, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}
	return &VectorIndex{
		db:       db,
		embedder: embedder,
		logger:   logger,
	}, nil
}

// NewVectorIndexWithDB wraps an existing connection. The caller keeps
// ownership of the connection's lifecycle only if it also keeps a reference;
// Close closes the shared connection either way.
func NewVectorIndexWithDB(db *BadgerDB, embedder interfaces.Embedder, logger arbor.ILogger) *VectorIndex {
	return &VectorIndex{
		db:       db,
		embedder: embedder,
		logger:   logger,
	}
}

// Upsert embeds and stores the given chunks, keyed by source path and chunk
// ID so re-ingesting a document replaces its previous chunks
func (v *VectorIndex) Upsert(ctx context.Context, chunks []models.Chunk) error {
	for _, chunk := range chunks {
		if chunk.Text == "" {
			continue
		}

		embedding, err := v.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %s: %w", chunk.ChunkID, err)
		}

		metadata, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata for chunk %s: %w", chunk.ChunkID, err)
		}

		sourcePath, _ := chunk.Metadata["source_path"].(string)
		record := &ChunkRecord{
			Key:        recordKey(sourcePath, chunk.ChunkID),
			ChunkID:    chunk.ChunkID,
			SourcePath: sourcePath,
			Text:       chunk.Text,
			Embedding:  embedding,
			Metadata:   metadata,
			UpdatedAt:  time.Now(),
		}

		if err := v.db.Store().Upsert(record.Key, record); err != nil {
			return fmt.Errorf("failed to store chunk %s: %w", chunk.ChunkID, err)
		}
	}

	v.logger.Debug().Int("chunk_count", len(chunks)).Msg("Chunks upserted into vector index")
	return nil
}

// Query embeds the text and returns the topK nearest records by cosine
// distance, ascending
func (v *VectorIndex) Query(ctx context.Context, text string, topK int) ([]models.RetrievedMatch, error) {
	if topK <= 0 {
		return nil, nil
	}

	queryVector, err := v.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	var records []ChunkRecord
	if err := v.db.Store().Find(&records, nil); err != nil {
		return nil, fmt.Errorf("failed to scan index: %w", err)
	}

	matches := make([]models.RetrievedMatch, 0, len(records))
	for _, record := range records {
		similarity, ok := cosineSimilarity(queryVector, record.Embedding)
		if !ok {
			continue
		}

		var metadata map[string]interface{}
		if len(record.Metadata) > 0 {
			if err := json.Unmarshal(record.Metadata, &metadata); err != nil {
				v.logger.Warn().Err(err).Str("chunk_id", record.ChunkID).Msg("Skipping record with corrupt metadata")
				continue
			}
		}

		matches = append(matches, models.RetrievedMatch{
			Text:     record.Text,
			Score:    1 - similarity,
			Metadata: metadata,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score < matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}

	return matches, nil
}

// Stats counts stored chunks grouped by source
func (v *VectorIndex) Stats(ctx context.Context) (*models.IndexStats, error) {
	var records []ChunkRecord
	if err := v.db.Store().Find(&records, nil); err != nil {
		return nil, fmt.Errorf("failed to scan index: %w", err)
	}

	bySource := make(map[string]int)
	for _, record := range records {
		source := record.SourcePath
		if source == "" {
			source = "unknown"
		}
		bySource[source]++
	}

	return &models.IndexStats{
		ChunkCount:     len(records),
		DocumentCount:  len(bySource),
		ChunksBySource: bySource,
	}, nil
}

// Close closes the underlying database
func (v *VectorIndex) Close() error {
	return v.db.Close()
}

func recordKey(sourcePath, chunkID string) string {
	if sourcePath == "" {
		return chunkID
	}
	return sourcePath + "\x00" + chunkID
}

// cosineSimilarity returns the cosine of the angle between two vectors.
// Mismatched dimensions or zero vectors report not-ok.
func cosineSimilarity(a, b []float32) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), true
}
