package ingest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// recordingIndex captures upserted chunks
type recordingIndex struct {
	mu     sync.Mutex
	chunks []models.Chunk
}

func (r *recordingIndex) Query(context.Context, string, int) ([]models.RetrievedMatch, error) {
	return nil, nil
}

func (r *recordingIndex) Upsert(_ context.Context, chunks []models.Chunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = append(r.chunks, chunks...)
	return nil
}

func (r *recordingIndex) Stats(context.Context) (*models.IndexStats, error) {
	return &models.IndexStats{ChunkCount: len(r.chunks)}, nil
}

func (r *recordingIndex) Close() error { return nil }

// recordingEvents captures published events synchronously
type recordingEvents struct {
	mu     sync.Mutex
	events []interfaces.Event
}

func (r *recordingEvents) Subscribe(interfaces.EventType, interfaces.EventHandler) error { return nil }

func (r *recordingEvents) Publish(_ context.Context, event interfaces.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingEvents) PublishSync(ctx context.Context, event interfaces.Event) error {
	return r.Publish(ctx, event)
}

func (r *recordingEvents) Close() error { return nil }

func newTestService(index interfaces.VectorIndex, events interfaces.EventService) *Service {
	config := common.DefaultConfig()
	config.Chunking = common.ChunkingConfig{ChunkSizeTokens: 10, ChunkOverlapTokens: 2, MergeThresholdTokens: 0}
	return NewService(index, events, config, arbor.NewLogger())
}

func TestIngestFileWritesSidecarAndUpserts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.md")
	content := "# Heading\n\nFirst paragraph of body text here.\n\nSecond paragraph with more body text.\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	index := &recordingIndex{}
	events := &recordingEvents{}
	service := newTestService(index, events)

	result, err := service.IngestFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 3, result.ParagraphCount)
	assert.Greater(t, result.ChunkCount, 0)
	assert.Equal(t, result.ChunkCount, len(index.chunks))

	// The sidecar holds the same chunk list the index received
	data, err := os.ReadFile(result.SidecarPath)
	require.NoError(t, err)
	var sidecar models.ChunkSidecar
	require.NoError(t, json.Unmarshal(data, &sidecar))
	require.Len(t, sidecar.Content.Chunks, result.ChunkCount)
	assert.Equal(t, index.chunks[0].ChunkID, sidecar.Content.Chunks[0].ChunkID)

	// Base metadata carries the lookup keys the retrieval layer depends on
	metadata := index.chunks[0].Metadata
	assert.Equal(t, result.SourcePath, metadata["source_path"])
	assert.Equal(t, "doc.md", metadata["file_name"])
	assert.Equal(t, result.SidecarPath, metadata["parsed_metadata_path"])

	require.Len(t, events.events, 1)
	assert.Equal(t, interfaces.EventIngestCompleted, events.events[0].Type)
}

func TestIngestPathWalksDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("Alpha body text."), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("Beta body text."), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.png"), []byte{0x89}, 0644))

	index := &recordingIndex{}
	service := newTestService(index, &recordingEvents{})

	results, err := service.IngestPath(context.Background(), dir)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestIngestPathMissing(t *testing.T) {
	service := newTestService(&recordingIndex{}, &recordingEvents{})
	_, err := service.IngestPath(context.Background(), filepath.Join(t.TempDir(), "nope.md"))
	require.Error(t, err)
}
