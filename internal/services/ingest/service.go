package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
	"github.com/ternarybob/respondeo/internal/services/chunking"
)

// Result summarizes one ingested document
type Result struct {
	SourcePath     string `json:"source_path"`
	SidecarPath    string `json:"sidecar_path"`
	ParagraphCount int    `json:"paragraph_count"`
	ChunkCount     int    `json:"chunk_count"`
}

// Service parses markdown documents into paragraphs, segments them into
// chunks, writes the chunk sidecar next to the source, and upserts the
// chunks into the vector index.
type Service struct {
	index         interfaces.VectorIndex
	events        interfaces.EventService
	chunking      common.ChunkingConfig
	sidecarSuffix string
	logger        arbor.ILogger
}

// NewService creates an ingest service
func NewService(index interfaces.VectorIndex, events interfaces.EventService, config *common.Config, logger arbor.ILogger) *Service {
	suffix := config.Ingest.SidecarSuffix
	if suffix == "" {
		suffix = ".parsed.json"
	}
	return &Service{
		index:         index,
		events:        events,
		chunking:      config.Chunking.Clamp(),
		sidecarSuffix: suffix,
		logger:        logger,
	}
}

// IngestPath ingests a markdown file, or every markdown file under a
// directory. Per-file failures inside a directory abort the walk.
func (s *Service) IngestPath(ctx context.Context, path string) ([]Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if !info.IsDir() {
		result, err := s.IngestFile(ctx, path)
		if err != nil {
			return nil, err
		}
		return []Result{*result}, nil
	}

	var results []Result
	err = filepath.WalkDir(path, func(entry string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !isMarkdown(entry) {
			return nil
		}
		result, err := s.IngestFile(ctx, entry)
		if err != nil {
			return err
		}
		results = append(results, *result)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// IngestFile ingests a single markdown document
func (s *Service) IngestFile(ctx context.Context, path string) (*Result, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	sidecarPath := absPath + s.sidecarSuffix

	paragraphs := ParseMarkdown(source)
	baseMetadata := map[string]interface{}{
		"source_path":          absPath,
		"file_name":            filepath.Base(absPath),
		"parsed_metadata_path": sidecarPath,
	}

	chunks := chunking.Segment(paragraphs, baseMetadata, s.chunking)

	if err := s.writeSidecar(sidecarPath, chunks); err != nil {
		return nil, err
	}

	if err := s.index.Upsert(ctx, chunks); err != nil {
		return nil, fmt.Errorf("failed to index %s: %w", path, err)
	}

	result := &Result{
		SourcePath:     absPath,
		SidecarPath:    sidecarPath,
		ParagraphCount: len(paragraphs),
		ChunkCount:     len(chunks),
	}

	s.logger.Info().
		Str("source", result.SourcePath).
		Int("paragraphs", result.ParagraphCount).
		Int("chunks", result.ChunkCount).
		Msg("Document ingested")

	if s.events != nil {
		event := interfaces.Event{Type: interfaces.EventIngestCompleted, Payload: *result}
		if err := s.events.Publish(ctx, event); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to publish ingest event")
		}
	}

	return result, nil
}

// writeSidecar persists the chunk list in the sidecar structure the neighbor
// expansion reads
func (s *Service) writeSidecar(path string, chunks []models.Chunk) error {
	sidecar := models.ChunkSidecar{}
	sidecar.Content.Chunks = chunks

	data, err := json.MarshalIndent(sidecar, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode sidecar: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write sidecar %s: %w", path, err)
	}
	return nil
}

func isMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".txt":
		return true
	}
	return false
}
