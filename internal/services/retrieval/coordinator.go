package retrieval

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// Coordinator fans one query per sub-question out to the vector index, then
// deduplicates, expands neighboring chunks, reranks with a per-source cap,
// and merges contiguous chunks from the same source.
type Coordinator struct {
	index    interfaces.VectorIndex
	sidecars interfaces.SidecarLoader
	logger   arbor.ILogger
}

// NewCoordinator creates a retrieval coordinator
func NewCoordinator(index interfaces.VectorIndex, sidecars interfaces.SidecarLoader, logger arbor.ILogger) *Coordinator {
	return &Coordinator{
		index:    index,
		sidecars: sidecars,
		logger:   logger,
	}
}

// Retrieve runs the full retrieval pass for the given sub-questions.
// A backend failure is returned as an error for the state machine to record;
// it is never retried here.
func (c *Coordinator) Retrieve(ctx context.Context, subQuestions []string, cfg models.AskConfig) ([]models.RetrievedMatch, error) {
	if len(subQuestions) == 0 {
		return nil, nil
	}

	perQuery, err := c.fanOut(ctx, subQuestions, cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("vector index query failed: %w", err)
	}

	fields := cfg.DedupeFields
	if len(fields) == 0 {
		fields = []string{"source_path", "chunk_id"}
	}

	acc := newDedupeAccumulator(fields)
	var seeds []models.RetrievedMatch
	for _, matches := range perQuery {
		for _, match := range matches {
			seeds = append(seeds, match)
			acc.record(match)
		}
	}

	if cfg.NeighborSpan > 0 && len(seeds) > 0 {
		for _, neighbor := range c.expandNeighbors(seeds, cfg.NeighborSpan) {
			acc.record(neighbor)
		}
	}

	aggregated := acc.results()
	sort.SliceStable(aggregated, func(i, j int) bool {
		return aggregated[i].Score < aggregated[j].Score
	})

	maxPerSource := cfg.NeighborSpan + 1
	if maxPerSource < 2 {
		maxPerSource = 2
	}
	capped := Rerank(aggregated, maxPerSource)
	merged := MergeAdjacent(capped)

	c.logger.Debug().
		Int("query_count", len(subQuestions)).
		Int("deduplicated", len(aggregated)).
		Int("result_count", len(merged)).
		Int("neighbor_span", cfg.NeighborSpan).
		Msg("Retrieval pass completed")

	return merged, nil
}

// fanOut issues one query per sub-question in parallel and joins before the
// dedup step. Results are reduced in sub-question order so the output is
// identical regardless of completion order.
func (c *Coordinator) fanOut(ctx context.Context, subQuestions []string, topK int) ([][]models.RetrievedMatch, error) {
	perQuery := make([][]models.RetrievedMatch, len(subQuestions))
	errs := make([]error, len(subQuestions))

	var wg sync.WaitGroup
	for i, question := range subQuestions {
		wg.Add(1)
		go func(i int, question string) {
			defer wg.Done()
			if strings.TrimSpace(question) == "" {
				return
			}
			matches, err := c.index.Query(ctx, question, topK)
			if err != nil {
				errs[i] = err
				return
			}
			perQuery[i] = matches
		}(i, question)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return perQuery, nil
}

// expandNeighbors pulls up to span chunks on each side of every chunk-aware
// seed match, scored slightly worse than the seed in offset order.
func (c *Coordinator) expandNeighbors(seeds []models.RetrievedMatch, span int) []models.RetrievedMatch {
	var expansions []models.RetrievedMatch

	for _, seed := range seeds {
		chunkID := seed.ChunkID()
		metadataPath, _ := seed.Metadata["parsed_metadata_path"].(string)
		if chunkID == "" || metadataPath == "" {
			continue
		}

		chunkList := c.sidecars.Load(metadataPath)
		if len(chunkList) == 0 {
			continue
		}

		position := -1
		for i, chunk := range chunkList {
			if chunk.ChunkID == chunkID {
				position = i
				break
			}
		}
		if position < 0 {
			continue
		}

		for offset := 1; offset <= span; offset++ {
			for _, neighborIndex := range []int{position - offset, position + offset} {
				if neighborIndex < 0 || neighborIndex >= len(chunkList) {
					continue
				}
				neighbor := chunkList[neighborIndex]
				if neighbor.Text == "" {
					continue
				}

				metadata := make(map[string]interface{}, len(neighbor.Metadata)+8)
				for k, v := range neighbor.Metadata {
					metadata[k] = v
				}
				if _, ok := metadata["parsed_metadata_path"]; !ok {
					metadata["parsed_metadata_path"] = metadataPath
				}
				if _, ok := metadata["source_path"]; !ok {
					if v, ok := seed.Metadata["source_path"]; ok {
						metadata["source_path"] = v
					}
				}
				if _, ok := metadata["file_name"]; !ok {
					if v, ok := seed.Metadata["file_name"]; ok {
						metadata["file_name"] = v
					}
				}
				metadata["chunk_id"] = neighbor.ChunkID
				metadata["chunk_index"] = neighbor.ChunkIndex
				if neighbor.PageStart != nil {
					metadata["page_start"] = *neighbor.PageStart
				}
				if neighbor.PageEnd != nil {
					metadata["page_end"] = *neighbor.PageEnd
				}
				metadata["paragraph_start"] = neighbor.ParagraphStart
				metadata["paragraph_end"] = neighbor.ParagraphEnd

				expansions = append(expansions, models.RetrievedMatch{
					Text:     neighbor.Text,
					Score:    seed.Score + float64(offset)*0.001,
					Metadata: metadata,
				})
			}
		}
	}

	return expansions
}

// dedupeAccumulator collapses matches by composite key, keeping the
// first-seen match and tightening its score to the minimum observed.
type dedupeAccumulator struct {
	fields []string
	seen   map[string]int
	order  []models.RetrievedMatch
}

func newDedupeAccumulator(fields []string) *dedupeAccumulator {
	return &dedupeAccumulator{
		fields: fields,
		seen:   make(map[string]int),
	}
}

func (a *dedupeAccumulator) record(match models.RetrievedMatch) {
	key := dedupeKey(match, a.fields)
	if i, ok := a.seen[key]; ok {
		if match.Score < a.order[i].Score {
			a.order[i].Score = match.Score
		}
		return
	}
	a.seen[key] = len(a.order)
	a.order = append(a.order, match)
}

func (a *dedupeAccumulator) results() []models.RetrievedMatch {
	return a.order
}

// dedupeKey builds the composite key from the configured field order. When
// any configured field is absent, it falls back to a hash of source and text
// so distinct content never collapses.
func dedupeKey(match models.RetrievedMatch, fields []string) string {
	values := make([]string, 0, len(fields))
	complete := true
	for _, field := range fields {
		v, ok := match.Metadata[field]
		if !ok || v == nil {
			complete = false
			break
		}
		s := fmt.Sprintf("%v", v)
		if s == "" {
			complete = false
			break
		}
		values = append(values, s)
	}
	if complete && len(values) > 0 {
		return strings.Join(values, "\x1f")
	}

	source := match.SourceKey()
	digest := sha1.Sum([]byte(source + ":" + match.Text))
	return source + "\x1f" + hex.EncodeToString(digest[:])
}

// Rerank re-sorts ascending by score and greedily assigns matches to a
// primary list up to maxPerSource per source key; overflow is appended after
// all primary matches, preserving relative order within each bucket.
// maxPerSource <= 0 disables capping.
func Rerank(matches []models.RetrievedMatch, maxPerSource int) []models.RetrievedMatch {
	if len(matches) == 0 {
		return nil
	}

	sorted := make([]models.RetrievedMatch, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score < sorted[j].Score
	})

	if maxPerSource <= 0 {
		return sorted
	}

	counts := make(map[string]int)
	primary := make([]models.RetrievedMatch, 0, len(sorted))
	var overflow []models.RetrievedMatch

	for _, match := range sorted {
		source := match.SourceKey()
		if counts[source] < maxPerSource {
			primary = append(primary, match)
			counts[source]++
		} else {
			overflow = append(overflow, match)
		}
	}

	return append(primary, overflow...)
}

// MergeAdjacent merges an item into the running accumulator when it shares
// the source key and its chunk_index is exactly one past the accumulator's.
// Merged text is joined with a blank line, the score becomes the minimum of
// the two, and index/page-end/chunk-id advance to the merged item's values.
func MergeAdjacent(matches []models.RetrievedMatch) []models.RetrievedMatch {
	if len(matches) == 0 {
		return nil
	}

	var merged []models.RetrievedMatch
	var current *models.RetrievedMatch

	for _, match := range matches {
		metadata := make(map[string]interface{}, len(match.Metadata))
		for k, v := range match.Metadata {
			metadata[k] = v
		}
		item := models.RetrievedMatch{Text: match.Text, Score: match.Score, Metadata: metadata}

		if current == nil {
			current = &item
			continue
		}

		currentIndex, currentOK := current.ChunkOrdinal()
		itemIndex, itemOK := item.ChunkOrdinal()
		contiguous := current.SourceKey() == item.SourceKey() &&
			currentOK && itemOK && itemIndex == currentIndex+1

		if contiguous {
			if item.Text != "" {
				current.Text = strings.TrimRight(current.Text, " \t\n") + "\n\n" + strings.TrimSpace(item.Text)
			}
			if item.Score < current.Score {
				current.Score = item.Score
			}
			current.Metadata["chunk_index"] = itemIndex
			current.Metadata["chunk_id"] = item.Metadata["chunk_id"]
			current.Metadata["paragraph_end"] = item.Metadata["paragraph_end"]
			if v, ok := item.Metadata["page_end"]; ok && v != nil {
				current.Metadata["page_end"] = v
			}
			continue
		}

		merged = append(merged, *current)
		current = &item
	}

	if current != nil {
		merged = append(merged, *current)
	}

	return merged
}

// FormatForResponder renders retrieved matches into a numbered context block
// for the responder: "[n] source [chunk k] (page p)\ntext", 1-indexed,
// blocks separated by a blank line. Empty-text matches are skipped.
func FormatForResponder(matches []models.RetrievedMatch) string {
	var blocks []string
	for i, match := range matches {
		text := strings.TrimSpace(match.Text)
		if text == "" {
			continue
		}

		header := fmt.Sprintf("[%d] %s", i+1, formatSource(match))
		if ordinal, ok := match.ChunkOrdinal(); ok {
			header += fmt.Sprintf(" [chunk %d]", ordinal+1)
		}
		if location := formatPages(match.Metadata); location != "" {
			header += " " + location
		}
		blocks = append(blocks, header+"\n"+text)
	}
	return strings.Join(blocks, "\n\n")
}

// formatSource prefers the short file name for display, then the source path
func formatSource(match models.RetrievedMatch) string {
	if v, ok := match.Metadata["file_name"].(string); ok && v != "" {
		return v
	}
	if v, ok := match.Metadata["source_path"].(string); ok && v != "" {
		return v
	}
	return "unknown"
}

func formatPages(metadata map[string]interface{}) string {
	pageStart, startOK := models.MetadataInt(metadata, "page_start")
	pageEnd, endOK := models.MetadataInt(metadata, "page_end")
	if startOK && endOK {
		if pageStart == pageEnd {
			return fmt.Sprintf("(page %d)", pageStart)
		}
		return fmt.Sprintf("(pages %d-%d)", pageStart, pageEnd)
	}
	if page, ok := models.MetadataInt(metadata, "page"); ok {
		return fmt.Sprintf("(page %d)", page)
	}
	return ""
}
