package models

// RetrievedMatch is a transient search result produced by the vector index
// and owned by the retrieval coordinator for the duration of one pass.
// Lower scores are more relevant (cosine distance).
type RetrievedMatch struct {
	Text     string                 `json:"text"`
	Score    float64                `json:"score"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// SourceKey returns the composite source identity of a match, preferring
// source_path over file_name, with "unknown" as the last resort.
func (m *RetrievedMatch) SourceKey() string {
	if m.Metadata == nil {
		return "unknown"
	}
	if v, ok := m.Metadata["source_path"].(string); ok && v != "" {
		return v
	}
	if v, ok := m.Metadata["file_name"].(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// ChunkID returns the chunk identifier carried in the match metadata, or an
// empty string when the match is not chunk-aware.
func (m *RetrievedMatch) ChunkID() string {
	if m.Metadata == nil {
		return ""
	}
	if v, ok := m.Metadata["chunk_id"].(string); ok {
		return v
	}
	return ""
}

// ChunkOrdinal returns the 0-based chunk_index from the match metadata.
// Metadata round-trips through JSON, so numeric values may arrive as float64.
func (m *RetrievedMatch) ChunkOrdinal() (int, bool) {
	if m.Metadata == nil {
		return 0, false
	}
	return MetadataInt(m.Metadata, "chunk_index")
}

// MetadataInt reads an integer metadata value regardless of the numeric type
// JSON decoding or in-process construction produced.
func MetadataInt(metadata map[string]interface{}, key string) (int, bool) {
	switch v := metadata[key].(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float32:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
