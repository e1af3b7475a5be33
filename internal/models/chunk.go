package models

// Paragraph is the raw input unit produced by an external parser.
// Page numbers are optional; a nil page means the parser could not
// attribute the text to a page.
type Paragraph struct {
	Text    string `json:"text"`
	Page    *int   `json:"page,omitempty"`
	PageEnd *int   `json:"page_end,omitempty"`
}

// Chunk is a token-bounded slice of a document's paragraphs, created once at
// ingest time and immutable thereafter. ChunkIndex is 0-based and strictly
// increases with ParagraphStart within a document.
type Chunk struct {
	ChunkID        string                 `json:"chunk_id"`
	Text           string                 `json:"text"`
	TokenCount     int                    `json:"token_count"`
	ChunkIndex     int                    `json:"chunk_index"`
	ParagraphStart int                    `json:"paragraph_start"`
	ParagraphEnd   int                    `json:"paragraph_end"`
	PageStart      *int                   `json:"page_start,omitempty"`
	PageEnd        *int                   `json:"page_end,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// ChunkSidecar is the per-document JSON structure written next to a parsed
// document. Neighbor expansion reads it back to locate adjacent chunks.
type ChunkSidecar struct {
	Content SidecarContent `json:"content"`
}

// SidecarContent holds the ordered chunk list of one document.
type SidecarContent struct {
	Chunks []Chunk `json:"chunks"`
}

// IndexStats reports basic vector index statistics.
type IndexStats struct {
	ChunkCount     int            `json:"chunk_count"`
	DocumentCount  int            `json:"document_count"`
	ChunksBySource map[string]int `json:"chunks_by_source,omitempty"`
}
