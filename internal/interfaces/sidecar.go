package interfaces

import "github.com/ternarybob/respondeo/internal/models"

// SidecarLoader resolves the per-document chunk list referenced by a match's
// parsed_metadata_path. Missing or malformed sidecars degrade to an empty
// chunk list, never an error surfaced to retrieval.
type SidecarLoader interface {
	Load(path string) []models.Chunk
}
