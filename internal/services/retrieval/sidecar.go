package retrieval

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/models"
)

// SidecarCache loads per-document chunk sidecars ({content: {chunks: []}})
// and memoizes them by resolved path. Missing or malformed sidecars resolve
// to an empty chunk list so neighbor expansion degrades to "no neighbors".
type SidecarCache struct {
	mu     sync.RWMutex
	chunks map[string][]models.Chunk
	logger arbor.ILogger
}

// NewSidecarCache creates an empty sidecar cache
func NewSidecarCache(logger arbor.ILogger) *SidecarCache {
	return &SidecarCache{
		chunks: make(map[string][]models.Chunk),
		logger: logger,
	}
}

// Load returns the ordered chunk list for the sidecar at path
func (c *SidecarCache) Load(path string) []models.Chunk {
	if path == "" {
		return nil
	}

	key := path
	if abs, err := filepath.Abs(path); err == nil {
		key = abs
	}

	c.mu.RLock()
	cached, ok := c.chunks[key]
	c.mu.RUnlock()
	if ok {
		return cached
	}

	chunks := c.read(path)

	c.mu.Lock()
	c.chunks[key] = chunks
	c.mu.Unlock()

	return chunks
}

func (c *SidecarCache) read(path string) []models.Chunk {
	data, err := os.ReadFile(path)
	if err != nil {
		c.logger.Debug().Err(err).Str("path", path).Msg("Chunk sidecar not readable")
		return nil
	}

	var sidecar models.ChunkSidecar
	if err := json.Unmarshal(data, &sidecar); err != nil {
		c.logger.Debug().Err(err).Str("path", path).Msg("Chunk sidecar malformed")
		return nil
	}

	return sidecar.Content.Chunks
}
