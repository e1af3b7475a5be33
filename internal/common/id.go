package common

import (
	"github.com/google/uuid"
)

// NewRunID generates a unique question run ID with the "ask_" prefix
// Format: ask_<uuid>
func NewRunID() string {
	return "ask_" + uuid.New().String()
}
