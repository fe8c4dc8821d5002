package session

import (
	"time"

	"github.com/wricardo/mcp-training/keydoor/game/engine"
	"github.com/wricardo/mcp-training/keydoor/game/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData represents the JSON structure for persisted sessions.
// Positions inside a level are not saved; a reloaded session resumes at the
// start of the level it had reached.
type PersistedSessionData struct {
	ID             string           `json:"id"`
	LevelSetID     string           `json:"level_set_id"`
	CreatedAt      time.Time        `json:"created_at"`
	LastAccessedAt time.Time        `json:"last_accessed_at"`
	Progress       engine.Progress  `json:"progress"`
	Checkpoint     *engine.Progress `json:"checkpoint,omitempty"`
}
