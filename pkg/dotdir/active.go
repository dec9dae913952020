package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	activeFile = "active.json"
)

// ActiveChat points at the conversation "studybuddy chat" resumes by default.
type ActiveChat struct {
	// SessionID is the backend chat session. Empty until the first reply
	// carries one.
	SessionID string `json:"session_id,omitempty"`

	// DocumentID is the document the conversation is about. Empty means a
	// general chat with no document.
	DocumentID string `json:"document_id,omitempty"`

	// Persona is the tutor persona key.
	Persona string `json:"persona,omitempty"`
}

// LoadActiveChat loads .studybuddy/active.json.
// Returns nil, nil if no active chat has been saved.
func (m *Manager) LoadActiveChat(overrideDir string) (*ActiveChat, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, activeFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading active chat: %w", err)
	}

	active := &ActiveChat{}
	if err := json.Unmarshal(data, active); err != nil {
		return nil, fmt.Errorf("parsing active chat: %w", err)
	}

	return active, nil
}

// SaveActiveChat persists the active chat pointer.
func (m *Manager) SaveActiveChat(active *ActiveChat, overrideDir string) error {
	if active == nil {
		return errors.New("cannot save nil active chat")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(active, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling active chat: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, activeFile), data, 0o600); err != nil {
		return fmt.Errorf("writing active chat: %w", err)
	}

	return nil
}

// ClearActiveChat removes the active chat pointer so the next chat starts
// fresh. Returns nil if there is nothing to clear.
func (m *Manager) ClearActiveChat(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(dir, activeFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing active chat: %w", err)
	}

	return nil
}
