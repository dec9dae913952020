// Package authstore persists the signed-in user and bearer token in the
// .studybuddy/ directory and exposes it as an observable store.
package authstore

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/studybuddy/pkg/dotdir"
	"github.com/papercomputeco/studybuddy/pkg/state"
)

const (
	// authFile keeps the storage key the web client used for the same state.
	authFile = "auth-storage.toml"

	currentVersion = 0
)

// Manager reads and writes auth-storage.toml. Every mutation is written
// through to disk and then published to subscribers.
type Manager struct {
	mu         sync.Mutex
	targetPath string
	store      *state.Store[State]
}

// NewManager creates a Manager for the resolved .studybuddy/ directory.
// Call Load to hydrate it from disk.
func NewManager(override string) (*Manager, error) {
	target, err := dotdir.NewManager().Target(override)
	if err != nil {
		return nil, err
	}

	return &Manager{
		targetPath: filepath.Join(target, authFile),
		store:      state.New(State{Version: currentVersion}),
	}, nil
}

// Load reads the persisted state. A missing file is an empty, signed out
// state. A stored user without a token is dropped.
func (m *Manager) Load() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.read()
	if err != nil {
		return State{}, err
	}

	m.store.Set(s)
	return s, nil
}

// SetToken stores a token and user. An empty token signs the user out.
func (m *Manager) SetToken(token string, user *User) error {
	if token == "" {
		return m.Logout()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s := State{Version: currentVersion, Token: token}
	if user != nil {
		u := *user
		s.User = &u
	}

	return m.commit(s)
}

// UpdateUser applies fn to the stored user. It is a no-op when nobody is
// signed in.
func (m *Manager) UpdateUser(fn func(*User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.read()
	if err != nil {
		return err
	}
	if s.User == nil {
		return nil
	}

	u := *s.User
	fn(&u)
	s.User = &u

	return m.commit(s)
}

// Logout removes the persisted state.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.Remove(m.targetPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing auth state: %w", err)
	}

	m.store.Set(State{Version: currentVersion})
	return nil
}

// Current returns the last loaded or written state.
func (m *Manager) Current() State {
	return m.store.Get()
}

// Token returns the current bearer token, empty when signed out.
func (m *Manager) Token() string {
	return m.store.Get().Token
}

// IsAuthenticated reports whether a token is held.
func (m *Manager) IsAuthenticated() bool {
	return m.store.Get().Authenticated()
}

// Subscribe registers fn to run after every change to the auth state.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	return m.store.Subscribe(fn)
}

// GetTarget returns the resolved path to the auth state file.
func (m *Manager) GetTarget() string {
	return m.targetPath
}

func (m *Manager) read() (State, error) {
	data, err := os.ReadFile(m.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return State{Version: currentVersion}, nil
		}
		return State{}, fmt.Errorf("reading auth state: %w", err)
	}

	var s State
	if err := toml.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("parsing auth state: %w", err)
	}

	if s.Token == "" {
		s.User = nil
	}

	return s, nil
}

func (m *Manager) commit(s State) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(s); err != nil {
		return fmt.Errorf("encoding auth state: %w", err)
	}

	if err := os.WriteFile(m.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing auth state: %w", err)
	}

	m.store.Set(s)
	return nil
}
