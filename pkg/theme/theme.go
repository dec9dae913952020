// Package theme resolves and persists the light/dark preference used for
// terminal rendering.
package theme

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/charmbracelet/glamour/styles"
	"github.com/muesli/termenv"

	"github.com/papercomputeco/studybuddy/pkg/authstore"
	"github.com/papercomputeco/studybuddy/pkg/logger"
)

// Preference is a stored theme choice.
type Preference string

const (
	Light  Preference = "light"
	Dark   Preference = "dark"
	System Preference = "system"
)

// Parse validates s as a Preference.
func Parse(s string) (Preference, error) {
	switch p := Preference(s); p {
	case Light, Dark, System:
		return p, nil
	default:
		return "", fmt.Errorf("invalid theme %q (must be light, dark or system)", s)
	}
}

// hasDarkBackground is swapped in tests.
var hasDarkBackground = termenv.HasDarkBackground

// Effective resolves System against the terminal background. Any other
// value is returned as Light or Dark, and unknown values fall back to Dark.
func Effective(p Preference) Preference {
	switch p {
	case Light:
		return Light
	case System:
		if hasDarkBackground() {
			return Dark
		}
		return Light
	default:
		return Dark
	}
}

// GlamourStyle returns the glamour style name matching the effective theme.
func GlamourStyle(p Preference) string {
	if Effective(p) == Light {
		return styles.LightStyle
	}
	return styles.DarkStyle
}

// Updater stores the preference on the backend. *client.Client satisfies it.
type Updater interface {
	UpdateTheme(ctx context.Context, theme string) error
}

// Manager applies preference changes locally and remotely.
type Manager struct {
	auth   *authstore.Manager
	remote Updater
	local  func(Preference) error
	logger *slog.Logger
}

// NewManager creates a Manager. local persists the preference for signed
// out use and may be nil.
func NewManager(auth *authstore.Manager, remote Updater, local func(Preference) error, log *slog.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{auth: auth, remote: remote, local: local, logger: log}
}

// Current returns the signed-in user's preference, or fallback when signed
// out or unset.
func (m *Manager) Current(fallback Preference) Preference {
	if s := m.auth.Current(); s.User != nil {
		if p, err := Parse(s.User.ThemePreference); err == nil {
			return p
		}
	}
	if fallback == "" {
		return System
	}
	return fallback
}

// Apply stores p locally, then on the backend when signed in. Backend
// failures are logged and do not fail the change.
func (m *Manager) Apply(ctx context.Context, p Preference) error {
	if _, err := Parse(string(p)); err != nil {
		return err
	}

	if m.local != nil {
		if err := m.local(p); err != nil {
			return fmt.Errorf("saving theme: %w", err)
		}
	}

	if err := m.auth.UpdateUser(func(u *authstore.User) { u.ThemePreference = string(p) }); err != nil {
		return fmt.Errorf("saving theme: %w", err)
	}

	if m.remote != nil && m.auth.IsAuthenticated() {
		if err := m.remote.UpdateTheme(ctx, string(p)); err != nil {
			m.logger.Warn("failed to save theme preference", "theme", string(p), "error", err)
		}
	}
	return nil
}
