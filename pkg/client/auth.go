package client

import (
	"context"
	"fmt"
	"net/http"
	"slices"
)

// Themes the backend accepts as a stored preference.
var Themes = []string{"light", "dark", "system"}

// LoginGoogle exchanges a Google ID token for a backend session token.
func (c *Client) LoginGoogle(ctx context.Context, idToken string) (*TokenResponse, error) {
	if idToken == "" {
		return nil, fmt.Errorf("google ID token is required")
	}

	out := &TokenResponse{}
	in := map[string]string{"token": idToken}
	if err := c.doJSON(ctx, http.MethodPost, c.endpoint("auth", "google"), in, out); err != nil {
		return nil, fmt.Errorf("signing in: %w", err)
	}
	return out, nil
}

// UpdateTheme stores the user's theme preference on the backend.
func (c *Client) UpdateTheme(ctx context.Context, theme string) error {
	if !slices.Contains(Themes, theme) {
		return fmt.Errorf("invalid theme %q (must be light, dark or system)", theme)
	}

	in := map[string]string{"theme": theme}
	if err := c.doJSON(ctx, http.MethodPatch, c.endpoint("auth", "me", "theme"), in, nil); err != nil {
		return fmt.Errorf("updating theme: %w", err)
	}
	return nil
}
