package authstore

// State is the persisted sign-in state in auth-storage.toml.
type State struct {
	Version int    `toml:"version"`
	Token   string `toml:"token,omitempty"`
	User    *User  `toml:"user,omitempty"`
}

// User is the signed-in user's profile as returned by the backend.
type User struct {
	Email           string `toml:"email"`
	FullName        string `toml:"full_name"`
	ThemePreference string `toml:"theme_preference,omitempty"`
}

// Authenticated reports whether the state carries a token.
func (s State) Authenticated() bool {
	return s.Token != ""
}
