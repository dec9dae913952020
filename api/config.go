// Package api provides the local companion HTTP server: the browser sign-in
// flow, the MCP endpoint and read access to the local transcript archive.
package api

import (
	"net/http"

	"github.com/papercomputeco/studybuddy/pkg/transcript"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., "127.0.0.1:8765")
	ListenAddr string

	// GoogleClientID is the OAuth client id rendered into the sign-in page.
	// The /login routes answer 503 without it.
	GoogleClientID string

	// Transcripts is the local archive served under /v1. Optional.
	Transcripts transcript.Driver

	// MCPHandler is mounted at /mcp when set.
	MCPHandler http.Handler
}
