package api

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/studybuddy/pkg/authstore"
	"github.com/papercomputeco/studybuddy/pkg/client"
)

// Authenticator exchanges a Google ID token for a backend session.
// *client.Client satisfies it.
type Authenticator interface {
	LoginGoogle(ctx context.Context, idToken string) (*client.TokenResponse, error)
}

// Server is the companion server that runs next to the CLI.
type Server struct {
	config   Config
	auth     *authstore.Manager
	backend  Authenticator
	logger   *slog.Logger
	app      *fiber.App
	loggedIn chan authstore.User
}

// NewServer creates a new API server. The auth store receives the token of
// every completed browser sign-in.
func NewServer(config Config, auth *authstore.Manager, backend Authenticator, logger *slog.Logger) (*Server, error) {
	if auth == nil {
		return nil, errors.New("auth store is required")
	}
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:   config,
		auth:     auth,
		backend:  backend,
		logger:   logger,
		app:      app,
		loggedIn: make(chan authstore.User, 1),
	}

	app.Get("/ping", s.handlePing)
	app.Get("/login", s.handleLoginPage)
	app.Post("/login/callback", s.handleLoginCallback)

	if config.Transcripts != nil {
		app.Get("/v1/transcripts", s.handleListTranscripts)
		app.Get("/v1/transcripts/sessions", s.handleListTranscriptSessions)
		app.Get("/v1/transcripts/:id", s.handleGetTranscript)
	}
	app.Get("/v1/search", s.handleSearchEndpoint)

	if config.MCPHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCPHandler))
	}

	return s, nil
}

// LoggedIn delivers the user of each completed browser sign-in. Sign-ins
// nobody is waiting for are dropped once one is pending.
func (s *Server) LoggedIn() <-chan authstore.User {
	return s.loggedIn
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// Serve runs the API server on an existing listener, for example one bound
// to an ephemeral port.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting API server", "listen", ln.Addr().String())
	return s.app.Listener(ln)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
