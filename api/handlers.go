package api

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/studybuddy/pkg/authstore"
	"github.com/papercomputeco/studybuddy/pkg/transcript"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// LoginCallbackRequest is posted by the sign-in page with the credential
// issued by Google Identity Services.
type LoginCallbackRequest struct {
	Credential string `json:"credential"`
}

// LoginCallbackResponse confirms who signed in.
type LoginCallbackResponse struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleLoginPage serves the Google sign-in page.
func (s *Server) handleLoginPage(c *fiber.Ctx) error {
	if s.config.GoogleClientID == "" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "google sign-in is not configured: set auth.google_client_id",
		})
	}

	page, err := renderLoginPage(s.config.GoogleClientID)
	if err != nil {
		s.logger.Error("failed to render login page", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to render login page"})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(page)
}

// handleLoginCallback exchanges the Google credential for a backend token,
// stores it, and wakes up the waiting CLI.
func (s *Server) handleLoginCallback(c *fiber.Ctx) error {
	var req LoginCallbackRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	credential := strings.TrimSpace(req.Credential)
	if credential == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "credential is required"})
	}

	tok, err := s.backend.LoginGoogle(c.UserContext(), credential)
	if err != nil {
		s.logger.Warn("google sign-in failed", "error", err)
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: err.Error()})
	}

	user := authstore.User{
		Email:           tok.Email,
		FullName:        tok.FullName,
		ThemePreference: tok.ThemePreference,
	}
	if err := s.auth.SetToken(tok.AccessToken, &user); err != nil {
		s.logger.Error("failed to store token", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to store token"})
	}

	s.logger.Info("signed in", "email", user.Email)

	select {
	case s.loggedIn <- user:
	default:
	}

	return c.JSON(LoginCallbackResponse{Email: user.Email, FullName: user.FullName})
}

// handleListTranscripts returns archived turns, newest first.
// Query parameters:
//   - session_id, document_id (optional): filters
//   - limit (optional): maximum number of turns
func (s *Server) handleListTranscripts(c *fiber.Ctx) error {
	filter := transcript.Filter{
		SessionID:  c.Query("session_id"),
		DocumentID: c.Query("document_id"),
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "limit must be a positive integer"})
		}
		filter.Limit = limit
	}

	turns, err := s.config.Transcripts.List(c.UserContext(), filter)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list transcripts"})
	}
	if turns == nil {
		turns = []*transcript.Turn{}
	}

	return c.JSON(turns)
}

// handleListTranscriptSessions returns one summary per archived session.
func (s *Server) handleListTranscriptSessions(c *fiber.Ctx) error {
	sessions, err := s.config.Transcripts.Sessions(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list sessions"})
	}
	if sessions == nil {
		sessions = []transcript.SessionSummary{}
	}

	return c.JSON(sessions)
}

// handleGetTranscript returns a single archived turn by its id.
func (s *Server) handleGetTranscript(c *fiber.Ctx) error {
	turn, err := s.config.Transcripts.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		var notFound transcript.NotFoundError
		if errors.As(err, &notFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "turn not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to get turn"})
	}

	return c.JSON(turn)
}
