package testutils

import (
	"fmt"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/papercomputeco/studybuddy/pkg/client"
)

// GoogleIDToken is the only ID token FakeBackend accepts.
const GoogleIDToken = "google-id-token"

// BackendToken is the access token FakeBackend issues on sign in.
const BackendToken = "backend-jwt"

// ChatCall is a recorded POST /api/chat body.
type ChatCall struct {
	DocumentID *string `json:"document_id"`
	Question   string  `json:"question"`
	Persona    string  `json:"persona"`
	SessionID  *string `json:"session_id"`
	WebSearch  bool    `json:"web_search"`
}

// FakeBackend is an in-process stand-in for the Study Buddy backend. Fields
// are guarded by the backend's lock; use the setters while a test is running.
type FakeBackend struct {
	server *httptest.Server

	mu         sync.Mutex
	documents  []client.Document
	content    map[string][]byte
	sessions   []client.Session
	messages   map[string][]client.Message
	chatReply  string
	chatStatus int
	chats      []ChatCall
	quiz       client.Quiz
	graph      client.Graph
	down       bool
	themes     []string
	authHeader []string
}

// NewFakeBackend starts a FakeBackend. Call Close when done.
func NewFakeBackend() *FakeBackend {
	b := &FakeBackend{
		content:   map[string][]byte{},
		messages:  map[string][]client.Message{},
		chatReply: "__SESSION_ID__:session-1\nHello from the tutor.",
	}
	b.server = httptest.NewServer(adaptor.FiberApp(b.app()))
	return b
}

// APIURL is the backend API root, including /api.
func (b *FakeBackend) APIURL() string {
	return b.server.URL + "/api"
}

// Close shuts the server down.
func (b *FakeBackend) Close() {
	b.server.Close()
}

// AddDocument stores a document and its PDF content.
func (b *FakeBackend) AddDocument(doc client.Document, content []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.documents = append(b.documents, doc)
	b.content[doc.ID] = content
}

// SetStatus changes a stored document's status.
func (b *FakeBackend) SetStatus(id string, status client.DocumentStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.documents {
		if b.documents[i].ID == id {
			b.documents[i].Status = status
		}
	}
}

// Documents returns the stored documents.
func (b *FakeBackend) Documents() []client.Document {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.documents)
}

// AddSession stores a session and its messages.
func (b *FakeBackend) AddSession(s client.Session, msgs ...client.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions = append(b.sessions, s)
	b.messages[s.ID] = msgs
}

// SetChatReply sets the raw streamed body returned by POST /api/chat.
// A non-zero status makes the chat endpoint fail with it instead.
func (b *FakeBackend) SetChatReply(body string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chatReply = body
	b.chatStatus = status
}

// Chats returns the recorded chat requests.
func (b *FakeBackend) Chats() []ChatCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.chats)
}

// SetQuiz sets the quiz returned by POST /api/quiz/generate.
func (b *FakeBackend) SetQuiz(q client.Quiz) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quiz = q
}

// SetGraph sets the graph returned by GET /api/graph/:id.
func (b *FakeBackend) SetGraph(g client.Graph) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.graph = g
}

// SetDown makes GET /health fail.
func (b *FakeBackend) SetDown(down bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.down = down
}

// Themes returns the theme preferences PATCHed so far.
func (b *FakeBackend) Themes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.themes)
}

// AuthHeaders returns the Authorization header of every API request.
func (b *FakeBackend) AuthHeaders() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.authHeader)
}

func (b *FakeBackend) app() *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Get("/health", func(c *fiber.Ctx) error {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.down {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unhealthy"})
		}
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	api := app.Group("/api", func(c *fiber.Ctx) error {
		b.mu.Lock()
		b.authHeader = append(b.authHeader, c.Get(fiber.HeaderAuthorization))
		b.mu.Unlock()
		return c.Next()
	})

	api.Post("/auth/google", b.handleGoogle)
	api.Patch("/auth/me/theme", b.handleTheme)
	api.Post("/upload", b.handleUpload)
	api.Get("/documents", b.handleListDocuments)
	api.Get("/documents/:id", b.handleGetDocument)
	api.Delete("/documents/:id", b.handleDeleteDocument)
	api.Post("/documents/:id/reprocess", b.handleReprocess)
	api.Get("/documents/:id/content", b.handleContent)
	api.Post("/chat", b.handleChat)
	api.Get("/sessions", b.handleListSessions)
	api.Get("/sessions/:id/messages", b.handleMessages)
	api.Post("/quiz/generate", b.handleQuiz)
	api.Get("/graph/:id", b.handleGraph)

	return app
}

func detail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"detail": msg})
}

func (b *FakeBackend) handleGoogle(c *fiber.Ctx) error {
	var in struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&in); err != nil || in.Token != GoogleIDToken {
		return detail(c, fiber.StatusUnauthorized, "Invalid Google token")
	}
	return c.JSON(client.TokenResponse{
		AccessToken:     BackendToken,
		TokenType:       "bearer",
		UserID:          "user-1",
		FullName:        "Ada Lovelace",
		Email:           "ada@example.com",
		ThemePreference: "dark",
	})
}

func (b *FakeBackend) handleTheme(c *fiber.Ctx) error {
	var in struct {
		Theme string `json:"theme"`
	}
	if err := c.BodyParser(&in); err != nil {
		return detail(c, fiber.StatusUnprocessableEntity, err.Error())
	}
	b.mu.Lock()
	b.themes = append(b.themes, in.Theme)
	b.mu.Unlock()
	return c.JSON(fiber.Map{"theme_preference": in.Theme})
}

func (b *FakeBackend) handleUpload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return detail(c, fiber.StatusBadRequest, "file is required")
	}
	if !strings.HasSuffix(strings.ToLower(fh.Filename), ".pdf") {
		return detail(c, fiber.StatusBadRequest, "Only PDF files are allowed")
	}

	doc := client.Document{
		ID:        uuid.NewString(),
		Filename:  fh.Filename,
		Status:    client.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	b.AddDocument(doc, nil)
	return c.JSON(doc)
}

func (b *FakeBackend) handleListDocuments(c *fiber.Ctx) error {
	docs := b.Documents()
	slices.Reverse(docs)
	if docs == nil {
		docs = []client.Document{}
	}
	return c.JSON(docs)
}

func (b *FakeBackend) find(id string) (client.Document, bool) {
	for _, d := range b.Documents() {
		if d.ID == id {
			return d, true
		}
	}
	return client.Document{}, false
}

func (b *FakeBackend) handleGetDocument(c *fiber.Ctx) error {
	doc, ok := b.find(c.Params("id"))
	if !ok {
		return detail(c, fiber.StatusNotFound, "Document not found")
	}
	return c.JSON(doc)
}

func (b *FakeBackend) handleDeleteDocument(c *fiber.Ctx) error {
	id := c.Params("id")
	doc, ok := b.find(id)
	if !ok {
		return detail(c, fiber.StatusNotFound, "Document not found")
	}

	b.mu.Lock()
	b.documents = slices.DeleteFunc(b.documents, func(d client.Document) bool { return d.ID == id })
	delete(b.content, id)
	b.mu.Unlock()

	return c.JSON(fiber.Map{"message": fmt.Sprintf("Document %s deleted successfully", doc.Filename)})
}

func (b *FakeBackend) handleReprocess(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, ok := b.find(id); !ok {
		return detail(c, fiber.StatusNotFound, "Document not found")
	}
	b.SetStatus(id, client.StatusPending)
	doc, _ := b.find(id)
	return c.JSON(doc)
}

func (b *FakeBackend) handleContent(c *fiber.Ctx) error {
	b.mu.Lock()
	data, ok := b.content[c.Params("id")]
	b.mu.Unlock()
	if !ok {
		return detail(c, fiber.StatusNotFound, "Document not found")
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	return c.Send(data)
}

func (b *FakeBackend) handleChat(c *fiber.Ctx) error {
	var in ChatCall
	if err := c.BodyParser(&in); err != nil {
		return detail(c, fiber.StatusUnprocessableEntity, err.Error())
	}

	b.mu.Lock()
	b.chats = append(b.chats, in)
	body, status := b.chatReply, b.chatStatus
	b.mu.Unlock()

	if status != 0 {
		return detail(c, status, "chat failed")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(body)
}

func (b *FakeBackend) handleListSessions(c *fiber.Ctx) error {
	documentID := c.Query("document_id")

	b.mu.Lock()
	defer b.mu.Unlock()

	out := []client.Session{}
	for _, s := range b.sessions {
		sid := ""
		if s.DocumentID != nil {
			sid = *s.DocumentID
		}
		if sid == documentID {
			out = append(out, s)
		}
	}
	return c.JSON(out)
}

func (b *FakeBackend) handleMessages(c *fiber.Ctx) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	msgs, ok := b.messages[c.Params("id")]
	if !ok {
		return detail(c, fiber.StatusNotFound, "Session not found")
	}
	if msgs == nil {
		msgs = []client.Message{}
	}
	return c.JSON(msgs)
}

func (b *FakeBackend) handleQuiz(c *fiber.Ctx) error {
	var in struct {
		DocumentID   string `json:"document_id"`
		NumQuestions int    `json:"num_questions"`
	}
	if err := c.BodyParser(&in); err != nil {
		return detail(c, fiber.StatusUnprocessableEntity, err.Error())
	}
	if _, ok := b.find(in.DocumentID); !ok {
		return detail(c, fiber.StatusNotFound, "Document not found")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return c.JSON(b.quiz)
}

func (b *FakeBackend) handleGraph(c *fiber.Ctx) error {
	if _, ok := b.find(c.Params("id")); !ok {
		return detail(c, fiber.StatusNotFound, "Document not found")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return c.JSON(b.graph)
}
