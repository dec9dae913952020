package client

import (
	"encoding/json"
	"time"
)

// DocumentStatus is a document's position in the backend ingestion pipeline.
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
	StatusNeedsOCR   DocumentStatus = "needs_ocr"
)

// InFlight reports whether ingestion is still running.
func (s DocumentStatus) InFlight() bool {
	return s == StatusPending || s == StatusProcessing
}

// Studyable reports whether the document can be opened for chat and quizzes.
func (s DocumentStatus) Studyable() bool {
	return s == StatusReady || s == StatusNeedsOCR
}

// Document is an uploaded PDF.
type Document struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	Status      DocumentStatus `json:"upload_status"`
	TotalPages  int            `json:"total_pages"`
	TotalChunks int            `json:"total_chunks"`
	CreatedAt   time.Time      `json:"created_at"`
}

// TokenResponse is returned by the Google sign-in exchange.
type TokenResponse struct {
	AccessToken     string `json:"access_token"`
	TokenType       string `json:"token_type"`
	UserID          string `json:"user_id"`
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	ThemePreference string `json:"theme_preference"`
}

// ChatRequest is the body of POST /chat. DocumentID and SessionID are sent
// as null when empty.
type ChatRequest struct {
	DocumentID string
	Question   string
	Persona    string
	SessionID  string
	WebSearch  bool
}

// MarshalJSON encodes empty ids as null, as the backend expects.
func (r ChatRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		DocumentID *string `json:"document_id"`
		Question   string  `json:"question"`
		Persona    string  `json:"persona"`
		SessionID  *string `json:"session_id"`
		WebSearch  bool    `json:"web_search"`
	}{
		DocumentID: nullable(r.DocumentID),
		Question:   r.Question,
		Persona:    r.Persona,
		SessionID:  nullable(r.SessionID),
		WebSearch:  r.WebSearch,
	})
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Session is a backend chat session.
type Session struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	DocumentID *string   `json:"document_id"`
	Title      string    `json:"title"`
	Persona    string    `json:"persona"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Role is the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a stored chat message. The backend keeps citations as a JSON
// encoded string; Citations holds the parsed page numbers when that string
// is an integer array.
type Message struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	Role         Role      `json:"role"`
	Content      string    `json:"content"`
	RawCitations *string   `json:"citations"`
	CreatedAt    time.Time `json:"created_at"`

	Citations []int `json:"-"`
}

func (m *Message) parseCitations() {
	if m.RawCitations == nil || *m.RawCitations == "" {
		return
	}
	var pages []int
	if err := json.Unmarshal([]byte(*m.RawCitations), &pages); err == nil {
		m.Citations = pages
	}
}

// QuizQuestion is one multiple choice question.
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

// Quiz is a generated set of questions for a document.
type Quiz struct {
	Questions []QuizQuestion `json:"questions"`
}

// GraphNode is a concept in the knowledge map.
type GraphNode struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Val  int    `json:"val,omitempty"`
}

// GraphLink is a labelled relation between two concepts.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
}

// Graph is a document's knowledge map.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}

// HealthStatus is the backend liveness response.
type HealthStatus struct {
	Status string `json:"status"`
}

// Healthy reports whether the backend declared itself healthy.
func (h HealthStatus) Healthy() bool {
	return h.Status == "healthy"
}
