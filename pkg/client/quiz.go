package client

import (
	"context"
	"fmt"
	"net/http"
)

// DefaultQuizQuestions is the quiz length used when none is requested.
const DefaultQuizQuestions = 5

// GenerateQuiz asks the backend for n multiple choice questions about a
// document.
func (c *Client) GenerateQuiz(ctx context.Context, documentID string, n int) (*Quiz, error) {
	if documentID == "" {
		return nil, fmt.Errorf("document id is required")
	}
	if n <= 0 {
		n = DefaultQuizQuestions
	}

	in := struct {
		DocumentID   string `json:"document_id"`
		NumQuestions int    `json:"num_questions"`
	}{documentID, n}

	quiz := &Quiz{}
	if err := c.doJSON(ctx, http.MethodPost, c.endpoint("quiz", "generate"), in, quiz); err != nil {
		return nil, fmt.Errorf("generating quiz: %w", err)
	}
	return quiz, nil
}
