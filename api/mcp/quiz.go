package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/studybuddy/pkg/client"
)

var (
	quizToolName    = "generate_quiz"
	quizDescription = "Generate multiple choice questions about a ready document. Each question lists its options, the index of the correct option and an explanation."
)

// QuizInput represents the input arguments for the generate_quiz tool.
type QuizInput struct {
	DocumentID   string `json:"document_id" jsonschema:"id of a ready document"`
	NumQuestions int    `json:"num_questions,omitempty" jsonschema:"number of questions (default: 5)"`
}

// QuizOutput represents the output of the generate_quiz tool.
type QuizOutput struct {
	DocumentID string                `json:"document_id"`
	Questions  []client.QuizQuestion `json:"questions"`
	Count      int                   `json:"count"`
}

func (s *Server) handleQuiz(ctx context.Context, _ *mcp.CallToolRequest, input QuizInput) (*mcp.CallToolResult, QuizOutput, error) {
	if input.DocumentID == "" {
		return toolError("document_id is required"), QuizOutput{}, nil
	}

	quiz, err := s.config.Backend.GenerateQuiz(ctx, input.DocumentID, input.NumQuestions)
	if err != nil {
		s.config.Logger.Error("failed to generate quiz", "document_id", input.DocumentID, "error", err)
		return toolError("Failed to generate quiz: %v", err), QuizOutput{}, nil
	}

	out := QuizOutput{
		DocumentID: input.DocumentID,
		Questions:  quiz.Questions,
		Count:      len(quiz.Questions),
	}
	if out.Questions == nil {
		out.Questions = []client.QuizQuestion{}
	}

	return s.jsonResult(out), out, nil
}
