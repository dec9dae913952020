package testutils

import (
	"time"

	"github.com/papercomputeco/studybuddy/pkg/transcript"
)

// NewTestTurn creates a completed turn in session that started at at.
func NewTestTurn(session, question string, at time.Time) *transcript.Turn {
	return &transcript.Turn{
		SessionID:   session,
		DocumentID:  "doc-1",
		Persona:     "default",
		Question:    question,
		Reply:       "answer to " + question,
		Citations:   []int{1},
		StartedAt:   at,
		CompletedAt: at.Add(2 * time.Second),
	}
}
