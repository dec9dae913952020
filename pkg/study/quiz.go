package study

import (
	"errors"
	"fmt"

	"github.com/papercomputeco/studybuddy/pkg/client"
)

var (
	// ErrNoQuestions is returned for a quiz without questions.
	ErrNoQuestions = errors.New("no questions generated")

	// ErrAlreadyAnswered is returned when the current question was answered.
	ErrAlreadyAnswered = errors.New("question already answered")
)

// QuizRound walks through a generated quiz one question at a time. Each
// question is answered once and scores a point when correct.
type QuizRound struct {
	questions []client.QuizQuestion
	index     int
	score     int
	selected  int
	answered  bool
	done      bool
}

// NewQuizRound starts a round over quiz.
func NewQuizRound(quiz *client.Quiz) (*QuizRound, error) {
	if quiz == nil || len(quiz.Questions) == 0 {
		return nil, ErrNoQuestions
	}
	return &QuizRound{questions: quiz.Questions, selected: -1}, nil
}

// Current returns the question being asked.
func (r *QuizRound) Current() client.QuizQuestion {
	return r.questions[r.index]
}

// Index is the zero based position of the current question.
func (r *QuizRound) Index() int { return r.index }

// Len is the number of questions.
func (r *QuizRound) Len() int { return len(r.questions) }

// Score is the number of correct answers so far.
func (r *QuizRound) Score() int { return r.score }

// Answered reports whether the current question has been answered.
func (r *QuizRound) Answered() bool { return r.answered }

// Selected is the chosen option of the current question, or -1.
func (r *QuizRound) Selected() int { return r.selected }

// Done reports whether every question has been answered and passed.
func (r *QuizRound) Done() bool { return r.done }

// Last reports whether the current question is the final one.
func (r *QuizRound) Last() bool { return r.index == len(r.questions)-1 }

// Answer selects option for the current question and reports whether it
// was correct.
func (r *QuizRound) Answer(option int) (bool, error) {
	if r.done {
		return false, errors.New("quiz is finished")
	}
	if r.answered {
		return false, ErrAlreadyAnswered
	}
	q := r.Current()
	if option < 0 || option >= len(q.Options) {
		return false, fmt.Errorf("option %d out of range (1-%d)", option+1, len(q.Options))
	}

	r.selected = option
	r.answered = true
	correct := option == q.CorrectAnswer
	if correct {
		r.score++
	}
	return correct, nil
}

// Next moves past an answered question. It returns false once the round is
// over.
func (r *QuizRound) Next() bool {
	if !r.answered || r.done {
		return !r.done
	}
	if r.Last() {
		r.done = true
		return false
	}
	r.index++
	r.selected = -1
	r.answered = false
	return true
}

// Verdict is the closing remark for the final score.
func (r *QuizRound) Verdict() string {
	total := len(r.questions)
	switch {
	case r.score == total:
		return "Perfect score! You're a master."
	case r.score*2 > total:
		return "Great job! Keep studying."
	default:
		return "Keep practicing!"
	}
}
