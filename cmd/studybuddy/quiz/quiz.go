// Package quizcmder provides the quiz command for testing yourself on a
// document.
package quizcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/studybuddy/cmd/studybuddy/cmdenv"
	"github.com/papercomputeco/studybuddy/pkg/cliui"
	"github.com/papercomputeco/studybuddy/pkg/client"
	"github.com/papercomputeco/studybuddy/pkg/config"
	"github.com/papercomputeco/studybuddy/pkg/study"
)

const quizLongDesc string = `Take a multiple choice quiz generated from a document.

Pick an answer for each question to see whether it was right and why.
Your score is shown at the end, and you can try again with a fresh set of
questions.

Examples:
  studybuddy quiz --document 3f2a...
  studybuddy quiz --document 3f2a... -n 10`

const quizShortDesc string = "Quiz yourself on a document"

type quizCommander struct {
	apiURL     string
	documentID string
	questions  int
	plain      bool
}

// quizSession generates rounds for one document and records their scores.
type quizSession struct {
	env      *cmdenv.Env
	recorder *study.Recorder
	document *client.Document
	n        int
}

func (s *quizSession) generate(ctx context.Context) (*study.QuizRound, error) {
	quiz, err := s.env.Client.GenerateQuiz(ctx, s.document.ID, s.n)
	if err != nil {
		return nil, err
	}
	return study.NewQuizRound(quiz)
}

func (s *quizSession) finish(ctx context.Context, r *study.QuizRound) {
	s.recorder.RecordQuiz(ctx, s.document.ID, r.Score(), r.Len())
}

func NewQuizCmd() *cobra.Command {
	cmder := &quizCommander{}

	cmd := &cobra.Command{
		Use:   "quiz",
		Short: quizShortDesc,
		Long:  quizLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.StudyFlags, config.FlagAPIURL, &cmder.apiURL)
	cmd.Flags().StringVarP(&cmder.documentID, "document", "D", "", "Document to be quizzed on (required)")
	cmd.Flags().IntVarP(&cmder.questions, "questions", "n", client.DefaultQuizQuestions, "Number of questions")
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Use the line based prompt even in a terminal")
	_ = cmd.MarkFlagRequired("document")

	return cmd
}

func (c *quizCommander) run(cmd *cobra.Command) error {
	if c.questions <= 0 {
		return fmt.Errorf("--questions must be positive")
	}

	env, err := cmdenv.Load(cmd, config.FlagAPIURL)
	if err != nil {
		return err
	}
	if err := env.RequireAuth(); err != nil {
		return err
	}

	ctx := cmd.Context()

	doc, err := env.Client.GetDocument(ctx, c.documentID)
	if err != nil {
		return err
	}
	if !doc.Status.Studyable() {
		return fmt.Errorf("%s is %s and cannot be quizzed on yet", doc.Filename, doc.Status)
	}

	rec, _, closeRec, err := env.Recorder(ctx)
	if err != nil {
		return err
	}
	defer closeRec()

	s := &quizSession{env: env, recorder: rec, document: doc, n: c.questions}

	in, out := cmd.InOrStdin(), cmd.OutOrStdout()
	if !c.plain && isTerminal(in) && isTerminal(out) {
		return runQuizTUI(ctx, s)
	}
	return runPlain(ctx, s, in, out)
}

// runPlain asks the questions on a line based prompt.
func runPlain(ctx context.Context, s *quizSession, in io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(in)

	for {
		var round *study.QuizRound
		err := cliui.Step(w, "Generating your quiz", func() error {
			var gerr error
			round, gerr = s.generate(ctx)
			return gerr
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "\n  %s %s\n", cliui.HeaderStyle.Render("Quiz:"), cliui.NameStyle.Render(s.document.Filename))

		for {
			q := round.Current()
			fmt.Fprintf(w, "\n  %s %s\n",
				cliui.DimStyle.Render(fmt.Sprintf("Question %d of %d", round.Index()+1, round.Len())),
				cliui.DimStyle.Render(fmt.Sprintf("· Score: %d", round.Score())),
			)
			fmt.Fprintf(w, "  %s\n\n", q.Question)
			for i, opt := range q.Options {
				fmt.Fprintf(w, "    %s %s\n", cliui.KeyStyle.Render(strconv.Itoa(i+1)+")"), opt)
			}

			for !round.Answered() {
				fmt.Fprintf(w, "\n  Answer [1-%d]: ", len(q.Options))
				if !scanner.Scan() {
					fmt.Fprintln(w)
					return scanner.Err()
				}
				choice, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
				if err != nil {
					fmt.Fprintf(w, "  %s\n", cliui.WarnStyle.Render(fmt.Sprintf("Enter a number between 1 and %d.", len(q.Options))))
					continue
				}
				correct, err := round.Answer(choice - 1)
				if err != nil {
					fmt.Fprintf(w, "  %s\n", cliui.WarnStyle.Render(fmt.Sprintf("Enter a number between 1 and %d.", len(q.Options))))
					continue
				}
				printFeedback(w, q, correct)
			}

			if !round.Next() {
				break
			}
		}

		s.finish(ctx, round)
		printResult(w, round)

		fmt.Fprint(w, "  Try again? [y/N] ")
		if !scanner.Scan() {
			fmt.Fprintln(w)
			return scanner.Err()
		}
		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if answer != "y" && answer != "yes" {
			return nil
		}
	}
}

func printFeedback(w io.Writer, q client.QuizQuestion, correct bool) {
	if correct {
		fmt.Fprintf(w, "\n  %s Correct!\n", cliui.SuccessMark)
	} else {
		fmt.Fprintf(w, "\n  %s Incorrect. The answer is %s\n", cliui.FailMark, cliui.NameStyle.Render(correctOption(q)))
	}
	if q.Explanation != "" {
		fmt.Fprintf(w, "  %s\n", cliui.PreviewStyle.Render(q.Explanation))
	}
}

func printResult(w io.Writer, r *study.QuizRound) {
	fmt.Fprintf(w, "\n  🏆 %s\n", cliui.HeaderStyle.Render("Quiz Complete!"))
	fmt.Fprintf(w, "  You scored %s out of %s\n",
		cliui.NameStyle.Render(strconv.Itoa(r.Score())),
		cliui.NameStyle.Render(strconv.Itoa(r.Len())),
	)
	fmt.Fprintf(w, "  %s\n\n", cliui.DimStyle.Render(r.Verdict()))
}

func correctOption(q client.QuizQuestion) string {
	if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
		return "unknown"
	}
	return q.Options[q.CorrectAnswer]
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
