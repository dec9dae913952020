package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/papercomputeco/studybuddy/pkg/cliui"
	"github.com/papercomputeco/studybuddy/pkg/client"
	"github.com/papercomputeco/studybuddy/pkg/study"
)

var (
	userLabel  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	tutorLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("tutor> ")
)

// runREPL reads questions line by line until /exit or EOF.
func runREPL(ctx context.Context, s *chatSession, in io.Reader, w io.Writer) error {
	printHeader(w, s)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Fprint(w, userLabel)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			out, quit, err := s.command(ctx, input)
			switch {
			case quit:
				fmt.Fprintln(w)
				return nil
			case err != nil:
				fmt.Fprintf(w, "  %s %v\n\n", cliui.FailMark, err)
			default:
				fmt.Fprintf(w, "%s\n\n", indent(out))
				if strings.HasPrefix(input, "/load") {
					printTranscript(w, s)
				}
			}
			continue
		}

		var turn study.Turn
		err := cliui.Step(w, "Thinking", func() error {
			var serr error
			turn, serr = s.conv.Send(ctx, input)
			return serr
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil && client.IsUnauthorized(err) {
			return fmt.Errorf("signed out: %w", err)
		}

		snap := s.conv.Snapshot()
		if n := len(snap.Messages); n > 0 {
			fmt.Fprintf(w, "%s\n\n", s.renderMessage(snap.Messages[n-1], true, 80))
		}
		if turn.Err != nil {
			fmt.Fprintf(w, "  %s %v\n\n", cliui.FailMark, turn.Err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(w)
	return nil
}

func printHeader(w io.Writer, s *chatSession) {
	snap := s.conv.Snapshot()

	fmt.Fprintln(w)
	if s.resumed {
		fmt.Fprintf(w, "  %s Resuming chat %s %s\n",
			cliui.SuccessMark,
			cliui.IDStyle.Render(snap.SessionID),
			cliui.DimStyle.Render(fmt.Sprintf("(%d messages)", len(snap.Messages))),
		)
	} else {
		fmt.Fprintf(w, "  %s New conversation\n", cliui.DimStyle.Render("●"))
	}

	fmt.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render("Studying:  "), cliui.NameStyle.Render(s.title()))
	fmt.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render("Persona:   "), cliui.ValueStyle.Render(client.PersonaName(s.conv.EffectivePersona())))
	fmt.Fprintf(w, "  %s %s\n\n", cliui.KeyStyle.Render("Web search:"), cliui.ValueStyle.Render(onOff(snap.WebSearch)))
	fmt.Fprintf(w, "  %s\n\n", cliui.DimStyle.Render("Type a question and press Enter. /help for commands, /exit or Ctrl+D to quit."))

	if s.resumed {
		printTranscript(w, s)
	}
}

func printTranscript(w io.Writer, s *chatSession) {
	snap := s.conv.Snapshot()
	if len(snap.Messages) == 0 {
		return
	}
	fmt.Fprintf(w, "%s\n\n", s.renderTranscript(snap, 80))
}

func indent(text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}
