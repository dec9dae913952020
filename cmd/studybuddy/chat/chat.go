// Package chatcmder provides the chat command for asking the tutor about a
// document.
package chatcmder

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/studybuddy/cmd/studybuddy/cmdenv"
	"github.com/papercomputeco/studybuddy/pkg/config"
)

const chatLongDesc string = `Chat with the tutor about one of your documents.

Answers stream in as they are written and cite the pages they draw on.
Without --document the tutor answers as a general assistant.

The last conversation is remembered in .studybuddy/active.json and resumed
the next time you run "studybuddy chat", unless --new, --document or
--session points somewhere else.

In a terminal the chat opens full screen. Use --plain, or pipe input, for a
line based prompt. Commands:
  /new               Start a new chat
  /history           List earlier chats about this document
  /load <id>         Continue an earlier chat
  /persona [key]     Show or change the tutor persona
  /web [on|off]      Toggle web search
  /exit              Quit

Examples:
  studybuddy chat --document 3f2a...
  studybuddy chat --persona socratic --web-search
  echo "Summarize chapter 2" | studybuddy chat --plain`

const chatShortDesc string = "Chat with the tutor"

type chatCommander struct {
	apiURL     string
	persona    string
	webSearch  bool
	documentID string
	sessionID  string
	fresh      bool
	plain      bool
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.StudyFlags, config.FlagAPIURL, &cmder.apiURL)
	config.AddStringFlag(cmd, config.StudyFlags, config.FlagPersona, &cmder.persona)
	config.AddBoolFlag(cmd, config.StudyFlags, config.FlagWebSearch, &cmder.webSearch)
	cmd.Flags().StringVarP(&cmder.documentID, "document", "D", "", "Document to study")
	cmd.Flags().StringVar(&cmder.sessionID, "session", "", "Continue an earlier chat session")
	cmd.Flags().BoolVar(&cmder.fresh, "new", false, "Start a new chat instead of resuming the last one")
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Use the line based prompt even in a terminal")

	cmd.MarkFlagsMutuallyExclusive("new", "session")

	return cmd
}

func (c *chatCommander) run(cmd *cobra.Command) error {
	env, err := cmdenv.Load(cmd, config.FlagAPIURL, config.FlagPersona, config.FlagWebSearch)
	if err != nil {
		return err
	}
	if err := env.RequireAuth(); err != nil {
		return err
	}

	ctx := cmd.Context()

	rec, _, closeRec, err := env.Recorder(ctx)
	if err != nil {
		return err
	}
	defer closeRec()

	s, err := openSession(ctx, env, rec, sessionRequest{
		documentID:     c.documentID,
		sessionID:      c.sessionID,
		fresh:          c.fresh,
		personaChanged: cmd.Flags().Changed(config.FlagPersona),
	})
	if err != nil {
		return err
	}

	in, out := cmd.InOrStdin(), cmd.OutOrStdout()
	if !c.plain && isTerminal(in) && isTerminal(out) {
		s.markdown = true
		return runChatTUI(ctx, s)
	}

	s.markdown = !c.plain && isTerminal(out)
	return runREPL(ctx, s, in, out)
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

