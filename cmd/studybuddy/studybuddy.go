// Package studybuddycmder
package studybuddycmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/studybuddy/cmd/studybuddy/auth"
	chatcmder "github.com/papercomputeco/studybuddy/cmd/studybuddy/chat"
	configcmder "github.com/papercomputeco/studybuddy/cmd/studybuddy/config"
	docscmder "github.com/papercomputeco/studybuddy/cmd/studybuddy/docs"
	graphcmder "github.com/papercomputeco/studybuddy/cmd/studybuddy/graph"
	healthcmder "github.com/papercomputeco/studybuddy/cmd/studybuddy/health"
	historycmder "github.com/papercomputeco/studybuddy/cmd/studybuddy/history"
	initcmder "github.com/papercomputeco/studybuddy/cmd/studybuddy/init"
	mcpcmder "github.com/papercomputeco/studybuddy/cmd/studybuddy/mcp"
	quizcmder "github.com/papercomputeco/studybuddy/cmd/studybuddy/quiz"
	servecmder "github.com/papercomputeco/studybuddy/cmd/studybuddy/serve"
	sessionscmder "github.com/papercomputeco/studybuddy/cmd/studybuddy/sessions"
	statuscmder "github.com/papercomputeco/studybuddy/cmd/studybuddy/status"
	themecmder "github.com/papercomputeco/studybuddy/cmd/studybuddy/theme"
	versioncmder "github.com/papercomputeco/studybuddy/cmd/studybuddy/version"
)

const studybuddyLongDesc string = `Study Buddy is a terminal client for the Study Buddy tutor.

Upload PDFs, chat with a tutor about them, take quizzes and explore the
concepts a document covers.

Get started:
  studybuddy login                 Sign in with Google
  studybuddy docs upload notes.pdf Upload a document
  studybuddy chat -D <document>    Ask the tutor about it
  studybuddy quiz -D <document>    Test yourself`

const studybuddyShortDesc string = "Study Buddy - AI study companion"

func NewStudyBuddyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "studybuddy",
		Short:         studybuddyShortDesc,
		Long:          studybuddyLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to the .studybuddy/ config directory")

	// Add subcommands
	cmd.AddCommand(authcmder.NewLoginCmd())
	cmd.AddCommand(authcmder.NewLogoutCmd())
	cmd.AddCommand(authcmder.NewWhoamiCmd())
	cmd.AddCommand(themecmder.NewThemeCmd())
	cmd.AddCommand(docscmder.NewDocsCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(sessionscmder.NewSessionsCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(quizcmder.NewQuizCmd())
	cmd.AddCommand(graphcmder.NewGraphCmd())
	cmd.AddCommand(healthcmder.NewHealthCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(mcpcmder.NewMCPCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
