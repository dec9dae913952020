// Package mcpcmder provides the mcp command for serving the study tools to an
// agent over stdio.
package mcpcmder

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/studybuddy/api/mcp"
	"github.com/papercomputeco/studybuddy/cmd/studybuddy/cmdenv"
	"github.com/papercomputeco/studybuddy/pkg/config"
)

const mcpLongDesc string = `Serve the Study Buddy MCP tools over stdin and stdout.

Point an MCP capable agent at this command to let it list your documents,
ask the tutor about them, generate quizzes, read knowledge maps and search
your archived chats. Logs are written to stderr.

Example agent configuration:
  {"command": "studybuddy", "args": ["mcp"]}`

const mcpShortDesc string = "Serve study tools to an agent over stdio"

type mcpCommander struct {
	apiURL       string
	sqlitePath   string
	postgresDSN  string
	kafkaBrokers string
	kafkaTopic   string
}

func NewMCPCmd() *cobra.Command {
	cmder := &mcpCommander{}

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: mcpShortDesc,
		Long:  mcpLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.StudyFlags, config.FlagAPIURL, &cmder.apiURL)
	config.AddStringFlag(cmd, config.StudyFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.StudyFlags, config.FlagPostgresDSN, &cmder.postgresDSN)
	config.AddStringFlag(cmd, config.StudyFlags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddStringFlag(cmd, config.StudyFlags, config.FlagKafkaTopic, &cmder.kafkaTopic)

	return cmd
}

func (c *mcpCommander) run(cmd *cobra.Command) error {
	env, err := cmdenv.Load(cmd,
		config.FlagAPIURL,
		config.FlagSQLite,
		config.FlagPostgresDSN,
		config.FlagKafkaBrokers,
		config.FlagKafkaTopic,
	)
	if err != nil {
		return err
	}
	if err := env.RequireAuth(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec, archive, closeRec, err := env.Recorder(ctx)
	if err != nil {
		return err
	}
	defer closeRec()

	server, err := mcp.NewServer(mcp.Config{
		Backend:     env.Client,
		Transcripts: archive,
		OnTurn:      rec.RecordTurn,
		Logger:      env.Logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	env.Logger.Info("serving MCP over stdio", "backend", env.Client.BaseURL())
	if err := server.RunStdio(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("MCP server: %w", err)
	}
	return nil
}
