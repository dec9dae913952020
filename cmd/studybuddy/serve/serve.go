// Package servecmder provides the serve command for running the local
// companion server.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/studybuddy/api"
	"github.com/papercomputeco/studybuddy/api/mcp"
	"github.com/papercomputeco/studybuddy/cmd/studybuddy/cmdenv"
	"github.com/papercomputeco/studybuddy/pkg/cliui"
	"github.com/papercomputeco/studybuddy/pkg/config"
	"github.com/papercomputeco/studybuddy/pkg/logger"
)

const logFileName = "serve.log"

const serveLongDesc string = `Run the Study Buddy companion server.

The server listens on a local address and offers:
  /login              Google sign-in in the browser
  /mcp                MCP tools for agents: list_documents, ask_document,
                      generate_quiz, knowledge_map and search_transcripts
  /v1/transcripts     Read access to the local transcript archive
  /v1/search          Search over archived turns

Exchanges made through MCP are archived and published like CLI chats. Logs
go to stderr and, as JSON, to serve.log in the .studybuddy/ directory.

Examples:
  studybuddy serve
  studybuddy serve --listen 127.0.0.1:9000 --sqlite transcripts.db`

const serveShortDesc string = "Run the local companion server"

type serveCommander struct {
	listen         string
	apiURL         string
	sqlitePath     string
	postgresDSN    string
	kafkaBrokers   string
	kafkaTopic     string
	googleClientID string
	logFile        string
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.StudyFlags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.StudyFlags, config.FlagAPIURL, &cmder.apiURL)
	config.AddStringFlag(cmd, config.StudyFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.StudyFlags, config.FlagPostgresDSN, &cmder.postgresDSN)
	config.AddStringFlag(cmd, config.StudyFlags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddStringFlag(cmd, config.StudyFlags, config.FlagKafkaTopic, &cmder.kafkaTopic)
	config.AddStringFlag(cmd, config.StudyFlags, config.FlagGoogleClient, &cmder.googleClientID)
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "JSON log file (default: serve.log in the .studybuddy/ directory)")

	return cmd
}

func (c *serveCommander) run(cmd *cobra.Command) error {
	env, err := cmdenv.Load(cmd,
		config.FlagListen,
		config.FlagAPIURL,
		config.FlagSQLite,
		config.FlagPostgresDSN,
		config.FlagKafkaBrokers,
		config.FlagKafkaTopic,
		config.FlagGoogleClient,
	)
	if err != nil {
		return err
	}

	logPath := c.logFile
	if logPath == "" {
		logPath = filepath.Join(env.Dir, logFileName)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()

	log := logger.Multi(
		env.Logger,
		logger.New(logger.WithDebug(env.Debug), logger.WithJSON(true), logger.WithPrefix("serve"), logger.WithWriter(logFile)),
	)
	env.Logger = log

	if err := env.RequireAuth(); err != nil {
		log.Warn("not signed in, MCP tools will fail until you sign in at /login")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec, archive, closeRec, err := env.Recorder(ctx)
	if err != nil {
		return err
	}
	defer closeRec()

	mcpServer, err := mcp.NewServer(mcp.Config{
		Backend:     env.Client,
		Transcripts: archive,
		OnTurn:      rec.RecordTurn,
		Logger:      log,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	server, err := api.NewServer(api.Config{
		ListenAddr:     env.Config.Serve.Listen,
		GoogleClientID: env.Config.Auth.GoogleClientID,
		Transcripts:    archive,
		MCPHandler:     mcpServer.Handler(),
	}, env.Auth, env.Client, log)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Run()
	}()
	go logSignIns(ctx, server, log)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n  %s Serving on %s\n", cliui.SuccessMark, cliui.NameStyle.Render("http://"+env.Config.Serve.Listen))
	fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render("Logging to "+logPath+". Ctrl+C to stop."))

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("API server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("shutting down")
		if err := server.Shutdown(); err != nil {
			return fmt.Errorf("stopping API server: %w", err)
		}
		if err := <-errChan; err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("API server stopped with error", "error", err)
		}
		return nil
	}
}

func logSignIns(ctx context.Context, server *api.Server, log *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case user := <-server.LoggedIn():
			log.Info("signed in through the browser", "email", user.Email)
		}
	}
}
