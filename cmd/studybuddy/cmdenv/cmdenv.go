// Package cmdenv resolves the configuration, logger, auth state and backend
// client shared by the studybuddy commands.
package cmdenv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/studybuddy/pkg/authstore"
	"github.com/papercomputeco/studybuddy/pkg/client"
	"github.com/papercomputeco/studybuddy/pkg/config"
	"github.com/papercomputeco/studybuddy/pkg/dotdir"
	"github.com/papercomputeco/studybuddy/pkg/eventstream"
	eventfactory "github.com/papercomputeco/studybuddy/pkg/eventstream/factory"
	"github.com/papercomputeco/studybuddy/pkg/logger"
	"github.com/papercomputeco/studybuddy/pkg/study"
	"github.com/papercomputeco/studybuddy/pkg/transcript"
	transcriptfactory "github.com/papercomputeco/studybuddy/pkg/transcript/factory"
	"github.com/papercomputeco/studybuddy/pkg/utils"
)

// ErrNotSignedIn is returned by RequireAuth when no token is stored.
var ErrNotSignedIn = errors.New("not signed in: run 'studybuddy login' first")

// Env is everything a command needs to talk to the backend.
type Env struct {
	ConfigDir string
	Dir       string
	Debug     bool

	Viper  *viper.Viper
	Config *config.Config
	Logger *slog.Logger
	Auth   *authstore.Manager
	Client *client.Client
}

// Load resolves the environment for cmd. flagKeys names the config.StudyFlags
// entries cmd registered, so that set flags override env and file values.
func Load(cmd *cobra.Command, flagKeys ...string) (*Env, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	debug, _ := cmd.Flags().GetBool("debug")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.StudyFlags, flagKeys)
	cfg := config.FromViper(v)

	dir, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return nil, err
	}

	log := logger.New(
		logger.WithDebug(debug),
		logger.WithPretty(true),
		logger.WithWriter(cmd.ErrOrStderr()),
	)

	auth, err := authstore.NewManager(configDir)
	if err != nil {
		return nil, err
	}
	if _, err := auth.Load(); err != nil {
		return nil, fmt.Errorf("loading sign-in state: %w", err)
	}

	c, err := client.New(client.Config{
		BaseURL: cfg.Client.APIURL,
		Token:   auth.Token,
		OnUnauthorized: func() {
			log.Warn("backend rejected the stored token, signing out")
			if err := auth.Logout(); err != nil {
				log.Error("failed to clear sign-in state", "error", err)
			}
		},
		Timeout:        time.Duration(cfg.Client.TimeoutSeconds) * time.Second,
		MaxUploadBytes: int64(cfg.Upload.MaxMB) << 20,
		Logger:         log,
	})
	if err != nil {
		return nil, fmt.Errorf("creating backend client: %w", err)
	}

	return &Env{
		ConfigDir: configDir,
		Dir:       dir,
		Debug:     debug,
		Viper:     v,
		Config:    cfg,
		Logger:    log,
		Auth:      auth,
		Client:    c,
	}, nil
}

// RequireAuth fails with ErrNotSignedIn when no token is stored.
func (e *Env) RequireAuth() error {
	if !e.Auth.IsAuthenticated() {
		return ErrNotSignedIn
	}
	return nil
}

// OpenArchive opens the configured transcript archive.
func (e *Env) OpenArchive(ctx context.Context) (transcript.Driver, error) {
	return transcriptfactory.New(ctx, e.Config.Storage, e.Dir, e.Logger)
}

// Source identifies this CLI and the signed-in user in published events.
func (e *Env) Source() eventstream.EventSource {
	src := eventstream.EventSource{Client: "studybuddy-cli", Version: utils.Version}
	if s := e.Auth.Current(); s.User != nil {
		src.User = s.User.Email
	}
	return src
}

// Recorder opens the archive and event publisher and returns a Recorder over
// them. The returned close func releases both.
func (e *Env) Recorder(ctx context.Context) (*study.Recorder, transcript.Driver, func(), error) {
	archive, err := e.OpenArchive(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	publisher, err := eventfactory.New(e.Config.Events, e.Logger)
	if err != nil {
		archive.Close()
		return nil, nil, nil, fmt.Errorf("creating event publisher: %w", err)
	}

	closeFn := func() {
		if err := publisher.Close(); err != nil {
			e.Logger.Warn("failed to close event publisher", "error", err)
		}
		if err := archive.Close(); err != nil {
			e.Logger.Warn("failed to close transcript archive", "error", err)
		}
	}

	return study.NewRecorder(archive, publisher, e.Source(), e.Logger), archive, closeFn, nil
}
