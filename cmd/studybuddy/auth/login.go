// Package authcmder provides the login, logout and whoami commands.
package authcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/studybuddy/api"
	"github.com/papercomputeco/studybuddy/cmd/studybuddy/cmdenv"
	"github.com/papercomputeco/studybuddy/pkg/authstore"
	"github.com/papercomputeco/studybuddy/pkg/cliui"
	"github.com/papercomputeco/studybuddy/pkg/config"
)

const loginLongDesc string = `Sign in to Study Buddy with a Google account.

With --browser, a sign-in page is served on a local port. Open the printed
URL, choose a Google account and the CLI picks up the session once the
backend accepts it. This needs auth.google_client_id to be configured.

Without --browser, a Google ID token is exchanged directly. Pass it with
--token, pipe it on stdin, or paste it at the hidden prompt.

The backend session is stored in auth-storage.toml in the .studybuddy/
directory.

Examples:
  studybuddy login --browser
  studybuddy login --token "$GOOGLE_ID_TOKEN"
  echo $GOOGLE_ID_TOKEN | studybuddy login`

const loginShortDesc string = "Sign in with Google"

type loginCommander struct {
	apiURL         string
	googleClientID string
	token          string
	browser        bool
	callbackAddr   string
	wait           time.Duration
}

func NewLoginCmd() *cobra.Command {
	cmder := &loginCommander{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: loginShortDesc,
		Long:  loginLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cmdenv.Load(cmd, config.FlagAPIURL, config.FlagGoogleClient)
			if err != nil {
				return err
			}

			if cmder.browser {
				return cmder.runBrowser(cmd, env)
			}
			return cmder.runToken(cmd, env)
		},
	}

	config.AddStringFlag(cmd, config.StudyFlags, config.FlagAPIURL, &cmder.apiURL)
	config.AddStringFlag(cmd, config.StudyFlags, config.FlagGoogleClient, &cmder.googleClientID)
	cmd.Flags().StringVar(&cmder.token, "token", "", "Google ID token to exchange")
	cmd.Flags().BoolVar(&cmder.browser, "browser", false, "Sign in through a local browser page")
	cmd.Flags().StringVar(&cmder.callbackAddr, "callback-addr", "127.0.0.1:0", "Address for the local sign-in page")
	cmd.Flags().DurationVar(&cmder.wait, "wait", 5*time.Minute, "How long to wait for the browser sign-in")
	cmd.MarkFlagsMutuallyExclusive("token", "browser")

	return cmd
}

func (c *loginCommander) runToken(cmd *cobra.Command, env *cmdenv.Env) error {
	idToken := strings.TrimSpace(c.token)
	if idToken == "" {
		var err error
		idToken, err = readIDToken(cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
	}
	if idToken == "" {
		return errors.New("ID token cannot be empty")
	}

	tok, err := env.Client.LoginGoogle(cmd.Context(), idToken)
	if err != nil {
		return err
	}

	user := authstore.User{
		Email:           tok.Email,
		FullName:        tok.FullName,
		ThemePreference: tok.ThemePreference,
	}
	if err := env.Auth.SetToken(tok.AccessToken, &user); err != nil {
		return err
	}

	printSignedIn(cmd.OutOrStdout(), user)
	return nil
}

func (c *loginCommander) runBrowser(cmd *cobra.Command, env *cmdenv.Env) error {
	if env.Config.Auth.GoogleClientID == "" {
		return errors.New("browser sign-in needs a Google client id: set auth.google_client_id or pass --google-client-id")
	}

	ln, err := net.Listen("tcp", c.callbackAddr)
	if err != nil {
		return fmt.Errorf("listening for sign-in callback: %w", err)
	}

	server, err := api.NewServer(api.Config{
		ListenAddr:     ln.Addr().String(),
		GoogleClientID: env.Config.Auth.GoogleClientID,
	}, env.Auth, env.Client, env.Logger)
	if err != nil {
		ln.Close()
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Serve(ln)
	}()
	defer func() {
		if err := server.Shutdown(); err != nil {
			env.Logger.Warn("failed to stop sign-in server", "error", err)
		}
	}()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n  %s Open %s to sign in\n",
		cliui.StepStyle.Render("·"),
		cliui.NameStyle.Render("http://"+ln.Addr().String()+"/login"),
	)
	fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render("Waiting for Google sign-in. Ctrl+C to cancel."))

	ctx, cancel := context.WithTimeout(cmd.Context(), c.wait)
	defer cancel()

	select {
	case user := <-server.LoggedIn():
		printSignedIn(out, user)
		return nil
	case err := <-errChan:
		return fmt.Errorf("sign-in server stopped: %w", err)
	case <-ctx.Done():
		return fmt.Errorf("waiting for sign-in: %w", ctx.Err())
	}
}

func printSignedIn(w io.Writer, user authstore.User) {
	fmt.Fprintf(w, "\n  %s Signed in as %s %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(user.FullName),
		cliui.DimStyle.Render("("+user.Email+")"),
	)
}

// readIDToken reads a token from in. A terminal gets a hidden prompt,
// anything else is read up to the first newline.
func readIDToken(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Paste your Google ID token: ")
		tokenBytes, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt) // newline after hidden input
		if err != nil {
			return "", fmt.Errorf("reading ID token: %w", err)
		}
		return strings.TrimSpace(string(tokenBytes)), nil
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 4096), 64*1024)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return "", errors.New("no ID token received on stdin")
}
