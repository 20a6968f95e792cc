// Package cli implements the helpdesk command-line client.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/pkg/helpdesk"
)

const defaultURL = "http://127.0.0.1:8080"

type app struct {
	baseURL     string
	sessionPath string
	verbose     bool

	client *helpdesk.Client
	logger *zap.Logger
	out    io.Writer
}

// NewRootCommand builds the helpdesk command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "helpdesk",
		Short:         "Command-line client for the helpdesk API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.baseURL, "url", envOr("HELPDESK_URL", defaultURL), "helpdesk server URL (HELPDESK_URL)")
	flags.StringVar(&a.sessionPath, "session", envOr("HELPDESK_SESSION", defaultSessionPath()), "session file (HELPDESK_SESSION)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log every request")

	root.AddCommand(
		a.loginCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.registerCmd(),
		a.ticketsCmd(),
		a.askCmd(),
		a.faqCmd(),
		a.adminCmd(),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "error:", describe(err))
		return 1
	}
	return 0
}

func (a *app) init(cmd *cobra.Command) error {
	a.out = cmd.OutOrStdout()
	a.logger = zap.NewNop()
	if a.verbose {
		logger, err := observability.NewLogger(config.LoggerConfig{Level: "debug", Encoding: "console"})
		if err != nil {
			return err
		}
		a.logger = logger
	}
	client, err := helpdesk.New(a.baseURL,
		helpdesk.WithSessionStore(helpdesk.NewFileStore(a.sessionPath)),
		helpdesk.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}
	a.client = client
	return nil
}

// describe renders an error as the single line shown to the user.
func describe(err error) string {
	var verr *helpdesk.ValidationError
	switch {
	case errors.Is(err, helpdesk.ErrNoSession):
		return "not logged in; run `helpdesk login` first"
	case errors.Is(err, helpdesk.ErrWrongRole):
		return "this command is not available for your role"
	case errors.Is(err, helpdesk.ErrTicketLocked):
		return "ticket is completed and can no longer be changed"
	case errors.As(err, &verr):
		return "invalid " + verr.Error()
	case errors.Is(err, helpdesk.ErrUnauthorized):
		return "session expired or credentials rejected; log in again"
	case errors.Is(err, helpdesk.ErrTransport):
		return "cannot reach the helpdesk server: " + err.Error()
	}
	return err.Error()
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &helpdesk.ValidationError{Field: "id", Reason: fmt.Sprintf("%q is not a ticket id", raw)}
	}
	return id, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "helpdesk", "session.yaml")
}
