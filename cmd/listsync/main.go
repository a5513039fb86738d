// Command listsync keeps a live, headless copy of the shared shopping list
// and performs list actions from the command line.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rickgao/listsync/internal/auth"
	"github.com/rickgao/listsync/internal/config"
	"github.com/rickgao/listsync/internal/session"
	"github.com/rickgao/listsync/internal/state"
	"github.com/rickgao/listsync/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries what every subcommand shares.
type app struct {
	configPath string
	baseURL    string
	yes        bool

	cfg    *config.ClientConfig
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:          "listsync",
		Short:        "Realtime sync client for the shared shopping list",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Sign in once; the session is kept in auth.session_file
  listsync login

  # Follow the list live until interrupted
  listsync watch

  # One-shot actions
  listsync item uncertain 7
  listsync item move 7 2
  listsync sections delete 3 5 8 --yes
`),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", envOr("LISTSYNC_CONFIG", ""), "Path to YAML config file")
	cmd.PersistentFlags().StringVar(&a.baseURL, "server", envOr("LISTSYNC_SERVER", ""), "Server base URL (overrides server.base_url)")
	cmd.PersistentFlags().BoolVarP(&a.yes, "yes", "y", false, "Skip confirmation prompts")

	cmd.AddCommand(newWatchCmd(a))
	cmd.AddCommand(newLoginCmd(a))
	cmd.AddCommand(newLogoutCmd(a))
	cmd.AddCommand(newItemCmd(a))
	cmd.AddCommand(newSectionsCmd(a))
	cmd.AddCommand(newPrefsCmd(a))
	cmd.AddCommand(newStatsCmd(a))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// load reads and validates config and sets up logging.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.LoadWithDefaults(a.configPath)
	if err != nil {
		return err
	}
	if a.baseURL != "" {
		cfg.Server.BaseURL = a.baseURL
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	logger, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	a.cfg = cfg
	a.logger = logger
	return nil
}

// newLogger builds the slog handler selected by the log config.
func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// openSession builds a session and resumes the saved login, if any.
func (a *app) openSession(cmd *cobra.Command, opts ...session.Option) (*session.Session, error) {
	opts = append(opts, session.WithConfirmer(a.confirmer(cmd)))

	s, err := session.New(a.cfg, a.logger, opts...)
	if err != nil {
		return nil, err
	}

	found, err := auth.Resume(s.Client, a.cfg.Auth.SessionFile)
	if err != nil {
		return nil, err
	}
	if !found {
		a.logger.Debug("no saved session", "session_file", a.cfg.Auth.SessionFile)
	}
	return s, nil
}

// confirmer asks on the command's stdin unless --yes was given.
func (a *app) confirmer(cmd *cobra.Command) state.Confirmer {
	if a.yes {
		return state.AlwaysConfirm
	}

	in := bufio.NewReader(cmd.InOrStdin())
	return state.ConfirmFunc(func(prompt string) bool {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N] ", prompt)
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		}
		return false
	})
}

// explain turns a session-ended failure into a hint to log in again.
func explain(s *session.Session, err error) error {
	if err == nil {
		return nil
	}
	err = s.CheckLogin(err)
	if errors.Is(err, session.ErrLoginRequired) {
		return fmt.Errorf("%w: run `listsync login`", session.ErrLoginRequired)
	}
	return err
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "listsync", version.String())
			return nil
		},
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// runCtx returns the command's context, or Background when run outside
// ExecuteContext.
func runCtx(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
