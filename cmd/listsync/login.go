package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rickgao/listsync/internal/api"
	"github.com/rickgao/listsync/internal/auth"
)

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in and save the session",
		Long: `Exchanges the app password for a session cookie and saves it to
auth.session_file. The password comes from auth.password when set,
otherwise it is read from the terminal without echo.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(a.cfg.Server.BaseURL,
				api.WithTimeout(a.cfg.Server.Timeout),
				api.WithLogger(a.logger),
				api.WithLoginPath(a.cfg.Server.LoginPath),
			)

			prompt := func() (string, error) {
				return readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
			}
			if err := auth.Login(runCtx(cmd), client, a.cfg.Auth.Password, prompt, a.cfg.Auth.SessionFile); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "logged in, session saved to %s\n", a.cfg.Auth.SessionFile)
			return nil
		},
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd)
			if err != nil {
				return err
			}
			if err := auth.Logout(runCtx(cmd), s.Client, a.cfg.Auth.SessionFile); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

// readPassword reads without echo from a terminal, or a single line from
// any other input.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	fmt.Fprint(prompt, "Password: ")

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
