package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rickgao/listsync/internal/session"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep a live copy of the list until interrupted",
		Long: `Loads the list, opens the realtime connection and applies every change
other clients make. SIGCONT (resuming the process) retries the connection
immediately, even after reconnect attempts ran out.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(runCtx(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			wake := make(chan os.Signal, 1)
			signal.Notify(wake, syscall.SIGCONT)
			defer signal.Stop(wake)

			s, err := a.openSession(cmd, session.WithWake(wake))
			if err != nil {
				return err
			}
			return watch(ctx, cmd, s)
		},
	}
}

// watch bootstraps s and runs it until ctx ends.
func watch(ctx context.Context, cmd *cobra.Command, s *session.Session) error {
	if err := s.Bootstrap(ctx); err != nil {
		return explain(s, err)
	}

	out := cmd.OutOrStdout()
	stats := s.View.Stats()
	fmt.Fprintf(out, "watching: %d/%d completed (%d%%)\n", stats.CompletedItems, stats.TotalItems, stats.Percentage)

	err := s.Run(ctx)

	ds := s.Dispatcher.Stats()
	ms := s.Manager.Stats()
	fmt.Fprintf(out, "stopped: %d messages, %d full reloads, %d targeted refreshes, %d reconnects\n",
		ds.Received, ds.FullReloads, ds.Targeted, ms.Disconnects)

	if errors.Is(err, session.ErrLoginRequired) {
		return explain(s, err)
	}
	return err
}
