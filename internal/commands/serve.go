package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/smart-inbox/internal/app"
	"github.com/nhle/smart-inbox/internal/server"
	appsync "github.com/nhle/smart-inbox/internal/sync"
	"github.com/nhle/smart-inbox/internal/ui/report"
)

func ServeCmd(e *env) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := e.app(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = e.cfg.Server.Addr
			}
			srv := server.New(server.Deps{
				Batch:       a.Runner,
				Session:     a.Session,
				Finder:      a.Resolver,
				Normalizer:  a.Normalizer,
				ScheduleOpt: a.ScheduleOptions(),
				Log:         e.log,
			})
			return srv.Run(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func WatchCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Poll the inbox and classify new mail as it arrives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := e.app(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			err = a.Poller().Watch(ctx, func(msg appsync.InboxMsg) {
				switch {
				case msg.AuthError != "":
					fmt.Fprintln(out, msg.AuthError)
				case msg.Error != nil:
					fmt.Fprintln(out, "mail check failed:", msg.Error)
				case len(msg.Results) > 0:
					fmt.Fprintln(out, report.Classifications(msg.Results))
				}
			})
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
}

func InboxCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "inbox",
		Short: "Browse classified mail in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a, err := e.app(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			poller := a.Poller()
			defer poller.Stop()

			p := tea.NewProgram(app.New(a.Session, poller), tea.WithAltScreen(), tea.WithContext(ctx))
			_, err = p.Run()
			return err
		},
	}
}
