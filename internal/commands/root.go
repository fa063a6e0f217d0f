// Package commands implements the smart-inbox command line.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/smart-inbox/internal/app"
	"github.com/nhle/smart-inbox/internal/credential"
	"github.com/nhle/smart-inbox/internal/logging"
	"github.com/nhle/smart-inbox/internal/model"
)

// env is shared by all subcommands and filled before any of them runs.
type env struct {
	cfgPath    string
	logLevel   string
	noProgress bool
	jsonOut    bool

	cfg   *model.AppConfig
	log   *zap.Logger
	creds credential.Store

	// build assembles the application; tests replace it.
	build func(ctx context.Context, cfg *model.AppConfig, d app.Deps) (*app.App, error)
}

// Root returns the smart-inbox command tree.
func Root() *cobra.Command {
	return newRoot(&env{build: app.Build})
}

func newRoot(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "smart-inbox",
		Short:         "Classify your inbox and book the meetings it asks for",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.log != nil {
				_ = e.log.Sync()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&e.cfgPath, "config", model.DefaultConfigPath(), "path to config file")
	flags.StringVar(&e.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	flags.BoolVar(&e.noProgress, "no-progress", false, "do not draw progress bars")
	flags.BoolVar(&e.jsonOut, "json", false, "print results as JSON")

	cmd.AddCommand(
		TriageCmd(e),
		ClassifyCmd(e),
		ScheduleCmd(e),
		ReplyCmd(e),
		PendingCmd(e),
		HistoryCmd(e),
		SlotCmd(e),
		ServeCmd(e),
		WatchCmd(e),
		InboxCmd(e),
		AuthCmd(e),
		SetupCmd(e),
	)
	return cmd
}

func (e *env) load(cmd *cobra.Command) error {
	cfg, err := model.LoadConfig(e.cfgPath)
	if err != nil {
		// setup is how a broken config gets fixed.
		if cmd.Name() != "setup" {
			return err
		}
		cfg = model.DefaultAppConfig()
	}
	if e.logLevel != "" {
		cfg.Log.Level = e.logLevel
	}
	if e.log == nil {
		log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return err
		}
		e.log = log
	}
	if e.creds == nil {
		e.creds = credential.NewKeyring()
	}
	e.cfg = cfg
	return nil
}

func (e *env) app(ctx context.Context) (*app.App, error) {
	return e.build(ctx, e.cfg, app.Deps{Log: e.log, Creds: e.creds})
}

// progressOut is where progress bars are drawn, or nil to disable them.
func (e *env) progressOut(cmd *cobra.Command) io.Writer {
	if e.noProgress || e.jsonOut {
		return nil
	}
	return cmd.ErrOrStderr()
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
