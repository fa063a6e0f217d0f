// Package app assembles the inbox assistant from configuration and hosts
// its terminal UI.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/nhle/smart-inbox/internal/ai"
	"github.com/nhle/smart-inbox/internal/civiltime"
	"github.com/nhle/smart-inbox/internal/credential"
	"github.com/nhle/smart-inbox/internal/extract"
	"github.com/nhle/smart-inbox/internal/model"
	"github.com/nhle/smart-inbox/internal/scheduler"
	"github.com/nhle/smart-inbox/internal/slot"
	"github.com/nhle/smart-inbox/internal/source"
	"github.com/nhle/smart-inbox/internal/source/email"
	"github.com/nhle/smart-inbox/internal/source/gcal"
	"github.com/nhle/smart-inbox/internal/source/gmail"
	"github.com/nhle/smart-inbox/internal/source/googleauth"
	"github.com/nhle/smart-inbox/internal/store"
	appsync "github.com/nhle/smart-inbox/internal/sync"
	"github.com/nhle/smart-inbox/internal/triage"
)

// Environment variables consulted before the keyring.
const (
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
	EnvGeminiKey    = "GEMINI_API_KEY"
	EnvIMAPPassword = "SMART_INBOX_IMAP_PASSWORD"
)

// Deps overrides parts of the assembly. Zero fields are built from config.
type Deps struct {
	Log      *zap.Logger
	Creds    credential.Store
	Oracle   ai.Oracle
	Mail     source.Mail
	Calendar source.Calendar
	Store    *store.SQLiteStore
	Now      func() time.Time
}

// App is the assembled object graph.
type App struct {
	Config     *model.AppConfig
	Log        *zap.Logger
	Store      *store.SQLiteStore
	Mail       source.Mail
	Calendar   source.Calendar
	Normalizer *civiltime.Normalizer
	Resolver   *slot.Resolver
	Scheduler  *scheduler.Scheduler
	Classifier *extract.Classifier
	Runner     *triage.Runner
	Session    *triage.Session
}

// Build wires every component from cfg.
func Build(ctx context.Context, cfg *model.AppConfig, d Deps) (*App, error) {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Creds == nil {
		d.Creds = credential.NewKeyring()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	log := d.Log

	a := &App{Config: cfg, Log: log}

	var err error
	if a.Store = d.Store; a.Store == nil {
		if a.Store, err = openStore(cfg.Store.Path); err != nil {
			return nil, err
		}
	}

	oracle := d.Oracle
	if oracle == nil {
		if oracle, err = buildOracle(ctx, cfg.Oracle, d.Creds); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.Mail, a.Calendar = d.Mail, d.Calendar
	if err := a.buildTransports(ctx, d.Creds); err != nil {
		a.Close()
		return nil, err
	}

	loc := civiltime.LoadZone(cfg.Schedule.Timezone)
	a.Normalizer = civiltime.NewIn(loc, log)
	a.Resolver = slot.NewResolver(a.Calendar, a.Normalizer, log,
		slot.WithClock(d.Now),
		slot.WithSearch(time.Duration(cfg.Schedule.StepMin)*time.Minute, cfg.Schedule.MaxProbes),
		slot.WithDefaultDuration(time.Duration(cfg.Schedule.DefaultDurationMin)*time.Minute),
	)
	a.Scheduler = scheduler.New(a.Calendar, a.Resolver, a.Normalizer, log)
	a.Classifier = extract.NewClassifier(oracle, log)

	a.Runner = triage.NewRunner(a.Classifier, a.Scheduler, log,
		triage.WithMail(a.Mail),
		triage.WithJournal(a.Store),
	)
	a.Session = triage.NewSession(triage.SessionDeps{
		Classifier: a.Classifier,
		Booker:     a.Scheduler,
		Finder:     a.Resolver,
		Mail:       a.Mail,
		Pending:    a.Store,
		Journal:    a.Store,
		Normalizer: a.Normalizer,
		Log:        log,
		Now:        d.Now,
	})

	log.Info("assembled",
		zap.String("oracle", cfg.Oracle.Provider),
		zap.String("mail", cfg.Mail.Provider),
		zap.String("timezone", loc.String()),
	)
	return a, nil
}

// ScheduleOptions returns the batch scheduling policy from config.
func (a *App) ScheduleOptions() triage.ScheduleOptions {
	return triage.ScheduleOptions{
		CheckConflicts: a.Config.Schedule.CheckConflicts,
		AutoResolve:    a.Config.Schedule.AutoResolve,
		SendReplies:    true,
	}
}

// Poller returns an inbox watcher over the assembled components.
func (a *App) Poller() *appsync.Poller {
	interval := time.Duration(a.Config.Mail.PollIntervalSec) * time.Second
	return appsync.New(a.Mail, a.Runner, a.Store, a.Config.Mail.FetchMax, interval, a.Log)
}

// Close releases the store.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

func openStore(path string) (*store.SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating state directory: %w", err)
		}
	}
	s, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("opening state %s: %w", path, err)
	}
	return s, nil
}

func buildOracle(ctx context.Context, cfg model.OracleConfig, creds credential.Store) (ai.Oracle, error) {
	env := cfg.APIKeyEnv
	if env == "" {
		env = EnvAnthropicKey
		if cfg.Provider == "gemini" {
			env = EnvGeminiKey
		}
	}
	key, err := credential.Lookup(creds, env, credential.OracleAPIKey)
	if err != nil {
		if credential.IsNotFound(err) {
			return nil, fmt.Errorf("no %s API key: set %s or run `smart-inbox auth set-key`", cfg.Provider, env)
		}
		return nil, err
	}

	switch cfg.Provider {
	case "gemini":
		return ai.NewGemini(ctx, key, cfg.Model)
	default:
		opts := []ai.AnthropicOption{ai.WithTemperature(cfg.Temperature)}
		if cfg.BaseURL != "" {
			opts = append(opts, ai.WithBaseURL(cfg.BaseURL))
		}
		return ai.NewAnthropic(key, cfg.Model, cfg.MaxTokens, opts...), nil
	}
}

// buildTransports fills in whichever of Mail and Calendar were not injected.
func (a *App) buildTransports(ctx context.Context, creds credential.Store) error {
	cfg := a.Config
	needGoogle := a.Calendar == nil || (a.Mail == nil && cfg.Mail.Provider == "gmail")

	var googleOpts []option.ClientOption
	if needGoogle {
		oc, err := googleauth.LoadConfig(cfg.Google.CredentialsFile)
		if err != nil {
			return err
		}
		hc, err := googleauth.Client(ctx, oc, creds)
		if err != nil {
			return err
		}
		googleOpts = []option.ClientOption{option.WithHTTPClient(hc)}
	}

	if a.Mail == nil {
		m, err := a.buildMail(ctx, creds, googleOpts)
		if err != nil {
			return err
		}
		a.Mail = m
	}

	if a.Calendar == nil {
		c, err := gcal.New(ctx, a.Log, googleOpts,
			gcal.WithCalendarID(cfg.Google.CalendarID),
			gcal.WithLocation(civiltime.LoadZone(cfg.Schedule.Timezone)),
		)
		if err != nil {
			return err
		}
		a.Calendar = c
	}
	return nil
}

func (a *App) buildMail(ctx context.Context, creds credential.Store, googleOpts []option.ClientOption) (source.Mail, error) {
	mc := a.Config.Mail
	switch mc.Provider {
	case "imap":
		password, err := credential.Lookup(creds, EnvIMAPPassword, credential.IMAPPassword)
		if err != nil {
			return nil, &source.AuthError{Provider: source.ProviderIMAP, Message: "no mail password stored, run `smart-inbox setup`"}
		}
		return email.NewAdapter(
			mc.IMAPHost, mc.IMAPPort,
			mc.SMTPHost, mc.SMTPPort,
			mc.Username, password,
			mc.TLS, a.Log,
		), nil
	case "gmail":
		return gmail.New(ctx, a.Log, googleOpts...)
	default:
		return nil, errors.New("unknown mail provider " + mc.Provider)
	}
}
