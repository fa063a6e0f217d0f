// Package config runs the interactive setup wizard.
package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/nhle/smart-inbox/internal/credential"
	"github.com/nhle/smart-inbox/internal/model"
)

// Wizard holds the values edited by the setup form.
type Wizard struct {
	provider  string
	modelName string
	apiKey    string

	mailProvider string
	fetchMax     string
	imapHost     string
	imapPort     string
	smtpHost     string
	smtpPort     string
	username     string
	password     string
	tls          bool

	credentialsFile string
	calendarID      string
	timezone        string
	autoResolve     bool
}

// NewWizard seeds the form from cfg.
func NewWizard(cfg *model.AppConfig) *Wizard {
	return &Wizard{
		provider:        cfg.Oracle.Provider,
		modelName:       cfg.Oracle.Model,
		mailProvider:    cfg.Mail.Provider,
		fetchMax:        strconv.Itoa(cfg.Mail.FetchMax),
		imapHost:        cfg.Mail.IMAPHost,
		imapPort:        cfg.Mail.IMAPPort,
		smtpHost:        cfg.Mail.SMTPHost,
		smtpPort:        cfg.Mail.SMTPPort,
		username:        cfg.Mail.Username,
		tls:             cfg.Mail.TLS,
		credentialsFile: cfg.Google.CredentialsFile,
		calendarID:      cfg.Google.CalendarID,
		timezone:        cfg.Schedule.Timezone,
		autoResolve:     cfg.Schedule.AutoResolve,
	}
}

// Form builds the huh form. The IMAP group is hidden for Gmail.
func (w *Wizard) Form() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Model provider").
				Description("Which model classifies your email").
				Options(
					huh.NewOption("Anthropic - Claude Messages API", "anthropic"),
					huh.NewOption("Google - Gemini API", "gemini"),
				).
				Value(&w.provider),
			huh.NewInput().
				Title("Model").
				Description("Model name for the selected provider").
				Value(&w.modelName).
				Validate(validateRequired("Model")),
			huh.NewInput().
				Title("API key").
				Description("Stored in the system keyring. Leave empty to keep the current key").
				EchoMode(huh.EchoModePassword).
				Value(&w.apiKey),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Mail provider").
				Options(
					huh.NewOption("Gmail - Google API with OAuth", "gmail"),
					huh.NewOption("IMAP / SMTP mailbox", "imap"),
				).
				Value(&w.mailProvider),
			huh.NewInput().
				Title("Emails per run").
				Description("How many recent inbox messages to fetch").
				Value(&w.fetchMax).
				Validate(validatePositive),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("IMAP Host").
				Placeholder("imap.example.com").
				Value(&w.imapHost).
				Validate(validateRequired("IMAP Host")),
			huh.NewInput().
				Title("IMAP Port").
				Placeholder("993").
				Value(&w.imapPort).
				Validate(validatePort),
			huh.NewInput().
				Title("SMTP Host").
				Placeholder("smtp.example.com").
				Value(&w.smtpHost).
				Validate(validateRequired("SMTP Host")),
			huh.NewInput().
				Title("SMTP Port").
				Placeholder("465").
				Value(&w.smtpPort).
				Validate(validatePort),
			huh.NewInput().
				Title("Username").
				Placeholder("user@example.com").
				Value(&w.username).
				Validate(validateRequired("Username")),
			huh.NewInput().
				Title("Password").
				Description("Email account password or app password").
				EchoMode(huh.EchoModePassword).
				Value(&w.password),
			huh.NewConfirm().
				Title("Use TLS").
				Affirmative("Yes").
				Negative("No").
				Value(&w.tls),
		).WithHideFunc(func() bool { return w.mailProvider != "imap" }),
		huh.NewGroup(
			huh.NewInput().
				Title("Google OAuth client file").
				Description("credentials.json downloaded from the Google Cloud console").
				Value(&w.credentialsFile).
				Validate(validateRequired("Client file")),
			huh.NewInput().
				Title("Calendar").
				Description("Calendar id used for conflicts and bookings").
				Value(&w.calendarID),
			huh.NewInput().
				Title("Time zone").
				Description("Zone of the times people write in email").
				Value(&w.timezone).
				Validate(validateRequired("Time zone")),
			huh.NewConfirm().
				Title("Move busy meetings automatically in bulk runs").
				Affirmative("Yes").
				Negative("No").
				Value(&w.autoResolve),
		),
	)
}

// Apply copies the form values into cfg and stores secrets in creds.
func (w *Wizard) Apply(cfg *model.AppConfig, creds credential.Store) error {
	cfg.Oracle.Provider = w.provider
	cfg.Oracle.Model = strings.TrimSpace(w.modelName)

	cfg.Mail.Provider = w.mailProvider
	if n, err := strconv.Atoi(strings.TrimSpace(w.fetchMax)); err == nil && n > 0 {
		cfg.Mail.FetchMax = n
	}
	if w.mailProvider == "imap" {
		cfg.Mail.IMAPHost = strings.TrimSpace(w.imapHost)
		cfg.Mail.IMAPPort = strings.TrimSpace(w.imapPort)
		cfg.Mail.SMTPHost = strings.TrimSpace(w.smtpHost)
		cfg.Mail.SMTPPort = strings.TrimSpace(w.smtpPort)
		cfg.Mail.Username = strings.TrimSpace(w.username)
		cfg.Mail.TLS = w.tls
	}

	cfg.Google.CredentialsFile = strings.TrimSpace(w.credentialsFile)
	cfg.Google.CalendarID = strings.TrimSpace(w.calendarID)
	cfg.Schedule.Timezone = strings.TrimSpace(w.timezone)
	cfg.Schedule.AutoResolve = w.autoResolve

	if err := cfg.Validate(); err != nil {
		return err
	}

	if w.apiKey != "" {
		if err := creds.Set(credential.OracleAPIKey, w.apiKey); err != nil {
			return fmt.Errorf("saving API key: %w", err)
		}
	}
	if w.mailProvider == "imap" && w.password != "" {
		if err := creds.Set(credential.IMAPPassword, w.password); err != nil {
			return fmt.Errorf("saving mail password: %w", err)
		}
	}
	return nil
}

// MailCheck logs in to the mailbox described by mc and returns the account
// it reached.
type MailCheck func(ctx context.Context, mc model.MailConfig, password string) (string, error)

// Verify runs check against the IMAP settings entered in the form. It does
// nothing for Gmail, for a nil check, or when no new password was typed.
func (w *Wizard) Verify(ctx context.Context, check MailCheck) (string, error) {
	if w.mailProvider != "imap" || check == nil || w.password == "" {
		return "", nil
	}
	mc := model.MailConfig{
		Provider: w.mailProvider,
		IMAPHost: strings.TrimSpace(w.imapHost),
		IMAPPort: strings.TrimSpace(w.imapPort),
		SMTPHost: strings.TrimSpace(w.smtpHost),
		SMTPPort: strings.TrimSpace(w.smtpPort),
		Username: strings.TrimSpace(w.username),
		TLS:      w.tls,
	}
	account, err := check(ctx, mc, w.password)
	if err != nil {
		return "", fmt.Errorf("checking mail login: %w", err)
	}
	return account, nil
}

// Run shows the wizard, checks the mail login and writes the result to
// path. Nothing is saved when the login fails.
func Run(ctx context.Context, path string, cfg *model.AppConfig, creds credential.Store, check MailCheck) error {
	w := NewWizard(cfg)
	if err := w.Form().Run(); err != nil {
		return fmt.Errorf("running setup: %w", err)
	}
	account, err := w.Verify(ctx, check)
	if err != nil {
		return err
	}
	if account != "" {
		fmt.Fprintf(os.Stderr, "Signed in to the mailbox as %s\n", account)
	}
	if err := w.Apply(cfg, creds); err != nil {
		return err
	}
	if err := model.SaveConfig(path, cfg); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Configuration saved to %s\n", path)
	return nil
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validatePort(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("port is required")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return fmt.Errorf("port must be a number")
		}
	}
	return nil
}

func validatePositive(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fmt.Errorf("must be a positive number")
	}
	return nil
}
