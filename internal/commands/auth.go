package commands

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/smart-inbox/internal/credential"
	"github.com/nhle/smart-inbox/internal/model"
	"github.com/nhle/smart-inbox/internal/source/email"
	"github.com/nhle/smart-inbox/internal/source/googleauth"
	configview "github.com/nhle/smart-inbox/internal/ui/config"
)

func AuthCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Store credentials",
	}
	cmd.AddCommand(authSetKeyCmd(e), authGoogleCmd(e), authLogoutCmd(e))
	return cmd
}

func authSetKeyCmd(e *env) *cobra.Command {
	var stdin bool

	cmd := &cobra.Command{
		Use:   "set-key",
		Short: "Store the model provider API key in the keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			if stdin {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading key: %w", err)
				}
				key = line
			} else {
				err := huh.NewInput().
					Title(fmt.Sprintf("%s API key", e.cfg.Oracle.Provider)).
					EchoMode(huh.EchoModePassword).
					Value(&key).
					Run()
				if err != nil {
					return err
				}
			}

			key = strings.TrimSpace(key)
			if key == "" {
				return fmt.Errorf("empty key")
			}
			if err := e.creds.Set(credential.OracleAPIKey, key); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API key saved.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&stdin, "stdin", false, "read the key from standard input")
	return cmd
}

func authGoogleCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "google",
		Short: "Authorize Gmail and Calendar access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			oc, err := googleauth.LoadConfig(e.cfg.Google.CredentialsFile)
			if err != nil {
				return err
			}
			return googleauth.Authorize(cmd.Context(), oc, e.creds, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func authLogoutCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove every stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, k := range []string{credential.OracleAPIKey, credential.GoogleOAuthToken, credential.IMAPPassword} {
				if err := e.creds.Delete(k); err != nil && !credential.IsNotFound(err) {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Credentials removed.")
			return nil
		},
	}
}

func SetupCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create or edit the configuration interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return configview.Run(cmd.Context(), e.cfgPath, e.cfg, e.creds, checkIMAP)
		},
	}
}

func checkIMAP(ctx context.Context, mc model.MailConfig, password string) (string, error) {
	a := email.NewAdapter(mc.IMAPHost, mc.IMAPPort, mc.SMTPHost, mc.SMTPPort, mc.Username, password, mc.TLS, nil)
	return a.ValidateConnection(ctx)
}
