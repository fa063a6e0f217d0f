// Package googleauth builds OAuth2 HTTP clients for the Gmail and Calendar
// APIs. The token is kept in the credential store rather than on disk.
package googleauth

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/gmail/v1"

	"github.com/nhle/smart-inbox/internal/credential"
	"github.com/nhle/smart-inbox/internal/source"
)

// Scopes covers reading and sending mail and managing calendar events.
var Scopes = []string{
	gmail.GmailModifyScope,
	calendar.CalendarEventsScope,
}

// LoadConfig reads the OAuth client definition downloaded from the Google
// Cloud console.
func LoadConfig(credentialsFile string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading client secret file: %w", err)
	}
	cfg, err := google.ConfigFromJSON(b, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parsing client secret file: %w", err)
	}
	return cfg, nil
}

// Client returns an HTTP client authorized with the stored token. It
// returns a *source.AuthError when no token has been stored yet.
func Client(ctx context.Context, cfg *oauth2.Config, store credential.Store) (*http.Client, error) {
	tok, err := LoadToken(store)
	if err != nil {
		return nil, err
	}
	ts := &savingSource{
		base:  cfg.TokenSource(ctx, tok),
		store: store,
		last:  tok.AccessToken,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, ts)), nil
}

// LoadToken reads the stored OAuth token.
func LoadToken(store credential.Store) (*oauth2.Token, error) {
	raw, err := store.Get(credential.GoogleOAuthToken)
	if err != nil {
		if credential.IsNotFound(err) {
			return nil, &source.AuthError{
				Provider: source.ProviderGmail,
				Message:  "no Google token stored; run `smart-inbox auth google`",
			}
		}
		return nil, err
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal([]byte(raw), tok); err != nil {
		return nil, fmt.Errorf("decoding stored token: %w", err)
	}
	return tok, nil
}

// SaveToken stores tok.
func SaveToken(store credential.Store, tok *oauth2.Token) error {
	b, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	return store.Set(credential.GoogleOAuthToken, string(b))
}

// Authorize runs the out-of-band consent flow: it prints the consent URL to
// out, reads the authorization code from in and stores the exchanged token.
func Authorize(ctx context.Context, cfg *oauth2.Config, store credential.Store, in io.Reader, out io.Writer) error {
	url := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Fprintf(out, "Open the following link in your browser, then paste the authorization code:\n%s\n> ", url)

	code, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("reading authorization code: %w", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("empty authorization code")
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchanging authorization code: %w", err)
	}
	return SaveToken(store, tok)
}

// savingSource persists refreshed tokens.
type savingSource struct {
	base  oauth2.TokenSource
	store credential.Store
	last  string
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, &source.AuthError{Provider: source.ProviderGmail, Message: err.Error()}
	}
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		_ = SaveToken(s.store, tok)
	}
	return tok, nil
}
