package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/99designs/keyring"
)

const serviceName = "smart-inbox"

// Well-known credential keys.
const (
	OracleAPIKey     = "oracle-api-key"
	GoogleOAuthToken = "google-oauth-token"
	IMAPPassword     = "imap-password"
)

// ErrNotFound is returned when no credential is stored under a key.
var ErrNotFound = keyring.ErrKeyNotFound

// Store reads and writes secrets.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Keyring is a Store backed by the system keyring, falling back to an
// encrypted file under the config directory.
type Keyring struct {
	open func() (keyring.Keyring, error)
}

// NewKeyring returns the default system keyring store.
func NewKeyring() *Keyring {
	return &Keyring{open: openKeyring}
}

// NewKeyringWith wraps an already opened keyring.
func NewKeyringWith(ring keyring.Keyring) *Keyring {
	return &Keyring{open: func() (keyring.Keyring, error) { return ring, nil }}
}

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/smart-inbox/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("smart-inbox-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a credential value by key.
func (k *Keyring) Get(key string) (string, error) {
	ring, err := k.open()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key.
func (k *Keyring) Set(key string, value string) error {
	ring, err := k.open()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: "smart-inbox " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key.
func (k *Keyring) Delete(key string) error {
	ring, err := k.open()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}

// Lookup returns the environment variable envName when set and otherwise
// the stored credential for key.
func Lookup(s Store, envName, key string) (string, error) {
	if envName != "" {
		if v := os.Getenv(envName); v != "" {
			return v, nil
		}
	}
	if s == nil {
		return "", fmt.Errorf("credential %q: %w", key, ErrNotFound)
	}
	v, err := s.Get(key)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", fmt.Errorf("credential %q: %w", key, ErrNotFound)
	}
	return v, nil
}

// IsNotFound reports whether err means the credential is missing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// FileDir is where the file backend keeps its encrypted items.
func FileDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "smart-inbox", "credentials")
	}
	return filepath.Join(home, ".config", "smart-inbox", "credentials")
}
