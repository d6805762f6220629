// Package credential stores secrets such as the Anthropic API key in the
// OS keyring.
//
// Headless hosts without a desktop keyring can select the encrypted file
// backend with DAYPLAN_KEYRING_BACKEND=file; its directory and password come
// from DAYPLAN_KEYRING_DIR and DAYPLAN_KEYRING_PASSWORD.
package credential

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/99designs/keyring"
)

const serviceName = "dayplan"

// AnthropicKey is the keyring entry holding the Claude API key.
const AnthropicKey = "anthropic_api_key"

// ErrNotStored is returned by Get when no value exists for the key.
var ErrNotStored = errors.New("credential not stored")

const (
	envBackend  = "DAYPLAN_KEYRING_BACKEND"
	envDir      = "DAYPLAN_KEYRING_DIR"
	envPassword = "DAYPLAN_KEYRING_PASSWORD"

	defaultFileDir = "~/.config/dayplan/credentials"
)

var systemBackends = []keyring.BackendType{
	keyring.KeychainBackend,
	keyring.SecretServiceBackend,
	keyring.WinCredBackend,
	keyring.PassBackend,
	keyring.FileBackend,
}

// backends maps a DAYPLAN_KEYRING_BACKEND value to the allowed backends.
// Empty means the platform keyrings, falling back to the file backend.
func backends(name string) ([]keyring.BackendType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "system":
		return systemBackends, nil
	case "file":
		return []keyring.BackendType{keyring.FileBackend}, nil
	case "keychain":
		return []keyring.BackendType{keyring.KeychainBackend}, nil
	case "secret-service":
		return []keyring.BackendType{keyring.SecretServiceBackend}, nil
	case "wincred":
		return []keyring.BackendType{keyring.WinCredBackend}, nil
	case "pass":
		return []keyring.BackendType{keyring.PassBackend}, nil
	default:
		return nil, fmt.Errorf("unknown keyring backend %q", name)
	}
}

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	allowed, err := backends(os.Getenv(envBackend))
	if err != nil {
		return nil, err
	}

	dir := os.Getenv(envDir)
	if dir == "" {
		dir = defaultFileDir
	}
	password := keyring.FixedStringPrompt("dayplan-file-key")
	if p := os.Getenv(envPassword); p != "" {
		password = keyring.FixedStringPrompt(p)
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName:              serviceName,
		AllowedBackends:          allowed,
		FileDir:                  dir,
		FilePasswordFunc:         password,
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a credential value by key from the system keyring.
func Get(key string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", fmt.Errorf("credential %q: %w", key, ErrNotStored)
		}
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the system keyring.
func Set(key string, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: serviceName + " " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key from the system keyring. Deleting a
// missing key is not an error.
func Delete(key string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	if err := ring.Remove(key); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}
