// Package secrets keeps the API bearer token in the OS keychain, with a
// JSON file fallback for hosts that have no keyring service.
package secrets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
)

const (
	defaultService = "moonrock-orbs"
	keyAPIToken    = "api-token"
)

// ErrNotFound is returned when no token has been stored.
var ErrNotFound = keyring.ErrNotFound

// TokenStore wraps the OS keychain with an optional file fallback.
type TokenStore struct {
	service      string
	fallbackPath string
	mu           sync.Mutex
}

// NewTokenStore creates a keyring wrapper. An empty fallbackPath disables
// the file fallback.
func NewTokenStore(serviceName, fallbackPath string) *TokenStore {
	if strings.TrimSpace(serviceName) == "" {
		serviceName = defaultService
	}
	return &TokenStore{
		service:      serviceName,
		fallbackPath: fallbackPath,
	}
}

// SetToken stores the API token.
func (k *TokenStore) SetToken(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("secrets: token is empty")
	}

	if err := keyring.Set(k.service, keyAPIToken, value); err == nil {
		return nil
	} else if !isKeyringUnavailable(err) {
		return fmt.Errorf("secrets: keyring set: %w", err)
	}

	return k.setFallback(value)
}

// Token returns the stored API token or ErrNotFound.
func (k *TokenStore) Token() (string, error) {
	val, err := keyring.Get(k.service, keyAPIToken)
	if err == nil {
		return val, nil
	}
	if !isKeyringUnavailable(err) && !errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("secrets: keyring get: %w", err)
	}

	fallback, ferr := k.getFallback()
	if ferr == nil {
		return fallback, nil
	}
	if errors.Is(err, keyring.ErrNotFound) || errors.Is(ferr, ErrNotFound) {
		return "", ErrNotFound
	}
	return "", ferr
}

// Clear removes the token from the keychain and the fallback file.
func (k *TokenStore) Clear() error {
	err := keyring.Delete(k.service, keyAPIToken)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) && !isKeyringUnavailable(err) {
		// Try fallback cleanup even if keyring delete failed.
		_ = k.deleteFallback()
		return fmt.Errorf("secrets: keyring delete: %w", err)
	}
	return k.deleteFallback()
}

// Resolve picks the effective token: a non-empty configured value wins,
// otherwise the stored token is used. An empty result means no auth.
func (k *TokenStore) Resolve(configured string) (string, error) {
	if configured = strings.TrimSpace(configured); configured != "" {
		return configured, nil
	}
	tok, err := k.Token()
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return tok, err
}

func isKeyringUnavailable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "secret service") ||
		strings.Contains(msg, "dbus") ||
		strings.Contains(msg, "no keychain") ||
		strings.Contains(msg, "keyring backend not available")
}

type fallbackSecrets map[string]string

func (k *TokenStore) setFallback(value string) error {
	if strings.TrimSpace(k.fallbackPath) == "" {
		return fmt.Errorf("secrets: keyring unavailable and no fallback path configured")
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	data, err := k.readFallbackUnlocked()
	if err != nil {
		return err
	}
	data[k.service] = value
	return k.writeFallbackUnlocked(data)
}

func (k *TokenStore) getFallback() (string, error) {
	if strings.TrimSpace(k.fallbackPath) == "" {
		return "", fmt.Errorf("secrets: fallback path not configured")
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	data, err := k.readFallbackUnlocked()
	if err != nil {
		return "", err
	}
	val, ok := data[k.service]
	if !ok {
		return "", ErrNotFound
	}
	return val, nil
}

func (k *TokenStore) deleteFallback() error {
	if strings.TrimSpace(k.fallbackPath) == "" {
		return nil
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	data, err := k.readFallbackUnlocked()
	if err != nil {
		return err
	}
	if _, ok := data[k.service]; !ok {
		return nil
	}
	delete(data, k.service)
	return k.writeFallbackUnlocked(data)
}

func (k *TokenStore) readFallbackUnlocked() (fallbackSecrets, error) {
	out := fallbackSecrets{}
	raw, err := os.ReadFile(k.fallbackPath)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("secrets: read fallback: %w", err)
	}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("secrets: decode fallback: %w", err)
	}
	return out, nil
}

func (k *TokenStore) writeFallbackUnlocked(data fallbackSecrets) error {
	if err := os.MkdirAll(filepath.Dir(k.fallbackPath), 0o700); err != nil {
		return fmt.Errorf("secrets: mkdir fallback dir: %w", err)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("secrets: encode fallback: %w", err)
	}
	if err := os.WriteFile(k.fallbackPath, raw, 0o600); err != nil {
		return fmt.Errorf("secrets: write fallback: %w", err)
	}
	return nil
}
