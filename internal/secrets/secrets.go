// Package secrets resolves API credentials, preferring the OS keychain
// and falling back to environment variables for headless runs.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// "Service" groups the app's secrets in the OS keychain.
	KeyringService = "jobharvest"

	AccountFirecrawl  = "firecrawl-api-key"
	AccountOpenRouter = "openrouter-api-key"

	EnvFirecrawl  = "FIRECRAWL_API_KEY"
	EnvOpenRouter = "OPENROUTER_API_KEY"
)

// Get looks the account up in the keychain first, then the env var.
func Get(keyringAccount, envVar string) (string, error) {
	if strings.TrimSpace(keyringAccount) != "" {
		v, err := keyring.Get(KeyringService, keyringAccount)
		if err == nil && strings.TrimSpace(v) != "" {
			return v, nil
		}
	}
	if envVar != "" {
		if v := strings.TrimSpace(os.Getenv(envVar)); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("secret %q not found (set it in keychain or via %s)", keyringAccount, envVar)
}

func Set(keyringAccount, value string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(value) == "" {
		return errors.New("secret value is empty")
	}
	return keyring.Set(KeyringService, keyringAccount, value)
}

func Delete(keyringAccount string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, keyringAccount)
}

func FirecrawlAPIKey() (string, error) {
	return Get(AccountFirecrawl, EnvFirecrawl)
}

func OpenRouterAPIKey() (string, error) {
	return Get(AccountOpenRouter, EnvOpenRouter)
}
