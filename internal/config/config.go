// Package config resolves the gallery client's settings from the
// environment, an optional .env file, and the stored credential file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	credentialDir  = ".photo-gallery"
	credentialFile = "token"

	// DefaultAPIURL is used when GALLERY_API_URL is unset.
	DefaultAPIURL = "http://localhost:8000"
)

// ErrNoToken means no credential was found in any source.
var ErrNoToken = errors.New("no API token found; set GALLERY_TOKEN or run `gallery login`")

// TokenSource says where the resolved token came from.
type TokenSource string

const (
	TokenFromFlag TokenSource = "--token flag"
	TokenFromEnv  TokenSource = "GALLERY_TOKEN"
	TokenFromFile TokenSource = "credential file"
)

// Config is the resolved client configuration.
type Config struct {
	APIURL      string
	Token       string
	TokenSource TokenSource // empty when Token is empty
	HandleDir   string      // empty means the OS temp dir
	LogLevel    string
}

// Load reads envFile when it exists, then the GALLERY_* variables.
// Variables already set in the environment win over the file.
// The token falls back to ~/.photo-gallery/token.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("load %s: %w", envFile, err)
			}
			log.Debug().Str("file", envFile).Msg("No env file, using environment only")
		} else {
			log.Debug().Str("file", envFile).Msg("Loaded env file")
		}
	}

	cfg := Config{
		APIURL:    strings.TrimRight(envOr("GALLERY_API_URL", DefaultAPIURL), "/"),
		HandleDir: os.Getenv("GALLERY_HANDLE_DIR"),
		LogLevel:  os.Getenv("GALLERY_LOG_LEVEL"),
	}

	token, src, err := lookupToken()
	if err != nil && !errors.Is(err, ErrNoToken) {
		return cfg, err
	}
	cfg.Token, cfg.TokenSource = token, src
	return cfg, nil
}

// GetToken retrieves the API token.
// Priority order:
//  1. GALLERY_TOKEN environment variable
//  2. ~/.photo-gallery/token
func GetToken() (string, error) {
	token, _, err := lookupToken()
	return token, err
}

func lookupToken() (string, TokenSource, error) {
	if token := os.Getenv("GALLERY_TOKEN"); token != "" {
		log.Debug().Msg("Using token from environment variable")
		return token, TokenFromEnv, nil
	}

	path, err := tokenPath()
	if err != nil {
		return "", "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", "", ErrNoToken
		}
		return "", "", fmt.Errorf("read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", "", ErrNoToken
	}
	log.Debug().Str("file", path).Msg("Using token from credential file")
	return token, TokenFromFile, nil
}

// SaveToken writes the token to the credential file with owner-only
// permissions.
func SaveToken(token string) error {
	path, err := tokenPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(strings.TrimSpace(token)+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	log.Info().Str("file", path).Msg("Token saved")
	return nil
}

// ClearToken removes the stored credential. A missing file is not an error.
func ClearToken() error {
	path, err := tokenPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	log.Info().Str("file", path).Msg("Stored token cleared")
	return nil
}

func tokenPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, credentialDir, credentialFile), nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
