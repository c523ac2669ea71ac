package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
)

var ErrNoCredentials = errors.New("no service account credentials configured")

type GoogleAuthenticator struct {
	config *jwt.Config
}

func NewGoogleAuthenticator(cfg Config) (*GoogleAuthenticator, error) {
	b, err := readKey(cfg)
	if err != nil {
		return nil, err
	}

	if err := checkServiceAccount(b); err != nil {
		return nil, err
	}

	config, err := google.JWTConfigFromJSON(b, cfg.Scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	return &GoogleAuthenticator{config: config}, nil
}

// GetHTTPClient fetches a first token eagerly so a rejected key fails here
// rather than on the first API call.
func (g *GoogleAuthenticator) GetHTTPClient(ctx context.Context) (*http.Client, error) {
	ts := oauth2.ReuseTokenSource(nil, g.config.TokenSource(ctx))
	if _, err := ts.Token(); err != nil {
		return nil, fmt.Errorf("unable to obtain token for %s: %w", g.config.Email, err)
	}
	return oauth2.NewClient(ctx, ts), nil
}

func (g *GoogleAuthenticator) Email() string {
	return g.config.Email
}

func readKey(cfg Config) ([]byte, error) {
	if len(cfg.CredentialsJSON) > 0 {
		return cfg.CredentialsJSON, nil
	}
	if cfg.CredentialsPath == "" {
		return nil, ErrNoCredentials
	}

	b, err := os.ReadFile(cfg.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials: %w", err)
	}
	return b, nil
}

type keyHeader struct {
	Type        string `json:"type"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

func checkServiceAccount(b []byte) error {
	var h keyHeader
	if err := json.Unmarshal(b, &h); err != nil {
		return fmt.Errorf("credentials are not valid JSON: %w", err)
	}
	if h.Type != "service_account" {
		return fmt.Errorf("credentials type is %q, expected service_account", h.Type)
	}
	if h.ClientEmail == "" || h.PrivateKey == "" {
		return fmt.Errorf("credentials missing client_email or private_key")
	}
	return nil
}
