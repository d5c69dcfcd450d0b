package credential

import (
	"fmt"
	"os"
	"strings"
)

// TokenConfig describes a bearer token held in an environment variable and the cookie
// it is presented as.
type TokenConfig struct {
	EnvVar       string
	CookieName   string
	CookieDomain string
	CookiePath   string
}

// TokenSource turns a single environment variable into a one-cookie Credential.
type TokenSource struct {
	cfg    TokenConfig
	lookup func(string) (string, bool)
}

// NewTokenSource creates a TokenSource reading from the process environment.
func NewTokenSource(cfg TokenConfig) *TokenSource {
	if cfg.CookiePath == "" {
		cfg.CookiePath = "/"
	}
	return &TokenSource{cfg: cfg, lookup: os.LookupEnv}
}

// Load reads the token from the environment.
func (s *TokenSource) Load() (*Credential, error) {
	if s.cfg.CookieName == "" || s.cfg.CookieDomain == "" {
		return nil, fmt.Errorf("%w: %w: token cookie name and domain are required", ErrCredentialMissing, ErrCredentialMalformed)
	}

	token, ok := s.lookup(s.cfg.EnvVar)
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return nil, fmt.Errorf("%w: environment variable %s is not set", ErrCredentialMissing, s.cfg.EnvVar)
	}

	return &Credential{
		Cookies: []Cookie{
			{
				Name:     s.cfg.CookieName,
				Value:    token,
				Domain:   s.cfg.CookieDomain,
				Path:     s.cfg.CookiePath,
				HTTPOnly: true,
				Secure:   true,
			},
		},
	}, nil
}
