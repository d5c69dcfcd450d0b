// Package credential loads the session credential used to authenticate the dashboard browser.
package credential

import (
	"errors"
	"fmt"
)

var (
	// ErrCredentialMissing is returned when no usable credential can be loaded.
	ErrCredentialMissing = errors.New("credential missing")

	// ErrCredentialMalformed is returned alongside ErrCredentialMissing when the source
	// exists but cannot be decoded into cookies.
	ErrCredentialMalformed = errors.New("credential malformed")
)

// Cookie is one browser cookie applied before the first navigation.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"`
}

// Credential is the immutable set of cookies that authenticates the dashboard session.
type Credential struct {
	Cookies []Cookie
}

// Source loads a Credential. Implementations read their backing source on every call;
// callers are expected to call Load once.
type Source interface {
	Load() (*Credential, error)
}

// Config selects exactly one credential source.
type Config struct {
	CookieFile string
	Token      TokenConfig
}

// NewSource returns the Source configured by cfg. Setting both CookieFile and Token.EnvVar is
// an error. Setting neither yields a Source whose Load always fails with ErrCredentialMissing.
func NewSource(cfg Config) (Source, error) {
	switch {
	case cfg.CookieFile != "" && cfg.Token.EnvVar != "":
		return nil, fmt.Errorf("only one of cookie file and token env var may be configured")
	case cfg.CookieFile != "":
		return NewFileSource(cfg.CookieFile), nil
	case cfg.Token.EnvVar != "":
		return NewTokenSource(cfg.Token), nil
	default:
		return unconfiguredSource{}, nil
	}
}

type unconfiguredSource struct{}

func (unconfiguredSource) Load() (*Credential, error) {
	return nil, fmt.Errorf("%w: no cookie file or token env var configured", ErrCredentialMissing)
}

func validate(cookies []Cookie) error {
	if len(cookies) == 0 {
		return fmt.Errorf("%w: no cookies", ErrCredentialMissing)
	}
	for i, c := range cookies {
		if c.Name == "" {
			return fmt.Errorf("%w: %w: cookie %d has no name", ErrCredentialMissing, ErrCredentialMalformed, i)
		}
	}
	return nil
}
