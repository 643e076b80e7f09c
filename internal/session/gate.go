package session

import (
	"context"
	"crypto/subtle"
	"sync/atomic"

	"github.com/rs/zerolog"

	"coroconcept/internal/metrics"
)

const (
	DefaultUsername = "coroai"
	DefaultPassword = "321654"

	MsgInvalidCredentials = "Username atau Password salah"
)

type Verifier interface {
	Verify(ctx context.Context, username, password string) (bool, error)
}

// StaticVerifier accepts exactly one fixed pair. It is a placeholder, not an auth system.
type StaticVerifier struct {
	Username string
	Password string
}

func (v StaticVerifier) Verify(_ context.Context, username, password string) (bool, error) {
	if v.Username == "" || v.Password == "" {
		return false, nil
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(v.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(v.Password)) == 1
	return userOK && passOK, nil
}

type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Gate holds the process-wide logged-in flag. State is never persisted.
type Gate struct {
	verifier      Verifier
	authenticated atomic.Bool
	logger        zerolog.Logger
	metrics       *metrics.Metrics
}

type Config struct {
	Verifier Verifier
	Logger   zerolog.Logger
	Metrics  *metrics.Metrics
}

func NewGate(cfg Config) *Gate {
	if cfg.Verifier == nil {
		cfg.Verifier = StaticVerifier{Username: DefaultUsername, Password: DefaultPassword}
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.Global()
	}
	return &Gate{verifier: cfg.Verifier, logger: cfg.Logger, metrics: m}
}

func (g *Gate) AttemptLogin(ctx context.Context, username, password string) error {
	ok, err := g.verifier.Verify(ctx, username, password)
	if err != nil {
		g.metrics.LoginFailures.Inc()
		g.logger.Error().Err(err).Str("username", username).Msg("credential verification failed")
		return &AuthError{Message: MsgInvalidCredentials, Err: err}
	}
	if !ok {
		g.metrics.LoginFailures.Inc()
		g.logger.Warn().Str("username", username).Msg("rejected login")
		return &AuthError{Message: MsgInvalidCredentials}
	}
	g.authenticated.Store(true)
	g.logger.Info().Str("username", username).Msg("login accepted")
	return nil
}

func (g *Gate) Logout() {
	g.authenticated.Store(false)
}

func (g *Gate) Authenticated() bool {
	return g.authenticated.Load()
}
