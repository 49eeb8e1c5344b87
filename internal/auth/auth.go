// Package auth implements username/password authentication and JWT
// bearer token issuance for the control surface's mutating routes.
package auth

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAuthDisabled       = errors.New("authentication is disabled")
)

const defaultUsername = "admin"

// Authenticator checks control-plane credentials and mints JWTs for
// valid ones. Constructed explicitly (no package-global state) so a
// process can hold exactly one, built from its own Options/env.
type Authenticator struct {
	logger       *log.Logger
	enabled      bool
	username     string
	passwordHash []byte
	jwtManager   *JWTManager
}

// NewAuthenticator builds an Authenticator from AUTH_ENABLED,
// AUTH_USERNAME, and AUTH_PASSWORD, following the same
// os.LookupEnv-based overlay convention internal/config uses. A
// plaintext AUTH_PASSWORD is hashed on construction; a value that is
// already a bcrypt hash (60 bytes, "$"-prefixed) is used as-is so
// operators can set a pre-hashed secret instead of a plaintext one.
func NewAuthenticator(logger *log.Logger) *Authenticator {
	if logger == nil {
		logger = log.Default()
	}

	enabled := false
	if v, ok := os.LookupEnv("AUTH_ENABLED"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			enabled = b
		} else {
			logger.Printf("[auth] ignoring invalid AUTH_ENABLED %q: %v", v, err)
		}
	}

	username := defaultUsername
	if v, ok := os.LookupEnv("AUTH_USERNAME"); ok && v != "" {
		username = v
	}

	var passwordHash []byte
	password, hasPassword := os.LookupEnv("AUTH_PASSWORD")
	switch {
	case enabled && !hasPassword:
		logger.Printf("[auth] AUTH_ENABLED=true but AUTH_PASSWORD is unset; every login attempt will fail")
	case enabled && isBcryptHash(password):
		passwordHash = []byte(password)
	case enabled && password != "":
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			logger.Printf("[auth] failed to hash AUTH_PASSWORD: %v", err)
		} else {
			passwordHash = hash
		}
	}

	return &Authenticator{
		logger:       logger,
		enabled:      enabled,
		username:     username,
		passwordHash: passwordHash,
		jwtManager:   NewJWTManager(logger),
	}
}

func isBcryptHash(s string) bool {
	return len(s) == 60 && s[0] == '$'
}

// IsEnabled reports whether auth is enforced.
func (a *Authenticator) IsEnabled() bool {
	return a.enabled
}

// Authenticate checks username/password and, on success, returns a
// signed token and its Unix expiry.
func (a *Authenticator) Authenticate(username, password string) (string, int64, error) {
	if !a.enabled {
		return "", 0, ErrAuthDisabled
	}

	if username != a.username {
		return "", 0, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)); err != nil {
		return "", 0, ErrInvalidCredentials
	}

	token, expiresAt, err := a.jwtManager.GenerateToken(username)
	if err != nil {
		return "", 0, fmt.Errorf("auth: authenticate %q: %w", username, err)
	}

	return token, expiresAt.Unix(), nil
}

// ValidateToken validates a bearer token against the configured
// JWTManager.
func (a *Authenticator) ValidateToken(token string) (*Claims, error) {
	return a.jwtManager.ValidateToken(token)
}

// JWTManager exposes the underlying token manager, e.g. for reading
// its configured expiry.
func (a *Authenticator) JWTManager() *JWTManager {
	return a.jwtManager
}

// HashPassword bcrypt-hashes a plaintext password, for operators
// wanting to precompute AUTH_PASSWORD as a hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}
