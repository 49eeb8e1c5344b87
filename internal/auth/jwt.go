package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

const defaultExpiry = 24 * time.Hour

// Claims is the JWT payload gesturesrv issues: just enough to identify
// the control-plane operator behind a request.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// JWTManager signs and validates control-plane bearer tokens.
type JWTManager struct {
	logger    *log.Logger
	secretKey []byte
	expiry    time.Duration
}

// NewJWTManager builds a JWTManager from JWT_SECRET/JWT_EXPIRY. With no
// JWT_SECRET set it falls back to a random per-process secret (dev
// mode): that's fine for a single long-running process, but it means
// every restart invalidates outstanding tokens, so it's logged rather
// than silently assumed.
func NewJWTManager(logger *log.Logger) *JWTManager {
	if logger == nil {
		logger = log.Default()
	}

	secret, ok := os.LookupEnv("JWT_SECRET")
	if !ok || secret == "" {
		randomBytes := make([]byte, 32)
		if _, err := rand.Read(randomBytes); err != nil {
			logger.Printf("[auth] failed to generate random JWT secret: %v", err)
		}
		secret = hex.EncodeToString(randomBytes)
		logger.Printf("[auth] JWT_SECRET not set, using a random per-process secret; tokens will not survive a restart")
	}

	expiry := defaultExpiry
	if exp, ok := os.LookupEnv("JWT_EXPIRY"); ok {
		if d, err := time.ParseDuration(exp); err == nil {
			expiry = d
		} else {
			logger.Printf("[auth] ignoring invalid JWT_EXPIRY %q: %v", exp, err)
		}
	}

	return &JWTManager{
		logger:    logger,
		secretKey: []byte(secret),
		expiry:    expiry,
	}
}

// GenerateToken issues a signed token for username, expiring after the
// manager's configured duration.
func (m *JWTManager) GenerateToken(username string) (string, time.Time, error) {
	expiresAt := time.Now().Add(m.expiry)

	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "gesturesrv",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateToken parses and verifies a bearer token, mapping expiry and
// signature/format failures onto the package's sentinel errors.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secretKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// GetExpiry returns the configured token lifetime.
func (m *JWTManager) GetExpiry() time.Duration {
	return m.expiry
}
