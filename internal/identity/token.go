// Package identity ties a browser to a server-side session through a signed
// cookie. The cookie carries no quiz data, only the session id.
package identity

import (
	"crypto/sha256"
	"errors"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrExpiredToken = errors.New("session token expired")
)

const signingKeyInfo = "quizforge session cookie v1"

// TokenConfig holds session token signing configuration.
type TokenConfig struct {
	Secret []byte
	TTL    time.Duration // default: 72 hours
	Issuer string
}

// Manager issues and validates HS256 session tokens whose subject is the
// session id.
type Manager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewManager(cfg TokenConfig) *Manager {
	if cfg.TTL == 0 {
		cfg.TTL = 72 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "quizforge"
	}
	return &Manager{
		secret: deriveKey(cfg.Secret),
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
		now:    time.Now,
	}
}

// deriveKey stretches the configured secret into a fixed-size HMAC key so
// short operator secrets and random dev secrets sign the same way.
func deriveKey(secret []byte) []byte {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(signingKeyInfo)), key); err != nil {
		panic("identity: derive signing key: " + err.Error())
	}
	return key
}

func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue signs a token for sessionID and returns it with its expiry.
func (m *Manager) Issue(sessionID uuid.UUID) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    m.issuer,
		Subject:   sessionID.String(),
		ExpiresAt: jwt.NewNumericDate(expires),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

// Validate parses token and returns the session id and expiry it carries.
func (m *Manager) Validate(token string) (uuid.UUID, time.Time, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, time.Time{}, ErrExpiredToken
		}
		return uuid.Nil, time.Time{}, ErrInvalidToken
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil || claims.ExpiresAt == nil {
		return uuid.Nil, time.Time{}, ErrInvalidToken
	}
	return id, claims.ExpiresAt.Time, nil
}
