// Package session issues and verifies the bearer tokens handed out after a
// successful passcode or OAuth login. Tokens are self-contained HS256 JWTs; nothing
// is stored server-side, so a token stays valid until its exp claim passes.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultTTL = 72 * time.Hour

var (
	ErrMissingToken = errors.New("no token, authorization denied")
	ErrInvalidToken = errors.New("token is not valid")
)

type UserClaim struct {
	ID string `json:"id"`
}

// Claims keeps the {"user": {"id": ...}} payload shape alongside the registered claims.
type Claims struct {
	jwt.RegisteredClaims
	User UserClaim `json:"user"`
}

type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Manager)

// WithClock replaces time.Now, both for issuing and for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func New(secret string, ttl time.Duration, opts ...Option) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	m := &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// * Issue signs a token bound to the account id
func (m *Manager) Issue(accountID string) (string, error) {
	const op = "session.Issue"

	if accountID == "" {
		return "", fmt.Errorf("%s: empty account id", op)
	}

	now := m.now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		User: UserClaim{ID: accountID},
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// * Authenticate validates signature, algorithm and expiry and returns the account id
func (m *Manager) Authenticate(rawToken string) (string, error) {
	if rawToken == "" {
		return "", ErrMissingToken
	}

	claims := &Claims{}

	token, err := jwt.ParseWithClaims(rawToken, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	accountID := claims.Subject
	if accountID == "" {
		accountID = claims.User.ID
	}
	if accountID == "" {
		return "", ErrInvalidToken
	}

	return accountID, nil
}
