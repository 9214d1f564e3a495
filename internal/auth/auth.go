package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// CookieName is the session cookie carrying the signed access token.
const CookieName = "ws_auth"

// TokenTTL matches the cookie lifetime.
const TokenTTL = 7 * 24 * time.Hour

var (
	ErrBadPassword  = errors.New("auth: wrong password")
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Manager implements the shared-password login wall. The configured
// password is bcrypt-hashed at startup so the plaintext never sits in
// memory longer than boot, and every check goes through a constant-time
// compare.
type Manager struct {
	secret       []byte
	passwordHash []byte
}

func NewManager(secret, password string) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("auth: session secret is required")
	}
	if password == "" {
		return nil, errors.New("auth: access password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &Manager{secret: []byte(secret), passwordHash: hash}, nil
}

// Login checks the password and issues a signed token on success.
func (m *Manager) Login(password string) (string, error) {
	if err := bcrypt.CompareHashAndPassword(m.passwordHash, []byte(password)); err != nil {
		return "", ErrBadPassword
	}
	return m.issue(time.Now())
}

func (m *Manager) issue(now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   "student",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify validates a token from the cookie.
func (m *Manager) Verify(token string) error {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}
