package utils

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"qrmenu/config"
	"qrmenu/model"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Role    model.UserRole `json:"role"`
	TableID string         `json:"tableId,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager signs and checks owner and table tokens. Each role has its own
// secret, so a table token can never pass as an owner token.
type TokenManager struct {
	ownerSecret   []byte
	tableSecret   []byte
	ownerPassword string
	ttl           time.Duration
	now           func() time.Time
}

func NewTokenManager(cfg config.AuthConfig) *TokenManager {
	return &TokenManager{
		ownerSecret:   []byte(cfg.OwnerJWTSecret),
		tableSecret:   []byte(cfg.TableJWTSecret),
		ownerPassword: cfg.OwnerPassword,
		ttl:           cfg.TokenTTL,
		now:           time.Now,
	}
}

func (m *TokenManager) secret(role model.UserRole) ([]byte, error) {
	switch role {
	case model.Owner:
		return m.ownerSecret, nil
	case model.TableRole:
		return m.tableSecret, nil
	}
	return nil, fmt.Errorf("unknown role %q", role)
}

func (m *TokenManager) generate(role model.UserRole, subject, tableID string) (string, error) {
	secret, err := m.secret(role)
	if err != nil {
		return "", err
	}

	now := m.now()
	claims := Claims{
		Role:    role,
		TableID: tableID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (m *TokenManager) GenerateOwnerToken() (string, error) {
	return m.generate(model.Owner, string(model.Owner), "")
}

func (m *TokenManager) GenerateTableToken(tableID string) (string, error) {
	return m.generate(model.TableRole, tableID, tableID)
}

// ValidateToken parses tokenString with the secret of role and checks that
// the embedded role matches.
func (m *TokenManager) ValidateToken(tokenString string, role model.UserRole) (*Claims, error) {
	secret, err := m.secret(role)
	if err != nil {
		return nil, err
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Role != role {
		return nil, ErrInvalidToken
	}
	if role == model.TableRole && claims.TableID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// CheckOwnerPassword compares against the configured owner password, which may
// be stored as a bcrypt hash.
func (m *TokenManager) CheckOwnerPassword(password string) bool {
	if isBcryptHash(m.ownerPassword) {
		return bcrypt.CompareHashAndPassword([]byte(m.ownerPassword), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(m.ownerPassword), []byte(password)) == 1
}

func isBcryptHash(s string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// PasswordsMatch compares two plaintext secrets in constant time.
func PasswordsMatch(stored, given string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}
