package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rookgm/creditmart/internal/models"
)

const defaultTokenTTL = 24 * time.Hour

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrEmptyKey     = errors.New("token key is empty")
)

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthToken issues and checks HMAC signed tokens
type AuthToken struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewAuthToken creates new AuthToken instance
func NewAuthToken(key string) (*AuthToken, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	return &AuthToken{
		key: []byte(key),
		ttl: defaultTokenTTL,
		now: time.Now,
	}, nil
}

// CreateToken returns signed token for subject with role
func (at *AuthToken) CreateToken(subject, role string) (string, error) {
	now := at.now()
	c := claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(at.ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(at.key)
}

// VerifyToken parses token and returns its payload
func (at *AuthToken) VerifyToken(tokenString string) (*models.TokenPayload, error) {
	c := &claims{}

	token, err := jwt.ParseWithClaims(tokenString, c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return at.key, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	payload := &models.TokenPayload{
		Subject: c.Subject,
		Role:    c.Role,
	}
	if c.IssuedAt != nil {
		payload.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		payload.ExpiresAt = c.ExpiresAt.Time
	}

	return payload, nil
}
