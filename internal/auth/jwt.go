package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const tokenIssuer = "aicore"

var (
	// ErrInvalidToken covers malformed, expired and wrongly signed tokens
	ErrInvalidToken = errors.New("invalid token")

	// ErrInvalidRole is returned when a token would carry an unknown role
	ErrInvalidRole = errors.New("invalid role")
)

// Claims are the claims of a service token. Subject names the caller,
// usually the module or service that owns the token.
type Claims struct {
	Roles     []Role `json:"roles"`
	CompanyID *int64 `json:"company_id,omitempty"`
	jwt.RegisteredClaims
}

// HasRole reports whether the token grants required
func (c *Claims) HasRole(required ...Role) bool {
	return HasAny(c.Roles, required...)
}

// GenerateServiceToken signs an HS256 token for subject. The expiry is
// returned alongside the token.
func GenerateServiceToken(secret []byte, subject string, roles []Role, companyID *int64, ttl time.Duration) (string, time.Time, error) {
	if len(secret) == 0 {
		return "", time.Time{}, errors.New("JWT secret is empty")
	}
	if subject == "" {
		return "", time.Time{}, errors.New("token subject is required")
	}
	for _, r := range roles {
		if !r.IsValid() {
			return "", time.Time{}, fmt.Errorf("%w: %s", ErrInvalidRole, r)
		}
	}

	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		Roles:     roles,
		CompanyID: companyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken verifies signature, algorithm and expiry and returns the claims
func ValidateToken(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != tokenIssuer {
		return nil, fmt.Errorf("%w: unexpected issuer", ErrInvalidToken)
	}
	return claims, nil
}
