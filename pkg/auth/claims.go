// Package auth validates the signed session tokens issued at login and
// exposes their claims to handlers.
package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/shiksha-ai/study-engine/pkg/models"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// ClaimsKey is the context key for storing validated token claims.
const ClaimsKey contextKey = "claims"

// Claims is the token payload. The subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	Role models.Role `json:"role,omitempty"`
	Name string      `json:"name,omitempty"`
}

// IsAdmin reports whether the token carries the admin role.
func (c *Claims) IsAdmin() bool {
	return c.Role == models.RoleAdmin
}

// Service parses and validates session tokens.
type Service struct {
	secret []byte
}

// NewService creates a token service over the shared signing secret.
func NewService(secret string) *Service {
	return &Service{secret: []byte(secret)}
}

// Parse validates a token string and returns its claims. Expired or
// tampered tokens fail.
func (s *Service) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token carries no subject")
	}
	return claims, nil
}

// GetClaims retrieves validated claims from the request context.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// UserID returns the authenticated user id from context, or "" when the
// request is anonymous.
func UserID(ctx context.Context) string {
	if claims, ok := GetClaims(ctx); ok {
		return claims.Subject
	}
	return ""
}
