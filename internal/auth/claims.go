package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenClaims are the fields the backend puts in its access token.
type tokenClaims struct {
	jwt.RegisteredClaims
	UserID   any    `json:"id,omitempty"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
}

// TokenInfo is what can be read from a token without verifying it.
type TokenInfo struct {
	Subject   string
	Username  string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token carries an expiry that is past at now.
func (t TokenInfo) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// ExpiresIn returns the time left at now, or 0 when expired or unknown.
func (t TokenInfo) ExpiresIn(now time.Time) time.Duration {
	if t.ExpiresAt.IsZero() || !now.Before(t.ExpiresAt) {
		return 0
	}
	return t.ExpiresAt.Sub(now)
}

// InspectToken decodes a JWT's claims WITHOUT checking its signature. The
// result is informational only (token age in the session endpoint); the
// backend remains the sole judge of validity.
func InspectToken(token string) (*TokenInfo, error) {
	var claims tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenUnreadable, err)
	}

	info := &TokenInfo{
		Subject:  claims.Subject,
		Username: claims.Username,
		Role:     claims.Role,
	}
	if info.Subject == "" && claims.UserID != nil {
		info.Subject = fmt.Sprint(claims.UserID)
	}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}
