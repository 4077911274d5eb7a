package gateway

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"chirp/internal/models"
)

// Session is the authenticated user's access token plus the claims the
// client needs locally. The token signature is the backend's concern; the
// client only reads expiry and subject, so the token is parsed unverified.
type Session struct {
	AccessToken string
	UserID      string
	ExpiresAt   time.Time
}

// ParseSession extracts the user ID and expiry from an access token.
func ParseSession(accessToken string) (*Session, error) {
	token, _, err := jwt.NewParser().ParseUnverified(accessToken, jwt.MapClaims{})
	if err != nil {
		return nil, models.NewValidationError("malformed access token")
	}

	s := &Session{AccessToken: accessToken}
	if sub, err := token.Claims.GetSubject(); err == nil {
		s.UserID = sub
	}
	if exp, err := token.Claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.Time
	}
	return s, nil
}

// Valid reports whether the session can still authenticate requests. A
// session without an expiry claim is treated as valid; the backend remains
// the authority and will reject it if it is not.
func (s *Session) Valid() bool {
	if s == nil || s.AccessToken == "" {
		return false
	}
	if s.ExpiresAt.IsZero() {
		return true
	}
	return time.Now().Before(s.ExpiresAt)
}
