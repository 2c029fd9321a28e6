package domain

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is the authenticated identity. The zero value is signed out.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Valid reports whether both halves of the session are present.
func (s Session) Valid() bool {
	return strings.TrimSpace(s.Token) != "" && s.User.ID != ""
}

// TokenInfo holds the claims a client may read from an access token.
type TokenInfo struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token carried an exp claim that is not after now.
func (ti TokenInfo) Expired(now time.Time) bool {
	return !ti.ExpiresAt.IsZero() && !now.Before(ti.ExpiresAt)
}

// ReadTokenInfo decodes the claims of a JWT access token without verifying
// its signature. The signing key belongs to the server; the result is for
// display only. ok is false for opaque tokens.
func ReadTokenInfo(token string) (TokenInfo, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return TokenInfo{}, false
	}

	var ti TokenInfo
	ti.Subject = claims.Subject
	if claims.IssuedAt != nil {
		ti.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		ti.ExpiresAt = claims.ExpiresAt.Time
	}
	return ti, true
}
