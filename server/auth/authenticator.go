// Package auth validates the access tokens minted by the identity provider.
// Tokens are HS256 JWTs carrying the user id in the subject claim; the
// server never stores users itself.
package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const (
	// AccessTokenCookieName is the cookie checked when no Authorization
	// header is present.
	AccessTokenCookieName = "toolhub.access-token"

	issuer = "toolhub"
)

// User is the identity extracted from a verified access token.
type User struct {
	ID    string
	Email string
}

type claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Authenticate resolves the request's user from the Authorization header or,
// failing that, the access token cookie.
func (a *Authenticator) Authenticate(authHeader, cookieHeader string) (*User, error) {
	token := extractBearerToken(authHeader)
	if token == "" {
		token = extractCookieToken(cookieHeader)
	}
	if token == "" {
		return nil, errors.New("no access token provided")
	}
	return a.verify(token)
}

func (a *Authenticator) verify(token string) (*User, error) {
	c := &claims{}
	parsed, err := jwt.ParseWithClaims(token, c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "parse access token")
	}
	if !parsed.Valid {
		return nil, errors.New("invalid access token")
	}
	if c.Subject == "" {
		return nil, errors.New("access token missing subject")
	}
	return &User{ID: c.Subject, Email: c.Email}, nil
}

// GenerateAccessToken mints a token for the given user, valid for the given
// duration. Used by tests and local tooling.
func GenerateAccessToken(userID, email, secret string, expiresAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	return token.SignedString([]byte(secret))
}

func extractBearerToken(authHeader string) string {
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func extractCookieToken(cookieHeader string) string {
	for _, part := range strings.Split(cookieHeader, ";") {
		name, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if found && name == AccessTokenCookieName {
			return value
		}
	}
	return ""
}
