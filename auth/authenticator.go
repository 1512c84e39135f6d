package auth

import (
	"net/http"
	"socialchat/domain"
	"strings"
)

const (
	bearerPrefix  = "Bearer "
	tokenParam    = "token"
	SessionCookie = "session"
)

// Authenticator resolves the identity of an upgrade request.
type Authenticator interface {
	Authenticate(r *http.Request) (domain.Identity, error)
}

type TokenAuthenticator struct {
	tokens *TokenService
}

var _ Authenticator = (*TokenAuthenticator)(nil)

func NewTokenAuthenticator(tokens *TokenService) *TokenAuthenticator {
	return &TokenAuthenticator{tokens: tokens}
}

// Authenticate looks for a token in the Authorization header, then the
// token query parameter, then the session cookie.
// No token at all yields the anonymous identity; a bad token is an error.
func (a *TokenAuthenticator) Authenticate(r *http.Request) (domain.Identity, error) {
	raw := extractToken(r)
	if raw == "" {
		return domain.AnonymousIdentity(), nil
	}
	claims, err := a.tokens.ValidateToken(raw)
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{
		Authenticated: true,
		Email:         claims.Email,
		Name:          claims.Name,
	}, nil
}

func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	}
	if token := r.URL.Query().Get(tokenParam); token != "" {
		return token
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}
