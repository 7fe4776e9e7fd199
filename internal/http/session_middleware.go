package http

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/goldenbrick/markermap/internal/apperr"
	"github.com/goldenbrick/markermap/internal/auth"
)

// SessionCookieName carries the session token in browsers.
const SessionCookieName = "auth-token"

const identityKey = "identity"

// Verifier decodes session tokens. *auth.Authenticator satisfies it.
type Verifier interface {
	Verify(token string) *auth.Identity
}

// SessionMiddleware decodes the session token, if any, and injects the caller identity.
// Missing or invalid tokens leave the request anonymous; routes decide what that means.
func SessionMiddleware(verifier Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier == nil {
			c.Next()
			return
		}
		if identity := verifier.Verify(SessionToken(c)); identity != nil {
			c.Set(identityKey, identity)
		}
		c.Next()
	}
}

// RequireAdmin rejects callers that may not change markers with 403, anonymous ones included.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auth.CanWrite(IdentityFrom(c)) {
			RespondError(c, apperr.Forbidden())
			return
		}
		c.Next()
	}
}

// IdentityFrom returns the identity injected by SessionMiddleware, nil when anonymous.
func IdentityFrom(c *gin.Context) *auth.Identity {
	val, exists := c.Get(identityKey)
	if !exists {
		return nil
	}
	identity, _ := val.(*auth.Identity)
	return identity
}

// SessionToken reads the token from the session cookie, falling back to a bearer header.
func SessionToken(c *gin.Context) string {
	if cookie, errCookie := c.Cookie(SessionCookieName); errCookie == nil && strings.TrimSpace(cookie) != "" {
		return strings.TrimSpace(cookie)
	}
	authHeader := c.GetHeader("Authorization")
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		return ""
	}
	return strings.TrimSpace(token)
}
