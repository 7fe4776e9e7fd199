package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goldenbrick/markermap/internal/auth"
	apphttp "github.com/goldenbrick/markermap/internal/http"
)

// AuthHandler handles login, logout and session lookup.
type AuthHandler struct {
	authn        *auth.Authenticator
	cookieSecure bool
}

// NewAuthHandler constructs an AuthHandler. cookieSecure should only be false for plain-http development.
func NewAuthHandler(authn *auth.Authenticator, cookieSecure bool) *AuthHandler {
	return &AuthHandler{authn: authn, cookieSecure: cookieSecure}
}

// Login checks credentials and sets the session cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var body auth.Credentials
	if errBind := apphttp.BindJSON(c, &body); errBind != nil {
		apphttp.RespondError(c, errBind)
		return
	}
	session, errLogin := h.authn.Login(c.Request.Context(), body, c.ClientIP())
	if errLogin != nil {
		apphttp.RespondError(c, errLogin)
		return
	}
	h.setSessionCookie(c, session.Token, session.ExpiresAt)
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    session.User,
	})
}

// Me returns the profile of the session's user.
func (h *AuthHandler) Me(c *gin.Context) {
	profile, errWho := h.authn.WhoAmI(c.Request.Context(), apphttp.SessionToken(c))
	if errWho != nil {
		apphttp.RespondError(c, errWho)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profile})
}

// Logout expires the session cookie. It always succeeds.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.authn.Logout()
	h.setSessionCookie(c, "", time.Unix(0, 0))
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := -1
	if token != "" {
		maxAge = int(time.Until(expiresAt).Seconds())
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     apphttp.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}
