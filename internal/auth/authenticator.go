package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goldenbrick/markermap/internal/apperr"
	"github.com/goldenbrick/markermap/internal/ratelimit"
	"github.com/goldenbrick/markermap/internal/security"
	"github.com/goldenbrick/markermap/internal/storage"
	"github.com/goldenbrick/markermap/internal/validation"
	log "github.com/sirupsen/logrus"
)

// Credentials is the login request body.
type Credentials struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required"`
}

// Profile is the public view of a user account.
type Profile struct {
	ID        uint64     `json:"id"`
	Username  string     `json:"username"`
	Role      Role       `json:"role"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      Profile
}

// Authenticator checks credentials and session tokens.
type Authenticator struct {
	users   storage.UserRepository
	tokens  *security.TokenCodec
	limiter ratelimit.Limiter
	hook    Hook
}

// NewAuthenticator constructs an Authenticator. A nil limiter disables throttling
// and a nil hook disables login logging.
func NewAuthenticator(users storage.UserRepository, tokens *security.TokenCodec, limiter ratelimit.Limiter, hook Hook) *Authenticator {
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}
	if hook == nil {
		hook = NoopHook{}
	}
	return &Authenticator{users: users, tokens: tokens, limiter: limiter, hook: hook}
}

// TokenTTL returns the lifetime of minted session tokens.
func (a *Authenticator) TokenTTL() time.Duration {
	return a.tokens.TTL()
}

// Login checks username and password and mints a session token.
// Unknown users and wrong passwords fail identically.
func (a *Authenticator) Login(ctx context.Context, creds Credentials, clientIP string) (*Session, error) {
	creds.Username = strings.TrimSpace(creds.Username)
	session, err := a.login(ctx, creds, clientIP)
	a.hook.OnLogin(ctx, LoginResult{
		Username: creds.Username,
		ClientIP: clientIP,
		Success:  err == nil,
		Err:      err,
	})
	return session, err
}

func (a *Authenticator) login(ctx context.Context, creds Credentials, clientIP string) (*Session, error) {
	if errValidate := validation.Struct(&creds); errValidate != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, errValidate.Error(), errValidate)
	}

	allowed, errLimit := a.limiter.Allow(ctx, "login:"+clientIP)
	if errLimit != nil {
		log.WithError(errLimit).Warn("auth: login rate limiter unavailable, allowing attempt")
	} else if !allowed {
		return nil, apperr.RateLimited()
	}

	user, errFind := a.users.FindByUsername(ctx, creds.Username)
	if errFind != nil {
		if errors.Is(errFind, storage.ErrNotFound) {
			security.BurnPasswordCheck(creds.Password)
			return nil, apperr.InvalidCredentials()
		}
		return nil, storageError(errFind)
	}
	if !security.CheckPassword(user.Password, creds.Password) {
		return nil, apperr.InvalidCredentials()
	}

	role := ParseRole(user.Role)
	token, expiresAt, errMint := a.tokens.Mint(user.ID, user.Username, string(role))
	if errMint != nil {
		return nil, apperr.Internal(errMint)
	}
	return &Session{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      Profile{ID: user.ID, Username: user.Username, Role: role},
	}, nil
}

// Verify decodes a session token. Any failure yields nil, meaning anonymous.
// The role is taken from the token, so role changes apply after re-login.
func (a *Authenticator) Verify(token string) *Identity {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	claims, err := a.tokens.Parse(token)
	if err != nil {
		return nil
	}
	return &Identity{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     ParseRole(claims.Role),
	}
}

// WhoAmI verifies token and returns the current stored profile of its user.
func (a *Authenticator) WhoAmI(ctx context.Context, token string) (*Profile, error) {
	identity := a.Verify(token)
	if identity == nil {
		return nil, apperr.NotAuthenticated()
	}
	user, errFind := a.users.FindByID(ctx, identity.UserID)
	if errFind != nil {
		if errors.Is(errFind, storage.ErrNotFound) {
			return nil, apperr.UserNotFound()
		}
		return nil, storageError(errFind)
	}
	createdAt := user.CreatedAt
	return &Profile{
		ID:        user.ID,
		Username:  user.Username,
		Role:      ParseRole(user.Role),
		CreatedAt: &createdAt,
	}, nil
}

// Logout has no server-side state to clear; the transport expires the cookie.
func (a *Authenticator) Logout() {}

// storageError maps repository failures to client errors.
func storageError(err error) error {
	switch {
	case errors.Is(err, storage.ErrUnavailable):
		return apperr.StorageUnavailable(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperr.Wrap(apperr.CodeInternal, "Request cancelled", err)
	default:
		return apperr.Internal(err)
	}
}
