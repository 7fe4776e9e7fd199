package auth

import (
	"context"

	"github.com/goldenbrick/markermap/internal/apperr"
	log "github.com/sirupsen/logrus"
)

// LoginResult describes one login attempt. The password is never included.
type LoginResult struct {
	Username string
	ClientIP string
	Success  bool
	Err      error
}

// Hook observes authentication outcomes.
type Hook interface {
	OnLogin(ctx context.Context, result LoginResult)
}

// NoopHook ignores every event.
type NoopHook struct{}

// OnLogin implements Hook.
func (NoopHook) OnLogin(context.Context, LoginResult) {}

// Hooks fans one event out to several hooks.
type Hooks []Hook

// OnLogin implements Hook.
func (hs Hooks) OnLogin(ctx context.Context, result LoginResult) {
	for _, h := range hs {
		if h != nil {
			h.OnLogin(ctx, result)
		}
	}
}

// StatusCodeHook logs login results with severity derived from the response status.
type StatusCodeHook struct {
	NoopHook
}

// NewStatusCodeHook constructs a StatusCodeHook.
func NewStatusCodeHook() *StatusCodeHook {
	return &StatusCodeHook{}
}

// OnLogin logs the attempt.
func (h *StatusCodeHook) OnLogin(_ context.Context, result LoginResult) {
	entry := log.WithFields(log.Fields{
		"username":  result.Username,
		"client_ip": result.ClientIP,
		"success":   result.Success,
	})

	if result.Success {
		entry.Info("login succeeded")
		return
	}
	if result.Err == nil {
		entry.Warn("login failed without error details")
		return
	}

	statusCode := apperr.From(result.Err).Status()
	entry = entry.WithField("status_code", statusCode)

	switch {
	case statusCode == 400:
		entry.Debug("login rejected: malformed input")
	case statusCode == 401:
		entry.Warn("login failed: invalid credentials")
	case statusCode == 429:
		entry.Warn("login throttled: too many attempts")
	case statusCode == 503:
		entry.WithError(result.Err).Error("login failed: storage unavailable")
	default:
		entry.WithError(result.Err).Error("login failed")
	}
}
