package events

import (
	"context"

	"github.com/JailtonJunior94/lexlog/pkg/logging"
)

func (e *Emitter) AuthLogin(ctx context.Context, userID, ip, userAgent string) {
	e.emit(ctx, EventAuthLogin, "User logged in", logging.Meta{
		"userId":    userID,
		"ip":        ip,
		"userAgent": userAgent,
	})
}

func (e *Emitter) AuthLogout(ctx context.Context, userID, ip string) {
	e.emit(ctx, EventAuthLogout, "User logged out", logging.Meta{
		"userId": userID,
		"ip":     ip,
	})
}

// AuthFailed records a rejected login. email is logged as given.
func (e *Emitter) AuthFailed(ctx context.Context, email, ip, reason string) {
	e.emit(ctx, EventAuthFailed, "Authentication failed", logging.Meta{
		"email":  email,
		"ip":     ip,
		"reason": reason,
	})
}
