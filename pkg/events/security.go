package events

import (
	"context"

	"github.com/JailtonJunior94/lexlog/pkg/logging"
)

func (e *Emitter) RateLimit(ctx context.Context, ip, path string) {
	e.emit(ctx, EventSecurityRateLimit, "Rate limit exceeded", logging.Meta{
		"ip":   ip,
		"path": path,
	})
}

// Suspicious records activity worth a human look. details is passed through
// as is and may be any JSON-encodable value.
func (e *Emitter) Suspicious(ctx context.Context, ip, activity string, details any) {
	e.emit(ctx, EventSecuritySuspicious, "Suspicious activity: "+activity, logging.Meta{
		"ip":       ip,
		"activity": activity,
		"details":  details,
	})
}
