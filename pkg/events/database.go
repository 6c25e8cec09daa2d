package events

import (
	"context"
	"time"

	"github.com/JailtonJunior94/lexlog/pkg/logging"
)

func (e *Emitter) DatabaseQuery(ctx context.Context, query string, duration time.Duration, userID string) {
	meta := logging.Meta{
		"query":    query,
		"duration": millis(duration),
	}
	setIfNotEmpty(meta, "userId", userID)

	e.emit(ctx, EventDatabaseQuery, "Database query", meta)
}

func (e *Emitter) DatabaseError(ctx context.Context, query string, err error, userID string) {
	meta := logging.Meta{
		"query": query,
		"error": errorMessage(err),
		"stack": logging.StackOf(err),
	}
	setIfNotEmpty(meta, "userId", userID)

	e.emit(ctx, EventDatabaseError, "Database error", meta)
}
