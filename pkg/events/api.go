package events

import (
	"context"
	"time"

	"github.com/JailtonJunior94/lexlog/pkg/logging"
)

// APIRequest describes an incoming request. Empty optional fields are omitted.
type APIRequest struct {
	Method    string
	Path      string
	UserID    string
	IP        string
	RequestID string
}

// APIResponse describes a completed request.
type APIResponse struct {
	Method     string
	Path       string
	StatusCode int
	Duration   time.Duration
	UserID     string
	RequestID  string
}

func (e *Emitter) APIRequest(ctx context.Context, req APIRequest) {
	meta := logging.Meta{
		"method": req.Method,
		"path":   req.Path,
	}
	setIfNotEmpty(meta, "userId", req.UserID)
	setIfNotEmpty(meta, "ip", req.IP)
	setIfNotEmpty(meta, "requestId", req.RequestID)

	e.emit(ctx, EventAPIRequest, req.Method+" "+req.Path, meta)
}

// APIResponse logs the status and the duration in milliseconds.
func (e *Emitter) APIResponse(ctx context.Context, res APIResponse) {
	meta := logging.Meta{
		"method":     res.Method,
		"path":       res.Path,
		"statusCode": res.StatusCode,
		"duration":   millis(res.Duration),
	}
	setIfNotEmpty(meta, "userId", res.UserID)
	setIfNotEmpty(meta, "requestId", res.RequestID)

	e.emit(ctx, EventAPIResponse, res.Method+" "+res.Path, meta)
}

// APIError logs err with its stack trace at error severity.
func (e *Emitter) APIError(ctx context.Context, method, path string, err error, userID string) {
	meta := logging.Meta{
		"method": method,
		"path":   path,
		"error":  errorMessage(err),
		"stack":  logging.StackOf(err),
	}
	setIfNotEmpty(meta, "userId", userID)

	e.emit(ctx, EventAPIError, "API error: "+method+" "+path, meta)
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
