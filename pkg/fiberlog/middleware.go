// Package fiberlog is the fiber counterpart of httplog: request IDs, tracing,
// panic recovery and api.* events for fiber applications.
package fiberlog

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"go.opentelemetry.io/otel/trace"

	"github.com/JailtonJunior94/lexlog/pkg/events"
	"github.com/JailtonJunior94/lexlog/pkg/httplog"
	"github.com/JailtonJunior94/lexlog/pkg/logging"
)

// LocalsRequestID is the fiber locals key holding the request ID.
const LocalsRequestID = "request-id"

// RequestID propagates or generates X-Request-ID and stores it both in the
// fiber locals and in the user context, so httplog.RequestIDFromContext
// works in handlers.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := utils.CopyString(strings.TrimSpace(c.Get(httplog.RequestIDHeader)))
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(httplog.RequestIDHeader, requestID)
		c.Locals(LocalsRequestID, requestID)
		c.SetUserContext(httplog.ContextWithRequestID(c.UserContext(), requestID))

		return c.Next()
	}
}

func GetRequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalsRequestID).(string)
	return id
}

// Tracing starts a server span per request. Events logged while it is active
// carry its trace_id and span_id. A nil provider uses the global one.
func Tracing(tp trace.TracerProvider) fiber.Handler {
	var opts []otelfiber.Option
	if tp != nil {
		opts = append(opts, otelfiber.WithTracerProvider(tp))
	}
	return otelfiber.Middleware(opts...)
}

// Logger emits api.request and api.response. When the chain returns an error
// the response status is taken from it, since fiber's error handler has not
// written it yet. Request strings are copied out of fiber's reused buffers
// before they enter event meta.
func Logger(emitter *events.Emitter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		ctx := c.UserContext()
		method, path := utils.CopyString(c.Method()), utils.CopyString(c.Path())

		emitter.APIRequest(ctx, events.APIRequest{
			Method:    method,
			Path:      path,
			UserID:    logging.UserIDFromContext(ctx),
			IP:        utils.CopyString(c.IP()),
			RequestID: GetRequestID(c),
		})

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}

		emitter.APIResponse(ctx, events.APIResponse{
			Method:     method,
			Path:       path,
			StatusCode: status,
			Duration:   time.Since(start),
			UserID:     logging.UserIDFromContext(ctx),
			RequestID:  GetRequestID(c),
		})
		return err
	}
}

// Recover converts a handler panic into api.error plus a capture on the
// exceptions sink, and answers 500 with a problem body.
func Recover(capturer httplog.PanicCapturer, emitter *events.Emitter) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}

			ctx := c.UserContext()
			stack := string(debug.Stack())
			method, path := utils.CopyString(c.Method()), utils.CopyString(c.Path())
			emitter.APIError(ctx, method, path, pkgerrors.Errorf("panic: %v", recovered), logging.UserIDFromContext(ctx))
			if capturer != nil {
				capturer.CapturePanic(ctx, recovered, stack)
			}

			err = c.Status(fiber.StatusInternalServerError).JSON(httplog.ProblemDetail{
				Type:      fmt.Sprintf("https://httpstatuses.com/%d", fiber.StatusInternalServerError),
				Title:     "Internal Server Error",
				Status:    fiber.StatusInternalServerError,
				Detail:    "Internal server error",
				Instance:  path,
				Timestamp: time.Now().UTC(),
				RequestID: GetRequestID(c),
			}, "application/problem+json")
		}()

		return c.Next()
	}
}
