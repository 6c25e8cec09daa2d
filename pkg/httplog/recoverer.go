package httplog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	pkgerrors "github.com/pkg/errors"

	"github.com/JailtonJunior94/lexlog/pkg/events"
	"github.com/JailtonJunior94/lexlog/pkg/logging"
)

// PanicCapturer receives recovered panics. *logging.Logger implements it.
type PanicCapturer interface {
	CapturePanic(ctx context.Context, v any, stack string)
}

// ProblemDetail is the RFC 7807 body written for failed requests.
type ProblemDetail struct {
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Status    int       `json:"status"`
	Detail    string    `json:"detail"`
	Instance  string    `json:"instance"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Recoverer turns a handler panic into api.error, hands the panic to the
// exceptions sink and answers 500 unless the handler already wrote headers.
// It never re-panics, http.ErrAbortHandler included.
func Recoverer(capturer PanicCapturer, emitter *events.Emitter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}

				ctx := r.Context()
				stack := string(debug.Stack())
				err := pkgerrors.Errorf("panic: %v", recovered)

				emitter.APIError(ctx, r.Method, r.URL.Path, err, logging.UserIDFromContext(ctx))
				if capturer != nil {
					capturer.CapturePanic(ctx, recovered, stack)
				}

				if ww.Status() == 0 {
					WriteProblem(ww, r, http.StatusInternalServerError, "Internal server error")
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// WriteProblem answers with a ProblemDetail body for code.
func WriteProblem(w http.ResponseWriter, r *http.Request, code int, detail string) {
	problem := ProblemDetail{
		Type:      fmt.Sprintf("https://httpstatuses.com/%d", code),
		Title:     http.StatusText(code),
		Status:    code,
		Detail:    detail,
		Instance:  r.URL.Path,
		Timestamp: time.Now().UTC(),
		RequestID: RequestIDFromContext(r.Context()),
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(code)

	_ = json.NewEncoder(w).Encode(problem)
}
