package httplog

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JailtonJunior94/lexlog/pkg/events"
	"github.com/JailtonJunior94/lexlog/pkg/logging"
)

// Logger emits api.request when a request arrives and api.response with the
// status and duration once the handler returns.
func Logger(emitter *events.Emitter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()

			emitter.APIRequest(ctx, events.APIRequest{
				Method:    r.Method,
				Path:      r.URL.Path,
				UserID:    logging.UserIDFromContext(ctx),
				IP:        ClientIP(r),
				RequestID: RequestIDFromContext(ctx),
			})

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			emitter.APIResponse(ctx, events.APIResponse{
				Method:     r.Method,
				Path:       r.URL.Path,
				StatusCode: status,
				Duration:   time.Since(start),
				UserID:     logging.UserIDFromContext(ctx),
				RequestID:  RequestIDFromContext(ctx),
			})
		})
	}
}

// ClientIP is the request's remote host without the port.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
