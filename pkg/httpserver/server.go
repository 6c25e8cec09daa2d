package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/JailtonJunior94/lexlog/pkg/httplog"
	"github.com/JailtonJunior94/lexlog/pkg/logging"
)

type (
	// Server is an HTTP server whose lifecycle is reported to a logging.Sink.
	Server interface {
		// Run starts listening in the background and returns the shutdown func.
		Run() Shutdown
		// RegisterRoute adds a route. Safe to call after Run.
		RegisterRoute(route Route)
		// ShutdownListener receives the listener's terminal error, nil on a
		// clean shutdown.
		ShutdownListener() chan error
		ServeHTTP(http.ResponseWriter, *http.Request)
	}

	server struct {
		http.Server
		router           *chi.Mux
		shutdownListener chan error
		errorHandler     ErrorHandler
		sink             logging.Sink
		mu               sync.Mutex
	}

	Shutdown func(ctx context.Context) error

	Middleware func(handler http.Handler) http.Handler

	// Handler handles a request. A returned error goes to the ErrorHandler.
	Handler func(w http.ResponseWriter, req *http.Request) error

	ErrorHandler func(ctx context.Context, w http.ResponseWriter, req *http.Request, err error)

	Route struct {
		Path        string
		Method      string
		Handler     Handler
		Middlewares []Middleware
	}
)

// New creates a server. Defaults: addr ":8080", read and write timeouts 15s,
// idle 60s, read header 5s, 1MB of headers.
func New(options ...Option) Server {
	settings := defaultSettings
	for _, option := range options {
		settings = option(settings)
	}
	if settings.sink == nil {
		settings.sink = logging.FromContext(context.Background())
	}
	if settings.errorHandler == nil {
		settings.errorHandler = logErrorHandler(settings.sink)
	}

	router := chi.NewRouter()

	srv := &server{
		Server: http.Server{
			Addr:              settings.addr,
			Handler:           Middlewares(router, settings.globalMiddlewares...),
			ReadTimeout:       settings.readTimeout,
			WriteTimeout:      settings.writeTimeout,
			IdleTimeout:       settings.idleTimeout,
			ReadHeaderTimeout: settings.readHeaderTimeout,
			MaxHeaderBytes:    settings.maxHeaderBytes,
		},
		router:           router,
		shutdownListener: make(chan error, 1),
		errorHandler:     settings.errorHandler,
		sink:             settings.sink,
	}

	for _, route := range settings.routes {
		srv.registerRoute(route)
	}

	return srv
}

func (s *server) ShutdownListener() chan error {
	return s.shutdownListener
}

// Run binds the address synchronously so a busy port is reported on the
// listener channel before Run returns, then serves in the background.
func (s *server) Run() Shutdown {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		s.sink.LogError(context.Background(), logging.LevelError, err, logging.Meta{"addr": s.Addr})
		s.shutdownListener <- err
		return func(context.Context) error { return nil }
	}

	s.sink.Log(context.Background(), logging.LevelInfo, "HTTP server listening", logging.Meta{"addr": ln.Addr().String()})

	go func() {
		err := s.Server.Serve(ln)
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			s.shutdownListener <- nil
			return
		}
		s.sink.LogError(context.Background(), logging.LevelError, err, logging.Meta{"addr": s.Addr})
		s.shutdownListener <- err
	}()

	return func(ctx context.Context) error {
		s.sink.Log(ctx, logging.LevelInfo, "HTTP server shutting down", nil)
		return s.Server.Shutdown(ctx)
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	s.Server.Handler.ServeHTTP(w, req)
}

func NewRoute(method, path string, handler Handler, middlewares ...Middleware) Route {
	return Route{
		Path:        path,
		Method:      method,
		Handler:     handler,
		Middlewares: middlewares,
	}
}

// Middlewares wraps main so that the first middleware is the outermost.
func Middlewares(main http.Handler, middlewares ...Middleware) http.Handler {
	handler := main
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

func (s *server) RegisterRoute(route Route) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registerRoute(route)
}

func (s *server) registerRoute(route Route) {
	s.router.Method(
		route.Method,
		route.Path,
		Middlewares(
			newErrorHandler(s.errorHandler, route.Handler),
			route.Middlewares...,
		),
	)
}

// logErrorHandler records the failure at error level and answers 500 with a
// problem body.
func logErrorHandler(sink logging.Sink) ErrorHandler {
	return func(ctx context.Context, w http.ResponseWriter, req *http.Request, err error) {
		meta := logging.Meta{
			"method": req.Method,
			"path":   req.URL.Path,
		}
		if id := httplog.RequestIDFromContext(ctx); id != "" {
			meta["requestId"] = id
		}
		sink.LogError(ctx, logging.LevelError, err, meta)
		httplog.WriteProblem(w, req, http.StatusInternalServerError, "Internal server error")
	}
}

func newErrorHandler(errorHandler ErrorHandler, handler Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if err := handler(w, req); err != nil {
			errorHandler(req.Context(), w, req, err)
		}
	})
}

// ShutdownContext returns a context bounded by the default shutdown timeout.
func ShutdownContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), defaultShutdownTimeout)
}
