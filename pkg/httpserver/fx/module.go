// Package httpserverfx runs an httpserver.Server inside an fx application.
package httpserverfx

import (
	"context"

	"go.uber.org/fx"

	"github.com/JailtonJunior94/lexlog/pkg/httpserver"
	"github.com/JailtonJunior94/lexlog/pkg/logging"
)

// Module provides the server and ties Run and Shutdown to the app lifecycle.
// Routes are collected from the "routes" group; global middlewares come from
// a single Chain so their order is fixed.
// Usage:
//
//	fx.New(
//	    httpserverfx.Module,
//	    fx.Supply(httpserverfx.DefaultConfig()),
//	    fx.Provide(fx.Annotate(
//	        httpserverfx.ProvideRoute("GET", "/health", health),
//	        fx.ResultTags(`group:"routes"`),
//	    )),
//	)
var Module = fx.Module("httpserver",
	fx.Provide(ProvideServer),
	fx.Invoke(RegisterLifecycle),
)

// Chain is the ordered list of global middlewares, outermost first.
type Chain []httpserver.Middleware

type ServerParams struct {
	fx.In

	Config       Config                  `optional:"true"`
	Routes       []httpserver.Route      `group:"routes"`
	Chain        Chain                   `optional:"true"`
	ErrorHandler httpserver.ErrorHandler `optional:"true"`
	Sink         logging.Sink            `optional:"true"`
}

func ProvideServer(p ServerParams) httpserver.Server {
	cfg := p.Config
	if cfg.Addr == "" {
		cfg = DefaultConfig()
	}

	opts := []httpserver.Option{
		httpserver.WithAddr(cfg.Addr),
		httpserver.WithReadTimeout(cfg.ReadTimeout),
		httpserver.WithWriteTimeout(cfg.WriteTimeout),
		httpserver.WithIdleTimeout(cfg.IdleTimeout),
		httpserver.WithReadHeaderTimeout(cfg.ReadHeaderTimeout),
		httpserver.WithMaxHeaderBytes(cfg.MaxHeaderBytes),
		httpserver.WithRoutes(p.Routes...),
		httpserver.WithMiddlewares(p.Chain...),
	}
	if p.ErrorHandler != nil {
		opts = append(opts, httpserver.WithErrorHandler(p.ErrorHandler))
	}
	if p.Sink != nil {
		opts = append(opts, httpserver.WithSink(p.Sink))
	}

	return httpserver.New(opts...)
}

type LifecycleParams struct {
	fx.In

	Server     httpserver.Server
	LC         fx.Lifecycle
	Shutdowner fx.Shutdowner
	Config     Config `optional:"true"`
}

// RegisterLifecycle starts the server on app start. A listener failure
// asks the app to shut down with a non-zero exit code.
func RegisterLifecycle(p LifecycleParams) {
	var shutdown httpserver.Shutdown

	timeout := p.Config.ShutdownTimeout
	if timeout == 0 {
		timeout = DefaultConfig().ShutdownTimeout
	}

	p.LC.Append(fx.Hook{
		OnStart: func(context.Context) error {
			shutdown = p.Server.Run()
			go func() {
				if err := <-p.Server.ShutdownListener(); err != nil {
					_ = p.Shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if shutdown == nil {
				return nil
			}
			stopCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return shutdown(stopCtx)
		},
	})
}

// ProvideRoute supplies a route to the "routes" group.
// Usage:
//
//	fx.Provide(fx.Annotate(
//	    httpserverfx.ProvideRoute("GET", "/users", handler.GetUsers),
//	    fx.ResultTags(`group:"routes"`),
//	))
func ProvideRoute(method, path string, handler httpserver.Handler, middlewares ...httpserver.Middleware) func() httpserver.Route {
	return func() httpserver.Route {
		return httpserver.NewRoute(method, path, handler, middlewares...)
	}
}
