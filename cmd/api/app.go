package main

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"

	"github.com/JailtonJunior94/lexlog/pkg/dblog"
	"github.com/JailtonJunior94/lexlog/pkg/events"
	"github.com/JailtonJunior94/lexlog/pkg/httplog"
	"github.com/JailtonJunior94/lexlog/pkg/httpserver"
	httpserverfx "github.com/JailtonJunior94/lexlog/pkg/httpserver/fx"
	"github.com/JailtonJunior94/lexlog/pkg/logging"
	loggingfx "github.com/JailtonJunior94/lexlog/pkg/logging/fx"
	"github.com/JailtonJunior94/lexlog/pkg/messaging"
	"github.com/JailtonJunior94/lexlog/pkg/messaging/kafka"
	"github.com/JailtonJunior94/lexlog/pkg/messaging/rabbitmq"
	"github.com/JailtonJunior94/lexlog/pkg/perf"
)

func newApp(opts serveOptions) *fx.App {
	return fx.New(appOptions(opts))
}

func appOptions(opts serveOptions) fx.Option {
	options := []fx.Option{
		fx.Supply(opts),
		fx.Supply(opts.http),
		loggingfx.ConfigModule,
		loggingfx.Module,
		httpserverfx.Module,
		fx.Provide(
			newRegistry,
			newChain,
			newHandlers,
			fx.Annotate(routes, fx.ResultTags(`group:"routes,flatten"`)),
		),
		fx.Invoke(registerSampler),
	}

	if opts.databaseURL != "" {
		options = append(options, fx.Provide(newPool))
	}
	if len(opts.kafkaBrokers) > 0 || opts.rabbitURL != "" {
		options = append(options, fx.Invoke(registerForwarder))
	}

	return fx.Options(options...)
}

func newRegistry() (*prometheus.Registry, prometheus.Registerer, prometheus.Gatherer) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, reg, reg
}

// newChain orders the global middlewares: request id first so every later
// event carries it, the access log outside the recoverer so a recovered
// panic still emits its 500 api.response, rate limiting before the handler.
func newChain(opts serveOptions, logger *logging.Logger, emitter *events.Emitter) httpserverfx.Chain {
	return httpserverfx.Chain{
		httplog.RequestID(),
		httplog.Logger(emitter),
		httplog.Recoverer(logger, emitter),
		httplog.RateLimit(emitter, opts.rate, opts.burst),
	}
}

func routes(h *handlers) []httpserver.Route {
	return []httpserver.Route{
		httpserver.NewRoute("GET", "/health", h.health),
		httpserver.NewRoute("GET", "/ready", h.ready),
		httpserver.NewRoute("GET", "/metrics", h.metrics),
		httpserver.NewRoute("POST", "/v1/auth/login", h.login),
		httpserver.NewRoute("POST", "/v1/auth/logout", h.logout),
	}
}

type samplerParams struct {
	fx.In

	Options serveOptions
	Emitter *events.Emitter
	Sink    logging.Sink
	LC      fx.Lifecycle
}

func registerSampler(p samplerParams) error {
	if p.Options.memoryInterval <= 0 {
		return nil
	}

	sampler, err := perf.NewMemorySampler(p.Emitter, p.Options.memoryInterval, p.Sink)
	if err != nil {
		return err
	}

	p.LC.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return sampler.Start(context.Background())
		},
		OnStop: sampler.Stop,
	})
	return nil
}

func newPool(lc fx.Lifecycle, opts serveOptions, emitter *events.Emitter) (*pgxpool.Pool, error) {
	tracer := dblog.NewTracer(emitter, dblog.WithSlowThreshold(opts.slowQuery))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := dblog.OpenPool(ctx, dblog.DefaultPoolConfig(opts.databaseURL), tracer)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.StopHook(pool.Close))
	return pool, nil
}

type forwarderParams struct {
	fx.In

	LC         fx.Lifecycle
	Options    serveOptions
	Dispatcher *events.Dispatcher
	Logger     *logging.Logger
}

// registerForwarder subscribes a broker forwarder to every event. Kafka wins
// when both brokers are configured. Publishing runs on its own goroutine;
// failures and panics there go to the rejections and exceptions sinks.
func registerForwarder(p forwarderParams) error {
	opts := p.Options
	level, err := logging.ParseLevel(opts.forwardLevel)
	if err != nil {
		return err
	}

	var publisher messaging.Publisher
	if len(opts.kafkaBrokers) > 0 {
		publisher, err = kafka.NewPublisher(kafka.DefaultConfig(opts.kafkaBrokers...))
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		publisher, err = rabbitmq.Dial(ctx, opts.rabbitURL, opts.forwardTopic, 30*time.Second)
	}
	if err != nil {
		return err
	}

	forwarder, err := messaging.NewForwarder(publisher, opts.forwardTopic,
		messaging.WithMinLevel(level),
		messaging.WithErrorHandler(p.Logger.HandleRejection),
	)
	if err != nil {
		return err
	}

	runCtx, cancelRun := context.WithCancel(context.Background())
	var stopped <-chan struct{}

	p.LC.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if err := p.Dispatcher.Subscribe(events.AllEvents, forwarder); err != nil {
				return err
			}
			stopped = p.Logger.Go(runCtx, forwarder.Run)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			p.Dispatcher.Unsubscribe(events.AllEvents, forwarder)
			closeErr := forwarder.Close(ctx)
			cancelRun()
			if stopped != nil {
				<-stopped
			}
			return errors.Join(closeErr, publisher.Close())
		},
	})
	return nil
}
