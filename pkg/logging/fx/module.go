// Package loggingfx wires the logger and the event emitter into an fx
// application.
package loggingfx

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/JailtonJunior94/lexlog/pkg/events"
	"github.com/JailtonJunior94/lexlog/pkg/logging"
	"github.com/JailtonJunior94/lexlog/pkg/logging/noop"
)

// Module provides *logging.Logger, logging.Sink, *events.Dispatcher and
// *events.Emitter. A logging.Config must be supplied separately.
// Usage:
//
//	fx.New(
//	    loggingfx.ConfigModule,
//	    loggingfx.Module,
//	)
var Module = fx.Module("logging",
	fx.Provide(
		ProvideLogger,
		ProvideDispatcher,
		ProvideEmitter,
	),
)

// ModuleWithConfig is Module with an inline config.
func ModuleWithConfig(cfg logging.Config) fx.Option {
	return fx.Module("logging",
		fx.Supply(cfg),
		fx.Provide(
			ProvideLogger,
			ProvideDispatcher,
			ProvideEmitter,
		),
	)
}

// NoOpModule provides a sink and emitter that discard everything.
var NoOpModule = fx.Module("logging-noop",
	fx.Provide(
		func() logging.Sink { return noop.NewSink() },
		ProvideDispatcher,
		ProvideEmitter,
	),
)

// LoggerParams contains dependencies for creating the Logger.
type LoggerParams struct {
	fx.In

	Config     logging.Config
	LC         fx.Lifecycle
	Registerer prometheus.Registerer `optional:"true"`
	Options    []logging.Option      `group:"logging_options"`
}

// LoggerResult exposes the Logger both concretely and as a Sink.
type LoggerResult struct {
	fx.Out

	Logger *logging.Logger
	Sink   logging.Sink
}

// ProvideLogger builds the Logger and closes it when the app stops.
func ProvideLogger(p LoggerParams) (LoggerResult, error) {
	opts := append([]logging.Option{}, p.Options...)
	if p.Registerer != nil {
		metrics, err := logging.NewMetrics(p.Registerer)
		if err != nil {
			return LoggerResult{}, err
		}
		opts = append(opts, logging.WithMetrics(metrics))
	}

	logger, err := logging.New(p.Config, opts...)
	if err != nil {
		return LoggerResult{}, err
	}

	p.LC.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return logger.Close()
		},
	})

	return LoggerResult{Logger: logger, Sink: logger}, nil
}

// DispatcherParams contains dependencies for creating the Dispatcher.
type DispatcherParams struct {
	fx.In

	Registerer prometheus.Registerer `optional:"true"`
}

// ProvideDispatcher builds a Dispatcher. With a Registerer available every
// event is counted in lexlog_events_total.
func ProvideDispatcher(p DispatcherParams) (*events.Dispatcher, error) {
	dispatcher := events.NewDispatcher()
	if p.Registerer == nil {
		return dispatcher, nil
	}

	metrics, err := events.NewMetricsHandler(p.Registerer)
	if err != nil {
		return nil, err
	}
	if err := dispatcher.Subscribe(events.AllEvents, metrics); err != nil {
		return nil, err
	}
	return dispatcher, nil
}

// EmitterParams contains dependencies for creating the Emitter.
type EmitterParams struct {
	fx.In

	Sink       logging.Sink
	Dispatcher *events.Dispatcher
	Logger     *logging.Logger `optional:"true"`
}

// ProvideEmitter builds the Emitter. With a Logger available, handler
// failures are written to its rejections sink.
func ProvideEmitter(p EmitterParams) *events.Emitter {
	opts := []events.Option{events.WithDispatcher(p.Dispatcher)}
	if p.Logger != nil {
		opts = append(opts, events.WithFailureHandler(p.Logger.HandleRejection))
	}
	return events.NewEmitter(p.Sink, opts...)
}

// ProvideOption supplies a logging.Option to Module.
// Usage:
//
//	fx.Provide(fx.Annotate(
//	    loggingfx.ProvideOption(logging.WithConsoleWriter(os.Stderr)),
//	    fx.ResultTags(`group:"logging_options"`),
//	))
func ProvideOption(opt logging.Option) func() logging.Option {
	return func() logging.Option {
		return opt
	}
}
