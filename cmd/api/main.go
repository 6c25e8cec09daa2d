package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	httpserverfx "github.com/JailtonJunior94/lexlog/pkg/httpserver/fx"
)

func main() {
	root := &cobra.Command{
		Use:   "api",
		Short: "HTTP API emitting structured events through lexlog",
		Long: `Runs a chi HTTP server whose requests, failures, rate limiting and
memory usage are reported as structured events.

Logging is configured from the environment:
  NODE_ENV         development (colorized console), production (files), anything else silent
  LOG_LEVEL        minimum level override
  LOG_DIR          directory for log files (default: logs)`,
		SilenceUsage: true,
	}

	root.AddCommand(newServeCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newServeCommand() *cobra.Command {
	opts := defaultServeOptions()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := httpserverfx.ConfigFromEnv()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") || os.Getenv("HTTP_ADDR") == "" {
				cfg.Addr = opts.addr
			}
			opts.http = cfg

			app := newApp(opts)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.addr, "addr", opts.addr, "listen address")
	flags.Float64Var(&opts.rate, "rate", opts.rate, "requests per second allowed per client IP")
	flags.IntVar(&opts.burst, "burst", opts.burst, "burst size per client IP")
	flags.DurationVar(&opts.memoryInterval, "memory-interval", opts.memoryInterval, "memory sampling interval, 0 disables sampling")
	flags.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL DSN; enables query events and /ready")
	flags.DurationVar(&opts.slowQuery, "slow-query", opts.slowQuery, "threshold for performance.slow on queries")
	flags.StringSliceVar(&opts.kafkaBrokers, "kafka-brokers", nil, "forward events to these Kafka brokers")
	flags.StringVar(&opts.rabbitURL, "rabbitmq-url", "", "forward events to this RabbitMQ server")
	flags.StringVar(&opts.forwardTopic, "forward-topic", opts.forwardTopic, "Kafka topic or RabbitMQ exchange for forwarded events")
	flags.StringVar(&opts.forwardLevel, "forward-level", opts.forwardLevel, "least severe level that is forwarded")

	return cmd
}

type serveOptions struct {
	addr           string
	rate           float64
	burst          int
	memoryInterval time.Duration
	databaseURL    string
	slowQuery      time.Duration
	kafkaBrokers   []string
	rabbitURL      string
	forwardTopic   string
	forwardLevel   string
	http           httpserverfx.Config
}

func defaultServeOptions() serveOptions {
	return serveOptions{
		addr:           ":8080",
		rate:           10,
		burst:          20,
		memoryInterval: time.Minute,
		slowQuery:      500 * time.Millisecond,
		forwardTopic:   "lexlog.events",
		forwardLevel:   "warn",
		http:           httpserverfx.DefaultConfig(),
	}
}
