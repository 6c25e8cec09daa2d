package logging

import (
	"fmt"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Environment selects the transport profile.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// Format selects how a transport lays out a record.
type Format string

const (
	FormatConsole Format = "console"
	FormatFile    Format = "file"
)

// Transport names.
const (
	TransportConsole       = "console"
	TransportErrorFile     = "error-file"
	TransportCombinedFile  = "combined-file"
	TransportExceptionFile = "exceptions-file"
	TransportRejectionFile = "rejections-file"
)

// File names inside Config.Dir.
const (
	ErrorLogFile     = "error.log"
	CombinedLogFile  = "combined.log"
	ExceptionLogFile = "exceptions.log"
	RejectionLogFile = "rejections.log"
)

// Config is resolved once by the process entry point and handed to New.
// Environment variables:
//   - NODE_ENV: development, production, anything else is silent
//   - LOG_LEVEL: minimum level override
//   - LOG_DIR: directory for file transports (default "logs")
//   - LOG_MAX_SIZE_MB: rotation threshold in megabytes (default 10)
//   - LOG_MAX_BACKUPS: rotated generations kept (default 5)
//   - LOG_COMPRESS: gzip rotated files (default false)
//   - LOG_NO_COLOR: plain console output without ANSI colors (default false)
type Config struct {
	Environment Environment `env:"NODE_ENV"`
	Level       string      `env:"LOG_LEVEL" validate:"omitempty,loglevel"`
	Dir         string      `env:"LOG_DIR" envDefault:"logs" validate:"required_if=Environment production"`
	MaxSizeMB   int         `env:"LOG_MAX_SIZE_MB" envDefault:"10" validate:"gte=1"`
	MaxBackups  int         `env:"LOG_MAX_BACKUPS" envDefault:"5" validate:"gte=1"`
	Compress    bool        `env:"LOG_COMPRESS" envDefault:"false"`
	NoColor     bool        `env:"LOG_NO_COLOR"`
}

// TransportSpec describes one sink attached by a Config.
type TransportSpec struct {
	Name     string
	Level    Level
	Format   Format
	Path     string
	Colorize bool
}

// DefaultConfig returns the defaults for the given environment.
func DefaultConfig(environment Environment) Config {
	return Config{
		Environment: environment,
		Dir:         "logs",
		MaxSizeMB:   10,
		MaxBackups:  5,
	}
}

// ConfigFromEnv reads and validates a Config from the process environment.
func ConfigFromEnv() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, &ConfigError{Op: "env", Message: "parse environment", Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		_, err := ParseLevel(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks field ranges and the level override.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return &ConfigError{
			Op:      "validate",
			Message: "invalid configuration",
			Err:     fmt.Errorf("%w: %w", ErrInvalidConfig, err),
		}
	}
	return nil
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig(c.Environment)
	if c.Dir == "" {
		c.Dir = defaults.Dir
	}
	if c.MaxSizeMB == 0 {
		c.MaxSizeMB = defaults.MaxSizeMB
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = defaults.MaxBackups
	}
	return c
}

// MinimumLevel is the explicit override when set, info in production and
// debug everywhere else.
func (c Config) MinimumLevel() Level {
	if c.Level != "" {
		if lvl, err := ParseLevel(c.Level); err == nil {
			return lvl
		}
	}

	if c.Environment == EnvProduction {
		return LevelInfo
	}

	return LevelDebug
}

// Transports returns the sinks attached for regular records.
func (c Config) Transports() []TransportSpec {
	switch c.Environment {
	case EnvDevelopment:
		return []TransportSpec{
			{Name: TransportConsole, Level: LevelDebug, Format: FormatConsole, Colorize: !c.NoColor},
		}
	case EnvProduction:
		return []TransportSpec{
			{Name: TransportErrorFile, Level: LevelError, Format: FormatFile, Path: filepath.Join(c.Dir, ErrorLogFile)},
			{Name: TransportCombinedFile, Level: LevelInfo, Format: FormatFile, Path: filepath.Join(c.Dir, CombinedLogFile)},
			{Name: TransportConsole, Level: LevelError, Format: FormatConsole, Colorize: !c.NoColor},
		}
	default:
		return nil
	}
}

// ExceptionTransports returns the sinks receiving recovered panics.
func (c Config) ExceptionTransports() []TransportSpec {
	return c.handlerTransports(TransportExceptionFile, ExceptionLogFile)
}

// RejectionTransports returns the sinks receiving unhandled asynchronous errors.
func (c Config) RejectionTransports() []TransportSpec {
	return c.handlerTransports(TransportRejectionFile, RejectionLogFile)
}

func (c Config) handlerTransports(name, file string) []TransportSpec {
	switch c.Environment {
	case EnvDevelopment:
		return []TransportSpec{
			{Name: TransportConsole, Level: LevelError, Format: FormatConsole, Colorize: !c.NoColor},
		}
	case EnvProduction:
		return []TransportSpec{
			{Name: name, Level: LevelError, Format: FormatFile, Path: filepath.Join(c.Dir, file)},
		}
	default:
		return nil
	}
}

func (c Config) needsDirectory() bool {
	for _, group := range [][]TransportSpec{c.Transports(), c.ExceptionTransports(), c.RejectionTransports()} {
		for _, spec := range group {
			if spec.Format == FormatFile {
				return true
			}
		}
	}
	return false
}
