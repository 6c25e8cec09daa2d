package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("NODE_ENV", "production")

		cfg, err := ConfigFromEnv()
		require.NoError(t, err)

		assert.Equal(t, EnvProduction, cfg.Environment)
		assert.Equal(t, "logs", cfg.Dir)
		assert.Equal(t, 10, cfg.MaxSizeMB)
		assert.Equal(t, 5, cfg.MaxBackups)
		assert.False(t, cfg.NoColor)
		assert.Equal(t, LevelInfo, cfg.MinimumLevel())
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("NODE_ENV", "development")
		t.Setenv("LOG_LEVEL", "silly")
		t.Setenv("LOG_DIR", "/var/log/app")
		t.Setenv("LOG_MAX_BACKUPS", "2")
		t.Setenv("LOG_NO_COLOR", "true")

		cfg, err := ConfigFromEnv()
		require.NoError(t, err)

		assert.Equal(t, LevelSilly, cfg.MinimumLevel())
		assert.Equal(t, "/var/log/app", cfg.Dir)
		assert.Equal(t, 2, cfg.MaxBackups)
		assert.True(t, cfg.NoColor)
	})

	t.Run("invalid level", func(t *testing.T) {
		t.Setenv("NODE_ENV", "production")
		t.Setenv("LOG_LEVEL", "loud")

		_, err := ConfigFromEnv()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidConfig)

		var cfgErr *ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "validate", cfgErr.Op)
	})

	t.Run("malformed number", func(t *testing.T) {
		t.Setenv("LOG_MAX_SIZE_MB", "ten")

		_, err := ConfigFromEnv()
		var cfgErr *ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "env", cfgErr.Op)
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "zero size", mutate: func(c *Config) { c.MaxSizeMB = 0 }, wantErr: true},
		{name: "negative backups", mutate: func(c *Config) { c.MaxBackups = -1 }, wantErr: true},
		{name: "empty dir in production", mutate: func(c *Config) { c.Dir = "" }, wantErr: true},
		{name: "bad level", mutate: func(c *Config) { c.Level = "nope" }, wantErr: true},
		{name: "good level", mutate: func(c *Config) { c.Level = "Verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig(EnvProduction)
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConfigMinimumLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, DefaultConfig(EnvDevelopment).MinimumLevel())
	assert.Equal(t, LevelInfo, DefaultConfig(EnvProduction).MinimumLevel())
	assert.Equal(t, LevelDebug, DefaultConfig("test").MinimumLevel())

	cfg := DefaultConfig(EnvProduction)
	cfg.Level = "warn"
	assert.Equal(t, LevelWarn, cfg.MinimumLevel())
}

func TestConfigTransports(t *testing.T) {
	t.Run("development", func(t *testing.T) {
		specs := DefaultConfig(EnvDevelopment).Transports()
		require.Len(t, specs, 1)
		assert.Equal(t, TransportSpec{Name: TransportConsole, Level: LevelDebug, Format: FormatConsole, Colorize: true}, specs[0])
	})

	t.Run("zero value config is colored", func(t *testing.T) {
		specs := Config{Environment: EnvDevelopment}.Transports()
		require.Len(t, specs, 1)
		assert.True(t, specs[0].Colorize)

		plain := Config{Environment: EnvDevelopment, NoColor: true}.Transports()
		assert.False(t, plain[0].Colorize)
	})

	t.Run("production", func(t *testing.T) {
		cfg := DefaultConfig(EnvProduction)
		cfg.Dir = "/srv/logs"

		specs := cfg.Transports()
		require.Len(t, specs, 3)

		assert.Equal(t, TransportErrorFile, specs[0].Name)
		assert.Equal(t, LevelError, specs[0].Level)
		assert.Equal(t, filepath.Join("/srv/logs", "error.log"), specs[0].Path)

		assert.Equal(t, TransportCombinedFile, specs[1].Name)
		assert.Equal(t, LevelInfo, specs[1].Level)
		assert.Equal(t, filepath.Join("/srv/logs", "combined.log"), specs[1].Path)

		assert.Equal(t, TransportConsole, specs[2].Name)
		assert.Equal(t, LevelError, specs[2].Level)
		assert.Equal(t, FormatConsole, specs[2].Format)
	})

	t.Run("other environments are silent", func(t *testing.T) {
		for _, env := range []Environment{"", "test", "staging"} {
			cfg := DefaultConfig(env)
			assert.Empty(t, cfg.Transports(), "env %q", env)
			assert.Empty(t, cfg.ExceptionTransports(), "env %q", env)
			assert.Empty(t, cfg.RejectionTransports(), "env %q", env)
			assert.False(t, cfg.needsDirectory())
		}
	})

	t.Run("handler sinks", func(t *testing.T) {
		cfg := DefaultConfig(EnvProduction)
		require.Len(t, cfg.ExceptionTransports(), 1)
		assert.Equal(t, filepath.Join("logs", "exceptions.log"), cfg.ExceptionTransports()[0].Path)
		require.Len(t, cfg.RejectionTransports(), 1)
		assert.Equal(t, filepath.Join("logs", "rejections.log"), cfg.RejectionTransports()[0].Path)

		dev := DefaultConfig(EnvDevelopment)
		require.Len(t, dev.ExceptionTransports(), 1)
		assert.Equal(t, FormatConsole, dev.ExceptionTransports()[0].Format)
	})
}
