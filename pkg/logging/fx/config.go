package loggingfx

import (
	"go.uber.org/fx"

	"github.com/JailtonJunior94/lexlog/pkg/logging"
)

// ConfigModule provides logging.Config read from the environment. See
// logging.Config for the variables it honours.
var ConfigModule = fx.Provide(logging.ConfigFromEnv)

// DefaultConfig returns the development profile.
func DefaultConfig() logging.Config {
	return logging.DefaultConfig(logging.EnvDevelopment)
}
