package events_test

import (
	"context"
	"os"
	"time"

	"github.com/JailtonJunior94/lexlog/pkg/events"
	"github.com/JailtonJunior94/lexlog/pkg/logging"
)

func ExampleEmitter_AuthFailed() {
	clock := func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	cfg := logging.DefaultConfig(logging.EnvDevelopment)
	cfg.NoColor = true

	logger, err := logging.New(cfg, logging.WithConsoleWriter(os.Stdout), logging.WithClock(clock))
	if err != nil {
		panic(err)
	}
	defer logger.Close()

	emitter := events.NewEmitter(logger, events.WithClock(clock))
	emitter.AuthFailed(context.Background(), "ana@example.com", "203.0.113.7", "invalid password")

	// Output:
	// 03:04:05 [warn]: Authentication failed
	// {
	//   "email": "ana@example.com",
	//   "event": "auth.failed",
	//   "ip": "203.0.113.7",
	//   "reason": "invalid password",
	//   "timestamp": "2024-01-02T03:04:05.000Z"
	// }
}
