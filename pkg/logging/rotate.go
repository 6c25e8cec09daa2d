package logging

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// newRotatingFile rolls spec.Path over once it reaches cfg.MaxSizeMB and keeps
// at most cfg.MaxBackups rotated generations. lumberjack serializes writes and
// rotation under its own mutex, so a record never straddles two files.
func newRotatingFile(spec TransportSpec, cfg Config) io.WriteCloser {
	return &lumberjack.Logger{
		Filename:   spec.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &ConfigError{
			Op:      "bootstrap",
			Message: fmt.Sprintf("directory %q", dir),
			Err:     fmt.Errorf("%w: %w", ErrLogDirectory, err),
		}
	}
	return nil
}
